package server

import (
	"regexp"
	"strings"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

// request is a parsed repository path.
type request struct {
	dep      *maven.Dependency
	ext      string // artifact extension, without checksum suffix
	metadata bool
	checksum bool // the .sha1 of the file was asked for
}

var snapshotRevision = regexp.MustCompile(`^\d{8}\.\d{6}-\d+`)

// parsePath splits a Maven 2 layout path:
//
//	group/path/artifact/version/artifact-version[-classifier].ext[.sha1]
//	group/path/artifact/maven-metadata.xml
//	group/path/artifact/version-SNAPSHOT/maven-metadata.xml
func parsePath(p string) (*request, error) {
	segs := strings.Split(strings.Trim(p, "/"), "/")
	for _, s := range segs {
		if s == "" || s == "." || s == ".." {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid repository path %q", p)
		}
	}
	file := segs[len(segs)-1]
	req := &request{}
	if c, ok := strings.CutSuffix(file, ".sha1"); ok {
		req.checksum = true
		file = c
	}

	if file == maven.MetadataFile {
		req.metadata = true
		if len(segs) >= 4 && strings.HasSuffix(segs[len(segs)-2], maven.SnapshotSuffix) {
			req.dep = maven.NewDependency(strings.Join(segs[:len(segs)-3], "."), segs[len(segs)-3], segs[len(segs)-2])
			return req, nil
		}
		if len(segs) < 3 {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid metadata path %q", p)
		}
		req.dep = maven.NewDependency(strings.Join(segs[:len(segs)-2], "."), segs[len(segs)-2], maven.VersionLatest)
		return req, nil
	}

	if len(segs) < 4 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid artifact path %q", p)
	}
	version := segs[len(segs)-2]
	artifact := segs[len(segs)-3]
	dep := maven.NewDependency(strings.Join(segs[:len(segs)-3], "."), artifact, version)

	rest, ok := strings.CutPrefix(file, artifact+"-")
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidInput, "file %q does not belong to %s", file, artifact)
	}
	switch {
	case strings.HasPrefix(rest, version):
		rest = rest[len(version):]
	case dep.IsSnapshot():
		base := strings.TrimSuffix(version, maven.SnapshotSuffix) + "-"
		after, ok := strings.CutPrefix(rest, base)
		m := snapshotRevision.FindString(after)
		if !ok || m == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "file %q does not match version %s", file, version)
		}
		dep.Revision = base + m
		rest = after[len(m):]
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "file %q does not match version %s", file, version)
	}

	switch {
	case strings.HasPrefix(rest, "-"):
		classifier, ext, ok := strings.Cut(rest[1:], ".")
		if !ok || classifier == "" || ext == "" {
			return nil, errors.New(errors.ErrCodeInvalidInput, "invalid artifact file %q", file)
		}
		dep.Classifier = classifier
		req.ext = ext
	case strings.HasPrefix(rest, ".") && len(rest) > 1:
		req.ext = rest[1:]
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "invalid artifact file %q", file)
	}
	dep.Type = req.ext
	req.dep = dep
	return req, nil
}
