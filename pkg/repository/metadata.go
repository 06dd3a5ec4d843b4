package repository

import (
	"context"
	"time"

	"github.com/matzehuels/moxie/pkg/artifacts"
	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
	"github.com/matzehuels/moxie/pkg/observability"
)

// metadataRecord is the coordinate whose side-data tracks metadata checks:
// the snapshot version itself, or the LATEST pseudo-coordinate for
// artifact-level metadata.
func metadataRecord(dep *maven.Dependency) *maven.Dependency {
	version := dep.Version
	if !dep.IsSnapshot() {
		version = maven.VersionLatest
	}
	return pseudoCoordinate(dep, version)
}

func pseudoCoordinate(dep *maven.Dependency, version string) *maven.Dependency {
	return maven.NewDependency(dep.GroupID, dep.ArtifactID, version)
}

// FetchMetadata returns the merged maven-metadata.xml for dep. Cached
// metadata is returned while the update policy says it is fresh; otherwise
// every repository serving dep is asked and the answers are merged with the
// cached copy.
func (c *Client) FetchMetadata(ctx context.Context, dep *maven.Dependency) (*maven.Metadata, error) {
	unlock := c.cache.LockMetadata(dep)
	defer unlock()

	cached, err := c.cache.ReadMetadata(dep)
	if err != nil {
		c.logger.Warn("discarding unreadable cached metadata", "artifact", dep.Coordinates(), "err", err)
		cached = nil
	}
	record := metadataRecord(dep)
	data, err := c.cache.ReadData(record)
	if err != nil {
		return nil, err
	}
	now := c.now().UTC()
	if cached != nil && (c.offline || !c.policy.Due(data.LastChecked, now)) {
		observability.Cache().OnCacheHit(ctx, "metadata")
		return cached, nil
	}
	if c.offline {
		return nil, errors.New(errors.ErrCodeOffline, "no cached metadata for %s and network access is disabled", dep.Coordinates())
	}
	observability.Cache().OnCacheMiss(ctx, "metadata")

	var (
		merged  *maven.Metadata
		origin  string
		lastErr error
	)
	for _, repo := range c.repos {
		if !repo.Serves(dep) {
			continue
		}
		md, err := c.metadataFrom(ctx, repo, dep)
		switch {
		case err == nil:
			if merged == nil {
				merged = md
			} else {
				merged.Merge(md)
			}
			origin = repo.URL
		case errors.IsNotFound(err):
			c.logger.Debug("no metadata in repository", "repository", repo.ID, "artifact", dep.Coordinates())
		case errors.IsFatal(err):
			return nil, err
		default:
			c.logger.Warn("metadata fetch failed", "repository", repo.ID, "artifact", dep.Coordinates(), "err", err)
			lastErr = err
		}
	}

	if merged == nil {
		if cached != nil {
			_ = c.cache.UpdateData(record, func(d *artifacts.Data) { d.LastChecked = now })
			return cached, nil
		}
		if lastErr != nil {
			return nil, errors.Wrap(errors.ErrCodeNetwork, lastErr, "fetch metadata for %s", dep.Coordinates())
		}
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "no metadata for %s in any repository", dep.Coordinates())
	}

	merged.Merge(cached)
	if err := c.cache.WriteMetadata(dep, merged); err != nil {
		c.logger.Warn("could not cache metadata", "artifact", dep.Coordinates(), "err", err)
	}
	c.recordMetadata(dep, merged, origin, now)
	return merged, nil
}

// recordMetadata updates side-data after a metadata refresh. For release
// metadata the RELEASE and LATEST pseudo-coordinates remember what they
// resolved to, so later lookups can skip the metadata entirely.
func (c *Client) recordMetadata(dep *maven.Dependency, md *maven.Metadata, origin string, now time.Time) {
	update := func(target *maven.Dependency, revision string) {
		err := c.cache.UpdateData(target, func(d *artifacts.Data) {
			d.Origin = origin
			d.LastChecked = now
			d.LastDownloaded = now
			d.LastUpdated = md.LastUpdated
			d.Revision = revision
		})
		if err != nil {
			c.logger.Warn("could not record side-data", "artifact", target.Coordinates(), "err", err)
		}
	}
	if dep.IsSnapshot() {
		revision := dep.Version
		if s, ok := md.LatestSnapshot(); ok {
			revision = s.Revision(dep.Version)
		}
		update(metadataRecord(dep), revision)
		return
	}
	update(pseudoCoordinate(dep, maven.VersionRelease), md.Release)
	update(pseudoCoordinate(dep, maven.VersionLatest), md.Latest)
}

func (c *Client) metadataFrom(ctx context.Context, repo *remote, dep *maven.Dependency) (*maven.Metadata, error) {
	u := repo.MetadataURL(dep)
	if repo.missed(ctx, u) {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "%s (remembered miss)", u)
	}

	expected := ""
	raw, err := c.getBytes(ctx, repo, u+checksumExt)
	switch {
	case err == nil:
		if sum, ok := parseChecksum(raw); ok {
			expected = sum
		}
	case errors.IsNotFound(err):
	default:
		return nil, err
	}

	body, err := c.getBytes(ctx, repo, u)
	if err != nil {
		if errors.IsNotFound(err) {
			repo.remember(ctx, u)
		}
		return nil, err
	}
	if expected != "" {
		h := newHasher()
		h.Write(body)
		if got := hexSum(h); got != expected {
			return nil, errors.New(errors.ErrCodeChecksumMismatch, "%s: expected sha1 %s, got %s", u, expected, got)
		}
	}
	return maven.ParseMetadata(body)
}

// ResolveVersion replaces a RELEASE, LATEST or -SNAPSHOT version with the
// concrete version or revision from repository metadata. Other
// dependencies are returned as is. A snapshot with no metadata anywhere is
// taken to be locally built and resolves to its own version.
func (c *Client) ResolveVersion(ctx context.Context, dep *maven.Dependency) (*maven.Dependency, error) {
	if !dep.IsMetaVersion() {
		return dep, nil
	}
	if dep.Version == maven.VersionRelease || dep.Version == maven.VersionLatest {
		data, err := c.cache.ReadData(pseudoCoordinate(dep, dep.Version))
		if err == nil && data.Revision != "" && (c.offline || !c.policy.Due(data.LastChecked, c.now().UTC())) {
			out := dep.Clone()
			out.Version = data.Revision
			out.Revision = data.Revision
			out.Origin = data.Origin
			return out, nil
		}
	}

	md, err := c.FetchMetadata(ctx, dep)
	if err != nil {
		if dep.IsSnapshot() && (errors.IsNotFound(err) || errors.Is(err, errors.ErrCodeOffline)) {
			out := dep.Clone()
			out.Revision = dep.Version
			return out, nil
		}
		return nil, err
	}
	out := md.ResolveMetaVersion(dep)
	if out.IsMetaVersion() && !out.IsSnapshot() {
		return nil, errors.New(errors.ErrCodeArtifactNotFound, "metadata for %s names no %s version", dep.Coordinates(), dep.Version)
	}
	return out, nil
}
