package artifacts

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

// PurgeSnapshots deletes every cached file of the given snapshot revisions
// of dep (all classifiers and extensions, in every layer) and drops them
// from the cached metadata. It returns the number of files removed.
func (c *Cache) PurgeSnapshots(dep *maven.Dependency, snaps []maven.Snapshot) (int, error) {
	if len(snaps) == 0 || !dep.IsSnapshot() {
		return 0, nil
	}
	prefixes := make([]string, len(snaps))
	for i, s := range snaps {
		prefixes[i] = dep.ArtifactID + "-" + s.Revision(dep.Version)
	}

	base := dep.Clone()
	base.Revision = ""
	base.Classifier = ""
	versionRel := filepath.Dir(c.relPath(base, maven.DefaultPOMType))
	dirs := []string{filepath.Join(c.root, localDir, versionRel)}
	for _, folder := range c.remoteFolders() {
		dirs = append(dirs, filepath.Join(c.root, remoteDir, folder, versionRel))
	}

	removed := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !hasAnyPrefix(e.Name(), prefixes) {
				continue
			}
			p := filepath.Join(dir, e.Name())
			if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
				return removed, errors.Wrap(errors.ErrCodeInternal, err, "purge %s", p)
			}
			removed++
			c.logger.Debug("purged snapshot file", "path", p)
		}
	}

	unlock := c.LockMetadata(dep)
	defer unlock()
	md, err := c.ReadMetadata(dep)
	if err != nil || md == nil {
		return removed, nil
	}
	md.RemoveSnapshots(snaps)
	return removed, c.WriteMetadata(dep, md)
}

// hasAnyPrefix matches "<artifact>-<revision>" followed by '.' or '-'.
func hasAnyPrefix(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if rest, ok := strings.CutPrefix(name, p); ok && rest != "" && (rest[0] == '.' || rest[0] == '-') {
			return true
		}
	}
	return false
}
