package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

const (
	dataExt     = ".moxie"
	solutionExt = ".solution"
)

// Data is the per-artifact side-data document recording where an artifact
// came from and when it was last refreshed.
type Data struct {
	Origin         string    `json:"origin,omitempty"`
	LastDownloaded time.Time `json:"lastDownloaded"`
	LastChecked    time.Time `json:"lastChecked"`
	LastUpdated    time.Time `json:"lastUpdated"`
	LastSolved     time.Time `json:"lastSolved"`
	// Revision is the concrete version a meta-version (RELEASE, LATEST,
	// SNAPSHOT) last resolved to.
	Revision string `json:"revision,omitempty"`
}

// versionDir is the data folder of dep's version.
func (c *Cache) versionDir(dep *maven.Dependency) string {
	return filepath.Join(c.root, dataDir, filepath.FromSlash(strings.ReplaceAll(dep.GroupID, ".", "/")),
		dep.ArtifactID, dep.Version)
}

func (c *Cache) dataPath(dep *maven.Dependency, ext string) string {
	name := dep.ArtifactID + "-" + dep.Version
	if dep.Classifier != "" {
		name += "-" + dep.Classifier
	}
	return filepath.Join(c.versionDir(dep), name+ext)
}

// DataPath returns the location of dep's side-data document.
func (c *Cache) DataPath(dep *maven.Dependency) string { return c.dataPath(dep, dataExt) }

// ReadData returns dep's side-data. A missing document yields a zero Data.
func (c *Cache) ReadData(dep *maven.Dependency) (*Data, error) {
	return readData(c.DataPath(dep))
}

func readData(path string) (*Data, error) {
	var d Data
	raw, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &d, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	if err := json.Unmarshal(raw, &d); err != nil {
		// unreadable side-data only costs a refresh
		return &Data{}, nil
	}
	return &d, nil
}

// UpdateData applies fn to dep's side-data and writes it back. Concurrent
// updates of the same document are serialized.
func (c *Cache) UpdateData(dep *maven.Dependency, fn func(*Data)) error {
	path := c.DataPath(dep)
	unlock := c.locks.Lock(path)
	defer unlock()

	d, err := readData(path)
	if err != nil {
		return err
	}
	fn(d)
	raw, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode side-data for %s", dep.Coordinates())
	}
	return c.writeFile(path, raw, time.Time{})
}

// MetadataPath returns where the merged maven-metadata.xml for dep is kept:
// beside the version for snapshots, at artifact level otherwise.
func (c *Cache) MetadataPath(dep *maven.Dependency) string {
	if dep.IsSnapshot() {
		return filepath.Join(c.versionDir(dep), maven.MetadataFile)
	}
	return filepath.Join(filepath.Dir(c.versionDir(dep)), maven.MetadataFile)
}

// ReadMetadata returns the cached metadata for dep, or nil if none is cached.
func (c *Cache) ReadMetadata(dep *maven.Dependency) (*maven.Metadata, error) {
	raw, err := os.ReadFile(c.MetadataPath(dep))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read metadata for %s", dep.Coordinates())
	}
	return maven.ParseMetadata(raw)
}

// WriteMetadata replaces the cached metadata for dep.
func (c *Cache) WriteMetadata(dep *maven.Dependency, md *maven.Metadata) error {
	raw, err := md.Bytes()
	if err != nil {
		return err
	}
	path := c.MetadataPath(dep)
	unlock := c.locks.Lock(path)
	defer unlock()
	return c.writeFile(path, raw, time.Time{})
}

// LockMetadata serializes read-merge-write cycles on dep's metadata.
func (c *Cache) LockMetadata(dep *maven.Dependency) func() {
	return c.locks.Lock(c.MetadataPath(dep) + ".merge")
}

func (c *Cache) writeFile(path string, data []byte, modTime time.Time) error {
	st, err := c.stageAt(path)
	if err != nil {
		return err
	}
	if _, err := st.Write(data); err != nil {
		st.Abort()
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return st.Commit(modTime)
}
