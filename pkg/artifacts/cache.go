// Package artifacts implements the on-disk artifact cache.
//
// Artifacts are stored beneath one root:
//
//	<root>/local/<group-path>/<artifact>/<version>/<artifact>-<revision>[-<classifier>].<ext>
//	<root>/remote/<origin-folder>/<group-path>/...
//	<root>/data/<group-path>/<artifact>/<version>/...   side-data, solutions, metadata
//
// Artifacts with no recorded origin were produced locally and live under
// local/. Downloaded artifacts live under a folder derived from the
// repository URL they came from ([OriginFolder]).
//
// [Cache.Locate] searches the layers in order: the canonical path, every
// remote folder, then an optional system cache (typically ~/.m2/repository)
// whose hits are copied into the canonical location.
package artifacts

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

// DefaultPathPattern is the standard Maven repository layout.
const DefaultPathPattern = "${groupId}/${artifactId}/${version}/${artifactId}-${revision}${classifier}.${ext}"

const (
	localDir  = "local"
	remoteDir = "remote"
	dataDir   = "data"
)

// Options configure a [Cache].
type Options struct {
	Root        string      // cache root, required
	SystemRoot  string      // upstream cache consulted last; "" disables
	PathPattern string      // default DefaultPathPattern
	Logger      *log.Logger // nil uses log.Default()
}

// Cache is the layered artifact cache. It is safe for concurrent use.
type Cache struct {
	root       string
	systemRoot string
	pattern    string
	logger     *log.Logger
	locks      keyedMutex
}

// New creates the cache directories under opts.Root.
func New(opts Options) (*Cache, error) {
	if opts.Root == "" {
		return nil, errors.New(errors.ErrCodeInvalidInput, "artifact cache root is required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "artifact cache root %s", opts.Root)
	}
	for _, dir := range []string{localDir, remoteDir, dataDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "create artifact cache")
		}
	}
	c := &Cache{
		root:       root,
		systemRoot: opts.SystemRoot,
		pattern:    opts.PathPattern,
		logger:     opts.Logger,
	}
	if c.pattern == "" {
		c.pattern = DefaultPathPattern
	}
	if c.logger == nil {
		c.logger = log.Default()
	}
	return c, nil
}

// Root returns the cache root directory.
func (c *Cache) Root() string { return c.root }

// SystemRoot returns the upstream cache directory, or "".
func (c *Cache) SystemRoot() string { return c.systemRoot }

// FormatPath expands pattern for dep. The group becomes a directory path
// unless dotGroup is set.
func FormatPath(pattern string, dep *maven.Dependency, ext string, dotGroup bool) string {
	group := dep.GroupID
	if !dotGroup {
		group = strings.ReplaceAll(group, ".", "/")
	}
	classifier := ""
	if dep.Classifier != "" {
		classifier = "-" + dep.Classifier
	}
	if ext == "" {
		ext = dep.Extension()
	}
	return strings.NewReplacer(
		"${groupId}", group,
		"${artifactId}", dep.ArtifactID,
		"${version}", dep.Version,
		"${revision}", dep.ResolvedVersion(),
		"${classifier}", classifier,
		"${ext}", ext,
	).Replace(pattern)
}

// RepositoryPath returns dep's slash-separated path in the standard Maven
// layout, as used in repository URLs.
func RepositoryPath(dep *maven.Dependency, ext string) string {
	return FormatPath(DefaultPathPattern, dep, ext, false)
}

// OriginFolder turns a repository URL into a folder name:
// "https://repo1.maven.org/maven2/" becomes "repo1.maven.org_maven2".
func OriginFolder(origin string) string {
	s := origin
	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	s = strings.Trim(s, "/")
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func (c *Cache) relPath(dep *maven.Dependency, ext string) string {
	return filepath.FromSlash(FormatPath(c.pattern, dep, ext, false))
}

// Path returns the canonical location of dep: beneath local/ when it has no
// origin, else beneath its origin's remote folder.
func (c *Cache) Path(dep *maven.Dependency, ext string) string {
	if dep.IsSystem() {
		return dep.Path
	}
	if dep.Origin == "" {
		return filepath.Join(c.root, localDir, c.relPath(dep, ext))
	}
	return filepath.Join(c.root, remoteDir, OriginFolder(dep.Origin), c.relPath(dep, ext))
}

// Locate finds dep in the cache layers and reports whether it exists. A hit
// in the system cache is copied to [Cache.Path] first. On a miss the
// canonical path is returned.
func (c *Cache) Locate(dep *maven.Dependency, ext string) (string, bool) {
	canonical := c.Path(dep, ext)
	if dep.IsSystem() {
		return canonical, fileExists(canonical)
	}
	if fileExists(canonical) {
		return canonical, true
	}

	rel := c.relPath(dep, ext)
	for _, folder := range c.remoteFolders() {
		p := filepath.Join(c.root, remoteDir, folder, rel)
		if fileExists(p) {
			return p, true
		}
	}
	if local := filepath.Join(c.root, localDir, rel); fileExists(local) {
		return local, true
	}

	if c.systemRoot == "" {
		return canonical, false
	}
	candidates := []string{filepath.Join(c.systemRoot, rel)}
	if dep.IsSnapshot() && dep.Revision != "" && dep.Revision != dep.Version {
		// the system cache keeps the most recent snapshot under the base version
		base := dep.Clone()
		base.Revision = ""
		candidates = append(candidates, filepath.Join(c.systemRoot, c.relPath(base, ext)))
	}
	for _, src := range candidates {
		if !fileExists(src) {
			continue
		}
		if err := c.copyIn(src, canonical); err != nil {
			c.logger.Warn("copy from system cache failed", "src", src, "err", err)
			return src, true
		}
		c.logger.Debug("copied from system cache", "artifact", dep.Coordinates(), "ext", ext)
		return canonical, true
	}
	return canonical, false
}

func (c *Cache) copyIn(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	st, err := c.stageAt(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(st, in); err != nil {
		st.Abort()
		return err
	}
	return st.Commit(info.ModTime())
}

func (c *Cache) remoteFolders() []string {
	entries, err := os.ReadDir(filepath.Join(c.root, remoteDir))
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			out = append(out, e.Name())
		}
	}
	return out
}

// Staged is an artifact being written. Bytes go to a temporary file beside
// the destination and become visible only on [Staged.Commit].
type Staged struct {
	*os.File
	dst  string
	done bool
}

// Stage opens a temporary file for dep's canonical path.
func (c *Cache) Stage(dep *maven.Dependency, ext string) (*Staged, error) {
	return c.stageAt(c.Path(dep, ext))
}

func (c *Cache) stageAt(dst string) (*Staged, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "create %s", filepath.Dir(dst))
	}
	f, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".part-*")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "stage %s", dst)
	}
	return &Staged{File: f, dst: dst}, nil
}

// Path returns the destination the artifact is committed to.
func (s *Staged) Path() string { return s.dst }

// Commit renames the temporary file into place. A non-zero modTime is
// applied to the committed file.
func (s *Staged) Commit(modTime time.Time) error {
	if s.done {
		return errors.New(errors.ErrCodeInternal, "staged file %s already finished", s.dst)
	}
	s.done = true
	tmp := s.File.Name()
	if err := s.File.Close(); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", s.dst)
	}
	if !modTime.IsZero() {
		_ = os.Chtimes(tmp, modTime, modTime)
	}
	if err := os.Rename(tmp, s.dst); err != nil {
		_ = os.Remove(tmp)
		return errors.Wrap(errors.ErrCodeInternal, err, "commit %s", s.dst)
	}
	return nil
}

// Abort discards the temporary file. It is a no-op after Commit.
func (s *Staged) Abort() {
	if s.done {
		return
	}
	s.done = true
	_ = s.File.Close()
	_ = os.Remove(s.File.Name())
}

// Write stores data as dep's artifact and returns its path.
func (c *Cache) Write(dep *maven.Dependency, ext string, data []byte, modTime time.Time) (string, error) {
	st, err := c.Stage(dep, ext)
	if err != nil {
		return "", err
	}
	if _, err := st.Write(data); err != nil {
		st.Abort()
		return "", errors.Wrap(errors.ErrCodeInternal, err, "write %s", st.Path())
	}
	if err := st.Commit(modTime); err != nil {
		return "", err
	}
	return st.Path(), nil
}

// Remove deletes dep's artifact from the local folder and every remote
// folder. Missing files are ignored.
func (c *Cache) Remove(dep *maven.Dependency, ext string) error {
	rel := c.relPath(dep, ext)
	paths := []string{filepath.Join(c.root, localDir, rel)}
	for _, folder := range c.remoteFolders() {
		paths = append(paths, filepath.Join(c.root, remoteDir, folder, rel))
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.Wrap(errors.ErrCodeInternal, err, "remove %s", p)
		}
	}
	return nil
}

// Clear removes every cached artifact, side-data document and solution.
func (c *Cache) Clear() error {
	for _, dir := range []string{localDir, remoteDir, dataDir} {
		p := filepath.Join(c.root, dir)
		if err := os.RemoveAll(p); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "clear %s", p)
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return errors.Wrap(errors.ErrCodeInternal, err, "clear %s", p)
		}
	}
	return nil
}

// Stats summarizes the cache contents.
type Stats struct {
	Artifacts int
	Bytes     int64
	Origins   []string
}

// Stats walks the artifact trees. Checksum and side-data files are not
// counted.
func (c *Cache) Stats() (Stats, error) {
	var s Stats
	for _, dir := range []string{localDir, remoteDir} {
		err := filepath.WalkDir(filepath.Join(c.root, dir), func(path string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() || !isArtifactFile(d.Name()) {
				return err
			}
			info, err := d.Info()
			if err != nil {
				return err
			}
			s.Artifacts++
			s.Bytes += info.Size()
			return nil
		})
		if err != nil {
			return s, errors.Wrap(errors.ErrCodeInternal, err, "scan cache")
		}
	}
	s.Origins = c.remoteFolders()
	return s, nil
}

// sidecarExts are files stored beside artifacts that are not artifacts.
var sidecarExts = []string{".sha1", dataExt}

func isArtifactFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	for _, ext := range sidecarExts {
		if strings.HasSuffix(name, ext) {
			return false
		}
	}
	return true
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
