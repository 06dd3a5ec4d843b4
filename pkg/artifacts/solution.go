package artifacts

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/matzehuels/moxie/pkg/cache"
	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

// Solution is a memoized resolution result: the dependencies found for each
// scope.
type Solution map[maven.Scope][]*maven.Dependency

// Clone returns a deep copy.
func (s Solution) Clone() Solution {
	out := make(Solution, len(s))
	for scope, deps := range s {
		cp := make([]*maven.Dependency, len(deps))
		for i, d := range deps {
			cp[i] = d.Clone()
		}
		out[scope] = cp
	}
	return out
}

// SolutionPath returns the location of dep's cached solution.
func (c *Cache) SolutionPath(dep *maven.Dependency) string { return c.dataPath(dep, solutionExt) }

// ProjectSolutionPath returns the solution location for a project
// descriptor, keyed by its absolute path.
func (c *Cache) ProjectSolutionPath(descriptor string) string {
	abs, err := filepath.Abs(descriptor)
	if err != nil {
		abs = descriptor
	}
	return filepath.Join(c.root, dataDir, "projects", cache.Hash([]byte(abs))+solutionExt)
}

// ReadSolution returns dep's cached solution when it was derived from a
// POM with exactly sourceModTime. Any other modification time is a miss.
func (c *Cache) ReadSolution(dep *maven.Dependency, sourceModTime time.Time) (Solution, bool) {
	return c.ReadSolutionFile(c.SolutionPath(dep), sourceModTime)
}

// ReadSolutionFile is [Cache.ReadSolution] for an explicit path.
func (c *Cache) ReadSolutionFile(path string, sourceModTime time.Time) (Solution, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.ModTime().Equal(sourceModTime) {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var sol Solution
	if err := json.Unmarshal(raw, &sol); err != nil {
		c.logger.Debug("discarding unreadable solution", "path", path, "err", err)
		return nil, false
	}
	return sol, true
}

// WriteSolution stores dep's solution stamped with sourceModTime and records
// the solve time in its side-data.
func (c *Cache) WriteSolution(dep *maven.Dependency, sol Solution, sourceModTime time.Time) error {
	if err := c.WriteSolutionFile(c.SolutionPath(dep), sol, sourceModTime); err != nil {
		return err
	}
	return c.UpdateData(dep, func(d *Data) { d.LastSolved = time.Now().UTC() })
}

// WriteSolutionFile is [Cache.WriteSolution] for an explicit path.
func (c *Cache) WriteSolutionFile(path string, sol Solution, sourceModTime time.Time) error {
	if sourceModTime.IsZero() {
		return errors.New(errors.ErrCodeInvalidInput, "solution %s needs a source modification time", path)
	}
	raw, err := json.Marshal(sol)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode solution")
	}
	unlock := c.locks.Lock(path)
	defer unlock()
	return c.writeFile(path, raw, sourceModTime)
}
