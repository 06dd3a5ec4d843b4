package artifacts

import (
	"testing"
	"time"

	"github.com/matzehuels/moxie/pkg/maven"
)

func TestSolution_ModTimeInvalidation(t *testing.T) {
	c := newTestCache(t, "")
	dep := maven.NewDependency("g", "a", "1")
	pomTime := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	util := maven.NewDependency("g", "util", "2")
	util.Ring = 1
	sol := Solution{maven.Compile: {util}}
	if err := c.WriteSolution(dep, sol, pomTime); err != nil {
		t.Fatalf("WriteSolution() error = %v", err)
	}

	got, ok := c.ReadSolution(dep, pomTime)
	if !ok {
		t.Fatal("ReadSolution() missed with matching modification time")
	}
	if deps := got[maven.Compile]; len(deps) != 1 || deps[0].Coordinates() != "g:util:2" || deps[0].Ring != 1 {
		t.Errorf("ReadSolution() = %v", got)
	}

	if _, ok := c.ReadSolution(dep, pomTime.Add(time.Second)); ok {
		t.Error("ReadSolution() hit after the source changed")
	}

	data, err := c.ReadData(dep)
	if err != nil {
		t.Fatal(err)
	}
	if data.LastSolved.IsZero() {
		t.Error("LastSolved not recorded")
	}
}

func TestSolution_Project(t *testing.T) {
	c := newTestCache(t, "")
	descriptor := "testdata/moxie.toml"
	mod := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	path := c.ProjectSolutionPath(descriptor)
	if path != c.ProjectSolutionPath(descriptor) {
		t.Error("ProjectSolutionPath() not stable")
	}
	if err := c.WriteSolutionFile(path, Solution{maven.Test: nil}, mod); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.ReadSolutionFile(path, mod); !ok {
		t.Error("ReadSolutionFile() missed")
	}
	if err := c.WriteSolutionFile(path, Solution{}, time.Time{}); err == nil {
		t.Error("WriteSolutionFile() accepted a zero modification time")
	}
}

func TestSolution_CloneIsDeep(t *testing.T) {
	sol := Solution{maven.Compile: {maven.NewDependency("g", "a", "1")}}
	cp := sol.Clone()
	cp[maven.Compile][0].Ring = 5
	if sol[maven.Compile][0].Ring != 0 {
		t.Error("Clone() shares dependencies")
	}
}
