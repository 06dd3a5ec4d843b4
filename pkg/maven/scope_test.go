package maven

import (
	"testing"

	"github.com/matzehuels/moxie/pkg/errors"
)

func TestParseScope(t *testing.T) {
	tests := []struct {
		input   string
		want    Scope
		wantErr bool
	}{
		{"", Compile, false},
		{"compile", Compile, false},
		{"TEST", Test, false},
		{" runtime ", Runtime, false},
		{"assimilate", Assimilate, false},
		{"bogus", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseScope(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseScope(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errors.ErrCodeInvalidScope) {
				t.Errorf("ParseScope(%q) code = %v", tt.input, errors.GetCode(err))
			}
			if got != tt.want {
				t.Errorf("ParseScope(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestIncludeOnClasspath(t *testing.T) {
	tests := []struct {
		scope Scope
		dep   Scope
		want  bool
	}{
		{Compile, Compile, true},
		{Compile, Provided, true},
		{Compile, Runtime, false},
		{Compile, Test, false},
		{Compile, System, true},
		{Runtime, Compile, true},
		{Runtime, Provided, false},
		{Runtime, Runtime, true},
		{Test, Compile, true},
		{Test, Provided, true},
		{Test, Runtime, true},
		{Test, Test, true},
		{Test, Build, false},
		{Build, Build, true},
		{Build, Test, false},
		{Site, Site, true},
		{Import, Compile, false},
		{Compile, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.scope)+"/"+string(tt.dep), func(t *testing.T) {
			if got := tt.scope.IncludeOnClasspath(tt.dep); got != tt.want {
				t.Errorf("%s.IncludeOnClasspath(%s) = %v, want %v", tt.scope, tt.dep, got, tt.want)
			}
		})
	}
}

// The combined table reproduces Maven's documented visibility matrix: the
// row is the scope a direct dependency was declared with, the column the
// scope of its own dependency, and the cell the classpaths it reaches.
func TestTransitiveVisibility(t *testing.T) {
	tests := []struct {
		direct     Scope
		transitive Scope
		visibleOn  []Scope
	}{
		{Compile, Compile, []Scope{Compile, Runtime, Test}},
		{Compile, Runtime, []Scope{Runtime, Test}},
		{Compile, Test, nil},
		{Compile, Provided, nil},
		{Runtime, Compile, []Scope{Runtime, Test}},
		{Runtime, Runtime, []Scope{Runtime, Test}},
		{Test, Compile, []Scope{Test}},
		{Test, Runtime, []Scope{Test}},
		{Provided, Compile, []Scope{Compile, Test}},
	}

	classpaths := []Scope{Compile, Runtime, Test}
	for _, tt := range tests {
		t.Run(string(tt.direct)+"/"+string(tt.transitive), func(t *testing.T) {
			want := map[Scope]bool{}
			for _, s := range tt.visibleOn {
				want[s] = true
			}
			for _, cp := range classpaths {
				// the direct dependency must be on cp for its transitives to matter
				if !cp.IncludeOnClasspath(tt.direct) {
					if want[cp] {
						t.Fatalf("bad table: %s not visible on %s", tt.direct, cp)
					}
					continue
				}
				effective := tt.direct.TransitiveScope(tt.transitive)
				got := effective != "" && cp.IncludeOnClasspath(effective)
				if got != want[cp] {
					t.Errorf("%s->%s on %s classpath = %v, want %v (effective %q)",
						tt.direct, tt.transitive, cp, got, want[cp], effective)
				}
			}
		})
	}
}

func TestScopePredicates(t *testing.T) {
	if !Compile.IsDefault() || Test.IsDefault() {
		t.Error("IsDefault() wrong")
	}
	if !Import.IsMeta() || !Assimilate.IsMeta() || Compile.IsMeta() {
		t.Error("IsMeta() wrong")
	}
	if !Build.IsClasspath() || Provided.IsClasspath() {
		t.Error("IsClasspath() wrong")
	}
	if Scope("nope").IsValid() {
		t.Error("IsValid() = true for unknown scope")
	}
}
