package maven

import (
	"strings"

	"github.com/matzehuels/moxie/pkg/errors"
)

// Scope is a usage context that controls classpath visibility and how
// dependencies propagate transitively.
type Scope string

// Dependency scopes. Compile is the default.
const (
	Compile    Scope = "compile"
	Provided   Scope = "provided"
	Runtime    Scope = "runtime"
	Test       Scope = "test"
	System     Scope = "system"
	Import     Scope = "import"
	Assimilate Scope = "assimilate"
	Build      Scope = "build"
	Site       Scope = "site"
)

// DefaultScope is applied when a declaration omits its scope.
const DefaultScope = Compile

// Scopes lists every scope in resolution order.
var Scopes = []Scope{Compile, Provided, Runtime, Test, System, Import, Assimilate, Build, Site}

// ClasspathScopes lists the scopes that produce a classpath and are solved by a build.
var ClasspathScopes = []Scope{Compile, Runtime, Test, Build}

// ParseScope converts a scope keyword to a Scope. Matching is case-insensitive
// and an empty keyword yields [DefaultScope].
func ParseScope(s string) (Scope, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultScope, nil
	}
	for _, sc := range Scopes {
		if string(sc) == s {
			return sc, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidScope, "unknown scope %q", s)
}

// IsValid reports whether s is one of the known scopes.
func (s Scope) IsValid() bool {
	for _, sc := range Scopes {
		if sc == s {
			return true
		}
	}
	return false
}

// IsDefault reports whether s is the default scope.
func (s Scope) IsDefault() bool { return s == DefaultScope }

// IsClasspath reports whether s is solved into a classpath.
func (s Scope) IsClasspath() bool {
	for _, sc := range ClasspathScopes {
		if sc == s {
			return true
		}
	}
	return false
}

// IsMeta reports whether s only instructs the reader (import, assimilate)
// rather than declaring a real dependency.
func (s Scope) IsMeta() bool { return s == Import || s == Assimilate }

func (s Scope) String() string { return string(s) }

// IncludeOnClasspath reports whether a dependency declared with dep scope
// belongs on the classpath of s. System and compile dependencies are always
// visible on a classpath scope.
func (s Scope) IncludeOnClasspath(dep Scope) bool {
	if dep == "" {
		return false
	}
	switch s {
	case Compile, Provided:
		return dep == Compile || dep == Provided || dep == System
	case Runtime:
		return dep == Compile || dep == Runtime || dep == System
	case Test:
		return dep == Compile || dep == Provided || dep == Runtime || dep == Test || dep == System
	case Build:
		return dep == Compile || dep == Build || dep == System
	case Site:
		return dep == Compile || dep == Site || dep == System
	}
	return false
}

// TransitiveScope maps the scope a transitive dependency was declared with
// to its effective scope when reached through a dependency of scope s.
// An empty result means the transitive dependency does not propagate.
//
//	          | compile  provided runtime  test
//	compile   | compile  -        runtime  -
//	provided  | provided -        provided -
//	runtime   | runtime  -        runtime  -
//	test      | test     -        test     -
//
// Build and site behave like test: whatever propagates lands in their own scope.
func (s Scope) TransitiveScope(declared Scope) Scope {
	if declared == "" {
		declared = DefaultScope
	}
	if declared != Compile && declared != Runtime {
		return ""
	}
	switch s {
	case Compile:
		return declared
	case Provided:
		return Provided
	case Runtime:
		return Runtime
	case Test, Build, Site:
		return s
	}
	return ""
}
