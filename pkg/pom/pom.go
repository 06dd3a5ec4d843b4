// Package pom models Maven project descriptors: identity, properties with
// ${...} substitution, managed versions and scopes, per-scope dependency
// declarations and parent inheritance.
//
// A POM is constructed empty with [New], populated by a [Reader] or
// programmatically, and merged with its parent through [POM.Inherit].
// Existing keys in the child always win.
package pom

import (
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

// License is a project license as declared in the descriptor.
type License struct {
	Name string
	URL  string
}

// Options control property resolution and diagnostics.
type Options struct {
	// Strict turns unresolved ${...} tokens into MALFORMED_DESCRIPTOR errors.
	// The default leaves them in place and logs a warning.
	Strict bool
	// SystemProperties are consulted last, after env.* lookups.
	SystemProperties map[string]string
	// LookupEnv resolves env.* keys. Nil means os.LookupEnv.
	LookupEnv func(string) (string, bool)
	Logger    *log.Logger
}

type declaration struct {
	scope maven.Scope
	dep   *maven.Dependency
}

// POM is an in-memory project descriptor.
//
// Property keys and management ids are matched case-insensitively and
// case-sensitively respectively. A POM is not safe for concurrent mutation.
type POM struct {
	GroupID     string
	ArtifactID  string
	Version     string
	Classifier  string
	Packaging   string
	Name        string
	Description string
	URL         string
	IssuesURL   string
	Licenses    []License

	// Parent is the parent coordinate, nil when the POM has none.
	Parent *maven.Dependency

	// Exclusions filter every dependency added to this POM.
	Exclusions []string

	properties      map[string]string // lower-cased key -> value
	propertyNames   map[string]string // lower-cased key -> declared key
	managedVersions map[string]string
	managedScopes   map[string]maven.Scope
	managedOrder    []string
	declared        []declaration

	// degraded is set when a parent could not be read and a placeholder
	// stood in for it.
	degraded bool

	opts Options
}

// New returns an empty POM with default options.
func New() *POM {
	return NewWithOptions(Options{})
}

// NewWithOptions returns an empty POM using opts for property resolution.
func NewWithOptions(opts Options) *POM {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.LookupEnv == nil {
		opts.LookupEnv = os.LookupEnv
	}
	return &POM{
		Packaging:       maven.DefaultType,
		properties:      make(map[string]string),
		propertyNames:   make(map[string]string),
		managedVersions: make(map[string]string),
		managedScopes:   make(map[string]maven.Scope),
		opts:            opts,
	}
}

// ManagementID returns "group:artifact" of the project itself.
func (p *POM) ManagementID() string {
	return p.GroupID + ":" + p.ArtifactID
}

// Coordinates returns "group:artifact:version[:classifier]".
func (p *POM) Coordinates() string {
	return p.AsDependency().Coordinates()
}

// AsDependency returns the project's own coordinate.
func (p *POM) AsDependency() *maven.Dependency {
	dep := maven.NewDependency(p.GroupID, p.ArtifactID, p.Version)
	dep.Classifier = p.Classifier
	if p.Packaging != "" && p.Packaging != "bundle" {
		dep.Type = p.Packaging
	}
	return dep
}

// IsPOMProject reports whether the project only aggregates (packaging pom).
func (p *POM) IsPOMProject() bool { return p.Packaging == maven.DefaultPOMType }

// ManagedVersion returns the managed version for a management id.
func (p *POM) ManagedVersion(managementID string) (string, bool) {
	v, ok := p.managedVersions[managementID]
	return v, ok
}

// ManagedScope returns the managed scope for a management id.
func (p *POM) ManagedScope(managementID string) (maven.Scope, bool) {
	s, ok := p.managedScopes[managementID]
	return s, ok
}

// ManagedDependencies returns the management table in declaration order.
func (p *POM) ManagedDependencies() []*maven.Dependency {
	out := make([]*maven.Dependency, 0, len(p.managedOrder))
	for _, id := range p.managedOrder {
		g, a, _ := strings.Cut(id, ":")
		out = append(out, maven.NewDependency(g, a, p.managedVersions[id]))
	}
	return out
}

// AddManagedDependency records default version and scope for dep's
// management id. The first declaration wins.
func (p *POM) AddManagedDependency(dep *maven.Dependency, scope maven.Scope) error {
	group, err := p.Resolve(dep.GroupID)
	if err != nil {
		return err
	}
	version, err := p.Resolve(dep.Version)
	if err != nil {
		return err
	}
	id := group + ":" + dep.ArtifactID
	if _, ok := p.managedVersions[id]; !ok {
		p.managedOrder = append(p.managedOrder, id)
		p.managedVersions[id] = version
	}
	if scope != "" {
		if _, ok := p.managedScopes[id]; !ok {
			p.managedScopes[id] = scope
		}
	}
	return nil
}

// AddDependency declares dep under scope.
//
// Group, version and classifier are substituted through the property table,
// a missing version falls back to the managed version, and the type defaults
// to jar. An empty scope falls back to the managed scope, else compile.
// It reports false without error when dep refers to the project itself,
// is filtered by the POM-level exclusions, or is already declared.
func (p *POM) AddDependency(dep *maven.Dependency, scope maven.Scope) (bool, error) {
	if dep == nil {
		return false, nil
	}
	d := dep.Clone()
	var err error
	if d.GroupID, err = p.Resolve(d.GroupID); err != nil {
		return false, err
	}
	if d.ArtifactID, err = p.Resolve(d.ArtifactID); err != nil {
		return false, err
	}
	if d.Classifier, err = p.Resolve(d.Classifier); err != nil {
		return false, err
	}
	if d.Version == "" {
		d.Version = p.managedVersions[d.ManagementID()]
	}
	if d.Version, err = p.Resolve(d.Version); err != nil {
		return false, err
	}
	if d.Type == "" {
		d.Type = maven.DefaultType
	}
	if d.Kind == "" {
		d.Kind = maven.KindMaven
	}

	if d.ManagementID() == p.ManagementID() {
		p.opts.Logger.Warn("dropping self dependency", "pom", p.Coordinates(), "dependency", d.Coordinates())
		return false, nil
	}
	if maven.MatchesExclusion(p.Exclusions, d) {
		p.opts.Logger.Debug("excluded by pom", "pom", p.Coordinates(), "dependency", d.Coordinates())
		return false, nil
	}

	if scope == "" {
		if ms, ok := p.managedScopes[d.ManagementID()]; ok {
			scope = ms
		} else {
			scope = maven.DefaultScope
		}
	}
	if scope == maven.System {
		d.Kind = maven.KindSystem
		if d.Path, err = p.Resolve(d.Path); err != nil {
			return false, err
		}
	}

	for _, decl := range p.declared {
		if decl.scope == scope && decl.dep.Equal(d) {
			return false, nil
		}
	}
	p.declared = append(p.declared, declaration{scope: scope, dep: d})
	return true, nil
}

// Declared returns copies of the dependencies declared exactly under scope,
// in declaration order.
func (p *POM) Declared(scope maven.Scope) []*maven.Dependency {
	var out []*maven.Dependency
	for _, decl := range p.declared {
		if decl.scope == scope {
			out = append(out, decl.dep.Clone())
		}
	}
	return out
}

// DeclaredScopes returns the scopes that have at least one declaration, in
// [maven.Scopes] order.
func (p *POM) DeclaredScopes() []maven.Scope {
	present := map[maven.Scope]bool{}
	for _, decl := range p.declared {
		present[decl.scope] = true
	}
	var out []maven.Scope
	for _, s := range maven.Scopes {
		if present[s] {
			out = append(out, s)
		}
	}
	return out
}

// RemoveScope drops every declaration under scope.
func (p *POM) RemoveScope(scope maven.Scope) {
	kept := p.declared[:0]
	for _, decl := range p.declared {
		if decl.scope != scope {
			kept = append(kept, decl)
		}
	}
	p.declared = kept
}

// Dependencies returns the dependencies visible on the classpath of scope
// when this POM sits at the given ring.
//
// At ring 0 a declaration is included when scope's classpath includes its
// declared scope. Past ring 0 the declared scope is first mapped through
// [maven.Scope.TransitiveScope], and optional dependencies are skipped.
// Every returned dependency is a copy with Ring set to ring.
func (p *POM) Dependencies(scope maven.Scope, ring int) []*maven.Dependency {
	var out []*maven.Dependency
	for _, decl := range p.declared {
		if decl.scope.IsMeta() {
			continue
		}
		effective := decl.scope
		if ring > 0 {
			if decl.dep.Optional {
				continue
			}
			effective = scope.TransitiveScope(decl.scope)
			if effective == "" {
				continue
			}
		}
		if !scope.IncludeOnClasspath(effective) {
			continue
		}
		d := decl.dep.Clone()
		d.Ring = ring
		out = append(out, d)
	}
	return out
}

// Inherit merges parent into p without overwriting anything p already
// defines: identity defaults, properties, management tables, exclusions and
// dependency declarations whose mediation id p does not declare.
func (p *POM) Inherit(parent *POM) {
	if parent == nil {
		return
	}
	p.inheritProperties(parent)
	if p.Description == "" {
		p.Description = parent.Description
	}
	if p.URL == "" {
		p.URL = parent.URL
	}
	if p.IssuesURL == "" {
		p.IssuesURL = parent.IssuesURL
	}
	if len(p.Licenses) == 0 {
		p.Licenses = append([]License(nil), parent.Licenses...)
	}
	p.ImportManagedDependencies(parent)

	for _, ex := range parent.Exclusions {
		if !containsString(p.Exclusions, ex) {
			p.Exclusions = append(p.Exclusions, ex)
		}
	}

	own := map[string]bool{}
	for _, decl := range p.declared {
		own[decl.dep.MediationID()] = true
	}
	for _, decl := range parent.declared {
		if own[decl.dep.MediationID()] {
			continue
		}
		if decl.dep.ManagementID() == p.ManagementID() {
			continue
		}
		if maven.MatchesExclusion(p.Exclusions, decl.dep) {
			p.opts.Logger.Debug("excluded by pom", "pom", p.Coordinates(), "dependency", decl.dep.Coordinates())
			continue
		}
		p.declared = append(p.declared, declaration{scope: decl.scope, dep: decl.dep.Clone()})
	}
}

// inheritProperties copies identity defaults and properties only, so a
// reader can substitute child declarations before the full merge.
func (p *POM) inheritProperties(parent *POM) {
	if p.GroupID == "" {
		p.GroupID = parent.GroupID
	}
	if p.Version == "" {
		p.Version = parent.Version
	}
	for k, v := range parent.properties {
		if _, ok := p.properties[k]; !ok {
			p.properties[k] = v
			p.propertyNames[k] = parent.propertyNames[k]
		}
	}
}

// ImportManagedDependencies merges other's management tables into p.
// Entries p already manages are kept.
func (p *POM) ImportManagedDependencies(other *POM) {
	if other == nil {
		return
	}
	for _, id := range other.managedOrder {
		if _, ok := p.managedVersions[id]; !ok {
			p.managedVersions[id] = other.managedVersions[id]
			p.managedOrder = append(p.managedOrder, id)
		}
	}
	for id, s := range other.managedScopes {
		if _, ok := p.managedScopes[id]; !ok {
			p.managedScopes[id] = s
		}
	}
}

// ApplyManagedVersions fills in the version of every declaration that has
// none from the management table. Declarations made before an import
// picked up its versions this way.
func (p *POM) ApplyManagedVersions() {
	for _, decl := range p.declared {
		if decl.dep.Version != "" {
			continue
		}
		if v, ok := p.managedVersions[decl.dep.ManagementID()]; ok {
			decl.dep.Version = v
		}
	}
}

// Assimilate declares other's dependencies on p as if they had been written
// here, keeping their scopes. Meta scopes are not carried over.
func (p *POM) Assimilate(other *POM) error {
	if other == nil {
		return nil
	}
	p.ImportManagedDependencies(other)
	for _, decl := range other.declared {
		if decl.scope.IsMeta() {
			continue
		}
		if _, err := p.AddDependency(decl.dep, decl.scope); err != nil {
			return err
		}
	}
	return nil
}

// Clone returns a deep copy of p.
func (p *POM) Clone() *POM {
	c := *p
	c.Licenses = append([]License(nil), p.Licenses...)
	c.Exclusions = append([]string(nil), p.Exclusions...)
	if p.Parent != nil {
		c.Parent = p.Parent.Clone()
	}
	c.properties = cloneMap(p.properties)
	c.propertyNames = cloneMap(p.propertyNames)
	c.managedVersions = cloneMap(p.managedVersions)
	c.managedScopes = make(map[string]maven.Scope, len(p.managedScopes))
	for k, v := range p.managedScopes {
		c.managedScopes[k] = v
	}
	c.managedOrder = append([]string(nil), p.managedOrder...)
	c.declared = make([]declaration, len(p.declared))
	for i, decl := range p.declared {
		c.declared[i] = declaration{scope: decl.scope, dep: decl.dep.Clone()}
	}
	return &c
}

// Validate checks the identity a project descriptor must carry.
func (p *POM) Validate() error {
	if err := errors.ValidateCoordinatePart("groupId", p.GroupID); err != nil {
		return err
	}
	if err := errors.ValidateCoordinatePart("artifactId", p.ArtifactID); err != nil {
		return err
	}
	return nil
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
