package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/httputil"
	"github.com/matzehuels/moxie/pkg/maven"
	"github.com/matzehuels/moxie/pkg/pom"
	"github.com/matzehuels/moxie/pkg/repository"
	"github.com/matzehuels/moxie/pkg/solver"
)

// DescriptorFile is the project descriptor looked up in the working
// directory.
const DescriptorFile = "moxie.toml"

// Descriptor is a decoded moxie.toml.
//
// Dependencies are one line each:
//
//	[scope] group:artifact:version[:classifier][@type] [optional] [-exclusion ...] [path=/file.jar]
//
// The scope defaults to compile. Exclusions are "group" or "group:artifact".
type Descriptor struct {
	GroupID     string            `toml:"groupId"`
	ArtifactID  string            `toml:"artifactId"`
	Version     string            `toml:"version"`
	Classifier  string            `toml:"classifier"`
	Packaging   string            `toml:"packaging"`
	Name        string            `toml:"name"`
	Description string            `toml:"description"`
	URL         string            `toml:"url"`
	IssuesURL   string            `toml:"issues"`
	Licenses    []License         `toml:"licenses"`
	Parent      string            `toml:"parent"`
	Properties  map[string]string `toml:"properties"`

	Dependencies []string `toml:"dependencies"`
	// Managed lines are "coordinate [scope]".
	Managed    []string `toml:"managed"`
	Exclusions []string `toml:"exclusions"`

	// Repositories are references in search order: a well-known ID, the ID
	// of a [[repository]] definition, or a URL.
	Repositories []string                `toml:"repositories"`
	Definitions  []repository.Repository `toml:"repository"`
	Proxies      []httputil.Proxy        `toml:"proxies"`
	Overrides    []OverrideSpec          `toml:"overrides"`

	path    string
	modTime time.Time
}

// License is a descriptor license entry.
type License struct {
	Name string `toml:"name"`
	URL  string `toml:"url"`
}

// OverrideSpec replaces the dependencies of one coordinate, optionally for
// one scope only.
type OverrideSpec struct {
	Coordinate   string   `toml:"coordinate"`
	Scope        string   `toml:"scope"`
	Dependencies []string `toml:"dependencies"`
}

// ParentFunc loads a parent POM.
type ParentFunc func(ctx context.Context, coord *maven.Dependency) (*pom.POM, error)

// LoadDescriptor reads and decodes a descriptor file.
func LoadDescriptor(path string) (*Descriptor, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "descriptor path %s", path)
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeArtifactNotFound, err, "no descriptor at %s", abs)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", abs)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "stat %s", abs)
	}
	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, errors.Wrap(errors.GetCode(err), err, "%s", abs)
	}
	d.path = abs
	d.modTime = info.ModTime()
	return d, nil
}

// ParseDescriptor decodes descriptor TOML.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	md, err := toml.Decode(string(data), &d)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "parse descriptor")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.New(errors.ErrCodeMalformedDescriptor, "unknown descriptor key %q", undecoded[0].String())
	}
	return &d, nil
}

// Path returns the absolute file the descriptor was loaded from, or "".
func (d *Descriptor) Path() string { return d.path }

// ModTime returns the descriptor file's modification time.
func (d *Descriptor) ModTime() time.Time { return d.modTime }

// ParseDependencyLine parses one dependency line into its scope and
// dependency.
func ParseDependencyLine(line string) (maven.Scope, *maven.Dependency, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, errors.New(errors.ErrCodeInvalidCoordinate, "empty dependency line")
	}
	scope := maven.DefaultScope
	if !strings.Contains(fields[0], ":") {
		s, err := maven.ParseScope(fields[0])
		if err != nil {
			return "", nil, err
		}
		scope = s
		fields = fields[1:]
	}
	if len(fields) == 0 {
		return "", nil, errors.New(errors.ErrCodeInvalidCoordinate, "dependency line %q has no coordinate", line)
	}
	dep, err := maven.ParseDependency(fields[0])
	if err != nil {
		return "", nil, err
	}
	for _, f := range fields[1:] {
		switch {
		case f == "optional":
			dep.Optional = true
		case strings.HasPrefix(f, "-") && len(f) > 1:
			dep.Exclusions = append(dep.Exclusions, f[1:])
		case strings.HasPrefix(f, "path="):
			dep.Path = strings.TrimPrefix(f, "path=")
		default:
			return "", nil, errors.New(errors.ErrCodeInvalidCoordinate, "unexpected %q in dependency line %q", f, line)
		}
	}
	if scope == maven.System && dep.Path == "" {
		return "", nil, errors.New(errors.ErrCodeInvalidCoordinate, "system dependency %s needs path=", dep.Coordinates())
	}
	if scope != maven.System && dep.Path != "" {
		return "", nil, errors.New(errors.ErrCodeInvalidCoordinate, "path= is only valid for system dependencies")
	}
	return scope, dep, nil
}

// POM builds the project model. When the descriptor names a parent and
// parent is not nil, the parent's properties apply to the declarations and
// the rest of it is inherited afterwards.
func (d *Descriptor) POM(ctx context.Context, parent ParentFunc, opts pom.Options) (*pom.POM, error) {
	p := pom.NewWithOptions(opts)
	p.GroupID = d.GroupID
	p.ArtifactID = d.ArtifactID
	p.Version = d.Version
	p.Classifier = d.Classifier
	if d.Packaging != "" {
		p.Packaging = d.Packaging
	}
	p.Name = d.Name
	p.Description = d.Description
	p.URL = d.URL
	p.IssuesURL = d.IssuesURL
	for _, l := range d.Licenses {
		p.Licenses = append(p.Licenses, pom.License{Name: l.Name, URL: l.URL})
	}
	for k, v := range d.Properties {
		p.SetProperty(k, v)
	}
	p.Exclusions = append(p.Exclusions, d.Exclusions...)

	var parentPOM *pom.POM
	if d.Parent != "" {
		coord, err := maven.ParseDependency(d.Parent)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "parent")
		}
		coord.Type = maven.DefaultPOMType
		p.Parent = coord
		if parent != nil {
			parentPOM, err = parent(ctx, coord)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeUnresolvedDependency, err, "parent %s", coord.Coordinates())
			}
			inheritProperties(p, parentPOM)
		}
	}

	for _, line := range d.Managed {
		fields := strings.Fields(line)
		if len(fields) == 0 || len(fields) > 2 {
			return nil, errors.New(errors.ErrCodeMalformedDescriptor, "managed entry %q", line)
		}
		dep, err := maven.ParseDependency(fields[0])
		if err != nil {
			return nil, err
		}
		var scope maven.Scope
		if len(fields) == 2 {
			if scope, err = maven.ParseScope(fields[1]); err != nil {
				return nil, err
			}
		}
		if err := p.AddManagedDependency(dep, scope); err != nil {
			return nil, err
		}
	}

	for _, line := range d.Dependencies {
		scope, dep, err := ParseDependencyLine(line)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "dependency %q", line)
		}
		if _, err := p.AddDependency(dep, scope); err != nil {
			return nil, err
		}
	}

	p.Inherit(parentPOM)
	if err := p.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "project")
	}
	return p, nil
}

// inheritProperties makes the parent's identity and properties available
// before the declarations are substituted.
func inheritProperties(p, parent *pom.POM) {
	if parent == nil {
		return
	}
	if p.GroupID == "" {
		p.GroupID = parent.GroupID
	}
	if p.Version == "" {
		p.Version = parent.Version
	}
	for _, k := range parent.Properties() {
		if _, ok := p.Property(k); ok {
			continue
		}
		v, _ := parent.Property(k)
		p.SetProperty(k, v)
	}
}

// SolverOverrides converts the [[overrides]] tables.
func (d *Descriptor) SolverOverrides(opts pom.Options) ([]solver.Override, error) {
	var out []solver.Override
	for _, o := range d.Overrides {
		coord, err := maven.ParseDependency(o.Coordinate)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "override")
		}
		var scope maven.Scope
		if o.Scope != "" {
			if scope, err = maven.ParseScope(o.Scope); err != nil {
				return nil, err
			}
		}
		p := pom.NewWithOptions(opts)
		p.GroupID, p.ArtifactID, p.Version, p.Classifier = coord.GroupID, coord.ArtifactID, coord.Version, coord.Classifier
		for _, line := range o.Dependencies {
			s, dep, err := ParseDependencyLine(line)
			if err != nil {
				return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "override %s", o.Coordinate)
			}
			if _, err := p.AddDependency(dep, s); err != nil {
				return nil, err
			}
		}
		out = append(out, solver.Override{Scope: scope, POM: p})
	}
	return out, nil
}

// ResolveRepositories turns the descriptor's repository references into
// definitions. IDs are looked up in the descriptor's own definitions, then
// in known, then among the well-known repositories.
func (d *Descriptor) ResolveRepositories(known []repository.Repository) ([]repository.Repository, error) {
	byID := make(map[string]repository.Repository)
	for _, r := range known {
		byID[r.ID] = r
	}
	for _, r := range d.Definitions {
		byID[r.ID] = r
	}
	var out []repository.Repository
	for _, ref := range d.Repositories {
		if r, ok := byID[ref]; ok {
			out = append(out, r)
			continue
		}
		r, err := repository.Lookup(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
