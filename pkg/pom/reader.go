package pom

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

// Locator finds the POM file of a coordinate, fetching it if necessary.
// It returns an ARTIFACT_NOT_FOUND error when no repository has it.
type Locator interface {
	LocatePOM(ctx context.Context, dep *maven.Dependency) (string, error)
}

// LocatorFunc adapts a function to [Locator].
type LocatorFunc func(ctx context.Context, dep *maven.Dependency) (string, error)

// LocatePOM calls f.
func (f LocatorFunc) LocatePOM(ctx context.Context, dep *maven.Dependency) (string, error) {
	return f(ctx, dep)
}

// defaultCacheSize is the number of parsed POMs a Reader keeps.
const defaultCacheSize = 512

// Reader parses POM XML and resolves parent chains and imported management
// tables through a [Locator].
//
// Parsed files are kept in an LRU keyed by path and modification time;
// callers always receive a private copy. A POM read against a placeholder
// parent is not kept, so it is read again once the parent is available. A Reader is safe for concurrent use.
type Reader struct {
	locator Locator
	opts    Options
	logger  *log.Logger
	parsed  *lru.Cache[string, *POM]
}

// NewReader creates a reader. A nil locator disables parent and import
// resolution; parents then become placeholders.
func NewReader(locator Locator, opts Options) *Reader {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	parsed, _ := lru.New[string, *POM](defaultCacheSize)
	return &Reader{locator: locator, opts: opts, logger: opts.Logger, parsed: parsed}
}

// ReadFile reads the POM at path.
func (r *Reader) ReadFile(ctx context.Context, path string) (*POM, error) {
	return r.readFile(ctx, path, map[string]bool{})
}

// Read parses POM XML from data.
func (r *Reader) Read(ctx context.Context, data []byte) (*POM, error) {
	return r.read(ctx, data, "", map[string]bool{})
}

func (r *Reader) readFile(ctx context.Context, path string, visiting map[string]bool) (*POM, error) {
	if visiting["file:"+path] {
		return nil, errors.New(errors.ErrCodeCircularDependency, "%s includes itself", path)
	}
	visiting["file:"+path] = true
	defer delete(visiting, "file:"+path)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeArtifactNotFound, err, "pom %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "stat %s", path)
	}
	key := fmt.Sprintf("%s@%d", path, info.ModTime().UnixNano())
	if p, ok := r.parsed.Get(key); ok {
		return p.Clone(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "read %s", path)
	}
	p, err := r.read(ctx, data, path, visiting)
	if err != nil {
		return nil, err
	}
	if !p.degraded {
		r.parsed.Add(key, p.Clone())
	}
	return p, nil
}

func (r *Reader) read(ctx context.Context, data []byte, source string, visiting map[string]bool) (*POM, error) {
	var doc projectXML
	if err := xml.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		if source == "" {
			source = "pom"
		}
		return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "parse %s", source)
	}

	p := NewWithOptions(r.opts)
	p.GroupID = strings.TrimSpace(doc.GroupID)
	p.ArtifactID = strings.TrimSpace(doc.ArtifactID)
	p.Version = strings.TrimSpace(doc.Version)
	p.Classifier = strings.TrimSpace(doc.Classifier)
	if pk := strings.TrimSpace(doc.Packaging); pk != "" {
		p.Packaging = pk
	}
	p.Name = strings.TrimSpace(doc.Name)
	p.Description = strings.TrimSpace(doc.Description)
	p.URL = strings.TrimSpace(doc.URL)
	p.IssuesURL = strings.TrimSpace(doc.IssueManagement.URL)
	for _, l := range doc.Licenses {
		p.Licenses = append(p.Licenses, License{Name: strings.TrimSpace(l.Name), URL: strings.TrimSpace(l.URL)})
	}
	for _, prop := range doc.Properties.Entries {
		p.SetProperty(prop.Name, strings.TrimSpace(prop.Value))
	}

	var parent *POM
	if doc.Parent != nil {
		p.Parent = maven.NewDependency(strings.TrimSpace(doc.Parent.GroupID),
			strings.TrimSpace(doc.Parent.ArtifactID), strings.TrimSpace(doc.Parent.Version))
		p.Parent.Type = maven.DefaultPOMType
		parent = r.readParent(ctx, p.Parent, visiting)
		p.degraded = parent.degraded
		p.inheritProperties(parent)
	}

	id := p.AsDependency().Coordinates()
	visiting[id] = true
	defer delete(visiting, id)

	for _, d := range doc.DependencyManagement.Dependencies {
		dep := d.toDependency()
		scope, _ := maven.ParseScope(d.Scope)
		if scope == maven.Import && dep.IsPOM() {
			if err := r.importManaged(ctx, p, dep, visiting); err != nil {
				return nil, err
			}
			continue
		}
		if err := p.AddManagedDependency(dep, managedScope(d.Scope)); err != nil {
			return nil, err
		}
	}

	// parent management applies to this POM's declarations, own entries first
	p.ImportManagedDependencies(parent)

	for _, d := range doc.Dependencies {
		// an empty scope lets the managed scope apply
		var scope maven.Scope
		if raw := strings.TrimSpace(d.Scope); raw != "" {
			parsed, err := maven.ParseScope(raw)
			if err != nil {
				r.logger.Warn("unknown scope, using default", "pom", id, "dependency", d.GroupID+":"+d.ArtifactID, "scope", raw)
			}
			scope = parsed
		}
		if _, err := p.AddDependency(d.toDependency(), scope); err != nil {
			return nil, err
		}
	}

	p.Inherit(parent)
	return p, nil
}

// readParent resolves and reads a parent. Any failure, including a cycle,
// yields an empty placeholder with the parent's coordinates so resolution
// can continue.
func (r *Reader) readParent(ctx context.Context, coord *maven.Dependency, visiting map[string]bool) *POM {
	placeholder := func() *POM {
		p := NewWithOptions(r.opts)
		p.GroupID, p.ArtifactID, p.Version = coord.GroupID, coord.ArtifactID, coord.Version
		p.Packaging = maven.DefaultPOMType
		p.degraded = r.locator != nil
		return p
	}
	if r.locator == nil {
		return placeholder()
	}
	if visiting[coord.Coordinates()] {
		r.logger.Warn("circular parent chain", "parent", coord.Coordinates())
		return placeholder()
	}
	path, err := r.locator.LocatePOM(ctx, coord)
	if err != nil {
		if !errors.IsNotFound(err) {
			r.logger.Warn("parent pom unavailable", "parent", coord.Coordinates(), "err", err)
		} else {
			r.logger.Debug("parent pom not materialized", "parent", coord.Coordinates())
		}
		return placeholder()
	}
	parent, err := r.readFile(ctx, path, visiting)
	if err != nil {
		r.logger.Warn("malformed parent pom", "parent", coord.Coordinates(), "err", err)
		return placeholder()
	}
	return parent
}

// importManaged merges the management table of a scope=import BOM.
func (r *Reader) importManaged(ctx context.Context, p *POM, bom *maven.Dependency, visiting map[string]bool) error {
	var err error
	if bom.GroupID, err = p.Resolve(bom.GroupID); err != nil {
		return err
	}
	if bom.Version, err = p.Resolve(bom.Version); err != nil {
		return err
	}
	if r.locator == nil || visiting[bom.Coordinates()] {
		return nil
	}
	path, err := r.locator.LocatePOM(ctx, bom)
	if err != nil {
		if errors.IsFatal(err) {
			return err
		}
		r.logger.Warn("cannot import managed dependencies", "pom", p.Coordinates(), "bom", bom.Coordinates(), "err", err)
		return nil
	}
	imported, err := r.readFile(ctx, path, visiting)
	if err != nil {
		r.logger.Warn("malformed bom", "bom", bom.Coordinates(), "err", err)
		return nil
	}
	p.ImportManagedDependencies(imported)
	return nil
}

func managedScope(s string) maven.Scope {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	scope, err := maven.ParseScope(s)
	if err != nil {
		return ""
	}
	return scope
}

type projectXML struct {
	XMLName              xml.Name        `xml:"project"`
	Parent               *parentXML      `xml:"parent"`
	GroupID              string          `xml:"groupId"`
	ArtifactID           string          `xml:"artifactId"`
	Version              string          `xml:"version"`
	Classifier           string          `xml:"classifier"`
	Packaging            string          `xml:"packaging"`
	Name                 string          `xml:"name"`
	Description          string          `xml:"description"`
	URL                  string          `xml:"url"`
	Licenses             []licenseXML    `xml:"licenses>license"`
	IssueManagement      issueXML        `xml:"issueManagement"`
	Properties           propertiesXML   `xml:"properties"`
	DependencyManagement dependencyMgmt  `xml:"dependencyManagement"`
	Dependencies         []dependencyXML `xml:"dependencies>dependency"`
}

type parentXML struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type licenseXML struct {
	Name string `xml:"name"`
	URL  string `xml:"url"`
}

type issueXML struct {
	System string `xml:"system,omitempty"`
	URL    string `xml:"url,omitempty"`
}

type dependencyMgmt struct {
	Dependencies []dependencyXML `xml:"dependencies>dependency"`
}

type dependencyXML struct {
	GroupID    string         `xml:"groupId"`
	ArtifactID string         `xml:"artifactId"`
	Version    string         `xml:"version,omitempty"`
	Classifier string         `xml:"classifier,omitempty"`
	Type       string         `xml:"type,omitempty"`
	Scope      string         `xml:"scope,omitempty"`
	SystemPath string         `xml:"systemPath,omitempty"`
	Optional   string         `xml:"optional,omitempty"`
	Exclusions []exclusionXML `xml:"exclusions>exclusion,omitempty"`
}

type exclusionXML struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

func (d dependencyXML) toDependency() *maven.Dependency {
	dep := maven.NewDependency(strings.TrimSpace(d.GroupID), strings.TrimSpace(d.ArtifactID), strings.TrimSpace(d.Version))
	dep.Classifier = strings.TrimSpace(d.Classifier)
	if t := strings.TrimSpace(d.Type); t != "" {
		dep.Type = t
	}
	dep.Optional = strings.EqualFold(strings.TrimSpace(d.Optional), "true")
	dep.Path = strings.TrimSpace(d.SystemPath)
	for _, ex := range d.Exclusions {
		g, a := strings.TrimSpace(ex.GroupID), strings.TrimSpace(ex.ArtifactID)
		switch {
		case g == "":
			continue
		case a == "" || a == "*":
			dep.Exclusions = append(dep.Exclusions, g)
		default:
			dep.Exclusions = append(dep.Exclusions, g+":"+a)
		}
	}
	return dep
}

// propertiesXML captures arbitrary <properties> children.
type propertiesXML struct {
	Entries []propertyXML
}

type propertyXML struct {
	Name  string
	Value string
}

func (p *propertiesXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var v string
			if err := d.DecodeElement(&v, &t); err != nil {
				return err
			}
			p.Entries = append(p.Entries, propertyXML{Name: t.Name.Local, Value: v})
		case xml.EndElement:
			if t.Name == start.Name {
				return nil
			}
		}
	}
}

func (p propertiesXML) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	if len(p.Entries) == 0 {
		return nil
	}
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	for _, prop := range p.Entries {
		if err := e.EncodeElement(prop.Value, xml.StartElement{Name: xml.Name{Local: prop.Name}}); err != nil {
			return err
		}
	}
	return e.EncodeToken(start.End())
}
