package pom

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

const (
	pomNamespace      = "http://maven.apache.org/POM/4.0.0"
	pomSchemaInstance = "http://www.w3.org/2001/XMLSchema-instance"
	pomSchemaLocation = "http://maven.apache.org/POM/4.0.0 http://maven.apache.org/maven-v4_0_0.xsd"
)

type writeProjectXML struct {
	XMLName              xml.Name           `xml:"project"`
	Xmlns                string             `xml:"xmlns,attr"`
	XmlnsXSI             string             `xml:"xmlns:xsi,attr"`
	SchemaLocation       string             `xml:"xsi:schemaLocation,attr"`
	ModelVersion         string             `xml:"modelVersion"`
	Parent               *parentXML         `xml:"parent,omitempty"`
	GroupID              string             `xml:"groupId"`
	ArtifactID           string             `xml:"artifactId"`
	Version              string             `xml:"version"`
	Packaging            string             `xml:"packaging,omitempty"`
	Name                 string             `xml:"name,omitempty"`
	Description          string             `xml:"description,omitempty"`
	URL                  string             `xml:"url,omitempty"`
	Licenses             []licenseXML       `xml:"licenses>license,omitempty"`
	IssueManagement      *issueXML          `xml:"issueManagement,omitempty"`
	Properties           propertiesXML      `xml:"properties"`
	DependencyManagement *writeDependencies `xml:"dependencyManagement,omitempty"`
	Dependencies         []dependencyXML    `xml:"dependencies>dependency,omitempty"`
}

type writeDependencies struct {
	Dependencies []dependencyXML `xml:"dependencies>dependency"`
}

// mavenScopes are the scopes a Maven 4.0.0 descriptor understands. Build and
// site dependencies only matter to this resolver and are not published.
var mavenScopes = map[maven.Scope]bool{
	maven.Compile:  true,
	maven.Provided: true,
	maven.Runtime:  true,
	maven.Test:     true,
	maven.System:   true,
	maven.Import:   true,
}

// WriteXML writes p as a Maven 4.0.0 project descriptor.
func (p *POM) WriteXML(w io.Writer) error {
	doc := writeProjectXML{
		Xmlns:          pomNamespace,
		XmlnsXSI:       pomSchemaInstance,
		SchemaLocation: pomSchemaLocation,
		ModelVersion:   "4.0.0",
		GroupID:        p.GroupID,
		ArtifactID:     p.ArtifactID,
		Version:        p.Version,
		Name:           p.Name,
		Description:    p.Description,
		URL:            p.URL,
	}
	if p.Packaging != "" && p.Packaging != maven.DefaultType {
		doc.Packaging = p.Packaging
	}
	if p.Parent != nil {
		doc.Parent = &parentXML{GroupID: p.Parent.GroupID, ArtifactID: p.Parent.ArtifactID, Version: p.Parent.Version}
	}
	for _, l := range p.Licenses {
		doc.Licenses = append(doc.Licenses, licenseXML{Name: l.Name, URL: l.URL})
	}
	if p.IssuesURL != "" {
		doc.IssueManagement = &issueXML{URL: p.IssuesURL}
	}
	for _, k := range sortedKeys(p.properties) {
		doc.Properties.Entries = append(doc.Properties.Entries, propertyXML{Name: p.propertyNames[k], Value: p.properties[k]})
	}

	if len(p.managedOrder) > 0 {
		mgmt := &writeDependencies{}
		for _, id := range p.managedOrder {
			g, a, _ := strings.Cut(id, ":")
			d := dependencyXML{GroupID: g, ArtifactID: a, Version: p.managedVersions[id]}
			if s, ok := p.managedScopes[id]; ok && s != maven.DefaultScope && mavenScopes[s] {
				d.Scope = string(s)
			}
			mgmt.Dependencies = append(mgmt.Dependencies, d)
		}
		doc.DependencyManagement = mgmt
	}

	for _, decl := range p.declared {
		if !mavenScopes[decl.scope] || decl.scope == maven.Import {
			continue
		}
		doc.Dependencies = append(doc.Dependencies, toDependencyXML(decl.dep, decl.scope))
	}
	for _, bom := range p.Declared(maven.Import) {
		d := toDependencyXML(bom, maven.Import)
		d.Type = maven.DefaultPOMType
		if doc.DependencyManagement == nil {
			doc.DependencyManagement = &writeDependencies{}
		}
		doc.DependencyManagement.Dependencies = append(doc.DependencyManagement.Dependencies, d)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode pom %s", p.Coordinates())
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

func toDependencyXML(dep *maven.Dependency, scope maven.Scope) dependencyXML {
	d := dependencyXML{
		GroupID:    dep.GroupID,
		ArtifactID: dep.ArtifactID,
		Version:    dep.Version,
		Classifier: dep.Classifier,
	}
	if ext := dep.Extension(); ext != maven.DefaultType {
		d.Type = ext
	}
	if scope != maven.DefaultScope {
		d.Scope = string(scope)
	}
	if dep.Optional {
		d.Optional = "true"
	}
	if dep.IsSystem() {
		d.SystemPath = dep.Path
	}
	for _, ex := range dep.Exclusions {
		g, a, ok := strings.Cut(ex, ":")
		if !ok {
			a = "*"
		}
		d.Exclusions = append(d.Exclusions, exclusionXML{GroupID: g, ArtifactID: a})
	}
	return d
}
