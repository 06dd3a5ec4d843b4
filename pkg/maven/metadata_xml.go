package maven

import (
	"bytes"
	"encoding/xml"
	"strings"
	"time"

	"github.com/matzehuels/moxie/pkg/errors"
)

// MetadataFile is the file name of the metadata document on a repository.
const MetadataFile = "maven-metadata.xml"

type metadataXML struct {
	XMLName    xml.Name      `xml:"metadata"`
	GroupID    string        `xml:"groupId,omitempty"`
	ArtifactID string        `xml:"artifactId,omitempty"`
	Version    string        `xml:"version,omitempty"`
	Versioning versioningXML `xml:"versioning"`
}

type versioningXML struct {
	Latest           string               `xml:"latest,omitempty"`
	Release          string               `xml:"release,omitempty"`
	Versions         []string             `xml:"versions>version,omitempty"`
	Snapshot         *snapshotXML         `xml:"snapshot,omitempty"`
	SnapshotVersions []snapshotVersionXML `xml:"snapshotVersions>snapshotVersion,omitempty"`
	LastUpdated      string               `xml:"lastUpdated,omitempty"`
}

type snapshotXML struct {
	Timestamp   string `xml:"timestamp,omitempty"`
	BuildNumber int    `xml:"buildNumber,omitempty"`
	LocalCopy   bool   `xml:"localCopy,omitempty"`
}

type snapshotVersionXML struct {
	Classifier string `xml:"classifier,omitempty"`
	Extension  string `xml:"extension"`
	Value      string `xml:"value"`
	Updated    string `xml:"updated,omitempty"`
}

// ParseMetadata decodes a maven-metadata.xml document. Snapshot revisions are
// collected from both the <snapshot> element and <snapshotVersions>.
func ParseMetadata(data []byte) (*Metadata, error) {
	var doc metadataXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "parse %s", MetadataFile)
	}

	v := doc.Versioning
	m := &Metadata{
		GroupID:    strings.TrimSpace(doc.GroupID),
		ArtifactID: strings.TrimSpace(doc.ArtifactID),
		Version:    strings.TrimSpace(doc.Version),
		Latest:     strings.TrimSpace(v.Latest),
		Release:    strings.TrimSpace(v.Release),
	}
	for _, ver := range v.Versions {
		if ver = strings.TrimSpace(ver); ver != "" {
			m.Versions = append(m.Versions, ver)
		}
	}
	if v.Snapshot != nil && v.Snapshot.Timestamp != "" {
		m.Snapshots = append(m.Snapshots, Snapshot{
			Timestamp:   strings.TrimSpace(v.Snapshot.Timestamp),
			BuildNumber: v.Snapshot.BuildNumber,
		})
	}
	for _, sv := range v.SnapshotVersions {
		if s, ok := ParseSnapshotRevision(strings.TrimSpace(sv.Value)); ok {
			m.Snapshots = append(m.Snapshots, s)
		}
	}
	if lu := strings.TrimSpace(v.LastUpdated); lu != "" {
		t, err := time.ParseInLocation(LastUpdatedLayout, lu, time.UTC)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMalformedDescriptor, err, "invalid lastUpdated %q", lu)
		}
		m.LastUpdated = t
	}
	m.normalize()
	return m, nil
}

// Bytes encodes m as maven-metadata.xml. The newest snapshot is written as
// <snapshot>; every known snapshot is listed under <snapshotVersions> so
// merged history survives a round trip.
func (m *Metadata) Bytes() ([]byte, error) {
	doc := metadataXML{
		GroupID:    m.GroupID,
		ArtifactID: m.ArtifactID,
		Version:    m.Version,
		Versioning: versioningXML{
			Latest:   m.Latest,
			Release:  m.Release,
			Versions: m.Versions,
		},
	}
	if !m.LastUpdated.IsZero() {
		doc.Versioning.LastUpdated = m.LastUpdated.UTC().Format(LastUpdatedLayout)
	}
	if s, ok := m.LatestSnapshot(); ok {
		doc.Versioning.Snapshot = &snapshotXML{Timestamp: s.Timestamp, BuildNumber: s.BuildNumber}
		for _, snap := range m.Snapshots {
			doc.Versioning.SnapshotVersions = append(doc.Versioning.SnapshotVersions, snapshotVersionXML{
				Extension: DefaultPOMType,
				Value:     snap.Revision(m.Version),
				Updated:   strings.Replace(snap.Timestamp, ".", "", 1),
			})
		}
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", MetadataFile)
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
