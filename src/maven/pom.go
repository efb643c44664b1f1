// Package maven parses Maven POM documents and computes their effective
// form: parent inheritance resolved, properties substituted, and
// dependency-management overrides merged in. Computation is a pure
// function of an injected PomFetcher (spec §4.3, §9 "Effective POM as a
// pure function"), so both a real repository.Client and an in-memory fake
// can drive it — the fake is what the resolve package's tests use.
package maven

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/steelcrab/polytunnel/src/errs"
)

// rawPom is the direct unmarshalling target for a POM's XML. It mirrors
// the Maven 4.0.0 POM schema fields the core cares about (spec §4.3):
// own coordinate, parent, properties, dependencies, and dependency
// management. Field layout follows deps.dev/util/maven's Project and
// please's tools/please_maven/pom.go pomXml.
type rawPom struct {
	XMLName    xml.Name      `xml:"project"`
	GroupID    string        `xml:"groupId"`
	ArtifactID string        `xml:"artifactId"`
	Version    string        `xml:"version"`
	Parent     *rawParent    `xml:"parent"`
	Properties rawProperties `xml:"properties"`

	Dependencies struct {
		Dependency []rawDependency `xml:"dependency"`
	} `xml:"dependencies"`

	DependencyManagement struct {
		Dependencies struct {
			Dependency []rawDependency `xml:"dependency"`
		} `xml:"dependencies"`
	} `xml:"dependencyManagement"`
}

type rawParent struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
}

type rawDependency struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Scope      string `xml:"scope"`
	Optional   string `xml:"optional"`
	Exclusions struct {
		Exclusion []struct {
			GroupID    string `xml:"groupId"`
			ArtifactID string `xml:"artifactId"`
		} `xml:"exclusion"`
	} `xml:"exclusions"`
}

// rawProperties unmarshals an arbitrary <properties> block into ordered
// name/value pairs, the same pattern deps.dev/util/maven's Properties type
// uses: property elements are not known ahead of time, so we decode the
// raw tokens ourselves rather than declaring a fixed struct.
type rawProperties struct {
	entries []property
}

type property struct {
	Name  string
	Value string
}

func (p *rawProperties) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var value string
			if err := d.DecodeElement(&value, &t); err != nil {
				return err
			}
			p.entries = append(p.entries, property{Name: t.Name.Local, Value: strings.TrimSpace(value)})
		case xml.EndElement:
			return nil
		}
	}
}

// looksLikeMetadata reports whether body is a maven-metadata.xml document
// (root element <metadata>) rather than a POM. A repository serving
// metadata where a POM was requested is how spec §9 says polytunnel should
// detect a SNAPSHOT coordinate it cannot handle literally.
func looksLikeMetadata(body []byte) bool {
	decoder := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := decoder.Token()
		if err != nil {
			return false
		}
		if start, ok := tok.(xml.StartElement); ok {
			return start.Name.Local == "metadata"
		}
	}
}

func parseRawPom(url string, body []byte) (*rawPom, error) {
	if looksLikeMetadata(body) {
		return nil, &errs.PomError{
			Kind: errs.KindMalformed, URL: url,
			Detail: "repository returned maven-metadata.xml for a POM request (likely an unresolved SNAPSHOT coordinate)",
		}
	}
	var pom rawPom
	decoder := xml.NewDecoder(bytes.NewReader(body))
	// Tolerate ISO-8859-1 and similar declared charsets by treating the
	// body as already-decoded text, matching please's pomXml.Unmarshal.
	decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	if err := decoder.Decode(&pom); err != nil {
		return nil, &errs.PomError{Kind: errs.KindMalformed, URL: url, Detail: err.Error(), Cause: err}
	}
	pom.GroupID = strings.TrimSpace(pom.GroupID)
	pom.ArtifactID = strings.TrimSpace(pom.ArtifactID)
	pom.Version = strings.TrimSpace(pom.Version)
	return &pom, nil
}

// ownGroupArtifact returns the POM's own raw, pre-substitution groupId,
// or parentGroup when it is absent; ownVersion does the same for the
// version (spec §4.3 step 1).
func (p *rawPom) ownGroupArtifact(parentGroup string) string {
	if p.GroupID != "" {
		return p.GroupID
	}
	return parentGroup
}

func (p *rawPom) ownVersion(parentVersion string) string {
	if p.Version != "" {
		return p.Version
	}
	return parentVersion
}

