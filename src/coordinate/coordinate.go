// Package coordinate defines the immutable value types that identify Maven
// artifacts and the dependency edges between them.
package coordinate

import (
	"fmt"
	"strings"
)

// A GroupArtifact is the (groupId, artifactId) pair that identifies a
// Maven project independent of version. It is the key used for conflict
// resolution: the resolver keeps at most one ResolvedNode per GroupArtifact.
type GroupArtifact struct {
	Group    string
	Artifact string
}

// String renders the GroupArtifact in "group:artifact" form.
func (ga GroupArtifact) String() string {
	return ga.Group + ":" + ga.Artifact
}

// Path returns the group component of the GroupArtifact as a repository
// path fragment, e.g. "com.google.guava" -> "com/google/guava".
func (ga GroupArtifact) Path() string {
	return strings.ReplaceAll(ga.Group, ".", "/")
}

// ParseGroupArtifact parses a "group:artifact" string, as used for
// manifest dependency keys. The error names the offending input verbatim
// so the manifest loader can report it against the original key.
func ParseGroupArtifact(s string) (GroupArtifact, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return GroupArtifact{}, fmt.Errorf("invalid group:artifact coordinate %q", s)
	}
	return GroupArtifact{Group: parts[0], Artifact: parts[1]}, nil
}

// Version is an opaque Maven version string. It is never parsed for
// ordering by the core: equality is exact string comparison, and conflict
// resolution is driven entirely by traversal depth (see the resolve
// package), not by version comparison.
type Version string

// Coordinate uniquely identifies an artifact release: a GroupArtifact plus
// a Version. A given repository has at most one POM and one JAR per
// Coordinate.
type Coordinate struct {
	GroupArtifact
	Version Version
}

// String renders the Coordinate in "group:artifact:version" form.
func (c Coordinate) String() string {
	return c.GroupArtifact.String() + ":" + string(c.Version)
}

// pomFileName returns the base file name for this coordinate's POM.
func (c Coordinate) pomFileName() string {
	return c.Artifact + "-" + string(c.Version) + ".pom"
}

// jarFileName returns the base file name for this coordinate's JAR.
func (c Coordinate) jarFileName() string {
	return c.Artifact + "-" + string(c.Version) + ".jar"
}

// PomPath returns the repository-relative path to this coordinate's POM,
// e.g. "com/google/guava/guava/33.0.0-jre/guava-33.0.0-jre.pom".
func (c Coordinate) PomPath() string {
	return c.Path() + "/" + c.Artifact + "/" + string(c.Version) + "/" + c.pomFileName()
}

// JarPath returns the repository-relative path to this coordinate's JAR.
func (c Coordinate) JarPath() string {
	return c.Path() + "/" + c.Artifact + "/" + string(c.Version) + "/" + c.jarFileName()
}

// CachePath returns the path, relative to a cache root, at which this
// coordinate's JAR is stored. It has the same layout as JarPath so the
// on-disk cache mirrors the repository's own Maven layout.
func (c Coordinate) CachePath() string {
	return c.JarPath()
}

// Scope is a Maven dependency scope. Transitivity and classpath visibility
// rules are defined in the resolve and orchestrator packages; Scope itself
// is just the enumerated tag.
type Scope string

const (
	ScopeCompile  Scope = "compile"
	ScopeProvided Scope = "provided"
	ScopeRuntime  Scope = "runtime"
	ScopeTest     Scope = "test"
	ScopeSystem   Scope = "system"
	ScopeImport   Scope = "import"
)

// ParseScope parses a scope string from a POM or manifest, defaulting to
// ScopeCompile for an empty string (Maven's own default).
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case "":
		return ScopeCompile, nil
	case ScopeCompile, ScopeProvided, ScopeRuntime, ScopeTest, ScopeSystem, ScopeImport:
		return Scope(s), nil
	default:
		return "", fmt.Errorf("unknown dependency scope %q", s)
	}
}

// IsTransitiveFromRoot reports whether a direct (root) dependency of this
// scope participates in transitive traversal at all.
func (s Scope) IsTransitiveFromRoot() bool {
	switch s {
	case ScopeCompile, ScopeProvided, ScopeRuntime, ScopeTest:
		return true
	default:
		return false
	}
}

// IsTransitiveFromChild reports whether a non-root dependency of this scope
// is traversed further down the graph. Test scope is never transitive past
// the node that declares it.
func (s Scope) IsTransitiveFromChild() bool {
	switch s {
	case ScopeCompile, ScopeRuntime, ScopeProvided:
		return true
	default:
		return false
	}
}

// Exclusion is a GroupArtifact predicate carried down a dependency edge,
// pruning matching descendants from the subgraph rooted at the excluding
// dependency.
type Exclusion = GroupArtifact

// Dependency is a declared coordinate as it appears in a POM's
// <dependencies> or a manifest's [dependencies] table: the version may be
// absent pending resolution via dependency management or the manifest.
type Dependency struct {
	GroupArtifact
	Version    Version // may be empty until management/property resolution fills it in
	Scope      Scope
	Exclusions []Exclusion
	Optional   bool
}

// Coordinate returns this dependency's Coordinate. It must only be called
// once Version has been resolved (i.e. on an effective POM's dependency
// list, never on a raw, unmerged one).
func (d Dependency) Coordinate() Coordinate {
	return Coordinate{GroupArtifact: d.GroupArtifact, Version: d.Version}
}

// IsExcludedBy reports whether ga matches any entry in exclusions.
func IsExcludedBy(ga GroupArtifact, exclusions []Exclusion) bool {
	for _, excl := range exclusions {
		if excl == ga {
			return true
		}
	}
	return false
}
