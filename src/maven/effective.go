package maven

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/op/go-logging.v1"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/errs"
)

var log = logging.MustGetLogger("maven")

// PomFetcher is the Repository Client's narrow surface this package needs.
// repository.Client satisfies it; tests inject an in-memory fake instead
// (spec §9).
type PomFetcher interface {
	FetchPom(ctx context.Context, c coordinate.Coordinate) ([]byte, error)
}

// EffectivePom is a POM after parent inheritance, property substitution,
// and dependency-management merging: every Dependency has a non-empty
// Version (spec §3's POM invariant).
type EffectivePom struct {
	Coordinate   coordinate.Coordinate
	Dependencies []coordinate.Dependency

	// props is the fully-merged property table, exposed only so a child
	// POM computing its own effective form can inherit its parent's
	// properties (spec §4.3 step 2). Not part of the public contract.
	props map[string]string
}

// Computer computes effective POMs, memoizing the raw fetch+parse per
// Coordinate for the lifetime of a single resolution pass (spec §3:
// "POMs are ... cached in-memory for the duration of a resolution pass").
// It is safe for concurrent use; the resolve package calls it from many
// goroutines at once.
type Computer struct {
	fetcher PomFetcher

	mu   sync.Mutex
	raw  map[coordinate.Coordinate]*rawPom
	errs map[coordinate.Coordinate]error
}

// NewComputer constructs a Computer backed by fetcher.
func NewComputer(fetcher PomFetcher) *Computer {
	return &Computer{
		fetcher: fetcher,
		raw:     map[coordinate.Coordinate]*rawPom{},
		errs:    map[coordinate.Coordinate]error{},
	}
}

// propertyRef matches a single "${name}" token for substitution.
var propertyRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// fetchRaw fetches and parses the raw POM for c, memoizing the result
// (and any error) so later lookups within one pass reuse it. The lock is
// not held during the fetch, so concurrent first lookups of the same
// Coordinate may each fetch it.
func (c *Computer) fetchRaw(ctx context.Context, coord coordinate.Coordinate) (*rawPom, error) {
	c.mu.Lock()
	if pom, ok := c.raw[coord]; ok {
		c.mu.Unlock()
		return pom, nil
	}
	if err, ok := c.errs[coord]; ok {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	body, err := c.fetcher.FetchPom(ctx, coord)
	if err != nil {
		c.mu.Lock()
		c.errs[coord] = err
		c.mu.Unlock()
		return nil, err
	}
	pom, err := parseRawPom(coord.PomPath(), body)
	if err != nil {
		c.mu.Lock()
		c.errs[coord] = err
		c.mu.Unlock()
		return nil, err
	}

	c.mu.Lock()
	c.raw[coord] = pom
	c.mu.Unlock()
	return pom, nil
}

// Effective computes the effective POM for coord: resolving the parent
// chain, building the property table, substituting references, and
// merging dependency management (spec §4.3).
func (c *Computer) Effective(ctx context.Context, coord coordinate.Coordinate) (*EffectivePom, error) {
	return c.effective(ctx, coord, map[coordinate.Coordinate]bool{})
}

func (c *Computer) effective(ctx context.Context, coord coordinate.Coordinate, visiting map[coordinate.Coordinate]bool) (*EffectivePom, error) {
	visiting[coord] = true

	pom, err := c.fetchRaw(ctx, coord)
	if err != nil {
		return nil, err
	}

	props := map[string]string{}
	var parentManagement []rawDependency

	if pom.Parent != nil && pom.Parent.ArtifactID != "" {
		parentCoord := coordinate.Coordinate{
			GroupArtifact: coordinate.GroupArtifact{Group: pom.Parent.GroupID, Artifact: pom.Parent.ArtifactID},
			Version:       coordinate.Version(pom.Parent.Version),
		}
		if visiting[parentCoord] {
			return nil, c.cycleError(coord, parentCoord, visiting)
		}
		visiting[parentCoord] = true
		parentEffective, parentRaw, err := c.parentEffective(ctx, parentCoord, visiting)
		if err != nil {
			return nil, err
		}
		for k, v := range parentEffective.props {
			props[k] = v
		}
		parentManagement = parentRaw.DependencyManagement.Dependencies.Dependency
		if pom.GroupID == "" {
			pom.GroupID = pom.Parent.GroupID
		}
		if pom.Version == "" {
			pom.Version = pom.Parent.Version
		}
	}

	// Child properties override parent properties (spec §4.3 step 2).
	for _, p := range pom.Properties.entries {
		props[p.Name] = p.Value
	}
	props["project.groupId"] = pom.GroupID
	props["project.artifactId"] = pom.ArtifactID
	props["project.version"] = pom.Version
	props["groupId"] = pom.GroupID
	props["artifactId"] = pom.ArtifactID
	props["version"] = pom.Version

	substitute := func(s string) string {
		return substituteProperties(s, props)
	}

	// Merge dependency management: child entries override parent entries
	// keyed by GroupArtifact (spec §4.3 step 4).
	management := map[coordinate.GroupArtifact]rawDependency{}
	for _, d := range parentManagement {
		ga := coordinate.GroupArtifact{Group: substitute(d.GroupID), Artifact: substitute(d.ArtifactID)}
		management[ga] = d
	}
	ownManagement := pom.DependencyManagement.Dependencies.Dependency
	ownManagement, err = c.expandImports(ctx, ownManagement, substitute, visiting)
	if err != nil {
		return nil, err
	}
	for _, d := range ownManagement {
		ga := coordinate.GroupArtifact{Group: substitute(d.GroupID), Artifact: substitute(d.ArtifactID)}
		management[ga] = d
	}

	deps := make([]coordinate.Dependency, 0, len(pom.Dependencies.Dependency))
	for _, raw := range pom.Dependencies.Dependency {
		dep, err := c.resolveDependency(raw, substitute, management, coord)
		if err != nil {
			return nil, err
		}
		deps = append(deps, dep)
	}

	return &EffectivePom{
		Coordinate:   coordinate.Coordinate{GroupArtifact: coordinate.GroupArtifact{Group: pom.GroupID, Artifact: pom.ArtifactID}, Version: coordinate.Version(pom.Version)},
		Dependencies: deps,
		props:        props,
	}, nil
}

// parentEffective computes the parent's effective POM (for its property
// table) alongside its raw form (for its dependencyManagement), since the
// two are both needed but EffectivePom only exposes the former.
func (c *Computer) parentEffective(ctx context.Context, parentCoord coordinate.Coordinate, visiting map[coordinate.Coordinate]bool) (*EffectivePom, *rawPom, error) {
	parentRaw, err := c.fetchRaw(ctx, parentCoord)
	if err != nil {
		return nil, nil, err
	}
	parentEffective, err := c.effective(ctx, parentCoord, visiting)
	if err != nil {
		return nil, nil, err
	}
	return parentEffective, parentRaw, nil
}

func (c *Computer) cycleError(from, to coordinate.Coordinate, visiting map[coordinate.Coordinate]bool) error {
	chain := make([]string, 0, len(visiting)+1)
	for coord := range visiting {
		chain = append(chain, coord.String())
	}
	chain = append(chain, from.String(), to.String())
	return &errs.PomError{Kind: errs.KindParentCycle, URL: from.PomPath(), Chain: chain}
}

// expandImports splices import-scoped dependency-management entries: a
// <dependencyManagement> entry with <scope>import</scope> contributes the
// imported POM's own dependencyManagement, child entries still winning on
// conflict (spec §9 decided: import scope is implemented, not rejected).
func (c *Computer) expandImports(ctx context.Context, entries []rawDependency, substitute func(string) string, visiting map[coordinate.Coordinate]bool) ([]rawDependency, error) {
	out := make([]rawDependency, 0, len(entries))
	for _, d := range entries {
		if d.Scope != string(coordinate.ScopeImport) {
			out = append(out, d)
			continue
		}
		importCoord := coordinate.Coordinate{
			GroupArtifact: coordinate.GroupArtifact{Group: substitute(d.GroupID), Artifact: substitute(d.ArtifactID)},
			Version:       coordinate.Version(substitute(d.Version)),
		}
		importedRaw, err := c.fetchRaw(ctx, importCoord)
		if err != nil {
			return nil, err
		}
		imported, err := c.expandImports(ctx, importedRaw.DependencyManagement.Dependencies.Dependency, substitute, visiting)
		if err != nil {
			return nil, err
		}
		// Imported entries are added first so later (more specific)
		// entries in `entries` continue to win on conflict.
		out = append(imported, out...)
	}
	return out, nil
}

func (c *Computer) resolveDependency(raw rawDependency, substitute func(string) string, management map[coordinate.GroupArtifact]rawDependency, owner coordinate.Coordinate) (coordinate.Dependency, error) {
	ga := coordinate.GroupArtifact{Group: substitute(raw.GroupID), Artifact: substitute(raw.ArtifactID)}
	version := substitute(raw.Version)
	scopeStr := raw.Scope
	optional := raw.Optional == "true"

	if managed, ok := management[ga]; ok {
		if version == "" {
			version = substitute(managed.Version)
		}
		if scopeStr == "" {
			scopeStr = managed.Scope
		}
	}
	if version == "" {
		return coordinate.Dependency{}, &errs.PomError{
			Kind: errs.KindUnresolvedVersion, URL: owner.PomPath(), Detail: ga.String(),
		}
	}
	for _, field := range []string{ga.Group, ga.Artifact, version} {
		if propertyRef.MatchString(field) {
			return coordinate.Dependency{}, &errs.PomError{
				Kind: errs.KindUnresolvedProperty, URL: owner.PomPath(), Detail: field,
			}
		}
	}

	scope, err := coordinate.ParseScope(scopeStr)
	if err != nil {
		return coordinate.Dependency{}, &errs.PomError{Kind: errs.KindMalformed, URL: owner.PomPath(), Detail: err.Error()}
	}

	exclusions := make([]coordinate.Exclusion, 0, len(raw.Exclusions.Exclusion))
	for _, e := range raw.Exclusions.Exclusion {
		exclusions = append(exclusions, coordinate.Exclusion{Group: substitute(e.GroupID), Artifact: substitute(e.ArtifactID)})
	}
	// Also inherit exclusions from management, if the dependency itself
	// declared none (spec §4.3 step 4: "inherit scope and exclusions from
	// management when not set on the dependency").
	if len(exclusions) == 0 {
		if managed, ok := management[ga]; ok {
			for _, e := range managed.Exclusions.Exclusion {
				exclusions = append(exclusions, coordinate.Exclusion{Group: substitute(e.GroupID), Artifact: substitute(e.ArtifactID)})
			}
		}
	}

	return coordinate.Dependency{
		GroupArtifact: ga,
		Version:       coordinate.Version(version),
		Scope:         scope,
		Exclusions:    exclusions,
		Optional:      optional,
	}, nil
}

// substituteProperties replaces every "${name}" token in s with its value
// from props. Substitution is single-pass left-to-right (spec §4.3 step 3):
// an unresolved reference is left as literal text here, and the caller
// (resolveDependency) surfaces it as errs.KindUnresolvedProperty only if it
// ends up participating in a coordinate.
func substituteProperties(s string, props map[string]string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return propertyRef.ReplaceAllStringFunc(s, func(token string) string {
		name := token[2 : len(token)-1]
		if v, ok := props[name]; ok {
			return v
		}
		log.Debug("unresolved property reference %s", token)
		return token
	})
}
