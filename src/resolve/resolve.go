// Package resolve implements the Resolver: a concurrent, depth-first
// traversal of the transitive Maven dependency graph that applies the
// "nearest wins, first encountered" conflict policy and yields a flat,
// deduplicated resolution set (spec §4.4).
//
// The resolver is a pure function of (direct dependencies, repository
// view): it touches no local filesystem state. Concurrency fabric is one
// goroutine per expanded node, with a semaphore bounding how many fetch
// POMs at once, mirroring the shape of
// tools/please_maven/resolver.go's worker pool over a shared, mutex-guarded
// map, adapted from a priority queue to a plain semaphore since polytunnel
// has no cross-artifact priority ordering to express.
package resolve

import (
	"context"
	"runtime"
	"sync"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/op/go-logging.v1"

	"github.com/steelcrab/polytunnel/src/coordinate"
	"github.com/steelcrab/polytunnel/src/errs"
	"github.com/steelcrab/polytunnel/src/maven"
)

var log = logging.MustGetLogger("resolve")

// DefaultConcurrency is used when Resolver is constructed with
// concurrency <= 0, unless GOMAXPROCS is larger.
const DefaultConcurrency = 8

// A Resolver resolves a project's direct dependencies into a flat
// ResolutionSet.
type Resolver struct {
	computer    *maven.Computer
	concurrency int
}

// New constructs a Resolver backed by computer. concurrency bounds the
// number of in-flight POM fetches; DefaultConcurrency is used if <= 0.
func New(computer *maven.Computer, concurrency int) *Resolver {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
		if n := runtime.GOMAXPROCS(0); n > concurrency {
			concurrency = n
		}
	}
	return &Resolver{computer: computer, concurrency: concurrency}
}

// Resolve traverses the dependency graph rooted at directDeps (in manifest
// declaration order, each starting at depth 0) and returns the resulting
// ResolutionSet. All spawned tasks are awaited before returning (spec §5);
// a fetch failure anywhere in the graph aborts the whole pass with an
// aggregated, chain-annotated error.
func (r *Resolver) Resolve(ctx context.Context, directDeps []coordinate.Dependency) (*coordinate.ResolutionSet, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := &pass{
		ctx:       ctx,
		cancel:    cancel,
		computer:  r.computer,
		sem:       make(chan struct{}, r.concurrency),
		set:       coordinate.NewResolutionSet(),
		expanding: map[coordinate.Coordinate]bool{},
	}

	for _, dep := range directDeps {
		if !dep.Scope.IsTransitiveFromRoot() {
			log.Debug("skipping non-transitive root scope %s for %s", dep.Scope, dep.GroupArtifact)
			continue
		}
		node := &coordinate.ResolvedNode{Coordinate: dep.Coordinate(), Scope: dep.Scope, Depth: 0}
		p.insert(node)
		p.wg.Add(1)
		go p.expand(node, dep.Exclusions)
	}

	p.wg.Wait()

	if err := p.finalError(); err != nil {
		return nil, err
	}
	return p.set, nil
}

// pass holds the mutable state shared across one Resolve call's goroutines.
type pass struct {
	ctx      context.Context
	cancel   context.CancelFunc
	computer *maven.Computer
	sem      chan struct{}
	wg       sync.WaitGroup

	mu        sync.Mutex
	set       *coordinate.ResolutionSet
	expanding map[coordinate.Coordinate]bool

	errMu sync.Mutex
	err   *multierror.Error
}

func (p *pass) insert(node *coordinate.ResolvedNode) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set.Insert(node)
}

// claimExpansion returns true if the caller is the first to claim coord for
// expansion (fetching its POM and enumerating its dependencies); a later
// caller reaching the same Coordinate via a back-edge gets false and must
// not re-expand it (spec §4.4 cycle handling).
func (p *pass) claimExpansion(coord coordinate.Coordinate) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.expanding[coord] {
		return false
	}
	p.expanding[coord] = true
	return true
}

func (p *pass) recordError(chain []coordinate.Coordinate, err error) {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	strs := make([]string, len(chain))
	for i, c := range chain {
		strs[i] = c.String()
	}
	p.err = multierror.Append(p.err, &errs.ResolverError{Chain: strs, Cause: err})
	p.cancel()
}

func (p *pass) finalError() error {
	p.errMu.Lock()
	defer p.errMu.Unlock()
	if p.err == nil {
		return nil
	}
	return p.err
}

// expand fetches node's effective POM, enumerates its dependencies in
// declaration order (inserting each eligible child synchronously so
// insertion order is deterministic for a fixed traversal), and spawns
// concurrent recursion into each child's subtree.
func (p *pass) expand(node *coordinate.ResolvedNode, inheritedExclusions []coordinate.Exclusion) {
	defer p.wg.Done()

	if p.ctx.Err() != nil {
		return
	}
	if !p.claimExpansion(node.Coordinate) {
		return
	}

	p.sem <- struct{}{}
	pom, err := p.computer.Effective(p.ctx, node.Coordinate)
	<-p.sem

	if err != nil {
		if p.ctx.Err() == nil {
			p.recordError(node.Chain(), err)
		}
		return
	}

	for _, dep := range pom.Dependencies {
		if p.ctx.Err() != nil {
			return
		}
		if !eligible(node, dep, inheritedExclusions) {
			continue
		}
		childExclusions := union(inheritedExclusions, dep.Exclusions)
		childScope := effectiveScope(node.Scope, dep.Scope)
		child := &coordinate.ResolvedNode{
			Coordinate: dep.Coordinate(),
			Scope:      childScope,
			Depth:      node.Depth + 1,
			Parent:     node,
		}
		p.insert(child)
		p.wg.Add(1)
		go p.expand(child, childExclusions)
	}
}

// eligible implements spec §4.4 step 2: a child dependency is traversed
// (and therefore inserted) iff it is not test/system/import scoped, not
// optional, and not excluded by the accumulated exclusion set. The root's
// own direct dependencies are already inserted by Resolve itself; this
// function only governs dependencies discovered while expanding a node
// (root or not) — test scope is never transitive past the node that
// declares it, matching the "test scope is never transitive" rule
// regardless of whether that node is the root.
func eligible(parent *coordinate.ResolvedNode, dep coordinate.Dependency, exclusions []coordinate.Exclusion) bool {
	if !dep.Scope.IsTransitiveFromChild() {
		return false
	}
	if dep.Optional {
		return false
	}
	if coordinate.IsExcludedBy(dep.GroupArtifact, exclusions) {
		return false
	}
	return true
}

// effectiveScope computes the scope a child node is visible at from the
// root: once a branch is rooted in a test-scope dependency, everything
// beneath it is test-only (spec scenario 5); otherwise the child's own
// declared scope (already constrained to compile/runtime/provided by
// eligible) applies directly (spec scenario 4: provided propagates and
// remains compile-classpath-visible).
func effectiveScope(parentScope, childDeclaredScope coordinate.Scope) coordinate.Scope {
	if parentScope == coordinate.ScopeTest {
		return coordinate.ScopeTest
	}
	return childDeclaredScope
}

func union(a, b []coordinate.Exclusion) []coordinate.Exclusion {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	seen := make(map[coordinate.Exclusion]bool, len(a)+len(b))
	out := make([]coordinate.Exclusion, 0, len(a)+len(b))
	for _, e := range append(append([]coordinate.Exclusion{}, a...), b...) {
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}
