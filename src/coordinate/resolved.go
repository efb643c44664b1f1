package coordinate

// A ResolvedNode is one entry in a resolution set: the Coordinate that won
// conflict resolution for its GroupArtifact, the scope it is visible at
// from the root, its depth (0 for the manifest's direct dependencies, one
// more for each edge below them), and a link to the node that pulled it in
// (nil for a direct dependency).
type ResolvedNode struct {
	Coordinate Coordinate
	Scope      Scope
	Depth      int
	Parent     *ResolvedNode
}

// GroupArtifact is a convenience accessor for the node's identity key.
func (n *ResolvedNode) GroupArtifact() GroupArtifact {
	return n.Coordinate.GroupArtifact
}

// Chain returns the path of Coordinates from the root to this node,
// inclusive, root first. It is used to render resolution-chain diagnostics.
func (n *ResolvedNode) Chain() []Coordinate {
	var chain []Coordinate
	for cur := n; cur != nil; cur = cur.Parent {
		chain = append([]Coordinate{cur.Coordinate}, chain...)
	}
	return chain
}

// A ResolutionSet is the flat, deduplicated output of the resolver: exactly
// one ResolvedNode per GroupArtifact. Order is insertion order, which is
// deterministic given a fixed manifest and repository view (see the
// resolve package for the ordering guarantee).
type ResolutionSet struct {
	nodes []*ResolvedNode
	byGA  map[GroupArtifact]*ResolvedNode
}

// NewResolutionSet returns an empty ResolutionSet.
func NewResolutionSet() *ResolutionSet {
	return &ResolutionSet{byGA: map[GroupArtifact]*ResolvedNode{}}
}

// Lookup returns the winning node for ga, or nil if ga is not present.
func (rs *ResolutionSet) Lookup(ga GroupArtifact) *ResolvedNode {
	return rs.byGA[ga]
}

// Nodes returns all nodes in insertion order. The returned slice must not
// be mutated by callers.
func (rs *ResolutionSet) Nodes() []*ResolvedNode {
	return rs.nodes
}

// Len returns the number of distinct GroupArtifacts in the set.
func (rs *ResolutionSet) Len() int {
	return len(rs.nodes)
}

// Insert attempts to add or replace the entry for node's GroupArtifact,
// applying the "nearest wins, first encountered" policy: a node already
// present at a depth less than or equal to the candidate's depth is kept;
// only a strictly closer candidate replaces it. Equal-depth ties keep
// whichever arrived first. Returns true if the set was modified.
//
// ResolutionSet itself holds no lock; the resolve package's concurrent
// resolver pass guards every Insert call with its own mutex.
func (rs *ResolutionSet) Insert(node *ResolvedNode) bool {
	ga := node.GroupArtifact()
	existing, present := rs.byGA[ga]
	if !present {
		rs.byGA[ga] = node
		rs.nodes = append(rs.nodes, node)
		return true
	}
	if node.Depth < existing.Depth {
		rs.byGA[ga] = node
		for i, n := range rs.nodes {
			if n == existing {
				rs.nodes[i] = node
				break
			}
		}
		return true
	}
	return false
}

// MainClasspath returns the Coordinates visible to the main (non-test)
// compilation: every node except those at ScopeTest.
func (rs *ResolutionSet) MainClasspath() []Coordinate {
	var out []Coordinate
	for _, n := range rs.nodes {
		if n.Scope != ScopeTest {
			out = append(out, n.Coordinate)
		}
	}
	return out
}

// TestClasspath returns the Coordinates visible when compiling and running
// tests: every node in the set, since test-scope dependencies are only
// added to the test classpath and everything else is already visible there.
func (rs *ResolutionSet) TestClasspath() []Coordinate {
	out := make([]Coordinate, len(rs.nodes))
	for i, n := range rs.nodes {
		out[i] = n.Coordinate
	}
	return out
}
