package coordinate

import (
	"fmt"
	"io"
	"strings"
)

// A DependencyTree is the parent-link graph implicit in a ResolutionSet's
// ResolvedNode.Parent pointers, reorganized for top-down rendering: each
// node's direct children, indexed by the node that pulled them in (the
// manifest's direct dependencies are the roots, keyed under nil).
type DependencyTree struct {
	children map[*ResolvedNode][]*ResolvedNode
	roots    []*ResolvedNode
}

// NewDependencyTree builds the tree for set. It does no traversal of its
// own; it only re-indexes the Parent links the Resolver already recorded
// on each winning node.
func NewDependencyTree(set *ResolutionSet) *DependencyTree {
	t := &DependencyTree{children: map[*ResolvedNode][]*ResolvedNode{}}
	for _, n := range set.Nodes() {
		t.children[n.Parent] = append(t.children[n.Parent], n)
		if n.Parent == nil {
			t.roots = append(t.roots, n)
		}
	}
	return t
}

// Print renders the tree to w as indentation-nested lines, one Coordinate
// per line, two spaces per depth level.
func (t *DependencyTree) Print(w io.Writer) {
	for _, root := range t.roots {
		t.print(w, root, 0)
	}
}

func (t *DependencyTree) print(w io.Writer, node *ResolvedNode, depth int) {
	fmt.Fprintf(w, "%s%s (%s)\n", strings.Repeat("  ", depth), node.Coordinate, node.Scope)
	for _, child := range t.children[node] {
		t.print(w, child, depth+1)
	}
}
