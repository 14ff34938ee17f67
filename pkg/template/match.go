package template

import (
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// Binding maps hole indices to the subtrees they captured.
type Binding map[int]*syntax.Node

// MatchResult is one occurrence of a pattern in a tree.
type MatchResult struct {
	// Node is the matched subtree root.
	Node *syntax.Node
	// Binding holds the subtree captured by each hole.
	Binding Binding
}

// MatchAll returns every subtree of root the pattern matches, in pre-order.
// Nested matches are included; callers that rewrite must filter overlaps.
func MatchAll(p *Pattern, root *syntax.Node) []MatchResult {
	var results []MatchResult

	root.Walk(func(candidate *syntax.Node) bool {
		binding := make(Binding)
		if matchAt(p, candidate, binding) {
			results = append(results, MatchResult{Node: candidate, Binding: binding})
		}

		return true
	})

	return results
}

// MatchOne matches the pattern exactly at the given node.
func MatchOne(p *Pattern, node *syntax.Node) (Binding, bool) {
	binding := make(Binding)
	if !matchAt(p, node, binding) {
		return nil, false
	}

	return binding, true
}

// matchAt matches a pattern against a node, accumulating hole bindings.
// A repeated hole index must capture structurally equal subtrees.
func matchAt(p *Pattern, n *syntax.Node, binding Binding) bool {
	if p == nil || n == nil {
		return p == nil && n == nil
	}

	if p.IsHole() {
		if bound, ok := binding[p.Hole]; ok {
			return bound.Equal(n)
		}

		binding[p.Hole] = n

		return true
	}

	if p.Kind != n.Kind || p.Token != n.Token || len(p.Children) != len(n.Children) {
		return false
	}

	for i, child := range p.Children {
		if !matchAt(child, n.Children[i], binding) {
			return false
		}
	}

	return true
}
