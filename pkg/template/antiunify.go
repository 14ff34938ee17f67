package template

import (
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// AntiUnify computes the least general generalization of two syntax trees.
// Mismatching subtrees become holes; the same mismatching pair occurring more
// than once shares a hole index. The returned cost is the number of concrete
// nodes abstracted away, summed over both trees.
func AntiUnify(a, b *syntax.Node) (*Pattern, int) {
	return antiUnifyPatterns(fromNode(a), fromNode(b))
}

// antiUnifyPatterns generalizes two patterns, merging their hole spaces.
// Hole indices in the result are renumbered in first-occurrence order.
func antiUnifyPatterns(a, b *Pattern) (*Pattern, int) {
	au := &antiUnifier{holes: make(map[[2]string]int)}
	generalized := au.generalize(a, b)

	renumberHoles(generalized)

	return generalized, au.cost
}

// antiUnifier tracks shared holes and accumulated abstraction cost.
type antiUnifier struct {
	holes map[[2]string]int
	next  int
	cost  int
}

func (au *antiUnifier) generalize(a, b *Pattern) *Pattern {
	if a == nil || b == nil {
		return au.hole(a, b)
	}

	// An existing hole swallows whatever it is generalized against.
	if a.IsHole() || b.IsHole() {
		return au.hole(a, b)
	}

	if a.Kind != b.Kind || a.Token != b.Token || len(a.Children) != len(b.Children) {
		return au.hole(a, b)
	}

	merged := &Pattern{Kind: a.Kind, Token: a.Token}

	if len(a.Children) > 0 {
		merged.Children = make([]*Pattern, len(a.Children))
		for i := range a.Children {
			merged.Children[i] = au.generalize(a.Children[i], b.Children[i])
		}
	}

	return merged
}

// hole abstracts a mismatching pair into a hole node, reusing the index for
// repeated pairs so consistent substructure stays consistent in the pattern.
func (au *antiUnifier) hole(a, b *Pattern) *Pattern {
	key := [2]string{a.fingerprint(), b.fingerprint()}

	idx, ok := au.holes[key]
	if !ok {
		au.next++
		idx = au.next
		au.holes[key] = idx
	}

	au.cost += a.Size() + b.Size()

	return &Pattern{Hole: idx}
}

// renumberHoles rewrites hole indices into dense first-occurrence order.
func renumberHoles(p *Pattern) {
	mapping := make(map[int]int)

	p.walk(func(node *Pattern) {
		if !node.IsHole() {
			return
		}

		renumbered, ok := mapping[node.Hole]
		if !ok {
			renumbered = len(mapping) + 1
			mapping[node.Hole] = renumbered
		}

		node.Hole = renumbered
	})
}

// AntiUnifyCost returns the normalized abstraction cost of generalizing two
// trees, in [0, 1]. Zero means structurally identical, one means nothing in
// common.
func AntiUnifyCost(a, b *syntax.Node) float64 {
	total := a.Size() + b.Size()
	if total == 0 {
		return 0
	}

	_, cost := AntiUnify(a, b)

	return float64(cost) / float64(total)
}
