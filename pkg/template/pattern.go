// Package template implements the generalization stage: anti-unification of
// edit fragments into patterns with holes, template synthesis from clusters,
// and template matching and application against new code.
package template

import (
	"fmt"
	"strings"

	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// Pattern is a syntax tree with holes. A node with Hole > 0 matches any
// subtree; equal hole indices must bind structurally equal subtrees.
type Pattern struct {
	Kind     string     `json:"kind,omitempty"`
	Token    string     `json:"token,omitempty"`
	Hole     int        `json:"hole,omitempty"`
	Children []*Pattern `json:"children,omitempty"`
}

// IsHole returns true if the pattern node is a hole.
func (p *Pattern) IsHole() bool {
	return p.Hole > 0
}

// Size returns the number of pattern nodes, counting a hole as one.
func (p *Pattern) Size() int {
	if p == nil {
		return 0
	}

	size := 1
	for _, child := range p.Children {
		size += child.Size()
	}

	return size
}

// HoleCount returns the number of distinct hole indices in the pattern.
func (p *Pattern) HoleCount() int {
	seen := make(map[int]struct{})
	p.walk(func(node *Pattern) {
		if node.IsHole() {
			seen[node.Hole] = struct{}{}
		}
	})

	return len(seen)
}

func (p *Pattern) walk(visit func(*Pattern)) {
	if p == nil {
		return
	}

	visit(p)

	for _, child := range p.Children {
		child.walk(visit)
	}
}

// String renders the pattern as an s-expression for display and debugging.
func (p *Pattern) String() string {
	var sb strings.Builder
	p.render(&sb)

	return sb.String()
}

func (p *Pattern) render(sb *strings.Builder) {
	if p == nil {
		return
	}

	if p.IsHole() {
		fmt.Fprintf(sb, "?%d", p.Hole)

		return
	}

	if len(p.Children) == 0 {
		if p.Token != "" {
			fmt.Fprintf(sb, "%q", p.Token)
		} else {
			sb.WriteString(p.Kind)
		}

		return
	}

	sb.WriteString("(")
	sb.WriteString(p.Kind)

	for _, child := range p.Children {
		sb.WriteString(" ")
		child.render(sb)
	}

	sb.WriteString(")")
}

// fromNode converts a concrete syntax node into a hole-free pattern.
func fromNode(n *syntax.Node) *Pattern {
	if n == nil {
		return nil
	}

	p := &Pattern{Kind: n.Kind, Token: n.Token}

	if len(n.Children) > 0 {
		p.Children = make([]*Pattern, len(n.Children))
		for i, child := range n.Children {
			p.Children[i] = fromNode(child)
		}
	}

	return p
}

// fingerprint returns a stable key for the pattern's structure.
func (p *Pattern) fingerprint() string {
	var sb strings.Builder
	p.render(&sb)

	return sb.String()
}
