// Package syntax provides tree-sitter based parsing into a language-neutral
// syntax node model used by edit extraction and template matching.
package syntax

import (
	"crypto/sha1" //nolint:gosec // SHA1 used for content fingerprinting, not security.
	"encoding/hex"
	"strconv"

	"github.com/Sumatoshi-tech/revisar/pkg/safeconv"
)

// Span holds the source location of a node. Lines and columns are 1-based,
// byte offsets are 0-based.
type Span struct {
	StartLine uint `json:"start_line"`
	StartCol  uint `json:"start_col"`
	StartByte uint `json:"start_byte"`
	EndLine   uint `json:"end_line"`
	EndCol    uint `json:"end_col"`
	EndByte   uint `json:"end_byte"`
}

// Node is a language-neutral syntax tree node. Kind is the tree-sitter node
// type, Token is the source text for leaf nodes only.
type Node struct {
	Kind     string  `json:"kind"`
	Token    string  `json:"token,omitempty"`
	Span     Span    `json:"span"`
	Children []*Node `json:"children,omitempty"`
}

// IsLeaf returns true if the node has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Size returns the number of nodes in the subtree rooted at n.
func (n *Node) Size() int {
	if n == nil {
		return 0
	}

	size := 1
	for _, child := range n.Children {
		size += child.Size()
	}

	return size
}

// Walk visits n and all descendants in pre-order. Returning false from the
// visitor skips the node's children.
func (n *Node) Walk(visit func(*Node) bool) {
	if n == nil {
		return
	}

	if !visit(n) {
		return
	}

	for _, child := range n.Children {
		child.Walk(visit)
	}
}

// Find returns all descendants (including n) for which pred returns true.
func (n *Node) Find(pred func(*Node) bool) []*Node {
	var found []*Node

	n.Walk(func(node *Node) bool {
		if pred(node) {
			found = append(found, node)
		}

		return true
	})

	return found
}

// Tokens returns the leaf tokens of the subtree in source order.
func (n *Node) Tokens() []string {
	var tokens []string

	n.Walk(func(node *Node) bool {
		if node.IsLeaf() && node.Token != "" {
			tokens = append(tokens, node.Token)
		}

		return true
	})

	return tokens
}

// Text returns the source text covered by the node's span.
func (n *Node) Text(src []byte) string {
	if n == nil || n.Span.EndByte > safeconv.MustIntToUint(len(src)) || n.Span.StartByte > n.Span.EndByte {
		return ""
	}

	return string(src[n.Span.StartByte:n.Span.EndByte])
}

// Equal reports whether two subtrees have identical structure, kinds, and tokens.
// Spans are ignored: the same code at different locations is equal.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}

	if n.Kind != other.Kind || n.Token != other.Token || len(n.Children) != len(other.Children) {
		return false
	}

	for i, child := range n.Children {
		if !child.Equal(other.Children[i]) {
			return false
		}
	}

	return true
}

// Clone returns a deep copy of the subtree.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	clone := &Node{
		Kind:  n.Kind,
		Token: n.Token,
		Span:  n.Span,
	}

	if len(n.Children) > 0 {
		clone.Children = make([]*Node, len(n.Children))
		for i, child := range n.Children {
			clone.Children[i] = child.Clone()
		}
	}

	return clone
}

// Fingerprint returns a stable hex digest of the subtree's kind/token
// structure. Spans do not contribute: structurally identical fragments at
// different locations share a fingerprint.
func (n *Node) Fingerprint() string {
	hasher := sha1.New() //nolint:gosec // content fingerprinting, not security.
	n.hashInto(hasher.Write)

	return hex.EncodeToString(hasher.Sum(nil))
}

func (n *Node) hashInto(write func([]byte) (int, error)) {
	if n == nil {
		return
	}

	_, _ = write([]byte(n.Kind))
	_, _ = write([]byte{0x1f})
	_, _ = write([]byte(n.Token))
	_, _ = write([]byte{0x1e})
	_, _ = write([]byte(strconv.Itoa(len(n.Children))))

	for _, child := range n.Children {
		child.hashInto(write)
	}
}
