package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

func TestMatchOne_ConcretePattern(t *testing.T) {
	t.Parallel()

	pattern := fromNode(call("f", "1"))

	binding, ok := MatchOne(pattern, call("f", "1"))
	require.True(t, ok)
	assert.Empty(t, binding)

	_, ok = MatchOne(pattern, call("g", "1"))
	assert.False(t, ok)
}

func TestMatchOne_HoleBindsSubtree(t *testing.T) {
	t.Parallel()

	pattern := &Pattern{
		Kind: "call",
		Children: []*Pattern{
			{Kind: "identifier", Token: "f"},
			{Hole: 1},
		},
	}

	binding, ok := MatchOne(pattern, call("f", "42"))
	require.True(t, ok)
	require.Contains(t, binding, 1)
	assert.Equal(t, "42", binding[1].Token)
}

func TestMatchOne_RepeatedHoleMustAgree(t *testing.T) {
	t.Parallel()

	pattern := &Pattern{
		Kind:     "assign",
		Children: []*Pattern{{Hole: 1}, {Hole: 1}},
	}

	same := &syntax.Node{
		Kind: "assign",
		Children: []*syntax.Node{
			{Kind: "identifier", Token: "x"},
			{Kind: "identifier", Token: "x"},
		},
	}
	different := &syntax.Node{
		Kind: "assign",
		Children: []*syntax.Node{
			{Kind: "identifier", Token: "x"},
			{Kind: "identifier", Token: "y"},
		},
	}

	_, ok := MatchOne(pattern, same)
	assert.True(t, ok)

	_, ok = MatchOne(pattern, different)
	assert.False(t, ok)
}

func TestMatchAll_FindsNestedOccurrences(t *testing.T) {
	t.Parallel()

	pattern := &Pattern{Kind: "identifier", Token: "f"}

	tree := &syntax.Node{
		Kind: "block",
		Children: []*syntax.Node{
			call("f", "1"),
			call("g", "2"),
			call("f", "3"),
		},
	}

	results := MatchAll(pattern, tree)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.Equal(t, "f", result.Node.Token)
	}
}
