package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildTree constructs a small tree by hand:
//
//	call(identifier "f", literal "1")
func buildTree() *Node {
	return &Node{
		Kind: "call",
		Children: []*Node{
			{Kind: "identifier", Token: "f"},
			{Kind: "literal", Token: "1"},
		},
	}
}

func TestNode_Size(t *testing.T) {
	t.Parallel()

	tree := buildTree()

	assert.Equal(t, 3, tree.Size())
	assert.Equal(t, 0, (*Node)(nil).Size())
}

func TestNode_Equal(t *testing.T) {
	t.Parallel()

	left := buildTree()
	right := buildTree()

	// Spans are ignored.
	right.Span = Span{StartLine: 10, EndLine: 12}

	assert.True(t, left.Equal(right))

	right.Children[1].Token = "2"

	assert.False(t, left.Equal(right))
}

func TestNode_Clone(t *testing.T) {
	t.Parallel()

	tree := buildTree()
	clone := tree.Clone()

	require.True(t, tree.Equal(clone))

	clone.Children[0].Token = "g"

	assert.Equal(t, "f", tree.Children[0].Token)
}

func TestNode_Tokens(t *testing.T) {
	t.Parallel()

	tree := buildTree()

	assert.Equal(t, []string{"f", "1"}, tree.Tokens())
}

func TestNode_Text(t *testing.T) {
	t.Parallel()

	src := []byte("f(1)")
	tree := &Node{Kind: "call", Span: Span{StartByte: 0, EndByte: 4}}

	assert.Equal(t, "f(1)", tree.Text(src))

	outOfRange := &Node{Kind: "call", Span: Span{StartByte: 0, EndByte: 99}}

	assert.Empty(t, outOfRange.Text(src))
}

func TestNode_Fingerprint(t *testing.T) {
	t.Parallel()

	left := buildTree()
	right := buildTree()
	right.Span = Span{StartLine: 42}

	// Structurally identical trees share a fingerprint regardless of location.
	assert.Equal(t, left.Fingerprint(), right.Fingerprint())

	right.Children[0].Token = "g"

	assert.NotEqual(t, left.Fingerprint(), right.Fingerprint())
}

func TestNode_Find(t *testing.T) {
	t.Parallel()

	tree := buildTree()

	leaves := tree.Find(func(n *Node) bool { return n.IsLeaf() })

	assert.Len(t, leaves, 2)
}

func TestDetectLanguage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{name: "java extension", filename: "Main.java", want: "java"},
		{name: "go extension", filename: "main.go", want: "go"},
		{name: "python extension", filename: "script.py", want: "python"},
		{name: "kotlin script", filename: "build.gradle.kts", want: "kotlin"},
		{name: "unsupported", filename: "README.md", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, DetectLanguage(tc.filename, nil))
		})
	}
}

func TestSupportedLanguages(t *testing.T) {
	t.Parallel()

	langs := SupportedLanguages()

	assert.Contains(t, langs, "java")
	assert.Contains(t, langs, "go")
}
