package template

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revisar/pkg/edit"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// mineOne extracts the single edit between two versions of a Java file.
func mineOne(t *testing.T, before, after, repo string) *edit.Edit {
	t.Helper()

	extractor := edit.NewExtractor(syntax.NewParser(), edit.DefaultMaxFragmentNodes)

	edits, err := extractor.Extract(context.Background(), []byte(before), []byte(after), "Main.java", "java")
	require.NoError(t, err)
	require.Len(t, edits, 1)

	edits[0].Repo = repo

	return edits[0]
}

func javaMethod(body string) string {
	return "class Main {\n    void run() {\n        " + body + "\n    }\n}\n"
}

func TestSynthesize_EmptyCluster(t *testing.T) {
	t.Parallel()

	_, err := Synthesize(nil, DefaultMaxHoles)
	require.ErrorIs(t, err, ErrEmptyCluster)
}

func TestSynthesize_MixedLanguages(t *testing.T) {
	t.Parallel()

	members := []*edit.Edit{
		{Language: "java"},
		{Language: "go"},
	}

	_, err := Synthesize(members, DefaultMaxHoles)
	require.ErrorIs(t, err, ErrMixedLanguages)
}

func TestSynthesize_HoleBudget(t *testing.T) {
	t.Parallel()

	pair := func(left, right string) *syntax.Node {
		return &syntax.Node{
			Kind: "assign",
			Children: []*syntax.Node{
				{Kind: "identifier", Token: left},
				{Kind: "identifier", Token: right},
			},
		}
	}
	after := &syntax.Node{Kind: "return"}

	members := []*edit.Edit{
		{Language: "java", Before: pair("a", "b"), After: after},
		{Language: "java", Before: pair("c", "d"), After: after},
	}

	_, err := Synthesize(members, 1)
	require.ErrorIs(t, err, ErrTooGeneral)
}

func TestSynthesize_UnderivableRewrite(t *testing.T) {
	t.Parallel()

	// Identical before sides give a hole-free match pattern, so the differing
	// after sides have nowhere to draw their hole from.
	before := &syntax.Node{Kind: "return"}

	members := []*edit.Edit{
		{Language: "java", Before: before, After: &syntax.Node{Kind: "identifier", Token: "a"}},
		{Language: "java", Before: before, After: &syntax.Node{Kind: "identifier", Token: "b"}},
	}

	_, err := Synthesize(members, DefaultMaxHoles)
	require.ErrorIs(t, err, ErrUnsound)
}

func TestSynthesize_EndToEnd(t *testing.T) {
	t.Parallel()

	first := mineOne(t,
		javaMethod(`String s = new String();`),
		javaMethod(`String s = "";`),
		"repo-a")
	second := mineOne(t,
		javaMethod(`String name = new String();`),
		javaMethod(`String name = "";`),
		"repo-b")

	tpl, err := Synthesize([]*edit.Edit{first, second}, DefaultMaxHoles)
	require.NoError(t, err)

	assert.Equal(t, "java", tpl.Language)
	assert.Equal(t, 1, tpl.HoleCount)
	assert.Equal(t, 2, tpl.Support)
	assert.Equal(t, 2, tpl.Repos)
	assert.Equal(t, `String ${1} = "";`, tpl.Rewrite)
	assert.Equal(t, `String s = new String();`, tpl.ExampleBefore)
	assert.Equal(t, `String s = "";`, tpl.ExampleAfter)
}

func TestSynthesize_SharedRewriteHole(t *testing.T) {
	t.Parallel()

	// After sides double their identifier, so anti-unification shares one
	// rewrite hole across two sites. Both sites must become placeholders.
	member := func(repo, name string) *edit.Edit {
		identifier := func(start uint) *syntax.Node {
			return &syntax.Node{
				Kind:  "identifier",
				Token: name,
				Span:  syntax.Span{StartByte: start, EndByte: start + 1},
			}
		}

		return &edit.Edit{
			Repo:     repo,
			Language: "java",
			Before:   identifier(0),
			After: &syntax.Node{
				Kind: "binary_expression",
				Span: syntax.Span{StartByte: 0, EndByte: 5},
				Children: []*syntax.Node{
					identifier(0),
					{Kind: "+", Token: "+", Span: syntax.Span{StartByte: 2, EndByte: 3}},
					identifier(4),
				},
			},
			BeforeText: name,
			AfterText:  name + " + " + name,
		}
	}

	tpl, err := Synthesize([]*edit.Edit{member("repo-a", "x"), member("repo-b", "y")}, DefaultMaxHoles)
	require.NoError(t, err)

	assert.Equal(t, 1, tpl.HoleCount)
	assert.Equal(t, "${1} + ${1}", tpl.Rewrite)

	bound := &syntax.Node{Kind: "identifier", Token: "z", Span: syntax.Span{StartByte: 0, EndByte: 1}}
	assert.Equal(t, "z + z", expandSkeleton(tpl.Rewrite, Binding{1: bound}, []byte("z")))
}

func TestApply_RewritesMatches(t *testing.T) {
	t.Parallel()

	first := mineOne(t,
		javaMethod(`String s = new String();`),
		javaMethod(`String s = "";`),
		"repo-a")
	second := mineOne(t,
		javaMethod(`String name = new String();`),
		javaMethod(`String name = "";`),
		"repo-b")

	tpl, err := Synthesize([]*edit.Edit{first, second}, DefaultMaxHoles)
	require.NoError(t, err)

	src := []byte(javaMethod(`String message = new String();`))

	rewritten, count, err := Apply(context.Background(), tpl, syntax.NewParser(), src)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Contains(t, string(rewritten), `String message = "";`)
	assert.NotContains(t, string(rewritten), "new String()")
}

func TestApply_NoMatches(t *testing.T) {
	t.Parallel()

	first := mineOne(t,
		javaMethod(`String s = new String();`),
		javaMethod(`String s = "";`),
		"repo-a")
	second := mineOne(t,
		javaMethod(`String name = new String();`),
		javaMethod(`String name = "";`),
		"repo-b")

	tpl, err := Synthesize([]*edit.Edit{first, second}, DefaultMaxHoles)
	require.NoError(t, err)

	src := []byte(javaMethod(`int n = 0;`))

	rewritten, count, err := Apply(context.Background(), tpl, syntax.NewParser(), src)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, src, rewritten)
}

func TestExpandSkeleton(t *testing.T) {
	t.Parallel()

	src := []byte("foo bar")
	binding := Binding{
		1: {Kind: "identifier", Token: "foo", Span: syntax.Span{StartByte: 0, EndByte: 3}},
	}

	assert.Equal(t, `String foo = "";`, expandSkeleton(`String ${1} = "";`, binding, src))
	assert.Equal(t, "no holes", expandSkeleton("no holes", binding, src))
}

func TestValidateJSON(t *testing.T) {
	t.Parallel()

	valid := `{
		"templates": [
			{
				"id": 1,
				"language": "java",
				"match": {"kind": "expression_statement"},
				"rewrite": "${1};"
			}
		]
	}`
	require.NoError(t, ValidateJSON([]byte(valid)))

	missingLanguage := `{
		"templates": [
			{"id": 1, "match": {}, "rewrite": ""}
		]
	}`
	err := ValidateJSON([]byte(missingLanguage))
	require.ErrorIs(t, err, ErrSchemaViolation)
	assert.True(t, strings.Contains(err.Error(), "language"))
}
