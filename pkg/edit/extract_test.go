package edit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

const beforeJava = `class Config {
    void load() {
        String value = new String();
        use(value);
    }
}
`

const afterJava = `class Config {
    void load() {
        String value = "";
        use(value);
    }
}
`

func TestExtractor_SingleEdit(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(syntax.NewParser(), 0)

	edits, err := extractor.Extract(context.Background(), []byte(beforeJava), []byte(afterJava), "Config.java", "java")
	require.NoError(t, err)
	require.Len(t, edits, 1)

	mined := edits[0]

	assert.Equal(t, "Config.java", mined.File)
	assert.Equal(t, "java", mined.Language)
	assert.Contains(t, mined.BeforeText, "new String()")
	assert.Contains(t, mined.AfterText, `""`)
	assert.NotEmpty(t, mined.Fingerprint)
	assert.NotNil(t, mined.Before)
	assert.NotNil(t, mined.After)
}

func TestExtractor_NoChange(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(syntax.NewParser(), 0)

	edits, err := extractor.Extract(context.Background(), []byte(beforeJava), []byte(beforeJava), "Config.java", "java")
	require.NoError(t, err)

	assert.Empty(t, edits)
}

func TestExtractor_FragmentCap(t *testing.T) {
	t.Parallel()

	// A cap of 1 is below any real fragment, so every region is discarded.
	extractor := NewExtractor(syntax.NewParser(), 1)

	edits, err := extractor.Extract(context.Background(), []byte(beforeJava), []byte(afterJava), "Config.java", "java")
	require.NoError(t, err)

	assert.Empty(t, edits)
}

func TestExtractor_UnparsableInput(t *testing.T) {
	t.Parallel()

	extractor := NewExtractor(syntax.NewParser(), 0)

	_, err := extractor.Extract(context.Background(), []byte("x"), []byte("y"), "f.zz", "no_such_lang")
	require.Error(t, err)
}

func TestDiffRegions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		before string
		after  string
		want   int
	}{
		{name: "identical", before: "a\nb\n", after: "a\nb\n", want: 0},
		{name: "one change", before: "a\nb\nc\n", after: "a\nX\nc\n", want: 1},
		{name: "two separated changes", before: "a\nb\nc\nd\ne\n", after: "A\nb\nc\nd\nE\n", want: 2},
		{name: "pure insertion", before: "a\nb\n", after: "a\nx\nb\n", want: 1},
		{name: "pure deletion", before: "a\nx\nb\n", after: "a\nb\n", want: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Len(t, diffRegions(tc.before, tc.after), tc.want)
		})
	}
}

func TestDiffRegions_LineNumbers(t *testing.T) {
	t.Parallel()

	regions := diffRegions("a\nb\nc\n", "a\nX\nc\n")
	require.Len(t, regions, 1)

	assert.Equal(t, uint(2), regions[0].beforeStart)
	assert.Equal(t, uint(2), regions[0].beforeEnd)
	assert.Equal(t, uint(2), regions[0].afterStart)
	assert.Equal(t, uint(2), regions[0].afterEnd)
}

func TestSet_AppendDeduplicates(t *testing.T) {
	t.Parallel()

	set := NewSet()

	first := &Edit{Fingerprint: "fp1"}
	second := &Edit{Fingerprint: "fp1"}
	third := &Edit{Fingerprint: "fp2"}

	assert.True(t, set.Append(first))
	assert.False(t, set.Append(second))
	assert.True(t, set.Append(third))

	assert.Equal(t, 2, set.Len())
	assert.Equal(t, 1, set.Stats.Duplicates)
}

func TestSet_Merge(t *testing.T) {
	t.Parallel()

	left := NewSet()
	left.Append(&Edit{Fingerprint: "fp1"})
	left.Stats.Commits = 3

	right := NewSet()
	right.Append(&Edit{Fingerprint: "fp1"})
	right.Append(&Edit{Fingerprint: "fp2"})
	right.Stats.Commits = 2

	left.Merge(right)

	assert.Equal(t, 2, left.Len())
	assert.Equal(t, 5, left.Stats.Commits)
}
