// Package cluster groups structurally similar edits so that each group can be
// generalized into a single transformation template.
package cluster

import (
	"strings"

	"github.com/Sumatoshi-tech/revisar/pkg/edit"
	"github.com/Sumatoshi-tech/revisar/pkg/levenshtein"
	"github.com/Sumatoshi-tech/revisar/pkg/template"
)

// Distance weights. Structure dominates; the token component separates edits
// whose trees generalize cheaply but whose text diverges.
const (
	structureWeight = 0.7
	tokenWeight     = 0.3
)

// Distance returns a normalized dissimilarity between two edits in [0, 1].
// Edits whose fragments root at different node kinds never cluster together.
// Edits with missing fragments never cluster; artifacts are user-editable JSON.
func Distance(a, b *edit.Edit) float64 {
	if a.Before == nil || a.After == nil || b.Before == nil || b.After == nil {
		return 1.0
	}

	if a.Language != b.Language {
		return 1.0
	}

	if a.Before.Kind != b.Before.Kind || a.After.Kind != b.After.Kind {
		return 1.0
	}

	structural := (template.AntiUnifyCost(a.Before, b.Before) +
		template.AntiUnifyCost(a.After, b.After)) / 2

	textual := (tokenDistance(a.Before.Tokens(), b.Before.Tokens()) +
		tokenDistance(a.After.Tokens(), b.After.Tokens())) / 2

	return structureWeight*structural + tokenWeight*textual
}

// tokenDistance is the rune Levenshtein distance over joined token streams,
// normalized by the longer stream.
func tokenDistance(a, b []string) float64 {
	left := strings.Join(a, " ")
	right := strings.Join(b, " ")

	longest := len([]rune(left))
	if n := len([]rune(right)); n > longest {
		longest = n
	}

	if longest == 0 {
		return 0
	}

	var ctx levenshtein.Context

	return float64(ctx.Distance(left, right)) / float64(longest)
}
