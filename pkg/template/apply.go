package template

import (
	"context"
	"sort"

	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// Apply rewrites every non-overlapping occurrence of the template's match
// pattern in src and returns the rewritten source and the number of rewrites.
// Zero matches returns src unchanged.
func Apply(ctx context.Context, tpl *Template, parser *syntax.Parser, src []byte) ([]byte, int, error) {
	root, err := parser.ParseLanguage(ctx, tpl.Language, src)
	if err != nil {
		return nil, 0, err
	}

	matches := MatchAll(tpl.Match, root)
	if len(matches) == 0 {
		return src, 0, nil
	}

	accepted := filterOverlaps(matches)

	// Splice back-to-front so earlier spans stay valid.
	sort.Slice(accepted, func(i, j int) bool {
		return accepted[i].Node.Span.StartByte > accepted[j].Node.Span.StartByte
	})

	rewritten := make([]byte, len(src))
	copy(rewritten, src)

	for _, m := range accepted {
		replacement := expandSkeleton(tpl.Rewrite, m.Binding, src)
		start := m.Node.Span.StartByte
		end := m.Node.Span.EndByte

		rewritten = append(rewritten[:start], append([]byte(replacement), rewritten[end:]...)...)
	}

	return rewritten, len(accepted), nil
}

// filterOverlaps keeps outermost matches: a match nested inside or overlapping
// an already accepted one is dropped. Matches arrive in pre-order, so parents
// are seen before their children.
func filterOverlaps(matches []MatchResult) []MatchResult {
	accepted := make([]MatchResult, 0, len(matches))

	for _, m := range matches {
		overlaps := false

		for _, a := range accepted {
			if m.Node.Span.StartByte < a.Node.Span.EndByte && a.Node.Span.StartByte < m.Node.Span.EndByte {
				overlaps = true

				break
			}
		}

		if !overlaps {
			accepted = append(accepted, m)
		}
	}

	return accepted
}
