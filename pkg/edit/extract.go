package edit

import (
	"context"
	"fmt"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/revisar/pkg/safeconv"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
	"github.com/Sumatoshi-tech/revisar/pkg/textutil"
)

// DefaultMaxFragmentNodes caps the syntax-node count of an extracted fragment.
// Larger fragments are mass rewrites, not repeatable edits.
const DefaultMaxFragmentNodes = 200

// Extractor extracts edits from before/after file versions.
type Extractor struct {
	parser           *syntax.Parser
	maxFragmentNodes int
}

// NewExtractor creates an extractor using the given parser. maxFragmentNodes
// values below 1 fall back to DefaultMaxFragmentNodes.
func NewExtractor(parser *syntax.Parser, maxFragmentNodes int) *Extractor {
	if maxFragmentNodes < 1 {
		maxFragmentNodes = DefaultMaxFragmentNodes
	}

	return &Extractor{parser: parser, maxFragmentNodes: maxFragmentNodes}
}

// Extract diffs two versions of a file, parses both, and returns one edit per
// changed region, each anchored at the smallest enclosing syntax fragment.
// Whole-file rewrites and oversized fragments produce no edits.
func (x *Extractor) Extract(ctx context.Context, before, after []byte, file, lang string) ([]*Edit, error) {
	regions := diffRegions(string(before), string(after))
	if len(regions) == 0 {
		return nil, nil
	}

	beforeRoot, beforeErr := x.parser.ParseLanguage(ctx, lang, before)
	if beforeErr != nil {
		return nil, fmt.Errorf("parse before version of %s: %w", file, beforeErr)
	}

	afterRoot, afterErr := x.parser.ParseLanguage(ctx, lang, after)
	if afterErr != nil {
		return nil, fmt.Errorf("parse after version of %s: %w", file, afterErr)
	}

	edits := make([]*Edit, 0, len(regions))

	for _, region := range regions {
		beforeLo, beforeHi, beforeOK := byteRange(before, region.beforeStart, region.beforeEnd)
		afterLo, afterHi, afterOK := byteRange(after, region.afterStart, region.afterEnd)

		if !beforeOK || !afterOK {
			continue
		}

		beforeFrag := enclosingFragment(beforeRoot, beforeLo, beforeHi)
		afterFrag := enclosingFragment(afterRoot, afterLo, afterHi)

		if beforeFrag == nil || afterFrag == nil {
			continue
		}

		// Whole-file pairs carry no reusable edit.
		if beforeFrag == beforeRoot && afterFrag == afterRoot {
			continue
		}

		if beforeFrag.Size() > x.maxFragmentNodes || afterFrag.Size() > x.maxFragmentNodes {
			continue
		}

		// Formatting-only changes leave the structure untouched.
		if beforeFrag.Equal(afterFrag) {
			continue
		}

		mined := &Edit{
			File:       file,
			Language:   lang,
			Before:     beforeFrag.Clone(),
			After:      afterFrag.Clone(),
			BeforeText: beforeFrag.Text(before),
			AfterText:  afterFrag.Text(after),
		}
		mined.ComputeFingerprint()

		edits = append(edits, mined)
	}

	return dedupe(edits), nil
}

// region is a changed line range pair: [beforeStart, beforeEnd] in the old
// version maps to [afterStart, afterEnd] in the new one. Lines are 1-based;
// end < start means the side is empty (pure insertion or deletion).
type region struct {
	beforeStart, beforeEnd uint
	afterStart, afterEnd   uint
}

// diffRegions computes changed line ranges with a line-granularity diff.
func diffRegions(before, after string) []*region {
	dmp := diffmatchpatch.New()

	beforeChars, afterChars, lineIndex := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(beforeChars, afterChars, false), lineIndex)

	var (
		regions    []*region
		current    *region
		beforeLine = uint(1)
		afterLine  = uint(1)
	)

	for _, d := range diffs {
		lineCount := safeconv.MustIntToUint(textutil.CountLines([]byte(d.Text)))

		switch d.Type {
		case diffmatchpatch.DiffEqual:
			current = nil
			beforeLine += lineCount
			afterLine += lineCount
		case diffmatchpatch.DiffDelete:
			if current == nil {
				current = &region{
					beforeStart: beforeLine, beforeEnd: beforeLine - 1,
					afterStart: afterLine, afterEnd: afterLine - 1,
				}
				regions = append(regions, current)
			}

			current.beforeEnd = beforeLine + lineCount - 1
			beforeLine += lineCount
		case diffmatchpatch.DiffInsert:
			if current == nil {
				current = &region{
					beforeStart: beforeLine, beforeEnd: beforeLine - 1,
					afterStart: afterLine, afterEnd: afterLine - 1,
				}
				regions = append(regions, current)
			}

			current.afterEnd = afterLine + lineCount - 1
			afterLine += lineCount
		}
	}

	for _, r := range regions {
		r.anchorEmptySides()
	}

	return regions
}

// anchorEmptySides widens empty sides of a region to the neighboring line so
// pure insertions and deletions still resolve to an enclosing fragment.
func (r *region) anchorEmptySides() {
	if r.beforeEnd < r.beforeStart {
		if r.beforeStart > 1 {
			r.beforeStart--
		}

		r.beforeEnd = r.beforeStart
	}

	if r.afterEnd < r.afterStart {
		if r.afterStart > 1 {
			r.afterStart--
		}

		r.afterEnd = r.afterStart
	}
}

// byteRange converts a 1-based inclusive line range into the byte range
// [lo, hi) covering it, trimmed of surrounding whitespace. Returns ok=false
// when the range is out of bounds or holds no non-whitespace content.
func byteRange(src []byte, startLine, endLine uint) (uint, uint, bool) {
	if startLine < 1 || endLine < startLine {
		return 0, 0, false
	}

	starts := lineStarts(src)
	if startLine > uint(len(starts)) {
		return 0, 0, false
	}

	lo := starts[startLine-1]

	hi := uint(len(src))
	if endLine < uint(len(starts)) {
		hi = starts[endLine] - 1 // Exclude the newline terminating endLine.
	}

	// Trim surrounding whitespace so indentation does not widen the anchor.
	for lo < hi && isSpace(src[lo]) {
		lo++
	}

	for hi > lo && isSpace(src[hi-1]) {
		hi--
	}

	if lo >= hi {
		return 0, 0, false
	}

	return lo, hi, true
}

// lineStarts returns the byte offset of each line start.
func lineStarts(src []byte) []uint {
	starts := []uint{0}

	for i, b := range src {
		if b == '\n' && i+1 < len(src) {
			starts = append(starts, uint(i+1))
		}
	}

	return starts
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

// enclosingFragment returns the deepest node whose byte span covers [lo, hi).
func enclosingFragment(root *syntax.Node, lo, hi uint) *syntax.Node {
	if root == nil || root.Span.StartByte > lo || root.Span.EndByte < hi {
		return nil
	}

	for _, child := range root.Children {
		if found := enclosingFragment(child, lo, hi); found != nil {
			return found
		}
	}

	return root
}

// dedupe collapses edits with equal fingerprints, keeping the first.
func dedupe(edits []*Edit) []*Edit {
	if len(edits) < 2 {
		return edits
	}

	seen := make(map[string]struct{}, len(edits))
	distinct := edits[:0]

	for _, e := range edits {
		if _, dup := seen[e.Fingerprint]; dup {
			continue
		}

		seen[e.Fingerprint] = struct{}{}
		distinct = append(distinct, e)
	}

	return distinct
}
