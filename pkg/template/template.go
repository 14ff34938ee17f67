package template

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/revisar/pkg/edit"
	"github.com/Sumatoshi-tech/revisar/pkg/safeconv"
	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// Sentinel errors for template synthesis.
var (
	// ErrEmptyCluster indicates synthesis was attempted on an empty cluster.
	ErrEmptyCluster = errors.New("cannot synthesize template from empty cluster")
	// ErrMixedLanguages indicates the cluster spans multiple languages.
	ErrMixedLanguages = errors.New("cluster mixes languages")
	// ErrUnsound indicates a rewrite hole has no consistent source in the match
	// pattern across all cluster members.
	ErrUnsound = errors.New("rewrite hole not derivable from match pattern")
	// ErrTooGeneral indicates the synthesized pattern exceeds the hole budget.
	ErrTooGeneral = errors.New("template exceeds maximum hole count")
)

// DefaultMaxHoles is the default upper bound on distinct match holes.
const DefaultMaxHoles = 6

// Template is a reusable code transformation synthesized from a cluster of
// similar edits: a match pattern with holes, plus a textual rewrite skeleton
// whose ${N} placeholders reference match holes.
type Template struct {
	ID        int      `json:"id"`
	Language  string   `json:"language"`
	Match     *Pattern `json:"match"`
	Rewrite   string   `json:"rewrite"`
	HoleCount int      `json:"hole_count"`
	// Support is the number of mined edits the template generalizes.
	Support int `json:"support"`
	// Repos is the number of distinct repositories the edits came from.
	Repos int `json:"repos"`
	// ExampleBefore and ExampleAfter show one concrete instance.
	ExampleBefore string `json:"example_before"`
	ExampleAfter  string `json:"example_after"`
}

// Set is a persisted collection of templates.
type Set struct {
	Templates []*Template `json:"templates"`
}

// Synthesize generalizes a cluster of edits into a template. maxHoles values
// below 1 fall back to DefaultMaxHoles.
func Synthesize(members []*edit.Edit, maxHoles int) (*Template, error) {
	if len(members) == 0 {
		return nil, ErrEmptyCluster
	}

	if maxHoles < 1 {
		maxHoles = DefaultMaxHoles
	}

	language := members[0].Language
	for _, member := range members {
		if member.Language != language {
			return nil, fmt.Errorf("%w: %s vs %s", ErrMixedLanguages, language, member.Language)
		}
	}

	matchPattern := foldPatterns(members, func(m *edit.Edit) *Pattern { return fromNode(m.Before) })
	rewritePattern := foldPatterns(members, func(m *edit.Edit) *Pattern { return fromNode(m.After) })

	if matchPattern.HoleCount() > maxHoles {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooGeneral, matchPattern.HoleCount(), maxHoles)
	}

	holeMap, mapErr := mapRewriteHoles(matchPattern, rewritePattern, members)
	if mapErr != nil {
		return nil, mapErr
	}

	skeleton, skelErr := buildSkeleton(rewritePattern, members[0], holeMap)
	if skelErr != nil {
		return nil, skelErr
	}

	return &Template{
		Language:      language,
		Match:         matchPattern,
		Rewrite:       skeleton,
		HoleCount:     matchPattern.HoleCount(),
		Support:       len(members),
		Repos:         distinctRepos(members),
		ExampleBefore: members[0].BeforeText,
		ExampleAfter:  members[0].AfterText,
	}, nil
}

// foldPatterns anti-unifies the selected fragment across all members.
func foldPatterns(members []*edit.Edit, fragment func(*edit.Edit) *Pattern) *Pattern {
	acc := fragment(members[0])

	for _, member := range members[1:] {
		acc, _ = antiUnifyPatterns(acc, fragment(member))
	}

	return acc
}

// mapRewriteHoles determines, for each rewrite hole, the match hole that binds
// the same source subtree in every member. The result maps rewrite hole index
// to match hole index.
func mapRewriteHoles(matchPattern, rewritePattern *Pattern, members []*edit.Edit) (map[int]int, error) {
	rewriteHoles := holeIndices(rewritePattern)
	if len(rewriteHoles) == 0 {
		return map[int]int{}, nil
	}

	matchHoles := holeIndices(matchPattern)

	// Per-member bindings of both patterns against the member's fragments.
	matchBindings := make([]Binding, len(members))
	rewriteBindings := make([]Binding, len(members))

	for i, member := range members {
		mb, mOK := MatchOne(matchPattern, member.Before)
		rb, rOK := MatchOne(rewritePattern, member.After)

		if !mOK || !rOK {
			return nil, ErrUnsound
		}

		matchBindings[i] = mb
		rewriteBindings[i] = rb
	}

	holeMap := make(map[int]int, len(rewriteHoles))

	for _, rewriteHole := range rewriteHoles {
		mapped := false

		for _, matchHole := range matchHoles {
			if holeAgreesEverywhere(rewriteHole, matchHole, rewriteBindings, matchBindings) {
				holeMap[rewriteHole] = matchHole
				mapped = true

				break
			}
		}

		if !mapped {
			return nil, fmt.Errorf("%w: rewrite hole %d", ErrUnsound, rewriteHole)
		}
	}

	return holeMap, nil
}

// holeAgreesEverywhere checks that a rewrite hole and a match hole capture
// structurally equal subtrees in every member.
func holeAgreesEverywhere(rewriteHole, matchHole int, rewriteBindings, matchBindings []Binding) bool {
	for i := range rewriteBindings {
		captured, rOK := rewriteBindings[i][rewriteHole]
		source, mOK := matchBindings[i][matchHole]

		if !rOK || !mOK || !captured.Equal(source) {
			return false
		}
	}

	return true
}

// holeSite is one occurrence of a hole in the exemplar's rewrite fragment.
// A hole shared across several sites yields one entry per site.
type holeSite struct {
	hole int
	node *syntax.Node
}

// holeSites walks the pattern and the fragment in lockstep, collecting the
// subtree under every hole occurrence.
func holeSites(p *Pattern, n *syntax.Node) ([]holeSite, bool) {
	if p == nil || n == nil {
		return nil, p == nil && n == nil
	}

	if p.IsHole() {
		return []holeSite{{hole: p.Hole, node: n}}, true
	}

	if p.Kind != n.Kind || p.Token != n.Token || len(p.Children) != len(n.Children) {
		return nil, false
	}

	var sites []holeSite

	for i, child := range p.Children {
		childSites, ok := holeSites(child, n.Children[i])
		if !ok {
			return nil, false
		}

		sites = append(sites, childSites...)
	}

	return sites, true
}

// buildSkeleton renders the rewrite side of the exemplar member as text with
// hole-bound subtree spans replaced by ${N} placeholders (N is a match hole).
// Every occurrence of a shared hole becomes a placeholder.
func buildSkeleton(rewritePattern *Pattern, exemplar *edit.Edit, holeMap map[int]int) (string, error) {
	sites, ok := holeSites(rewritePattern, exemplar.After)
	if !ok {
		return "", ErrUnsound
	}

	text := []byte(exemplar.AfterText)
	base := exemplar.After.Span.StartByte

	// Replace back-to-front so earlier spans stay valid.
	type replacement struct {
		start, end  uint
		placeholder string
	}

	replacements := make([]replacement, 0, len(sites))

	for _, site := range sites {
		matchHole, mapped := holeMap[site.hole]
		if !mapped {
			return "", fmt.Errorf("%w: rewrite hole %d", ErrUnsound, site.hole)
		}

		if site.node.Span.StartByte < base || site.node.Span.EndByte > base+safeconv.MustIntToUint(len(text)) {
			return "", fmt.Errorf("%w: hole span outside fragment", ErrUnsound)
		}

		replacements = append(replacements, replacement{
			start:       site.node.Span.StartByte - base,
			end:         site.node.Span.EndByte - base,
			placeholder: "${" + strconv.Itoa(matchHole) + "}",
		})
	}

	sort.Slice(replacements, func(i, j int) bool {
		return replacements[i].start > replacements[j].start
	})

	for _, r := range replacements {
		text = append(text[:r.start], append([]byte(r.placeholder), text[r.end:]...)...)
	}

	return string(text), nil
}

// holeIndices returns the distinct hole indices of a pattern in ascending order.
func holeIndices(p *Pattern) []int {
	seen := make(map[int]struct{})

	p.walk(func(node *Pattern) {
		if node.IsHole() {
			seen[node.Hole] = struct{}{}
		}
	})

	indices := make([]int, 0, len(seen))
	for idx := range seen {
		indices = append(indices, idx)
	}

	sort.Ints(indices)

	return indices
}

// distinctRepos counts distinct repository names among members.
func distinctRepos(members []*edit.Edit) int {
	repos := make(map[string]struct{}, len(members))
	for _, member := range members {
		repos[member.Repo] = struct{}{}
	}

	return len(repos)
}

// expandSkeleton substitutes ${N} placeholders with the text captured by the
// corresponding match hole.
func expandSkeleton(skeleton string, binding Binding, src []byte) string {
	var sb strings.Builder

	for i := 0; i < len(skeleton); {
		if skeleton[i] == '$' && i+1 < len(skeleton) && skeleton[i+1] == '{' {
			end := strings.IndexByte(skeleton[i:], '}')
			if end > 0 {
				idx, err := strconv.Atoi(skeleton[i+2 : i+end])
				if err == nil {
					if node, bound := binding[idx]; bound {
						sb.WriteString(node.Text(src))
					}

					i += end + 1

					continue
				}
			}
		}

		sb.WriteByte(skeleton[i])
		i++
	}

	return sb.String()
}
