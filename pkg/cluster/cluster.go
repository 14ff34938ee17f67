package cluster

import (
	"sort"

	"github.com/Sumatoshi-tech/revisar/pkg/edit"
)

// Defaults for the clustering stage.
const (
	// DefaultThreshold is the maximum distance to a group exemplar.
	DefaultThreshold = 0.35
	// DefaultMinSize drops singleton groups, which cannot generalize.
	DefaultMinSize = 2
)

// Group is a set of edits close enough to share one template.
type Group struct {
	ID int `json:"id"`
	// Exemplar is the member every other member was compared against.
	Exemplar *edit.Edit   `json:"exemplar"`
	Members  []*edit.Edit `json:"members"`
	// Repos is the number of distinct repositories contributing members.
	Repos int `json:"repos"`
}

// Result carries the surviving groups and the stage statistics.
type Result struct {
	Groups []*Group `json:"groups"`
	Stats  Stats    `json:"stats"`
}

// Stats summarizes a clustering run.
type Stats struct {
	Edits     int `json:"edits"`
	Groups    int `json:"groups"`
	Dropped   int `json:"dropped"`
	Clustered int `json:"clustered"`
}

// Options tunes the clustering stage. Zero values take the defaults.
type Options struct {
	Threshold float64
	MinSize   int
}

func (o Options) withDefaults() Options {
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}

	if o.MinSize < 1 {
		o.MinSize = DefaultMinSize
	}

	return o
}

// Cluster greedily assigns each edit to the first group whose exemplar lies
// within the distance threshold, founding a new group when none does. Inputs
// are ordered by fingerprint first, so the grouping is deterministic.
func Cluster(edits []*edit.Edit, opts Options) *Result {
	opts = opts.withDefaults()

	ordered := make([]*edit.Edit, len(edits))
	copy(ordered, edits)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Fingerprint < ordered[j].Fingerprint
	})

	var groups []*Group

	for _, candidate := range ordered {
		assigned := false

		for _, group := range groups {
			if Distance(group.Exemplar, candidate) <= opts.Threshold {
				group.Members = append(group.Members, candidate)
				assigned = true

				break
			}
		}

		if !assigned {
			groups = append(groups, &Group{
				Exemplar: candidate,
				Members:  []*edit.Edit{candidate},
			})
		}
	}

	result := &Result{Stats: Stats{Edits: len(ordered)}}

	for _, group := range groups {
		if len(group.Members) < opts.MinSize {
			result.Stats.Dropped++

			continue
		}

		group.ID = len(result.Groups) + 1
		group.Repos = distinctRepos(group.Members)
		result.Groups = append(result.Groups, group)
		result.Stats.Clustered += len(group.Members)
	}

	result.Stats.Groups = len(result.Groups)

	return result
}

func distinctRepos(members []*edit.Edit) int {
	repos := make(map[string]struct{}, len(members))
	for _, member := range members {
		repos[member.Repo] = struct{}{}
	}

	return len(repos)
}
