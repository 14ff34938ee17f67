// Package edit defines the code-edit record mined from revision histories and
// the extraction of edits from before/after file versions.
package edit

import (
	"crypto/sha1" //nolint:gosec // content fingerprinting, not security.
	"encoding/hex"
	"time"

	"github.com/Sumatoshi-tech/revisar/pkg/syntax"
)

// Edit is a single mined code edit: the smallest changed syntax fragment pair
// between two versions of a file.
type Edit struct {
	// Repo is the repository path or name the edit was mined from.
	Repo string `json:"repo"`
	// Commit is the hex hash of the commit that introduced the edit.
	Commit string `json:"commit"`
	// File is the path of the changed file within the repository.
	File string `json:"file"`
	// Language is the detected source language.
	Language string `json:"language"`
	// Before is the changed fragment in the parent version.
	Before *syntax.Node `json:"before"`
	// After is the changed fragment in the child version.
	After *syntax.Node `json:"after"`
	// BeforeText and AfterText are the raw source slices of the fragments.
	BeforeText string `json:"before_text"`
	AfterText  string `json:"after_text"`
	// AuthorTime is when the commit was authored.
	AuthorTime time.Time `json:"author_time"`
	// Fingerprint identifies the before→after pair structurally; exact
	// duplicates across files and commits share a fingerprint.
	Fingerprint string `json:"fingerprint"`
}

// ComputeFingerprint fills in the edit's fingerprint from its fragments.
func (e *Edit) ComputeFingerprint() {
	hasher := sha1.New() //nolint:gosec // content fingerprinting, not security.
	_, _ = hasher.Write([]byte(e.Before.Fingerprint()))
	_, _ = hasher.Write([]byte{'>'})
	_, _ = hasher.Write([]byte(e.After.Fingerprint()))

	e.Fingerprint = hex.EncodeToString(hasher.Sum(nil))
}

// Stats counts what the extractor saw and skipped.
type Stats struct {
	Commits      int    `json:"commits"`
	FilesSeen    int    `json:"files_seen"`
	FilesSkipped int    `json:"files_skipped"`
	ParseErrors  int    `json:"parse_errors"`
	Duplicates   int    `json:"duplicates"`
	BytesScanned uint64 `json:"bytes_scanned"`
}

// Add accumulates another stats value into s.
func (s *Stats) Add(other Stats) {
	s.Commits += other.Commits
	s.FilesSeen += other.FilesSeen
	s.FilesSkipped += other.FilesSkipped
	s.ParseErrors += other.ParseErrors
	s.Duplicates += other.Duplicates
	s.BytesScanned += other.BytesScanned
}

// Set is a persisted collection of mined edits.
type Set struct {
	Edits []*Edit `json:"edits"`
	Stats Stats   `json:"stats"`

	// seen tracks fingerprints for duplicate collapsing. Not persisted.
	seen map[string]struct{}
}

// NewSet creates an empty edit set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Append adds an edit to the set, collapsing exact duplicates by fingerprint.
// Returns true if the edit was added.
func (s *Set) Append(e *Edit) bool {
	if s.seen == nil {
		s.seen = make(map[string]struct{}, len(s.Edits))
		for _, existing := range s.Edits {
			s.seen[existing.Fingerprint] = struct{}{}
		}
	}

	if _, dup := s.seen[e.Fingerprint]; dup {
		s.Stats.Duplicates++

		return false
	}

	s.seen[e.Fingerprint] = struct{}{}
	s.Edits = append(s.Edits, e)

	return true
}

// Merge folds another set into s, collapsing duplicates.
func (s *Set) Merge(other *Set) {
	for _, e := range other.Edits {
		s.Append(e)
	}

	s.Stats.Add(other.Stats)
}

// Len returns the number of distinct edits.
func (s *Set) Len() int {
	return len(s.Edits)
}
