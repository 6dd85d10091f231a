package types

import (
	"sort"

	"github.com/jonathan/candidate-ranker/internal/aspects"
)

// ScoreBreakdown is the per-aspect detail behind a composite score.
type ScoreBreakdown struct {
	CandidateID  string                  `json:"candidate_id"`
	AspectScores map[aspects.Key]float64 `json:"aspect_scores"`
	// MissingAspects lists catalog aspects the candidate has no embedding for.
	// They are scored with a neutral similarity of 0.
	MissingAspects []aspects.Key `json:"missing_aspects,omitempty"`
	// OverallSimilarity compares candidate-level and job-level embeddings.
	// Informational only, never part of the composite.
	OverallSimilarity float64 `json:"overall_similarity"`
	CompositeScore    float64 `json:"composite_score"`
}

// TopAspects returns up to n aspects ordered by similarity descending, then key ascending.
func (b ScoreBreakdown) TopAspects(n int) []aspects.Key {
	keys := make([]aspects.Key, 0, len(b.AspectScores))
	for k := range b.AspectScores {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		si, sj := b.AspectScores[keys[i]], b.AspectScores[keys[j]]
		if si != sj {
			return si > sj
		}
		return keys[i] < keys[j]
	})
	if n >= 0 && len(keys) > n {
		keys = keys[:n]
	}
	return keys
}

// RankedCandidate is one entry of a ranking.
type RankedCandidate struct {
	Rank           int            `json:"rank"`
	CandidateID    string         `json:"candidate_id"`
	Name           string         `json:"name,omitempty"`
	Title          string         `json:"title,omitempty"`
	Summary        string         `json:"summary,omitempty"`
	CompositeScore float64        `json:"composite_score"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
}

// RankedResult is ordered by composite score descending with ties broken by
// candidate ID ascending.
type RankedResult []RankedCandidate

// Top returns at most n leading entries.
func (r RankedResult) Top(n int) RankedResult {
	if n < 0 || n >= len(r) {
		return r
	}
	return r[:n]
}

// IDs returns the candidate IDs in rank order.
func (r RankedResult) IDs() []string {
	ids := make([]string, len(r))
	for i, c := range r {
		ids[i] = c.CandidateID
	}
	return ids
}

// Coverage counts, per aspect, how many ranked candidates carry an embedding for it.
func (r RankedResult) Coverage(catalog *aspects.Catalog) map[aspects.Key]int {
	coverage := make(map[aspects.Key]int, catalog.Len())
	for _, key := range catalog.Keys() {
		coverage[key] = len(r)
	}
	for _, c := range r {
		for _, missing := range c.Breakdown.MissingAspects {
			coverage[missing]--
		}
	}
	return coverage
}
