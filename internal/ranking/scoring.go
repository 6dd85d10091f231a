// Package ranking scores candidates against a job by weighted per-aspect
// similarity and orders them deterministically.
package ranking

import (
	"math"
	"sort"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/types"
)

// Target is the job/query side of the comparison: one vector per aspect plus
// a job-level vector. Aspects without their own vector are compared against Job.
type Target struct {
	Job     []float32
	Aspects map[aspects.Key][]float32
}

// For returns the vector to compare an aspect against.
func (t Target) For(key aspects.Key) []float32 {
	if v, ok := t.Aspects[key]; ok && len(v) > 0 {
		return v
	}
	return t.Job
}

// Cosine returns dot(a,b)/(|a||b|) in [-1, 1]. Mismatched lengths, empty
// vectors, and zero norms yield 0. Accumulation runs in index order in
// float64 so identical inputs give identical bits.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}
	return math.Max(-1, math.Min(1, sim))
}

// Composite is the weighted sum of similarities, summed in catalog order.
// Aspects without a similarity contribute 0.
func Composite(w types.WeightVector, sims map[aspects.Key]float64, catalog *aspects.Catalog) float64 {
	var score float64
	for _, key := range catalog.Keys() {
		score += w[key] * sims[key]
	}
	return score
}

// Breakdown computes the per-aspect similarities and composite score of one
// candidate. Catalog aspects the candidate lacks are scored 0 and listed as missing.
func Breakdown(candidateID string, candidate map[aspects.Key][]float32, target Target, w types.WeightVector, catalog *aspects.Catalog) types.ScoreBreakdown {
	b := types.ScoreBreakdown{
		CandidateID:  candidateID,
		AspectScores: make(map[aspects.Key]float64, catalog.Len()),
	}

	for _, key := range catalog.Keys() {
		vec, ok := candidate[key]
		if !ok || len(vec) == 0 {
			b.AspectScores[key] = 0
			b.MissingAspects = append(b.MissingAspects, key)
			continue
		}
		b.AspectScores[key] = Cosine(vec, target.For(key))
	}

	b.CompositeScore = Composite(w, b.AspectScores, catalog)
	return b
}

// Sort orders candidates by composite score descending, breaking ties by
// candidate ID ascending, and assigns 1-based ranks.
func Sort(result types.RankedResult) {
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].CompositeScore != result[j].CompositeScore {
			return result[i].CompositeScore > result[j].CompositeScore
		}
		return result[i].CandidateID < result[j].CandidateID
	})
	for i := range result {
		result[i].Rank = i + 1
	}
}
