package types

import "github.com/jonathan/candidate-ranker/internal/aspects"

// Status is the terminal state of a ranking request.
type Status string

// Status values. Failed requests surface as errors, so a returned report is
// never Failed except when built by the serving layer for an error stream.
const (
	StatusCompleted         Status = "completed"
	StatusCompletedDegraded Status = "completed_degraded"
	StatusFailed            Status = "failed"
)

// Degradation markers recorded on a report.
const (
	DegradedWeights     = "weights_fallback"
	DegradedExplanation = "explanation_unavailable"
	DegradedProfiles    = "profiles_unavailable"
	DegradedTarget      = "target_fallback"
)

// AnalysisReport is the response object of a ranking request.
type AnalysisReport struct {
	RequestID      string       `json:"request_id"`
	JobID          string       `json:"job_id"`
	JobTitle       string       `json:"job_title"`
	QueryProcessed string       `json:"query_processed"`
	Weights        WeightVector `json:"aspect_weights"`
	Reasoning      string       `json:"reasoning"`

	Analysis        string `json:"analysis,omitempty"`
	Recommendations string `json:"recommendations,omitempty"`
	KeyInsights     string `json:"key_insights,omitempty"`

	// TopCandidates is the full authoritative ranking.
	TopCandidates  RankedResult        `json:"top_candidates"`
	AspectCoverage map[aspects.Key]int `json:"aspect_coverage,omitempty"`

	Status       Status   `json:"status"`
	Degradations []string `json:"degradations,omitempty"`
}

// Degrade records a degradation marker and downgrades the status.
func (r *AnalysisReport) Degrade(marker string) {
	for _, existing := range r.Degradations {
		if existing == marker {
			return
		}
	}
	r.Degradations = append(r.Degradations, marker)
	r.Status = StatusCompletedDegraded
}

// WeightPreview is the result of running only the weighting phase.
type WeightPreview struct {
	JobID        string       `json:"job_id"`
	Query        string       `json:"query"`
	Weights      WeightVector `json:"aspect_weights"`
	Reasoning    string       `json:"reasoning"`
	TotalAspects int          `json:"total_aspects"`
	Degraded     bool         `json:"degraded,omitempty"`
}
