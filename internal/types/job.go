// Package types provides type definitions for structured data used throughout the candidate ranking engine.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "time"

// JobContext is the job a ranking request is evaluated against.
type JobContext struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PostedAt    time.Time `json:"posted_at,omitempty"`
	// Embedding is the stored job-level vector, if one was computed at ingestion.
	Embedding []float32 `json:"embedding,omitempty"`
}

// CandidateProfile holds the display fields of a candidate. It never
// participates in scoring.
type CandidateProfile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Title   string `json:"title"`
	Summary string `json:"summary,omitempty"`
}
