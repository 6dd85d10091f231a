package store

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Fixture is the JSON interchange format for jobs, candidates, and their
// precomputed embeddings. It seeds the in-memory and SQLite stores.
type Fixture struct {
	Jobs       []FixtureJob       `json:"jobs"`
	Candidates []FixtureCandidate `json:"candidates"`
}

// FixtureJob is a job and the candidates associated with it.
type FixtureJob struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	PostedAt     *time.Time `json:"posted_at,omitempty"`
	Embedding    []float32  `json:"embedding,omitempty"`
	CandidateIDs []string   `json:"candidate_ids"`
}

// FixtureCandidate is a candidate profile with its embeddings.
type FixtureCandidate struct {
	ID        string               `json:"id"`
	Name      string               `json:"name"`
	Title     string               `json:"title"`
	Summary   string               `json:"summary,omitempty"`
	Embedding []float32            `json:"embedding,omitempty"`
	Aspects   map[string][]float32 `json:"aspects"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file %s: %w", path, err)
	}
	return ParseFixture(data)
}

// ParseFixture decodes and validates fixture JSON.
func ParseFixture(data []byte) (*Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks identifier uniqueness and that every job references known candidates.
func (f *Fixture) Validate() error {
	candidates := make(map[string]bool, len(f.Candidates))
	for _, c := range f.Candidates {
		if c.ID == "" {
			return fmt.Errorf("fixture candidate without id")
		}
		if candidates[c.ID] {
			return fmt.Errorf("duplicate fixture candidate %q", c.ID)
		}
		candidates[c.ID] = true
	}

	jobs := make(map[string]bool, len(f.Jobs))
	for _, j := range f.Jobs {
		if j.ID == "" {
			return fmt.Errorf("fixture job without id")
		}
		if jobs[j.ID] {
			return fmt.Errorf("duplicate fixture job %q", j.ID)
		}
		jobs[j.ID] = true
		for _, id := range j.CandidateIDs {
			if !candidates[id] {
				return fmt.Errorf("job %q references unknown candidate %q", j.ID, id)
			}
		}
	}
	return nil
}
