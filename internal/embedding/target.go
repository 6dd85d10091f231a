package embedding

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-ranker/internal/aspects"
	"github.com/jonathan/candidate-ranker/internal/logging"
	"github.com/jonathan/candidate-ranker/internal/ranking"
	"github.com/jonathan/candidate-ranker/internal/types"
)

// TargetBuilder builds the job/query side of a ranking.
type TargetBuilder struct {
	embedder Embedder
	catalog  *aspects.Catalog
	logger   *zap.Logger
}

// NewTargetBuilder creates a TargetBuilder. A nil embedder always uses the
// job's stored vector.
func NewTargetBuilder(embedder Embedder, catalog *aspects.Catalog, logger *zap.Logger) *TargetBuilder {
	return &TargetBuilder{embedder: embedder, catalog: catalog, logger: logging.OrNop(logger)}
}

// Build embeds the job text and one aspect-conditioned text per aspect in a
// single batch. When embedding fails and the job carries a stored vector,
// that vector is used for every aspect and fallback is true. Without a stored
// vector the failure is returned as an *UnavailableError. Embedded vectors
// whose length differs from the stored job vector are treated the same way
// as a failed embedding.
func (b *TargetBuilder) Build(ctx context.Context, job *types.JobContext, query string) (target ranking.Target, fallback bool, err error) {
	if job == nil {
		return ranking.Target{}, false, fmt.Errorf("target requires a job")
	}

	stored := ranking.Target{Job: job.Embedding}

	if b.embedder == nil {
		if len(job.Embedding) == 0 {
			return ranking.Target{}, false, &UnavailableError{Message: fmt.Sprintf("no embedder and job %s has no stored vector", job.ID)}
		}
		return stored, true, nil
	}

	keys := b.catalog.Keys()
	texts := make([]string, 0, len(keys)+1)
	texts = append(texts, JobText(job, query))
	for _, key := range keys {
		texts = append(texts, AspectText(key, b.catalog.Describe(key), job, query))
	}

	vecs, err := b.embedder.Embed(ctx, texts)
	if err == nil && len(vecs) != len(texts) {
		err = fmt.Errorf("expected %d vectors, got %d", len(texts), len(vecs))
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ranking.Target{}, false, ctxErr
		}
		if len(job.Embedding) == 0 {
			return ranking.Target{}, false, &UnavailableError{Message: "failed to embed job target", Cause: err}
		}
		b.logger.Warn("target embedding failed, using stored job vector",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return stored, true, nil
	}

	if len(job.Embedding) > 0 {
		for _, v := range vecs {
			if len(v) != len(job.Embedding) {
				b.logger.Warn("target dimensions differ from stored job vector, using stored job vector",
					zap.String("job_id", job.ID),
					zap.Int("target_dims", len(v)),
					zap.Int("stored_dims", len(job.Embedding)))
				return stored, true, nil
			}
		}
	}

	target = ranking.Target{
		Job:     vecs[0],
		Aspects: make(map[aspects.Key][]float32, len(keys)),
	}
	for i, key := range keys {
		target.Aspects[key] = vecs[i+1]
	}
	return target, false, nil
}

// JobText is the job-level text embedded for a request.
func JobText(job *types.JobContext, query string) string {
	var sb strings.Builder
	if job.Title != "" {
		sb.WriteString("Job title: " + job.Title + "\n")
	}
	sb.WriteString("Job description: " + strings.TrimSpace(job.Description))
	if q := strings.TrimSpace(query); q != "" {
		sb.WriteString("\nRecruiter request: " + q)
	}
	return sb.String()
}

// AspectText conditions the job text on one aspect.
func AspectText(key aspects.Key, description string, job *types.JobContext, query string) string {
	return fmt.Sprintf("Aspect: %s (%s)\n%s", key, description, JobText(job, query))
}
