package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/candidate-ranker/internal/embedding"
	"github.com/jonathan/candidate-ranker/internal/pipeline"
	"github.com/jonathan/candidate-ranker/internal/ranking"
	"github.com/jonathan/candidate-ranker/internal/store"
	"github.com/jonathan/candidate-ranker/internal/types"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: &ErrValidation{Field: "query", Message: "too long"}, want: http.StatusBadRequest},
		{
			name: "job not found",
			err:  &pipeline.Error{Phase: pipeline.PhaseJob, Err: &store.NotFoundError{Kind: store.KindJob, ID: "job-x"}},
			want: http.StatusNotFound,
		},
		{name: "wrapped not found", err: fmt.Errorf("scoring: %w", store.ErrNotFound), want: http.StatusNotFound},
		{name: "canceled", err: context.Canceled, want: StatusClientClosedRequest},
		{name: "deadline", err: fmt.Errorf("rank: %w", context.DeadlineExceeded), want: http.StatusServiceUnavailable},
		{
			name: "target unavailable",
			err:  &pipeline.Error{Phase: pipeline.PhaseTarget, Err: &embedding.UnavailableError{Message: "no vector"}},
			want: http.StatusServiceUnavailable,
		},
		{
			name: "dimension mismatch",
			err:  &pipeline.Error{Phase: pipeline.PhaseScoring, Err: &ranking.DimensionError{CandidateID: "c", Aspect: "skills", Got: 4, Want: 3}},
			want: http.StatusInternalServerError,
		},
		{name: "other", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}

func TestValidationError(t *testing.T) {
	body := types.RankRequestBody{History: make([]string, 51)}
	ve := validationError(body.Validate())

	assert.Equal(t, "History", ve.Field)
	assert.Contains(t, ve.Message, "max")
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(ve))

	plain := validationError(errors.New("unexpected EOF"))
	assert.Equal(t, "body", plain.Field)
}
