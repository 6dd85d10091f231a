package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/jonathan/candidate-ranker/internal/pipeline"
	"github.com/jonathan/candidate-ranker/internal/types"
)

// maxBodyBytes bounds ranking request bodies.
const maxBodyBytes = 1 << 20

// decodeRankBody reads and validates a ranking request body. An empty body
// is a request with no query.
func decodeRankBody(r *http.Request) (*types.RankRequestBody, error) {
	var body types.RankRequestBody
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		return nil, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := body.Validate(); err != nil {
		return nil, validationError(err)
	}
	return &body, nil
}

// handlePreviewWeights runs only the weighting phase. Successful previews
// are cached per job and query; fallback weights are not.
func (s *Server) handlePreviewWeights(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	query := strings.TrimSpace(r.URL.Query().Get("query"))
	if query == "" {
		query = pipeline.DefaultPreviewQuery
	}
	if len(query) > 4000 {
		s.errorResponse(w, http.StatusBadRequest, (&ErrValidation{Field: "query", Message: "too long"}).Error())
		return
	}

	key := jobID + "\x00" + query
	if s.previews != nil {
		if cached, ok := s.previews.Get(key); ok {
			w.Header().Set("X-Cache", "HIT")
			s.jsonResponse(w, http.StatusOK, cached)
			return
		}
	}

	preview, err := s.ranker.PreviewWeights(r.Context(), jobID, query)
	if err != nil {
		s.logger.Warn("weight preview failed", zap.String("job_id", jobID), zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	if s.previews != nil && !preview.Degraded {
		s.previews.SetDefault(key, preview)
	}
	w.Header().Set("X-Cache", "MISS")
	s.jsonResponse(w, http.StatusOK, preview)
}

// handleRank runs a full ranking request and returns the report.
func (s *Server) handleRank(w http.ResponseWriter, r *http.Request) {
	body, err := decodeRankBody(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	report, err := s.ranker.Rank(r.Context(), pipeline.RankRequest{
		RequestID: requestID(r),
		JobID:     r.PathValue("id"),
		Query:     body.Query,
		History:   body.Conversation(),
		Weights:   body.Weights,
	})
	if err != nil {
		s.logger.Warn("ranking failed",
			zap.String("request_id", requestID(r)),
			zap.String("job_id", r.PathValue("id")),
			zap.Error(err))
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, report)
}

// progressEvents maps pipeline phases to SSE event names.
var progressEvents = map[string]string{
	pipeline.PhaseWeighting:   EventWeights,
	pipeline.PhaseScoring:     EventProgress,
	pipeline.PhaseRanked:      EventRanked,
	pipeline.PhaseExplanation: EventExplanation,
}

// handleRankStream runs a ranking request and streams each phase as a
// Server-Sent Event, ending with complete or error.
func (s *Server) handleRankStream(w http.ResponseWriter, r *http.Request) {
	body, err := decodeRankBody(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	id := requestID(r)
	report, err := s.ranker.Rank(r.Context(), pipeline.RankRequest{
		RequestID: id,
		JobID:     r.PathValue("id"),
		Query:     body.Query,
		History:   body.Conversation(),
		Weights:   body.Weights,
		OnProgress: func(event pipeline.ProgressEvent) {
			name, ok := progressEvents[event.Step]
			if !ok {
				name = EventProgress
			}
			if err := sse.WriteEvent(name, event); err != nil {
				s.logger.Debug("failed to write SSE event", zap.String("event", name), zap.Error(err))
			}
		},
	})
	if err != nil {
		s.logger.Warn("streamed ranking failed", zap.String("request_id", id), zap.Error(err))
		sse.WriteError(id, HTTPStatus(err), err.Error())
		return
	}

	sse.WriteComplete(report.RequestID, string(report.Status))
}
