package server

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SSE event names emitted by the streaming rank endpoint.
const (
	EventWeights     = "weights"
	EventProgress    = "progress"
	EventRanked      = "ranked"
	EventExplanation = "explanation"
	EventComplete    = "complete"
	EventError       = "error"
)

// SSEWriter helps write Server-Sent Events
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// WriteError sends an error event carrying the HTTP status the error maps to
func (s *SSEWriter) WriteError(requestID string, status int, message string) {
	s.WriteEvent(EventError, map[string]any{ //nolint:errcheck
		"request_id": requestID,
		"status":     status,
		"error":      message,
	})
}

// WriteComplete sends a completion event
func (s *SSEWriter) WriteComplete(requestID, status string) {
	s.WriteEvent(EventComplete, map[string]string{ //nolint:errcheck
		"request_id": requestID,
		"status":     status,
	})
}
