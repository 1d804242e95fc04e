package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"retroboard/api/internal/events"
)

func contextWithTimeout(d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), d)
}

// handleStream serves the per-board SSE subscription. The subscription is the
// session's presence: attaching marks the participant online, detaching marks
// them offline. Events are delivered as they arrive, with periodic comment
// lines to keep intermediaries from severing the connection.
func (s *HTTPServer) handleStream(w http.ResponseWriter, r *http.Request, slug string) {
	participantID := r.URL.Query().Get("participant")
	if participantID == "" {
		participantID = r.Header.Get(participantHeader)
	}

	// Reject non-streaming writers before touching presence, so a failed
	// attach never leaves the participant flagged online.
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "STREAM_UNSUPPORTED", "Streaming unsupported", nil)
		return
	}

	board, err := s.service.boardBySlug(r.Context(), slug)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if err := s.service.SetParticipantPresence(r.Context(), slug, participantID, true); err != nil {
		s.writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Buffered so a slow write never blocks the broker's delivery goroutine;
	// an overflowing subscriber just drops events and resyncs on reconnect.
	feed := make(chan events.Event, 64)
	cancel := s.service.Subscribe(board.ID, func(event events.Event) {
		select {
		case feed <- event:
		default:
		}
	})
	defer cancel()
	defer func() {
		// Presence teardown happens after the request context is gone.
		ctx, done := contextWithTimeout(2 * time.Second)
		defer done()
		if err := s.service.SetParticipantPresence(ctx, slug, participantID, false); err != nil {
			s.service.logf("mark participant %s offline: %v", participantID, err)
		}
	}()

	heartbeat := time.NewTicker(s.heartbeat)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		case event := <-feed:
			data, err := json.Marshal(event)
			if err != nil {
				s.service.logf("marshal stream event: %v", err)
				continue
			}
			if _, err := w.Write([]byte("data: ")); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := w.Write([]byte("\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
