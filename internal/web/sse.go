package web

import (
	"fmt"
	"net/http"
)

// TimerStream handles GET /events/timer: a server-sent event stream of the
// active work session's elapsed time, one event per second.
func (s *Server) TimerStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	timer := s.Controller.Timer()
	ch := timer.Subscribe()
	defer timer.Unsubscribe(ch)

	// Send the current value immediately so the page doesn't wait a tick.
	fmt.Fprintf(w, "data: %s\n\n", timer.Elapsed())
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case display := <-ch:
			fmt.Fprintf(w, "data: %s\n\n", display)
			flusher.Flush()
		}
	}
}
