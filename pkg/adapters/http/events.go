package http

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// SubscribeEvents handles the GET /events request (SSE).
//
// By default every successful dispatch is streamed as a "dispatch" event, optionally
// limited to one group. With ?reload=true definition reloads are streamed instead.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	if r.URL.Query().Get("reload") == "true" {
		s.streamReloads(w, r, flusher)
		return
	}

	if s.broker == nil {
		http.Error(w, "Event stream not enabled", http.StatusNotFound)
		return
	}

	group := r.URL.Query().Get("group")
	events := s.broker.Subscribe(r.Context())
	s.logger.Info("SSE: Subscribing to dispatches", "group", group)

	startStream(w, flusher)
	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected")
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if group != "" && e.Group != group {
				continue
			}
			payload, err := json.Marshal(e)
			if err != nil {
				s.logger.Warn("SSE: Failed to encode event", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: dispatch\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

func (s *Server) streamReloads(w http.ResponseWriter, r *http.Request, flusher http.Flusher) {
	changes, err := s.Engine.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
		return
	}
	s.logger.Info("SSE: Subscribing to definition reloads")

	startStream(w, flusher)
	for {
		select {
		case <-r.Context().Done():
			return
		case name, ok := <-changes:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", name)
			flusher.Flush()
		}
	}
}

func startStream(w http.ResponseWriter, flusher http.Flusher) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
}
