package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/go-chi/chi/v5"
)

// PollInterval is how often the event stream checks a preview for newly visible events.
var PollInterval = 50 * time.Millisecond

// SubscribeEvents streams visible events of a preview as Server-Sent Events.
// The stream ends when the preview is over and everything has been sent, when the
// preview is closed, or when the client goes away.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Sessions.Preview(id); err != nil {
		s.writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	sent := 0
	var streamed uint64
	for {
		p, err := s.Sessions.Preview(id)
		if err != nil {
			fmt.Fprintf(w, "event: closed\ndata: %s\n\n", id)
			flusher.Flush()
			return
		}

		gen, visible := p.Delivered()
		if streamed != 0 && gen != streamed {
			sent = 0
			fmt.Fprintf(w, "event: reset\ndata: %s\n\n", id)
		}
		streamed = gen
		for _, ev := range visible[sent:] {
			data, err := json.Marshal(ev)
			if err != nil {
				s.Logger.Error("event encode failed", "err", err)
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
		}
		sent = len(visible)
		flusher.Flush()

		if p.Status() == domain.StatusTerminal && sent == len(p.Transcript()) {
			fmt.Fprintf(w, "event: end\ndata: %s\n\n", id)
			flusher.Flush()
			return
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
