package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/learnova/portal-service/internal/adapters/syncbus"
	"github.com/learnova/portal-service/internal/core/domain"
)

const (
	sseBuffer    = 32
	sseKeepAlive = 25 * time.Second
)

// SyncHandler streams local mirror changes as Server-Sent Events.
type SyncHandler struct {
	bus       *syncbus.Bus
	keepAlive time.Duration
}

func NewSyncHandler(bus *syncbus.Bus) *SyncHandler {
	return &SyncHandler{bus: bus, keepAlive: sseKeepAlive}
}

// Events writes one "change" event per slot change. Repeated ?key= parameters
// restrict the stream to those slots. A client that falls behind by more than
// the buffer loses the overflow and catches up on the next change, since each
// event carries the full container.
func (h *SyncHandler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeMessage(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	keys := map[string]bool{}
	for _, k := range r.URL.Query()["key"] {
		keys[k] = true
	}

	events := make(chan domain.SlotChange, sseBuffer)
	cancel := h.bus.Listen(func(c domain.SlotChange) {
		if len(keys) > 0 && !keys[c.Key] {
			return
		}
		select {
		case events <- c:
		default:
			slog.Warn("sync stream client lagging, dropping change", "key", c.Key)
		}
	})
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case c := <-events:
			data, err := json.Marshal(c)
			if err != nil {
				slog.Error("failed to encode sync event", "key", c.Key, "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "id: %d\nevent: change\ndata: %s\n\n", c.SyncedAt.UnixMilli(), data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
