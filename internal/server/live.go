package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"replaytrace/internal/models"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// liveMessage is one push on the live trace table feed.
type liveMessage struct {
	Type  string             `json:"type"`
	Table *models.TraceTable `json:"table"`
}

// HandleLiveTraceTable streams a replay's trace table over a WebSocket. The
// table is rebuilt every refresh interval and sent whenever its inputs changed.
func (h *Handler) HandleLiveTraceTable(w http.ResponseWriter, r *http.Request) {
	replayID := chi.URLParam(r, "replayID")

	table, err := h.orchestrator.BuildTable(r.Context(), replayID)
	if err != nil {
		h.writeStoreError(w, replayID, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", "replayID", replayID, "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Incoming messages are ignored; a read error means the client went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var lastFingerprint string
	send := func(t *models.TraceTable) error {
		if t.Fingerprint == lastFingerprint {
			return nil
		}
		lastFingerprint = t.Fingerprint
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(liveMessage{Type: "table", Table: t})
	}

	if err := send(table); err != nil {
		h.logger.Debug("Live feed write failed", "replayID", replayID, "error", err)
		return
	}

	ticker := time.NewTicker(h.cfg.Timeline.GetLiveRefreshDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t, err := h.orchestrator.BuildTable(ctx, replayID)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				h.logger.Warn("Live trace table rebuild failed", "replayID", replayID, "error", err)
				continue
			}
			if err := send(t); err != nil {
				h.logger.Debug("Live feed write failed", "replayID", replayID, "error", err)
				return
			}
		}
	}
}
