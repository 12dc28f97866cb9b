package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"replaytrace/internal/config"
	"replaytrace/internal/db"
	"replaytrace/internal/metrics"
	"replaytrace/internal/models"
	"replaytrace/internal/orchestrator"
	"replaytrace/internal/timeline"
)

// maxBodyBytes bounds ingest payloads.
const maxBodyBytes = 4 << 20

// ReplayStore is the write side of the replay store used by the ingest endpoints.
type ReplayStore interface {
	CreateReplay(ctx context.Context, replay *models.Replay) error
	AppendFrames(ctx context.Context, replayID string, frames []models.FrameInput) (int, error)
	PingContext(ctx context.Context) error
}

// Handler holds the server dependencies
type Handler struct {
	cfg          *config.Config
	store        ReplayStore
	orchestrator *orchestrator.Orchestrator
	metrics      *metrics.Metrics
	logger       *slog.Logger
}

// NewHandler creates a new handler
func NewHandler(cfg *config.Config, store ReplayStore, orch *orchestrator.Orchestrator, m *metrics.Metrics, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		cfg:          cfg,
		store:        store,
		orchestrator: orch,
		metrics:      m,
		logger:       logger,
	}
}

// RegisterRoutes registers all HTTP routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	r.Route("/api/replays", func(r chi.Router) {
		r.Post("/", h.HandleCreateReplay)
		r.Route("/{replayID}", func(r chi.Router) {
			r.Post("/frames", h.HandleAppendFrames)
			r.Get("/trace-table", h.HandleTraceTable)
			r.Get("/trace-table/live", h.HandleLiveTraceTable)
		})
	})
}

// HandleCreateReplay registers a new replay session.
func (h *Handler) HandleCreateReplay(w http.ResponseWriter, r *http.Request) {
	var req models.CreateReplayRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Debug("Invalid replay payload", "error", err)
		writeError(w, http.StatusBadRequest, "invalid replay payload")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	replay := req.Replay()
	if err := h.store.CreateReplay(r.Context(), replay); err != nil {
		h.logger.Error("Failed to create replay", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create replay")
		return
	}

	h.logger.Info("Replay created", "replayID", replay.ID, "projectID", replay.ProjectID)
	writeJSON(w, http.StatusCreated, replay)
}

// HandleAppendFrames stores a batch of timeline frames for a replay.
func (h *Handler) HandleAppendFrames(w http.ResponseWriter, r *http.Request) {
	replayID := chi.URLParam(r, "replayID")

	var req models.AppendFramesRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.logger.Debug("Invalid frames payload", "replayID", replayID, "error", err)
		writeError(w, http.StatusBadRequest, "invalid frames payload")
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	n, err := h.store.AppendFrames(r.Context(), replayID, req.Frames)
	if err != nil {
		h.writeStoreError(w, replayID, err)
		return
	}
	h.orchestrator.Invalidate(replayID)

	writeJSON(w, http.StatusAccepted, map[string]int{"accepted": n})
}

// HandleTraceTable returns the merged frames and traces of a replay.
func (h *Handler) HandleTraceTable(w http.ResponseWriter, r *http.Request) {
	replayID := chi.URLParam(r, "replayID")

	sortField, err := timeline.ParseSortField(r.URL.Query().Get("sort"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	asc := true
	if v := r.URL.Query().Get("asc"); v != "" {
		asc, err = strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "asc must be a boolean")
			return
		}
	}

	table, err := h.orchestrator.BuildTable(r.Context(), replayID)
	if err != nil {
		h.writeStoreError(w, replayID, err)
		return
	}

	if sortField != timeline.SortByTimestamp || !asc {
		table.Rows = timeline.SortRows(table.Rows, sortField, asc)
	}

	writeJSON(w, http.StatusOK, table)
}

// HandleHealth returns health status
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleReady reports whether the replay store is reachable.
func (h *Handler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.PingContext(ctx); err != nil {
			h.logger.Warn("Readiness check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "unavailable",
			})
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

func (h *Handler) writeStoreError(w http.ResponseWriter, replayID string, err error) {
	if errors.Is(err, db.ErrReplayNotFound) {
		writeError(w, http.StatusNotFound, "replay not found")
		return
	}
	h.logger.Error("Request failed", "replayID", replayID, "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
