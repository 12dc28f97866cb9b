// Package orchestrator assembles replay trace tables from the replay store and the trace backend.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"replaytrace/internal/cache"
	"replaytrace/internal/config"
	"replaytrace/internal/metrics"
	"replaytrace/internal/models"
	"replaytrace/internal/timeline"
)

// ReplayStore provides replay metadata and timeline frames.
type ReplayStore interface {
	GetReplay(ctx context.Context, id string) (*models.Replay, error)
	ListFrames(ctx context.Context, replayID string) ([]timeline.Frame, error)
}

// TraceSource provides the backend traces started during a replay.
type TraceSource interface {
	SearchReplayTraces(ctx context.Context, replayID string, traceIDs []string, start, end time.Time) ([]timeline.Event, error)
}

// Orchestrator coordinates data collection from the store and the trace backend
type Orchestrator struct {
	store   ReplayStore
	traces  TraceSource
	tables  *cache.Cache
	metrics *metrics.Metrics
	cfg     *config.Config
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a new orchestrator. traces may be nil when tracing is disabled,
// in which case tables only contain frames.
func New(store ReplayStore, traces TraceSource, tables *cache.Cache, m *metrics.Metrics, cfg *config.Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:   store,
		traces:  traces,
		tables:  tables,
		metrics: m,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// BuildTable loads a replay's frames and traces concurrently and merges them.
// A failed trace search yields a frame-only table marked Degraded.
func (o *Orchestrator) BuildTable(ctx context.Context, replayID string) (*models.TraceTable, error) {
	replay, err := o.store.GetReplay(ctx, replayID)
	if err != nil {
		return nil, err
	}

	var (
		frames   []timeline.Frame
		events   []timeline.Event
		degraded bool
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		f, err := o.store.ListFrames(gctx, replay.ID)
		if err != nil {
			return fmt.Errorf("failed to load frames: %w", err)
		}
		frames = f
		return nil
	})

	if o.traces != nil {
		g.Go(func() error {
			start, end := o.searchWindow(replay)
			e, err := o.traces.SearchReplayTraces(gctx, replay.ID, replay.TraceIDs, start, end)
			if err != nil {
				o.logger.Warn("Serving trace table without traces", "replayID", replay.ID, "error", err)
				o.metrics.TraceFetchErrors.Inc()
				degraded = true
				return nil
			}
			events = e
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sessionStartMs := replay.StartTimestampMs()
	fp := cache.Fingerprint(frames, events, sessionStartMs)
	rows, hit := o.tables.GetOrCompute(replay.ID, fp, func() []timeline.Row {
		return timeline.Merge(frames, events, sessionStartMs)
	})
	o.metrics.ObserveCache(hit)

	table := o.assemble(replay.ID, frames, events, rows, sessionStartMs, fp, !hit)
	table.Degraded = degraded
	return table, nil
}

// ImportTable merges frames and events that did not come from the store, such
// as exported JSON files. The result is not cached.
func (o *Orchestrator) ImportTable(replayID string, frames []timeline.Frame, events []timeline.Event, sessionStartMs int64) *models.TraceTable {
	fp := cache.Fingerprint(frames, events, sessionStartMs)
	rows := timeline.Merge(frames, events, sessionStartMs)
	o.metrics.Merges.Inc()
	return o.assemble(replayID, frames, events, rows, sessionStartMs, fp, true)
}

// Invalidate forgets the cached table of a replay.
func (o *Orchestrator) Invalidate(replayID string) {
	o.tables.Invalidate(replayID)
}

// assemble builds the response table. Unclaimed traces and row counts are
// only logged and recorded when merged is set.
func (o *Orchestrator) assemble(replayID string, frames []timeline.Frame, events []timeline.Event, rows []timeline.Row, sessionStartMs int64, fp uint64, merged bool) *models.TraceTable {
	unclaimed := len(timeline.Unclaimed(frames, events))
	if merged {
		if unclaimed > 0 {
			o.logger.Warn("Traces started before the first frame were left out of the trace table",
				"replayID", replayID, "unclaimed", unclaimed, "frames", len(frames))
			o.metrics.UnclaimedEvents.Add(float64(unclaimed))
		}
		o.metrics.Rows.Observe(float64(len(rows)))
	}

	return &models.TraceTable{
		ReplayID:         replayID,
		StartTimestampMs: sessionStartMs,
		Columns:          timeline.Columns,
		Rows:             rows,
		FrameCount:       len(frames),
		EventCount:       len(events),
		UnclaimedEvents:  unclaimed,
		Fingerprint:      fmt.Sprintf("%016x", fp),
		GeneratedAt:      o.now().UTC(),
	}
}

// searchWindow pads the replay's time range. Replays without a usable
// duration (unfinished, or finished before they started) search up to now.
func (o *Orchestrator) searchWindow(replay *models.Replay) (time.Time, time.Time) {
	padding := o.cfg.Tempo.GetSearchPaddingDuration()

	end := o.now()
	if d := replay.Duration(); d > 0 {
		end = replay.StartedAt.Add(d)
	}

	return replay.StartedAt.Add(-padding), end.Add(padding)
}
