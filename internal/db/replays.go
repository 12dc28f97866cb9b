package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"replaytrace/internal/models"
	"replaytrace/internal/timeline"
)

// ErrReplayNotFound is returned when no replay has the requested ID.
var ErrReplayNotFound = errors.New("replay not found")

// CreateReplay stores a replay, assigning an ID and creation time when unset.
func (db *DB) CreateReplay(ctx context.Context, replay *models.Replay) error {
	if replay.ID == "" {
		replay.ID = uuid.New().String()
	}
	if replay.CreatedAt.IsZero() {
		replay.CreatedAt = time.Now().UTC()
	}
	if replay.TraceIDs == nil {
		replay.TraceIDs = []string{}
	}

	traceIDs, err := json.Marshal(replay.TraceIDs)
	if err != nil {
		return fmt.Errorf("failed to encode trace ids: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`INSERT INTO replays (id, project_id, started_at_ms, finished_at_ms, trace_ids, created_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		replay.ID,
		replay.ProjectID,
		replay.StartedAt.UnixMilli(),
		unixMilliOrZero(replay.FinishedAt),
		string(traceIDs),
		replay.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert replay: %w", err)
	}

	return nil
}

// GetReplay loads a replay by ID.
func (db *DB) GetReplay(ctx context.Context, id string) (*models.Replay, error) {
	var (
		replay                models.Replay
		startedMs, finishedMs int64
		createdMs             int64
		traceIDs              string
	)

	err := db.QueryRowContext(ctx,
		`SELECT id, project_id, started_at_ms, finished_at_ms, trace_ids, created_at_ms
		 FROM replays WHERE id = ?`, id,
	).Scan(&replay.ID, &replay.ProjectID, &startedMs, &finishedMs, &traceIDs, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrReplayNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query replay: %w", err)
	}

	if err := json.Unmarshal([]byte(traceIDs), &replay.TraceIDs); err != nil {
		return nil, fmt.Errorf("failed to decode trace ids: %w", err)
	}

	replay.StartedAt = time.UnixMilli(startedMs).UTC()
	if finishedMs > 0 {
		replay.FinishedAt = time.UnixMilli(finishedMs).UTC()
	}
	replay.CreatedAt = time.UnixMilli(createdMs).UTC()

	return &replay, nil
}

// AppendFrames stores frames for a replay in one transaction and returns how
// many were written. Frames without an offset get one relative to the replay start.
func (db *DB) AppendFrames(ctx context.Context, replayID string, frames []models.FrameInput) (int, error) {
	replay, err := db.GetReplay(ctx, replayID)
	if err != nil {
		return 0, err
	}
	startMs := replay.StartTimestampMs()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO replay_frames (replay_id, timestamp_ms, offset_ms, kind, title, description)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare frame insert: %w", err)
	}
	defer stmt.Close()

	for _, f := range frames {
		offset := f.TimestampMs - startMs
		if f.OffsetMs != nil {
			offset = *f.OffsetMs
		}
		if _, err := stmt.ExecContext(ctx, replayID, f.TimestampMs, offset, f.Kind, f.Title, f.Description); err != nil {
			return 0, fmt.Errorf("failed to insert frame: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit frames: %w", err)
	}

	return len(frames), nil
}

// ListFrames returns a replay's frames sorted ascending by timestamp. Frames
// with equal timestamps keep insertion order.
func (db *DB) ListFrames(ctx context.Context, replayID string) ([]timeline.Frame, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT timestamp_ms, offset_ms, kind, title, description
		 FROM replay_frames WHERE replay_id = ?
		 ORDER BY timestamp_ms ASC, id ASC`, replayID)
	if err != nil {
		return nil, fmt.Errorf("failed to query frames: %w", err)
	}
	defer rows.Close()

	frames := make([]timeline.Frame, 0)
	for rows.Next() {
		var f timeline.Frame
		if err := rows.Scan(&f.TimestampMs, &f.OffsetMs, &f.Kind, &f.Title, &f.Description); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		frames = append(frames, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate frames: %w", err)
	}

	return frames, nil
}

func unixMilliOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
