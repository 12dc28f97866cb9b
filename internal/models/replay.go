// Package models defines the shared core data structures used throughout replaytrace.
package models

import (
	"fmt"
	"time"
)

// Replay is the metadata of a recorded user session.
type Replay struct {
	ID         string    `json:"id"`
	ProjectID  string    `json:"project_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	TraceIDs   []string  `json:"trace_ids,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// StartTimestampMs returns the session start in epoch milliseconds.
func (r *Replay) StartTimestampMs() int64 {
	return r.StartedAt.UnixMilli()
}

// Duration returns how long the session lasted, zero while it is unfinished.
func (r *Replay) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// CreateReplayRequest is the body of POST /api/replays.
type CreateReplayRequest struct {
	ProjectID  string    `json:"project_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	TraceIDs   []string  `json:"trace_ids"`
}

// Validate checks the request has a usable time range.
func (r *CreateReplayRequest) Validate() error {
	if r.StartedAt.IsZero() {
		return fmt.Errorf("started_at is required")
	}
	if !r.FinishedAt.IsZero() && r.FinishedAt.Before(r.StartedAt) {
		return fmt.Errorf("finished_at %s is before started_at %s",
			r.FinishedAt.Format(time.RFC3339), r.StartedAt.Format(time.RFC3339))
	}
	return nil
}

// Replay builds the replay this request describes.
func (r *CreateReplayRequest) Replay() *Replay {
	return &Replay{
		ProjectID:  r.ProjectID,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		TraceIDs:   r.TraceIDs,
	}
}
