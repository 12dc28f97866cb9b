package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReplayStartTimestampMs(t *testing.T) {
	r := Replay{StartedAt: time.UnixMilli(1_700_000_000_123)}
	assert.Equal(t, int64(1_700_000_000_123), r.StartTimestampMs())
}

func TestReplayDuration(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		finished time.Time
		expected time.Duration
	}{
		{"finished", start.Add(90 * time.Second), 90 * time.Second},
		{"unfinished", time.Time{}, 0},
		{"clock skew", start.Add(-time.Second), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Replay{StartedAt: start, FinishedAt: tt.finished}
			assert.Equal(t, tt.expected, r.Duration())
		})
	}
}

func TestCreateReplayRequestValidate(t *testing.T) {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, (&CreateReplayRequest{StartedAt: start}).Validate())
	assert.NoError(t, (&CreateReplayRequest{StartedAt: start, FinishedAt: start.Add(time.Minute)}).Validate())
	assert.Error(t, (&CreateReplayRequest{}).Validate())
	assert.Error(t, (&CreateReplayRequest{StartedAt: start, FinishedAt: start.Add(-time.Minute)}).Validate())
}

func TestAppendFramesRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     AppendFramesRequest
		wantErr bool
	}{
		{"valid", AppendFramesRequest{Frames: []FrameInput{{TimestampMs: 1, Kind: "ui.click"}}}, false},
		{"empty", AppendFramesRequest{}, true},
		{"missing kind", AppendFramesRequest{Frames: []FrameInput{{TimestampMs: 1}}}, true},
		{"missing timestamp", AppendFramesRequest{Frames: []FrameInput{{Kind: "ui.click"}}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
