package tempo

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildQueries(t *testing.T) {
	assert.Equal(t, "{ span.replay_id = \"r-1\" }", BuildReplayQuery("r-1"))
	assert.Equal(t, "{ trace:id = \"a\" || trace:id = \"b\" }", BuildTraceIDsQuery([]string{"a", "b"}))
}

func TestSearchReplayTraces(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	end := start.Add(time.Minute)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/search", r.URL.Path)
		assert.Equal(t, "{ span.replay_id = \"replay-123\" }", r.URL.Query().Get("q"))
		assert.Equal(t, "1700000000", r.URL.Query().Get("start"))
		assert.Equal(t, "1700000060", r.URL.Query().Get("end"))
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{
			"traces": [
				{"traceID": "trace-123", "rootServiceName": "api", "rootTraceName": "GET /items", "startTimeUnixNano": "1700000000150000000", "durationMs": 5},
				{"traceID": "trace-456", "rootServiceName": "api", "rootTraceName": "POST /cart", "startTimeUnixNano": "1700000001250400000"},
				{"traceID": "trace-bad", "startTimeUnixNano": "not-a-number", "durationMs": 3}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 50, nil)
	events, err := client.SearchReplayTraces(context.Background(), "replay-123", nil, start, end)

	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, "trace-123", events[0].TraceID)
	assert.Equal(t, "GET /items", events[0].Transaction)
	assert.Equal(t, "api", events[0].Project)
	assert.Equal(t, int64(1_700_000_000_150), events[0].StartMs())
	assert.Equal(t, 5.0, events[0].DurationMs)

	assert.Equal(t, int64(1_700_000_001_250), events[1].StartMs())
	assert.Equal(t, 0.0, events[1].DurationMs)
}

func TestSearchReplayTracesByTraceIDs(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "{ trace:id = \"abc\" }", r.URL.Query().Get("q"))
		w.Write([]byte(`{"traces": []}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 0, nil)
	events, err := client.SearchReplayTraces(context.Background(), "replay-123", []string{"abc"}, time.Now(), time.Now())

	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestSearchReplayTracesWarnsAtLimit(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantWarn bool
	}{
		{
			name:     "below limit",
			body:     `{"traces": [{"traceID": "a", "startTimeUnixNano": "1700000000000000000"}]}`,
			wantWarn: false,
		},
		{
			name: "at limit",
			body: `{"traces": [
				{"traceID": "a", "startTimeUnixNano": "1700000000000000000"},
				{"traceID": "b", "startTimeUnixNano": "1700000001000000000"}
			]}`,
			wantWarn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "2", r.URL.Query().Get("limit"))
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, nil))

			client := NewClient(server.URL, 5*time.Second, 2, logger)
			_, err := client.SearchReplayTraces(context.Background(), "replay-123", nil, time.Now(), time.Now())
			require.NoError(t, err)

			if tt.wantWarn {
				assert.Contains(t, logs.String(), "Trace search hit the limit")
				assert.Contains(t, logs.String(), "replayID=replay-123")
				assert.Contains(t, logs.String(), "limit=2")
			} else {
				assert.NotContains(t, logs.String(), "hit the limit")
			}
		})
	}
}

func TestSearchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 10, nil)
	_, err := client.Search(context.Background(), BuildReplayQuery("r-1"), time.Now(), time.Now())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestSearchInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"traces": [`))
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second, 10, nil)
	_, err := client.Search(context.Background(), BuildReplayQuery("r-1"), time.Now(), time.Now())

	assert.Error(t, err)
}

func TestTraceSummaryEvent(t *testing.T) {
	summary := TraceSummary{TraceID: "t", StartTimeUnixNano: "1500000000", DurationMs: 12}
	event := summary.Event()

	assert.Equal(t, int64(1_500), event.StartMs())
	assert.Equal(t, 12.0, event.DurationMs)
	assert.Equal(t, int64(0), TraceSummary{StartTimeUnixNano: ""}.StartNanos())
}
