package tempo

import (
	"fmt"
	"strings"
)

// BuildReplayQuery selects traces whose spans were tagged with the replay ID by the frontend SDK.
func BuildReplayQuery(replayID string) string {
	return fmt.Sprintf("{ span.replay_id = %q }", replayID)
}

// BuildTraceIDsQuery selects an explicit set of traces.
func BuildTraceIDsQuery(traceIDs []string) string {
	conds := make([]string, len(traceIDs))
	for i, id := range traceIDs {
		conds[i] = fmt.Sprintf("trace:id = %q", id)
	}
	return "{ " + strings.Join(conds, " || ") + " }"
}
