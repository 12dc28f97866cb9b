package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"replaytrace/internal/cache"
	"replaytrace/internal/metrics"
	"replaytrace/internal/models"
	"replaytrace/internal/orchestrator"
	"replaytrace/internal/timeline"
)

var (
	framesPath  string
	eventsPath  string
	replayID    string
	startMs     int64
	sortField   string
	sortAsc     bool
	tableOutput string

	tableCmd = &cobra.Command{
		Use:   "table",
		Short: "Merge exported frames and traces into a trace table",
		Long: `Build a trace table offline from JSON exports.

The frames file holds an array of {timestamp_ms, offset_ms, kind, title, description}.
The events file holds an array of traces with start_timestamp (epoch seconds),
transaction.duration (ms), trace, transaction and transaction.op, either bare or
wrapped in {"data": [...]}.`,
		Args: cobra.NoArgs,
		RunE: runTable,
	}
)

func init() {
	tableCmd.Flags().StringVarP(&framesPath, "frames", "f", "",
		"Frames JSON file")
	tableCmd.Flags().StringVarP(&eventsPath, "events", "e", "",
		"Trace events JSON file")
	tableCmd.Flags().StringVar(&replayID, "replay-id", "offline",
		"Replay ID reported in the output")
	tableCmd.Flags().Int64Var(&startMs, "start-ms", 0,
		"Session start in epoch ms (default: first frame timestamp)")
	tableCmd.Flags().StringVarP(&sortField, "sort", "s", string(timeline.SortByTimestamp),
		"Sort column (timestampMs, durationMs, offsetMs)")
	tableCmd.Flags().BoolVar(&sortAsc, "asc", true,
		"Sort ascending")
	tableCmd.Flags().StringVarP(&tableOutput, "output", "o", "table",
		"Output format (table, json)")
	tableCmd.MarkFlagRequired("frames")

	rootCmd.AddCommand(tableCmd)
}

func runTable(cmd *cobra.Command, args []string) error {
	field, err := timeline.ParseSortField(sortField)
	if err != nil {
		return err
	}
	if tableOutput != "table" && tableOutput != "json" {
		return fmt.Errorf("unsupported output format %q", tableOutput)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Log, cmd.ErrOrStderr())

	frames, err := readFrames(framesPath)
	if err != nil {
		return err
	}
	var events []timeline.Event
	if eventsPath != "" {
		events, err = readEvents(eventsPath)
		if err != nil {
			return err
		}
	}

	sessionStart := startMs
	if sessionStart == 0 && len(frames) > 0 {
		sessionStart = frames[0].TimestampMs
	}

	orch := orchestrator.New(nil, nil, cache.New(1), metrics.New(), cfg, logger)
	table := orch.ImportTable(replayID, frames, events, sessionStart)
	table.Rows = timeline.SortRows(table.Rows, field, sortAsc)

	if tableOutput == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(table)
	}
	return renderTable(cmd.OutOrStdout(), table)
}

// readFrames decodes a frames export and orders it by timestamp, keeping the
// file order of equal timestamps.
func readFrames(path string) ([]timeline.Frame, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read frames: %w", err)
	}

	var frames []timeline.Frame
	if err := sonic.Unmarshal(data, &frames); err != nil {
		return nil, fmt.Errorf("failed to parse frames %s: %w", path, err)
	}
	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].TimestampMs < frames[j].TimestampMs
	})
	return frames, nil
}

func readEvents(path string) ([]timeline.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	var events []timeline.Event
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '{' {
		var wrapped struct {
			Data []timeline.Event `json:"data"`
		}
		err = sonic.Unmarshal(trimmed, &wrapped)
		events = wrapped.Data
	} else {
		err = sonic.Unmarshal(data, &events)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse events %s: %w", path, err)
	}
	return events, nil
}

func renderTable(w io.Writer, table *models.TraceTable) error {
	headers := []string{"TYPE", "OFFSET", "DURATION", "TRACE"}

	lines := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		title := row.Title()
		trace := ""
		if row.Event != nil {
			title = "  " + title
			trace = strings.TrimSpace(row.Event.TraceID + " " + row.Event.Transaction)
		}
		lines = append(lines, []string{title, formatOffset(row.OffsetMs), formatDuration(row.DurationMs), trace})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, line := range lines {
		for i, cell := range line {
			if cw := runewidth.StringWidth(cell); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	var b strings.Builder
	writeLine := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
		b.WriteString(strings.TrimRight(strings.Join(parts, "  "), " "))
		b.WriteByte('\n')
	}

	writeLine(headers)
	for _, line := range lines {
		writeLine(line)
	}
	fmt.Fprintf(&b, "\n%d frames, %d traces, %d unclaimed\n",
		table.FrameCount, table.EventCount, table.UnclaimedEvents)

	_, err := io.WriteString(w, b.String())
	return err
}

// formatOffset renders an offset as mm:ss.mmm.
func formatOffset(ms int64) string {
	sign := ""
	if ms < 0 {
		sign = "-"
		ms = -ms
	}
	return fmt.Sprintf("%s%02d:%02d.%03d", sign, ms/60_000, (ms/1_000)%60, ms%1_000)
}

func formatDuration(ms float64) string {
	return time.Duration(ms * float64(time.Millisecond)).Round(time.Millisecond).String()
}
