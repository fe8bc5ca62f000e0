package ui_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/xcp/internal/event"
	"github.com/bamsammich/xcp/internal/ui"
)

var errDiskFull = errors.New("disk full")

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errDiskFull }

// runLogger mirrors the cp setup: a stderr text handler at the CLI level and
// a JSON log file that records everything.
func runLogger(textLevel slog.Level) (logger *slog.Logger, text, jsonl *bytes.Buffer) {
	text, jsonl = &bytes.Buffer{}, &bytes.Buffer{}
	logger = slog.New(ui.NewMultiHandler(
		slog.NewTextHandler(text, &slog.HandlerOptions{Level: textLevel}),
		slog.NewJSONHandler(jsonl, &slog.HandlerOptions{Level: slog.LevelDebug}),
	))
	return logger, text, jsonl
}

func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		out = append(out, rec)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestEventTeeReachesOnlyTheLogFile(t *testing.T) {
	t.Parallel()

	logger, text, jsonl := runLogger(slog.LevelWarn)
	id := uuid.New()
	ev := event.NewCurrent("/src/a.bin", 4096, 4096, 8192).From(id)

	logger.Debug("xcp.event", "engine", ev.Engine, "event", ev.String())
	logger.Warn("some files were not copied", "skipped", 1)

	assert.NotContains(t, text.String(), "xcp.event", "quiet terminal drops debug records")
	assert.Contains(t, text.String(), "some files were not copied")

	recs := records(t, jsonl)
	require.Len(t, recs, 2)
	assert.Equal(t, "xcp.event", recs[0]["msg"])
	assert.Equal(t, id.String(), recs[0]["engine"])
	assert.Equal(t, "Stat(Current /src/a.bin 4096 4096/8192)", recs[0]["event"])
	assert.Equal(t, "WARN", recs[1]["level"])
}

func TestVerboseTerminalSeesEvents(t *testing.T) {
	t.Parallel()

	logger, text, jsonl := runLogger(slog.LevelDebug)
	logger.Debug("xcp.event", "event", event.NewFilesDone().String())

	assert.Contains(t, text.String(), "event=Stat(FilesDone)")
	assert.Len(t, records(t, jsonl), 1)
}

func TestEngineAttrsReachBothHandlers(t *testing.T) {
	t.Parallel()

	logger, text, jsonl := runLogger(slog.LevelInfo)
	id := uuid.New()
	logger.With("engine", id.String()).Info("transfer error", "path", "/src/a.txt", "attempt", 2)

	assert.Contains(t, text.String(), "engine="+id.String())
	recs := records(t, jsonl)
	require.Len(t, recs, 1)
	assert.Equal(t, id.String(), recs[0]["engine"])
	assert.InDelta(t, 2, recs[0]["attempt"], 0)
}

func TestEnabledWhenEitherHandlerAccepts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	quiet := ui.NewMultiHandler(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewJSONHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)
	assert.True(t, quiet.Enabled(ctx, slog.LevelDebug), "the log file wants debug")

	noFile := ui.NewMultiHandler(
		slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelWarn}),
	)
	assert.False(t, noFile.Enabled(ctx, slog.LevelInfo))
	assert.True(t, noFile.Enabled(ctx, slog.LevelError))
}

func TestFailingLogFileDoesNotStopTheTerminal(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	h := ui.NewMultiHandler(
		slog.NewTextHandler(&text, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewJSONHandler(failingWriter{}, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewJSONHandler(failingWriter{}, &slog.HandlerOptions{Level: slog.LevelDebug}),
	)

	var rec slog.Record
	rec.Level = slog.LevelError
	rec.Message = "copy failed"
	err := h.Handle(context.Background(), rec)

	require.ErrorIs(t, err, errDiskFull)
	var joined interface{ Unwrap() []error }
	require.ErrorAs(t, err, &joined)
	assert.Len(t, joined.Unwrap(), 2)
	assert.Contains(t, text.String(), "copy failed")
}

func TestGroupedRecordsInLogFile(t *testing.T) {
	t.Parallel()

	logger, text, jsonl := runLogger(slog.LevelInfo)
	logger.WithGroup("summary").Info("done", "files", 3, "bytes", 60)

	assert.Contains(t, text.String(), "summary.files=3")
	recs := records(t, jsonl)
	require.Len(t, recs, 1)
	group, ok := recs[0]["summary"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 60, group["bytes"], 0)
}
