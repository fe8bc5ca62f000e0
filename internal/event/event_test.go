package event

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatKindString(t *testing.T) {
	tests := []struct {
		want string
		kind StatKind
	}{
		{want: "FilesDone", kind: FilesDone},
		{want: "FilesTotal", kind: FilesTotal},
		{want: "BytesTotal", kind: BytesTotal},
		{want: "Current", kind: Current},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.String())
		})
	}
}

func TestKindStringUnknown(t *testing.T) {
	assert.Equal(t, "Unknown", Kind(999).String())
	assert.Equal(t, "Unknown", StatKind(0).String())
	assert.Equal(t, "Unknown", StatusKind(-1).String())
	assert.Equal(t, "unknown", OperationControl(42).String())
}

func TestConstructors(t *testing.T) {
	ev := NewCurrent("/src/a.txt", 10, 30, 100)
	assert.Equal(t, KindStat, ev.Kind)
	assert.Equal(t, Current, ev.Stat.Kind)
	assert.Equal(t, "/src/a.txt", ev.Stat.Path)
	assert.Equal(t, uint64(10), ev.Stat.Bytes)
	assert.Equal(t, uint64(30), ev.Stat.Done)
	assert.Equal(t, uint64(100), ev.Stat.Total)
	assert.False(t, ev.Timestamp.IsZero())
	assert.False(t, ev.IsError())

	ev = NewBytesTotal(512)
	assert.Equal(t, BytesTotal, ev.Stat.Kind)
	assert.Equal(t, uint64(512), ev.Stat.Bytes)

	assert.Equal(t, FilesDone, NewFilesDone().Stat.Kind)
	assert.Equal(t, FilesTotal, NewFilesTotal().Stat.Kind)
}

func TestErrorEvent(t *testing.T) {
	ev := NewError("disk full")
	assert.Equal(t, KindStatus, ev.Kind)
	assert.Equal(t, StatusError, ev.Status.Kind)
	assert.Equal(t, "disk full", ev.Status.Message)
	assert.True(t, ev.IsError())

	assert.False(t, NewStatus(StatusInfo, "verified").IsError())
}

func TestFailureEvent(t *testing.T) {
	ev := NewFailure("/src/a.txt", 2, "rename: is a directory")
	assert.True(t, ev.IsError())
	assert.Equal(t, "/src/a.txt", ev.Status.Path)
	assert.Equal(t, 2, ev.Status.Attempt)
	assert.Equal(t, `Status(Error "rename: is a directory" attempt 2)`, ev.String())
}

func TestFromStampsEngine(t *testing.T) {
	id := uuid.New()
	ev := NewFilesDone().From(id)
	assert.Equal(t, id, ev.Engine)
}

func TestWorkerEventString(t *testing.T) {
	assert.Equal(t, "Stat(FilesDone)", NewFilesDone().String())
	assert.Equal(t, "Stat(BytesTotal 7)", NewBytesTotal(7).String())
	assert.Equal(t, `Status(Error "boom")`, NewError("boom").String())
	assert.Equal(t, "Unknown", WorkerEvent{}.String())
}

func TestParseControl(t *testing.T) {
	tests := []struct {
		in   string
		want OperationControl
	}{
		{in: "retry", want: Retry},
		{in: "Skip", want: Skip},
		{in: " ABORT ", want: Abort},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseControl(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, mustParse(t, got.String()))
		})
	}

	_, err := ParseControl("ignore")
	require.Error(t, err)
	_, err = ParseControl("")
	require.Error(t, err)
}

func mustParse(t *testing.T, s string) OperationControl {
	t.Helper()
	c, err := ParseControl(s)
	require.NoError(t, err)
	return c
}
