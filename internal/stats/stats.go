package stats

import (
	"fmt"
	"time"

	"github.com/bamsammich/xcp/internal/event"
	"github.com/bamsammich/xcp/internal/track"
)

// OperationStats accumulates totals for one run. It is not safe for
// concurrent use: the coordinator goroutine owns it.
type OperationStats struct {
	FilesDone uint64
	BytesDone uint64

	FilesTotal   track.Value[uint64]
	BytesTotal   track.Value[uint64]
	CurrentTotal track.Value[uint64]
	CurrentDone  uint64
	CurrentPath  track.Value[string]
	CurrentStart time.Time
}

// New returns zeroed stats with CurrentStart set to now.
func New() *OperationStats {
	return &OperationStats{CurrentStart: time.Now()}
}

// Apply folds one engine stat change into the totals. The engine is trusted:
// Done is not checked against Total.
func (s *OperationStats) Apply(c event.StatChange) {
	switch c.Kind {
	case event.FilesDone:
		s.FilesDone++
	case event.FilesTotal:
		*s.FilesTotal.Mut()++
	case event.BytesTotal:
		*s.BytesTotal.Mut() += c.Bytes
	case event.Current:
		s.CurrentPath.Set(c.Path)
		s.CurrentTotal.Set(c.Total)
		s.CurrentDone = c.Done
		s.BytesDone += c.Bytes
	}
}

// Summary is the frozen end-of-run view of OperationStats.
type Summary struct {
	FilesDone  uint64
	FilesTotal uint64
	BytesDone  uint64
	BytesTotal uint64
	Elapsed    time.Duration
}

// Summary freezes the counters.
func (s *OperationStats) Summary(elapsed time.Duration) Summary {
	return Summary{
		FilesDone:  s.FilesDone,
		FilesTotal: s.FilesTotal.Get(),
		BytesDone:  s.BytesDone,
		BytesTotal: s.BytesTotal.Get(),
		Elapsed:    elapsed,
	}
}

// Complete reports whether every discovered file was transferred.
func (s Summary) Complete() bool {
	return s.FilesDone == s.FilesTotal
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"files=%d/%d bytes=%d/%d elapsed=%s",
		s.FilesDone, s.FilesTotal, s.BytesDone, s.BytesTotal, s.Elapsed.Round(time.Millisecond),
	)
}

// FormatBytes returns a human-readable byte count.
func FormatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
