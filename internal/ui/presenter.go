package ui

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/bamsammich/xcp/internal/stats"
)

// RedrawInterval is the minimum spacing between two presenter redraws.
const RedrawInterval = 97 * time.Millisecond

// Bar is the state of one progress region.
type Bar struct {
	Length   uint64
	Position uint64
	Started  time.Time // reference for elapsed and ETA
	Message  string
	Finished bool
}

// Fraction is Position/Length clamped to [0, 1].
func (b Bar) Fraction() float64 {
	if b.Length == 0 {
		if b.Finished {
			return 1
		}
		return 0
	}
	return min(1, float64(b.Position)/float64(b.Length))
}

// Elapsed is the time since the bar was last reset.
func (b Bar) Elapsed(now time.Time) time.Duration {
	if b.Started.IsZero() || now.Before(b.Started) {
		return 0
	}
	return now.Sub(b.Started)
}

// ETA extrapolates the remaining time from the average pace so far.
func (b Bar) ETA(now time.Time) time.Duration {
	if b.Finished || b.Position == 0 || b.Position >= b.Length {
		return 0
	}
	elapsed := b.Elapsed(now)
	remaining := float64(b.Length-b.Position) / float64(b.Position)
	return time.Duration(float64(elapsed) * remaining)
}

// Frame is a snapshot of the four display regions.
type Frame struct {
	Spinner int    // frame counter, advanced once per redraw
	Name    string // file currently transferring
	Current Bar
	Files   Bar
	Bytes   Bar
	At      time.Time
	Done    bool
}

// Target draws frames. Draw is called only from the presenter's goroutine;
// the target flushes on its own cadence. Close renders anything pending,
// stops the flush goroutine and waits for it to exit.
type Target interface {
	Draw(Frame)
	Close() error
}

// Presenter turns OperationStats into throttled frames for a Target.
type Presenter struct {
	target   Target
	out      io.Writer
	now      func() time.Time
	interval time.Duration
	last     time.Time
	redraws  int
	frame    Frame
	finished bool
}

// Option configures a Presenter.
type Option func(*Presenter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Presenter) { p.now = now }
}

// WithInterval overrides RedrawInterval.
func WithInterval(d time.Duration) Option {
	return func(p *Presenter) { p.interval = d }
}

// WithSummaryWriter sets where the final summary line goes (default stdout).
func WithSummaryWriter(w io.Writer) Option {
	return func(p *Presenter) { p.out = w }
}

// NewPresenter creates a presenter drawing to target. The throttle window
// starts now, so an update in the first interval is skipped.
func NewPresenter(target Target, opts ...Option) *Presenter {
	p := &Presenter{
		target:   target,
		out:      os.Stdout,
		now:      time.Now,
		interval: RedrawInterval,
	}
	for _, opt := range opts {
		opt(p)
	}
	start := p.now()
	p.last = start
	p.frame = Frame{
		Current: Bar{Started: start},
		Files:   Bar{Started: start},
		Bytes:   Bar{Started: start},
		At:      start,
	}
	return p
}

// Redraws reports how many updates were not throttled.
func (p *Presenter) Redraws() int { return p.redraws }

// Frame returns the most recent frame.
func (p *Presenter) Frame() Frame { return p.frame }

// Update redraws from s unless the previous redraw was less than the
// interval ago. It consumes s's dirty flags and may reset s.CurrentStart.
func (p *Presenter) Update(s *stats.OperationStats) bool {
	if p.finished {
		return false
	}
	now := p.now()
	if now.Sub(p.last) < p.interval {
		return false
	}
	p.last = now
	p.redraws++
	p.apply(s, now)
	p.target.Draw(p.frame)
	return true
}

func (p *Presenter) apply(s *stats.OperationStats, now time.Time) {
	f := &p.frame
	f.Spinner++

	if s.CurrentPath.TakeDirty() {
		// New file: previous timing no longer applies.
		f.Name = s.CurrentPath.Get()
		f.Current.Length = s.CurrentTotal.Get()
		f.Current.Started = now
		s.CurrentStart = now
	}
	f.Current.Position = s.CurrentDone
	f.Current.Message = FormatSpeed(s.CurrentDone, now.Sub(s.CurrentStart)) + "/s"

	if s.FilesTotal.TakeDirty() {
		f.Files.Length = s.FilesTotal.Get()
	}
	f.Files.Position = s.FilesDone

	if s.BytesTotal.TakeDirty() {
		f.Bytes.Length = s.BytesTotal.Get()
	}
	f.Bytes.Position = s.BytesDone

	f.At = now
}

// Finish freezes all regions with the final stats, waits for the target to
// flush and exit, then prints the summary line.
func (p *Presenter) Finish(s *stats.OperationStats, elapsed time.Duration) error {
	if p.finished {
		return nil
	}
	p.finished = true

	p.apply(s, p.now())
	p.frame.Current.Finished = true
	p.frame.Files.Finished = true
	p.frame.Bytes.Finished = true
	p.frame.Done = true
	p.target.Draw(p.frame)

	err := p.target.Close()
	if _, werr := fmt.Fprintln(p.out, SummaryLine(s.Summary(elapsed))); werr != nil && err == nil {
		err = werr
	}
	return err
}
