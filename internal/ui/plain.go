package ui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// DefaultLineInterval is how often Lines prints when output is not a TTY.
const DefaultLineInterval = 5 * time.Second

// Lines prints one progress line per interval, for logs and pipes.
type Lines struct {
	w        io.Writer
	interval time.Duration

	mu      sync.Mutex
	latest  Frame
	have    bool
	printed int // Spinner counter of the last printed frame

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewLines starts the flush goroutine.
func NewLines(w io.Writer, interval time.Duration) *Lines {
	if interval <= 0 {
		interval = DefaultLineInterval
	}
	l := &Lines{
		w:        w,
		interval: interval,
		printed:  -1,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go l.run()
	return l
}

// Draw records f as the frame to print next.
func (l *Lines) Draw(f Frame) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.latest = f
	l.have = true
}

// Close prints the final frame and waits for the flush goroutine.
func (l *Lines) Close() error {
	l.closeOnce.Do(func() {
		close(l.stop)
		<-l.done
	})
	return nil
}

func (l *Lines) run() {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.flush()
		case <-l.stop:
			l.flush()
			return
		}
	}
}

func (l *Lines) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.have || l.latest.Spinner == l.printed {
		return
	}
	l.printed = l.latest.Spinner
	fmt.Fprintln(l.w, FormatLine(l.latest))
}

// FormatLine renders a frame as a single line.
func FormatLine(f Frame) string {
	state := "progress"
	if f.Done {
		state = "done"
	}
	pct := f.Bytes.Fraction() * 100
	return fmt.Sprintf("%s: %3.0f%% %s %d/%d files %s/%s eta %s  %s (%s)",
		state,
		pct,
		ProgressBar(f.Bytes.Fraction(), 20),
		f.Files.Position, f.Files.Length,
		FormatBytes(f.Bytes.Position), FormatBytes(f.Bytes.Length),
		FormatETA(f.Bytes.ETA(f.At)),
		f.Name,
		f.Current.Message,
	)
}

// Discard drops every frame; used with --quiet.
type Discard struct{}

func (Discard) Draw(Frame)   {}
func (Discard) Close() error { return nil }
