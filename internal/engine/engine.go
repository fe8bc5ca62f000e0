// Package engine copies the files a walk.Producer discovers, reporting
// progress and errors as event.WorkerEvents and taking an
// event.OperationControl back for every error it reports.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/bamsammich/xcp/internal/event"
	"github.com/bamsammich/xcp/internal/walk"
)

// DefaultChunkSize is the amount copied between two progress reports.
const DefaultChunkSize = 1 << 20

var (
	// ErrAborted is returned by Run when the coordinator answered Abort.
	ErrAborted = errors.New("transfer aborted")

	// ErrControlsClosed means the control channel closed while an error
	// was waiting for a decision.
	ErrControlsClosed = errors.New("control channel closed")
)

// Config describes a copy operation.
type Config struct {
	Sources   []string // roots handed to the producer
	Dst       string   // destination directory
	Verify    bool     // BLAKE3-compare each copy before renaming it into place
	Preserve  bool     // keep permission bits and timestamps
	BWLimit   uint64   // bytes per second, 0 for unlimited
	ChunkSize int64
	Logger    *slog.Logger
}

// Engine is one local copy worker.
type Engine struct {
	cfg      Config
	id       uuid.UUID
	controls <-chan event.OperationControl
	events   chan<- event.WorkerEvent
	paths    *walk.Queue
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates an engine. It sends to events and closes it when Run returns;
// it reads exactly one control per error event it sends.
func New(
	cfg Config,
	controls <-chan event.OperationControl,
	events chan<- event.WorkerEvent,
	paths *walk.Queue,
) (*Engine, error) {
	if len(cfg.Sources) == 0 {
		return nil, walk.ErrNoRoots
	}
	if cfg.Dst == "" {
		return nil, errors.New("destination is required")
	}
	if controls == nil || events == nil || paths == nil {
		return nil, errors.New("engine needs control, event and path channels")
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	e := &Engine{
		cfg:      cfg,
		id:       uuid.New(),
		controls: controls,
		events:   events,
		paths:    paths,
	}
	e.logger = cfg.Logger.With("engine", e.id.String())
	if cfg.BWLimit > 0 {
		e.limiter = NewBWLimiter(cfg.BWLimit)
	}
	return e, nil
}

// ID identifies this engine on the events it sends.
func (e *Engine) ID() uuid.UUID { return e.id }

// SearchPath returns the roots the producer should walk.
func (e *Engine) SearchPath() []string {
	return append([]string(nil), e.cfg.Sources...)
}

type job struct {
	walk.Entry
	size int64 // announced through BytesTotal at admission
}

// Run copies entries until the queue is drained, the coordinator aborts or
// ctx ends. It always closes the event channel and abandons the queue.
func (e *Engine) Run(ctx context.Context) error {
	defer close(e.events)
	defer e.paths.Abandon()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(e.cfg.Dst, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}

	var pending []job
	in := e.paths.Entries()
	for {
		// Admit whatever has been discovered so the totals run ahead of the copy.
	admit:
		for in != nil {
			select {
			case ent, ok := <-in:
				if !ok {
					in = nil
					break admit
				}
				j, err := e.admit(ctx, ent)
				if err != nil {
					return err
				}
				pending = append(pending, j)
			default:
				break admit
			}
		}

		if len(pending) == 0 {
			if in == nil {
				// Discovery may have been cut short.
				return ctx.Err()
			}
			select {
			case ent, ok := <-in:
				if !ok {
					in = nil
					continue
				}
				j, err := e.admit(ctx, ent)
				if err != nil {
					return err
				}
				pending = append(pending, j)
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		j := pending[0]
		pending[0] = job{}
		pending = pending[1:]
		if err := e.transfer(ctx, j); err != nil {
			return err
		}
	}
}

func (e *Engine) admit(ctx context.Context, ent walk.Entry) (job, error) {
	j := job{Entry: ent}
	if err := e.emit(ctx, event.NewFilesTotal()); err != nil {
		return j, err
	}
	fi, err := os.Stat(ent.Path)
	if err != nil {
		// Reported when the copy is attempted.
		return j, nil
	}
	j.size = fi.Size()
	return j, e.emit(ctx, event.NewBytesTotal(uint64(j.size)))
}

// transfer copies one file, asking the coordinator what to do on failure.
func (e *Engine) transfer(ctx context.Context, j job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for attempt := 1; ; attempt++ {
		copied, err := e.copyFile(ctx, &j)
		if err == nil {
			return e.emit(ctx, event.NewFilesDone())
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		e.logger.Debug("copy failed", "path", j.Path, "attempt", attempt, "error", err)
		decision, derr := e.ask(ctx, j.Path, attempt, err.Error())
		if derr != nil {
			return derr
		}

		switch decision {
		case event.Retry:
			// The failed attempt's chunks were already counted as done.
			if copied > 0 {
				if err := e.emit(ctx, event.NewBytesTotal(copied)); err != nil {
					return err
				}
			}
		case event.Skip:
			e.logger.Debug("skipping", "path", j.Path)
			return nil
		default:
			return fmt.Errorf("%w at %s", ErrAborted, j.Path)
		}
	}
}

// ask reports the attempt-th failure of path and waits for the single reply.
func (e *Engine) ask(ctx context.Context, path string, attempt int, msg string) (event.OperationControl, error) {
	if err := e.emit(ctx, event.NewFailure(path, attempt, msg)); err != nil {
		return 0, err
	}
	select {
	case c, ok := <-e.controls:
		if !ok {
			return 0, ErrControlsClosed
		}
		return c, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

func (e *Engine) emit(ctx context.Context, ev event.WorkerEvent) error {
	select {
	case e.events <- ev.From(e.id):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// destination maps a source file under root into the destination directory,
// keeping the root's own name: /data/photos/a.jpg under root /data/photos
// lands at <dst>/photos/a.jpg.
func (e *Engine) destination(ent walk.Entry) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(ent.Root), ent.Path)
	if err != nil {
		return "", fmt.Errorf("relative path of %s: %w", ent.Path, err)
	}
	return filepath.Join(e.cfg.Dst, rel), nil
}
