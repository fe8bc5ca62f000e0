package walk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
)

// ErrNoRoots is returned when Start is given nothing to walk.
var ErrNoRoots = errors.New("no search roots")

// Config controls a Producer.
type Config struct {
	// FS is walked for every root. Defaults to the host filesystem.
	FS billy.Filesystem
	// Canonicalize resolves a root before walking. Defaults to an absolute,
	// symlink-free path on the host filesystem.
	Canonicalize func(string) (string, error)
	Logger       *slog.Logger
}

// Producer walks search roots in the background and feeds regular files to a Queue.
type Producer struct {
	cfg  Config
	done chan struct{}
	err  error
}

// NewProducer creates a Producer. Zero Config fields get host defaults.
func NewProducer(cfg Config) *Producer {
	if cfg.FS == nil {
		cfg.FS = osfs.New("/")
	}
	if cfg.Canonicalize == nil {
		cfg.Canonicalize = canonicalize
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Producer{cfg: cfg, done: make(chan struct{})}
}

// Start walks roots one after another on a new goroutine, sending every
// regular file to q and closing q when finished. Unreadable entries are
// skipped. A failed send stops the walk; Wait reports it.
func (p *Producer) Start(ctx context.Context, roots []string, q *Queue) error {
	if len(roots) == 0 {
		return ErrNoRoots
	}
	go func() {
		defer close(p.done)
		defer q.Close()
		p.err = p.run(ctx, roots, q)
		if p.err != nil {
			p.cfg.Logger.Warn("discovery stopped", "error", p.err)
		}
	}()
	return nil
}

// Wait blocks until the walk goroutine exits and returns its fatal error, if any.
func (p *Producer) Wait() error {
	<-p.done
	return p.err
}

func (p *Producer) run(ctx context.Context, roots []string, q *Queue) error {
	for _, raw := range roots {
		root, err := p.cfg.Canonicalize(raw)
		if err != nil {
			p.cfg.Logger.Warn("skipping search root", "root", raw, "error", err)
			continue
		}
		if err := p.walkRoot(ctx, root, q); err != nil {
			return err
		}
	}
	return nil
}

// sendError distinguishes a fatal send failure from a traversal error inside the walk callback.
type sendError struct{ err error }

func (e *sendError) Error() string { return e.err.Error() }
func (e *sendError) Unwrap() error { return e.err }

func (p *Producer) walkRoot(ctx context.Context, root string, q *Queue) error {
	err := util.Walk(p.cfg.FS, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			p.cfg.Logger.Debug("discovery error", "path", path, "error", err)
			return nil
		}
		if info == nil || !info.Mode().IsRegular() {
			return nil
		}
		if err := q.Send(ctx, Entry{Root: root, Path: path}); err != nil {
			return &sendError{err: err}
		}
		return nil
	})

	var se *sendError
	if errors.As(err, &se) {
		return fmt.Errorf("send %s: %w", root, se.err)
	}
	if err != nil {
		p.cfg.Logger.Debug("walk ended early", "root", root, "error", err)
	}
	return nil
}

func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("abs %s: %w", path, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return resolved, nil
}
