// Package coordinator drives a transfer: it folds engine events into stats,
// answers engine errors through the arbiter and keeps the display current.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bamsammich/xcp/internal/arbiter"
	"github.com/bamsammich/xcp/internal/event"
	"github.com/bamsammich/xcp/internal/stats"
	"github.com/bamsammich/xcp/internal/ui"
)

// ErrReplyUndeliverable means the engine was not ready for the reply to its
// own error report. It breaks the one-reply-per-error handshake, so Run stops.
var ErrReplyUndeliverable = errors.New("control reply undeliverable")

// Config wires the coordinator's collaborators.
type Config struct {
	Stats     *stats.OperationStats // default stats.New()
	Presenter *ui.Presenter         // required
	Arbiter   *arbiter.Arbiter      // default skips every error
	Router    *Router               // required
	Logger    *slog.Logger
	Now       func() time.Time
}

// Coordinator consumes one run's events. It is single-use.
type Coordinator struct {
	stats     *stats.OperationStats
	presenter *ui.Presenter
	arbiter   *arbiter.Arbiter
	router    *Router
	logger    *slog.Logger
	now       func() time.Time
	start     time.Time
}

// New validates cfg and starts the run clock.
func New(cfg Config) (*Coordinator, error) {
	if cfg.Presenter == nil {
		return nil, errors.New("coordinator: presenter is required")
	}
	if cfg.Router == nil {
		return nil, errors.New("coordinator: router is required")
	}
	if cfg.Stats == nil {
		cfg.Stats = stats.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Arbiter == nil {
		cfg.Arbiter = arbiter.New(arbiter.Skip, cfg.Logger)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Coordinator{
		stats:     cfg.Stats,
		presenter: cfg.Presenter,
		arbiter:   cfg.Arbiter,
		router:    cfg.Router,
		logger:    cfg.Logger,
		now:       cfg.Now,
		start:     cfg.Now(),
	}, nil
}

// Stats exposes the live counters. Only safe to read once Run has returned.
func (c *Coordinator) Stats() *stats.OperationStats { return c.stats }

// Run consumes events until the channel is closed, then finalizes the
// display and returns the totals. Cancelling ctx does not stop consumption:
// the arbiter switches to Abort and the engine is expected to wind down and
// close the channel.
func (c *Coordinator) Run(ctx context.Context, events <-chan event.WorkerEvent) (stats.Summary, error) {
	interrupted := ctx.Done()
	for {
		select {
		case <-interrupted:
			interrupted = nil
			c.arbiter.Interrupt()
			c.logger.Warn("interrupted, aborting transfer")

		case ev, ok := <-events:
			if !ok {
				return c.finish(nil)
			}
			if err := c.handle(ev); err != nil {
				return c.finish(err)
			}
			c.presenter.Update(c.stats)
		}
	}
}

func (c *Coordinator) handle(ev event.WorkerEvent) error {
	c.logger.Debug("xcp.event", "engine", ev.Engine, "event", ev.String())

	switch ev.Kind {
	case event.KindStat:
		c.stats.Apply(ev.Stat)
		return nil

	case event.KindStatus:
		switch ev.Status.Kind {
		case event.StatusError:
			decision, err := c.arbiter.Handle(ev.Status, func(d event.OperationControl) bool {
				return c.router.Deliver(ev.Engine, d)
			})
			if err != nil {
				return fmt.Errorf("%w: engine %s, decision %s", ErrReplyUndeliverable, ev.Engine, decision)
			}
		case event.StatusWarning:
			c.logger.Warn(ev.Status.Message, "engine", ev.Engine)
		default:
			c.logger.Info(ev.Status.Message, "engine", ev.Engine)
		}
		return nil

	default:
		c.logger.Debug("ignoring unknown event", "kind", ev.Kind)
		return nil
	}
}

func (c *Coordinator) finish(runErr error) (stats.Summary, error) {
	elapsed := c.now().Sub(c.start)
	ferr := c.presenter.Finish(c.stats, elapsed)
	sum := c.stats.Summary(elapsed)
	if runErr != nil {
		return sum, runErr
	}
	if ferr != nil {
		return sum, fmt.Errorf("finalize display: %w", ferr)
	}
	return sum, nil
}
