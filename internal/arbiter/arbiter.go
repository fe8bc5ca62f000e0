package arbiter

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/bamsammich/xcp/internal/event"
)

// ErrNoReply is returned when a decision could not be handed to the engine.
var ErrNoReply = errors.New("control reply not delivered")

// State is the arbiter's position in the decision handshake.
type State int32

const (
	Idle State = iota
	AwaitingDecision
)

func (s State) String() string {
	if s == AwaitingDecision {
		return "AwaitingDecision"
	}
	return "Idle"
}

// Policy turns an engine failure into a decision. It must return
// promptly: the engine is blocked until the reply arrives.
type Policy func(status event.OperationStatus) event.OperationControl

// Skip always skips the failed item.
func Skip(event.OperationStatus) event.OperationControl { return event.Skip }

// Abort always stops the run.
func Abort(event.OperationStatus) event.OperationControl { return event.Abort }

// RetryThenSkip retries a file until it has failed n+1 times, then skips it.
// It counts by the attempt number the engine puts on the failure, so a
// message that changes between attempts cannot reset the count. Failures
// without an attempt number are skipped.
func RetryThenSkip(n int) Policy {
	return func(st event.OperationStatus) event.OperationControl {
		if st.Attempt < 1 || st.Attempt > n {
			return event.Skip
		}
		return event.Retry
	}
}

// PolicyFor maps a configured default action to a Policy.
func PolicyFor(action event.OperationControl, retries int) Policy {
	switch action {
	case event.Abort:
		return Abort
	case event.Retry:
		return RetryThenSkip(retries)
	default:
		return Skip
	}
}

// Arbiter answers engine errors with exactly one OperationControl each.
type Arbiter struct {
	policy      Policy
	logger      *slog.Logger
	state       atomic.Int32
	interrupted atomic.Bool
}

// New creates an Arbiter. A nil policy means Skip.
func New(policy Policy, logger *slog.Logger) *Arbiter {
	if policy == nil {
		policy = Skip
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Arbiter{policy: policy, logger: logger}
}

// State reports whether a decision is in flight.
func (a *Arbiter) State() State {
	return State(a.state.Load())
}

// Interrupt makes every subsequent decision Abort.
func (a *Arbiter) Interrupt() {
	a.interrupted.Store(true)
}

// Interrupted reports whether Interrupt has been called.
func (a *Arbiter) Interrupted() bool {
	return a.interrupted.Load()
}

// Decide runs the policy for st without replying.
func (a *Arbiter) Decide(st event.OperationStatus) event.OperationControl {
	if a.interrupted.Load() {
		return event.Abort
	}
	return a.policy(st)
}

// Handle decides on st and passes the decision to reply. reply must not
// block; a false return means the engine could not take the answer.
func (a *Arbiter) Handle(st event.OperationStatus, reply func(event.OperationControl) bool) (event.OperationControl, error) {
	a.state.Store(int32(AwaitingDecision))
	defer a.state.Store(int32(Idle))

	decision := a.Decide(st)
	a.logger.Info("transfer error",
		"error", st.Message,
		"path", st.Path,
		"attempt", st.Attempt,
		"decision", decision.String(),
	)
	if !reply(decision) {
		return decision, ErrNoReply
	}
	return decision, nil
}
