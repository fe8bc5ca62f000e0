package coordinator

import (
	"sync"

	"github.com/google/uuid"

	"github.com/bamsammich/xcp/internal/event"
)

// Router hands arbiter replies to the engine that raised the error.
type Router struct {
	mu       sync.RWMutex
	routes   map[uuid.UUID]chan<- event.OperationControl
	fallback chan<- event.OperationControl
}

// NewRouter creates a Router. Replies for unregistered engines go to
// fallback, which may be nil.
func NewRouter(fallback chan<- event.OperationControl) *Router {
	return &Router{
		routes:   make(map[uuid.UUID]chan<- event.OperationControl),
		fallback: fallback,
	}
}

// Register routes replies for engine id to ch.
func (r *Router) Register(id uuid.UUID, ch chan<- event.OperationControl) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[id] = ch
}

// Unregister drops the route for id.
func (r *Router) Unregister(id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.routes, id)
}

// Deliver sends c without blocking. It reports false when there is no
// channel for id or the channel cannot take the reply right now.
func (r *Router) Deliver(id uuid.UUID, c event.OperationControl) bool {
	r.mu.RLock()
	ch, ok := r.routes[id]
	if !ok {
		ch = r.fallback
	}
	r.mu.RUnlock()

	if ch == nil {
		return false
	}
	select {
	case ch <- c:
		return true
	default:
		return false
	}
}
