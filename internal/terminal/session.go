package terminal

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-pos/internal/cart"
	"github.com/noah-isme/backend-pos/internal/refund"
)

// ErrBusy is returned when a terminal already has an operation in flight.
var ErrBusy = errors.New("terminal busy")

// DefaultIdleTTL is how long an untouched session survives before the
// janitor reclaims it.
const DefaultIdleTTL = 12 * time.Hour

// Session holds the mutable state of one operator terminal: the open cart
// and, when a refund flow is active, the refund review.
type Session struct {
	mu       sync.Mutex
	lastSeen time.Time

	Cart   *cart.Cart
	Review *refund.Review
}

// Registry maps terminal ids to sessions and enforces one in-flight
// operation per terminal. Sessions are created lazily on first use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
	idleTTL  time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewRegistry builds a registry. A non-positive ttl falls back to
// DefaultIdleTTL.
func NewRegistry(ttl time.Duration, log zerolog.Logger) *Registry {
	if ttl <= 0 {
		ttl = DefaultIdleTTL
	}
	return &Registry{
		sessions: map[string]*Session{},
		idleTTL:  ttl,
		now:      time.Now,
		log:      log,
	}
}

// Acquire returns the terminal's session with its lock held, plus a release
// function. If another request already holds the session the caller gets
// ErrBusy immediately instead of queueing; a cashier retries, a deadlocked
// terminal does not pile up goroutines.
func (r *Registry) Acquire(terminalID string) (*Session, func(), error) {
	r.mu.Lock()
	s, ok := r.sessions[terminalID]
	if !ok {
		s = &Session{Cart: cart.New()}
		r.sessions[terminalID] = s
	}
	s.lastSeen = r.now()
	r.mu.Unlock()

	if !s.mu.TryLock() {
		return nil, nil, ErrBusy
	}
	return s, s.mu.Unlock, nil
}

// Drop discards a terminal's session entirely.
func (r *Registry) Drop(terminalID string) {
	r.mu.Lock()
	delete(r.sessions, terminalID)
	r.mu.Unlock()
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Run sweeps idle sessions until the context is cancelled.
func (r *Registry) Run(ctx context.Context) {
	ticker := time.NewTicker(r.idleTTL / 4)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				r.log.Debug().Int("reclaimed", n).Msg("terminal sessions swept")
			}
		}
	}
}

func (r *Registry) sweep() int {
	cutoff := r.now().Add(-r.idleTTL)
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) && s.mu.TryLock() {
			s.mu.Unlock()
			delete(r.sessions, id)
			n++
		}
	}
	return n
}
