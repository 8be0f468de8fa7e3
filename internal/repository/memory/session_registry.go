// Package memory owns the live conversation states. Each session id maps to
// a slot guarded by a FIFO semaphore so at most one turn runs per session and
// queued turns run in submission order.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/semaphore"

	"ba-assistant-be/pkg/store"
)

var ErrSessionExists = errors.New("session already exists")

type slot struct {
	sem *semaphore.Weighted

	// guarded by sem
	removed bool

	mu       sync.RWMutex
	state    *store.ConversationState
	lastUsed time.Time
}

// SessionRegistry is the session id to state table. Lifecycle: Create,
// Acquire (get-or-create and lock), Delete, SweepExpired.
type SessionRegistry struct {
	cache *cache.Cache
	now   func() time.Time
}

func NewSessionRegistry() *SessionRegistry {
	// Slots never expire on their own: eviction must go through the slot
	// lock, which only SweepExpired and Delete take.
	return &SessionRegistry{
		cache: cache.New(cache.NoExpiration, 0),
		now:   time.Now,
	}
}

func (r *SessionRegistry) newSlot() *slot {
	return &slot{sem: semaphore.NewWeighted(1), lastUsed: r.now()}
}

func (r *SessionRegistry) slotFor(id string) *slot {
	for {
		if x, found := r.cache.Get(id); found {
			return x.(*slot)
		}
		// a failed Add means another caller won the race; the next Get sees it
		_ = r.cache.Add(id, r.newSlot(), cache.NoExpiration)
	}
}

// Create registers an empty session
func (r *SessionRegistry) Create(id string) error {
	if err := r.cache.Add(id, r.newSlot(), cache.NoExpiration); err != nil {
		return ErrSessionExists
	}
	return nil
}

// Acquire returns an exclusive lease on the session, creating it when
// missing. It blocks behind in-flight and earlier queued turns until ctx
// is done.
func (r *SessionRegistry) Acquire(ctx context.Context, id string) (*Lease, error) {
	for {
		s := r.slotFor(id)
		if err := s.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		if s.removed {
			s.sem.Release(1)
			continue
		}
		return &Lease{registry: r, slot: s, id: id}, nil
	}
}

// Exists reports whether a slot is registered for id, with or without state
func (r *SessionRegistry) Exists(id string) bool {
	_, found := r.cache.Get(id)
	return found
}

// Snapshot returns a copy of the committed state without waiting for an
// in-flight turn
func (r *SessionRegistry) Snapshot(id string) (*store.ConversationState, bool) {
	x, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	s := x.(*slot)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return nil, false
	}
	return s.state.Clone(), true
}

// List returns snapshots of every session that has a state
func (r *SessionRegistry) List() []*store.ConversationState {
	var out []*store.ConversationState
	for id := range r.cache.Items() {
		if st, ok := r.Snapshot(id); ok {
			out = append(out, st)
		}
	}
	return out
}

// Delete removes the session slot once any in-flight turn has finished
func (r *SessionRegistry) Delete(ctx context.Context, id string) error {
	if _, found := r.cache.Get(id); !found {
		return nil
	}
	lease, err := r.Acquire(ctx, id)
	if err != nil {
		return err
	}
	lease.remove()
	lease.Release()
	return nil
}

// SweepExpired removes sessions idle for longer than idle. Sessions with a
// turn in flight and sessions for which keep returns true are left alone.
func (r *SessionRegistry) SweepExpired(idle time.Duration, keep func(id string) bool) []string {
	cutoff := r.now().Add(-idle)
	var removed []string

	for id, item := range r.cache.Items() {
		if keep != nil && keep(id) {
			continue
		}
		s := item.Object.(*slot)
		if !s.sem.TryAcquire(1) {
			continue
		}
		s.mu.RLock()
		expired := s.lastUsed.Before(cutoff)
		s.mu.RUnlock()
		if expired && !s.removed {
			s.removed = true
			r.cache.Delete(id)
			removed = append(removed, id)
		}
		s.sem.Release(1)
	}
	return removed
}

// Count is the number of live slots, including empty ones
func (r *SessionRegistry) Count() int {
	return r.cache.ItemCount()
}

// Lease is exclusive access to one session until Release
type Lease struct {
	registry *SessionRegistry
	slot     *slot
	id       string
	once     sync.Once
}

func (l *Lease) ID() string { return l.id }

// State is the committed state, nil for a new or reset session. Callers
// must not mutate it; stage changes on a clone and Commit.
func (l *Lease) State() *store.ConversationState {
	l.slot.mu.RLock()
	defer l.slot.mu.RUnlock()
	return l.slot.state
}

// Commit replaces the committed state
func (l *Lease) Commit(next *store.ConversationState) {
	l.slot.mu.Lock()
	l.slot.state = next
	l.slot.lastUsed = l.registry.now()
	l.slot.mu.Unlock()
}

// Clear drops the state but keeps the slot so queued turns start fresh
func (l *Lease) Clear() {
	l.Commit(nil)
}

func (l *Lease) remove() {
	l.slot.removed = true
	l.registry.cache.Delete(l.id)
}

// Release is idempotent
func (l *Lease) Release() {
	l.once.Do(func() { l.slot.sem.Release(1) })
}
