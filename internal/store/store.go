// Package store owns the authoritative vendor collection. Every implementation
// appends a history entry on each mutation and publishes the resulting list to
// its subscribers, which is how views learn about changes.
package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"

	"era-vendors-api/internal/models"
)

var (
	// ErrNotFound is returned when an update or lookup targets an unknown vendor id.
	ErrNotFound = errors.New("vendor not found")
	// ErrUserNotFound is returned when no active user has the given email.
	ErrUserNotFound = errors.New("user not found")
)

// Listener receives the full vendor list after every mutation. The slice is the listener's own copy.
type Listener func(vendors []models.Vendor)

// VendorStore is the storage side of the vendor pages and the HTTP API.
type VendorStore interface {
	List(ctx context.Context) ([]models.Vendor, error)
	Get(ctx context.Context, id string) (models.Vendor, error)
	// Create assigns the id and records actor in the new vendor's history.
	Create(ctx context.Context, fields models.VendorFields, actor string) (models.Vendor, error)
	// Update replaces the editable fields of v.ID. History on v is ignored.
	Update(ctx context.Context, v models.Vendor, actor string) (models.Vendor, error)
	// Delete removes every listed id and reports how many existed. Unknown ids are ignored.
	Delete(ctx context.Context, ids []string) (int, error)
	Subscribe(fn Listener) (unsubscribe func())
}

// UserStore backs the login endpoint.
type UserStore interface {
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	RecordLogin(ctx context.Context, userID int64) error
}

const (
	actionCreated   = "Vendor created"
	actionUnchanged = "Vendor saved without changes"
)

func updateAction(changed []string) string {
	if len(changed) == 0 {
		return actionUnchanged
	}
	return "Updated " + strings.Join(changed, ", ")
}

func normalizeActor(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return models.DefaultActor
}

func cloneAll(vendors []models.Vendor) []models.Vendor {
	out := make([]models.Vendor, len(vendors))
	for i, v := range vendors {
		out[i] = v.Clone()
	}
	return out
}

// broadcaster fans a vendor list out to subscribers. Listeners run on the
// goroutine that made the mutation, after the store released its own locks.
// Every snapshot carries a sequence number taken under the store lock, and a
// listener never sees a snapshot older than one it was already given.
type broadcaster struct {
	seq atomic.Uint64

	mu     sync.Mutex
	nextID int
	subs   map[int]*subscription
}

// subscription delivers snapshots to one listener in sequence order. A snapshot
// published while the listener is still running is handed to the goroutine
// already running it, and replaces any older snapshot still waiting.
type subscription struct {
	fn Listener

	mu      sync.Mutex
	last    uint64
	pending []models.Vendor
	queued  bool
	running bool
}

func (s *subscription) deliver(seq uint64, vendors []models.Vendor) {
	s.mu.Lock()
	if seq <= s.last {
		s.mu.Unlock()
		return
	}
	s.last = seq
	s.pending, s.queued = vendors, true
	if s.running {
		s.mu.Unlock()
		return
	}

	s.running = true
	for s.queued {
		next := s.pending
		s.pending, s.queued = nil, false
		s.mu.Unlock()
		s.call(next)
		s.mu.Lock()
	}
	s.running = false
	s.mu.Unlock()
}

func (s *subscription) call(vendors []models.Vendor) {
	defer func() {
		if r := recover(); r != nil {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
			panic(r)
		}
	}()
	s.fn(cloneAll(vendors))
}

func (b *broadcaster) Subscribe(fn Listener) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]*subscription)
	}
	id := b.nextID
	b.nextID++
	// snapshots numbered before subscribing are older than anything List returns now
	b.subs[id] = &subscription{fn: fn, last: b.seq.Load()}

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *broadcaster) hasListeners() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs) > 0
}

// nextSeq numbers the next snapshot. Call it under the lock the snapshot is taken with.
func (b *broadcaster) nextSeq() uint64 {
	return b.seq.Add(1)
}

func (b *broadcaster) publish(seq uint64, vendors []models.Vendor) {
	b.mu.Lock()
	subs := make([]*subscription, 0, len(b.subs))
	for _, sub := range b.subs {
		subs = append(subs, sub)
	}
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(seq, vendors)
	}
}
