package store

import (
	"context"
	"errors"
	"sync"

	"github.com/Priya8975/event-registry/internal/domain"
	"github.com/Priya8975/event-registry/internal/registry"
)

var errNotInitialized = errors.New("registry state not initialized")

// MemoryStore keeps the registry in process memory. Writes made inside
// Update are staged and applied only when the callback succeeds.
type MemoryStore struct {
	mu           sync.RWMutex
	initialized  bool
	owner        domain.Principal
	lastEventID  int64
	events       map[int64]domain.Event
	organizers   []domain.Principal
	organizerSet map[domain.Principal]struct{}
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		events:       make(map[int64]domain.Event),
		organizerSet: make(map[domain.Principal]struct{}),
	}
}

func (s *MemoryStore) Init(_ context.Context, owner domain.Principal) error {
	if err := owner.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.initialized {
		if s.owner != owner {
			return domain.ErrOwnerMismatch
		}
		return nil
	}
	s.owner = owner
	s.initialized = true
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(registry.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.initialized {
		return errNotInitialized
	}
	return fn(&memTx{base: s, lastEventID: s.lastEventID})
}

func (s *MemoryStore) Update(ctx context.Context, fn func(registry.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errNotInitialized
	}

	tx := &memTx{
		base:        s,
		lastEventID: s.lastEventID,
		events:      make(map[int64]domain.Event),
	}
	if err := fn(tx); err != nil {
		return err
	}

	// commit
	s.lastEventID = tx.lastEventID
	for id, e := range tx.events {
		s.events[id] = e
	}
	for _, p := range tx.organizers {
		s.organizerSet[p] = struct{}{}
		s.organizers = append(s.organizers, p)
	}
	return nil
}

func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// memTx reads through its staged writes to the base store. The caller
// holds the base store's lock.
type memTx struct {
	base        *MemoryStore
	lastEventID int64
	events      map[int64]domain.Event
	organizers  []domain.Principal
}

func (t *memTx) Owner(context.Context) (domain.Principal, error) {
	return t.base.owner, nil
}

func (t *memTx) LastEventID(context.Context) (int64, error) {
	return t.lastEventID, nil
}

func (t *memTx) HasOrganizer(_ context.Context, p domain.Principal) (bool, error) {
	if _, ok := t.base.organizerSet[p]; ok {
		return true, nil
	}
	for _, staged := range t.organizers {
		if staged == p {
			return true, nil
		}
	}
	return false, nil
}

func (t *memTx) ListOrganizers(context.Context) ([]domain.Principal, error) {
	out := make([]domain.Principal, 0, len(t.base.organizers)+len(t.organizers))
	out = append(out, t.base.organizers...)
	out = append(out, t.organizers...)
	return out, nil
}

func (t *memTx) GetEvent(_ context.Context, id int64) (domain.Event, error) {
	if e, ok := t.events[id]; ok {
		return e, nil
	}
	if e, ok := t.base.events[id]; ok {
		return e, nil
	}
	return domain.Event{}, domain.ErrNotFound
}

func (t *memTx) Stats(ctx context.Context) (domain.Stats, error) {
	st := domain.Stats{
		Owner:       t.base.owner,
		LastEventID: t.lastEventID,
		Organizers:  int64(len(t.base.organizers) + len(t.organizers)),
	}
	for id, e := range t.base.events {
		if _, staged := t.events[id]; staged {
			continue
		}
		st.TotalEvents++
		if e.Verified {
			st.VerifiedEvents++
		}
	}
	for _, e := range t.events {
		st.TotalEvents++
		if e.Verified {
			st.VerifiedEvents++
		}
	}
	return st, nil
}

func (t *memTx) InsertOrganizer(ctx context.Context, p domain.Principal) error {
	ok, _ := t.HasOrganizer(ctx, p)
	if ok {
		return nil
	}
	t.organizers = append(t.organizers, p)
	return nil
}

func (t *memTx) NextEventID(context.Context) (int64, error) {
	t.lastEventID++
	return t.lastEventID, nil
}

func (t *memTx) InsertEvent(_ context.Context, e domain.Event) error {
	t.events[e.ID] = e
	return nil
}

func (t *memTx) SetVerified(ctx context.Context, id int64) error {
	e, err := t.GetEvent(ctx, id)
	if err != nil {
		return err
	}
	e.Verified = true
	t.events[id] = e
	return nil
}
