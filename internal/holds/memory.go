package holds

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gravitas-games/sortsys/pkg/models"
)

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithTTL sets how long new holds stay valid. Zero disables expiry.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		s.ttl = ttl
	}
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps holds in process. One mutex guards the whole store, so
// every check-then-create is a single critical section.
type MemoryStore struct {
	mu     sync.Mutex
	bySlot map[slotKey]Hold
	byID   map[string]slotKey
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore creates an empty in-process hold store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		bySlot: make(map[slotKey]Hold),
		byID:   make(map[string]slotKey),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// lookupLocked returns the live hold at key, dropping it if it has expired.
// Must be called with s.mu held.
func (s *MemoryStore) lookupLocked(key slotKey) (Hold, bool) {
	h, ok := s.bySlot[key]
	if !ok {
		return Hold{}, false
	}
	if h.Expired(s.now()) {
		delete(s.bySlot, key)
		delete(s.byID, h.ID)
		return Hold{}, false
	}
	return h, true
}

func (s *MemoryStore) ExistingHold(loc models.Location, slot uint32) (Hold, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lookupLocked(slotKey{loc: loc, slot: slot})
}

func (s *MemoryStore) Create(loc models.Location, slot uint32, openFrom models.Vec3) (Hold, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{loc: loc, slot: slot}
	if _, held := s.lookupLocked(key); held {
		return Hold{}, ErrAlreadyHeld
	}
	h := newHold(loc, slot, openFrom, s.now(), s.ttl)
	s.bySlot[key] = h
	s.byID[h.ID] = key
	return h, nil
}

func (s *MemoryStore) Get(id string) (Hold, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return Hold{}, false
	}
	return s.lookupLocked(key)
}

func (s *MemoryStore) Release(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.byID[id]
	if !ok {
		return ErrHoldNotFound
	}
	delete(s.byID, id)
	delete(s.bySlot, key)
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for key, h := range s.bySlot {
		if h.Expired(now) {
			delete(s.bySlot, key)
			delete(s.byID, h.ID)
		}
	}
	return len(s.bySlot)
}

func newHold(loc models.Location, slot uint32, openFrom models.Vec3, now time.Time, ttl time.Duration) Hold {
	h := Hold{
		ID:        uuid.NewString(),
		Location:  loc,
		Slot:      slot,
		OpenFrom:  openFrom,
		CreatedAt: now,
	}
	if ttl > 0 {
		until := now.Add(ttl)
		h.ValidUntil = &until
	}
	return h
}
