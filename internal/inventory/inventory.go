// Package inventory keeps the latest scanned contents of every storage
// location and reduces them into a merged item listing.
package inventory

import (
	"iter"
	"sync"
	"time"

	"github.com/gravitas-games/sortsys/internal/item"
	"github.com/gravitas-games/sortsys/pkg/models"
)

// Inventory is one scanned container. A nil slot is empty.
type Inventory struct {
	Slots     []*item.Item `json:"slots"`
	ScannedAt time.Time    `json:"scanned_at"`
	OpenFrom  models.Vec3  `json:"open_from"`
}

// Slot is one entry of the flattened slot view.
type Slot struct {
	Location models.Location
	Index    uint32
	Item     *item.Item
	OpenFrom models.Vec3
}

// Store maps locations to their latest snapshot. It is safe for concurrent use;
// snapshots handed to the store must not be modified afterwards.
type Store struct {
	mu          sync.RWMutex
	inventories map[models.Location]*Inventory
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{inventories: make(map[models.Location]*Inventory)}
}

// SetInventoryAt replaces the snapshot for loc. The previous snapshot is
// discarded, never merged.
func (s *Store) SetInventoryAt(loc models.Location, inv Inventory) {
	snapshot := &Inventory{
		Slots:     append([]*item.Item(nil), inv.Slots...),
		ScannedAt: inv.ScannedAt,
		OpenFrom:  inv.OpenFrom,
	}
	s.mu.Lock()
	s.inventories[loc] = snapshot
	s.mu.Unlock()
}

// InventoryContentsAt returns the snapshot for loc, if one is known.
func (s *Store) InventoryContentsAt(loc models.Location) (*Inventory, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.inventories[loc]
	return inv, ok
}

// Len returns the number of known locations.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.inventories)
}

type entry struct {
	loc models.Location
	inv *Inventory
}

func (s *Store) entries() []entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]entry, 0, len(s.inventories))
	for loc, inv := range s.inventories {
		out = append(out, entry{loc: loc, inv: inv})
	}
	return out
}

// IterSlots yields every slot of every known location. Each call takes a fresh
// view of the snapshots live at that moment. Slots of one location come in
// ascending index order; the order of locations is unspecified.
func (s *Store) IterSlots() iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		for _, e := range s.entries() {
			for i, it := range e.inv.Slots {
				if !yield(Slot{Location: e.loc, Index: uint32(i), Item: it, OpenFrom: e.inv.OpenFrom}) {
					return
				}
			}
		}
	}
}
