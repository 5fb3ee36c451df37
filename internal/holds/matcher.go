package holds

import (
	"errors"
	"fmt"
	"iter"
	"sort"

	"github.com/gravitas-games/sortsys/internal/inventory"
)

// SlotSource provides the flattened slot view of all known inventories.
type SlotSource interface {
	IterSlots() iter.Seq[inventory.Slot]
}

// Matcher resolves requests into holds.
type Matcher struct {
	slots SlotSource
	holds Store
}

// NewMatcher creates a matcher reading slots and claiming through holds.
func NewMatcher(slots SlotSource, holds Store) *Matcher {
	return &Matcher{slots: slots, holds: holds}
}

// AttemptMatch resolves req into one or more holds. It fails with ErrNoMatch
// or ErrAlreadyHeld; any other error comes from the hold store, in which case
// holds created during this attempt have been released again.
func (m *Matcher) AttemptMatch(req Request) ([]Hold, error) {
	switch r := req.(type) {
	case EmptySlot:
		return m.matchEmptySlot()
	case ItemMatch:
		return m.matchItems(r)
	case SlotLocation:
		return m.matchSlot(r)
	default:
		return nil, fmt.Errorf("holds: unsupported request %T", req)
	}
}

func (m *Matcher) matchEmptySlot() ([]Hold, error) {
	for slot := range m.slots.IterSlots() {
		if slot.Item != nil {
			continue
		}
		if _, held := m.holds.ExistingHold(slot.Location, slot.Index); held {
			continue
		}
		h, err := m.holds.Create(slot.Location, slot.Index, slot.OpenFrom)
		if errors.Is(err, ErrAlreadyHeld) {
			// lost the slot to a concurrent request
			continue
		}
		if err != nil {
			return nil, err
		}
		return []Hold{h}, nil
	}
	return nil, ErrNoMatch
}

func (m *Matcher) matchItems(r ItemMatch) ([]Hold, error) {
	if r.Criteria == nil {
		return nil, ErrNoMatch
	}

	var candidates []inventory.Slot
	for slot := range m.slots.IterSlots() {
		if slot.Item == nil || !r.Criteria.Matches(slot.Item) {
			continue
		}
		if _, held := m.holds.ExistingHold(slot.Location, slot.Index); held {
			continue
		}
		candidates = append(candidates, slot)
	}
	// Largest stacks first keeps the number of holds low; ties keep encounter order.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Item.Count > candidates[j].Item.Count
	})

	var (
		created []Hold
		claimed uint64
	)
	for _, c := range candidates {
		h, err := m.holds.Create(c.Location, c.Index, c.OpenFrom)
		if errors.Is(err, ErrAlreadyHeld) {
			continue
		}
		if err != nil {
			m.rollback(created)
			return nil, err
		}
		created = append(created, h)
		claimed += uint64(c.Item.Count)
		if claimed >= r.Total {
			break
		}
	}
	if len(created) == 0 {
		return nil, ErrNoMatch
	}
	return created, nil
}

func (m *Matcher) matchSlot(r SlotLocation) ([]Hold, error) {
	if _, held := m.holds.ExistingHold(r.Location, r.Slot); held {
		return nil, ErrAlreadyHeld
	}
	h, err := m.holds.Create(r.Location, r.Slot, r.OpenFrom)
	if err != nil {
		return nil, err
	}
	return []Hold{h}, nil
}

func (m *Matcher) rollback(created []Hold) {
	for _, h := range created {
		_ = m.holds.Release(h.ID)
	}
}
