package holds

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gravitas-games/sortsys/internal/item"
	"github.com/gravitas-games/sortsys/pkg/models"
)

func TestEmptySlotSkipsOccupiedAndHeld(t *testing.T) {
	_, store, m := newState(map[models.Location][]*item.Item{
		loc(0): {stack(diamondID, 1), nil, nil},
	})
	_, err := store.Create(loc(0), 1, models.Vec3{})
	require.NoError(t, err)

	holds, err := m.AttemptMatch(EmptySlot{})
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.Equal(t, loc(0), holds[0].Location)
	assert.EqualValues(t, 2, holds[0].Slot)
	assert.Equal(t, loc(0).Vec3.Add(models.Vec3{Y: 1}), holds[0].OpenFrom)

	existing, held := store.ExistingHold(loc(0), 2)
	require.True(t, held, "matched slot must report as held")
	assert.Equal(t, holds[0].ID, existing.ID)

	_, err = m.AttemptMatch(EmptySlot{})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestEmptySlotNoInventories(t *testing.T) {
	_, _, m := newState(nil)
	_, err := m.AttemptMatch(EmptySlot{})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestItemMatchLargestFirst(t *testing.T) {
	_, store, m := newState(map[models.Location][]*item.Item{
		loc(0): {stack(diamondID, 10), stack(pearlID, 16)},
		loc(1): {stack(diamondID, 5), nil, stack(diamondID, 40)},
	})

	holds, err := m.AttemptMatch(ItemMatch{Criteria: StackableHashCriteria{StackableHash: hashOf(diamondID)}, Total: 45})
	require.NoError(t, err)
	require.Len(t, holds, 2)
	assert.Equal(t, loc(1), holds[0].Location)
	assert.EqualValues(t, 2, holds[0].Slot, "the 40-stack comes first")
	assert.Equal(t, loc(0), holds[1].Location)
	assert.EqualValues(t, 0, holds[1].Slot, "then the 10-stack")

	_, held := store.ExistingHold(loc(1), 0)
	assert.False(t, held, "the 5-stack stays unclaimed")
	assert.Equal(t, 2, store.Len())
}

func TestItemMatchPartialFulfilment(t *testing.T) {
	_, _, m := newState(map[models.Location][]*item.Item{
		loc(0): {stack(pearlID, 3), stack(pearlID, 4)},
	})
	holds, err := m.AttemptMatch(ItemMatch{Criteria: StackableHashCriteria{StackableHash: hashOf(pearlID)}, Total: 100})
	require.NoError(t, err)
	assert.Len(t, holds, 2, "all candidates are claimed when the total cannot be met")

	_, err = m.AttemptMatch(ItemMatch{Criteria: StackableHashCriteria{StackableHash: hashOf(pearlID)}, Total: 1})
	assert.ErrorIs(t, err, ErrNoMatch, "held candidates are not offered again")
}

func TestItemMatchNoCandidates(t *testing.T) {
	_, _, m := newState(map[models.Location][]*item.Item{
		loc(0): {stack(pearlID, 3), nil},
	})
	_, err := m.AttemptMatch(ItemMatch{Criteria: StackableHashCriteria{StackableHash: hashOf(diamondID)}, Total: 1})
	assert.ErrorIs(t, err, ErrNoMatch)

	_, err = m.AttemptMatch(ItemMatch{Total: 1})
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestItemMatchTiesKeepEncounterOrder(t *testing.T) {
	_, _, m := newState(map[models.Location][]*item.Item{
		loc(0): {stack(diamondID, 8), stack(diamondID, 8), stack(diamondID, 8)},
	})
	holds, err := m.AttemptMatch(ItemMatch{Criteria: StackableHashCriteria{StackableHash: hashOf(diamondID)}, Total: 16})
	require.NoError(t, err)
	require.Len(t, holds, 2)
	assert.EqualValues(t, 0, holds[0].Slot)
	assert.EqualValues(t, 1, holds[1].Slot)
}

func TestItemMatchExpression(t *testing.T) {
	_, _, m := newState(map[models.Location][]*item.Item{
		loc(0): {stack(diamondID, 64), stack(pearlID, 16), stack(pearlID, 2)},
	})
	criteria, err := CompileExpression("item_id == 2 && count == stack_size")
	require.NoError(t, err)

	holds, err := m.AttemptMatch(ItemMatch{Criteria: criteria, Total: 64})
	require.NoError(t, err)
	require.Len(t, holds, 1)
	assert.EqualValues(t, 1, holds[0].Slot)
}

func TestSlotLocation(t *testing.T) {
	_, store, m := newState(nil)
	req := SlotLocation{Location: loc(7), Slot: 4, OpenFrom: models.Vec3{X: 7, Y: 71}}

	holds, err := m.AttemptMatch(req)
	require.NoError(t, err, "unknown locations can still be held")
	require.Len(t, holds, 1)
	assert.Equal(t, req.OpenFrom, holds[0].OpenFrom)

	_, err = m.AttemptMatch(req)
	assert.ErrorIs(t, err, ErrAlreadyHeld)

	require.NoError(t, store.Release(holds[0].ID))
	_, err = m.AttemptMatch(req)
	assert.NoError(t, err, "released slots become available again")
}

func TestConcurrentSlotLocationExactlyOneWins(t *testing.T) {
	for round := 0; round < 50; round++ {
		_, _, m := newState(nil)
		req := SlotLocation{Location: loc(1), Slot: 0}

		var (
			wg       sync.WaitGroup
			wins     atomic.Int32
			conflict atomic.Int32
		)
		start := make(chan struct{})
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				_, err := m.AttemptMatch(req)
				switch {
				case err == nil:
					wins.Add(1)
				case errors.Is(err, ErrAlreadyHeld):
					conflict.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()
		require.EqualValues(t, 1, wins.Load())
		require.EqualValues(t, 7, conflict.Load())
	}
}

func TestConcurrentEmptySlotNeverOverlaps(t *testing.T) {
	slots := make([]*item.Item, 20)
	_, store, m := newState(map[models.Location][]*item.Item{loc(0): slots, loc(1): slots})

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[slotKey]bool{}
		dup  bool
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				holds, err := m.AttemptMatch(EmptySlot{})
				if err != nil {
					return
				}
				mu.Lock()
				key := slotKey{loc: holds[0].Location, slot: holds[0].Slot}
				dup = dup || seen[key]
				seen[key] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.False(t, dup, "no slot may be granted twice")
	assert.Len(t, seen, 40)
	assert.Equal(t, 40, store.Len())
}

type failingStore struct {
	*MemoryStore
	failAfter int
	creates   int
}

var errBackend = errors.New("backend down")

func (f *failingStore) Create(l models.Location, slot uint32, openFrom models.Vec3) (Hold, error) {
	f.creates++
	if f.creates > f.failAfter {
		return Hold{}, errBackend
	}
	return f.MemoryStore.Create(l, slot, openFrom)
}

func TestItemMatchRollsBackOnStoreFailure(t *testing.T) {
	inv, _, _ := newState(map[models.Location][]*item.Item{
		loc(0): {stack(diamondID, 10), stack(diamondID, 9), stack(diamondID, 8)},
	})
	store := &failingStore{MemoryStore: NewMemoryStore(), failAfter: 1}
	m := NewMatcher(inv, store)

	_, err := m.AttemptMatch(ItemMatch{Criteria: StackableHashCriteria{StackableHash: hashOf(diamondID)}, Total: 27})
	require.ErrorIs(t, err, errBackend)
	assert.Equal(t, 0, store.Len(), "holds from the failed attempt are released")
}
