package holds

import (
	"github.com/gravitas-games/sortsys/internal/catalog"
	"github.com/gravitas-games/sortsys/internal/inventory"
	"github.com/gravitas-games/sortsys/internal/item"
	"github.com/gravitas-games/sortsys/pkg/models"
)

const (
	diamondID = 1
	pearlID   = 2
	boxID     = 3
)

var testDecoder = item.NewDecoder(catalog.New(
	catalog.Entry{RawID: diamondID, Key: "minecraft:diamond", MaxCount: 64},
	catalog.Entry{RawID: pearlID, Key: "minecraft:ender_pearl", MaxCount: 16},
	catalog.Entry{RawID: boxID, Key: "minecraft:blue_shulker_box", MaxCount: 1},
))

func loc(x int32) models.Location {
	return models.Location{Vec3: models.Vec3{X: x, Y: 70, Z: -3}, Dim: models.Overworld}
}

func stack(id, count uint32) *item.Item {
	it := testDecoder.Decode(item.Raw{ItemID: id, Count: count})
	return &it
}

func hashOf(id uint32) item.Hash {
	return item.StackableHash(id, nil)
}

func newState(invs map[models.Location][]*item.Item) (*inventory.Store, *MemoryStore, *Matcher) {
	inv := inventory.NewStore()
	for l, slots := range invs {
		inv.SetInventoryAt(l, inventory.Inventory{Slots: slots, OpenFrom: l.Vec3.Add(models.Vec3{Y: 1})})
	}
	store := NewMemoryStore()
	return inv, store, NewMatcher(inv, store)
}
