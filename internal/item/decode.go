package item

import (
	"encoding/json"
	"strings"

	"github.com/gravitas-games/sortsys/internal/catalog"
)

const shulkerSuffix = "shulker_box"

// Catalog resolves catalog entries by raw item id.
type Catalog interface {
	Lookup(id uint32) (catalog.Entry, bool)
}

// Decoder turns raw scanned items into Items using a catalog for stack sizes
// and container detection.
type Decoder struct {
	catalog Catalog
}

// NewDecoder creates a decoder backed by c. A nil catalog treats every item as
// unknown.
func NewDecoder(c Catalog) *Decoder {
	return &Decoder{catalog: c}
}

// Decode enriches raw into an Item. It never fails: unknown ids get the default
// stack size and malformed container data decodes as "not a container" or
// "empty".
func (d *Decoder) Decode(raw Raw) Item {
	entry, known := d.lookup(raw.ItemID) // zero Entry when unknown
	return Item{
		ItemID:         raw.ItemID,
		Count:          raw.Count,
		DataComponents: raw.DataComponents,
		StackSize:      entry.StackSize(),
		StackableHash:  StackableHash(raw.ItemID, raw.DataComponents),
		Shulker:        d.shulkerData(entry, known, raw.DataComponents),
	}
}

func (d *Decoder) lookup(id uint32) (catalog.Entry, bool) {
	if d.catalog == nil {
		return catalog.Entry{}, false
	}
	return d.catalog.Lookup(id)
}

func (d *Decoder) shulkerData(entry catalog.Entry, known bool, components json.RawMessage) *ShulkerData {
	if !known {
		return nil
	}
	name := entry.Name()
	if !strings.HasSuffix(name, shulkerSuffix) {
		return nil
	}

	sd := &ShulkerData{}
	if color, ok := strings.CutSuffix(name, "_"+shulkerSuffix); ok {
		sd.Color = &color
	}
	if custom, ok := customName(components); ok && custom != "" {
		sd.Name = &custom
	}
	if entries, ok := containerEntries(components); ok {
		for _, e := range entries {
			if raw, ok := d.containedRaw(e); ok {
				sd.ContainedItems = append(sd.ContainedItems, d.Decode(raw))
			}
		}
	}
	sd.Empty = len(sd.ContainedItems) == 0
	return sd
}

// containedEntry is one element of the container component array.
type containedEntry struct {
	ID             *uint32         `json:"id"`
	Amount         *uint32         `json:"amount"`
	DataComponents json.RawMessage `json:"data_components"`
}

// containedRaw converts a container entry into a Raw item. Null entries,
// entries missing id or amount, and ids the catalog does not know are skipped.
func (d *Decoder) containedRaw(msg json.RawMessage) (Raw, bool) {
	var e containedEntry
	if err := json.Unmarshal(msg, &e); err != nil || e.ID == nil || e.Amount == nil {
		return Raw{}, false
	}
	if _, ok := d.lookup(*e.ID); !ok {
		return Raw{}, false
	}
	return Raw{ItemID: *e.ID, Count: *e.Amount, DataComponents: e.DataComponents}, true
}
