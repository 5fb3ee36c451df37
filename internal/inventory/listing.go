package inventory

import (
	"fmt"
	"sort"

	"github.com/gravitas-games/sortsys/internal/item"
)

// ShulkerUnpacking selects which containers a listing opens up.
type ShulkerUnpacking int

const (
	// FullListing unpacks every non-empty container.
	FullListing ShulkerUnpacking = iota
	// UnnamedOnly unpacks non-empty containers without a custom name.
	UnnamedOnly
	// NoUnpacking lists every container as a single opaque item.
	NoUnpacking
)

var unpackingNames = map[ShulkerUnpacking]string{
	FullListing: "FullListing",
	UnnamedOnly: "UnnamedOnly",
	NoUnpacking: "None",
}

func (u ShulkerUnpacking) String() string {
	if name, ok := unpackingNames[u]; ok {
		return name
	}
	return fmt.Sprintf("ShulkerUnpacking(%d)", int(u))
}

// ParseShulkerUnpacking resolves a mode by name.
func ParseShulkerUnpacking(name string) (ShulkerUnpacking, error) {
	for u, n := range unpackingNames {
		if n == name {
			return u, nil
		}
	}
	return 0, fmt.Errorf("unknown shulker unpacking %q", name)
}

// MarshalText encodes the mode by name.
func (u ShulkerUnpacking) MarshalText() ([]byte, error) {
	name, ok := unpackingNames[u]
	if !ok {
		return nil, fmt.Errorf("unknown shulker unpacking %d", int(u))
	}
	return []byte(name), nil
}

// UnmarshalText parses a mode name.
func (u *ShulkerUnpacking) UnmarshalText(text []byte) error {
	v, err := ParseShulkerUnpacking(string(text))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// ListingOptions configures Listing.
type ListingOptions struct {
	ShulkerUnpacking ShulkerUnpacking
}

func (o ListingOptions) unpacks(sd *item.ShulkerData) bool {
	if sd.Empty {
		return false
	}
	switch o.ShulkerUnpacking {
	case FullListing:
		return true
	case UnnamedOnly:
		return sd.Name == nil
	default:
		return false
	}
}

// Listing merges every stored item by stackable hash into one entry per kind.
//
// Containers holding only full stacks of a single kind record a mapping from
// that kind to the container's own hash. After the pass each merged entry is
// tagged with its mapping. When several container kinds map onto one item
// kind, the kind seen most often wins and ties go to the lower hash.
//
// The result is sorted by stackable hash.
func (s *Store) Listing(opts ListingOptions) []item.Item {
	merged := make(map[item.Hash]*item.Item)
	fullShulkers := make(map[item.Hash]map[item.Hash]int)

	insert := func(it *item.Item) {
		if existing, ok := merged[it.StackableHash]; ok {
			existing.Count += it.Count
			return
		}
		cp := it.Clone()
		cp.FullShulkerStackableHash = nil
		merged[it.StackableHash] = &cp
	}

	for slot := range s.IterSlots() {
		it := slot.Item
		if it == nil {
			continue
		}
		sd := it.Shulker
		if sd == nil {
			insert(it)
			continue
		}
		if inner, ok := homogeneousFull(sd); ok {
			counts := fullShulkers[inner]
			if counts == nil {
				counts = make(map[item.Hash]int)
				fullShulkers[inner] = counts
			}
			counts[it.StackableHash]++
		}
		if opts.unpacks(sd) {
			for i := range sd.ContainedItems {
				insert(&sd.ContainedItems[i])
			}
		} else {
			insert(it)
		}
	}

	for inner, counts := range fullShulkers {
		entry, ok := merged[inner]
		if !ok {
			continue
		}
		h := preferredShulker(counts)
		entry.FullShulkerStackableHash = &h
	}

	out := make([]item.Item, 0, len(merged))
	for _, it := range merged {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StackableHash < out[j].StackableHash })
	return out
}

// homogeneousFull reports the contained kind when every contained item shares
// one stackable hash and sits at its full stack size.
func homogeneousFull(sd *item.ShulkerData) (item.Hash, bool) {
	if len(sd.ContainedItems) == 0 {
		return 0, false
	}
	first := sd.ContainedItems[0].StackableHash
	for _, c := range sd.ContainedItems {
		if c.StackableHash != first || c.Count != c.StackSize {
			return 0, false
		}
	}
	return first, true
}

func preferredShulker(counts map[item.Hash]int) item.Hash {
	var best item.Hash
	bestCount := -1
	for h, n := range counts {
		if n > bestCount || (n == bestCount && h < best) {
			best, bestCount = h, n
		}
	}
	return best
}
