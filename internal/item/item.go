// Package item models scanned items: their stackable identity and the nested
// contents of container items.
package item

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash is a stackable hash. It crosses the wire as a decimal string.
type Hash uint64

func (h Hash) String() string {
	return strconv.FormatUint(uint64(h), 10)
}

// MarshalText renders the hash in decimal.
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// UnmarshalText parses a decimal hash.
func (h *Hash) UnmarshalText(text []byte) error {
	v, err := ParseHash(string(text))
	if err != nil {
		return err
	}
	*h = v
	return nil
}

// ParseHash parses the decimal form of a hash.
func ParseHash(s string) (Hash, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid stackable hash %q: %w", s, err)
	}
	return Hash(v), nil
}

// Raw is an item as reported by a scanner, before catalog enrichment.
type Raw struct {
	ItemID         uint32          `json:"item_id"`
	Count          uint32          `json:"count"`
	DataComponents json.RawMessage `json:"data_components,omitempty"`
}

// Item is a decoded item stack.
type Item struct {
	ItemID         uint32          `json:"item_id"`
	Count          uint32          `json:"count"`
	DataComponents json.RawMessage `json:"data_components"`
	StackSize      uint32          `json:"stack_size"`
	StackableHash  Hash            `json:"stackable_hash"`

	// FullShulkerStackableHash is only set on listing output: the hash of a
	// container kind that holds nothing but full stacks of this item.
	FullShulkerStackableHash *Hash `json:"full_shulker_stackable_hash"`

	Shulker *ShulkerData `json:"-"`
}

// ShulkerData is the decoded payload of a container item.
type ShulkerData struct {
	Name           *string
	Color          *string
	ContainedItems []Item
	Empty          bool
}

// IsShulker reports whether the item carries a container payload.
func (it *Item) IsShulker() bool {
	return it.Shulker != nil
}

// Clone returns a deep copy of the item, container payload included.
func (it Item) Clone() Item {
	out := it
	if it.FullShulkerStackableHash != nil {
		h := *it.FullShulkerStackableHash
		out.FullShulkerStackableHash = &h
	}
	if it.Shulker != nil {
		sd := *it.Shulker
		sd.ContainedItems = make([]Item, len(it.Shulker.ContainedItems))
		for i, c := range it.Shulker.ContainedItems {
			sd.ContainedItems[i] = c.Clone()
		}
		out.Shulker = &sd
	}
	return out
}

func (it Item) String() string {
	return fmt.Sprintf("%d x%d", it.ItemID, it.Count)
}

// StackableHash derives the identity shared by interchangeable items. It covers
// the item id and the canonical form of the data components, never the count.
func StackableHash(itemID uint32, dataComponents json.RawMessage) Hash {
	d := xxhash.New()
	var id [4]byte
	binary.LittleEndian.PutUint32(id[:], itemID)
	_, _ = d.Write(id[:])
	_, _ = d.Write(canonicalJSON(dataComponents))
	return Hash(d.Sum64())
}

var jsonNull = []byte("null")

// canonicalJSON re-encodes v with sorted object keys and no insignificant
// whitespace. Missing or undecodable input hashes as its raw bytes, and absent
// input as null.
func canonicalJSON(v json.RawMessage) []byte {
	trimmed := bytes.TrimSpace(v)
	if len(trimmed) == 0 {
		return jsonNull
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return trimmed
	}
	out, err := json.Marshal(decoded)
	if err != nil {
		return trimmed
	}
	return out
}
