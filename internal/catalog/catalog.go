// Package catalog provides the static item catalog: numeric item ids mapped to
// their registry key, display name and maximum stack size.
package catalog

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// DefaultStackSize is used for items the catalog does not know about.
const DefaultStackSize = 64

// Entry describes one catalog item in the exporter's format.
type Entry struct {
	RawID       uint32 `json:"rawId"`
	DisplayName string `json:"displayName"`
	Key         string `json:"key"`
	MaxCount    uint32 `json:"maxCount"`
}

// Name returns the registry key without its namespace ("minecraft:stone" -> "stone").
func (e Entry) Name() string {
	if i := strings.IndexByte(e.Key, ':'); i >= 0 {
		return e.Key[i+1:]
	}
	return e.Key
}

// StackSize returns MaxCount, or DefaultStackSize when the entry carries no size.
func (e Entry) StackSize() uint32 {
	if e.MaxCount == 0 {
		return DefaultStackSize
	}
	return e.MaxCount
}

// Catalog stores entries keyed by raw id. It is safe for concurrent use.
type Catalog struct {
	mu     sync.RWMutex
	byID   map[uint32]Entry
	raw    []byte
	digest string
}

// New constructs a catalog seeded with entries. The published dump is the JSON
// encoding of the entries sorted by raw id.
func New(entries ...Entry) *Catalog {
	c := &Catalog{byID: make(map[uint32]Entry, len(entries))}
	for _, e := range entries {
		_ = c.Register(e) // ignore duplicates during seed
	}
	raw, err := json.Marshal(c.Export())
	if err == nil {
		c.setRaw(raw)
	}
	return c
}

// Parse builds a catalog from an exporter JSON dump. The bytes are kept
// verbatim for publication.
func Parse(data []byte) (*Catalog, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	c := &Catalog{byID: make(map[uint32]Entry, len(entries))}
	for _, e := range entries {
		if err := c.Register(e); err != nil {
			return nil, err
		}
	}
	c.setRaw(data)
	return c, nil
}

// Load reads a catalog file. Files ending in .zst are zstd-compressed.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		data, err = dec.DecodeAll(data, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to decompress catalog file: %w", err)
		}
	}
	return Parse(bytes.TrimSpace(data))
}

// Register inserts an entry. Raw ids must be unique.
func (c *Catalog) Register(e Entry) error {
	if e.Key == "" {
		return errors.New("catalog: entry missing key")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.byID == nil {
		c.byID = make(map[uint32]Entry)
	}
	if existing, ok := c.byID[e.RawID]; ok && existing.Key != e.Key {
		return fmt.Errorf("catalog: raw id %d already assigned to %s", e.RawID, existing.Key)
	}
	c.byID[e.RawID] = e
	return nil
}

// Lookup returns the entry for id, if present.
func (c *Catalog) Lookup(id uint32) (Entry, bool) {
	if c == nil {
		return Entry{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.byID[id]
	return e, ok
}

// StackSize returns the maximum stack size for id, or DefaultStackSize when
// the id is unknown or the entry carries no size.
func (c *Catalog) StackSize(id uint32) uint32 {
	e, _ := c.Lookup(id)
	return e.StackSize()
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Export copies catalog contents into a slice sorted by raw id.
func (c *Catalog) Export() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Entry, 0, len(c.byID))
	for _, e := range c.byID {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RawID < out[j].RawID })
	return out
}

// Raw returns the catalog dump served to clients.
func (c *Catalog) Raw() []byte {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.raw
}

// Digest returns the hex sha256 of Raw.
func (c *Catalog) Digest() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.digest
}

func (c *Catalog) setRaw(raw []byte) {
	sum := sha256.Sum256(raw)
	c.mu.Lock()
	c.raw = raw
	c.digest = hex.EncodeToString(sum[:])
	c.mu.Unlock()
}
