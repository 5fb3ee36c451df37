// Package operator holds the shared state every agent and automation client
// works against.
package operator

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gravitas-games/sortsys/internal/catalog"
	"github.com/gravitas-games/sortsys/internal/holds"
	"github.com/gravitas-games/sortsys/internal/inventory"
	"github.com/gravitas-games/sortsys/internal/item"
	"github.com/gravitas-games/sortsys/internal/network"
	"github.com/gravitas-games/sortsys/pkg/models"
)

// ErrUnknownAgent is returned for heartbeats from agents that never registered.
var ErrUnknownAgent = errors.New("operator: unknown agent")

// Option configures a State.
type Option func(*State)

// WithClock overrides the time source used for scan and agent timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *State) {
		s.now = now
	}
}

// WithDefaultListing sets the options used when a listing request names none.
func WithDefaultListing(opts inventory.ListingOptions) Option {
	return func(s *State) {
		s.listing = opts
	}
}

// State ties the catalog, the inventory store and the hold store together.
type State struct {
	ID        string
	CreatedAt time.Time

	catalog     *catalog.Catalog
	decoder     *item.Decoder
	inventories *inventory.Store
	holds       holds.Store
	matcher     *holds.Matcher
	listing     inventory.ListingOptions

	// Agent management
	agents map[string]*models.Agent // agentID -> Agent
	mu     sync.RWMutex

	now func() time.Time
}

// New creates operator state around a loaded catalog and a hold store.
func New(cat *catalog.Catalog, store holds.Store, opts ...Option) *State {
	s := &State{
		ID:          uuid.NewString(),
		catalog:     cat,
		decoder:     item.NewDecoder(cat),
		inventories: inventory.NewStore(),
		holds:       store,
		listing:     inventory.ListingOptions{ShulkerUnpacking: inventory.UnnamedOnly},
		agents:      make(map[string]*models.Agent),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.CreatedAt = s.now()
	s.matcher = holds.NewMatcher(s.inventories, s.holds)

	log.Printf("Operator state %s created with %d catalog entries", s.ID, cat.Len())
	return s
}

// Catalog returns the item catalog.
func (s *State) Catalog() *catalog.Catalog {
	return s.catalog
}

// Inventories returns the inventory store.
func (s *State) Inventories() *inventory.Store {
	return s.inventories
}

// Holds returns the hold store.
func (s *State) Holds() holds.Store {
	return s.holds
}

// IngestScan decodes a scan report and replaces the snapshot at its location.
// It returns the number of slots stored.
func (s *State) IngestScan(scan *network.InventoryScannedPayload) int {
	slots := make([]*item.Item, len(scan.Slots))
	for i, raw := range scan.Slots {
		if raw == nil {
			continue
		}
		it := s.decoder.Decode(*raw)
		slots[i] = &it
	}

	s.inventories.SetInventoryAt(scan.Location, inventory.Inventory{
		Slots:     slots,
		ScannedAt: s.now(),
		OpenFrom:  scan.OpenFrom,
	})
	return len(slots)
}

// Listing merges every stored inventory. A nil opts uses the configured default.
func (s *State) Listing(opts *inventory.ListingOptions) []item.Item {
	o := s.listing
	if opts != nil {
		o = *opts
	}
	return s.inventories.Listing(o)
}

// RequestHolds matches each request independently, in order. Every request
// gets exactly one result.
func (s *State) RequestHolds(reqs []holds.Request) []network.HoldResult {
	results := make([]network.HoldResult, len(reqs))
	for i, req := range reqs {
		granted, err := s.matcher.AttemptMatch(req)
		if err != nil {
			results[i] = network.HoldResult{Error: holdErrorCode(err)}
			continue
		}
		results[i] = network.HoldResult{Holds: &network.HoldList{Holds: granted}}
	}
	return results
}

func holdErrorCode(err error) *string {
	var code string
	switch {
	case errors.Is(err, holds.ErrAlreadyHeld):
		code = network.HoldErrorAlreadyHeld
	case errors.Is(err, holds.ErrNoMatch):
		code = network.HoldErrorNoMatch
	default:
		log.Printf("Hold store failure: %v", err)
		code = network.HoldErrorUnavailable
	}
	return &code
}

// ReleaseHolds releases every id it can. Ids without a live hold are reported
// as unknown; any other store failure aborts the batch.
func (s *State) ReleaseHolds(ids []string) (released, unknown []string, err error) {
	for _, id := range ids {
		switch err := s.holds.Release(id); {
		case err == nil:
			released = append(released, id)
		case errors.Is(err, holds.ErrHoldNotFound):
			unknown = append(unknown, id)
		default:
			return released, unknown, fmt.Errorf("failed to release hold %s: %w", id, err)
		}
	}
	return released, unknown, nil
}

// GetHold returns a live hold by id.
func (s *State) GetHold(id string) (holds.Hold, bool) {
	return s.holds.Get(id)
}

// RegisterAgent marks an agent connected and assigns it a session id.
func (s *State) RegisterAgent(agent *models.Agent) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	agent.Connected = true
	agent.ConnectedAt = now
	agent.LastSeen = now
	agent.SessionID = uuid.NewString()
	s.agents[agent.ID] = agent

	log.Printf("Agent %s (%s) registered with session %s", agent.Name, agent.ID, agent.SessionID)
}

// Heartbeat refreshes an agent's last-seen time.
func (s *State) Heartbeat(agentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent, ok := s.agents[agentID]
	if !ok {
		return ErrUnknownAgent
	}
	agent.LastSeen = s.now()
	return nil
}

// RemoveAgent forgets agent. A later registration under the same id is left
// in place, so a stale connection closing after a reconnect does not evict it.
func (s *State) RemoveAgent(agent *models.Agent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	agent.Connected = false
	if cur, exists := s.agents[agent.ID]; exists && cur == agent {
		log.Printf("Agent %s (%s) disconnected", agent.Name, agent.ID)
		delete(s.agents, agent.ID)
	}
}

// GetAgent retrieves a registered agent by ID
func (s *State) GetAgent(agentID string) (*models.Agent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agent, exists := s.agents[agentID]
	return agent, exists
}

// AgentCount returns the number of connected agents.
func (s *State) AgentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.agents)
}

// Stats summarises the state. A slot is free when it is empty and unheld.
func (s *State) Stats() network.Stats {
	stats := network.Stats{
		InventoriesInMem: s.inventories.Len(),
		CurrentHolds:     s.holds.Len(),
		AgentsConnected:  s.AgentCount(),
	}
	for slot := range s.inventories.IterSlots() {
		stats.TotalSlots++
		if slot.Item != nil {
			continue
		}
		if _, held := s.holds.ExistingHold(slot.Location, slot.Index); !held {
			stats.FreeSlots++
		}
	}
	return stats
}
