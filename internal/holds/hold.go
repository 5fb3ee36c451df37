// Package holds grants agents exclusive claims on individual storage slots.
package holds

import (
	"errors"
	"time"

	"github.com/gravitas-games/sortsys/pkg/models"
)

var (
	// ErrAlreadyHeld is returned when the requested slot already has a live hold.
	ErrAlreadyHeld = errors.New("holds: slot already held")
	// ErrNoMatch is returned when no slot satisfies a request.
	ErrNoMatch = errors.New("holds: no match for request")
	// ErrHoldNotFound is returned when releasing or fetching an unknown hold.
	ErrHoldNotFound = errors.New("holds: hold not found")
)

// Hold is an exclusive claim on one slot of one location.
type Hold struct {
	ID         string          `json:"id"`
	Location   models.Location `json:"location"`
	Slot       uint32          `json:"slot"`
	OpenFrom   models.Vec3     `json:"open_from"`
	CreatedAt  time.Time       `json:"created_at"`
	ValidUntil *time.Time      `json:"valid_until,omitempty"`
}

// Expired reports whether the hold has lapsed at now.
func (h Hold) Expired(now time.Time) bool {
	return h.ValidUntil != nil && !now.Before(*h.ValidUntil)
}

// Store tracks live holds. Create must check for an existing hold and insert
// the new one as a single atomic step.
type Store interface {
	// ExistingHold returns the live hold on (loc, slot), if any.
	ExistingHold(loc models.Location, slot uint32) (Hold, bool)
	// Create claims (loc, slot) or fails with ErrAlreadyHeld.
	Create(loc models.Location, slot uint32, openFrom models.Vec3) (Hold, error)
	// Get returns a live hold by id.
	Get(id string) (Hold, bool)
	// Release removes a hold by id or fails with ErrHoldNotFound.
	Release(id string) error
	// Len returns the number of live holds.
	Len() int
}

type slotKey struct {
	loc  models.Location
	slot uint32
}
