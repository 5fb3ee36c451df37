package models

import "time"

// Agent is a worker that scans inventories and acts on holds.
type Agent struct {
	// From JWT claims
	ID          string `json:"id"`          // Converted from int64 agent_id
	Name        string `json:"name"`        // JWT claim
	Permissions int64  `json:"permissions"` // JWT claim: bitwise permission flags
	Activated   int64  `json:"activated"`   // JWT claim: activation timestamp or ban status

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`

	// SessionID is assigned by the operator on registration.
	SessionID string `json:"session_id,omitempty"`
}

// Permission flags carried in agent tokens.
const (
	PermAgent      int64 = 1 << iota // may scan and hold
	PermAutomation                   // may query listings and batch holds
	PermAdmin                        // may read stats
)

// IsActive checks if the agent account is activated and not banned
func (a *Agent) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return a.Activated > 0
}

// IsBanned checks if the agent is banned
func (a *Agent) IsBanned() bool {
	return a.Activated == -1
}

// Can reports whether the agent carries every bit in perm.
func (a *Agent) Can(perm int64) bool {
	return a.Permissions&perm == perm
}
