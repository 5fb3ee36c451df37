package network

import (
	"encoding/json"

	"github.com/gravitas-games/sortsys/internal/holds"
	"github.com/gravitas-games/sortsys/internal/item"
	"github.com/gravitas-games/sortsys/pkg/models"
)

// Message types - Agent → Operator
const (
	MsgTypeInventoryScanned = "inventory_scanned"
	MsgTypeHoldRequest      = "hold_request"
	MsgTypeHoldRelease      = "hold_release"
	MsgTypeHeartbeat        = "heartbeat"
	MsgTypePing             = "ping"
)

// Message types - Operator → Agent
const (
	MsgTypeWelcome      = "welcome"
	MsgTypeScanAccepted = "scan_accepted"
	MsgTypeHoldResult   = "hold_result"
	MsgTypeHoldReleased = "hold_released"
	MsgTypeError        = "error"
	MsgTypePong         = "pong"
)

// Hold match outcomes as they appear on the wire.
const (
	HoldErrorAlreadyHeld = "AlreadyHeld"
	HoldErrorNoMatch     = "NoMatch"
	HoldErrorUnavailable = "Unavailable" // hold store failure
)

// ClientMessage represents any message from an agent to the operator
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from the operator to an agent
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Agent Message Payloads ---

// InventoryScannedPayload reports the contents of one container
type InventoryScannedPayload struct {
	Location models.Location `json:"location"`
	Slots    []*item.Raw     `json:"slots"` // nil entries are empty slots
	OpenFrom models.Vec3     `json:"open_from"`
}

// HoldRequestPayload asks for holds; each request is matched independently
type HoldRequestPayload struct {
	Requests []json.RawMessage `json:"requests"`
}

// HoldReleasePayload releases holds by id
type HoldReleasePayload struct {
	HoldIDs []string `json:"hold_ids"`
}

// --- Operator Message Payloads ---

// WelcomePayload is sent to an agent after a successful connection
type WelcomePayload struct {
	AgentID        string `json:"agent_id"`
	Name           string `json:"name"`
	SessionID      string `json:"session_id"`
	CatalogDigest  string `json:"catalog_digest"`
	CatalogEntries int    `json:"catalog_entries"`
}

// ScanAcceptedPayload acknowledges an inventory scan
type ScanAcceptedPayload struct {
	Location models.Location `json:"location"`
	Slots    int             `json:"slots"`
}

// HoldList wraps the holds granted for one request
type HoldList struct {
	Holds []holds.Hold `json:"holds"`
}

// HoldResult is the outcome of one request: either Holds or Error is set
type HoldResult struct {
	Holds *HoldList `json:"Holds,omitempty"`
	Error *string   `json:"Error,omitempty"`
}

// HoldResultsPayload carries results in request order
type HoldResultsPayload struct {
	Results []HoldResult `json:"results"`
}

// HoldReleasedPayload reports which ids were released
type HoldReleasedPayload struct {
	Released []string `json:"released"`
	Unknown  []string `json:"unknown,omitempty"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats summarises operator state for administrators
type Stats struct {
	InventoriesInMem int `json:"inventories_in_mem"`
	TotalSlots       int `json:"total_slots"`
	FreeSlots        int `json:"free_slots"`
	CurrentHolds     int `json:"current_holds"`
	AgentsConnected  int `json:"agents_connected"`
}
