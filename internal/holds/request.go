package holds

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gravitas-games/sortsys/pkg/models"
)

// Request is a declarative description of the slot(s) an agent wants to hold.
// It is one of EmptySlot, ItemMatch or SlotLocation.
type Request interface {
	isRequest()
}

// EmptySlot asks for any slot with no item and no hold.
type EmptySlot struct{}

// ItemMatch asks for enough slots holding matching items to cover Total units.
type ItemMatch struct {
	Criteria Criteria
	Total    uint64
}

// SlotLocation asks for one specific slot, whatever it contains.
type SlotLocation struct {
	Location models.Location `json:"location"`
	Slot     uint32          `json:"slot"`
	OpenFrom models.Vec3     `json:"open_from"`
}

func (EmptySlot) isRequest()    {}
func (ItemMatch) isRequest()    {}
func (SlotLocation) isRequest() {}

type wireItemMatch struct {
	MatchCriteria json.RawMessage `json:"match_criteria"`
	Total         uint64          `json:"total"`
}

type wireRequest struct {
	ItemMatch    *wireItemMatch `json:"ItemMatch,omitempty"`
	SlotLocation *SlotLocation  `json:"SlotLocation,omitempty"`
}

// DecodeRequest parses the JSON form of a request: the string "EmptySlot" or
// an object keyed by "ItemMatch" or "SlotLocation".
func DecodeRequest(data []byte) (Request, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var tag string
		if err := json.Unmarshal(trimmed, &tag); err != nil {
			return nil, fmt.Errorf("holds: invalid request: %w", err)
		}
		if tag != "EmptySlot" {
			return nil, fmt.Errorf("holds: unknown request %q", tag)
		}
		return EmptySlot{}, nil
	}

	var w wireRequest
	if err := json.Unmarshal(trimmed, &w); err != nil {
		return nil, fmt.Errorf("holds: invalid request: %w", err)
	}
	switch {
	case w.ItemMatch != nil && w.SlotLocation == nil:
		if len(w.ItemMatch.MatchCriteria) == 0 {
			return nil, errors.New("holds: item match requires match_criteria")
		}
		criteria, err := DecodeCriteria(w.ItemMatch.MatchCriteria)
		if err != nil {
			return nil, err
		}
		return ItemMatch{Criteria: criteria, Total: w.ItemMatch.Total}, nil
	case w.SlotLocation != nil && w.ItemMatch == nil:
		return *w.SlotLocation, nil
	default:
		return nil, errors.New("holds: request must name exactly one kind")
	}
}

// EncodeRequest renders r in its JSON form.
func EncodeRequest(r Request) ([]byte, error) {
	switch v := r.(type) {
	case EmptySlot:
		return []byte(`"EmptySlot"`), nil
	case ItemMatch:
		criteria, err := EncodeCriteria(v.Criteria)
		if err != nil {
			return nil, err
		}
		return json.Marshal(wireRequest{ItemMatch: &wireItemMatch{MatchCriteria: criteria, Total: v.Total}})
	case SlotLocation:
		return json.Marshal(wireRequest{SlotLocation: &v})
	default:
		return nil, fmt.Errorf("holds: cannot encode request %T", r)
	}
}
