package server

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/gravitas-games/sortsys/internal/holds"
	"github.com/gravitas-games/sortsys/internal/inventory"
	"github.com/gravitas-games/sortsys/internal/network"
	"github.com/gravitas-games/sortsys/pkg/models"
)

const (
	permAgent      = models.PermAgent
	permAutomation = models.PermAutomation
	permAdmin      = models.PermAdmin

	// Largest request body accepted on HTTP endpoints
	maxBodySize = 1 << 20
)

type agentHandler func(w http.ResponseWriter, r *http.Request, agent *models.Agent)

// authenticated wraps h so that it only runs for tokens carrying perm
func (s *Server) authenticated(perm int64, h agentHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		agent, ok := s.authenticate(w, r, perm)
		if !ok {
			return
		}
		h(w, r, agent)
	}
}

// authenticate validates the request token. On failure it has already
// written the response.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request, perm int64) (*models.Agent, bool) {
	tokenString := extractToken(r)
	if tokenString == "" {
		log.Printf("Missing JWT token from %s", r.RemoteAddr)
		writeError(w, http.StatusUnauthorized, "missing_token", "Missing authentication token")
		return nil, false
	}

	agent, err := s.auth.ValidateToken(tokenString)
	if err != nil {
		log.Printf("Invalid JWT token from %s: %v", r.RemoteAddr, err)
		writeError(w, http.StatusUnauthorized, "invalid_token", fmt.Sprintf("Invalid token: %v", err))
		return nil, false
	}

	if !agent.Can(perm) {
		log.Printf("Agent %s (%s) lacks permission %d for %s", agent.Name, agent.ID, perm, r.URL.Path)
		writeError(w, http.StatusForbidden, "forbidden", "Insufficient permissions")
		return nil, false
	}
	return agent, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, network.ErrorPayload{Code: code, Message: message})
}

func readBody(r *http.Request) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r.Body, maxBodySize))
}

// handleItems publishes the catalog exactly as it was loaded
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	cat := s.state.Catalog()
	etag := `"` + cat.Digest() + `"`

	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(cat.Raw())
}

func (s *Server) handleListing(w http.ResponseWriter, r *http.Request, agent *models.Agent) {
	var opts *inventory.ListingOptions
	if mode := r.URL.Query().Get("shulker_unpacking"); mode != "" {
		unpacking, err := inventory.ParseShulkerUnpacking(mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_unpacking", err.Error())
			return
		}
		opts = &inventory.ListingOptions{ShulkerUnpacking: unpacking}
	}
	writeJSON(w, http.StatusOK, s.state.Listing(opts))
}

func (s *Server) handleRequestHolds(w http.ResponseWriter, r *http.Request, agent *models.Agent) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	reqs, err := decodeHoldRequests(body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	results := s.state.RequestHolds(reqs)
	log.Printf("Processed %d hold requests for %s (%s)", len(reqs), agent.Name, agent.ID)
	writeJSON(w, http.StatusOK, network.HoldResultsPayload{Results: results})
}

func decodeHoldRequests(body []byte) ([]holds.Request, error) {
	var payload network.HoldRequestPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse hold requests: %w", err)
	}

	reqs := make([]holds.Request, 0, len(payload.Requests))
	for i, raw := range payload.Requests {
		req, err := holds.DecodeRequest(raw)
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func (s *Server) handleReleaseHolds(w http.ResponseWriter, r *http.Request, agent *models.Agent) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	var ids []string
	if err := json.Unmarshal(body, &ids); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "Expected a JSON array of hold ids")
		return
	}

	released, unknown, err := s.state.ReleaseHolds(ids)
	if err != nil {
		log.Printf("Failed to release holds for %s: %v", agent.Name, err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable", err.Error())
		return
	}

	log.Printf("Released %d holds for %s (%s)", len(released), agent.Name, agent.ID)
	writeJSON(w, http.StatusOK, network.HoldReleasedPayload{Released: released, Unknown: unknown})
}

func (s *Server) handleGetHold(w http.ResponseWriter, r *http.Request, agent *models.Agent) {
	hold, ok := s.state.GetHold(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "hold_not_found", holds.ErrHoldNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, hold)
}

func (s *Server) handleInventoryScanned(w http.ResponseWriter, r *http.Request, agent *models.Agent) {
	body, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	ack, err := s.ingest(agent, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scan", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

// ingest validates and stores one scan report. It is shared by the HTTP and
// WebSocket paths.
func (s *Server) ingest(agent *models.Agent, data []byte) (*network.ScanAcceptedPayload, error) {
	scan, err := network.DecodeInventoryScanned(data)
	if err != nil {
		return nil, err
	}
	n := s.state.IngestScan(scan)
	// HTTP agents are not registered, so only connected agents are refreshed
	_ = s.state.Heartbeat(agent.ID)

	log.Printf("Agent %s scanned %d slots at %s", agent.Name, n, scan.Location)
	return &network.ScanAcceptedPayload{Location: scan.Location, Slots: n}, nil
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request, agent *models.Agent) {
	writeJSON(w, http.StatusOK, s.state.Stats())
}
