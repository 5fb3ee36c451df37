package server

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/gravitas-games/sortsys/internal/network"
	"github.com/gravitas-games/sortsys/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; a full scan with container
	// contents runs to tens of kilobytes
	maxMessageSize = 256 * 1024
)

// Connection represents a WebSocket connection to an agent
type Connection struct {
	ws     *websocket.Conn
	server *Server

	// Authenticated agent
	agent *models.Agent

	// Buffered channel for outbound messages
	send chan []byte

	mu     sync.Mutex
	closed bool
}

// NewConnection creates a new connection for an authenticated agent
func NewConnection(ws *websocket.Conn, server *Server, agent *models.Agent) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		agent:  agent,
		send:   make(chan []byte, 256),
	}
}

// Handle registers the agent and manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	state := c.server.state
	state.RegisterAgent(c.agent)

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			AgentID:        c.agent.ID,
			Name:           c.agent.Name,
			SessionID:      c.agent.SessionID,
			CatalogDigest:  state.Catalog().Digest(),
			CatalogEntries: state.Catalog().Len(),
		},
	})

	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the operator
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Failed to parse client message: %v", err)
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			// Server shutting down
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	switch msg.Type {
	case network.MsgTypeInventoryScanned:
		c.handleInventoryScanned(msg.Payload)

	case network.MsgTypeHoldRequest:
		c.handleHoldRequest(msg.Payload)

	case network.MsgTypeHoldRelease:
		c.handleHoldRelease(msg.Payload)

	case network.MsgTypeHeartbeat:
		c.handleHeartbeat()

	case network.MsgTypePing:
		c.handlePing()

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		c.SendError("unknown_message_type", "Unknown message type")
	}
}

func (c *Connection) handleInventoryScanned(payload json.RawMessage) {
	ack, err := c.server.ingest(c.agent, payload)
	if err != nil {
		log.Printf("Rejected scan from %s: %v", c.agent.Name, err)
		c.SendError("invalid_scan", err.Error())
		return
	}
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypeScanAccepted, Payload: ack})
}

func (c *Connection) handleHoldRequest(payload json.RawMessage) {
	reqs, err := decodeHoldRequests(payload)
	if err != nil {
		c.SendError("invalid_request", err.Error())
		return
	}

	results := c.server.state.RequestHolds(reqs)
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeHoldResult,
		Payload: network.HoldResultsPayload{Results: results},
	})
}

func (c *Connection) handleHoldRelease(payload json.RawMessage) {
	var release network.HoldReleasePayload
	if err := json.Unmarshal(payload, &release); err != nil {
		c.SendError("invalid_request", "Invalid hold release")
		return
	}

	released, unknown, err := c.server.state.ReleaseHolds(release.HoldIDs)
	if err != nil {
		log.Printf("Failed to release holds for %s: %v", c.agent.Name, err)
		c.SendError("store_unavailable", err.Error())
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeHoldReleased,
		Payload: network.HoldReleasedPayload{Released: released, Unknown: unknown},
	})
}

func (c *Connection) handleHeartbeat() {
	if err := c.server.state.Heartbeat(c.agent.ID); err != nil {
		c.SendError("not_registered", err.Error())
	}
}

func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

// SendMessage queues a message for the agent
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.send <- data:
	default:
		log.Printf("Send buffer full, dropping message")
	}
}

// SendError sends an error message to the agent
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close unregisters the agent and closes the connection. It is safe to call
// more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()

	c.server.state.RemoveAgent(c.agent)
	c.ws.Close()
}
