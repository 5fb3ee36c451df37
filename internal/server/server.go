package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"github.com/gravitas-games/sortsys/internal/catalog"
	"github.com/gravitas-games/sortsys/internal/config"
	"github.com/gravitas-games/sortsys/internal/holds"
	"github.com/gravitas-games/sortsys/internal/inventory"
	"github.com/gravitas-games/sortsys/internal/operator"
)

// Server exposes the operator state over HTTP and the agent WebSocket channel
type Server struct {
	config   *config.Config
	state    *operator.State
	upgrader websocket.Upgrader
	httpSrv  *http.Server
	auth     TokenValidator
	redis    *redis.Client

	// Connection tracking
	connections map[*Connection]bool
	connMu      sync.RWMutex

	// Shutdown
	ctx    context.Context
	cancel context.CancelFunc
}

// New connects to Redis, builds the hold store selected by the config and
// wraps everything in a server
func New(cfg *config.Config, cat *catalog.Catalog) (*Server, error) {
	log.Println("Initializing server...")

	ctx, cancel := context.WithCancel(context.Background())

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	if err := redisClient.Ping(ctx).Err(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.Println("Connected to Redis")

	validator, err := NewJWTValidator(cfg, redisClient)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize JWT validator: %w", err)
	}

	var store holds.Store
	switch cfg.Holds.Backend {
	case config.HoldBackendRedis:
		store = holds.NewRedisStore(ctx, redisClient, cfg.Holds.KeyPrefix, cfg.Holds.TTL())
	default:
		store = holds.NewMemoryStore(holds.WithTTL(cfg.Holds.TTL()))
	}
	log.Printf("Using %s hold store (ttl %s)", cfg.Holds.Backend, cfg.Holds.TTL())

	unpacking, err := inventory.ParseShulkerUnpacking(cfg.Listing.DefaultUnpacking)
	if err != nil {
		cancel()
		return nil, err
	}
	state := operator.New(cat, store, operator.WithDefaultListing(inventory.ListingOptions{ShulkerUnpacking: unpacking}))

	srv := newServer(ctx, cancel, cfg, state, validator)
	srv.redis = redisClient

	log.Println("Server initialized successfully")
	return srv, nil
}

// NewWithState wraps existing operator state. It does not touch Redis.
func NewWithState(cfg *config.Config, state *operator.State, auth TokenValidator) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return newServer(ctx, cancel, cfg, state, auth)
}

func newServer(ctx context.Context, cancel context.CancelFunc, cfg *config.Config, state *operator.State, auth TokenValidator) *Server {
	return &Server{
		config:      cfg,
		state:       state,
		auth:        auth,
		connections: make(map[*Connection]bool),
		ctx:         ctx,
		cancel:      cancel,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			Subprotocols:    []string{"access_token"},
			CheckOrigin: func(r *http.Request) bool {
				// Agents are headless clients and send no Origin
				return true
			},
		},
	}
}

// Handler returns the routed HTTP handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /data/items", s.handleItems)

	mux.HandleFunc("GET /automation/inventory_listing", s.authenticated(permAutomation, s.handleListing))
	mux.HandleFunc("POST /automation/holds", s.authenticated(permAutomation, s.handleRequestHolds))
	mux.HandleFunc("DELETE /automation/holds", s.authenticated(permAutomation, s.handleReleaseHolds))

	mux.HandleFunc("POST /agent/inventory_scanned", s.authenticated(permAgent, s.handleInventoryScanned))
	mux.HandleFunc("GET /agent/hold/{id}", s.authenticated(permAgent, s.handleGetHold))

	mux.HandleFunc("GET /admin/stats", s.authenticated(permAdmin, s.handleStats))
	return mux
}

// Start begins listening for connections
func (s *Server) Start(addr string) error {
	log.Printf("Starting operator on %s", addr)

	s.httpSrv = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Printf("WebSocket endpoint: ws://%s/ws", addr)
	log.Printf("Health endpoint: http://%s/health", addr)

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown() error {
	log.Println("Shutting down server...")

	s.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.httpSrv != nil {
		if err := s.httpSrv.Shutdown(ctx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}
	}

	// Close all WebSocket connections
	s.connMu.RLock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.connMu.RUnlock()
	for _, conn := range conns {
		conn.Close()
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

// handleWebSocket handles WebSocket connection requests from agents
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	log.Printf("New WebSocket connection request from %s", r.RemoteAddr)

	agent, ok := s.authenticate(w, r, permAgent)
	if !ok {
		return
	}

	log.Printf("Authenticated agent: %s (%s) from %s", agent.Name, agent.ID, r.RemoteAddr)

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	conn := NewConnection(ws, s, agent)

	s.connMu.Lock()
	s.connections[conn] = true
	s.connMu.Unlock()

	log.Printf("WebSocket connection established: %s (%s)", agent.Name, r.RemoteAddr)

	// Handle connection (blocking)
	conn.Handle()

	s.connMu.Lock()
	delete(s.connections, conn)
	s.connMu.Unlock()

	log.Printf("WebSocket connection closed: %s (%s)", agent.Name, r.RemoteAddr)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
