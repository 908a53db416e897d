package server

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"tick-stream/src/interfaces"
	"tick-stream/src/logger"
	"tick-stream/src/models"

	"github.com/gin-gonic/gin"
)

// Compile-time interface check
var _ interfaces.IDataExchanger = (*StreamServer)(nil)

// -----------------------------------------------------------------------------
// StreamServer
// -----------------------------------------------------------------------------

type StreamServer struct {
	Config *models.MConfig
	Logger *logger.Logger
	engine *gin.Engine

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan *models.MLatestData // Strongly typed and Buffered Queue
	register   chan *Client
	unregister chan *Client

	// Local cache
	latestState *models.MLatestData
	stateMutex  sync.RWMutex
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewStreamServer(cfg *models.MConfig, log *logger.Logger) *StreamServer {
	if cfg.LogLevel != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &StreamServer{
		Config:  cfg,
		Logger:  log,
		engine:  gin.Default(),
		clients: make(map[*Client]struct{}),
		// Buffered channel so tick bursts never block the stream fan-out
		broadcast:  make(chan *models.MLatestData, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		latestState: &models.MLatestData{
			Type:     "INITIAL",
			Ticks:    make(map[string]models.MTickUpdate),
			Statuses: make(map[string]models.MStreamStatus),
		},
	}

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *StreamServer) setupRoutes() {
	// REST API endpoints
	s.engine.GET("/api/health", s.getHealth)
	s.engine.GET("/api/status", s.getStatus)
	s.engine.GET("/api/config", s.getConfig)

	// WebSocket endpoint
	s.engine.GET("/ws", s.handleWebSocket)
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

func (s *StreamServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting server on %s", addr)

	go s.handleWebsockets()

	return s.engine.Run(addr)
}

// -----------------------------------------------------------------------------

func (s *StreamServer) Stop() error {
	// Clean shutdown
	close(s.broadcast)
	close(s.register)
	close(s.unregister)
	return nil
}

// -----------------------------------------------------------------------------
// Route Handlers
// -----------------------------------------------------------------------------

func (s *StreamServer) getHealth(c *gin.Context) {
	s.stateMutex.RLock()
	connections := len(s.clients)
	timestamp := s.latestState.Timestamp
	s.stateMutex.RUnlock()

	c.JSON(200, gin.H{
		"status":        "ok",
		"connections":   connections,
		"latest_update": timestamp,
	})
}

// -----------------------------------------------------------------------------

func (s *StreamServer) getStatus(c *gin.Context) {
	s.stateMutex.RLock()
	defer s.stateMutex.RUnlock()

	c.JSON(200, s.latestState.Statuses)
}

// -----------------------------------------------------------------------------

func (s *StreamServer) getConfig(c *gin.Context) {
	// Expose the resilience tunables, not the storage credentials
	c.JSON(200, gin.H{
		"symbols": s.Config.Symbols,
		"stream":  s.Config.Stream,
	})
}

// -----------------------------------------------------------------------------

// snapshotLocked clones the current state for a fresh websocket client.
// Caller must hold at least a read lock.
func (s *StreamServer) snapshotLocked() *models.MLatestData {
	ticks := make(map[string]models.MTickUpdate, len(s.latestState.Ticks))
	for k, v := range s.latestState.Ticks {
		ticks[k] = v
	}
	statuses := make(map[string]models.MStreamStatus, len(s.latestState.Statuses))
	for k, v := range s.latestState.Statuses {
		statuses[k] = v
	}

	return &models.MLatestData{
		Type:      "INITIAL",
		Ticks:     ticks,
		Statuses:  statuses,
		Timestamp: time.Now().Unix(),
	}
}
