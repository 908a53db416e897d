package server

import (
	"encoding/json"
	"net/http"
	"time"

	"tick-stream/src/helpers"
	"tick-stream/src/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *StreamServer) handleWebsockets() {
	for {
		select {
		case client, ok := <-s.register:
			if !ok {
				// Server stopped
				return
			}
			s.clients[client] = struct{}{}
			// Send initial state on connect
			s.stateMutex.RLock()
			client.send <- s.snapshotLocked()
			s.stateMutex.RUnlock()

		case client, ok := <-s.unregister:
			if !ok {
				return
			}
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
			}

		case message, ok := <-s.broadcast:
			if !ok {
				return
			}
			// Broadcast to all clients
			for client := range s.clients {
				select {
				case client.send <- message:
					// Message sent successfully
				default:
					// Client too slow, disconnect to prevent Hub blocking
					delete(s.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// BroadcastTick merges one tick update into the state and fans it out.
func (s *StreamServer) BroadcastTick(update models.MTickUpdate) {
	s.stateMutex.Lock()
	s.latestState.Ticks[update.Symbol] = update
	s.latestState.Timestamp = time.Now().Unix()
	s.latestState.Type = "UPDATE"
	s.stateMutex.Unlock()

	payload := &models.MLatestData{
		Type:      "UPDATE",
		Ticks:     map[string]models.MTickUpdate{update.Symbol: update},
		Timestamp: time.Now().Unix(),
	}

	// Non-blocking send; with a 256 queue dropping is rare and harmless,
	// the next tick supersedes this one anyway.
	select {
	case s.broadcast <- payload:
	default:
		s.Logger.Warning("Broadcast queue full, dropping update for %s", update.Symbol)
	}
}

// -----------------------------------------------------------------------------

// UpdateStatuses replaces the status snapshot without broadcasting.
func (s *StreamServer) UpdateStatuses(statuses map[string]models.MStreamStatus) {
	s.stateMutex.Lock()
	s.latestState.Statuses = statuses
	s.stateMutex.Unlock()
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *StreamServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := &Client{
		hub:  s,
		conn: conn,
		// Buffered channel to prevent blocking the Hub loop
		send: make(chan interface{}, 256),
	}

	s.register <- client

	// Start goroutines for reading/writing
	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------
// Client Message Handling
// -----------------------------------------------------------------------------

func (s *StreamServer) HandleClientMessage(client *Client, message []byte) {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		s.Logger.Info("%v, disconnecting client", helpers.NewProtocolError("failed to parse client command", err))
		client.conn.Close()
		return
	}

	if cmd.Command != "subscribe" {
		return
	}

	s.stateMutex.RLock()
	response := s.filteredSnapshot(cmd.Symbols)
	s.stateMutex.RUnlock()

	// Use select to avoid blocking if client's send buffer is full
	select {
	case client.send <- response:
	default:
	}
}

// -----------------------------------------------------------------------------
// Response Filtering
// -----------------------------------------------------------------------------

// filteredSnapshot returns the current state limited to the requested
// symbols. Caller must hold at least a read lock.
func (s *StreamServer) filteredSnapshot(symbols []string) *models.MLatestData {
	if len(symbols) == 0 {
		return s.snapshotLocked()
	}

	ticks := make(map[string]models.MTickUpdate)
	statuses := make(map[string]models.MStreamStatus)
	for _, sym := range symbols {
		if tick, ok := s.latestState.Ticks[sym]; ok {
			ticks[sym] = tick
		}
		if status, ok := s.latestState.Statuses[sym]; ok {
			statuses[sym] = status
		}
	}

	return &models.MLatestData{
		Type:      "INITIAL",
		Ticks:     ticks,
		Statuses:  statuses,
		Timestamp: time.Now().Unix(),
	}
}
