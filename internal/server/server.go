package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

// Server accepts WebSocket clients and routes their commands to tables.
type Server struct {
	addr         string
	upgrader     websocket.Upgrader
	logger       *log.Logger
	tables       *TableManager
	nextPlayerID atomic.Int64

	mu          sync.RWMutex
	connections map[*Connection]bool

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a WebSocket server. Call SetTableManager before Start;
// the manager needs the server as its Broadcaster, so wiring happens in two
// steps.
func NewServer(addr string, logger *log.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		addr: addr,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Bots connect from anywhere; origin checks add nothing
				// for a non-browser protocol.
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		logger:      logger.WithPrefix("server"),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// SetTableManager attaches the table manager handling game commands.
func (s *Server) SetTableManager(tables *TableManager) {
	s.tables = tables
}

// Start serves WebSocket connections until the listener fails or Stop is
// called.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)

	httpServer := &http.Server{Addr: s.addr, Handler: mux}
	go func() {
		<-s.ctx.Done()
		_ = httpServer.Close()
	}()

	s.logger.Info("Starting WebSocket server", "addr", s.addr)
	err := httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop shuts the server down and closes every connection.
func (s *Server) Stop() error {
	s.cancel()

	s.mu.Lock()
	for conn := range s.connections {
		_ = conn.Close()
	}
	s.mu.Unlock()
	return nil
}

// NextPlayerID hands out a fresh player id for a connecting client.
func (s *Server) NextPlayerID() int64 {
	return s.nextPlayerID.Add(1)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	wsConn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := NewConnection(wsConn, s, s.logger)
	s.register(conn)
	conn.Start()

	go func() {
		<-conn.ctx.Done()
		s.unregister(conn)
	}()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, "OK")
}

func (s *Server) register(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", total)
}

func (s *Server) unregister(conn *Connection) {
	s.mu.Lock()
	_, ok := s.connections[conn]
	if ok {
		delete(s.connections, conn)
	}
	total := len(s.connections)
	s.mu.Unlock()

	if ok {
		_ = conn.Close()
		s.logger.Info("Client disconnected", "total", total)
	}
}

// BroadcastToTable sends a message to every connection at a table.
func (s *Server) BroadcastToTable(tableID string, msg *Message) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.TableID() == tableID {
			if err := conn.SendMessage(msg); err != nil {
				s.logger.Error("Failed to send message", "error", err, "player", conn.PlayerName())
			} else {
				count++
			}
		}
	}
	s.logger.Debug("Broadcast to table", "table", tableID, "type", msg.Type, "recipients", count)
}

// SendToPlayer sends a message to one connected player.
func (s *Server) SendToPlayer(playerID int64, msg *Message) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for conn := range s.connections {
		if conn.PlayerID() == playerID {
			return conn.SendMessage(msg)
		}
	}
	return fmt.Errorf("player %d not connected", playerID)
}
