package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/lox/blackjackforbots/internal/server" // Reuse message types
)

// Client is a WebSocket client for the blackjack server. Incoming messages
// are delivered on Receive in arrival order.
type Client struct {
	serverURL string
	conn      *websocket.Conn
	send      chan *server.Message
	receive   chan *server.Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	connected bool
	closeOnce sync.Once
}

// NewClient creates a client for the given server URL.
func NewClient(serverURL string, logger *log.Logger) *Client {
	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		serverURL: serverURL,
		send:      make(chan *server.Message, 256),
		receive:   make(chan *server.Message, 256),
		logger:    logger.WithPrefix("client"),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Connect dials the server and starts the pumps.
func (c *Client) Connect() error {
	u, err := url.Parse(c.serverURL)
	if err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = "/ws"

	c.logger.Info("Connecting to server", "url", u.String())
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()

	go c.readPump()
	go c.writePump()
	return nil
}

// Disconnect closes the connection.
func (c *Client) Disconnect() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
			c.connected = false
		}
		close(c.send)
		close(c.receive)
	})
	return nil
}

// IsConnected reports whether the connection is up.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// Receive returns the channel of incoming messages. It closes on disconnect.
func (c *Client) Receive() <-chan *server.Message {
	return c.receive
}

// Send queues a raw message for the server.
func (c *Client) Send(messageType server.MessageType, data interface{}) error {
	msg, err := server.NewMessage(messageType, data)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", messageType, err)
	}

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	}
}

// Hello registers the player's name with the server.
func (c *Client) Hello(name string) error {
	return c.Send(server.TypeHello, server.HelloData{Name: name})
}

// CreateTable asks the server for a new table.
func (c *Client) CreateTable(name string) error {
	return c.Send(server.TypeCreateTable, server.CreateTableData{Name: name})
}

// JoinTable seats the player at a table.
func (c *Client) JoinTable(tableID string) error {
	return c.Send(server.TypeJoinTable, server.JoinTableData{TableID: tableID})
}

// ListTables requests the lobby listing.
func (c *Client) ListTables() error {
	return c.Send(server.TypeListTables, nil)
}

// StartGame starts a round at the joined table.
func (c *Client) StartGame() error {
	return c.Send(server.TypeStartGame, nil)
}

// Hit draws a card.
func (c *Client) Hit() error {
	return c.Send(server.TypeHit, nil)
}

// Stand passes the turn.
func (c *Client) Stand() error {
	return c.Send(server.TypeStand, nil)
}

// StopGame asks to stop the running game.
func (c *Client) StopGame() error {
	return c.Send(server.TypeStopGame, nil)
}

// GetStats requests the server's player statistics.
func (c *Client) GetStats() error {
	return c.Send(server.TypeGetStats, nil)
}

func (c *Client) readPump() {
	defer func() { _ = c.Disconnect() }()

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("Read failed", "error", err)
			}
			return
		}

		select {
		case c.receive <- &msg:
		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Client) writePump() {
	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("Write failed", "error", err)
				_ = c.Disconnect()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
