package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

// Connection wraps one WebSocket client.
type Connection struct {
	conn      *websocket.Conn
	server    *Server
	send      chan *Message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once

	playerID   int64
	playerName string
	tableID    string
}

// NewConnection creates a connection wrapper around an upgraded socket.
func NewConnection(conn *websocket.Conn, server *Server, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:   conn,
		server: server,
		send:   make(chan *Message, 256),
		logger: logger.WithPrefix("conn"),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins the read and write pumps.
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down.
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for delivery.
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// send channel closed during shutdown
			c.logger.Debug("Send on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Send buffer full, closing connection")
		_ = c.Close()
		return websocket.ErrCloseSent
	}
}

// PlayerID returns the id assigned at hello, or 0.
func (c *Connection) PlayerID() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// PlayerName returns the name sent at hello.
func (c *Connection) PlayerName() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerName
}

// TableID returns the table this connection joined, or "".
func (c *Connection) TableID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage dispatches a client command. Errors go back as typed error
// messages; the connection stays open.
func (c *Connection) handleMessage(msg *Message) {
	switch msg.Type {
	case TypeHello:
		c.handleHello(msg.Data)
	case TypeCreateTable:
		c.handleCreateTable(msg.Data)
	case TypeJoinTable:
		c.handleJoinTable(msg.Data)
	case TypeListTables:
		c.handleListTables()
	case TypeStartGame:
		c.handleTableCommand(msg.Data, func(t *Table) error { return t.Start() })
	case TypeHit:
		c.handleTableCommand(msg.Data, func(t *Table) error { return t.Hit(c.PlayerID()) })
	case TypeStand:
		c.handleTableCommand(msg.Data, func(t *Table) error { return t.Stand(c.PlayerID()) })
	case TypeStopGame:
		c.handleTableCommand(msg.Data, func(t *Table) error { return t.Stop(c.PlayerID()) })
	case TypeGetStats:
		c.handleGetStats()
	default:
		c.sendError(CodeBadRequest, "unknown message type: "+string(msg.Type))
	}
}

func (c *Connection) handleHello(data json.RawMessage) {
	var hello HelloData
	if err := json.Unmarshal(data, &hello); err != nil || hello.Name == "" {
		c.sendError(CodeBadRequest, "hello requires a name")
		return
	}

	id := c.server.NextPlayerID()
	c.mu.Lock()
	c.playerID = id
	c.playerName = hello.Name
	c.mu.Unlock()

	c.logger.Info("Player registered", "player", hello.Name, "id", id)
	c.reply(TypeWelcome, WelcomeData{PlayerID: id})
}

func (c *Connection) handleCreateTable(data json.RawMessage) {
	if c.PlayerID() == 0 {
		c.sendError(CodeBadRequest, "say hello first")
		return
	}

	var create CreateTableData
	if err := json.Unmarshal(data, &create); err != nil || create.Name == "" {
		c.sendError(CodeBadRequest, "create_table requires a name")
		return
	}

	table := c.server.tables.Create(create.Name)
	c.reply(TypeTableCreated, TableCreatedData{TableID: table.ID, Name: table.Name})
}

func (c *Connection) handleJoinTable(data json.RawMessage) {
	if c.PlayerID() == 0 {
		c.sendError(CodeBadRequest, "say hello first")
		return
	}

	var join JoinTableData
	if err := json.Unmarshal(data, &join); err != nil || join.TableID == "" {
		c.sendError(CodeBadRequest, "join_table requires a tableId")
		return
	}

	table, err := c.server.tables.Get(join.TableID)
	if err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}

	// Join the table before the broadcast subscription matters; the table
	// broadcast includes this connection once tableID is set.
	c.mu.Lock()
	c.tableID = table.ID
	c.mu.Unlock()

	if err := table.Join(c.PlayerID(), c.PlayerName()); err != nil {
		c.mu.Lock()
		c.tableID = ""
		c.mu.Unlock()
		c.sendError(errorCode(err), err.Error())
	}
}

func (c *Connection) handleListTables() {
	c.reply(TypeTableList, TableListData{Tables: c.server.tables.List()})
}

func (c *Connection) handleTableCommand(data json.RawMessage, command func(*Table) error) {
	var req TableRequestData
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			c.sendError(CodeBadRequest, "invalid table request")
			return
		}
	}
	if req.TableID == "" {
		req.TableID = c.TableID()
	}
	if req.TableID == "" {
		c.sendError(CodeBadRequest, "no table joined")
		return
	}

	table, err := c.server.tables.Get(req.TableID)
	if err != nil {
		c.sendError(errorCode(err), err.Error())
		return
	}
	if err := command(table); err != nil {
		c.sendError(errorCode(err), err.Error())
	}
}

func (c *Connection) handleGetStats() {
	snapshot := c.server.tables.Stats().Snapshot()
	data := StatsData{Players: make([]PlayerStatsInfo, len(snapshot))}
	for i, ps := range snapshot {
		data.Players[i] = PlayerStatsInfo{
			PlayerID:   ps.PlayerID,
			Name:       ps.Name,
			Rounds:     ps.Rounds,
			Wins:       ps.Wins,
			Ties:       ps.Ties,
			Losses:     ps.Losses,
			Blackjacks: ps.Blackjacks,
			Busts:      ps.Busts,
			NetUnits:   ps.NetUnits,
		}
	}
	c.reply(TypeStats, data)
}

func (c *Connection) reply(messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		c.logger.Error("Failed to encode reply", "type", messageType, "error", err)
		return
	}
	_ = c.SendMessage(msg)
}

func (c *Connection) sendError(code, message string) {
	c.reply(TypeError, ErrorData{Code: code, Message: message})
}
