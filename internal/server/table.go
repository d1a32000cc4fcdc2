package server

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjackforbots/internal/deck"
	"github.com/lox/blackjackforbots/internal/game"
	"github.com/lox/blackjackforbots/internal/randutil"
	"github.com/lox/blackjackforbots/internal/server/statistics"
	"github.com/lox/blackjackforbots/internal/tableid"
)

var (
	// ErrTableNotFound is returned for commands against an unknown table id.
	ErrTableNotFound = errors.New("server: table not found")

	// ErrNotYourTurn is returned when a player acts out of turn.
	ErrNotYourTurn = errors.New("server: not your turn")
)

// Broadcaster delivers protocol messages to connected clients. *Server
// satisfies it; tests substitute a recorder.
type Broadcaster interface {
	BroadcastToTable(tableID string, msg *Message)
	SendToPlayer(playerID int64, msg *Message) error
}

// Table wraps one Game with the delivery concerns the engine stays out of:
// broadcasting state, enforcing whose turn it is, turn timers and rebuilding
// a fresh Game between rounds. All commands serialize on the table mutex, so
// the engine underneath stays single-caller.
type Table struct {
	ID   string
	Name string

	cfg       TableConfig
	logger    *log.Logger
	clock     quartz.Clock
	broadcast Broadcaster
	stats     *statistics.Tracker

	mu    sync.Mutex
	game  *game.Game
	seats []SeatInfo
	timer *quartz.Timer
}

func newTable(name string, cfg TableConfig, broadcast Broadcaster, stats *statistics.Tracker, logger *log.Logger, clock quartz.Clock) *Table {
	t := &Table{
		ID:        tableid.New(),
		Name:      name,
		cfg:       cfg,
		logger:    logger.WithPrefix("table").With("table", name),
		clock:     clock,
		broadcast: broadcast,
		stats:     stats,
	}
	t.game = t.newGame()
	return t
}

// newGame builds a fresh engine for the next round: new shuffled deck, empty
// hands, lifecycle handlers re-registered (registries are cleared only by
// construction).
func (t *Table) newGame() *game.Game {
	seed := t.cfg.DeckSeed
	if seed == 0 {
		seed = t.clock.Now().UnixNano()
	}
	maxPlayers := t.cfg.MaxPlayers
	if maxPlayers <= 0 {
		maxPlayers = game.DefaultMaxPlayers
	}
	dealerName := t.cfg.DealerName
	if dealerName == "" {
		dealerName = "Dealer"
	}
	g := game.New(
		deck.New(randutil.New(seed)),
		t.logger,
		game.WithMaxPlayers(maxPlayers),
		game.WithDealerName(dealerName),
	)
	g.RegisterOnStartHandler(func(g *game.Game) {
		t.broadcastMessage(TypeGameStarted, t.stateData(g))
	})
	g.RegisterOnStopHandler(func(*game.Game) {
		t.broadcastMessage(TypeGameStopped, GameStoppedData{TableID: t.ID})
	})
	return g
}

// Join seats a player at the table.
func (t *Table) Join(playerID int64, name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, err := t.game.AddPlayer(playerID, name, t.clock.Now().UnixMilli()); err != nil {
		return err
	}
	t.seats = append(t.seats, SeatInfo{PlayerID: playerID, Name: name})

	t.logger.Info("Player joined", "player", name, "seats", len(t.seats))
	t.broadcastMessage(TypeTableJoined, TableJoinedData{
		TableID:  t.ID,
		PlayerID: playerID,
		Name:     name,
		Seats:    append([]SeatInfo(nil), t.seats...),
	})
	return nil
}

// Start begins a round. Any seated player may start.
func (t *Table) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.game.Start(); err != nil {
		return err
	}
	t.announceTurn()
	return nil
}

// Hit draws a card for the acting player. A bust is not an error to the
// caller; the table advances to the next player automatically.
func (t *Table) Hit(playerID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireTurn(playerID); err != nil {
		return err
	}
	t.stopTimer()

	err := t.game.DrawCard()
	switch {
	case errors.Is(err, game.ErrPlayerBusted):
		t.broadcastMessage(TypeTableState, t.stateData(t.game))
		return t.advance()
	case err != nil:
		return err
	}

	t.broadcastMessage(TypeTableState, t.stateData(t.game))
	t.announceTurn()
	return nil
}

// Stand passes the turn to the next player (or the dealer).
func (t *Table) Stand(playerID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.requireTurn(playerID); err != nil {
		return err
	}
	t.stopTimer()
	return t.advance()
}

// Stop ends the game early. Permission checks live in the engine.
func (t *Table) Stop(requesterID int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stopTimer()
	if err := t.game.Stop(requesterID); err != nil {
		return err
	}
	t.rebuild()
	return nil
}

// Info returns a lobby summary.
func (t *Table) Info() TableInfo {
	t.mu.Lock()
	defer t.mu.Unlock()

	return TableInfo{
		ID:          t.ID,
		Name:        t.Name,
		PlayerCount: len(t.seats),
		MaxPlayers:  t.cfg.MaxPlayers,
		Running:     t.game.Running(),
	}
}

// State returns the current table snapshot.
func (t *Table) State() TableStateData {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateData(t.game)
}

func (t *Table) requireTurn(playerID int64) error {
	current, err := t.game.CurrentPlayer()
	if err != nil {
		if !t.game.Running() {
			return game.ErrGameNotRunning
		}
		return err
	}
	if current.ID != playerID {
		return fmt.Errorf("%w: %s is up", ErrNotYourTurn, current.Name)
	}
	return nil
}

// advance moves the turn on; once the engine flips to the dealer phase the
// round settles. Callers hold the table mutex.
func (t *Table) advance() error {
	if err := t.game.NextPlayer(); err != nil {
		return err
	}
	if t.game.Phase() == game.PhaseDealer {
		t.settle()
		return nil
	}
	t.broadcastMessage(TypeTableState, t.stateData(t.game))
	t.announceTurn()
	return nil
}

// settle evaluates the finished round, records statistics, reports results
// and resets the table for the next round.
func (t *Table) settle() {
	result := t.game.Evaluate()
	dealerBusted := t.game.Dealer().Busted()
	t.stats.RecordRound(result, dealerBusted)

	// Factors mirror what the engine paid: the 3:2 natural bonus applies
	// only when the dealer busted.
	data := RoundResultData{
		TableID: t.ID,
		Dealer:  dealerView(t.game, true),
		Won: outcomes(result.Won, func(p *game.Player) float64 {
			if dealerBusted && p.IsBlackjack() {
				return game.PayoutBlackjack
			}
			return game.PayoutWin
		}),
		Tie:  outcomes(result.Tie, func(*game.Player) float64 { return game.PayoutPush }),
		Lost: outcomes(result.Lost, func(*game.Player) float64 { return 0 }),
	}
	t.broadcastMessage(TypeRoundResult, data)
	t.logger.Info("Round settled", "won", len(result.Won), "tie", len(result.Tie), "lost", len(result.Lost))

	if err := t.game.Stop(game.PrivilegedID); err != nil {
		t.logger.Error("Failed to stop settled game", "error", err)
	}
	t.rebuild()
}

// rebuild replaces the engine with a fresh one and re-seats everyone.
func (t *Table) rebuild() {
	t.game = t.newGame()
	for _, seat := range t.seats {
		if _, err := t.game.AddPlayer(seat.PlayerID, seat.Name, 0); err != nil {
			t.logger.Error("Failed to re-seat player", "player", seat.Name, "error", err)
		}
	}
}

// announceTurn tells the table whose turn it is and arms the turn timer.
// Callers hold the table mutex.
func (t *Table) announceTurn() {
	current, err := t.game.CurrentPlayer()
	if err != nil {
		return
	}

	t.broadcastMessage(TypeTurn, TurnData{
		TableID:        t.ID,
		PlayerID:       current.ID,
		Name:           current.Name,
		TimeoutSeconds: t.cfg.TurnTimeoutSeconds,
	})
	t.armTimer(current.ID)
}

// armTimer auto-stands a player who does not act within the configured
// timeout. Callers hold the table mutex.
func (t *Table) armTimer(playerID int64) {
	if t.cfg.TurnTimeoutSeconds <= 0 {
		return
	}
	t.stopTimer()
	t.timer = t.clock.AfterFunc(time.Duration(t.cfg.TurnTimeoutSeconds)*time.Second, func() {
		t.mu.Lock()
		defer t.mu.Unlock()

		current, err := t.game.CurrentPlayer()
		if err != nil || current.ID != playerID {
			return
		}
		t.logger.Info("Turn timed out, standing player", "player", current.Name)
		if err := t.advance(); err != nil {
			t.logger.Error("Failed to advance after timeout", "error", err)
		}
	})
}

func (t *Table) stopTimer() {
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Table) broadcastMessage(messageType MessageType, data interface{}) {
	msg, err := NewMessage(messageType, data)
	if err != nil {
		t.logger.Error("Failed to encode message", "type", messageType, "error", err)
		return
	}
	t.broadcast.BroadcastToTable(t.ID, msg)
}

// stateData snapshots the table for clients. The dealer's hole card stays
// hidden until the dealer phase.
func (t *Table) stateData(g *game.Game) TableStateData {
	data := TableStateData{
		TableID: t.ID,
		Phase:   g.Phase().String(),
		Dealer:  dealerView(g, g.Phase() == game.PhaseDealer),
	}
	for _, p := range g.Players() {
		data.Players = append(data.Players, handView(&p.Participant))
	}
	if current, err := g.CurrentPlayer(); err == nil {
		data.CurrentPlayerID = current.ID
	}
	return data
}

func handView(p *game.Participant) HandView {
	view := HandView{
		PlayerID:  p.ID,
		Name:      p.Name,
		Value:     p.Value(),
		Busted:    p.Busted(),
		Blackjack: p.IsBlackjack(),
	}
	for _, card := range p.Hand().Cards() {
		view.Cards = append(view.Cards, card.String())
	}
	return view
}

func dealerView(g *game.Game, revealed bool) HandView {
	dealer := g.Dealer()
	if revealed {
		return handView(dealer)
	}

	view := HandView{Name: dealer.Name}
	cards := dealer.Hand().Cards()
	if len(cards) > 0 {
		view.Cards = []string{cards[0].String()}
		view.Hidden = len(cards) - 1
	}
	return view
}

func outcomes(players []*game.Player, factorFor func(*game.Player) float64) []Outcome {
	out := make([]Outcome, len(players))
	for i, p := range players {
		out[i] = Outcome{
			PlayerID:  p.ID,
			Name:      p.Name,
			Value:     p.Value(),
			Blackjack: p.IsBlackjack(),
			Busted:    p.Busted(),
			Factor:    factorFor(p),
		}
	}
	return out
}

// TableManager tracks the tables on a server.
type TableManager struct {
	logger    *log.Logger
	clock     quartz.Clock
	broadcast Broadcaster
	stats     *statistics.Tracker
	defaults  TableConfig

	mu     sync.RWMutex
	tables map[string]*Table
}

// NewTableManager constructs an empty table manager.
func NewTableManager(broadcast Broadcaster, defaults TableConfig, stats *statistics.Tracker, logger *log.Logger, clock quartz.Clock) *TableManager {
	return &TableManager{
		logger:    logger.WithPrefix("tables"),
		clock:     clock,
		broadcast: broadcast,
		stats:     stats,
		defaults:  defaults,
		tables:    make(map[string]*Table),
	}
}

// Create registers a new table and returns it.
func (tm *TableManager) Create(name string) *Table {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	t := newTable(name, tm.defaults, tm.broadcast, tm.stats, tm.logger, tm.clock)
	tm.tables[t.ID] = t
	tm.logger.Info("Table created", "table", name, "id", t.ID)
	return t
}

// CreateFromConfig registers a table with its own settings instead of the
// manager defaults.
func (tm *TableManager) CreateFromConfig(cfg TableConfig) *Table {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	t := newTable(cfg.Name, cfg, tm.broadcast, tm.stats, tm.logger, tm.clock)
	tm.tables[t.ID] = t
	tm.logger.Info("Table created", "table", cfg.Name, "id", t.ID)
	return t
}

// Get retrieves a table by id.
func (tm *TableManager) Get(id string) (*Table, error) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	t, ok := tm.tables[id]
	if !ok {
		return nil, ErrTableNotFound
	}
	return t, nil
}

// List returns lobby summaries for all tables.
func (tm *TableManager) List() []TableInfo {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	infos := make([]TableInfo, 0, len(tm.tables))
	for _, t := range tm.tables {
		infos = append(infos, t.Info())
	}
	return infos
}

// Stats exposes the shared statistics tracker.
func (tm *TableManager) Stats() *statistics.Tracker {
	return tm.stats
}
