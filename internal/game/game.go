package game

import (
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackforbots/internal/deck"
)

// DefaultMaxPlayers caps the number of seats at a table.
const DefaultMaxPlayers = 5

// PrivilegedID may stop any game regardless of who owns the table.
const PrivilegedID int64 = -1

// CardSource supplies one card at a time. *deck.Deck satisfies it.
type CardSource interface {
	PickOne() (deck.Card, error)
}

// Handler is a lifecycle callback. Handlers run synchronously in registration
// order; a panicking handler is recovered and logged, never propagated.
type Handler func(*Game)

// TurnPhase says whose draw/advance calls are currently valid.
type TurnPhase int

const (
	// PhaseNotStarted means no round is in progress.
	PhaseNotStarted TurnPhase = iota
	// PhasePlayers means the turn cursor points at a seated player.
	PhasePlayers
	// PhaseDealer means every player has acted and the dealer plays out.
	PhaseDealer
)

// String returns the string representation of a turn phase
func (tp TurnPhase) String() string {
	switch tp {
	case PhaseNotStarted:
		return "Not Started"
	case PhasePlayers:
		return "Players"
	case PhaseDealer:
		return "Dealer"
	default:
		return "Unknown"
	}
}

// Game is a single blackjack table: an ordered roster of players, one dealer,
// the turn cursor and the lifecycle flag. A Game is single-threaded; one
// caller drives it at a time.
type Game struct {
	source     CardSource
	logger     *log.Logger
	players    []*Player
	dealer     *Participant
	maxPlayers int

	phase   TurnPhase
	cursor  int
	running bool

	onStart []Handler
	onStop  []Handler
}

// Option configures a Game.
type Option func(*Game)

// WithMaxPlayers overrides the seat cap.
func WithMaxPlayers(n int) Option {
	return func(g *Game) {
		g.maxPlayers = n
	}
}

// WithDealerName overrides the dealer's display name.
func WithDealerName(name string) Option {
	return func(g *Game) {
		g.dealer.Name = name
	}
}

// New creates a table drawing from source. Handler registries start empty and
// are cleared only by constructing a new Game.
func New(source CardSource, logger *log.Logger, opts ...Option) *Game {
	if logger == nil {
		logger = log.Default()
	}
	g := &Game{
		source:     source,
		logger:     logger.WithPrefix("game"),
		dealer:     &Participant{Name: "Dealer"},
		maxPlayers: DefaultMaxPlayers,
		phase:      PhaseNotStarted,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RegisterOnStartHandler adds a callback invoked after a round starts.
func (g *Game) RegisterOnStartHandler(fn Handler) {
	g.onStart = append(g.onStart, fn)
}

// RegisterOnStopHandler adds a callback invoked after the game stops.
func (g *Game) RegisterOnStopHandler(fn Handler) {
	g.onStop = append(g.onStop, fn)
}

// runHandlers invokes each handler in registration order. A misbehaving
// observer must not break the game, so panics are recovered per call.
func (g *Game) runHandlers(handlers []Handler, event string) {
	for i, fn := range handlers {
		func() {
			defer func() {
				if r := recover(); r != nil {
					g.logger.Error("Lifecycle handler failed", "event", event, "handler", i, "error", r)
				}
			}()
			fn(g)
		}()
	}
}

// Running reports whether a round is in progress.
func (g *Game) Running() bool {
	return g.running
}

// Phase returns the current turn phase.
func (g *Game) Phase() TurnPhase {
	return g.phase
}

// Players returns the roster in join order.
func (g *Game) Players() []*Player {
	players := make([]*Player, len(g.players))
	copy(players, g.players)
	return players
}

// Dealer returns the dealer participant.
func (g *Game) Dealer() *Participant {
	return g.dealer
}

// AddPlayer seats a new player. Join order is turn order. The running check
// runs before the capacity and duplicate checks so error precedence is
// deterministic.
func (g *Game) AddPlayer(id int64, name string, joinRef int64) (*Player, error) {
	if g.running {
		return nil, ErrGameAlreadyRunning
	}
	if len(g.players) >= g.maxPlayers {
		return nil, ErrMaxPlayersReached
	}
	for _, p := range g.players {
		if p.ID == id {
			return nil, ErrPlayerAlreadyExists
		}
	}

	player := &Player{
		Participant: Participant{ID: id, Name: name},
		JoinRef:     joinRef,
	}
	g.logger.Debug("Adding new player", "id", id, "name", name)
	g.players = append(g.players, player)
	return player, nil
}

// Start begins the round: two cards to every player and the dealer, dealt
// round-robin (one card each, twice) so the physical card order from the deck
// is the same a live dealer would produce. The initial deal never checks for
// busts; a two-card hand cannot exceed 21.
func (g *Game) Start() error {
	if g.running {
		return ErrGameAlreadyRunning
	}
	if len(g.players) < 1 {
		return ErrNotEnoughPlayers
	}

	g.running = true
	g.phase = PhasePlayers
	g.cursor = 0

	for round := 0; round < 2; round++ {
		for _, p := range g.players {
			card, err := g.source.PickOne()
			if err != nil {
				return fmt.Errorf("dealing to %s: %w", p.Name, err)
			}
			p.Hand().Give(card)
		}
		card, err := g.source.PickOne()
		if err != nil {
			return fmt.Errorf("dealing to dealer: %w", err)
		}
		g.dealer.Hand().Give(card)
	}

	g.runHandlers(g.onStart, "start")
	return nil
}

// Stop ends the game. Only the privileged id or the table owner (the first
// player to join) may stop it.
func (g *Game) Stop(requesterID int64) error {
	if requesterID != PrivilegedID {
		if len(g.players) == 0 || requesterID != g.players[0].ID {
			return ErrInsufficientPermissions
		}
	}

	g.running = false
	g.phase = PhaseNotStarted
	g.runHandlers(g.onStop, "stop")
	return nil
}

// CurrentPlayer returns the player the turn cursor points at.
func (g *Game) CurrentPlayer() (*Player, error) {
	if g.phase != PhasePlayers || g.cursor < 0 || g.cursor >= len(g.players) {
		return nil, ErrNoCurrentPlayer
	}
	return g.players[g.cursor], nil
}

// DrawCard draws one card into the current player's hand. The card is applied
// before the bust check, so on ErrPlayerBusted the hand already holds it.
func (g *Game) DrawCard() error {
	if !g.running {
		return ErrGameNotRunning
	}

	player, err := g.CurrentPlayer()
	if err != nil {
		return err
	}

	card, err := g.source.PickOne()
	if err != nil {
		return fmt.Errorf("drawing for %s: %w", player.Name, err)
	}
	player.Hand().Give(card)

	if player.Busted() {
		g.logger.Debug("Player busted on draw", "player", player.Name, "card", card.String(), "value", player.Value())
		return ErrPlayerBusted
	}
	return nil
}

// NextPlayer advances the turn cursor. Once the last player has acted the
// phase moves to the dealer and dealer automation runs; that transition is
// one-directional.
func (g *Game) NextPlayer() error {
	if !g.running {
		return ErrGameNotRunning
	}

	if g.phase == PhasePlayers && g.cursor < len(g.players)-1 {
		g.cursor++
		return nil
	}

	g.logger.Debug("Dealer's turn")
	g.phase = PhaseDealer
	return g.DealersTurn()
}

// DealersTurn plays out the dealer: draw while the hand value is 16 or less
// (dealer stands on 17). A bust also ends the loop since a bust value exceeds
// 16.
func (g *Game) DealersTurn() error {
	if !g.running {
		return ErrGameNotRunning
	}

	for g.dealer.Value() <= 16 {
		card, err := g.source.PickOne()
		if err != nil {
			return fmt.Errorf("drawing for dealer: %w", err)
		}
		g.dealer.Hand().Give(card)
	}
	return nil
}
