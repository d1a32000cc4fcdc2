package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/lox/blackjackforbots/internal/game"
)

// MessageType identifies a protocol message.
type MessageType string

// Client → server
const (
	TypeHello       MessageType = "hello"
	TypeCreateTable MessageType = "create_table"
	TypeJoinTable   MessageType = "join_table"
	TypeListTables  MessageType = "list_tables"
	TypeStartGame   MessageType = "start_game"
	TypeHit         MessageType = "hit"
	TypeStand       MessageType = "stand"
	TypeStopGame    MessageType = "stop_game"
	TypeGetStats    MessageType = "get_stats"
)

// Server → client
const (
	TypeWelcome      MessageType = "welcome"
	TypeError        MessageType = "error"
	TypeTableList    MessageType = "table_list"
	TypeTableCreated MessageType = "table_created"
	TypeTableJoined  MessageType = "table_joined"
	TypeGameStarted  MessageType = "game_started"
	TypeTableState   MessageType = "table_state"
	TypeTurn         MessageType = "turn"
	TypeRoundResult  MessageType = "round_result"
	TypeGameStopped  MessageType = "game_stopped"
	TypeStats        MessageType = "stats"
)

// Message is the wire envelope for all protocol messages.
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMessage creates a message with the payload marshalled in place.
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	var raw json.RawMessage
	if data != nil {
		var err error
		raw, err = json.Marshal(data)
		if err != nil {
			return nil, err
		}
	}
	return &Message{Type: messageType, Data: raw, Timestamp: time.Now()}, nil
}

// Client → server payloads

type HelloData struct {
	Name string `json:"name"`
}

type CreateTableData struct {
	Name string `json:"name"`
}

type JoinTableData struct {
	TableID string `json:"tableId"`
}

type TableRequestData struct {
	TableID string `json:"tableId"`
}

// Server → client payloads

type WelcomeData struct {
	PlayerID int64 `json:"playerId"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type TableInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Running     bool   `json:"running"`
}

type TableListData struct {
	Tables []TableInfo `json:"tables"`
}

type TableCreatedData struct {
	TableID string `json:"tableId"`
	Name    string `json:"name"`
}

type SeatInfo struct {
	PlayerID int64  `json:"playerId"`
	Name     string `json:"name"`
}

type TableJoinedData struct {
	TableID  string     `json:"tableId"`
	PlayerID int64      `json:"playerId"`
	Name     string     `json:"name"`
	Seats    []SeatInfo `json:"seats"`
}

// HandView is one participant's hand as shown to clients. The dealer's hole
// card is withheld while the round is still in the player phase.
type HandView struct {
	PlayerID  int64    `json:"playerId"`
	Name      string   `json:"name"`
	Cards     []string `json:"cards"`
	Value     int      `json:"value,omitempty"`
	Busted    bool     `json:"busted,omitempty"`
	Blackjack bool     `json:"blackjack,omitempty"`
	Hidden    int      `json:"hidden,omitempty"`
}

type TableStateData struct {
	TableID         string     `json:"tableId"`
	Phase           string     `json:"phase"`
	Players         []HandView `json:"players"`
	Dealer          HandView   `json:"dealer"`
	CurrentPlayerID int64      `json:"currentPlayerId,omitempty"`
}

type TurnData struct {
	TableID        string `json:"tableId"`
	PlayerID       int64  `json:"playerId"`
	Name           string `json:"name"`
	TimeoutSeconds int    `json:"timeoutSeconds,omitempty"`
}

// Outcome is a settled player in a round result, with the payout factor the
// engine applied (0 for a loss).
type Outcome struct {
	PlayerID  int64   `json:"playerId"`
	Name      string  `json:"name"`
	Value     int     `json:"value"`
	Blackjack bool    `json:"blackjack,omitempty"`
	Busted    bool    `json:"busted,omitempty"`
	Factor    float64 `json:"factor"`
}

type RoundResultData struct {
	TableID string    `json:"tableId"`
	Dealer  HandView  `json:"dealer"`
	Won     []Outcome `json:"won"`
	Tie     []Outcome `json:"tie"`
	Lost    []Outcome `json:"lost"`
}

type GameStoppedData struct {
	TableID string `json:"tableId"`
}

type StatsData struct {
	Players []PlayerStatsInfo `json:"players"`
}

type PlayerStatsInfo struct {
	PlayerID   int64   `json:"playerId"`
	Name       string  `json:"name"`
	Rounds     int     `json:"rounds"`
	Wins       int     `json:"wins"`
	Ties       int     `json:"ties"`
	Losses     int     `json:"losses"`
	Blackjacks int     `json:"blackjacks"`
	Busts      int     `json:"busts"`
	NetUnits   float64 `json:"netUnits"`
}

// Error codes sent to clients. Engine sentinels map 1:1 so bots can branch
// without parsing messages.
const (
	CodeAlreadyRunning   = "already_running"
	CodeNotRunning       = "not_running"
	CodeNotEnoughPlayers = "not_enough_players"
	CodeTableFull        = "table_full"
	CodeAlreadySeated    = "already_seated"
	CodeForbidden        = "forbidden"
	CodeNotYourTurn      = "not_your_turn"
	CodeTableNotFound    = "table_not_found"
	CodeBadRequest       = "bad_request"
	CodeInternal         = "internal"
)

// errorCode maps an engine error to its protocol code.
func errorCode(err error) string {
	switch {
	case errors.Is(err, game.ErrGameAlreadyRunning):
		return CodeAlreadyRunning
	case errors.Is(err, game.ErrGameNotRunning):
		return CodeNotRunning
	case errors.Is(err, game.ErrNotEnoughPlayers):
		return CodeNotEnoughPlayers
	case errors.Is(err, game.ErrMaxPlayersReached):
		return CodeTableFull
	case errors.Is(err, game.ErrPlayerAlreadyExists):
		return CodeAlreadySeated
	case errors.Is(err, game.ErrInsufficientPermissions):
		return CodeForbidden
	case errors.Is(err, game.ErrNoCurrentPlayer):
		return CodeNotYourTurn
	case errors.Is(err, ErrNotYourTurn):
		return CodeNotYourTurn
	case errors.Is(err, ErrTableNotFound):
		return CodeTableNotFound
	default:
		return CodeInternal
	}
}
