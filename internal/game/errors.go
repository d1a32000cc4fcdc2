package game

import "errors"

// Sentinel errors returned by engine operations. Callers branch on these with
// errors.Is; messages are for logs, not for matching.
var (
	// ErrGameAlreadyRunning is returned by Start or AddPlayer while a round is in progress.
	ErrGameAlreadyRunning = errors.New("game: already running")

	// ErrGameNotRunning is returned by DrawCard, NextPlayer and DealersTurn before Start.
	ErrGameNotRunning = errors.New("game: not running")

	// ErrNotEnoughPlayers is returned by Start on an empty table.
	ErrNotEnoughPlayers = errors.New("game: not enough players")

	// ErrMaxPlayersReached is returned by AddPlayer when the table is full.
	ErrMaxPlayersReached = errors.New("game: table is full")

	// ErrPlayerAlreadyExists is returned by AddPlayer for a seated player id.
	ErrPlayerAlreadyExists = errors.New("game: player already seated")

	// ErrPlayerBusted is returned by DrawCard after the drawn card pushed the
	// hand past 21. The card has already been applied; the caller should move
	// on to the next player rather than undo anything.
	ErrPlayerBusted = errors.New("game: player busted")

	// ErrInsufficientPermissions is returned by Stop for a requester who is
	// neither privileged nor the table owner.
	ErrInsufficientPermissions = errors.New("game: insufficient permissions")

	// ErrNoCurrentPlayer is returned by CurrentPlayer outside a player turn.
	ErrNoCurrentPlayer = errors.New("game: no player to act")
)
