package server

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackforbots/internal/game"
	"github.com/lox/blackjackforbots/internal/server/statistics"
)

type fakeBroadcaster struct {
	mu       sync.Mutex
	messages []*Message
}

func (f *fakeBroadcaster) BroadcastToTable(tableID string, msg *Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
}

func (f *fakeBroadcaster) SendToPlayer(playerID int64, msg *Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeBroadcaster) ofType(messageType MessageType) []*Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*Message
	for _, msg := range f.messages {
		if msg.Type == messageType {
			out = append(out, msg)
		}
	}
	return out
}

func testTable(t *testing.T, cfg TableConfig, clock quartz.Clock) (*Table, *fakeBroadcaster) {
	t.Helper()
	if cfg.MaxPlayers == 0 {
		cfg.MaxPlayers = 5
	}
	if cfg.DealerName == "" {
		cfg.DealerName = "Dealer"
	}
	if cfg.DeckSeed == 0 {
		cfg.DeckSeed = 1
	}
	broadcast := &fakeBroadcaster{}
	table := newTable("test", cfg, broadcast, statistics.NewTracker(), log.New(io.Discard), clock)
	return table, broadcast
}

func standAll(t *testing.T, table *Table, playerIDs ...int64) {
	t.Helper()
	for _, id := range playerIDs {
		require.NoError(t, table.Stand(id))
	}
}

func TestTableJoinBroadcastsSeats(t *testing.T) {
	t.Parallel()

	table, broadcast := testTable(t, TableConfig{}, quartz.NewReal())
	require.NoError(t, table.Join(1, "alice"))
	require.NoError(t, table.Join(2, "bob"))

	joined := broadcast.ofType(TypeTableJoined)
	require.Len(t, joined, 2)

	info := table.Info()
	assert.Equal(t, 2, info.PlayerCount)
	assert.False(t, info.Running)
}

func TestTableJoinDuplicate(t *testing.T) {
	t.Parallel()

	table, _ := testTable(t, TableConfig{}, quartz.NewReal())
	require.NoError(t, table.Join(1, "alice"))
	err := table.Join(1, "alice-again")
	assert.ErrorIs(t, err, game.ErrPlayerAlreadyExists)
}

func TestTableStartAnnouncesFirstTurn(t *testing.T) {
	t.Parallel()

	table, broadcast := testTable(t, TableConfig{}, quartz.NewReal())
	require.NoError(t, table.Join(1, "alice"))
	require.NoError(t, table.Join(2, "bob"))
	require.NoError(t, table.Start())

	started := broadcast.ofType(TypeGameStarted)
	require.Len(t, started, 1)

	turns := broadcast.ofType(TypeTurn)
	require.Len(t, turns, 1)

	state := table.State()
	assert.Equal(t, int64(1), state.CurrentPlayerID)
	assert.Len(t, state.Players, 2)
	// Hole card stays hidden during the player phase.
	assert.Equal(t, 1, state.Dealer.Hidden)
	assert.Len(t, state.Dealer.Cards, 1)
}

func TestTableStartRequiresPlayers(t *testing.T) {
	t.Parallel()

	table, _ := testTable(t, TableConfig{}, quartz.NewReal())
	assert.ErrorIs(t, table.Start(), game.ErrNotEnoughPlayers)
}

func TestTableHitOutOfTurn(t *testing.T) {
	t.Parallel()

	table, _ := testTable(t, TableConfig{}, quartz.NewReal())
	require.NoError(t, table.Join(1, "alice"))
	require.NoError(t, table.Join(2, "bob"))
	require.NoError(t, table.Start())

	assert.ErrorIs(t, table.Hit(2), ErrNotYourTurn)
	assert.ErrorIs(t, table.Stand(2), ErrNotYourTurn)
}

func TestTableActionsRequireRunningGame(t *testing.T) {
	t.Parallel()

	table, _ := testTable(t, TableConfig{}, quartz.NewReal())
	require.NoError(t, table.Join(1, "alice"))

	assert.ErrorIs(t, table.Hit(1), game.ErrGameNotRunning)
	assert.ErrorIs(t, table.Stand(1), game.ErrGameNotRunning)
}

func TestTableRoundSettlesWhenAllStand(t *testing.T) {
	t.Parallel()

	table, broadcast := testTable(t, TableConfig{}, quartz.NewReal())
	require.NoError(t, table.Join(1, "alice"))
	require.NoError(t, table.Join(2, "bob"))
	require.NoError(t, table.Start())
	standAll(t, table, 1, 2)

	results := broadcast.ofType(TypeRoundResult)
	require.Len(t, results, 1)

	stopped := broadcast.ofType(TypeGameStopped)
	require.Len(t, stopped, 1)

	// Table is back in the lobby with everyone still seated.
	info := table.Info()
	assert.False(t, info.Running)
	assert.Equal(t, 2, info.PlayerCount)

	// A new round can start immediately.
	require.NoError(t, table.Start())
}

func TestTableStatsRecordedOnSettle(t *testing.T) {
	t.Parallel()

	table, _ := testTable(t, TableConfig{}, quartz.NewReal())
	require.NoError(t, table.Join(1, "alice"))
	require.NoError(t, table.Start())
	standAll(t, table, 1)

	ps, ok := table.stats.Player(1)
	require.True(t, ok)
	assert.Equal(t, 1, ps.Rounds)
	assert.Equal(t, 1, ps.Wins+ps.Ties+ps.Losses)
}

func TestTableStopPermissions(t *testing.T) {
	t.Parallel()

	table, _ := testTable(t, TableConfig{}, quartz.NewReal())
	require.NoError(t, table.Join(1, "owner"))
	require.NoError(t, table.Join(2, "guest"))
	require.NoError(t, table.Start())

	assert.ErrorIs(t, table.Stop(2), game.ErrInsufficientPermissions)
	assert.NoError(t, table.Stop(1))
	assert.False(t, table.Info().Running)
}

func TestTableTurnTimeoutAutoStands(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mockClock := quartz.NewMock(t)
	table, broadcast := testTable(t, TableConfig{TurnTimeoutSeconds: 10}, mockClock)
	require.NoError(t, table.Join(1, "alice"))
	require.NoError(t, table.Start())

	// One player: the timeout stands them, the dealer plays out and the
	// round settles without any client action.
	mockClock.Advance(10 * time.Second).MustWait(ctx)

	results := broadcast.ofType(TypeRoundResult)
	require.Len(t, results, 1)
	assert.False(t, table.Info().Running)
}

func TestTableTimerCancelledByAction(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	mockClock := quartz.NewMock(t)
	table, broadcast := testTable(t, TableConfig{TurnTimeoutSeconds: 10}, mockClock)
	require.NoError(t, table.Join(1, "alice"))
	require.NoError(t, table.Join(2, "bob"))
	require.NoError(t, table.Start())

	// alice stands before her timer fires; bob's timer replaces it. After
	// one advance only bob should have been auto-stood, settling the round.
	require.NoError(t, table.Stand(1))
	mockClock.Advance(10 * time.Second).MustWait(ctx)

	results := broadcast.ofType(TypeRoundResult)
	require.Len(t, results, 1)
}

func TestTableManagerCreateAndGet(t *testing.T) {
	t.Parallel()

	broadcast := &fakeBroadcaster{}
	manager := NewTableManager(broadcast, TableConfig{MaxPlayers: 5, DealerName: "Dealer"}, statistics.NewTracker(), log.New(io.Discard), quartz.NewReal())

	table := manager.Create("main")
	got, err := manager.Get(table.ID)
	require.NoError(t, err)
	assert.Equal(t, table, got)

	_, err = manager.Get("missing")
	assert.ErrorIs(t, err, ErrTableNotFound)

	infos := manager.List()
	require.Len(t, infos, 1)
	assert.Equal(t, "main", infos[0].Name)
}

func TestErrorCodeMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{game.ErrGameAlreadyRunning, CodeAlreadyRunning},
		{game.ErrGameNotRunning, CodeNotRunning},
		{game.ErrNotEnoughPlayers, CodeNotEnoughPlayers},
		{game.ErrMaxPlayersReached, CodeTableFull},
		{game.ErrPlayerAlreadyExists, CodeAlreadySeated},
		{game.ErrInsufficientPermissions, CodeForbidden},
		{ErrNotYourTurn, CodeNotYourTurn},
		{ErrTableNotFound, CodeTableNotFound},
		{errors.New("mystery"), CodeInternal},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, errorCode(tt.err), "for %v", tt.err)
	}
}
