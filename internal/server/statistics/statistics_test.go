package statistics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjackforbots/internal/deck"
	"github.com/lox/blackjackforbots/internal/game"
)

func player(id int64, name string, ranks ...deck.Rank) *game.Player {
	p := &game.Player{Participant: game.Participant{ID: id, Name: name}}
	suits := []deck.Suit{deck.Spades, deck.Hearts, deck.Diamonds, deck.Clubs}
	for i, r := range ranks {
		p.Hand().Give(deck.NewCard(suits[i%len(suits)], r))
	}
	return p
}

func TestRecordRoundAggregates(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	winner := player(1, "winner", deck.King, deck.Queen)
	natural := player(2, "natural", deck.Ace, deck.King)
	pusher := player(3, "pusher", deck.Ten, deck.Eight)
	buster := player(4, "buster", deck.Ten, deck.Nine, deck.Five)

	// The dealer busted, so the natural collects the 3:2 bonus.
	tracker.RecordRound(game.Result{
		Won:  []*game.Player{winner, natural},
		Tie:  []*game.Player{pusher},
		Lost: []*game.Player{buster},
	}, true)

	ps, ok := tracker.Player(1)
	require.True(t, ok)
	assert.Equal(t, 1, ps.Wins)
	assert.Equal(t, 1.0, ps.NetUnits)

	ps, ok = tracker.Player(2)
	require.True(t, ok)
	assert.Equal(t, 1, ps.Blackjacks)
	assert.Equal(t, 1.5, ps.NetUnits)

	ps, ok = tracker.Player(3)
	require.True(t, ok)
	assert.Equal(t, 1, ps.Ties)
	assert.Equal(t, 0.0, ps.NetUnits)

	ps, ok = tracker.Player(4)
	require.True(t, ok)
	assert.Equal(t, 1, ps.Losses)
	assert.Equal(t, 1, ps.Busts)
	assert.Equal(t, -1.0, ps.NetUnits)
}

func TestRecordRoundAccumulatesAcrossRounds(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	p := player(1, "alice", deck.King, deck.Queen)

	tracker.RecordRound(game.Result{Won: []*game.Player{p}}, false)
	tracker.RecordRound(game.Result{Lost: []*game.Player{p}}, false)

	ps, ok := tracker.Player(1)
	require.True(t, ok)
	assert.Equal(t, 2, ps.Rounds)
	assert.Equal(t, 1, ps.Wins)
	assert.Equal(t, 1, ps.Losses)
	assert.Equal(t, 0.0, ps.NetUnits)
}

func TestSnapshotSortsByNetUnits(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	winner := player(1, "winner", deck.King, deck.Queen)
	loser := player(2, "loser", deck.Ten, deck.Nine, deck.Five)

	tracker.RecordRound(game.Result{
		Won:  []*game.Player{winner},
		Lost: []*game.Player{loser},
	}, false)

	snapshot := tracker.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "winner", snapshot[0].Name)
	assert.Equal(t, "loser", snapshot[1].Name)
}

func TestPlayerUnknown(t *testing.T) {
	t.Parallel()

	_, ok := NewTracker().Player(42)
	assert.False(t, ok)
}
