// Package statistics aggregates per-player round outcomes for a server.
// The engine itself never stores balances; the server attaches payout
// recorders and feeds settled rounds in here.
package statistics

import (
	"sort"
	"sync"

	"github.com/lox/blackjackforbots/internal/game"
)

// PlayerStats holds lifetime aggregates for one player.
type PlayerStats struct {
	PlayerID   int64
	Name       string
	Rounds     int
	Wins       int
	Ties       int
	Losses     int
	Blackjacks int
	Busts      int
	// NetUnits is the cumulative profit at unit stake: factor minus the
	// stake for wins/ties, minus one for losses.
	NetUnits float64
}

// Tracker accumulates round results. Safe for concurrent use.
type Tracker struct {
	mu      sync.Mutex
	players map[int64]*PlayerStats
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{players: make(map[int64]*PlayerStats)}
}

// RecordRound folds one settled round into the aggregates. dealerBusted
// matters because the 3:2 natural bonus is only paid against a busted dealer.
func (t *Tracker) RecordRound(result game.Result, dealerBusted bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, p := range result.Won {
		ps := t.get(p)
		ps.Rounds++
		ps.Wins++
		if p.IsBlackjack() {
			ps.Blackjacks++
		}
		if dealerBusted && p.IsBlackjack() {
			ps.NetUnits += game.PayoutBlackjack - 1
		} else {
			ps.NetUnits += game.PayoutWin - 1
		}
	}
	for _, p := range result.Tie {
		ps := t.get(p)
		ps.Rounds++
		ps.Ties++
		if p.IsBlackjack() {
			ps.Blackjacks++
		}
	}
	for _, p := range result.Lost {
		ps := t.get(p)
		ps.Rounds++
		ps.Losses++
		if p.Busted() {
			ps.Busts++
		}
		ps.NetUnits--
	}
}

func (t *Tracker) get(p *game.Player) *PlayerStats {
	ps, ok := t.players[p.ID]
	if !ok {
		ps = &PlayerStats{PlayerID: p.ID, Name: p.Name}
		t.players[p.ID] = ps
	}
	return ps
}

// Snapshot returns a copy of all player stats sorted by net units descending.
func (t *Tracker) Snapshot() []PlayerStats {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]PlayerStats, 0, len(t.players))
	for _, ps := range t.players {
		out = append(out, *ps)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].NetUnits != out[j].NetUnits {
			return out[i].NetUnits > out[j].NetUnits
		}
		return out[i].PlayerID < out[j].PlayerID
	})
	return out
}

// Player returns the stats for a single player, if recorded.
func (t *Tracker) Player(id int64) (PlayerStats, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ps, ok := t.players[id]
	if !ok {
		return PlayerStats{}, false
	}
	return *ps, true
}
