package game

import (
	"testing"

	"github.com/lox/blackjackforbots/internal/deck"
)

func handOf(ranks ...deck.Rank) *Hand {
	h := &Hand{}
	suits := []deck.Suit{deck.Spades, deck.Hearts, deck.Diamonds, deck.Clubs}
	for i, r := range ranks {
		h.Give(deck.NewCard(suits[i%len(suits)], r))
	}
	return h
}

func TestHandValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ranks []deck.Rank
		want  int
	}{
		{"simple hand", []deck.Rank{deck.Ten, deck.Five}, 15},
		{"ace as eleven", []deck.Rank{deck.Ace, deck.Nine}, 20},
		{"ace demoted to one", []deck.Rank{deck.Ace, deck.Nine, deck.Two}, 12},
		{"two aces", []deck.Rank{deck.Ace, deck.Ace, deck.Nine}, 21},
		{"face cards", []deck.Rank{deck.King, deck.Queen}, 20},
		{"soft then hard", []deck.Rank{deck.Ace, deck.Six, deck.Ten}, 17},
		{"all aces", []deck.Rank{deck.Ace, deck.Ace, deck.Ace, deck.Ace}, 14},
		{"bust", []deck.Rank{deck.King, deck.Queen, deck.Five}, 25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handOf(tt.ranks...)
			if got := h.Value(); got != tt.want {
				t.Errorf("Value() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestHandBusted(t *testing.T) {
	t.Parallel()

	if handOf(deck.Ten, deck.Five, deck.Six).Busted() {
		t.Error("21 is not a bust")
	}
	if !handOf(deck.Ten, deck.Five, deck.Seven).Busted() {
		t.Error("22 is a bust")
	}
	if handOf(deck.Ace, deck.Ace, deck.Nine, deck.Ten).Busted() {
		t.Error("aces should demote before busting (21)")
	}
}

func TestHandIsBlackjack(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		ranks []deck.Rank
		want  bool
	}{
		{"ace and king", []deck.Rank{deck.Ace, deck.King}, true},
		{"ace and nine", []deck.Rank{deck.Ace, deck.Nine}, false},
		{"three-card 21", []deck.Rank{deck.Seven, deck.Seven, deck.Seven}, false},
		{"empty hand", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := handOf(tt.ranks...).IsBlackjack(); got != tt.want {
				t.Errorf("IsBlackjack() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHandCardsIsACopy(t *testing.T) {
	t.Parallel()

	h := handOf(deck.Ten, deck.Five)
	cards := h.Cards()
	cards[0] = deck.NewCard(deck.Clubs, deck.Ace)
	if h.Value() != 15 {
		t.Errorf("mutating the returned slice changed the hand, value = %d", h.Value())
	}
}
