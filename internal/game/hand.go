package game

import (
	"strings"

	"github.com/lox/blackjackforbots/internal/deck"
)

// Hand accumulates the cards dealt to one participant. Each hand exclusively
// owns its cards; the deck is the only shared resource at the table.
type Hand struct {
	cards []deck.Card
}

// Give adds a card to the hand.
func (h *Hand) Give(card deck.Card) {
	h.cards = append(h.cards, card)
}

// Cards returns a copy of the cards in the hand.
func (h *Hand) Cards() []deck.Card {
	cards := make([]deck.Card, len(h.cards))
	copy(cards, h.cards)
	return cards
}

// Size returns the number of cards in the hand.
func (h *Hand) Size() int {
	return len(h.cards)
}

// Value returns the best blackjack score for the hand. Aces start at 11 and
// are demoted to 1 one at a time while the total exceeds 21.
func (h *Hand) Value() int {
	value := 0
	aces := 0
	for _, card := range h.cards {
		value += card.PointValue()
		if card.IsAce() {
			aces++
		}
	}
	for value > 21 && aces > 0 {
		value -= 10
		aces--
	}
	return value
}

// Busted returns true if the hand value exceeds 21.
func (h *Hand) Busted() bool {
	return h.Value() > 21
}

// IsBlackjack returns true for a natural: exactly two cards worth 21.
func (h *Hand) IsBlackjack() bool {
	return len(h.cards) == 2 && h.Value() == 21
}

// String renders the hand like "A♠ K♥".
func (h *Hand) String() string {
	parts := make([]string, len(h.cards))
	for i, card := range h.cards {
		parts[i] = card.String()
	}
	return strings.Join(parts, " ")
}
