package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrExhausted is returned when a card is requested from an empty deck.
var ErrExhausted = errors.New("deck: no cards left")

// Deck is a single shuffled 52-card deck. It is the one shared resource at a
// table; hands exclusively own the cards they are dealt.
type Deck struct {
	cards []Card
}

// New creates a full 52-card deck shuffled with the provided RNG.
func New(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// NewWithCards creates a deck that deals exactly the given cards in order.
// Used by tests that need scripted deals.
func NewWithCards(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// PickOne removes and returns the top card.
func (d *Deck) PickOne() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrExhausted
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// Remaining returns the number of cards left.
func (d *Deck) Remaining() int {
	return len(d.cards)
}
