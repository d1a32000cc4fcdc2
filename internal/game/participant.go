package game

// PayoutFunc settles a player's stake at the given net multiplier. The engine
// treats payouts as opaque side effects; balances live with the host.
type PayoutFunc func(factor float64)

// Participant is a hand owner with an identity. The dealer is a bare
// Participant; seated players wrap it in Player.
type Participant struct {
	ID   int64
	Name string

	hand Hand
}

// Hand returns the participant's hand.
func (p *Participant) Hand() *Hand {
	return &p.hand
}

// Value returns the current best score of the participant's hand.
func (p *Participant) Value() int {
	return p.hand.Value()
}

// Busted returns true if the participant's hand value exceeds 21.
func (p *Participant) Busted() bool {
	return p.hand.Busted()
}

// IsBlackjack returns true if the participant holds a natural blackjack.
func (p *Participant) IsBlackjack() bool {
	return p.hand.IsBlackjack()
}

// Player is a seated participant. JoinRef is an opaque reference supplied by
// the host at registration, typically the message or request id that seated
// the player.
type Player struct {
	Participant
	JoinRef int64

	payout PayoutFunc
}

// SetPayout attaches the payout callback invoked during settlement.
func (p *Player) SetPayout(fn PayoutFunc) {
	p.payout = fn
}

// Pay settles the player's stake at the given factor. A player without a
// payout callback is simply skipped.
func (p *Player) Pay(factor float64) {
	if p.payout != nil {
		p.payout(factor)
	}
}
