package game

import "sort"

// Payout factors applied at settlement. Factors are net-of-stake multipliers
// on a unit stake: a push returns the stake, a win doubles it, a natural pays
// 3:2 on top of the stake.
const (
	PayoutPush      = 1.0
	PayoutWin       = 2.0
	PayoutBlackjack = 2.5
)

// Result partitions the roster after a round. The three lists are disjoint
// and together cover every seated player, each ordered by hand value
// descending (stable, so equal values keep their roster order).
type Result struct {
	Won  []*Player
	Tie  []*Player
	Lost []*Player
}

// Evaluate settles the round. Busted players always lose; the rest are judged
// against the dealer in this precedence: dealer bust beats everything, then a
// dealer natural, then a plain value comparison. Winning and tying players
// are paid through their payout callbacks.
func (g *Game) Evaluate() Result {
	var notBusted, busted []*Player
	for _, p := range g.players {
		if p.Busted() {
			busted = append(busted, p)
		} else {
			notBusted = append(notBusted, p)
		}
	}

	var result Result

	switch {
	case g.dealer.Busted():
		for _, p := range notBusted {
			if p.IsBlackjack() {
				p.Pay(PayoutBlackjack)
			} else {
				p.Pay(PayoutWin)
			}
			result.Won = append(result.Won, p)
		}

	case g.dealer.IsBlackjack():
		for _, p := range notBusted {
			if p.IsBlackjack() {
				p.Pay(PayoutPush)
				result.Tie = append(result.Tie, p)
			} else {
				result.Lost = append(result.Lost, p)
			}
		}

	default:
		dealerValue := g.dealer.Value()
		for _, p := range notBusted {
			switch {
			case p.Value() > dealerValue:
				p.Pay(PayoutWin)
				result.Won = append(result.Won, p)
			case p.Value() == dealerValue:
				p.Pay(PayoutPush)
				result.Tie = append(result.Tie, p)
			default:
				result.Lost = append(result.Lost, p)
			}
		}
	}

	result.Lost = append(result.Lost, busted...)

	sortByValue(result.Won)
	sortByValue(result.Tie)
	sortByValue(result.Lost)
	return result
}

// sortByValue orders players by hand value descending. The sort is stable so
// value ties keep their original roster order.
func sortByValue(players []*Player) {
	sort.SliceStable(players, func(i, j int) bool {
		return players[i].Value() > players[j].Value()
	})
}
