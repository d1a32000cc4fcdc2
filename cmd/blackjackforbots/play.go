package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjackforbots/cmd/blackjackforbots/shared"
	"github.com/lox/blackjackforbots/internal/deck"
	"github.com/lox/blackjackforbots/internal/game"
	"github.com/lox/blackjackforbots/internal/randutil"
)

// PlayCmd plays rounds against the dealer in the current terminal, no server
// involved.
type PlayCmd struct {
	Name     string  `kong:"default='',help='Display name (defaults to $USER or \"Player\")'"`
	Bet      float64 `kong:"default='10',help='Units wagered per round'"`
	Bankroll float64 `kong:"default='100',help='Starting bankroll in units'"`
	Seed     *int64  `kong:"help='Deterministic RNG seed (optional)'"`
	Debug    bool    `kong:"help='Enable debug logging'"`
}

func (c *PlayCmd) Run() error {
	logger := log.New(io.Discard)
	if c.Debug {
		logger = shared.SetupLogger(true)
	}

	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = os.Getenv("USER")
	}
	if name == "" {
		name = "Player"
	}

	seed := time.Now().UnixNano()
	if c.Seed != nil {
		seed = *c.Seed
	}
	rng := randutil.New(seed)

	bankroll := c.Bankroll
	input := bufio.NewScanner(os.Stdin)

	fmt.Printf("Welcome, %s. Bankroll: %.0f units, %.0f per round.\n", name, bankroll, c.Bet)

	for bankroll >= c.Bet {
		bankroll -= c.Bet
		payout := func(factor float64) {
			bankroll += factor * c.Bet
		}

		if err := c.playRound(rng, logger, name, payout, input); err != nil {
			return err
		}

		fmt.Printf("Bankroll: %.1f units.\n", bankroll)
		if bankroll < c.Bet {
			break
		}
		if !prompt(input, "Play again? (y/n) ", "y") {
			return nil
		}
		fmt.Println()
	}

	fmt.Println("You're out of units. Thanks for playing.")
	return nil
}

func (c *PlayCmd) playRound(rng *rand.Rand, logger *log.Logger, name string, payout game.PayoutFunc, input *bufio.Scanner) error {
	g := game.New(deck.New(rng), logger)

	player, err := g.AddPlayer(1, name, 0)
	if err != nil {
		return err
	}
	player.SetPayout(payout)

	if err := g.Start(); err != nil {
		return err
	}

	dealer := g.Dealer()
	fmt.Printf("Dealer shows: %s ??\n", dealer.Hand().Cards()[0])

	for {
		fmt.Printf("Your hand: %s (%d)\n", player.Hand(), player.Value())
		if !prompt(input, "(h)it or (s)tand? ", "h") {
			if err := g.NextPlayer(); err != nil {
				return err
			}
			break
		}

		err := g.DrawCard()
		if errors.Is(err, game.ErrPlayerBusted) {
			fmt.Printf("Your hand: %s (%d). Bust!\n", player.Hand(), player.Value())
			if err := g.NextPlayer(); err != nil {
				return err
			}
			break
		}
		if err != nil {
			return err
		}
	}

	fmt.Printf("Dealer's hand: %s (%d)\n", dealer.Hand(), dealer.Value())

	result := g.Evaluate()
	switch {
	case len(result.Won) > 0 && result.Won[0].IsBlackjack():
		fmt.Println("Blackjack! Paid 3:2.")
	case len(result.Won) > 0:
		fmt.Println("You win.")
	case len(result.Tie) > 0:
		fmt.Println("Push.")
	default:
		fmt.Println("Dealer wins.")
	}

	return g.Stop(game.PrivilegedID)
}

// prompt reads one line and reports whether it starts with yes.
func prompt(input *bufio.Scanner, question, yes string) bool {
	fmt.Print(question)
	if !input.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(input.Text()))
	return strings.HasPrefix(answer, yes)
}
