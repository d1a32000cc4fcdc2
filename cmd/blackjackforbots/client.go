package main

import (
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/lox/blackjackforbots/internal/client"
	"github.com/lox/blackjackforbots/internal/tui"
)

// ClientCmd connects the terminal UI to a running server.
type ClientCmd struct {
	Server string `kong:"default='http://localhost:8080',help='Server URL'"`
}

func (c *ClientCmd) Run() error {
	// The TUI owns the terminal, so connection logs are discarded.
	conn := client.NewClient(strings.TrimSpace(c.Server), log.New(io.Discard))
	if err := conn.Connect(); err != nil {
		return err
	}
	defer func() { _ = conn.Disconnect() }()

	program := tea.NewProgram(tui.NewModel(conn), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
