package main

import (
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/blackjackforbots/cmd/blackjackforbots/shared"
	"github.com/lox/blackjackforbots/internal/server"
	"github.com/lox/blackjackforbots/internal/server/statistics"
)

// ServerCmd runs the WebSocket blackjack server.
type ServerCmd struct {
	Config string `kong:"default='blackjack.hcl',help='Path to the HCL configuration file'"`
	Debug  bool   `kong:"help='Enable debug logging'"`
	JSON   bool   `kong:"help='Log as JSON instead of console output'"`
}

func (c *ServerCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)
	if c.JSON {
		logger = shared.SetupStructuredLogger(c.Debug)
	}

	cfg, err := server.LoadServerConfig(c.Config)
	if err != nil {
		return err
	}

	if len(cfg.Tables) == 0 {
		cfg.Tables = server.DefaultServerConfig().Tables
	}

	srv := server.NewServer(cfg.ListenAddr(), logger)

	stats := statistics.NewTracker()
	tables := server.NewTableManager(srv, cfg.Tables[0], stats, logger, quartz.NewReal())
	srv.SetTableManager(tables)

	for _, tableCfg := range cfg.Tables {
		tables.CreateFromConfig(tableCfg)
	}

	logger.Info("Starting blackjack server",
		"addr", cfg.ListenAddr(),
		"tables", len(cfg.Tables),
	)

	ctx := shared.SetupSignalHandlerWithLogger(logger)

	var g errgroup.Group
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		return srv.Stop()
	})
	return g.Wait()
}
