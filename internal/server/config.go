package server

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// ServerConfig is the complete server configuration.
type ServerConfig struct {
	Server ServerSettings `hcl:"server,block"`
	Tables []TableConfig  `hcl:"table,block"`
}

// ServerSettings contains server-level configuration.
type ServerSettings struct {
	Address  string `hcl:"address,optional"`
	Port     int    `hcl:"port,optional"`
	LogLevel string `hcl:"log_level,optional"`
}

// TableConfig defines a blackjack table.
type TableConfig struct {
	Name               string `hcl:"name,label"`
	MaxPlayers         int    `hcl:"max_players,optional"`
	TurnTimeoutSeconds int    `hcl:"turn_timeout_seconds,optional"`
	DealerName         string `hcl:"dealer_name,optional"`
	// DeckSeed fixes the shuffle for reproducible games; 0 shuffles from
	// the clock.
	DeckSeed int64 `hcl:"deck_seed,optional"`
}

// DefaultServerConfig returns the configuration used when no file is present.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Server: ServerSettings{
			Address:  "localhost",
			Port:     8080,
			LogLevel: "info",
		},
		Tables: []TableConfig{
			{
				Name:               "main",
				MaxPlayers:         5,
				TurnTimeoutSeconds: 30,
				DealerName:         "Dealer",
			},
		},
	}
}

// LoadServerConfig loads configuration from an HCL file, falling back to
// defaults when the file does not exist.
func LoadServerConfig(filename string) (*ServerConfig, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return DefaultServerConfig(), nil
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var config ServerConfig
	diags = gohcl.DecodeBody(file.Body, nil, &config)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}

	if config.Server.Address == "" {
		config.Server.Address = "localhost"
	}
	if config.Server.Port == 0 {
		config.Server.Port = 8080
	}
	if config.Server.LogLevel == "" {
		config.Server.LogLevel = "info"
	}

	for i := range config.Tables {
		if config.Tables[i].MaxPlayers == 0 {
			config.Tables[i].MaxPlayers = 5
		}
		if config.Tables[i].TurnTimeoutSeconds == 0 {
			config.Tables[i].TurnTimeoutSeconds = 30
		}
		if config.Tables[i].DealerName == "" {
			config.Tables[i].DealerName = "Dealer"
		}
	}

	return &config, nil
}

// ListenAddr returns the host:port the server binds to.
func (c *ServerConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Address, c.Server.Port)
}
