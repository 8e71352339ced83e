// Package config loads node configuration from an HCL file with environment
// overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/game"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/lobby"
)

// Config is the complete node configuration.
type Config struct {
	Lobby  *LobbySettings  `hcl:"lobby,block"`
	Game   *GameSettings   `hcl:"game,block"`
	Server *ServerSettings `hcl:"server,block"`
}

// LobbySettings configures the lobby authority.
type LobbySettings struct {
	EntryFee     string `hcl:"entry_fee,optional"`
	Quorum       int    `hcl:"quorum,optional"`
	Capacity     int    `hcl:"capacity,optional"`
	FeeRecipient string `hcl:"fee_recipient,optional"`
}

// GameSettings configures the rules of every spawned match.
type GameSettings struct {
	MaxRounds       int    `hcl:"max_rounds,optional"`
	MaxRevotes      *int   `hcl:"max_revotes,optional"`
	QuestionTimeout string `hcl:"question_timeout,optional"`
	AnswerTimeout   string `hcl:"answer_timeout,optional"`
	Seed            *int64 `hcl:"seed,optional"`
}

// ServerSettings configures the node process.
type ServerSettings struct {
	Address          string `hcl:"address,optional"`
	LogLevel         string `hcl:"log_level,optional"`
	Journal          string `hcl:"journal,optional"`
	Snapshot         string `hcl:"snapshot,optional"`
	SnapshotInterval string `hcl:"snapshot_interval,optional"`
	PumpInterval     string `hcl:"pump_interval,optional"`
	// RegistrationAuthURL, when set, is asked to approve every player
	// registration token.
	RegistrationAuthURL    string `hcl:"registration_auth_url,optional"`
	RegistrationAuthSecret string `hcl:"registration_auth_secret,optional"`
}

// Overrides are read from the environment and win over the file.
type Overrides struct {
	Address  string `env:"MAJORULES_ADDR"`
	LogLevel string `env:"MAJORULES_LOG_LEVEL"`
	Journal  string `env:"MAJORULES_JOURNAL"`
	Seed     *int64 `env:"MAJORULES_SEED"`
	// AuthSecret keeps the account service secret out of config files.
	AuthSecret string `env:"MAJORULES_AUTH_SECRET"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads filename, applies defaults and the process environment. A
// missing file yields the defaults.
func Load(filename string) (*Config, error) {
	return LoadWithEnv(filename, nil)
}

// LoadWithEnv is Load with an explicit environment. A nil environ reads the
// process environment.
func LoadWithEnv(filename string, environ map[string]string) (*Config, error) {
	var c Config
	if _, err := os.Stat(filename); err == nil {
		parser := hclparse.NewParser()
		file, diags := parser.ParseHCLFile(filename)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
		}
		diags = gohcl.DecodeBody(file.Body, nil, &c)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL: %s", diags.Error())
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	c.applyDefaults()

	var o Overrides
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	c.apply(o)
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Lobby == nil {
		c.Lobby = &LobbySettings{}
	}
	if c.Game == nil {
		c.Game = &GameSettings{}
	}
	if c.Server == nil {
		c.Server = &ServerSettings{}
	}

	if c.Lobby.EntryFee == "" {
		c.Lobby.EntryFee = "1"
	}
	if c.Lobby.Quorum == 0 {
		c.Lobby.Quorum = 3
	}
	if c.Lobby.Capacity == 0 {
		c.Lobby.Capacity = lobby.MaxCapacity
	}

	defaults := game.DefaultParams()
	if c.Game.MaxRounds == 0 {
		c.Game.MaxRounds = defaults.MaxRounds
	}
	if c.Game.MaxRevotes == nil {
		n := defaults.MaxRevotes
		c.Game.MaxRevotes = &n
	}
	if c.Game.QuestionTimeout == "" {
		c.Game.QuestionTimeout = defaults.QuestionTimeout.String()
	}
	if c.Game.AnswerTimeout == "" {
		c.Game.AnswerTimeout = defaults.AnswerTimeout.String()
	}

	if c.Server.Address == "" {
		c.Server.Address = "localhost:8080"
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Server.SnapshotInterval == "" {
		c.Server.SnapshotInterval = "30s"
	}
	if c.Server.PumpInterval == "" {
		c.Server.PumpInterval = "1s"
	}
}

func (c *Config) apply(o Overrides) {
	if o.Address != "" {
		c.Server.Address = o.Address
	}
	if o.LogLevel != "" {
		c.Server.LogLevel = o.LogLevel
	}
	if o.Journal != "" {
		c.Server.Journal = o.Journal
	}
	if o.Seed != nil {
		c.Game.Seed = o.Seed
	}
	if o.AuthSecret != "" {
		c.Server.RegistrationAuthSecret = o.AuthSecret
	}
}

// Validate checks the configuration is usable.
func (c *Config) Validate() error {
	if _, err := c.LobbyConfig(); err != nil {
		return err
	}
	if _, err := c.GameParams(); err != nil {
		return err
	}
	for name, v := range map[string]string{
		"snapshot_interval": c.Server.SnapshotInterval,
		"pump_interval":     c.Server.PumpInterval,
	} {
		if _, err := positiveDuration(name, v); err != nil {
			return err
		}
	}
	switch c.Server.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Server.LogLevel)
	}
	return nil
}

// LobbyConfig converts the lobby block.
func (c *Config) LobbyConfig() (lobby.Config, error) {
	fee, err := escrow.ParseAmount(c.Lobby.EntryFee)
	if err != nil {
		return lobby.Config{}, fmt.Errorf("lobby: entry fee: %w", err)
	}
	if c.Lobby.Quorum < 2 {
		return lobby.Config{}, fmt.Errorf("lobby: quorum must be at least 2, got %d", c.Lobby.Quorum)
	}
	if c.Lobby.Capacity > lobby.MaxCapacity {
		return lobby.Config{}, fmt.Errorf("lobby: capacity must not exceed %d, got %d", lobby.MaxCapacity, c.Lobby.Capacity)
	}
	if c.Lobby.Quorum > c.Lobby.Capacity {
		return lobby.Config{}, fmt.Errorf("lobby: quorum %d exceeds capacity %d", c.Lobby.Quorum, c.Lobby.Capacity)
	}
	recipient := identity.PlayerID(c.Lobby.FeeRecipient)
	if recipient != "" {
		if err := recipient.Validate(); err != nil {
			return lobby.Config{}, fmt.Errorf("lobby: fee recipient: %w", err)
		}
	}
	return lobby.Config{
		EntryFee:     fee,
		Quorum:       c.Lobby.Quorum,
		Capacity:     c.Lobby.Capacity,
		FeeRecipient: recipient,
	}, nil
}

// GameParams converts the game block.
func (c *Config) GameParams() (game.Params, error) {
	if c.Game.MaxRounds < 1 {
		return game.Params{}, fmt.Errorf("game: max_rounds must be at least 1, got %d", c.Game.MaxRounds)
	}
	if *c.Game.MaxRevotes < 0 {
		return game.Params{}, fmt.Errorf("game: max_revotes must not be negative")
	}
	question, err := positiveDuration("game: question_timeout", c.Game.QuestionTimeout)
	if err != nil {
		return game.Params{}, err
	}
	answer, err := positiveDuration("game: answer_timeout", c.Game.AnswerTimeout)
	if err != nil {
		return game.Params{}, err
	}
	return game.Params{
		MaxRounds:       c.Game.MaxRounds,
		MaxRevotes:      *c.Game.MaxRevotes,
		QuestionTimeout: question,
		AnswerTimeout:   answer,
		Seed:            c.Game.Seed,
	}, nil
}

// SnapshotInterval is how often the node exports a state snapshot.
func (c *Config) SnapshotInterval() time.Duration {
	d, _ := time.ParseDuration(c.Server.SnapshotInterval)
	return d
}

// PumpInterval is how often the node drains inboxes when idle.
func (c *Config) PumpInterval() time.Duration {
	d, _ := time.ParseDuration(c.Server.PumpInterval)
	return d
}

func positiveDuration(name, v string) (time.Duration, error) {
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, v)
	}
	return d, nil
}
