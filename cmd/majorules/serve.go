package main

import (
	"context"
	"fmt"

	"github.com/lox/majorules/cmd/majorules/shared"
	"github.com/lox/majorules/internal/auth"
	"github.com/lox/majorules/internal/config"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/journal"
	"github.com/lox/majorules/internal/node"
	"github.com/lox/majorules/internal/server"
)

// ServeCmd runs a node.
type ServeCmd struct {
	Config   string `kong:"default='majorules.hcl',type='path',help='HCL config file (optional)'"`
	Debug    bool   `kong:"help='Enable debug logging (overrides log_level)'"`
	JSONLogs bool   `kong:"name='json-logs',help='Log JSON instead of console output'"`
	Faucet   string `kong:"default='1000',help='Tokens minted to each newly registered player'"`
}

func (c *ServeCmd) Run() error {
	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level := cfg.Server.LogLevel
	if c.Debug {
		level = "debug"
	}
	logger, err := shared.SetupLogger(level, c.JSONLogs)
	if err != nil {
		return err
	}

	lobbyCfg, err := cfg.LobbyConfig()
	if err != nil {
		return err
	}
	params, err := cfg.GameParams()
	if err != nil {
		return err
	}
	faucet, err := escrow.ParseAmount(c.Faucet)
	if err != nil {
		return fmt.Errorf("faucet: %w", err)
	}

	opts := []node.Option{
		node.WithFaucet(faucet),
		node.WithPumpInterval(cfg.PumpInterval()),
	}
	if path := cfg.Server.Journal; path != "" {
		store, err := journal.Open(path)
		if err != nil {
			return err
		}
		defer func() {
			if err := store.Close(); err != nil {
				logger.Warn().Err(err).Msg("Failed to close journal")
			}
		}()
		opts = append(opts, node.WithJournal(store))
		logger.Info().Str("path", path).Msg("Journaling blocks")
	}
	if path := cfg.Server.Snapshot; path != "" {
		opts = append(opts, node.WithSnapshot(path, cfg.SnapshotInterval()))
	}

	n, err := node.New(logger, lobbyCfg, params, opts...)
	if err != nil {
		return err
	}
	var srvOpts []server.Option
	if url := cfg.Server.RegistrationAuthURL; url != "" {
		srvOpts = append(srvOpts, server.WithRegistrationAuth(auth.NewHTTPValidator(url, cfg.Server.RegistrationAuthSecret)))
		logger.Info().Str("url", url).Msg("Player registration requires a token")
	}
	srv := server.New(n, logger, srvOpts...)

	logger.Info().
		Str("address", cfg.Server.Address).
		Str("entry_fee", lobbyCfg.EntryFee.String()).
		Int("quorum", lobbyCfg.Quorum).
		Int("capacity", lobbyCfg.Capacity).
		Int("max_rounds", params.MaxRounds).
		Dur("answer_timeout", params.AnswerTimeout).
		Str("faucet", faucet.String()).
		Msg("Starting majorules node")

	ctx, cancel := shared.SignalContext(context.Background(), logger)
	defer cancel()

	return n.Run(ctx, func(ctx context.Context) error {
		return srv.Serve(ctx, cfg.Server.Address)
	})
}
