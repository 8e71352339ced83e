package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/lox/majorules/cmd/majorules/shared"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/game"
	"github.com/lox/majorules/internal/simulator"
)

// SimulateCmd plays matches between bots and prints the report.
type SimulateCmd struct {
	Bots          int           `kong:"default='9',help='Number of bots'"`
	Games         int           `kong:"default='10',help='Matches to play'"`
	Quorum        int           `kong:"default='3',help='Players per match'"`
	Fee           string        `kong:"default='1',help='Entry fee in tokens'"`
	Bankroll      string        `kong:"default='10',help='Tokens minted to each bot'"`
	Seed          *int64        `kong:"help='Deterministic seed (optional)'"`
	MaxRounds     int           `kong:"name='max-rounds',default='3',help='Rounds before survivors win'"`
	AnswerTimeout time.Duration `kong:"name='answer-timeout',default='5ms',help='Answer window per round'"`
	Abstain       int           `kong:"default='10',help='Each bot abstains with probability 1/N (0 never)'"`
	Debug         bool          `kong:"help='Enable debug logging'"`
}

func (c *SimulateCmd) Run() error {
	level := "info"
	if c.Debug {
		level = "debug"
	}
	logger, err := shared.SetupLogger(level, false)
	if err != nil {
		return err
	}

	fee, err := escrow.ParseAmount(c.Fee)
	if err != nil {
		return fmt.Errorf("fee: %w", err)
	}
	bankroll, err := escrow.ParseAmount(c.Bankroll)
	if err != nil {
		return fmt.Errorf("bankroll: %w", err)
	}

	var seed int64
	if c.Seed != nil {
		seed = *c.Seed
		logger.Info().Int64("seed", seed).Msg("Using deterministic seed")
	} else {
		seed = time.Now().UnixNano()
		logger.Info().Int64("seed", seed).Msg("Using random seed")
	}

	params := game.DefaultParams()
	params.MaxRounds = c.MaxRounds
	params.AnswerTimeout = c.AnswerTimeout

	sim, err := simulator.New(simulator.Config{
		Bots:         c.Bots,
		Games:        c.Games,
		Quorum:       c.Quorum,
		EntryFee:     fee,
		Bankroll:     bankroll,
		Seed:         seed,
		AbstainOneIn: c.Abstain,
		Params:       params,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := shared.SignalContext(context.Background(), logger)
	defer cancel()

	start := time.Now()
	report, err := sim.Run(ctx)
	if err != nil {
		return err
	}
	logger.Info().
		Int("games", report.GamesPlayed).
		Int("rounds", report.Rounds).
		Str("house", report.House.String()).
		Str("dust", report.Dust.String()).
		Bool("conserved", report.Conserved()).
		Dur("elapsed", time.Since(start)).
		Msg("Simulation complete")

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
