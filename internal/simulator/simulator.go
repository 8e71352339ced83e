// Package simulator plays complete matches between scripted bots on an
// in-process node and reports the leaderboard and whether value was conserved.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/game"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/lobby"
	"github.com/lox/majorules/internal/node"
	"github.com/lox/majorules/internal/protocol"
	"github.com/lox/majorules/internal/randutil"
	"github.com/lox/majorules/internal/statistics"
	"github.com/rs/zerolog"
)

// ErrNotConserved means the ledger holds a different total than was minted.
var ErrNotConserved = errors.New("simulator: supply does not match minted total")

// Config holds configuration for running simulations.
type Config struct {
	Bots     int
	Games    int
	Quorum   int
	EntryFee escrow.Amount
	Bankroll escrow.Amount
	Seed     int64
	// AbstainOneIn makes each bot skip a vote with probability 1/AbstainOneIn.
	// Zero means bots always vote.
	AbstainOneIn int
	Params       game.Params
	Clock        quartz.Clock
	// Wait blocks until d has elapsed on Clock. Tests pass a function that
	// advances a mock clock.
	Wait   func(ctx context.Context, d time.Duration) error
	Logger zerolog.Logger
}

// Report is the outcome of a simulation.
type Report struct {
	GamesPlayed int                `json:"games_played"`
	Rounds      int                `json:"rounds"`
	Outcomes    map[string]int     `json:"outcomes"`
	Stats       statistics.Summary `json:"stats"`
	Leaderboard []lobby.Standing   `json:"leaderboard"`
	House       escrow.Amount      `json:"house"`
	Dust        escrow.Amount      `json:"dust"`
	Minted      escrow.Amount      `json:"minted"`
	Supply      escrow.Amount      `json:"supply"`
}

// Conserved reports whether every minted unit is still accounted for.
func (r *Report) Conserved() bool { return r.Minted.Cmp(r.Supply) == 0 }

type bot struct {
	signer *identity.Signer
	home   chainid.ID
}

// Simulator runs majority-rules matches between bots.
type Simulator struct {
	config Config
	logger zerolog.Logger
	node   *node.Node
	rng    *randutil.Stream
	bots   []bot
	house  identity.PlayerID
	stats  statistics.Statistics
}

// New builds the node and registers the bots.
func New(config Config) (*Simulator, error) {
	if config.Quorum < 2 {
		return nil, fmt.Errorf("quorum must be at least 2, got %d", config.Quorum)
	}
	if config.Bots < config.Quorum {
		return nil, fmt.Errorf("need at least %d bots, got %d", config.Quorum, config.Bots)
	}
	if config.Clock == nil {
		config.Clock = quartz.NewReal()
	}
	if config.Wait == nil {
		clock := config.Clock
		config.Wait = func(ctx context.Context, d time.Duration) error {
			t := clock.NewTimer(d, "simulator", "wait")
			defer t.Stop()
			select {
			case <-t.C:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	seed := config.Seed
	config.Params.Seed = &seed

	house := identity.SignerFromSeed(fmt.Appendf(nil, "house-%d", config.Seed)).ID()
	lobbyCfg := lobby.Config{
		EntryFee:     config.EntryFee,
		Quorum:       config.Quorum,
		Capacity:     config.Bots,
		FeeRecipient: house,
	}
	n, err := node.New(config.Logger, lobbyCfg, config.Params,
		node.WithClock(config.Clock),
		node.WithFaucet(config.Bankroll),
	)
	if err != nil {
		return nil, err
	}

	s := &Simulator{
		config: config,
		logger: config.Logger.With().Str("component", "simulator").Logger(),
		node:   n,
		rng:    randutil.New(config.Seed),
		house:  house,
	}
	for i := range config.Bots {
		signer := identity.SignerFromSeed(fmt.Appendf(nil, "bot-%d-%d", config.Seed, i))
		home, err := n.RegisterPlayer(signer.ID())
		if err != nil {
			return nil, fmt.Errorf("register bot %d: %w", i, err)
		}
		s.bots = append(s.bots, bot{signer: signer, home: home})
	}
	return s, nil
}

// Node exposes the simulated node.
func (s *Simulator) Node() *node.Node { return s.node }

// Run plays up to config.Games matches. It stops early once fewer than a
// quorum of bots can afford the entry fee.
func (s *Simulator) Run(ctx context.Context) (*Report, error) {
	report := &Report{Outcomes: make(map[string]int)}

	for g := 0; g < s.config.Games; g++ {
		seated := s.seat()
		if len(seated) < s.config.Quorum {
			s.logger.Info().Int("game", g+1).Int("solvent", len(seated)).Msg("Not enough solvent bots, stopping")
			break
		}
		id, err := s.spawn(ctx, seated)
		if err != nil {
			return nil, fmt.Errorf("game %d: %w", g+1, err)
		}
		if err := s.play(ctx, id, report); err != nil {
			return nil, fmt.Errorf("game %d: %w", g+1, err)
		}
		report.GamesPlayed++
	}

	if report.GamesPlayed > 0 {
		if err := s.stats.Validate(); err != nil {
			return nil, fmt.Errorf("statistics validation failed: %w", err)
		}
	}
	report.Stats = s.stats.Summary()

	net := s.node.Network()
	if _, err := net.Settle(ctx); err != nil {
		return nil, err
	}
	board, err := s.node.Leaderboard()
	if err != nil {
		return nil, err
	}
	report.Leaderboard = board
	lobbyID := s.node.Lobby()
	report.House = net.Balance(ledger.Account{Chain: lobbyID, Owner: s.house})
	report.Dust = net.Balance(ledger.Account{Chain: lobbyID})
	report.Minted = net.Minted()
	report.Supply = net.Supply()
	if !report.Conserved() {
		return report, fmt.Errorf("%w: minted %s, supply %s", ErrNotConserved, report.Minted, report.Supply)
	}
	return report, nil
}

// seat shuffles the bots and takes the first quorum that can pay the fee.
func (s *Simulator) seat() []bot {
	order := make([]int, len(s.bots))
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := s.rng.Pick(i + 1)
		order[i], order[j] = order[j], order[i]
	}

	net := s.node.Network()
	var seated []bot
	for _, i := range order {
		b := s.bots[i]
		if net.Balance(ledger.Account{Chain: b.home, Owner: b.signer.ID()}).Cmp(s.config.EntryFee) < 0 {
			continue
		}
		seated = append(seated, b)
		if len(seated) == s.config.Quorum {
			break
		}
	}
	return seated
}

// spawn enters the seated bots and returns the game the lobby created.
func (s *Simulator) spawn(ctx context.Context, seated []bot) (chainid.ID, error) {
	before, err := s.node.Games()
	if err != nil {
		return "", err
	}
	for _, b := range seated {
		if err := s.node.Execute(ctx, b.home, b.signer.ID(), protocol.EnterLobby{Stake: s.config.EntryFee}); err != nil {
			return "", fmt.Errorf("enter %s: %w", b.signer.ID().Short(), err)
		}
	}
	if _, err := s.node.Network().Settle(ctx); err != nil {
		return "", err
	}
	after, err := s.node.Games()
	if err != nil {
		return "", err
	}
	if len(after) != len(before)+1 {
		return "", fmt.Errorf("expected a new game, lobby has %d", len(after))
	}
	return after[len(after)-1].Game, nil
}

func (s *Simulator) play(ctx context.Context, id chainid.ID, report *Report) error {
	for {
		snap, err := s.node.Game(id)
		if err != nil {
			return err
		}
		if snap.Status != game.Active {
			break
		}
		survivors := survivorsOf(snap)

		answer := uint8(s.rng.IntRange(1, 3))
		err = s.node.Execute(ctx, id, snap.Questioner, protocol.AskQuestion{
			Question: fmt.Sprintf("Round %d question", snap.Round),
			Options:  [3]string{"one", "two", "three"},
			Answer:   answer,
		})
		if err != nil {
			return fmt.Errorf("ask: %w", err)
		}
		for _, p := range survivors {
			if p == snap.Questioner || s.abstains() {
				continue
			}
			vote := uint8(s.rng.IntRange(1, 3))
			if err := s.node.Execute(ctx, id, p, protocol.SubmitAnswer{Answer: vote}); err != nil {
				return fmt.Errorf("answer %s: %w", p.Short(), err)
			}
		}

		if err := s.config.Wait(ctx, s.config.Params.AnswerTimeout); err != nil {
			return err
		}
		if err := s.node.Execute(ctx, id, survivors[0], protocol.ProcessRound{}); err != nil {
			return fmt.Errorf("process round: %w", err)
		}
		report.Rounds++
	}

	final, err := s.node.Game(id)
	if err != nil {
		return err
	}
	result := statistics.GameResult{
		Players: len(final.Players),
		Winners: len(final.Players) - len(final.Eliminated),
		Rounds:  len(final.History),
	}
	for _, r := range final.History {
		report.Outcomes[r.Outcome.String()]++
		if r.Outcome == game.OutcomeRevote {
			result.Revotes++
		}
	}
	s.stats.Add(result)
	_, err = s.node.Network().Settle(ctx)
	s.logger.Debug().
		Str("game", id.Short()).
		Int("rounds", len(final.History)).
		Int("eliminated", len(final.Eliminated)).
		Msg("Game complete")
	return err
}

func (s *Simulator) abstains() bool {
	return s.config.AbstainOneIn > 0 && s.rng.Pick(s.config.AbstainOneIn) == 0
}

func survivorsOf(snap game.Snapshot) []identity.PlayerID {
	out := make([]identity.PlayerID, 0, len(snap.Players))
	for _, p := range snap.Players {
		if !slices.Contains(snap.Eliminated, p) {
			out = append(out, p)
		}
	}
	return out
}
