package simulator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/game"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, seed int64) Config {
	t.Helper()
	clock := quartz.NewMock(t)
	return Config{
		Bots:         6,
		Games:        4,
		Quorum:       3,
		EntryFee:     escrow.FromAttos(100),
		Bankroll:     escrow.FromAttos(1000),
		Seed:         seed,
		AbstainOneIn: 8,
		Params:       game.DefaultParams(),
		Clock:        clock,
		Wait: func(ctx context.Context, d time.Duration) error {
			clock.Advance(d).MustWait(ctx)
			return nil
		},
		Logger: zerolog.New(io.Discard).Level(zerolog.Disabled),
	}
}

func TestNewValidates(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t, 1)
	cfg.Quorum = 1
	_, err := New(cfg)
	assert.Error(t, err)

	cfg = testConfig(t, 1)
	cfg.Bots = 2
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestRunConservesValue(t *testing.T) {
	t.Parallel()
	sim, err := New(testConfig(t, 42))
	require.NoError(t, err)

	report, err := sim.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 4, report.GamesPlayed)
	assert.True(t, report.Conserved())
	assert.Equal(t, escrow.FromAttos(6000), report.Minted)
	// 5% of each 300 pool.
	assert.Equal(t, escrow.FromAttos(60), report.House)
	assert.GreaterOrEqual(t, report.Rounds, 4)
	assert.Equal(t, 4, report.Stats.Games)
	assert.InDelta(t, float64(report.Rounds)/4, report.Stats.RoundsPerGame, 1e-9)

	played := 0
	for _, s := range report.Leaderboard {
		played += int(s.GamesPlayed)
	}
	assert.Equal(t, 12, played)

	lv, err := sim.Node().LobbyView()
	require.NoError(t, err)
	assert.Empty(t, lv.Queue)
	assert.Equal(t, uint64(4), lv.Stats.GamesCreated)
}

func TestRunIsDeterministic(t *testing.T) {
	t.Parallel()

	run := func() *Report {
		sim, err := New(testConfig(t, 99))
		require.NoError(t, err)
		report, err := sim.Run(context.Background())
		require.NoError(t, err)
		return report
	}
	a, b := run(), run()
	assert.Equal(t, a.Rounds, b.Rounds)
	assert.Equal(t, a.Outcomes, b.Outcomes)
	assert.Equal(t, a.Leaderboard, b.Leaderboard)
	assert.Equal(t, a.Dust, b.Dust)
}

func TestRunStopsWhenBotsAreBroke(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t, 3)
	cfg.Bots = 3
	cfg.Games = 5
	cfg.Bankroll = escrow.FromAttos(100)
	sim, err := New(cfg)
	require.NoError(t, err)

	report, err := sim.Run(context.Background())
	require.NoError(t, err)
	// After the first pool is split fewer than three bots can pay again.
	assert.Equal(t, 1, report.GamesPlayed)
	assert.True(t, report.Conserved())
}
