package contract

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/game"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/lobby"
	"github.com/lox/majorules/internal/player"
	"github.com/lox/majorules/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

type world struct {
	ctx     context.Context
	clock   *quartz.Mock
	net     *ledger.Network
	lobby   chainid.ID
	house   identity.PlayerID
	players []identity.PlayerID
	homes   []chainid.ID
}

func newWorld(t *testing.T, n int, factory func() ledger.Application) *world {
	t.Helper()
	ctx := context.Background()
	clock := quartz.NewMock(t)
	logger := testLogger()

	if factory == nil {
		seed := int64(7)
		params := game.DefaultParams()
		params.Seed = &seed
		factory = GameFactory(params, logger)
	}
	net := ledger.New(logger, factory, ledger.WithClock(clock))

	w := &world{ctx: ctx, clock: clock, net: net, house: identity.SignerFromSeed([]byte("house")).ID()}
	cfg := lobby.Config{EntryFee: escrow.FromAttos(100), Quorum: n, Capacity: 50, FeeRecipient: w.house}
	var err error
	w.lobby, err = net.CreateRootChain("lobby", nil, NewLobby(lobby.New(cfg, logger)))
	require.NoError(t, err)

	for i := range n {
		p := identity.SignerFromSeed(fmt.Appendf(nil, "player-%d", i)).ID()
		home, err := net.CreateRootChain("home-"+p.String(), []identity.PlayerID{p}, NewPlayer(player.New(p, w.lobby, logger)))
		require.NoError(t, err)
		require.NoError(t, net.Mint(home, p, escrow.FromAttos(1000)))
		w.players = append(w.players, p)
		w.homes = append(w.homes, home)
	}
	return w
}

func (w *world) enterAll(t *testing.T) {
	t.Helper()
	for i, p := range w.players {
		require.NoError(t, w.net.ExecuteOperation(w.ctx, w.homes[i], p, protocol.EnterLobby{Stake: escrow.FromAttos(100)}))
	}
	_, err := w.net.Settle(w.ctx)
	require.NoError(t, err)
}

func (w *world) lobbyState(t *testing.T) (l *lobby.Lobby) {
	t.Helper()
	require.NoError(t, w.net.Inspect(w.lobby, func(v ledger.View) { l = v.App.(*App).Lobby() }))
	return l
}

func (w *world) match(t *testing.T, id chainid.ID) (m *game.Match) {
	t.Helper()
	require.NoError(t, w.net.Inspect(id, func(v ledger.View) { m = v.App.(*App).Game() }))
	return m
}

func TestFullMatchSettlesThroughLedger(t *testing.T) {
	t.Parallel()
	w := newWorld(t, 3, nil)
	w.enterAll(t)

	l := w.lobbyState(t)
	assert.Empty(t, l.Queue())
	games := l.ActiveGames()
	require.Len(t, games, 1)
	gameID := games[0].Game
	assert.Equal(t, escrow.FromAttos(300), w.net.Balance(ledger.Account{Chain: w.lobby}))

	m := w.match(t, gameID)
	require.Equal(t, game.Active, m.Status())

	for m.Status() == game.Active {
		q := m.Questioner()
		require.NoError(t, w.net.ExecuteOperation(w.ctx, gameID, q, protocol.AskQuestion{
			Question: "Best colour?",
			Options:  [3]string{"red", "green", "blue"},
			Answer:   2,
		}))
		for _, p := range w.players {
			if p != q {
				require.NoError(t, w.net.ExecuteOperation(w.ctx, gameID, p, protocol.SubmitAnswer{Answer: 2}))
			}
		}
		w.clock.Advance(30 * time.Second).MustWait(w.ctx)
		require.NoError(t, w.net.ExecuteOperation(w.ctx, gameID, w.players[0], protocol.ProcessRound{}))
	}
	assert.Len(t, m.History(), 3)

	_, err := w.net.Settle(w.ctx)
	require.NoError(t, err)

	// 300 pool: 15 platform fee, 95 to each winner.
	for i, p := range w.players {
		assert.Equal(t, escrow.FromAttos(995), w.net.Balance(ledger.Account{Chain: w.homes[i], Owner: p}))
		require.NoError(t, w.net.Inspect(w.homes[i], func(v ledger.View) {
			assert.Equal(t, escrow.FromAttos(95), v.App.(*App).Player().Snapshot().TotalPrizes)
		}))
		e, ok := l.Entry(p)
		require.True(t, ok)
		assert.Equal(t, lobby.LeaderboardEntry{GamesPlayed: 1, GamesWon: 1, TotalWinnings: escrow.FromAttos(95)}, e)
	}
	assert.Equal(t, escrow.FromAttos(15), w.net.Balance(ledger.Account{Chain: w.lobby, Owner: w.house}))
	assert.True(t, w.net.Balance(ledger.Account{Chain: w.lobby}).IsZero())
	assert.Equal(t, w.net.Minted(), w.net.Supply())
	assert.Zero(t, w.net.Pending())
}

func TestRefusedInitializationRefundsPlayers(t *testing.T) {
	t.Parallel()
	// Chains opened by the lobby run a variant that refuses InitializeGame.
	refusing := func() ledger.Application {
		return NewPlayer(player.New("", "", testLogger()))
	}
	w := newWorld(t, 3, refusing)
	w.enterAll(t)

	l := w.lobbyState(t)
	require.Len(t, l.ActiveGames(), 1)
	for i, p := range w.players {
		assert.Equal(t, escrow.FromAttos(1000), w.net.Balance(ledger.Account{Chain: w.homes[i], Owner: p}))
	}
	assert.True(t, w.net.Balance(ledger.Account{Chain: w.lobby}).IsZero())
	assert.Equal(t, w.net.Minted(), w.net.Supply())
}

func TestJoinWithoutStakeIsDropped(t *testing.T) {
	t.Parallel()
	w := newWorld(t, 3, nil)

	require.NoError(t, w.net.ExecuteOperation(w.ctx, w.homes[0], w.players[0], protocol.EnterLobby{}))
	_, err := w.net.Settle(w.ctx)
	require.NoError(t, err)

	assert.Empty(t, w.lobbyState(t).Queue())
	assert.Equal(t, escrow.FromAttos(1000), w.net.Balance(ledger.Account{Chain: w.homes[0], Owner: w.players[0]}))
}

func TestDispatchRejectsForeignWork(t *testing.T) {
	t.Parallel()
	logger := testLogger()
	w := newWorld(t, 3, nil)

	err := w.net.ExecuteOperation(w.ctx, w.lobby, w.players[0], protocol.ProcessRound{})
	assert.ErrorIs(t, err, ErrUnsupported)

	err = w.net.ExecuteOperation(w.ctx, w.homes[0], w.players[0], protocol.Join{Callback: w.homes[0]})
	assert.ErrorIs(t, err, ErrUnsupported)

	pending := NewGame(game.NewMatch(game.DefaultParams(), logger))
	assert.Equal(t, VariantGame, pending.Variant())
	assert.ErrorIs(t, pending.ExecuteOperation(nil, protocol.AskQuestion{}), game.ErrNotInitialized)
	assert.ErrorIs(t, pending.ExecuteOperation(nil, protocol.Join{}), ErrUnsupported)
}

func TestDirectJoinOnLobbyChain(t *testing.T) {
	t.Parallel()
	w := newWorld(t, 3, nil)
	for _, p := range w.players {
		require.NoError(t, w.net.Mint(w.lobby, p, escrow.FromAttos(100)))
	}

	for i, p := range w.players[:2] {
		require.NoError(t, w.net.ExecuteOperation(w.ctx, w.lobby, p, protocol.Join{Callback: w.homes[i]}))
	}
	require.NoError(t, w.net.ExecuteOperation(w.ctx, w.lobby, w.players[1], protocol.Leave{}))
	_, err := w.net.Settle(w.ctx)
	require.NoError(t, err)

	assert.Len(t, w.lobbyState(t).Queue(), 1)
	assert.Equal(t, escrow.FromAttos(1100), w.net.Balance(ledger.Account{Chain: w.homes[1], Owner: w.players[1]}))
	assert.Equal(t, w.net.Minted(), w.net.Supply())
}

func TestLeaveWithUnknownCallbackKeepsRefundForPlayer(t *testing.T) {
	t.Parallel()
	w := newWorld(t, 3, nil)
	p := w.players[0]
	require.NoError(t, w.net.Mint(w.lobby, p, escrow.FromAttos(100)))

	nowhere := chainid.Root("nowhere")
	require.NoError(t, w.net.ExecuteOperation(w.ctx, w.lobby, p, protocol.Join{Callback: nowhere}))
	require.NoError(t, w.net.ExecuteOperation(w.ctx, w.lobby, p, protocol.Leave{}))
	_, err := w.net.Settle(w.ctx)
	require.NoError(t, err)

	assert.Equal(t, escrow.FromAttos(100), w.net.Balance(ledger.Account{Chain: w.lobby, Owner: p}))
	assert.True(t, w.net.Balance(ledger.Account{Chain: w.lobby}).IsZero())
	assert.Equal(t, w.net.Minted(), w.net.Supply())

	// The returned escrow pays for the next entry.
	require.NoError(t, w.net.ExecuteOperation(w.ctx, w.lobby, p, protocol.Join{Callback: w.homes[0]}))
	assert.Len(t, w.lobbyState(t).Queue(), 1)
	assert.True(t, w.net.Balance(ledger.Account{Chain: w.lobby, Owner: p}).IsZero())
}
