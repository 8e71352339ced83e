package ledger

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRefused = errors.New("refused")

// scriptApp records what it sees and runs optional hooks.
type scriptApp struct {
	onOp  func(rt Runtime, op protocol.Operation) error
	onMsg func(rt Runtime, msg protocol.Message) error

	msgs    []protocol.Message
	bounced []protocol.Message
	origins []chainid.ID
	callers []identity.PlayerID
	times   []time.Time
}

func (a *scriptApp) ExecuteOperation(rt Runtime, op protocol.Operation) error {
	a.times = append(a.times, rt.Now())
	if a.onOp != nil {
		return a.onOp(rt, op)
	}
	return nil
}

func (a *scriptApp) ExecuteMessage(rt Runtime, msg protocol.Message) error {
	if rt.IsBounced() {
		a.bounced = append(a.bounced, msg)
		return nil
	}
	if a.onMsg != nil {
		if err := a.onMsg(rt, msg); err != nil {
			return err
		}
	}
	origin, _ := rt.MessageOrigin()
	caller, _ := rt.Caller()
	a.msgs = append(a.msgs, msg)
	a.origins = append(a.origins, origin)
	a.callers = append(a.callers, caller)
	return nil
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

var (
	alice = identity.SignerFromSeed([]byte("alice"))
	bob   = identity.SignerFromSeed([]byte("bob"))
)

func newTestNetwork(t *testing.T, opts ...Option) *Network {
	t.Helper()
	return New(testLogger(), func() Application { return &scriptApp{} }, opts...)
}

func TestTransferAcrossChains(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	src := &scriptApp{}
	dst := &scriptApp{}
	from, err := net.CreateRootChain("from", nil, src)
	require.NoError(t, err)
	to, err := net.CreateRootChain("to", nil, dst)
	require.NoError(t, err)
	require.NoError(t, net.Mint(from, alice.ID(), escrow.FromAttos(100)))

	src.onOp = func(rt Runtime, _ protocol.Operation) error {
		if err := rt.Transfer(FromOwner(alice.ID()), Account{Chain: rt.ChainID()}, escrow.FromAttos(30)); err != nil {
			return err
		}
		return rt.Transfer(FromOwner(alice.ID()), Account{Chain: to, Owner: bob.ID()}, escrow.FromAttos(50))
	}

	require.NoError(t, net.ExecuteOperation(ctx, from, alice.ID(), protocol.Leave{}))
	assert.Equal(t, escrow.FromAttos(20), net.Balance(Account{Chain: from, Owner: alice.ID()}))
	assert.Equal(t, escrow.FromAttos(30), net.Balance(Account{Chain: from}))
	assert.True(t, net.Balance(Account{Chain: to, Owner: bob.ID()}).IsZero())
	assert.Equal(t, 1, net.Pending())
	assert.Equal(t, net.Minted(), net.Supply(), "in-flight credit still counts")

	n, err := net.Settle(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, escrow.FromAttos(50), net.Balance(Account{Chain: to, Owner: bob.ID()}))
	assert.Empty(t, dst.msgs, "credits are applied by the ledger")
	assert.Equal(t, net.Minted(), net.Supply())
}

func TestFailedHandlerRollsBack(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	app := &scriptApp{}
	id, err := net.CreateRootChain("lobby", nil, app)
	require.NoError(t, err)
	other, err := net.CreateRootChain("other", nil, &scriptApp{})
	require.NoError(t, err)
	require.NoError(t, net.Mint(id, alice.ID(), escrow.FromAttos(10)))

	app.onOp = func(rt Runtime, _ protocol.Operation) error {
		require.NoError(t, rt.Transfer(FromOwner(alice.ID()), Account{Chain: rt.ChainID()}, escrow.FromAttos(10)))
		require.NoError(t, rt.Send(other, protocol.DistributePrize{Winner: alice.ID()}, Tracked))
		_, err := rt.OpenChain([]identity.PlayerID{alice.ID()})
		require.NoError(t, err)
		return errRefused
	}

	err = net.ExecuteOperation(ctx, id, alice.ID(), protocol.Leave{})
	require.ErrorIs(t, err, errRefused)
	assert.Equal(t, escrow.FromAttos(10), net.Balance(Account{Chain: id, Owner: alice.ID()}))
	assert.True(t, net.Balance(Account{Chain: id}).IsZero())
	assert.Zero(t, net.Pending())
	assert.Len(t, net.Chains(), 2)
	assert.Zero(t, net.NextNonce(id, alice.ID()))
}

func TestTransferAuthorization(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	app := &scriptApp{}
	id, err := net.CreateRootChain("lobby", nil, app)
	require.NoError(t, err)
	require.NoError(t, net.Mint(id, alice.ID(), escrow.FromAttos(10)))

	app.onOp = func(rt Runtime, _ protocol.Operation) error {
		return rt.Transfer(FromOwner(alice.ID()), Account{Chain: rt.ChainID()}, escrow.FromAttos(5))
	}
	err = net.ExecuteOperation(ctx, id, bob.ID(), protocol.Leave{})
	assert.ErrorIs(t, err, ErrUnauthorizedDebit)

	app.onOp = func(rt Runtime, _ protocol.Operation) error {
		return rt.Transfer(FromOwner(alice.ID()), Account{Chain: rt.ChainID()}, escrow.FromAttos(11))
	}
	err = net.ExecuteOperation(ctx, id, alice.ID(), protocol.Leave{})
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	app.onOp = func(rt Runtime, _ protocol.Operation) error {
		return rt.Transfer(FromChain(), Account{Chain: rt.ChainID(), Owner: bob.ID()}, escrow.FromAttos(1))
	}
	err = net.ExecuteOperation(ctx, id, alice.ID(), protocol.Leave{})
	assert.ErrorIs(t, err, ErrInsufficientFunds)
}

func TestRejectedTrackedMessageBounces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	sender := &scriptApp{}
	receiver := &scriptApp{onMsg: func(Runtime, protocol.Message) error { return errRefused }}
	from, err := net.CreateRootChain("sender", nil, sender)
	require.NoError(t, err)
	to, err := net.CreateRootChain("receiver", nil, receiver)
	require.NoError(t, err)

	msg := protocol.DistributePrize{Winner: alice.ID(), Amount: escrow.FromAttos(7)}
	sender.onOp = func(rt Runtime, _ protocol.Operation) error {
		if err := rt.Send(to, msg, Tracked); err != nil {
			return err
		}
		// Untracked rejections vanish.
		return rt.Send(to, protocol.DistributePrize{Winner: bob.ID()}, 0)
	}

	require.NoError(t, net.ExecuteOperation(ctx, from, alice.ID(), protocol.Leave{}))
	_, err = net.Settle(ctx)
	require.NoError(t, err)

	assert.Empty(t, receiver.msgs)
	require.Len(t, sender.bounced, 1)
	assert.Equal(t, msg, sender.bounced[0])
	assert.Zero(t, net.Pending())
}

func TestUnknownDestinationReturnsCredit(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	app := &scriptApp{}
	id, err := net.CreateRootChain("lobby", nil, app)
	require.NoError(t, err)
	require.NoError(t, net.Mint(id, "", escrow.FromAttos(40)))

	nowhere := chainid.Root("nowhere")
	app.onOp = func(rt Runtime, _ protocol.Operation) error {
		if err := rt.Transfer(FromChain(), Account{Chain: nowhere, Owner: bob.ID()}, escrow.FromAttos(40)); err != nil {
			return err
		}
		return rt.Send(nowhere, protocol.DistributePrize{Winner: bob.ID(), Amount: escrow.FromAttos(40)}, Tracked)
	}

	require.NoError(t, net.ExecuteOperation(ctx, id, alice.ID(), protocol.Leave{}))
	assert.True(t, net.Balance(Account{Chain: id}).IsZero())
	assert.Equal(t, net.Minted(), net.Supply())

	_, err = net.Settle(ctx)
	require.NoError(t, err)
	assert.Equal(t, escrow.FromAttos(40), net.Balance(Account{Chain: id}))
	require.Len(t, app.bounced, 1)
	assert.Equal(t, protocol.KindDistributePrize, app.bounced[0].Kind())
}

func TestUnknownDestinationReturnsCreditToRefundOwner(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	app := &scriptApp{}
	id, err := net.CreateRootChain("lobby", nil, app)
	require.NoError(t, err)
	require.NoError(t, net.Mint(id, "", escrow.FromAttos(40)))

	app.onOp = func(rt Runtime, _ protocol.Operation) error {
		return rt.Transfer(FromChainFor(bob.ID()), Account{Chain: chainid.Root("nowhere"), Owner: bob.ID()}, escrow.FromAttos(40))
	}
	require.NoError(t, net.ExecuteOperation(ctx, id, alice.ID(), protocol.Leave{}))
	_, err = net.Settle(ctx)
	require.NoError(t, err)

	assert.True(t, net.Balance(Account{Chain: id}).IsZero())
	assert.Equal(t, escrow.FromAttos(40), net.Balance(Account{Chain: id, Owner: bob.ID()}))
	assert.Equal(t, net.Minted(), net.Supply())
}

func TestPerPairOrdering(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	sender := &scriptApp{}
	receiver := &scriptApp{}
	from, err := net.CreateRootChain("sender", nil, sender)
	require.NoError(t, err)
	to, err := net.CreateRootChain("receiver", nil, receiver)
	require.NoError(t, err)

	next := uint32(0)
	sender.onOp = func(rt Runtime, _ protocol.Operation) error {
		next++
		return rt.Send(to, protocol.GameResults{TotalPlayers: next}, Tracked)
	}
	for range 5 {
		require.NoError(t, net.ExecuteOperation(ctx, from, alice.ID(), protocol.Leave{}))
	}

	n, err := net.ProcessInbox(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	require.Len(t, receiver.msgs, 5)
	for i, msg := range receiver.msgs {
		assert.Equal(t, uint32(i+1), msg.(protocol.GameResults).TotalPlayers)
		assert.Equal(t, from, receiver.origins[i])
	}
}

func TestAuthenticatedMessagesCarryCaller(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	sender := &scriptApp{}
	receiver := &scriptApp{}
	from, err := net.CreateRootChain("player", []identity.PlayerID{alice.ID()}, sender)
	require.NoError(t, err)
	to, err := net.CreateRootChain("lobby", nil, receiver)
	require.NoError(t, err)

	sender.onOp = func(rt Runtime, _ protocol.Operation) error {
		req := protocol.RequestJoinLobby{Player: alice.ID(), Callback: rt.ChainID()}
		if err := rt.Send(to, req, Tracked|Authenticated); err != nil {
			return err
		}
		return rt.Send(to, req, Tracked)
	}
	require.NoError(t, net.ExecuteOperation(ctx, from, alice.ID(), protocol.EnterLobby{}))
	_, err = net.Settle(ctx)
	require.NoError(t, err)

	require.Len(t, receiver.callers, 2)
	assert.Equal(t, alice.ID(), receiver.callers[0])
	assert.Empty(t, receiver.callers[1])
}

func TestOwnershipAndNonces(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	id, err := net.CreateRootChain("player", []identity.PlayerID{alice.ID()}, &scriptApp{})
	require.NoError(t, err)

	err = net.ExecuteOperation(ctx, id, bob.ID(), protocol.EnterLobby{})
	assert.ErrorIs(t, err, ErrNotOwner)
	err = net.ExecuteOperation(ctx, id, "", protocol.EnterLobby{})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	signed, err := protocol.Sign(alice, id, 0, protocol.EnterLobby{})
	require.NoError(t, err)
	require.NoError(t, net.Submit(ctx, signed))
	assert.Equal(t, uint64(1), net.NextNonce(id, alice.ID()))

	assert.ErrorIs(t, net.Submit(ctx, signed), ErrBadNonce, "replay")

	forged, err := protocol.Sign(bob, id, 0, protocol.EnterLobby{})
	require.NoError(t, err)
	forged.Signer = alice.ID()
	assert.ErrorIs(t, net.Submit(ctx, forged), identity.ErrBadSignature)

	byBob, err := protocol.Sign(bob, id, 0, protocol.EnterLobby{})
	require.NoError(t, err)
	assert.ErrorIs(t, net.Submit(ctx, byBob), ErrNotOwner)

	_, err = net.CreateRootChain("player", nil, &scriptApp{})
	assert.ErrorIs(t, err, ErrChainExists)
}

func TestOpenChain(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	net := newTestNetwork(t)

	parent := &scriptApp{}
	id, err := net.CreateRootChain("lobby", nil, parent)
	require.NoError(t, err)
	require.NoError(t, net.Mint(id, "", escrow.FromAttos(99)))

	var opened []chainid.ID
	parent.onOp = func(rt Runtime, _ protocol.Operation) error {
		child, err := rt.OpenChain([]identity.PlayerID{bob.ID(), alice.ID()})
		if err != nil {
			return err
		}
		opened = append(opened, child)
		return rt.Send(child, protocol.InitializeGame{Lobby: rt.ChainID()}, Tracked)
	}
	require.NoError(t, net.ExecuteOperation(ctx, id, alice.ID(), protocol.Leave{}))
	require.NoError(t, net.ExecuteOperation(ctx, id, alice.ID(), protocol.Leave{}))
	require.Len(t, opened, 2)
	assert.NotEqual(t, opened[0], opened[1])
	assert.Equal(t, chainid.Child(id, 0), opened[0])

	require.NoError(t, net.Inspect(opened[0], func(v View) {
		assert.Equal(t, id, v.Parent)
		assert.True(t, v.Balance.IsZero())
		assert.Len(t, v.Owners, 2)
		assert.Equal(t, 1, v.Pending)
	}))

	_, err = net.Settle(ctx)
	require.NoError(t, err)
	require.NoError(t, net.Inspect(opened[0], func(v View) {
		app := v.App.(*scriptApp)
		require.Len(t, app.msgs, 1)
		assert.Equal(t, id, app.origins[0])
	}))

	err = net.ExecuteOperation(ctx, opened[0], identity.SignerFromSeed([]byte("carol")).ID(), protocol.Leave{})
	assert.ErrorIs(t, err, ErrNotOwner)
}

func TestBlockTimestampsAndObservers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := quartz.NewMock(t)

	var blocks []Block
	net := newTestNetwork(t, WithClock(clock), WithObserver(func(b Block) { blocks = append(blocks, b) }))
	app := &scriptApp{}
	id, err := net.CreateRootChain("lobby", nil, app)
	require.NoError(t, err)

	start := clock.Now()
	require.NoError(t, net.ExecuteOperation(ctx, id, alice.ID(), protocol.Leave{}))
	clock.Advance(30 * time.Second).MustWait(ctx)
	require.NoError(t, net.ExecuteOperation(ctx, id, alice.ID(), protocol.ProcessRound{}))

	require.Len(t, app.times, 2)
	assert.Equal(t, start, app.times[0])
	assert.Equal(t, start.Add(30*time.Second), app.times[1])

	require.Len(t, blocks, 2)
	assert.Equal(t, uint64(1), blocks[0].Height)
	assert.Equal(t, uint64(2), blocks[1].Height)
	assert.Equal(t, protocol.KindProcessRound, blocks[1].Kind)
	assert.Equal(t, alice.ID(), blocks[1].Signer)
}

func TestCancelledContext(t *testing.T) {
	t.Parallel()
	net := newTestNetwork(t)
	id, err := net.CreateRootChain("lobby", nil, &scriptApp{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, net.ExecuteOperation(ctx, id, alice.ID(), protocol.Leave{}), context.Canceled)
}
