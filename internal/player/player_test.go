package player

import (
	"io"
	"testing"
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type transfer struct {
	from   ledger.Source
	to     ledger.Account
	amount escrow.Amount
}

type sent struct {
	dest     chainid.ID
	msg      protocol.Message
	delivery ledger.Delivery
}

type fakeRuntime struct {
	chain     chainid.ID
	now       time.Time
	caller    identity.PlayerID
	origin    chainid.ID
	inMessage bool
	funds     escrow.Amount

	transfers []transfer
	sent      []sent
}

func (f *fakeRuntime) ChainID() chainid.ID               { return f.chain }
func (f *fakeRuntime) Caller() (identity.PlayerID, bool) { return f.caller, f.caller != "" }
func (f *fakeRuntime) Now() time.Time                    { return f.now }
func (f *fakeRuntime) MessageOrigin() (chainid.ID, bool) { return f.origin, f.inMessage }
func (f *fakeRuntime) IsBounced() bool                   { return false }

func (f *fakeRuntime) OpenChain([]identity.PlayerID) (chainid.ID, error) {
	return "", ledger.ErrNoFactory
}

func (f *fakeRuntime) Send(dest chainid.ID, msg protocol.Message, d ledger.Delivery) error {
	f.sent = append(f.sent, sent{dest: dest, msg: msg, delivery: d})
	return nil
}

func (f *fakeRuntime) Transfer(from ledger.Source, to ledger.Account, amount escrow.Amount) error {
	if f.funds.Cmp(amount) < 0 {
		return ledger.ErrInsufficientFunds
	}
	f.funds = f.funds.SaturatingSub(amount)
	f.transfers = append(f.transfers, transfer{from: from, to: to, amount: amount})
	return nil
}

func (f *fakeRuntime) Balance(ledger.Source) escrow.Amount { return f.funds }

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard).Level(zerolog.Disabled)
}

var (
	owner    = identity.SignerFromSeed([]byte("owner")).ID()
	stranger = identity.SignerFromSeed([]byte("stranger")).ID()
	lobbyID  = chainid.Root("lobby")
	homeID   = chainid.Root("home")
)

func TestEnterLobby(t *testing.T) {
	t.Parallel()

	p := New(owner, lobbyID, testLogger())
	rt := &fakeRuntime{chain: homeID, caller: owner, funds: escrow.FromAttos(500)}

	require.NoError(t, p.EnterLobby(rt, protocol.EnterLobby{Stake: escrow.FromAttos(100)}))

	require.Len(t, rt.transfers, 1)
	assert.Equal(t, ledger.FromOwner(owner), rt.transfers[0].from)
	assert.Equal(t, ledger.Account{Chain: lobbyID, Owner: owner}, rt.transfers[0].to)
	assert.Equal(t, escrow.FromAttos(100), rt.transfers[0].amount)

	require.Len(t, rt.sent, 1)
	assert.Equal(t, lobbyID, rt.sent[0].dest)
	assert.Equal(t, protocol.RequestJoinLobby{Player: owner, Callback: homeID}, rt.sent[0].msg)
	assert.Equal(t, ledger.Tracked|ledger.Authenticated, rt.sent[0].delivery)
	assert.Equal(t, uint64(1), p.Snapshot().Requests)
}

func TestEnterLobbyWithoutStake(t *testing.T) {
	t.Parallel()

	p := New(owner, lobbyID, testLogger())
	rt := &fakeRuntime{chain: homeID, caller: owner}

	require.NoError(t, p.EnterLobby(rt, protocol.EnterLobby{}))
	assert.Empty(t, rt.transfers)
	assert.Len(t, rt.sent, 1)
}

func TestEnterLobbyRejections(t *testing.T) {
	t.Parallel()

	p := New(owner, lobbyID, testLogger())

	rt := &fakeRuntime{chain: homeID, caller: stranger, funds: escrow.FromAttos(500)}
	assert.ErrorIs(t, p.EnterLobby(rt, protocol.EnterLobby{}), ErrNotOwner)

	rt = &fakeRuntime{chain: homeID, caller: owner, funds: escrow.FromAttos(50)}
	assert.ErrorIs(t, p.EnterLobby(rt, protocol.EnterLobby{Stake: escrow.FromAttos(100)}), ledger.ErrInsufficientFunds)
	assert.Empty(t, rt.sent)
	assert.Zero(t, p.Snapshot().Requests)
}

func TestDistributePrize(t *testing.T) {
	t.Parallel()

	p := New(owner, lobbyID, testLogger())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	fromLobby := &fakeRuntime{chain: homeID, origin: lobbyID, inMessage: true, now: now}

	prize := protocol.DistributePrize{Winner: owner, Amount: escrow.FromAttos(237)}
	require.NoError(t, p.DistributePrize(fromLobby, prize))
	require.NoError(t, p.DistributePrize(fromLobby, prize))

	snap := p.Snapshot()
	assert.Equal(t, escrow.FromAttos(474), snap.TotalPrizes)
	require.Len(t, snap.Prizes, 2)
	assert.Equal(t, now, snap.Prizes[0].ReceivedAt)

	fromElsewhere := &fakeRuntime{chain: homeID, origin: chainid.Root("elsewhere"), inMessage: true}
	assert.ErrorIs(t, p.DistributePrize(fromElsewhere, prize), ErrForeignSender)

	other := protocol.DistributePrize{Winner: stranger, Amount: escrow.FromAttos(1)}
	assert.ErrorIs(t, p.DistributePrize(fromLobby, other), ErrWrongWinner)
	assert.Equal(t, escrow.FromAttos(474), p.Snapshot().TotalPrizes)
}

func TestHandleBounce(t *testing.T) {
	t.Parallel()

	p := New(owner, lobbyID, testLogger())
	rt := &fakeRuntime{chain: homeID, origin: lobbyID, inMessage: true}

	require.NoError(t, p.HandleBounce(rt, protocol.RequestJoinLobby{Player: owner, Callback: homeID}))
	assert.Equal(t, uint64(1), p.Snapshot().BouncedRequests)
	assert.Error(t, p.HandleBounce(rt, protocol.DistributePrize{}))
}
