// Package player is the authority a single player owns. It forwards lobby
// entry requests on the owner's behalf and keeps a record of prizes the lobby
// paid to it.
package player

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/protocol"
	"github.com/rs/zerolog"
)

var (
	ErrNotOwner      = errors.New("player: caller is not the chain owner")
	ErrForeignSender = errors.New("player: message not sent by the lobby")
	ErrWrongWinner   = errors.New("player: prize addressed to another player")
)

// Prize is one DistributePrize notice the owner received.
type Prize struct {
	Amount     escrow.Amount `json:"amount"`
	ReceivedAt time.Time     `json:"received_at"`
}

// Player is the state of a player authority.
type Player struct {
	owner  identity.PlayerID
	lobby  chainid.ID
	logger zerolog.Logger

	requests        uint64
	bouncedRequests uint64
	prizes          []Prize
	totalPrizes     escrow.Amount
}

// New creates the authority for owner, entering games through lobby.
func New(owner identity.PlayerID, lobby chainid.ID, logger zerolog.Logger) *Player {
	return &Player{
		owner: owner,
		lobby: lobby,
		logger: logger.With().
			Str("component", "player").
			Str("owner", owner.Short()).
			Logger(),
	}
}

// Owner returns the player this chain belongs to.
func (p *Player) Owner() identity.PlayerID { return p.owner }

// Lobby returns the lobby the player enters through.
func (p *Player) Lobby() chainid.ID { return p.lobby }

// EnterLobby moves the stake to the owner's account on the lobby chain and
// asks the lobby for a seat. Both go out in the same block, so the lobby sees
// the funds before the request.
func (p *Player) EnterLobby(rt ledger.Runtime, op protocol.EnterLobby) error {
	caller, ok := rt.Caller()
	if !ok || caller != p.owner {
		return ErrNotOwner
	}
	if !op.Stake.IsZero() {
		dest := ledger.Account{Chain: p.lobby, Owner: p.owner}
		if err := rt.Transfer(ledger.FromOwner(p.owner), dest, op.Stake); err != nil {
			return fmt.Errorf("stake: %w", err)
		}
	}
	req := protocol.RequestJoinLobby{Player: p.owner, Callback: rt.ChainID()}
	if err := rt.Send(p.lobby, req, ledger.Tracked|ledger.Authenticated); err != nil {
		return err
	}
	p.requests++
	p.logger.Debug().Str("lobby", p.lobby.Short()).Str("stake", op.Stake.String()).Msg("Requested lobby seat")
	return nil
}

// DistributePrize records a prize notice. The value itself arrives as a credit
// to the owner's account.
func (p *Player) DistributePrize(rt ledger.Runtime, msg protocol.DistributePrize) error {
	if origin, _ := rt.MessageOrigin(); origin != p.lobby {
		return fmt.Errorf("%w: %s", ErrForeignSender, origin)
	}
	if msg.Winner != p.owner {
		return fmt.Errorf("%w: %s", ErrWrongWinner, msg.Winner.Short())
	}
	p.prizes = append(p.prizes, Prize{Amount: msg.Amount, ReceivedAt: rt.Now()})
	p.totalPrizes = p.totalPrizes.SaturatingAdd(msg.Amount)
	p.logger.Info().Str("amount", msg.Amount.String()).Msg("Prize received")
	return nil
}

// HandleBounce notes a join request the lobby refused. Any stake sent with it
// has already been credited at the lobby and can be spent by a later request.
func (p *Player) HandleBounce(rt ledger.Runtime, msg protocol.Message) error {
	if _, ok := msg.(protocol.RequestJoinLobby); !ok {
		return fmt.Errorf("player: unexpected bounced %s", msg.Kind())
	}
	p.bouncedRequests++
	p.logger.Warn().Str("lobby", p.lobby.Short()).Msg("Lobby refused join request")
	return nil
}

// Snapshot is a read-only projection of the player authority.
type Snapshot struct {
	Owner           identity.PlayerID `json:"owner"`
	Lobby           chainid.ID        `json:"lobby"`
	Requests        uint64            `json:"requests"`
	BouncedRequests uint64            `json:"bounced_requests"`
	Prizes          []Prize           `json:"prizes"`
	TotalPrizes     escrow.Amount     `json:"total_prizes"`
}

// Snapshot copies the authority's state for read paths.
func (p *Player) Snapshot() Snapshot {
	return Snapshot{
		Owner:           p.owner,
		Lobby:           p.lobby,
		Requests:        p.requests,
		BouncedRequests: p.bouncedRequests,
		Prizes:          slices.Clone(p.prizes),
		TotalPrizes:     p.totalPrizes,
	}
}
