// Package node runs a ledger with a lobby chain on it: the block journal,
// the event feed, a background inbox pump and periodic state snapshots.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/contract"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/game"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/journal"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/lobby"
	"github.com/lox/majorules/internal/player"
	"github.com/lox/majorules/internal/protocol"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// LobbyName is the root chain name of the node's lobby.
const LobbyName = "lobby"

var (
	ErrNotGame   = errors.New("node: chain is not a game")
	ErrNotPlayer = errors.New("node: chain is not a player authority")
	ErrNoJournal = errors.New("node: journal not configured")
)

// Option configures a Node.
type Option func(*Node)

// WithClock replaces the wall clock, for tests and simulations.
func WithClock(clock quartz.Clock) Option {
	return func(n *Node) { n.clock = clock }
}

// WithJournal records every committed block in store.
func WithJournal(store *journal.Store) Option {
	return func(n *Node) { n.journal = store }
}

// WithPumpInterval sets how often inboxes are drained without a trigger.
func WithPumpInterval(d time.Duration) Option {
	return func(n *Node) { n.pumpInterval = d }
}

// WithSnapshot exports a JSON snapshot to path every interval.
func WithSnapshot(path string, interval time.Duration) Option {
	return func(n *Node) {
		n.snapshotPath = path
		n.snapshotInterval = interval
	}
}

// WithFaucet mints amount into every newly registered player account.
func WithFaucet(amount escrow.Amount) Option {
	return func(n *Node) { n.faucet = amount }
}

// Node owns the network and everything running around it.
type Node struct {
	logger  zerolog.Logger
	clock   quartz.Clock
	net     *ledger.Network
	journal *journal.Store
	feed    *Feed
	lobby   chainid.ID
	faucet  escrow.Amount

	pumpInterval     time.Duration
	snapshotPath     string
	snapshotInterval time.Duration

	trigger chan struct{}
}

// New creates a node and its lobby chain.
func New(logger zerolog.Logger, lobbyCfg lobby.Config, params game.Params, opts ...Option) (*Node, error) {
	n := &Node{
		logger:       logger.With().Str("component", "node").Logger(),
		clock:        quartz.NewReal(),
		feed:         newFeed(logger),
		pumpInterval: time.Second,
		trigger:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(n)
	}

	netOpts := []ledger.Option{
		ledger.WithClock(n.clock),
		ledger.WithObserver(n.feed.publish),
	}
	if n.journal != nil {
		netOpts = append(netOpts, ledger.WithJournal(n.journal))
	}
	n.net = ledger.New(logger, contract.GameFactory(params, logger), netOpts...)

	id, err := n.net.CreateRootChain(LobbyName, nil, contract.NewLobby(lobby.New(lobbyCfg, logger)))
	if err != nil {
		return nil, fmt.Errorf("create lobby chain: %w", err)
	}
	n.lobby = id
	n.logger.Info().
		Str("lobby", id.String()).
		Str("entry_fee", lobbyCfg.EntryFee.String()).
		Int("quorum", lobbyCfg.Quorum).
		Msg("Node ready")
	return n, nil
}

// Network exposes the underlying ledger.
func (n *Node) Network() *ledger.Network { return n.net }

// Lobby is the lobby chain id.
func (n *Node) Lobby() chainid.ID { return n.lobby }

// Feed is the committed block feed.
func (n *Node) Feed() *Feed { return n.feed }

// PlayerChain is the id a player's own chain gets on this node.
func PlayerChain(owner identity.PlayerID) chainid.ID {
	return chainid.Root("player/" + owner.String())
}

// RegisterPlayer opens the player's own chain and credits the faucet amount.
func (n *Node) RegisterPlayer(owner identity.PlayerID) (chainid.ID, error) {
	if err := owner.Validate(); err != nil {
		return "", err
	}
	id, err := n.net.CreateRootChain("player/"+owner.String(), []identity.PlayerID{owner},
		contract.NewPlayer(player.New(owner, n.lobby, n.logger)))
	if err != nil {
		return PlayerChain(owner), err
	}
	if !n.faucet.IsZero() {
		if err := n.net.Mint(id, owner, n.faucet); err != nil {
			return id, err
		}
	}
	n.logger.Info().Str("player", owner.Short()).Str("chain", id.Short()).Msg("Player registered")
	return id, nil
}

// Submit verifies and executes a signed operation, then wakes the pump.
func (n *Node) Submit(ctx context.Context, op protocol.SignedOperation) error {
	if err := n.net.Submit(ctx, op); err != nil {
		return err
	}
	n.Trigger()
	return nil
}

// Execute runs an operation for a trusted in-process signer.
func (n *Node) Execute(ctx context.Context, chain chainid.ID, signer identity.PlayerID, op protocol.Operation) error {
	if err := n.net.ExecuteOperation(ctx, chain, signer, op); err != nil {
		return err
	}
	n.Trigger()
	return nil
}

// Trigger asks the pump to drain inboxes. It never blocks.
func (n *Node) Trigger() {
	select {
	case n.trigger <- struct{}{}:
	default:
	}
}

// Run starts the pump, the snapshot exporter and services, and blocks until
// ctx is cancelled or one of them fails.
func (n *Node) Run(ctx context.Context, services ...func(context.Context) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.pump(ctx) })
	if n.snapshotPath != "" {
		g.Go(func() error { return n.exportLoop(ctx) })
	}
	for _, svc := range services {
		g.Go(func() error { return svc(ctx) })
	}
	return g.Wait()
}

func (n *Node) pump(ctx context.Context) error {
	ticker := n.clock.NewTicker(n.pumpInterval, "node", "pump")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-n.trigger:
		case <-ticker.C:
		}
		processed, err := n.net.Settle(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if processed > 0 {
			n.logger.Debug().Int("messages", processed).Msg("Inboxes drained")
		}
	}
}

func (n *Node) exportLoop(ctx context.Context) error {
	ticker := n.clock.NewTicker(n.snapshotInterval, "node", "snapshot")
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if err := n.ExportSnapshot(n.snapshotPath); err != nil {
				n.logger.Warn().Err(err).Msg("Final snapshot failed")
			}
			return nil
		case <-ticker.C:
			if err := n.ExportSnapshot(n.snapshotPath); err != nil {
				n.logger.Warn().Err(err).Str("path", n.snapshotPath).Msg("Snapshot export failed")
			}
		}
	}
}

// Blocks reads a chain's journaled blocks.
func (n *Node) Blocks(ctx context.Context, chain chainid.ID) ([]ledger.Block, error) {
	if n.journal == nil {
		return nil, ErrNoJournal
	}
	return n.journal.Blocks(ctx, chain)
}
