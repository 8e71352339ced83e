package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/protocol"
	"github.com/rs/zerolog"
)

var (
	ErrUnknownChain      = errors.New("ledger: unknown chain")
	ErrChainExists       = errors.New("ledger: chain already exists")
	ErrNotOwner          = errors.New("ledger: signer does not own chain")
	ErrUnauthenticated   = errors.New("ledger: no authenticated caller")
	ErrBadNonce          = errors.New("ledger: unexpected nonce")
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")
	ErrUnauthorizedDebit = errors.New("ledger: debit not authorized by caller")
	ErrNoOwners          = errors.New("ledger: chain needs at least one owner")
	ErrNoFactory         = errors.New("ledger: no application factory for opened chains")
)

// Journal persists committed blocks.
type Journal interface {
	Record(ctx context.Context, b Block) error
}

// Observer is called for every committed block, in commit order, while the
// network lock is held. It must not call back into the Network.
type Observer func(Block)

// Option configures a Network.
type Option func(*Network)

// WithClock sets the clock block timestamps are read from.
func WithClock(clock quartz.Clock) Option {
	return func(n *Network) { n.clock = clock }
}

// WithJournal persists every committed block.
func WithJournal(j Journal) Option {
	return func(n *Network) { n.journal = j }
}

// WithObserver registers a block observer.
func WithObserver(o Observer) Option {
	return func(n *Network) { n.observers = append(n.observers, o) }
}

type envelope struct {
	origin  chainid.ID
	signer  identity.PlayerID
	kind    protocol.Kind
	payload []byte
	tracked bool
	bounced bool
}

type chain struct {
	id       chainid.ID
	parent   chainid.ID
	owners   []identity.PlayerID
	app      Application
	balance  escrow.Amount
	accounts map[identity.PlayerID]escrow.Amount
	inbox    []envelope
	height   uint64
	nonces   map[identity.PlayerID]uint64
	children uint64
	created  time.Time
	lastTime time.Time
}

func (c *chain) ownedBy(p identity.PlayerID) bool {
	if len(c.owners) == 0 {
		return true
	}
	_, ok := slices.BinarySearch(c.owners, p)
	return ok
}

// Network is an in-memory ledger holding every chain in one process.
type Network struct {
	mu        sync.Mutex
	logger    zerolog.Logger
	clock     quartz.Clock
	factory   func() Application
	chains    map[chainid.ID]*chain
	order     []chainid.ID
	journal   Journal
	observers []Observer
	minted    escrow.Amount
}

// New creates an empty network. factory builds the application installed on
// chains opened at runtime.
func New(logger zerolog.Logger, factory func() Application, opts ...Option) *Network {
	n := &Network{
		logger:  logger.With().Str("component", "ledger").Logger(),
		clock:   quartz.NewReal(),
		factory: factory,
		chains:  make(map[chainid.ID]*chain),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// CreateRootChain registers a chain derived from name. Chains without owners
// accept operations from any authenticated signer.
func (n *Network) CreateRootChain(name string, owners []identity.PlayerID, app Application) (chainid.ID, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	id := chainid.Root(name)
	if _, ok := n.chains[id]; ok {
		return "", fmt.Errorf("%w: %s", ErrChainExists, id)
	}
	n.register(newChain(id, "", owners, app, n.clock.Now()))
	n.logger.Debug().Str("chain", id.Short()).Str("name", name).Int("owners", len(owners)).Msg("Root chain created")
	return id, nil
}

func newChain(id, parent chainid.ID, owners []identity.PlayerID, app Application, now time.Time) *chain {
	sorted := slices.Clone(owners)
	identity.Sort(sorted)
	return &chain{
		id:       id,
		parent:   parent,
		owners:   slices.Compact(sorted),
		app:      app,
		accounts: make(map[identity.PlayerID]escrow.Amount),
		nonces:   make(map[identity.PlayerID]uint64),
		created:  now,
	}
}

func (n *Network) register(c *chain) {
	n.chains[c.id] = c
	n.order = append(n.order, c.id)
}

// Mint creates value in an account. An empty owner credits the chain balance.
func (n *Network) Mint(id chainid.ID, owner identity.PlayerID, amount escrow.Amount) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, ok := n.chains[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, id)
	}
	credit(c, owner, amount)
	n.minted = n.minted.SaturatingAdd(amount)
	return nil
}

func credit(c *chain, owner identity.PlayerID, amount escrow.Amount) {
	if owner == "" {
		c.balance = c.balance.SaturatingAdd(amount)
		return
	}
	c.accounts[owner] = c.accounts[owner].SaturatingAdd(amount)
}

// ExecuteOperation runs op on chain as signer without a signature check. It is
// the trusted path used by in-process drivers; remote callers use Submit.
func (n *Network) ExecuteOperation(ctx context.Context, id chainid.ID, signer identity.PlayerID, op protocol.Operation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	c, ok := n.chains[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, id)
	}
	return n.executeOperation(ctx, c, signer, op)
}

// Submit verifies a signed operation and executes it. The nonce must equal the
// number of operations the signer already committed on the chain.
func (n *Network) Submit(ctx context.Context, s protocol.SignedOperation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	op, err := s.Verify()
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	c, ok := n.chains[s.Chain]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, s.Chain)
	}
	if want := c.nonces[s.Signer]; s.Nonce != want {
		return fmt.Errorf("%w: got %d, want %d", ErrBadNonce, s.Nonce, want)
	}
	return n.executeOperation(ctx, c, s.Signer, op)
}

// NextNonce is the nonce the signer's next operation on chain must carry.
func (n *Network) NextNonce(id chainid.ID, signer identity.PlayerID) uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	if c, ok := n.chains[id]; ok {
		return c.nonces[signer]
	}
	return 0
}

func (n *Network) executeOperation(ctx context.Context, c *chain, signer identity.PlayerID, op protocol.Operation) error {
	if signer == "" {
		return ErrUnauthenticated
	}
	if !c.ownedBy(signer) {
		return fmt.Errorf("%w: %s on %s", ErrNotOwner, signer.Short(), c.id.Short())
	}
	payload, err := protocol.Marshal(op)
	if err != nil {
		return err
	}

	x := n.begin(c)
	x.caller = signer
	if err := c.app.ExecuteOperation(x, op); err != nil {
		x.rollback()
		return err
	}
	c.nonces[signer]++
	n.commit(ctx, x, Block{Kind: op.Kind(), Signer: signer, Payload: payload})
	return nil
}

// ProcessInbox delivers every pending message on chain, including messages the
// chain sends to itself while doing so.
func (n *Network) ProcessInbox(ctx context.Context, id chainid.ID) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, ok := n.chains[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownChain, id)
	}
	return n.drain(ctx, c)
}

func (n *Network) drain(ctx context.Context, c *chain) (int, error) {
	processed := 0
	for len(c.inbox) > 0 {
		if err := ctx.Err(); err != nil {
			return processed, err
		}
		env := c.inbox[0]
		c.inbox = c.inbox[1:]
		n.deliver(ctx, c, env)
		processed++
	}
	return processed, nil
}

// Settle processes inboxes, in chain creation order, until no messages are
// pending anywhere.
func (n *Network) Settle(ctx context.Context) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	total := 0
	for {
		progressed := 0
		for i := 0; i < len(n.order); i++ {
			k, err := n.drain(ctx, n.chains[n.order[i]])
			total += k
			progressed += k
			if err != nil {
				return total, err
			}
		}
		if progressed == 0 {
			return total, nil
		}
	}
}

// Pending counts undelivered messages across all chains.
func (n *Network) Pending() int {
	n.mu.Lock()
	defer n.mu.Unlock()

	total := 0
	for _, c := range n.chains {
		total += len(c.inbox)
	}
	return total
}

func (n *Network) deliver(ctx context.Context, c *chain, env envelope) {
	if env.kind == protocol.KindCredit {
		n.deliverCredit(ctx, c, env)
		return
	}

	msg, err := protocol.UnmarshalMessage(env.payload)
	if err != nil {
		n.logger.Warn().Err(err).Str("chain", c.id.Short()).Str("origin", env.origin.Short()).Msg("Undecodable message")
		n.reject(c, env)
		return
	}

	x := n.begin(c)
	x.caller = env.signer
	x.origin = env.origin
	x.inMessage = true
	x.bounced = env.bounced
	if err := c.app.ExecuteMessage(x, msg); err != nil {
		x.rollback()
		n.logger.Warn().
			Err(err).
			Str("chain", c.id.Short()).
			Str("origin", env.origin.Short()).
			Str("kind", string(env.kind)).
			Bool("bounced", env.bounced).
			Msg("Message rejected")
		n.reject(c, env)
		return
	}
	n.commit(ctx, x, Block{
		Kind:    env.kind,
		Signer:  env.signer,
		Origin:  env.origin,
		Bounced: env.bounced,
		Payload: env.payload,
	})
}

func (n *Network) deliverCredit(ctx context.Context, c *chain, env envelope) {
	var msg protocol.Credit
	decoded, err := protocol.UnmarshalMessage(env.payload)
	if err == nil {
		var ok bool
		if msg, ok = decoded.(protocol.Credit); !ok {
			err = fmt.Errorf("%w: credit envelope holds %s", protocol.ErrMalformed, decoded.Kind())
		}
	}
	if err != nil {
		n.logger.Error().Err(err).Str("chain", c.id.Short()).Msg("Dropping corrupt credit")
		return
	}

	x := n.begin(c)
	if env.bounced {
		credit(c, msg.Source, msg.Amount)
	} else {
		credit(c, msg.Target, msg.Amount)
	}
	n.commit(ctx, x, Block{
		Kind:    env.kind,
		Origin:  env.origin,
		Bounced: env.bounced,
		Payload: env.payload,
	})
}

// reject returns a tracked message to its sender. Bounced messages are never
// bounced again.
func (n *Network) reject(c *chain, env envelope) {
	if !env.tracked || env.bounced {
		n.logger.Debug().Str("chain", c.id.Short()).Str("kind", string(env.kind)).Msg("Dropping rejected message")
		return
	}
	n.bounce(c.id, env)
}

func (n *Network) bounce(from chainid.ID, env envelope) {
	sender, ok := n.chains[env.origin]
	if !ok {
		n.logger.Error().Str("origin", env.origin.Short()).Msg("Bounce target vanished")
		return
	}
	sender.inbox = append(sender.inbox, envelope{
		origin:  from,
		kind:    env.kind,
		payload: env.payload,
		bounced: true,
	})
}

func (n *Network) route(dest chainid.ID, env envelope) {
	if c, ok := n.chains[dest]; ok {
		c.inbox = append(c.inbox, env)
		return
	}
	if env.tracked {
		n.logger.Warn().Str("dest", dest.Short()).Str("kind", string(env.kind)).Msg("Unknown destination, bouncing")
		n.bounce(dest, env)
		return
	}
	n.logger.Warn().Str("dest", dest.Short()).Str("kind", string(env.kind)).Msg("Unknown destination, dropping")
}

func (n *Network) begin(c *chain) *execution {
	now := n.clock.Now()
	if now.Before(c.lastTime) {
		now = c.lastTime
	}
	return &execution{
		net:           n,
		chain:         c,
		now:           now,
		savedBalance:  c.balance,
		savedAccounts: cloneAccounts(c.accounts),
		savedChildren: c.children,
	}
}

func (n *Network) commit(ctx context.Context, x *execution, b Block) {
	c := x.chain
	c.height++
	c.lastTime = x.now

	for _, opened := range x.opened {
		n.register(opened)
		n.logger.Debug().
			Str("chain", opened.id.Short()).
			Str("parent", c.id.Short()).
			Int("owners", len(opened.owners)).
			Msg("Chain opened")
	}
	for _, out := range x.outbox {
		n.route(out.dest, out.env)
	}

	b.Chain = c.id
	b.Height = c.height
	b.Timestamp = x.now
	if n.journal != nil {
		if err := n.journal.Record(ctx, b); err != nil {
			n.logger.Error().Err(err).Str("chain", c.id.Short()).Uint64("height", b.Height).Msg("Failed to journal block")
		}
	}
	for _, o := range n.observers {
		o(b)
	}
}

func cloneAccounts(m map[identity.PlayerID]escrow.Amount) map[identity.PlayerID]escrow.Amount {
	out := make(map[identity.PlayerID]escrow.Amount, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
