// Package ledger is the substrate every authority runs on: chains with their
// own balances and ordered inboxes, one-way messages that bounce back to the
// sender when rejected, token transfers, caller authentication and an
// execution-visible clock.
//
// Network is an in-memory implementation. Each chain executes strictly
// serially; an application only sees a message when the chain's inbox is
// processed.
package ledger

import (
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/protocol"
)

// Account names a balance on a chain. An empty Owner is the chain's own
// balance.
type Account struct {
	Chain chainid.ID        `json:"chain"`
	Owner identity.PlayerID `json:"owner,omitempty"`
}

// Source names the balance a transfer debits on the executing chain.
type Source struct {
	Owner identity.PlayerID
	// Refund receives a bounced cross-chain transfer debited from the chain
	// balance. Empty returns it to the chain balance.
	Refund identity.PlayerID
}

// FromChain debits the executing chain's own balance.
func FromChain() Source { return Source{} }

// FromChainFor debits the executing chain's own balance on owner's behalf. If
// the destination does not exist the value lands in owner's account on the
// executing chain instead of the chain balance.
func FromChainFor(owner identity.PlayerID) Source { return Source{Refund: owner} }

// FromOwner debits owner's account on the executing chain. The owner must be
// the authenticated caller.
func FromOwner(owner identity.PlayerID) Source { return Source{Owner: owner} }

// Delivery flags for Runtime.Send.
type Delivery uint8

const (
	// Tracked messages come back to the sender, marked bounced, when the
	// destination rejects them or does not exist.
	Tracked Delivery = 1 << iota
	// Authenticated messages carry the current caller to the receiver.
	Authenticated
)

// Runtime is what a handler sees while executing one operation or message.
// Everything a handler does through it is discarded if the handler returns an
// error.
type Runtime interface {
	ChainID() chainid.ID
	// Caller is the authenticated signer of the operation, or of the message
	// when it was sent Authenticated.
	Caller() (identity.PlayerID, bool)
	// Now is the block timestamp. It never decreases on a chain.
	Now() time.Time
	// MessageOrigin is the sending chain while executing a message.
	MessageOrigin() (chainid.ID, bool)
	IsBounced() bool

	// OpenChain creates a chain co-owned by owners with a zero balance.
	OpenChain(owners []identity.PlayerID) (chainid.ID, error)
	Send(dest chainid.ID, msg protocol.Message, delivery Delivery) error
	Transfer(from Source, to Account, amount escrow.Amount) error
	Balance(src Source) escrow.Amount
}

// Application is the state machine installed on a chain.
type Application interface {
	ExecuteOperation(rt Runtime, op protocol.Operation) error
	ExecuteMessage(rt Runtime, msg protocol.Message) error
}

// Block is one committed unit of work on a chain.
type Block struct {
	Chain     chainid.ID        `json:"chain"`
	Height    uint64            `json:"height"`
	Timestamp time.Time         `json:"timestamp"`
	Kind      protocol.Kind     `json:"kind"`
	Signer    identity.PlayerID `json:"signer,omitempty"`
	Origin    chainid.ID        `json:"origin,omitempty"`
	Bounced   bool              `json:"bounced,omitempty"`
	Payload   []byte            `json:"-"`
}
