package ledger

import (
	"fmt"
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/protocol"
)

type outgoing struct {
	dest chainid.ID
	env  envelope
}

// execution implements Runtime for one block. Side effects on other chains
// are buffered until commit.
type execution struct {
	net       *Network
	chain     *chain
	now       time.Time
	caller    identity.PlayerID
	origin    chainid.ID
	inMessage bool
	bounced   bool

	outbox []outgoing
	opened []*chain

	savedBalance  escrow.Amount
	savedAccounts map[identity.PlayerID]escrow.Amount
	savedChildren uint64
}

var _ Runtime = (*execution)(nil)

func (x *execution) rollback() {
	x.chain.balance = x.savedBalance
	x.chain.accounts = x.savedAccounts
	x.chain.children = x.savedChildren
	x.outbox = nil
	x.opened = nil
}

func (x *execution) ChainID() chainid.ID { return x.chain.id }

func (x *execution) Caller() (identity.PlayerID, bool) { return x.caller, x.caller != "" }

func (x *execution) Now() time.Time { return x.now }

func (x *execution) MessageOrigin() (chainid.ID, bool) { return x.origin, x.inMessage }

func (x *execution) IsBounced() bool { return x.bounced }

func (x *execution) OpenChain(owners []identity.PlayerID) (chainid.ID, error) {
	if len(owners) == 0 {
		return "", ErrNoOwners
	}
	if x.net.factory == nil {
		return "", ErrNoFactory
	}
	id := chainid.Child(x.chain.id, x.chain.children)
	x.chain.children++
	x.opened = append(x.opened, newChain(id, x.chain.id, owners, x.net.factory(), x.now))
	return id, nil
}

func (x *execution) Send(dest chainid.ID, msg protocol.Message, delivery Delivery) error {
	payload, err := protocol.Marshal(msg)
	if err != nil {
		return err
	}
	env := envelope{
		origin:  x.chain.id,
		kind:    msg.Kind(),
		payload: payload,
		tracked: delivery&Tracked != 0,
	}
	if delivery&Authenticated != 0 {
		if x.caller == "" {
			return ErrUnauthenticated
		}
		env.signer = x.caller
	}
	x.outbox = append(x.outbox, outgoing{dest: dest, env: env})
	return nil
}

func (x *execution) Transfer(from Source, to Account, amount escrow.Amount) error {
	if amount.IsZero() {
		return nil
	}
	if err := x.debit(from, amount); err != nil {
		return err
	}
	if to.Chain == x.chain.id {
		credit(x.chain, to.Owner, amount)
		return nil
	}
	// Cross-chain value travels as a tracked credit so an unknown destination
	// returns it to the debited account, or to the named refund owner.
	back := from.Owner
	if back == "" {
		back = from.Refund
	}
	return x.Send(to.Chain, protocol.Credit{Target: to.Owner, Source: back, Amount: amount}, Tracked)
}

func (x *execution) debit(from Source, amount escrow.Amount) error {
	if from.Owner == "" {
		if x.chain.balance.Cmp(amount) < 0 {
			return fmt.Errorf("%w: chain balance %s, need %s", ErrInsufficientFunds, x.chain.balance, amount)
		}
		x.chain.balance = x.chain.balance.SaturatingSub(amount)
		return nil
	}
	if from.Owner != x.caller {
		return fmt.Errorf("%w: %s", ErrUnauthorizedDebit, from.Owner.Short())
	}
	have := x.chain.accounts[from.Owner]
	if have.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, need %s", ErrInsufficientFunds, from.Owner.Short(), have, amount)
	}
	x.chain.accounts[from.Owner] = have.SaturatingSub(amount)
	return nil
}

func (x *execution) Balance(src Source) escrow.Amount {
	if src.Owner == "" {
		return x.chain.balance
	}
	return x.chain.accounts[src.Owner]
}
