package ledger

import (
	"fmt"
	"slices"
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/protocol"
)

// View is a read-only look at a chain. App must not be retained past the
// Inspect callback.
type View struct {
	ID        chainid.ID
	Parent    chainid.ID
	Owners    []identity.PlayerID
	Height    uint64
	Balance   escrow.Amount
	Accounts  map[identity.PlayerID]escrow.Amount
	Pending   int
	CreatedAt time.Time
	App       Application
}

// Inspect calls fn with a view of chain while holding the network lock.
func (n *Network) Inspect(id chainid.ID, fn func(View)) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, ok := n.chains[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownChain, id)
	}
	fn(View{
		ID:        c.id,
		Parent:    c.parent,
		Owners:    slices.Clone(c.owners),
		Height:    c.height,
		Balance:   c.balance,
		Accounts:  cloneAccounts(c.accounts),
		Pending:   len(c.inbox),
		CreatedAt: c.created,
		App:       c.app,
	})
	return nil
}

// Chains lists chain ids in creation order.
func (n *Network) Chains() []chainid.ID {
	n.mu.Lock()
	defer n.mu.Unlock()
	return slices.Clone(n.order)
}

// Balance reads one account.
func (n *Network) Balance(acct Account) escrow.Amount {
	n.mu.Lock()
	defer n.mu.Unlock()

	c, ok := n.chains[acct.Chain]
	if !ok {
		return escrow.Zero
	}
	if acct.Owner == "" {
		return c.balance
	}
	return c.accounts[acct.Owner]
}

// Minted is the total value ever created with Mint.
func (n *Network) Minted() escrow.Amount {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.minted
}

// Supply sums every balance plus credits still in flight. Transfers never
// create or destroy value, so Supply equals Minted.
func (n *Network) Supply() escrow.Amount {
	n.mu.Lock()
	defer n.mu.Unlock()

	total := escrow.Zero
	for _, c := range n.chains {
		total = total.SaturatingAdd(c.balance)
		for _, a := range c.accounts {
			total = total.SaturatingAdd(a)
		}
		for _, env := range c.inbox {
			if env.kind != protocol.KindCredit {
				continue
			}
			if msg, err := protocol.UnmarshalMessage(env.payload); err == nil {
				if cr, ok := msg.(protocol.Credit); ok {
					total = total.SaturatingAdd(cr.Amount)
				}
			}
		}
	}
	return total
}
