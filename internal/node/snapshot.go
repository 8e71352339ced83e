package node

import (
	"fmt"
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/contract"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/fileutil"
	"github.com/lox/majorules/internal/game"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/lobby"
	"github.com/lox/majorules/internal/player"
)

// LobbyView is the lobby's public state.
type LobbyView struct {
	Chain   chainid.ID           `json:"chain"`
	Stats   lobby.Stats          `json:"stats"`
	Queue   []lobby.WaitingEntry `json:"queue"`
	Balance escrow.Amount        `json:"balance"`
}

// GameSummary is one spawned game with its current progress.
type GameSummary struct {
	lobby.ActiveGameRecord
	Status    game.Status `json:"status"`
	Round     int         `json:"round"`
	Survivors int         `json:"survivors"`
}

// Snapshot is everything the node exports periodically.
type Snapshot struct {
	TakenAt     time.Time        `json:"taken_at"`
	Lobby       LobbyView        `json:"lobby"`
	Games       []GameSummary    `json:"games"`
	Leaderboard []lobby.Standing `json:"leaderboard"`
	Chains      int              `json:"chains"`
	Minted      escrow.Amount    `json:"minted"`
	Supply      escrow.Amount    `json:"supply"`
}

func (n *Node) withLobby(fn func(*lobby.Lobby, ledger.View)) error {
	return n.net.Inspect(n.lobby, func(v ledger.View) {
		fn(v.App.(*contract.App).Lobby(), v)
	})
}

// LobbyView reads the lobby's queue and counters.
func (n *Node) LobbyView() (LobbyView, error) {
	var out LobbyView
	err := n.withLobby(func(l *lobby.Lobby, v ledger.View) {
		out = LobbyView{Chain: v.ID, Stats: l.Stats(), Queue: l.Queue(), Balance: v.Balance}
	})
	return out, err
}

// Leaderboard reads the lobby leaderboard.
func (n *Node) Leaderboard() ([]lobby.Standing, error) {
	var out []lobby.Standing
	err := n.withLobby(func(l *lobby.Lobby, _ ledger.View) { out = l.Leaderboard() })
	return out, err
}

// Games lists every game the lobby spawned with its progress.
func (n *Node) Games() ([]GameSummary, error) {
	var records []lobby.ActiveGameRecord
	if err := n.withLobby(func(l *lobby.Lobby, _ ledger.View) { records = l.ActiveGames() }); err != nil {
		return nil, err
	}
	out := make([]GameSummary, 0, len(records))
	for _, r := range records {
		s := GameSummary{ActiveGameRecord: r}
		err := n.net.Inspect(r.Game, func(v ledger.View) {
			if m := v.App.(*contract.App).Game(); m != nil {
				s.Status = m.Status()
				s.Round = m.Round()
				s.Survivors = len(m.Survivors())
			}
		})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Game reads one match.
func (n *Node) Game(id chainid.ID) (game.Snapshot, error) {
	var (
		out game.Snapshot
		ok  bool
	)
	err := n.net.Inspect(id, func(v ledger.View) {
		if m := v.App.(*contract.App).Game(); m != nil {
			out, ok = m.Snapshot(), true
		}
	})
	if err != nil {
		return game.Snapshot{}, err
	}
	if !ok {
		return game.Snapshot{}, fmt.Errorf("%w: %s", ErrNotGame, id)
	}
	return out, nil
}

// PlayerView is a player chain with its owner's balance there.
type PlayerView struct {
	player.Snapshot
	Chain   chainid.ID    `json:"chain"`
	Balance escrow.Amount `json:"balance"`
}

// Player reads a player authority.
func (n *Node) Player(id chainid.ID) (PlayerView, error) {
	var (
		out PlayerView
		ok  bool
	)
	err := n.net.Inspect(id, func(v ledger.View) {
		if p := v.App.(*contract.App).Player(); p != nil {
			snap := p.Snapshot()
			out, ok = PlayerView{Snapshot: snap, Chain: v.ID, Balance: v.Accounts[snap.Owner]}, true
		}
	})
	if err != nil {
		return PlayerView{}, err
	}
	if !ok {
		return PlayerView{}, fmt.Errorf("%w: %s", ErrNotPlayer, id)
	}
	return out, nil
}

// Snapshot collects the node's public state.
func (n *Node) Snapshot() (Snapshot, error) {
	lv, err := n.LobbyView()
	if err != nil {
		return Snapshot{}, err
	}
	games, err := n.Games()
	if err != nil {
		return Snapshot{}, err
	}
	board, err := n.Leaderboard()
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		TakenAt:     n.clock.Now().UTC(),
		Lobby:       lv,
		Games:       games,
		Leaderboard: board,
		Chains:      len(n.net.Chains()),
		Minted:      n.net.Minted(),
		Supply:      n.net.Supply(),
	}, nil
}

// ExportSnapshot writes the snapshot to path atomically.
func (n *Node) ExportSnapshot(path string) error {
	snap, err := n.Snapshot()
	if err != nil {
		return err
	}
	return fileutil.WriteJSONAtomic(path, snap, 0o644)
}
