package lobby

import (
	"slices"
	"strings"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
)

// Stats are the lobby counters.
type Stats struct {
	State           string        `json:"state"`
	Queued          int           `json:"queued"`
	Quorum          int           `json:"quorum"`
	Capacity        int           `json:"capacity"`
	EntryFee        escrow.Amount `json:"entry_fee"`
	GamesCreated    uint64        `json:"games_created"`
	GamesCompleted  uint64        `json:"games_completed"`
	PlatformRevenue escrow.Amount `json:"platform_revenue"`
}

// Standing is one leaderboard row.
type Standing struct {
	Player identity.PlayerID `json:"player"`
	LeaderboardEntry
}

// Stats reports the lobby counters. A lobby is always accepting players.
func (l *Lobby) Stats() Stats {
	return Stats{
		State:           "accepting_players",
		Queued:          len(l.queue),
		Quorum:          l.cfg.Quorum,
		Capacity:        l.cfg.Capacity,
		EntryFee:        l.cfg.EntryFee,
		GamesCreated:    l.gamesCreated,
		GamesCompleted:  l.gamesCompleted,
		PlatformRevenue: l.platformRevenue,
	}
}

// Queue returns the waiting players in join order.
func (l *Lobby) Queue() []WaitingEntry { return slices.Clone(l.queue) }

// ActiveGames returns every spawned game in spawn order.
func (l *Lobby) ActiveGames() []ActiveGameRecord {
	out := make([]ActiveGameRecord, len(l.games))
	for i, g := range l.games {
		g.Players = slices.Clone(g.Players)
		out[i] = g
	}
	return out
}

// Game looks up a spawned game.
func (l *Lobby) Game(id chainid.ID) (ActiveGameRecord, bool) {
	i, ok := l.gameIndex[id]
	if !ok {
		return ActiveGameRecord{}, false
	}
	g := l.games[i]
	g.Players = slices.Clone(g.Players)
	return g, true
}

// Entry returns one player's leaderboard entry.
func (l *Lobby) Entry(p identity.PlayerID) (LeaderboardEntry, bool) {
	e, ok := l.leaderboard[p]
	if !ok {
		return LeaderboardEntry{}, false
	}
	return *e, true
}

// Leaderboard ranks players by total winnings, then games won, then id.
func (l *Lobby) Leaderboard() []Standing {
	out := make([]Standing, 0, len(l.leaderboard))
	for p, e := range l.leaderboard {
		out = append(out, Standing{Player: p, LeaderboardEntry: *e})
	}
	slices.SortFunc(out, func(a, b Standing) int {
		if c := b.TotalWinnings.Cmp(a.TotalWinnings); c != 0 {
			return c
		}
		if a.GamesWon != b.GamesWon {
			if a.GamesWon > b.GamesWon {
				return -1
			}
			return 1
		}
		return strings.Compare(string(a.Player), string(b.Player))
	})
	return out
}
