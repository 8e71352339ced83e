// Package lobby is the matchmaking authority. Players queue with an escrowed
// entry fee; once a quorum is waiting the lobby opens a game chain co-owned by
// exactly those players and initializes it by message. Stakes stay in the
// lobby's balance until the game reports results, when prizes and the platform
// fee are paid out.
package lobby

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

// MaxCapacity caps the configurable queue size.
const MaxCapacity = 50

var (
	ErrAlreadyQueued    = errors.New("lobby: player already queued")
	ErrLobbyFull        = errors.New("lobby: lobby is full")
	ErrNotQueued        = errors.New("lobby: player not queued")
	ErrUnauthenticated  = errors.New("lobby: caller must authenticate as a player")
	ErrInvalidCallback  = errors.New("lobby: invalid callback chain")
	ErrUnknownGame      = errors.New("lobby: results from a chain this lobby did not spawn")
	ErrUnexpectedBounce = errors.New("lobby: unexpected bounced message")
)

// Config holds the lobby's fixed parameters.
type Config struct {
	EntryFee     escrow.Amount
	Quorum       int
	Capacity     int
	FeeRecipient identity.PlayerID
}

// DefaultConfig returns a lobby charging one token with a quorum of three.
func DefaultConfig() Config {
	return Config{
		EntryFee: escrow.Tokens(1),
		Quorum:   3,
		Capacity: MaxCapacity,
	}
}

// WaitingEntry is one queued player.
type WaitingEntry struct {
	Player   identity.PlayerID `json:"player"`
	Callback chainid.ID        `json:"callback"`
	Escrowed escrow.Amount     `json:"escrowed"`
	JoinedAt time.Time         `json:"joined_at"`
}

// ActiveGameRecord tracks a spawned game. It is never mutated.
type ActiveGameRecord struct {
	Game      chainid.ID          `json:"game"`
	CreatedAt time.Time           `json:"created_at"`
	Players   []identity.PlayerID `json:"players"`
	EntryFee  escrow.Amount       `json:"entry_fee"`
}

// LeaderboardEntry accumulates a player's results. It is never reset.
type LeaderboardEntry struct {
	GamesPlayed     uint64        `json:"games_played"`
	GamesWon        uint64        `json:"games_won"`
	TimesEliminated uint64        `json:"times_eliminated"`
	TotalWinnings   escrow.Amount `json:"total_winnings"`
}

// Lobby is the state of the lobby authority.
type Lobby struct {
	cfg    Config
	logger zerolog.Logger

	queue           []WaitingEntry
	games           []ActiveGameRecord
	gameIndex       map[chainid.ID]int
	leaderboard     map[identity.PlayerID]*LeaderboardEntry
	gamesCreated    uint64
	gamesCompleted  uint64
	platformRevenue escrow.Amount
}

// New creates an empty lobby.
func New(cfg Config, logger zerolog.Logger) *Lobby {
	return &Lobby{
		cfg:         cfg,
		logger:      logger.With().Str("component", "lobby").Logger(),
		gameIndex:   make(map[chainid.ID]int),
		leaderboard: make(map[identity.PlayerID]*LeaderboardEntry),
	}
}

// Config returns the lobby parameters.
func (l *Lobby) Config() Config { return l.cfg }

// Join queues the authenticated caller, escrowing the entry fee from their
// account on the lobby chain. Reaching the quorum spawns a game in the same
// block.
func (l *Lobby) Join(rt ledger.Runtime, op protocol.Join) error {
	caller, ok := rt.Caller()
	if !ok {
		return ErrUnauthenticated
	}
	if err := chainid.Validate(op.Callback); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidCallback, err)
	}
	return l.enqueue(rt, caller, op.Callback)
}

// RequestJoin is the message form of Join, sent authenticated by a player's
// own chain. Requests that cannot be honoured are dropped, not rejected.
func (l *Lobby) RequestJoin(rt ledger.Runtime, msg protocol.RequestJoinLobby) error {
	origin, _ := rt.MessageOrigin()
	caller, authenticated := rt.Caller()

	var reason string
	switch {
	case !authenticated || caller != msg.Player:
		reason = "unauthenticated"
	case msg.Callback != origin:
		reason = "callback does not match sender"
	case l.isQueued(msg.Player):
		reason = "already queued"
	case len(l.queue) >= l.cfg.Capacity:
		reason = "lobby full"
	case rt.Balance(ledger.FromOwner(msg.Player)).Cmp(l.cfg.EntryFee) < 0:
		reason = "insufficient escrow funds"
	}
	if reason != "" {
		l.logger.Debug().
			Str("player", msg.Player.Short()).
			Str("origin", origin.Short()).
			Str("reason", reason).
			Msg("Dropping join request")
		return nil
	}
	return l.enqueue(rt, msg.Player, msg.Callback)
}

func (l *Lobby) enqueue(rt ledger.Runtime, player identity.PlayerID, callback chainid.ID) error {
	if l.isQueued(player) {
		return ErrAlreadyQueued
	}
	if len(l.queue) >= l.cfg.Capacity {
		return ErrLobbyFull
	}
	if err := rt.Transfer(ledger.FromOwner(player), ledger.Account{Chain: rt.ChainID()}, l.cfg.EntryFee); err != nil {
		return fmt.Errorf("escrow entry fee: %w", err)
	}

	l.queue = append(l.queue, WaitingEntry{
		Player:   player,
		Callback: callback,
		Escrowed: l.cfg.EntryFee,
		JoinedAt: rt.Now(),
	})
	l.logger.Info().
		Str("player", player.Short()).
		Int("queued", len(l.queue)).
		Int("quorum", l.cfg.Quorum).
		Msg("Player queued")

	if len(l.queue) >= l.cfg.Quorum {
		if err := l.spawn(rt); err != nil {
			l.queue = l.queue[:len(l.queue)-1]
			return err
		}
	}
	return nil
}

// Leave removes the caller from the queue and refunds their escrow to their
// callback chain. An unreachable callback leaves the refund in the caller's
// account on the lobby chain.
func (l *Lobby) Leave(rt ledger.Runtime) error {
	caller, ok := rt.Caller()
	if !ok {
		return ErrUnauthenticated
	}
	idx := slices.IndexFunc(l.queue, func(e WaitingEntry) bool { return e.Player == caller })
	if idx < 0 {
		return ErrNotQueued
	}
	entry := l.queue[idx]
	refund := ledger.Account{Chain: entry.Callback, Owner: entry.Player}
	if err := rt.Transfer(ledger.FromChainFor(entry.Player), refund, entry.Escrowed); err != nil {
		return fmt.Errorf("refund entry fee: %w", err)
	}

	l.queue = slices.Delete(l.queue, idx, idx+1)
	l.logger.Info().
		Str("player", caller.Short()).
		Str("refund", entry.Escrowed.String()).
		Int("queued", len(l.queue)).
		Msg("Player left")
	return nil
}

// spawn opens a game chain for everyone queued and initializes it.
func (l *Lobby) spawn(rt ledger.Runtime) error {
	players := make([]identity.PlayerID, 0, len(l.queue))
	callbacks := make(map[identity.PlayerID]chainid.ID, len(l.queue))
	for _, e := range l.queue {
		players = append(players, e.Player)
		callbacks[e.Player] = e.Callback
	}

	game, err := rt.OpenChain(players)
	if err != nil {
		return fmt.Errorf("open game chain: %w", err)
	}
	initMsg := protocol.InitializeGame{
		Players:      players,
		Callbacks:    protocol.NewCallbacks(callbacks),
		EntryFee:     l.cfg.EntryFee,
		Lobby:        rt.ChainID(),
		FeeRecipient: l.cfg.FeeRecipient,
	}
	if err := rt.Send(game, initMsg, ledger.Tracked); err != nil {
		return fmt.Errorf("initialize game: %w", err)
	}

	l.gameIndex[game] = len(l.games)
	l.games = append(l.games, ActiveGameRecord{
		Game:      game,
		CreatedAt: rt.Now(),
		Players:   players,
		EntryFee:  l.cfg.EntryFee,
	})
	l.gamesCreated++
	for _, p := range players {
		l.entry(p).GamesPlayed++
	}
	l.queue = nil

	l.logger.Info().
		Str("game", game.Short()).
		Int("players", len(players)).
		Uint64("games_created", l.gamesCreated).
		Msg("Game spawned")
	return nil
}

// GameResults settles a finished game: prizes to every winner with a known
// callback, the platform fee to the fee recipient's account on the lobby
// chain. The rounding remainder stays in the lobby balance. Delivery is
// assumed at most once; a replayed message would pay twice.
func (l *Lobby) GameResults(rt ledger.Runtime, msg protocol.GameResults) error {
	origin, _ := rt.MessageOrigin()
	if _, ok := l.gameIndex[origin]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownGame, origin)
	}

	s := escrow.Settle(msg.EntryFee, int(msg.TotalPlayers), len(msg.Winners))

	paid := make([]bool, len(msg.Winners))
	for i, w := range msg.Winners {
		callback, ok := msg.Callbacks.Lookup(w)
		if !ok {
			l.logger.Warn().Str("winner", w.Short()).Str("game", origin.Short()).Msg("No callback for winner, prize retained")
			continue
		}
		if err := rt.Transfer(ledger.FromChainFor(w), ledger.Account{Chain: callback, Owner: w}, s.PerWinner); err != nil {
			return fmt.Errorf("pay %s: %w", w.Short(), err)
		}
		if err := rt.Send(callback, protocol.DistributePrize{Winner: w, Amount: s.PerWinner}, ledger.Tracked); err != nil {
			return err
		}
		paid[i] = true
	}
	house := ledger.Account{Chain: rt.ChainID(), Owner: l.cfg.FeeRecipient}
	if err := rt.Transfer(ledger.FromChain(), house, s.PlatformFee); err != nil {
		return fmt.Errorf("collect platform fee: %w", err)
	}

	for i, w := range msg.Winners {
		e := l.entry(w)
		e.GamesWon++
		if paid[i] {
			e.TotalWinnings = e.TotalWinnings.SaturatingAdd(s.PerWinner)
		}
	}
	for _, p := range msg.Eliminated {
		l.entry(p).TimesEliminated++
	}
	l.platformRevenue = l.platformRevenue.SaturatingAdd(s.PlatformFee)
	l.gamesCompleted++

	l.logger.Info().
		Str("game", origin.Short()).
		Int("winners", len(msg.Winners)).
		Int("eliminated", len(msg.Eliminated)).
		Str("pool", s.Pool.String()).
		Str("per_winner", s.PerWinner.String()).
		Str("platform_fee", s.PlatformFee.String()).
		Str("remainder", s.Remainder.String()).
		Msg("Game settled")
	return nil
}

// HandleBounce deals with lobby messages the destination refused. A game that
// never initialized refunds its players. A refused prize notice is taken off
// the winner's total; when the callback chain is missing the prize credit
// itself comes back to the winner's account here.
func (l *Lobby) HandleBounce(rt ledger.Runtime, msg protocol.Message) error {
	origin, _ := rt.MessageOrigin()
	switch msg := msg.(type) {
	case protocol.InitializeGame:
		for _, p := range msg.Players {
			callback, ok := msg.Callbacks.Lookup(p)
			if !ok {
				continue
			}
			if err := rt.Transfer(ledger.FromChainFor(p), ledger.Account{Chain: callback, Owner: p}, msg.EntryFee); err != nil {
				return fmt.Errorf("refund %s: %w", p.Short(), err)
			}
		}
		l.logger.Error().Str("game", origin.Short()).Int("players", len(msg.Players)).Msg("Game refused initialization, players refunded")
		return nil
	case protocol.DistributePrize:
		if e, ok := l.leaderboard[msg.Winner]; ok {
			e.TotalWinnings = e.TotalWinnings.SaturatingSub(msg.Amount)
		}
		l.logger.Warn().Str("winner", msg.Winner.Short()).Str("chain", origin.Short()).Msg("Prize notice bounced")
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrUnexpectedBounce, msg.Kind())
	}
}

func (l *Lobby) isQueued(p identity.PlayerID) bool {
	return slices.ContainsFunc(l.queue, func(e WaitingEntry) bool { return e.Player == p })
}

func (l *Lobby) entry(p identity.PlayerID) *LeaderboardEntry {
	e, ok := l.leaderboard[p]
	if !ok {
		e = &LeaderboardEntry{}
		l.leaderboard[p] = e
	}
	return e
}
