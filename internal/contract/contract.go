// Package contract is the application installed on every chain. A chain runs
// exactly one variant (lobby, game or player) and App dispatches the shared
// operation and message vocabulary to that variant's state machine.
package contract

import (
	"errors"
	"fmt"

	"github.com/lox/majorules/internal/game"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/lobby"
	"github.com/lox/majorules/internal/player"
	"github.com/lox/majorules/internal/protocol"
	"github.com/rs/zerolog"
)

var (
	// ErrUnsupported is returned for operations and messages the chain's
	// variant does not handle.
	ErrUnsupported = errors.New("contract: not supported by this chain")
	// ErrForeignInitializer rejects an InitializeGame not sent by the lobby it
	// names.
	ErrForeignInitializer = errors.New("contract: game initialized by a chain other than its lobby")
)

// Variant names which state machine a chain runs.
type Variant int

const (
	VariantLobby Variant = iota
	VariantGame
	VariantPlayer
)

func (v Variant) String() string {
	return [...]string{"lobby", "game", "player"}[v]
}

// MarshalText renders the variant name.
func (v Variant) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

// App is a tagged union over the three authority kinds. Exactly one of the
// state pointers is set, matching variant.
type App struct {
	variant Variant
	lobby   *lobby.Lobby
	game    *game.Match
	player  *player.Player
}

var _ ledger.Application = (*App)(nil)

// NewLobby wraps lobby state.
func NewLobby(l *lobby.Lobby) *App { return &App{variant: VariantLobby, lobby: l} }

// NewGame wraps a match. The match stays pending until InitializeGame arrives.
func NewGame(m *game.Match) *App { return &App{variant: VariantGame, game: m} }

// NewPlayer wraps a player authority.
func NewPlayer(p *player.Player) *App { return &App{variant: VariantPlayer, player: p} }

// GameFactory builds the application for chains the lobby opens.
func GameFactory(params game.Params, logger zerolog.Logger) func() ledger.Application {
	return func() ledger.Application {
		return NewGame(game.NewMatch(params, logger))
	}
}

// Variant reports which authority the application runs.
func (a *App) Variant() Variant { return a.variant }

// Lobby returns the lobby state, or nil on other variants.
func (a *App) Lobby() *lobby.Lobby { return a.lobby }

// Game returns the match, or nil on other variants.
func (a *App) Game() *game.Match { return a.game }

// Player returns the player state, or nil on other variants.
func (a *App) Player() *player.Player { return a.player }

// ExecuteOperation implements ledger.Application.
func (a *App) ExecuteOperation(rt ledger.Runtime, op protocol.Operation) error {
	switch a.variant {
	case VariantLobby:
		switch op := op.(type) {
		case protocol.Join:
			return a.lobby.Join(rt, op)
		case protocol.Leave:
			return a.lobby.Leave(rt)
		}
	case VariantGame:
		switch op := op.(type) {
		case protocol.AskQuestion:
			return a.game.AskQuestion(rt, op)
		case protocol.SubmitAnswer:
			return a.game.SubmitAnswer(rt, op)
		case protocol.ProcessRound:
			return a.game.ProcessRound(rt)
		}
	case VariantPlayer:
		if op, ok := op.(protocol.EnterLobby); ok {
			return a.player.EnterLobby(rt, op)
		}
	}
	return fmt.Errorf("%w: operation %s on %s chain", ErrUnsupported, op.Kind(), a.variant)
}

// ExecuteMessage implements ledger.Application. Bounced messages go to the
// variant's bounce handler.
func (a *App) ExecuteMessage(rt ledger.Runtime, msg protocol.Message) error {
	if rt.IsBounced() {
		return a.bounced(rt, msg)
	}
	switch a.variant {
	case VariantLobby:
		switch msg := msg.(type) {
		case protocol.RequestJoinLobby:
			return a.lobby.RequestJoin(rt, msg)
		case protocol.GameResults:
			return a.lobby.GameResults(rt, msg)
		}
	case VariantGame:
		if msg, ok := msg.(protocol.InitializeGame); ok {
			if origin, _ := rt.MessageOrigin(); origin != msg.Lobby {
				return fmt.Errorf("%w: %s", ErrForeignInitializer, origin)
			}
			return a.game.Initialize(rt, msg)
		}
	case VariantPlayer:
		if msg, ok := msg.(protocol.DistributePrize); ok {
			return a.player.DistributePrize(rt, msg)
		}
	}
	return fmt.Errorf("%w: message %s on %s chain", ErrUnsupported, msg.Kind(), a.variant)
}

func (a *App) bounced(rt ledger.Runtime, msg protocol.Message) error {
	switch a.variant {
	case VariantLobby:
		return a.lobby.HandleBounce(rt, msg)
	case VariantGame:
		if msg, ok := msg.(protocol.GameResults); ok {
			a.game.HandleBouncedResults(rt, msg)
			return nil
		}
	case VariantPlayer:
		return a.player.HandleBounce(rt, msg)
	}
	return fmt.Errorf("%w: bounced %s on %s chain", ErrUnsupported, msg.Kind(), a.variant)
}
