// Package protocol defines the vocabulary shared by every authority: the
// operations a signer submits to a chain and the messages chains send each
// other. Payloads cross authority boundaries only in encoded form, so the
// receiver always works on a copy.
package protocol

//go:generate msgp -o codec.go -marshal=false -tests=false

//msgp:tuple Join Leave AskQuestion SubmitAnswer ProcessRound EnterLobby
//msgp:tuple CallbackEntry RequestJoinLobby InitializeGame GameResults DistributePrize Credit
//msgp:shim chainid.ID as:string using:string/chainid.ID
//msgp:shim identity.PlayerID as:string using:string/identity.PlayerID
//msgp:ignore Kind

import (
	"sort"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
)

// Kind tags every operation and message on the wire.
type Kind string

const (
	// Operations
	KindJoin         Kind = "join"
	KindLeave        Kind = "leave"
	KindAskQuestion  Kind = "ask_question"
	KindSubmitAnswer Kind = "submit_answer"
	KindProcessRound Kind = "process_round"
	KindEnterLobby   Kind = "enter_lobby"

	// Messages
	KindRequestJoinLobby Kind = "request_join_lobby"
	KindInitializeGame   Kind = "initialize_game"
	KindGameResults      Kind = "game_results"
	KindDistributePrize  Kind = "distribute_prize"
	KindCredit           Kind = "credit"
)

// Operation is work submitted to a chain by an authenticated signer.
type Operation interface {
	Kind() Kind
	payload
	isOperation()
}

// Message is work one chain sends to another.
type Message interface {
	Kind() Kind
	payload
	isMessage()
}

// Join queues the caller in the lobby and escrows the entry fee from the
// caller's account on the lobby chain. Callback is the caller's own authority,
// used for refunds and prizes.
type Join struct {
	Callback chainid.ID `msg:"callback" json:"callback"`
}

// Leave removes the caller from the lobby queue and refunds the entry fee.
type Leave struct{}

// AskQuestion posts the round's question. Answer is the asker's own vote.
type AskQuestion struct {
	Question string    `msg:"question" json:"question"`
	Options  [3]string `msg:"options" json:"options"`
	Answer   uint8     `msg:"answer" json:"answer"`
}

// SubmitAnswer records (or replaces) the caller's vote for the current round.
type SubmitAnswer struct {
	Answer uint8 `msg:"answer" json:"answer"`
}

// ProcessRound resolves the current round once the answer deadline passed.
type ProcessRound struct{}

// EnterLobby asks a player chain to request a lobby seat for its owner. A
// non-zero Stake is moved to the owner's account on the lobby chain first; the
// credit is delivered ahead of the request.
type EnterLobby struct {
	Stake escrow.Amount `msg:"stake" json:"stake"`
}

func (Join) Kind() Kind         { return KindJoin }
func (Leave) Kind() Kind        { return KindLeave }
func (AskQuestion) Kind() Kind  { return KindAskQuestion }
func (SubmitAnswer) Kind() Kind { return KindSubmitAnswer }
func (ProcessRound) Kind() Kind { return KindProcessRound }
func (EnterLobby) Kind() Kind   { return KindEnterLobby }

func (Join) isOperation()         {}
func (Leave) isOperation()        {}
func (AskQuestion) isOperation()  {}
func (SubmitAnswer) isOperation() {}
func (ProcessRound) isOperation() {}
func (EnterLobby) isOperation()   {}

// CallbackEntry maps a player to their own authority.
type CallbackEntry struct {
	Player identity.PlayerID `msg:"player" json:"player"`
	Chain  chainid.ID        `msg:"chain" json:"chain"`
}

// Callbacks is a player to authority map kept sorted by player so its
// encoding is deterministic.
type Callbacks []CallbackEntry

// NewCallbacks builds a sorted Callbacks from a map.
func NewCallbacks(m map[identity.PlayerID]chainid.ID) Callbacks {
	out := make(Callbacks, 0, len(m))
	for p, c := range m {
		out = append(out, CallbackEntry{Player: p, Chain: c})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Player < out[j].Player })
	return out
}

// Lookup returns the authority registered for player.
func (c Callbacks) Lookup(player identity.PlayerID) (chainid.ID, bool) {
	i := sort.Search(len(c), func(i int) bool { return c[i].Player >= player })
	if i < len(c) && c[i].Player == player {
		return c[i].Chain, true
	}
	return "", false
}

// Map copies the entries into a map.
func (c Callbacks) Map() map[identity.PlayerID]chainid.ID {
	out := make(map[identity.PlayerID]chainid.ID, len(c))
	for _, e := range c {
		out[e.Player] = e.Chain
	}
	return out
}

// RequestJoinLobby is sent by a player authority, authenticated as its owner.
type RequestJoinLobby struct {
	Player   identity.PlayerID `msg:"player" json:"player"`
	Callback chainid.ID        `msg:"callback" json:"callback"`
}

// InitializeGame is the only way a game authority acquires its state.
type InitializeGame struct {
	Players      []identity.PlayerID `msg:"players" json:"players"`
	Callbacks    Callbacks           `msg:"callbacks" json:"callbacks"`
	EntryFee     escrow.Amount       `msg:"entry_fee" json:"entry_fee"`
	Lobby        chainid.ID          `msg:"lobby" json:"lobby"`
	FeeRecipient identity.PlayerID   `msg:"fee_recipient" json:"fee_recipient"`
}

// GameResults reports a finished match back to the lobby.
type GameResults struct {
	Winners      []identity.PlayerID `msg:"winners" json:"winners"`
	Eliminated   []identity.PlayerID `msg:"eliminated" json:"eliminated"`
	EntryFee     escrow.Amount       `msg:"entry_fee" json:"entry_fee"`
	TotalPlayers uint32              `msg:"total_players" json:"total_players"`
	Callbacks    Callbacks           `msg:"callbacks" json:"callbacks"`
}

// DistributePrize tells a winner's authority about a prize paid to it.
type DistributePrize struct {
	Winner identity.PlayerID `msg:"winner" json:"winner"`
	Amount escrow.Amount     `msg:"amount" json:"amount"`
}

// Credit moves value into the receiving chain. An empty Target credits the
// chain's own balance. Source is the account on the sending chain that gets
// the value back if the credit bounces.
type Credit struct {
	Target identity.PlayerID `msg:"target" json:"target"`
	Source identity.PlayerID `msg:"source" json:"source"`
	Amount escrow.Amount     `msg:"amount" json:"amount"`
}

func (RequestJoinLobby) Kind() Kind { return KindRequestJoinLobby }
func (InitializeGame) Kind() Kind   { return KindInitializeGame }
func (GameResults) Kind() Kind      { return KindGameResults }
func (DistributePrize) Kind() Kind  { return KindDistributePrize }
func (Credit) Kind() Kind           { return KindCredit }

func (RequestJoinLobby) isMessage() {}
func (InitializeGame) isMessage()   {}
func (GameResults) isMessage()      {}
func (DistributePrize) isMessage()  {}
func (Credit) isMessage()           {}
