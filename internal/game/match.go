// Package game is the state machine run by a game authority: one match of
// question, vote and resolve rounds between the players the lobby spawned it
// for. A match acquires its state only from an InitializeGame message and
// reports back to the lobby with GameResults when it finishes.
package game

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
	"github.com/lox/majorules/internal/ledger"
	"github.com/lox/majorules/internal/protocol"
	"github.com/lox/majorules/internal/randutil"
	"github.com/rs/zerolog"
)

var (
	// Validation
	ErrInvalidPlayers = errors.New("game: invalid player list")
	ErrEmptyQuestion  = errors.New("game: question text is empty")
	ErrInvalidOptions = errors.New("game: exactly three non-empty options required")
	ErrInvalidAnswer  = errors.New("game: answer must be 1, 2 or 3")

	// Authorization
	ErrNotParticipant = errors.New("game: caller is not an active participant")
	ErrNotQuestioner  = errors.New("game: only the questioner may ask before the question timeout")

	// Temporal
	ErrQuestionAlreadyPosted = errors.New("game: question already posted this round")
	ErrDeadlinePassed        = errors.New("game: answer deadline passed")
	ErrDeadlineNotReached    = errors.New("game: answer deadline not reached")

	// Protocol
	ErrNotInitialized     = errors.New("game: match not initialized")
	ErrAlreadyInitialized = errors.New("game: match already initialized")
	ErrGameNotActive      = errors.New("game: match is not active")
	ErrNoQuestionPosted   = errors.New("game: no question posted")
)

// Status of a match.
type Status int

const (
	Pending Status = iota
	Active
	Finished
)

func (s Status) String() string {
	return [...]string{"pending", "active", "finished"}[s]
}

// MarshalText renders the status name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Params are the fixed rules of a match.
type Params struct {
	MaxRounds       int
	MaxRevotes      int
	QuestionTimeout time.Duration
	AnswerTimeout   time.Duration
	// Seed replaces the block timestamp in the questioner seed, making runs
	// reproducible per chain. Leave nil outside tests and simulations.
	Seed *int64
}

// DefaultParams returns the standard rules.
func DefaultParams() Params {
	return Params{
		MaxRounds:       3,
		MaxRevotes:      1,
		QuestionTimeout: 60 * time.Second,
		AnswerTimeout:   30 * time.Second,
	}
}

// Question is the posted question of the current round.
type Question struct {
	Text    string            `json:"text"`
	Options [3]string         `json:"options"`
	AskedBy identity.PlayerID `json:"asked_by"`
}

// Match is the state of one game authority.
type Match struct {
	params Params
	logger zerolog.Logger
	rng    *randutil.Stream

	status       Status
	players      []identity.PlayerID
	eliminated   map[identity.PlayerID]struct{}
	round        int
	revoteCount  int
	questioner   identity.PlayerID
	question     *Question
	answers      map[identity.PlayerID]uint8
	roundStart   time.Time
	deadline     time.Time
	entryFee     escrow.Amount
	callbacks    protocol.Callbacks
	lobby        chainid.ID
	feeRecipient identity.PlayerID
	history      []RoundRecord
}

// NewMatch returns an uninitialized match.
func NewMatch(params Params, logger zerolog.Logger) *Match {
	return &Match{
		params:     params,
		logger:     logger.With().Str("component", "game").Logger(),
		eliminated: make(map[identity.PlayerID]struct{}),
		answers:    make(map[identity.PlayerID]uint8),
	}
}

// Initialize sets up the match from the lobby's InitializeGame message and
// picks the first questioner.
func (m *Match) Initialize(rt ledger.Runtime, msg protocol.InitializeGame) error {
	if m.status != Pending {
		return ErrAlreadyInitialized
	}
	if len(msg.Players) == 0 {
		return ErrInvalidPlayers
	}
	seen := make(map[identity.PlayerID]struct{}, len(msg.Players))
	for _, p := range msg.Players {
		if _, dup := seen[p]; dup {
			return fmt.Errorf("%w: %s listed twice", ErrInvalidPlayers, p.Short())
		}
		seen[p] = struct{}{}
	}

	now := rt.Now()
	// A fixed seed is still salted with the chain so sibling games diverge.
	base := uint64(now.UnixMicro())
	if m.params.Seed != nil {
		base = uint64(*m.params.Seed)
	}
	seed := randutil.SeedFrom(base, []byte(rt.ChainID()))

	m.rng = randutil.New(seed)
	m.players = slices.Clone(msg.Players)
	clear(m.eliminated)
	m.round = 1
	m.revoteCount = 0
	m.entryFee = msg.EntryFee
	m.callbacks = slices.Clone(msg.Callbacks)
	m.lobby = msg.Lobby
	m.feeRecipient = msg.FeeRecipient
	m.questioner = m.players[m.rng.Pick(len(m.players))]
	m.roundStart = now
	m.status = Active

	m.logger.Info().
		Str("chain", rt.ChainID().Short()).
		Int("players", len(m.players)).
		Str("questioner", m.questioner.Short()).
		Str("entry_fee", m.entryFee.String()).
		Msg("Match initialized")
	return nil
}

// AskQuestion posts the round's question. Until the question timeout only the
// questioner may ask; afterwards any survivor may. The asker's answer is
// recorded as their vote.
func (m *Match) AskQuestion(rt ledger.Runtime, op protocol.AskQuestion) error {
	if err := m.requireActive(); err != nil {
		return err
	}
	if m.question != nil {
		return ErrQuestionAlreadyPosted
	}
	caller, err := m.participant(rt)
	if err != nil {
		return err
	}
	now := rt.Now()
	if now.Before(m.roundStart.Add(m.params.QuestionTimeout)) && caller != m.questioner {
		return ErrNotQuestioner
	}
	if strings.TrimSpace(op.Question) == "" {
		return ErrEmptyQuestion
	}
	for _, o := range op.Options {
		if strings.TrimSpace(o) == "" {
			return ErrInvalidOptions
		}
	}
	if !validAnswer(op.Answer) {
		return ErrInvalidAnswer
	}

	m.question = &Question{Text: op.Question, Options: op.Options, AskedBy: caller}
	m.answers[caller] = op.Answer
	m.deadline = now.Add(m.params.AnswerTimeout)

	m.logger.Debug().
		Int("round", m.round).
		Str("asked_by", caller.Short()).
		Time("deadline", m.deadline).
		Msg("Question posted")
	return nil
}

// SubmitAnswer records the caller's vote, replacing any earlier one.
func (m *Match) SubmitAnswer(rt ledger.Runtime, op protocol.SubmitAnswer) error {
	if err := m.requireActive(); err != nil {
		return err
	}
	if m.question == nil {
		return ErrNoQuestionPosted
	}
	if !rt.Now().Before(m.deadline) {
		return ErrDeadlinePassed
	}
	caller, err := m.participant(rt)
	if err != nil {
		return err
	}
	if !validAnswer(op.Answer) {
		return ErrInvalidAnswer
	}
	m.answers[caller] = op.Answer
	return nil
}

// ProcessRound resolves the round once the answer deadline has passed. Anyone
// may call it.
func (m *Match) ProcessRound(rt ledger.Runtime) error {
	if err := m.requireActive(); err != nil {
		return err
	}
	if m.question == nil {
		return ErrNoQuestionPosted
	}
	now := rt.Now()
	if now.Before(m.deadline) {
		return ErrDeadlineNotReached
	}

	survivors := m.Survivors()
	t := tally(survivors, m.answers)
	res := resolve(t, survivors, m.revoteCount, m.params.MaxRevotes)
	record := RoundRecord{
		Round:        m.round,
		Revote:       m.revoteCount,
		Question:     m.question.Text,
		Counts:       t.Counts,
		NonAnswerers: slices.Clone(t.NonAnswerers),
		Outcome:      res.Outcome,
		Eliminated:   res.Eliminate,
		ResolvedAt:   now,
	}

	if res.Outcome == OutcomeRevote {
		m.revoteCount++
		m.resetRound(now, survivors)
		m.history = append(m.history, record)
		m.logger.Info().
			Str("chain", rt.ChainID().Short()).
			Int("round", m.round).
			Int("revote", m.revoteCount).
			Str("questioner", m.questioner.Short()).
			Msg("Three-way tie, revoting")
		return nil
	}

	remaining := slices.DeleteFunc(slices.Clone(survivors), func(p identity.PlayerID) bool {
		return slices.Contains(res.Eliminate, p)
	})
	finish := len(remaining) < 3 || m.round >= m.params.MaxRounds
	if finish {
		results := protocol.GameResults{
			Winners:      remaining,
			Eliminated:   m.eliminatedAfter(res.Eliminate),
			EntryFee:     m.entryFee,
			TotalPlayers: uint32(len(m.players)),
			Callbacks:    m.callbacks,
		}
		if err := rt.Send(m.lobby, results, ledger.Tracked); err != nil {
			return err
		}
	}

	for _, p := range res.Eliminate {
		m.eliminated[p] = struct{}{}
	}
	m.history = append(m.history, record)

	if finish {
		m.status = Finished
		m.question = nil
		clear(m.answers)
		m.logger.Info().
			Str("chain", rt.ChainID().Short()).
			Int("round", m.round).
			Int("winners", len(remaining)).
			Str("outcome", res.Outcome.String()).
			Msg("Match finished")
		return nil
	}

	m.round++
	m.revoteCount = 0
	m.resetRound(now, remaining)
	m.logger.Debug().
		Str("chain", rt.ChainID().Short()).
		Int("round", m.round).
		Int("eliminated", len(res.Eliminate)).
		Str("outcome", res.Outcome.String()).
		Str("questioner", m.questioner.Short()).
		Msg("Round resolved")
	return nil
}

// HandleBouncedResults logs a GameResults message the lobby refused. The
// match stays finished.
func (m *Match) HandleBouncedResults(rt ledger.Runtime, msg protocol.GameResults) {
	m.logger.Error().
		Str("chain", rt.ChainID().Short()).
		Str("lobby", m.lobby.Short()).
		Int("winners", len(msg.Winners)).
		Msg("Lobby rejected game results")
}

func (m *Match) resetRound(now time.Time, survivors []identity.PlayerID) {
	m.question = nil
	clear(m.answers)
	m.deadline = time.Time{}
	m.roundStart = now
	m.questioner = survivors[m.rng.Pick(len(survivors))]
}

func (m *Match) requireActive() error {
	switch m.status {
	case Pending:
		return ErrNotInitialized
	case Active:
		return nil
	default:
		return ErrGameNotActive
	}
}

func (m *Match) participant(rt ledger.Runtime) (identity.PlayerID, error) {
	caller, ok := rt.Caller()
	if !ok || !slices.Contains(m.players, caller) {
		return "", ErrNotParticipant
	}
	if _, out := m.eliminated[caller]; out {
		return "", ErrNotParticipant
	}
	return caller, nil
}

func (m *Match) eliminatedAfter(extra []identity.PlayerID) []identity.PlayerID {
	out := make([]identity.PlayerID, 0, len(m.players))
	for _, p := range m.players {
		if _, ok := m.eliminated[p]; ok || slices.Contains(extra, p) {
			out = append(out, p)
		}
	}
	return out
}

func validAnswer(a uint8) bool { return a >= 1 && a <= 3 }

// Status reports the match status.
func (m *Match) Status() Status { return m.status }

// Round is the current round number, starting at 1.
func (m *Match) Round() int { return m.round }

// RevoteCount is the number of revotes taken in the current round.
func (m *Match) RevoteCount() int { return m.revoteCount }

// Questioner is the player designated to ask this round.
func (m *Match) Questioner() identity.PlayerID { return m.questioner }

// Lobby is the chain results are reported to.
func (m *Match) Lobby() chainid.ID { return m.lobby }

// AnswerDeadline is zero until a question is posted.
func (m *Match) AnswerDeadline() time.Time { return m.deadline }

// Answer returns the player's pending vote.
func (m *Match) Answer(p identity.PlayerID) (uint8, bool) {
	a, ok := m.answers[p]
	return a, ok
}

// Players returns every player in match order.
func (m *Match) Players() []identity.PlayerID { return slices.Clone(m.players) }

// Survivors returns the players not yet eliminated, in match order.
func (m *Match) Survivors() []identity.PlayerID {
	out := make([]identity.PlayerID, 0, len(m.players))
	for _, p := range m.players {
		if _, ok := m.eliminated[p]; !ok {
			out = append(out, p)
		}
	}
	return out
}

// Eliminated returns the eliminated players in match order.
func (m *Match) Eliminated() []identity.PlayerID { return m.eliminatedAfter(nil) }

// History returns the resolved rounds.
func (m *Match) History() []RoundRecord { return slices.Clone(m.history) }
