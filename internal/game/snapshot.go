package game

import (
	"slices"
	"time"

	"github.com/lox/majorules/internal/chainid"
	"github.com/lox/majorules/internal/escrow"
	"github.com/lox/majorules/internal/identity"
)

// Snapshot is the public projection of a match. Pending votes are not
// revealed, only who has answered.
type Snapshot struct {
	Status         Status              `json:"status"`
	Players        []identity.PlayerID `json:"players"`
	Eliminated     []identity.PlayerID `json:"eliminated"`
	Round          int                 `json:"round"`
	RevoteCount    int                 `json:"revote_count"`
	Questioner     identity.PlayerID   `json:"questioner,omitempty"`
	Question       *Question           `json:"question,omitempty"`
	Answered       []identity.PlayerID `json:"answered"`
	RoundStart     time.Time           `json:"round_start"`
	AnswerDeadline *time.Time          `json:"answer_deadline,omitempty"`
	EntryFee       escrow.Amount       `json:"entry_fee"`
	Lobby          chainid.ID          `json:"lobby,omitempty"`
	FeeRecipient   identity.PlayerID   `json:"fee_recipient,omitempty"`
	History        []RoundRecord       `json:"history"`
}

// Snapshot copies the match state.
func (m *Match) Snapshot() Snapshot {
	s := Snapshot{
		Status:       m.status,
		Players:      m.Players(),
		Eliminated:   m.Eliminated(),
		Round:        m.round,
		RevoteCount:  m.revoteCount,
		Questioner:   m.questioner,
		Answered:     make([]identity.PlayerID, 0, len(m.answers)),
		RoundStart:   m.roundStart,
		EntryFee:     m.entryFee,
		Lobby:        m.lobby,
		FeeRecipient: m.feeRecipient,
		History:      m.History(),
	}
	if m.question != nil {
		q := *m.question
		s.Question = &q
		d := m.deadline
		s.AnswerDeadline = &d
	}
	for p := range m.answers {
		s.Answered = append(s.Answered, p)
	}
	slices.Sort(s.Answered)
	return s
}
