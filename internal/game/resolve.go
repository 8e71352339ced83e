package game

import (
	"slices"
	"time"

	"github.com/lox/majorules/internal/identity"
)

// Outcome is how a round was resolved.
type Outcome int

const (
	// OutcomeRevote replays the round after a three-way tie.
	OutcomeRevote Outcome = iota
	// OutcomeDeadlock eliminates everyone after a tie that survived its revotes.
	OutcomeDeadlock
	// OutcomeUnanimous eliminates only the players who did not answer.
	OutcomeUnanimous
	// OutcomeMinority eliminates the least popular options and non-answerers.
	OutcomeMinority
)

func (o Outcome) String() string {
	return [...]string{"revote", "deadlock", "unanimous", "minority"}[o]
}

// MarshalText renders the outcome name.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// RoundRecord is kept for every resolved round, revotes included.
type RoundRecord struct {
	Round        int                 `json:"round"`
	Revote       int                 `json:"revote"`
	Question     string              `json:"question"`
	Counts       [3]int              `json:"counts"`
	NonAnswerers []identity.PlayerID `json:"non_answerers"`
	Outcome      Outcome             `json:"outcome"`
	Eliminated   []identity.PlayerID `json:"eliminated"`
	ResolvedAt   time.Time           `json:"resolved_at"`
}

type votes struct {
	Counts       [3]int
	Voters       [3][]identity.PlayerID
	NonAnswerers []identity.PlayerID
}

func (v votes) total() int { return v.Counts[0] + v.Counts[1] + v.Counts[2] }

func tally(survivors []identity.PlayerID, answers map[identity.PlayerID]uint8) votes {
	var v votes
	for _, p := range survivors {
		a, ok := answers[p]
		if !ok || !validAnswer(a) {
			v.NonAnswerers = append(v.NonAnswerers, p)
			continue
		}
		v.Counts[a-1]++
		v.Voters[a-1] = append(v.Voters[a-1], p)
	}
	return v
}

type resolution struct {
	Outcome   Outcome
	Eliminate []identity.PlayerID
}

// resolve applies, in order: three-way tie, unanimous option, then
// plurality-minority. Eliminate is in survivor order.
func resolve(v votes, survivors []identity.PlayerID, revotes, maxRevotes int) resolution {
	c := v.Counts
	if v.total() > 0 && c[0] == c[1] && c[1] == c[2] {
		if revotes < maxRevotes {
			return resolution{Outcome: OutcomeRevote}
		}
		return resolution{Outcome: OutcomeDeadlock, Eliminate: slices.Clone(survivors)}
	}

	used := 0
	for _, n := range c {
		if n > 0 {
			used++
		}
	}
	if used == 1 {
		return resolution{Outcome: OutcomeUnanimous, Eliminate: slices.Clone(v.NonAnswerers)}
	}

	out := make(map[identity.PlayerID]struct{})
	for _, p := range v.NonAnswerers {
		out[p] = struct{}{}
	}
	if used > 0 {
		lowest := 0
		for _, n := range c {
			if n > 0 && (lowest == 0 || n < lowest) {
				lowest = n
			}
		}
		for i, n := range c {
			if n == lowest {
				for _, p := range v.Voters[i] {
					out[p] = struct{}{}
				}
			}
		}
	}

	eliminate := make([]identity.PlayerID, 0, len(out))
	for _, p := range survivors {
		if _, ok := out[p]; ok {
			eliminate = append(eliminate, p)
		}
	}
	return resolution{Outcome: OutcomeMinority, Eliminate: eliminate}
}
