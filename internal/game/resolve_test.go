package game

import (
	"testing"

	"github.com/lox/majorules/internal/identity"
	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	survivors := []identity.PlayerID{"a", "b", "c", "d", "e", "f"}

	tests := []struct {
		name      string
		answers   map[identity.PlayerID]uint8
		revotes   int
		outcome   Outcome
		eliminate []identity.PlayerID
	}{
		{
			name:    "tie with budget left revotes",
			answers: map[identity.PlayerID]uint8{"a": 1, "b": 2, "c": 3, "d": 1, "e": 2, "f": 3},
			outcome: OutcomeRevote,
		},
		{
			name:      "tie with budget spent eliminates everyone",
			answers:   map[identity.PlayerID]uint8{"a": 1, "b": 2, "c": 3},
			revotes:   1,
			outcome:   OutcomeDeadlock,
			eliminate: survivors,
		},
		{
			name:      "unanimous spares voters",
			answers:   map[identity.PlayerID]uint8{"a": 3, "b": 3, "d": 3},
			outcome:   OutcomeUnanimous,
			eliminate: []identity.PlayerID{"c", "e", "f"},
		},
		{
			name:      "single minority",
			answers:   map[identity.PlayerID]uint8{"a": 1, "b": 1, "c": 1, "d": 2, "e": 2, "f": 3},
			outcome:   OutcomeMinority,
			eliminate: []identity.PlayerID{"f"},
		},
		{
			name:      "tied minorities plus silence",
			answers:   map[identity.PlayerID]uint8{"a": 1, "b": 1, "c": 1, "d": 2, "e": 3},
			outcome:   OutcomeMinority,
			eliminate: []identity.PlayerID{"d", "e", "f"},
		},
		{
			name:      "nobody voted",
			answers:   map[identity.PlayerID]uint8{},
			outcome:   OutcomeMinority,
			eliminate: survivors,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := resolve(tally(survivors, tt.answers), survivors, tt.revotes, 1)
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.ElementsMatch(t, tt.eliminate, res.Eliminate)
		})
	}
}
