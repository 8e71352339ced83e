package statistics

import (
	"fmt"
	"math"
	"sort"
)

// GameResult represents the outcome of a single finished match
type GameResult struct {
	Players int // Players seated at the start
	Winners int // Survivors paid at the end
	Rounds  int // Resolved rounds, revotes included
	Revotes int // Rounds that ended in a three-way tie
}

// Statistics accumulates match results across a simulation. The sample
// statistics (Mean, StdDev, Median...) are over winners per game.
type Statistics struct {
	Games  int
	Sum    float64
	SumSq  float64   // Sum of squares for variance calculation
	Values []float64 // All values for median/percentile calculation

	Seats           int // Total players seated
	WinningSeats    int // Total winners
	WinnerlessGames int // Games where nobody survived
	Rounds          int
	Revotes         int
	MaxRounds       int // Longest game observed
}

// Add incorporates a finished game
func (s *Statistics) Add(r GameResult) {
	w := float64(r.Winners)
	s.Games++
	s.Sum += w
	s.SumSq += w * w
	s.Values = append(s.Values, w)

	s.Seats += r.Players
	s.WinningSeats += r.Winners
	if r.Winners == 0 {
		s.WinnerlessGames++
	}
	s.Rounds += r.Rounds
	s.Revotes += r.Revotes
	s.MaxRounds = max(s.MaxRounds, r.Rounds)
}

// Mean returns the average number of winners per game
func (s *Statistics) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.Sum / float64(s.Games)
}

// Variance returns the sample variance
func (s *Statistics) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumSq - float64(s.Games)*mean*mean) / float64(s.Games-1)
}

// StdDev returns the sample standard deviation
func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Games))
}

// ConfidenceInterval95 returns the 95% confidence interval for the mean
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Median returns the median winners per game
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the value at the given percentile (0.0 to 1.0)
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// WinRate is the fraction of seats that ended in a prize
func (s *Statistics) WinRate() float64 {
	if s.Seats == 0 {
		return 0
	}
	return float64(s.WinningSeats) / float64(s.Seats)
}

// Validate checks the counters agree with each other
func (s *Statistics) Validate() error {
	if s.Games <= 0 {
		return fmt.Errorf("invalid games count: %d", s.Games)
	}
	if len(s.Values) != s.Games {
		return fmt.Errorf("values array length (%d) does not match games count (%d)", len(s.Values), s.Games)
	}
	if s.WinningSeats > s.Seats {
		return fmt.Errorf("winning seats (%d) exceed seats (%d)", s.WinningSeats, s.Seats)
	}
	if math.Abs(s.Sum-float64(s.WinningSeats)) > 1e-9 {
		return fmt.Errorf("winner sum mismatch: sum=%.0f, winning seats=%d", s.Sum, s.WinningSeats)
	}
	if s.Revotes > s.Rounds {
		return fmt.Errorf("revotes (%d) exceed rounds (%d)", s.Revotes, s.Rounds)
	}
	if s.WinnerlessGames > s.Games {
		return fmt.Errorf("winnerless games (%d) exceed games (%d)", s.WinnerlessGames, s.Games)
	}
	return nil
}

// Summary is the JSON-friendly view of Statistics
type Summary struct {
	Games           int        `json:"games"`
	WinnersMean     float64    `json:"winners_mean"`
	WinnersStdDev   float64    `json:"winners_stddev"`
	WinnersMedian   float64    `json:"winners_median"`
	WinnersCI95     [2]float64 `json:"winners_ci95"`
	WinRate         float64    `json:"win_rate"`
	WinnerlessGames int        `json:"winnerless_games"`
	RoundsPerGame   float64    `json:"rounds_per_game"`
	Revotes         int        `json:"revotes"`
	MaxRounds       int        `json:"max_rounds"`
}

// Summary reduces the accumulated results
func (s *Statistics) Summary() Summary {
	lo, hi := s.ConfidenceInterval95()
	out := Summary{
		Games:           s.Games,
		WinnersMean:     s.Mean(),
		WinnersStdDev:   s.StdDev(),
		WinnersMedian:   s.Median(),
		WinnersCI95:     [2]float64{lo, hi},
		WinRate:         s.WinRate(),
		WinnerlessGames: s.WinnerlessGames,
		Revotes:         s.Revotes,
		MaxRounds:       s.MaxRounds,
	}
	if s.Games > 0 {
		out.RoundsPerGame = float64(s.Rounds) / float64(s.Games)
	}
	return out
}
