package escrow

const (
	// PlatformFeePercent of every pool is credited to the platform.
	PlatformFeePercent = 5
	// PrizePercent of every pool is shared among the winners.
	PrizePercent = 100 - PlatformFeePercent
)

// Settlement is the split of a finished match's pool.
type Settlement struct {
	Pool        Amount `json:"pool"`
	PlatformFee Amount `json:"platform_fee"`
	PrizePool   Amount `json:"prize_pool"`
	PerWinner   Amount `json:"per_winner"`
	Distributed Amount `json:"distributed"`
	// Remainder stays with the lobby: integer rounding plus, when nobody
	// survived, the whole prize pool.
	Remainder Amount `json:"remainder"`
}

// Settle splits entryFee*totalPlayers between the platform and winners.
// Each percentage is taken with a single multiply followed by a single divide
// so every re-execution rounds identically.
func Settle(entryFee Amount, totalPlayers, winners int) Settlement {
	var s Settlement
	if totalPlayers < 0 {
		totalPlayers = 0
	}
	s.Pool = entryFee.SaturatingMulInt(uint64(totalPlayers))
	s.PlatformFee = s.Pool.SaturatingMulInt(PlatformFeePercent).DivInt(100)
	s.PrizePool = s.Pool.SaturatingMulInt(PrizePercent).DivInt(100)
	if winners > 0 {
		s.PerWinner = s.PrizePool.DivInt(uint64(winners))
		s.Distributed = s.PerWinner.SaturatingMulInt(uint64(winners))
	}
	s.Remainder = s.Pool.SaturatingSub(s.PlatformFee).SaturatingSub(s.Distributed)
	return s
}
