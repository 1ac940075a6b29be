package backtest

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/racefuse/internal/models"
)

// Report is the aggregate result of a staking simulation
type Report struct {
	Mode                Mode                  `json:"mode"`
	TotalStaked         decimal.Decimal       `json:"total_staked"`
	TotalReturned       decimal.Decimal       `json:"total_returned"`
	Profit              decimal.Decimal       `json:"profit"`
	// ROI is profit as a percentage of the total staked, 0 when nothing was staked.
	ROI                 float64               `json:"roi"`
	Bets                int                   `json:"bets"`
	Wins                int                   `json:"wins"`
	Placings            int                   `json:"placings"`
	Pending             int                   `json:"pending"`
	Excluded            int                   `json:"excluded"`
	WinRate             float64               `json:"win_rate"`
	MaxDrawdown         decimal.Decimal       `json:"max_drawdown"`
	LongestLosingStreak int                   `json:"longest_losing_streak"`
	Outcomes            []models.StakeOutcome `json:"outcomes"`
	Equity              EquityCurve           `json:"equity"`
}

func newReport(state *simulationState, mode Mode, excluded int) *Report {
	r := &Report{
		Mode:          mode,
		TotalStaked:   state.totalStaked,
		TotalReturned: state.totalReturned,
		Profit:        state.totalReturned.Sub(state.totalStaked),
		Bets:          len(state.outcomes),
		Wins:          state.wins,
		Placings:      state.placings,
		Pending:       state.pending,
		Excluded:      excluded,
		Outcomes:      state.outcomes,
		Equity:        state.equity,
	}
	r.ROI = calculateROI(r.Profit, r.TotalStaked)
	r.WinRate = calculateWinRate(r.Wins, r.Bets)
	r.MaxDrawdown = state.equity.MaxDrawdown()
	r.LongestLosingStreak = calculateLosingStreak(state.outcomes)
	return r
}

func calculateROI(profit, staked decimal.Decimal) float64 {
	if staked.IsZero() {
		return 0
	}
	return profit.Div(staked).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

func calculateWinRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(wins) / float64(total)
}

func calculateLosingStreak(outcomes []models.StakeOutcome) int {
	longest, current := 0, 0
	for _, o := range outcomes {
		if o.Profit.IsNegative() {
			current++
			if current > longest {
				longest = current
			}
			continue
		}
		current = 0
	}
	return longest
}
