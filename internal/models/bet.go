package models

import "github.com/shopspring/decimal"

// BetStatus represents the settlement state of a simulated bet
type BetStatus string

const (
	BetStatusPending BetStatus = "pending"
	BetStatusWon     BetStatus = "won"
	BetStatusPlaced  BetStatus = "placed"
	BetStatusLost    BetStatus = "lost"
)

// StakeOutcome is the settlement of one simulated wager. It only lives for
// the duration of a simulation run.
type StakeOutcome struct {
	EntrantID string          `json:"entrant_id"`
	HorseName string          `json:"horse_name"`
	Odds      float64         `json:"odds"`
	Stake     decimal.Decimal `json:"stake"`
	Returned  decimal.Decimal `json:"returned"`
	Profit    decimal.Decimal `json:"profit"`
	Status    BetStatus       `json:"status"`
}

// IsSettled checks if the outcome is known
func (o *StakeOutcome) IsSettled() bool {
	return o.Status != BetStatusPending
}

// GetROI returns the return on investment percentage
func (o *StakeOutcome) GetROI() float64 {
	if o.Stake.IsZero() {
		return 0
	}
	return o.Profit.Div(o.Stake).Mul(decimal.NewFromInt(100)).InexactFloat64()
}
