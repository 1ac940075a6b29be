package backtest

import (
	"github.com/shopspring/decimal"

	"github.com/yourusername/racefuse/internal/models"
)

// simulationState accumulates a run's totals. It lives for one run only.
type simulationState struct {
	totalStaked   decimal.Decimal
	totalReturned decimal.Decimal
	wins          int
	placings      int
	pending       int
	outcomes      []models.StakeOutcome
	equity        EquityCurve
}

func newSimulationState() *simulationState {
	return &simulationState{
		totalStaked:   decimal.Zero,
		totalReturned: decimal.Zero,
		outcomes:      []models.StakeOutcome{},
		equity:        EquityCurve{},
	}
}

// record adds one settled or pending wager
func (s *simulationState) record(e *models.FusedEntrant, outcome models.StakeOutcome) {
	s.totalStaked = s.totalStaked.Add(outcome.Stake)
	s.totalReturned = s.totalReturned.Add(outcome.Returned)
	switch outcome.Status {
	case models.BetStatusWon:
		s.wins++
	case models.BetStatusPlaced:
		s.placings++
	case models.BetStatusPending:
		s.pending++
	}
	s.outcomes = append(s.outcomes, outcome)
	s.equity.append(e.RaceDate, s.totalReturned.Sub(s.totalStaked))
}
