// Package backtest replays a level-stake value strategy over historical
// entrants and reports profit and loss.
package backtest

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/models"
)

// Simulator runs staking simulations. It holds no run state.
type Simulator struct {
	config Config
	audit  *logger.AuditLogger
}

// NewSimulator creates a simulator. A nil logger discards output.
func NewSimulator(cfg Config, baseLogger *logrus.Logger) (*Simulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if baseLogger == nil {
		baseLogger = logger.Discard()
	}
	return &Simulator{config: cfg, audit: logger.NewAuditLogger(baseLogger)}, nil
}

// Config returns the simulation configuration
func (s *Simulator) Config() Config {
	return s.config
}

// Simulate backs every selected entrant with the fixed stake. Entrants
// without a finishing position are real historical bets: they consume the
// stake and return nothing.
func (s *Simulator) Simulate(entrants []*models.FusedEntrant) *Report {
	return s.run(s.Select(entrants), 0)
}

// SimulateSettled is Simulate with unresolved entrants filtered out as
// pending. Report.Excluded says how many were left out.
func (s *Simulator) SimulateSettled(entrants []*models.FusedEntrant) *Report {
	selected := s.Select(entrants)
	settled := make([]*models.FusedEntrant, 0, len(selected))
	for _, e := range selected {
		if e.HasResult() {
			settled = append(settled, e)
		}
	}
	return s.run(settled, len(selected)-len(settled))
}

// Select returns entrants whose value score exceeds the threshold. Scratched
// entrants cannot be backed and are never selected.
func (s *Simulator) Select(entrants []*models.FusedEntrant) []*models.FusedEntrant {
	selected := make([]*models.FusedEntrant, 0, len(entrants))
	for _, e := range entrants {
		if e == nil || e.IsScratched {
			continue
		}
		if e.ValueScore > s.config.Threshold {
			selected = append(selected, e)
		}
	}
	return selected
}

// run settles the wagers in race order, so the equity curve and drawdown
// do not depend on how the caller ordered its input.
func (s *Simulator) run(selected []*models.FusedEntrant, excluded int) *Report {
	ordered := make([]*models.FusedEntrant, len(selected))
	copy(ordered, selected)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if !a.RaceDate.Equal(b.RaceDate) {
			return a.RaceDate.Before(b.RaceDate)
		}
		if a.Track != b.Track {
			return a.Track < b.Track
		}
		return a.RaceNumber < b.RaceNumber
	})

	state := newSimulationState()
	for _, e := range ordered {
		state.record(e, s.Settle(e))
	}

	report := newReport(state, s.config.Mode, excluded)
	s.audit.LogSimulationRun(string(s.config.Mode), report.Bets, report.Wins, report.Pending,
		report.TotalStaked.StringFixed(2), report.TotalReturned.StringFixed(2), report.ROI)
	return report
}

// Settle computes the outcome of backing e with the fixed stake. Winners
// return stake × odds. In place mode, other runners inside the placing
// cutoff return stake × odds ÷ place divisor. Odds are the starting price,
// falling back to the model price.
func (s *Simulator) Settle(e *models.FusedEntrant) models.StakeOutcome {
	stake := s.config.Stake
	odds, _ := e.SettlementOdds()
	outcome := models.StakeOutcome{
		EntrantID: e.ID.String(),
		HorseName: e.HorseName,
		Odds:      odds,
		Stake:     stake,
		Returned:  decimal.Zero,
		Status:    models.BetStatusLost,
	}

	switch {
	case !e.HasResult():
		outcome.Status = models.BetStatusPending
	case e.IsWinner():
		outcome.Status = models.BetStatusWon
		outcome.Returned = stake.Mul(decimal.NewFromFloat(odds))
	case s.config.Mode == ModePlace && *e.FinishingPosition <= s.config.PlacingCutoff:
		outcome.Status = models.BetStatusPlaced
		outcome.Returned = stake.Mul(decimal.NewFromFloat(odds)).Div(s.config.PlaceDivisor)
	}

	outcome.Profit = outcome.Returned.Sub(outcome.Stake)
	return outcome
}
