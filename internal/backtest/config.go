package backtest

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yourusername/racefuse/internal/config"
)

// Mode selects how a selection is settled
type Mode string

const (
	ModeWin   Mode = "win"
	ModePlace Mode = "place"
)

// Config holds the parameters of a staking simulation
type Config struct {
	Stake         decimal.Decimal
	Threshold     float64
	Mode          Mode
	PlaceDivisor  decimal.Decimal
	PlacingCutoff int
}

// DefaultConfig is a $10 level-stake win simulation at the default threshold
func DefaultConfig() Config {
	return Config{
		Stake:         decimal.NewFromInt(10),
		Threshold:     25,
		Mode:          ModeWin,
		PlaceDivisor:  decimal.NewFromInt(4),
		PlacingCutoff: 3,
	}
}

// FromConfig converts app config to simulation config
func FromConfig(staking *config.StakingConfig, scoring *config.ScoringConfig) (Config, error) {
	if staking == nil || scoring == nil {
		return Config{}, fmt.Errorf("staking and scoring config are required")
	}

	cfg := Config{
		Stake:         decimal.NewFromFloat(staking.Stake),
		Threshold:     scoring.ValueThreshold,
		Mode:          Mode(staking.Mode),
		PlaceDivisor:  decimal.NewFromFloat(staking.PlaceDivisor),
		PlacingCutoff: staking.PlacingCutoff,
	}

	return cfg, cfg.Validate()
}

// Validate validates simulation parameters
func (c Config) Validate() error {
	if !c.Stake.IsPositive() {
		return fmt.Errorf("stake must be positive")
	}
	if c.Threshold < 0 {
		return fmt.Errorf("threshold cannot be negative")
	}
	switch c.Mode {
	case ModeWin:
	case ModePlace:
		if !c.PlaceDivisor.IsPositive() {
			return fmt.Errorf("place divisor must be positive")
		}
		if c.PlacingCutoff < 1 {
			return fmt.Errorf("placing cutoff must be at least 1")
		}
	default:
		return fmt.Errorf("unknown staking mode %q", c.Mode)
	}
	return nil
}
