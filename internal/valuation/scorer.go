// Package valuation turns a model rating and a price into a comparable
// value score.
package valuation

import (
	"sort"

	"github.com/yourusername/racefuse/internal/models"
)

// DefaultThreshold is the value-play threshold used when none is configured
const DefaultThreshold = 25.0

// Scorer computes value scores. The score is rating points per unit of
// decimal odds, so it rises with rating and falls with price.
type Scorer struct {
	threshold float64
}

// NewScorer creates a scorer with the given value-play threshold
func NewScorer(threshold float64) *Scorer {
	return &Scorer{threshold: threshold}
}

// Threshold returns the configured value-play threshold
func (s *Scorer) Threshold() float64 {
	return s.threshold
}

// Score returns rating / price. The price is the model price, falling back
// to the market win price. Entrants missing a positive rating or price score 0.
func (s *Scorer) Score(e *models.FusedEntrant) float64 {
	if e == nil || e.ModelRating == nil {
		return 0
	}
	price := e.EffectivePrice()
	if price == nil {
		return 0
	}
	return ScoreOf(*e.ModelRating, *price)
}

// ScoreOf scores a raw rating and price pair
func ScoreOf(rating, price float64) float64 {
	if rating <= 0 || price <= 0 {
		return 0
	}
	return rating / price
}

// IsValuePlay reports whether the entrant's score exceeds the threshold.
// Scratched entrants are never value plays.
func (s *Scorer) IsValuePlay(e *models.FusedEntrant) bool {
	if e == nil || e.IsScratched {
		return false
	}
	return s.Score(e) > s.threshold
}

// ScoreAll returns copies of entrants with ValueScore populated
func (s *Scorer) ScoreAll(entrants []*models.FusedEntrant) []*models.FusedEntrant {
	out := models.CloneEntrants(entrants)
	for _, e := range out {
		e.ValueScore = s.Score(e)
	}
	return out
}

// RankedEntrant is one row of a race's ranked view
type RankedEntrant struct {
	Rank      int                  `json:"rank"`
	Entrant   *models.FusedEntrant `json:"entrant"`
	ValuePlay bool                 `json:"value_play"`
}

// Rank scores entrants and orders them by descending score. Ties keep tab
// number order, then name order.
func (s *Scorer) Rank(entrants []*models.FusedEntrant) []RankedEntrant {
	scored := s.ScoreAll(entrants)
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.ValueScore != b.ValueScore {
			return a.ValueScore > b.ValueScore
		}
		if a.GetTabNumber() != b.GetTabNumber() {
			return a.GetTabNumber() < b.GetTabNumber()
		}
		return a.HorseName < b.HorseName
	})

	ranked := make([]RankedEntrant, len(scored))
	for i, e := range scored {
		ranked[i] = RankedEntrant{
			Rank:      i + 1,
			Entrant:   e,
			ValuePlay: s.IsValuePlay(e),
		}
	}
	return ranked
}

// ValuePlays filters entrants down to value plays
func (s *Scorer) ValuePlays(entrants []*models.FusedEntrant) []*models.FusedEntrant {
	var out []*models.FusedEntrant
	for _, e := range entrants {
		if s.IsValuePlay(e) {
			out = append(out, e)
		}
	}
	return out
}
