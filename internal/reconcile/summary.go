package reconcile

import "github.com/yourusername/racefuse/internal/models"

// Status is the user-facing state of a reconciled race
type Status string

const (
	StatusOK      Status = "ok"
	StatusNoData  Status = "no_data"
	StatusNoValue Status = "no_value_opportunities"
	StatusFailed  Status = "failed"
)

// ValueClassifier decides whether an entrant is a value play
type ValueClassifier interface {
	IsValuePlay(e *models.FusedEntrant) bool
}

// RaceSummary condenses one race's reconciliation for reporting
type RaceSummary struct {
	Key        models.RaceKey `json:"key"`
	Status     Status         `json:"status"`
	Entrants   int            `json:"entrants"`
	ValuePlays int            `json:"value_plays"`
	Unresolved int            `json:"unresolved"`
	Ambiguous  int            `json:"ambiguous"`
	Rejected   int            `json:"rejected"`
	Error      string         `json:"error,omitempty"`
}

// Summarize reports a race as no data when nothing reconciled, and as no
// value opportunities when entrants exist but none is a value play.
func Summarize(res *Result, classifier ValueClassifier) RaceSummary {
	s := RaceSummary{
		Key:        res.Key,
		Entrants:   len(res.Entrants),
		Unresolved: len(res.Unresolved),
		Ambiguous:  res.AmbiguousCount(),
		Rejected:   len(res.Rejected),
	}
	for _, e := range res.Entrants {
		if classifier != nil && classifier.IsValuePlay(e) {
			s.ValuePlays++
		}
	}
	switch {
	case s.Entrants == 0:
		s.Status = StatusNoData
	case s.ValuePlays == 0:
		s.Status = StatusNoValue
	default:
		s.Status = StatusOK
	}
	return s
}

// Failed builds the summary of a race whose processing returned an error
func Failed(key models.RaceKey, err error) RaceSummary {
	return RaceSummary{Key: key, Status: StatusFailed, Error: err.Error()}
}
