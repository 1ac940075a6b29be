package overlay

import (
	"fmt"

	"github.com/yourusername/racefuse/internal/matching"
	"github.com/yourusername/racefuse/internal/models"
)

// ResultOption tunes a result pass
type ResultOption func(*resultOptions)

type resultOptions struct {
	override bool
	reason   string
}

// WithOverride lets the pass replace results that are already final. Every
// replacement is written to the audit log with reason.
func WithOverride(reason string) ResultOption {
	return func(o *resultOptions) {
		o.override = true
		o.reason = reason
	}
}

// UnresolvedResult is a result no entrant could be found for
type UnresolvedResult struct {
	Record models.ResultRecord
	Kind   error
}

// ResultReport describes what a result pass changed
type ResultReport struct {
	Applied int
	// StaleOverwrites counts attempts to change a finalized result.
	StaleOverwrites int
	Overridden      int
	// Completed counts replays of a final position that filled a missing
	// starting price or margin.
	Completed  int
	Unresolved []UnresolvedResult
	// Rejected holds records that failed validation. Kind wraps
	// models.ErrMissingRequiredField.
	Rejected []UnresolvedResult
}

// ApplyResults attaches finishing position, starting price and margin. The
// race and runner id in the record provider's namespace is tried first, then
// the matcher. The first
// result attached to an entrant wins; later ones are counted as stale
// overwrites unless WithOverride is given. Records failing validation are
// rejected without touching any entrant.
func (o *Overlay) ApplyResults(prior []*models.FusedEntrant, records []models.ResultRecord, opts ...ResultOption) ([]*models.FusedEntrant, ResultReport) {
	var options resultOptions
	for _, opt := range opts {
		opt(&options)
	}

	next := models.CloneEntrants(prior)
	var report ResultReport

	for i := range records {
		rec := records[i]
		if err := o.matcher.Normalizer().Check(&rec); err != nil {
			report.Rejected = append(report.Rejected, UnresolvedResult{Record: rec, Kind: err})
			o.logger.LogRejected(fmt.Sprintf("%s|%d", rec.Track, rec.RaceNumber), string(rec.Provider), err)
			continue
		}
		idx, kind := o.locate(&rec, next)
		if idx < 0 {
			report.Unresolved = append(report.Unresolved, UnresolvedResult{Record: rec, Kind: kind})
			o.logger.LogResultUnresolved(rec.Track, rec.RaceNumber, rec.HorseName, kind.Error())
			continue
		}

		e := next[idx]
		if e.HasResult() {
			if *e.FinishingPosition == rec.FinishingPosition && !options.override {
				if fillMissing(e, &rec) {
					report.Completed++
				}
				continue
			}
			if !options.override {
				report.StaleOverwrites++
				o.audit.LogStaleOverwrite(e.ID.String(), e.HorseName, *e.FinishingPosition, rec.FinishingPosition, string(rec.Provider))
				continue
			}
			o.audit.LogResultOverride(e.ID.String(), e.HorseName, *e.FinishingPosition, rec.FinishingPosition, options.reason)
			report.Overridden++
		} else {
			report.Applied++
		}

		pos := rec.FinishingPosition
		e.FinishingPosition = &pos
		e.StartingPrice = copyFloat(rec.StartingPrice)
		e.MarginToWinner = copyFloat(rec.MarginToWinner)
	}

	return next, report
}

// locate returns the index of the entrant a result refers to, or -1 and the
// reason it could not be found.
func (o *Overlay) locate(rec *models.ResultRecord, entrants []*models.FusedEntrant) (int, error) {
	if rec.HasStableID() {
		found := -1
		for i, e := range entrants {
			raceID, runnerID := e.StableID(rec.Provider)
			if raceID == rec.RaceID && runnerID == rec.RunnerID {
				if found >= 0 {
					found = -2
					break
				}
				found = i
			}
		}
		if found >= 0 {
			return found, nil
		}
	}

	out := o.matcher.Match(matching.ProbeFromResult(rec), entrants)
	switch out.Kind {
	case matching.Matched:
		return out.Index, nil
	case matching.Ambiguous:
		return -1, models.ErrAmbiguousMatch
	default:
		return -1, models.ErrUnresolvedRecord
	}
}

// fillMissing copies starting price and margin from a replayed result into
// the fields the first result left empty.
func fillMissing(e *models.FusedEntrant, rec *models.ResultRecord) bool {
	filled := false
	if e.StartingPrice == nil && rec.StartingPrice != nil {
		e.StartingPrice = copyFloat(rec.StartingPrice)
		filled = true
	}
	if e.MarginToWinner == nil && rec.MarginToWinner != nil {
		e.MarginToWinner = copyFloat(rec.MarginToWinner)
		filled = true
	}
	return filled
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
