// Package overlay attaches scratchings and official results to reconciled
// entrants. Every stage takes the prior entrant set, leaves it untouched and
// returns a new set with the deltas applied.
package overlay

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/matching"
	"github.com/yourusername/racefuse/internal/models"
)

// Overlay applies scratching and result feeds
type Overlay struct {
	matcher *matching.Matcher
	logger  *logger.ReconcileLogger
	audit   *logger.AuditLogger
}

// New creates an overlay. A nil base logger discards output.
func New(matcher *matching.Matcher, baseLogger *logrus.Logger) *Overlay {
	if matcher == nil {
		matcher = matching.NewMatcher(nil)
	}
	if baseLogger == nil {
		baseLogger = logger.Discard()
	}
	return &Overlay{
		matcher: matcher,
		logger:  logger.NewReconcileLogger(baseLogger),
		audit:   logger.NewAuditLogger(baseLogger),
	}
}

// UnresolvedScratching is a scratching no entrant could be found for
type UnresolvedScratching struct {
	Record models.ScratchingRecord
	Kind   error
}

// ScratchingReport describes what a scratching pass changed
type ScratchingReport struct {
	Applied          int
	AlreadyScratched int
	Unresolved       []UnresolvedScratching
	Rejected         []UnresolvedScratching
}

// ApplyScratchings flags the matched entrants as scratched. Scratched
// entrants keep every fused field. Reapplying a scratching leaves the
// entrant as the first application left it.
func (o *Overlay) ApplyScratchings(prior []*models.FusedEntrant, records []models.ScratchingRecord) ([]*models.FusedEntrant, ScratchingReport) {
	next := models.CloneEntrants(prior)
	var report ScratchingReport

	for i := range records {
		rec := records[i]
		if err := o.matcher.Normalizer().Check(&rec); err != nil {
			report.Rejected = append(report.Rejected, UnresolvedScratching{Record: rec, Kind: err})
			o.logger.LogRejected(fmt.Sprintf("%s|%d", rec.Track, rec.RaceNumber), string(rec.Provider), err)
			continue
		}
		out := o.matcher.Match(matching.ProbeFromScratching(&rec), next)
		if !out.IsMatched() {
			kind := models.ErrUnresolvedRecord
			if out.Kind == matching.Ambiguous {
				kind = models.ErrAmbiguousMatch
			}
			report.Unresolved = append(report.Unresolved, UnresolvedScratching{Record: rec, Kind: kind})
			tab := 0
			if rec.TabNumber != nil {
				tab = *rec.TabNumber
			}
			o.logger.LogScratchingUnresolved(rec.Track, rec.RaceNumber, rec.HorseName, tab, out.Kind.String())
			continue
		}

		e := next[out.Index]
		if e.IsScratched {
			report.AlreadyScratched++
			continue
		}
		e.IsScratched = true
		e.ScratchReason = rec.Reason
		if !rec.Timestamp.IsZero() {
			ts := rec.Timestamp
			e.ScratchedAt = &ts
		}
		report.Applied++
	}

	return next, report
}
