// Package reconcile fuses runner records from several providers into one
// entrant per (track, race, horse).
package reconcile

import (
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/matching"
	"github.com/yourusername/racefuse/internal/models"
)

// UnresolvedRecord is a secondary provider record that could not be bound to
// exactly one entrant. It is returned to the caller instead of being dropped.
type UnresolvedRecord struct {
	Record models.RawRunnerRecord `json:"record"`
	Kind   error                  `json:"-"`
	Reason string                 `json:"reason"`
	Rules  []matching.Rule        `json:"rules,omitempty"`
}

// Err returns the record as a taxonomy error
func (u UnresolvedRecord) Err() error {
	return models.NewRecordError(u.Kind, &u.Record, u.Reason)
}

// Result is the reconciled state of one race
type Result struct {
	Key        models.RaceKey
	Entrants   []*models.FusedEntrant
	Unresolved []UnresolvedRecord
	Rejected   []error
	// Replaced counts fields overwritten by a higher-precedence provider.
	Replaced int
}

// AmbiguousCount returns how many unresolved records were ambiguous
func (r *Result) AmbiguousCount() int {
	n := 0
	for _, u := range r.Unresolved {
		if errors.Is(u.Kind, models.ErrAmbiguousMatch) {
			n++
		}
	}
	return n
}

// Reconciler merges provider records for one race at a time. It holds no
// per-race state, so one instance can serve concurrent workers.
type Reconciler struct {
	matcher    *matching.Matcher
	precedence *Precedence
	logger     *logger.ReconcileLogger
	audit      *logger.AuditLogger
}

// NewReconciler creates a reconciler. A nil base logger discards output.
func NewReconciler(matcher *matching.Matcher, precedence *Precedence, baseLogger *logrus.Logger) *Reconciler {
	if matcher == nil {
		matcher = matching.NewMatcher(nil)
	}
	if baseLogger == nil {
		baseLogger = logger.Discard()
	}
	return &Reconciler{
		matcher:    matcher,
		precedence: precedence,
		logger:     logger.NewReconcileLogger(baseLogger),
		audit:      logger.NewAuditLogger(baseLogger),
	}
}

// Precedence returns the provider order in use
func (r *Reconciler) Precedence() *Precedence {
	return r.precedence
}

// Reconcile builds the entrants of the race identified by key from the full
// record set of every provider. The backbone provider seeds entrants; every
// other provider is merged in precedence order and only fills empty fields
// unless it outranks the provider that wrote the field. Records that do not
// bind to exactly one entrant are returned as unresolved.
func (r *Reconciler) Reconcile(key models.RaceKey, records []models.RawRunnerRecord) *Result {
	start := time.Now()
	res := &Result{Key: key}
	scope := key.String()

	byProvider := make(map[models.Provider][]models.RawRunnerRecord)
	present := make(map[models.Provider]struct{})
	for i := range records {
		rec := records[i]
		if _, err := r.matcher.Normalizer().Identify(&rec); err != nil {
			res.Rejected = append(res.Rejected, err)
			r.logger.LogRejected(scope, string(rec.Provider), err)
			continue
		}
		if !r.matcher.Tracks().SameRace(rec.Track, rec.RaceNumber, key.Track, key.RaceNumber) {
			r.unresolved(res, rec, models.ErrUnresolvedRecord, "record belongs to a different race", nil)
			continue
		}
		byProvider[rec.Provider] = append(byProvider[rec.Provider], rec)
		present[rec.Provider] = struct{}{}
	}

	for _, provider := range r.precedence.processingOrder(present) {
		for i := range byProvider[provider] {
			rec := &byProvider[provider][i]
			if provider == r.precedence.Backbone() {
				r.seed(res, rec)
				continue
			}
			r.mergeSecondary(res, rec)
		}
	}

	r.logger.LogRaceReconciled(scope, len(res.Entrants), len(res.Unresolved), res.AmbiguousCount(),
		len(res.Rejected), float64(time.Since(start).Microseconds())/1000)
	return res
}

// seed adds a backbone record as a new entrant, folding exact duplicates
// (same runner id or same canonical name) into the existing one.
func (r *Reconciler) seed(res *Result, rec *models.RawRunnerRecord) {
	name := r.matcher.Normalizer().Name(rec.HorseName)
	for _, e := range res.Entrants {
		_, runnerID := e.StableID(rec.Provider)
		sameID := rec.RunnerID != "" && rec.RunnerID == runnerID
		if sameID || r.matcher.Normalizer().Name(e.HorseName) == name {
			r.merge(res, e, rec)
			return
		}
	}

	e := &models.FusedEntrant{
		ID:         models.EntrantID(res.Key, r.matcher.Normalizer().Track(res.Key.Track), name),
		RaceDate:   res.Key.Date,
		Track:      res.Key.Track,
		RaceNumber: res.Key.RaceNumber,
		HorseName:  displayName(rec.HorseName),
		Sources:    make(map[models.Field]models.Provider),
	}
	r.merge(res, e, rec)
	res.Entrants = append(res.Entrants, e)
}

func (r *Reconciler) mergeSecondary(res *Result, rec *models.RawRunnerRecord) {
	out := r.matcher.Match(matching.ProbeFromRunner(rec), res.Entrants)
	switch out.Kind {
	case matching.Matched:
		r.merge(res, res.Entrants[out.Index], rec)
	case matching.Ambiguous:
		r.logger.LogAmbiguous(res.Key.String(), string(rec.Provider), rec.HorseName)
		r.unresolved(res, *rec, models.ErrAmbiguousMatch, "several entrants matched", out.AmbiguousRules)
	default:
		r.unresolved(res, *rec, models.ErrUnresolvedRecord, "no entrant matched", nil)
	}
}

func (r *Reconciler) unresolved(res *Result, rec models.RawRunnerRecord, kind error, reason string, rules []matching.Rule) {
	res.Unresolved = append(res.Unresolved, UnresolvedRecord{
		Record: rec,
		Kind:   kind,
		Reason: reason,
		Rules:  rules,
	})
	r.logger.LogUnresolved(res.Key.String(), string(rec.Provider), rec.HorseName, reason)
}

// merge copies every field the record carries into e when the field is
// empty or was written by a lower-precedence provider. Provider ids are kept
// per provider and never compete on precedence.
func (r *Reconciler) merge(res *Result, e *models.FusedEntrant, rec *models.RawRunnerRecord) {
	e.SetStableID(rec.Provider, rec.RaceID, rec.RunnerID)
	set := func(field models.Field, has, empty bool, assign func()) {
		if !has {
			return
		}
		if !empty {
			current, ok := e.SourceOf(field)
			if !ok || !r.precedence.Outranks(rec.Provider, current) {
				return
			}
			res.Replaced++
			r.audit.LogPrecedenceReplace(e.ID.String(), string(field), string(current), string(rec.Provider))
		}
		assign()
		e.Sources[field] = rec.Provider
	}

	set(models.FieldTabNumber, rec.TabNumber != nil, e.TabNumber == nil, func() { e.TabNumber = models.IntPtr(*rec.TabNumber) })
	set(models.FieldJockey, rec.Jockey != "", e.Jockey == "", func() { e.Jockey = rec.Jockey })
	set(models.FieldTrainer, rec.Trainer != "", e.Trainer == "", func() { e.Trainer = rec.Trainer })
	set(models.FieldModelRating, rec.Rating != nil, e.ModelRating == nil, func() { e.ModelRating = models.FloatPtr(*rec.Rating) })
	set(models.FieldModelPrice, rec.Price != nil, e.ModelPrice == nil, func() { e.ModelPrice = models.FloatPtr(*rec.Price) })
	set(models.FieldMarketWinPrice, rec.WinPrice != nil, e.MarketWinPrice == nil, func() { e.MarketWinPrice = models.FloatPtr(*rec.WinPrice) })
	set(models.FieldMarketPlacePrice, rec.PlacePrice != nil, e.MarketPlacePrice == nil, func() { e.MarketPlacePrice = models.FloatPtr(*rec.PlacePrice) })
}

func displayName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
