// Package service wires provider clients, reconciliation, overlays and
// storage into the operations exposed by the CLI and the scheduler.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/yourusername/racefuse/internal/datasource"
	"github.com/yourusername/racefuse/internal/identity"
	"github.com/yourusername/racefuse/internal/logger"
	"github.com/yourusername/racefuse/internal/matching"
	"github.com/yourusername/racefuse/internal/metrics"
	"github.com/yourusername/racefuse/internal/models"
	"github.com/yourusername/racefuse/internal/overlay"
	"github.com/yourusername/racefuse/internal/reconcile"
	"github.com/yourusername/racefuse/internal/repository"
	"github.com/yourusername/racefuse/internal/valuation"
)

const defaultWorkers = 4

// SnapshotStore caches reconciled races for fast reads
type SnapshotStore interface {
	Put(ctx context.Context, key models.RaceKey, entrants []*models.FusedEntrant) error
	Get(ctx context.Context, key models.RaceKey) ([]*models.FusedEntrant, bool, error)
}

// RaceService reconciles races end to end: fetch, merge, overlay, score and
// persist
type RaceService struct {
	sources    *datasource.Sources
	reconciler *reconcile.Reconciler
	overlay    *overlay.Overlay
	scorer     *valuation.Scorer
	tracks     *matching.TrackMatcher
	names      *identity.Normalizer
	entrants   repository.EntrantRepository
	unresolved repository.UnresolvedRepository
	snapshots  SnapshotStore
	workers    int
	logger     *logrus.Entry
	rl         *logger.ReconcileLogger
}

// Option configures optional RaceService dependencies
type Option func(*RaceService)

// WithEntrantRepository persists every reconciled race
func WithEntrantRepository(repo repository.EntrantRepository) Option {
	return func(s *RaceService) { s.entrants = repo }
}

// WithUnresolvedRepository keeps unresolved records for later review
func WithUnresolvedRepository(repo repository.UnresolvedRepository) Option {
	return func(s *RaceService) { s.unresolved = repo }
}

// WithSnapshotStore caches reconciled races
func WithSnapshotStore(store SnapshotStore) Option {
	return func(s *RaceService) { s.snapshots = store }
}

// WithWorkers bounds how many races of a meeting run at once
func WithWorkers(n int) Option {
	return func(s *RaceService) {
		if n > 0 {
			s.workers = n
		}
	}
}

// RaceView is the outcome of reconciling one race
type RaceView struct {
	Key         models.RaceKey               `json:"key"`
	Entrants    []*models.FusedEntrant       `json:"-"`
	Ranked      []valuation.RankedEntrant    `json:"ranked"`
	Summary     reconcile.RaceSummary        `json:"summary"`
	Unresolved  []reconcile.UnresolvedRecord `json:"unresolved,omitempty"`
	Scratchings overlay.ScratchingReport     `json:"scratchings"`
	Results     overlay.ResultReport         `json:"results"`
	// Degraded names secondary providers whose fetch failed. The race is
	// still reconciled from what the others returned.
	Degraded []models.Provider `json:"degraded,omitempty"`
}

// NewRaceService creates a new race service
func NewRaceService(
	sources *datasource.Sources,
	matcher *matching.Matcher,
	reconciler *reconcile.Reconciler,
	scorer *valuation.Scorer,
	baseLogger *logrus.Logger,
	opts ...Option,
) *RaceService {
	if baseLogger == nil {
		baseLogger = logger.Discard()
	}
	s := &RaceService{
		sources:    sources,
		reconciler: reconciler,
		overlay:    overlay.New(matcher, baseLogger),
		scorer:     scorer,
		tracks:     matcher.Tracks(),
		names:      matcher.Normalizer(),
		workers:    defaultWorkers,
		logger:     baseLogger.WithField("component", "race_service"),
		rl:         logger.NewReconcileLogger(baseLogger),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// dayFeeds holds the date-wide scratchings and results shared by every race
// of a run
type dayFeeds struct {
	scratchings []models.ScratchingRecord
	results     []models.ResultRecord
	degraded    []models.Provider
}

// ReconcileRace fetches every provider for one race and returns the
// reconciled, overlaid and scored field. The track is resolved against the
// backbone's meetings first.
func (s *RaceService) ReconcileRace(ctx context.Context, date time.Time, track string, race int) (*RaceView, error) {
	key, err := s.ResolveRace(ctx, date, track, race)
	if err != nil {
		return nil, err
	}
	day := s.fetchDay(ctx, key.Date)
	return s.reconcileRace(ctx, key, day)
}

// ResolveRace returns the key of race at track on date using the backbone's
// spelling of the track, so that every alias of a venue reads and writes the
// same rows. An exact canonical match beats a containment match.
func (s *RaceService) ResolveRace(ctx context.Context, date time.Time, track string, race int) (models.RaceKey, error) {
	meetings, err := s.sources.Entrants.FetchMeetings(ctx, models.RaceDay(date))
	if err != nil {
		return models.RaceKey{}, fmt.Errorf("failed to fetch meetings: %w", err)
	}

	want := s.names.Track(track)
	var loose *models.Meeting
	for i := range meetings {
		m := &meetings[i]
		if !m.HasRace(race) || !s.tracks.SameTrack(m.Track, track) {
			continue
		}
		if s.names.Track(m.Track) == want {
			return models.NewRaceKey(date, m.Track, race), nil
		}
		if loose == nil {
			loose = m
		}
	}
	if loose != nil {
		return models.NewRaceKey(date, loose.Track, race), nil
	}
	return models.RaceKey{}, fmt.Errorf("race %d at %s on %s: %w", race, track, date.Format("2006-01-02"), models.ErrNotFound)
}

// ReconcileMeeting reconciles every race of the meeting at track on date.
// A race that fails is reported in the summary and does not stop the others.
func (s *RaceService) ReconcileMeeting(ctx context.Context, date time.Time, track string) (*BatchSummary, []*RaceView, error) {
	meetings, err := s.sources.Entrants.FetchMeetings(ctx, date)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch meetings: %w", err)
	}

	for _, m := range meetings {
		if s.tracks.SameTrack(m.Track, track) {
			day := s.fetchDay(ctx, models.RaceDay(date))
			summary, views := s.reconcileMeeting(ctx, m, day)
			return summary, views, nil
		}
	}
	return nil, nil, fmt.Errorf("meeting %s on %s: %w", track, date.Format("2006-01-02"), models.ErrNotFound)
}

// ReconcileDay reconciles every meeting scheduled on date
func (s *RaceService) ReconcileDay(ctx context.Context, date time.Time) ([]*BatchSummary, error) {
	meetings, err := s.sources.Entrants.FetchMeetings(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch meetings: %w", err)
	}

	day := s.fetchDay(ctx, models.RaceDay(date))
	summaries := make([]*BatchSummary, 0, len(meetings))
	for _, m := range meetings {
		if err := ctx.Err(); err != nil {
			return summaries, err
		}
		summary, _ := s.reconcileMeeting(ctx, m, day)
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *RaceService) reconcileMeeting(ctx context.Context, m models.Meeting, day *dayFeeds) (*BatchSummary, []*RaceView) {
	start := time.Now()
	keys := m.Keys()
	views := make([]*RaceView, len(keys))
	races := make([]reconcile.RaceSummary, len(keys))

	// One slot per race; workers never share output
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, key := range keys {
		g.Go(func() error {
			view, err := s.reconcileRace(ctx, key, day)
			if err != nil {
				s.logger.WithError(err).WithField("race_key", key.String()).Error("Race reconciliation failed")
				metrics.RecordRaceReconciled(string(reconcile.StatusFailed), 0, 0)
				races[i] = reconcile.Failed(key, err)
				return nil
			}
			views[i] = view
			races[i] = view.Summary
			return nil
		})
	}
	_ = g.Wait()

	summary := &BatchSummary{
		Date:     models.RaceDay(m.Date),
		Track:    m.Track,
		Races:    races,
		Duration: time.Since(start),
	}
	s.rl.LogMeetingSummary(summary.Date.Format("2006-01-02"), m.Track, len(races),
		summary.Count(reconcile.StatusOK), summary.Count(reconcile.StatusNoData),
		summary.Count(reconcile.StatusNoValue), summary.Count(reconcile.StatusFailed))
	return summary, views
}

func (s *RaceService) reconcileRace(ctx context.Context, key models.RaceKey, day *dayFeeds) (*RaceView, error) {
	start := time.Now()

	records, degraded, err := s.fetchRace(ctx, key)
	if err != nil {
		return nil, err
	}

	res := s.reconciler.Reconcile(key, records)
	stored, err := s.storedRace(ctx, key)
	if err != nil {
		return nil, err
	}
	prior := carryForward(res.Entrants, stored)
	entrants, scr := s.overlay.ApplyScratchings(prior, s.scratchingsFor(key, day.scratchings))
	entrants, rr := s.overlay.ApplyResults(entrants, s.resultsFor(key, day.results))
	res.Entrants = s.scorer.ScoreAll(entrants)

	view := &RaceView{
		Key:         key,
		Entrants:    res.Entrants,
		Ranked:      s.scorer.Rank(res.Entrants),
		Summary:     reconcile.Summarize(res, s.scorer),
		Unresolved:  res.Unresolved,
		Scratchings: scr,
		Results:     rr,
		Degraded:    append(degraded, day.degraded...),
	}

	if err := s.persist(ctx, view); err != nil {
		return nil, err
	}

	metrics.RecordRaceReconciled(string(view.Summary.Status), len(view.Entrants), time.Since(start).Seconds())
	for _, u := range res.Unresolved {
		metrics.RecordUnresolved(string(u.Record.Provider), unresolvedKind(u.Kind))
	}
	metrics.RecordPrecedenceReplacements(res.Replaced)
	metrics.RecordScratchings(scr.Applied)
	metrics.RecordResults(rr.Applied, rr.StaleOverwrites)
	for _, r := range rr.Rejected {
		metrics.RecordUnresolved(string(r.Record.Provider), unresolvedKind(r.Kind))
	}
	for _, r := range scr.Rejected {
		metrics.RecordUnresolved(string(r.Record.Provider), unresolvedKind(r.Kind))
	}
	metrics.RecordValuePlays(view.Summary.ValuePlays)
	return view, nil
}

// storedRace loads the last saved state of key. A race never saved before
// has no stored state.
func (s *RaceService) storedRace(ctx context.Context, key models.RaceKey) ([]*models.FusedEntrant, error) {
	if s.entrants == nil {
		return nil, nil
	}
	stored, err := s.entrants.GetRace(ctx, key)
	if errors.Is(err, models.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load stored race %s: %w", key, err)
	}
	return stored, nil
}

// carryForward copies finalized results and scratchings from the stored race
// onto the freshly reconciled entrants. Only the overlays may change either
// afterwards. Stored entrants the backbone no longer lists are kept when they
// were scratched or placed.
func carryForward(fresh, stored []*models.FusedEntrant) []*models.FusedEntrant {
	if len(stored) == 0 {
		return fresh
	}

	byID := make(map[string]*models.FusedEntrant, len(fresh))
	for _, e := range fresh {
		byID[e.ID.String()] = e
	}

	out := fresh
	for _, old := range stored {
		e, ok := byID[old.ID.String()]
		if !ok {
			if old.IsScratched || old.HasResult() {
				out = append(out, old.Clone())
			}
			continue
		}
		if old.HasResult() {
			pos := *old.FinishingPosition
			e.FinishingPosition = &pos
			e.StartingPrice = copyFloat(old.StartingPrice)
			e.MarginToWinner = copyFloat(old.MarginToWinner)
		}
		if old.IsScratched {
			e.IsScratched = true
			e.ScratchReason = old.ScratchReason
			if old.ScratchedAt != nil {
				ts := *old.ScratchedAt
				e.ScratchedAt = &ts
			}
		}
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	return models.FloatPtr(*v)
}

// fetchRace collects every provider's records for key before anything is
// merged. Only a backbone failure fails the race.
func (s *RaceService) fetchRace(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, []models.Provider, error) {
	type fetchFunc func(context.Context, models.RaceKey) ([]models.RawRunnerRecord, error)

	providers := []models.Provider{s.sources.Entrants.Name()}
	fetches := []fetchFunc{s.sources.Entrants.FetchEntrants}
	for _, r := range s.sources.Ratings {
		providers = append(providers, r.Name())
		fetches = append(fetches, r.FetchRatings)
	}
	for _, m := range s.sources.Markets {
		providers = append(providers, m.Name())
		fetches = append(fetches, m.FetchPrices)
	}

	batches := make([][]models.RawRunnerRecord, len(fetches))
	failures := make([]error, len(fetches))

	g, gctx := errgroup.WithContext(ctx)
	for i, fetch := range fetches {
		g.Go(func() error {
			records, err := fetch(gctx, key)
			if err != nil {
				if i == 0 {
					return fmt.Errorf("backbone %s: %w", providers[0], err)
				}
				failures[i] = err
				return nil
			}
			batches[i] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var degraded []models.Provider
	total := 0
	for i, b := range batches {
		if failures[i] != nil {
			s.logger.WithError(failures[i]).WithFields(logrus.Fields{
				"race_key": key.String(),
				"provider": providers[i],
			}).Warn("Provider fetch failed, reconciling without it")
			degraded = append(degraded, providers[i])
		}
		total += len(b)
	}

	records := make([]models.RawRunnerRecord, 0, total)
	for _, b := range batches {
		records = append(records, b...)
	}
	return records, degraded, nil
}

// fetchDay loads the date's scratchings and results. Either feed failing
// leaves that overlay empty for the run.
func (s *RaceService) fetchDay(ctx context.Context, date time.Time) *dayFeeds {
	day := &dayFeeds{}
	var scrErr, resErr error

	var g errgroup.Group
	if s.sources.Scratchings != nil {
		g.Go(func() error {
			day.scratchings, scrErr = s.sources.Scratchings.FetchScratchings(ctx, date)
			return nil
		})
	}
	if s.sources.Results != nil {
		g.Go(func() error {
			day.results, resErr = s.sources.Results.FetchResults(ctx, date)
			return nil
		})
	}
	_ = g.Wait()

	if scrErr != nil {
		s.logger.WithError(scrErr).Warn("Scratchings unavailable, continuing without them")
		day.degraded = append(day.degraded, s.sources.Scratchings.Name())
	}
	if resErr != nil {
		s.logger.WithError(resErr).Warn("Results unavailable, continuing without them")
		day.degraded = append(day.degraded, s.sources.Results.Name())
	}
	return day
}

func (s *RaceService) scratchingsFor(key models.RaceKey, all []models.ScratchingRecord) []models.ScratchingRecord {
	var out []models.ScratchingRecord
	for _, r := range all {
		if s.tracks.SameRace(r.Track, r.RaceNumber, key.Track, key.RaceNumber) {
			out = append(out, r)
		}
	}
	return out
}

func (s *RaceService) resultsFor(key models.RaceKey, all []models.ResultRecord) []models.ResultRecord {
	var out []models.ResultRecord
	for _, r := range all {
		if s.tracks.SameRace(r.Track, r.RaceNumber, key.Track, key.RaceNumber) {
			out = append(out, r)
		}
	}
	return out
}

// persist writes the race to the record store, then best effort to the
// unresolved log and snapshot cache
func (s *RaceService) persist(ctx context.Context, view *RaceView) error {
	if s.entrants != nil {
		if err := s.entrants.SaveRace(ctx, view.Key, view.Entrants); err != nil {
			return fmt.Errorf("failed to save race %s: %w", view.Key, err)
		}
	}
	if s.unresolved != nil && len(view.Unresolved) > 0 {
		if err := s.unresolved.InsertBatch(ctx, view.Key, view.Unresolved); err != nil {
			s.logger.WithError(err).WithField("race_key", view.Key.String()).Warn("Failed to record unresolved records")
		}
	}
	if s.snapshots != nil {
		if err := s.snapshots.Put(ctx, view.Key, view.Entrants); err != nil {
			s.logger.WithError(err).WithField("race_key", view.Key.String()).Warn("Failed to cache race snapshot")
		}
	}
	return nil
}

// Snapshot returns the last reconciled state of a race, from the cache when
// possible and from the record store otherwise
func (s *RaceService) Snapshot(ctx context.Context, key models.RaceKey) ([]*models.FusedEntrant, error) {
	if s.snapshots != nil {
		entrants, found, err := s.snapshots.Get(ctx, key)
		if err != nil {
			s.logger.WithError(err).WithField("race_key", key.String()).Warn("Snapshot cache read failed")
		} else if found {
			return entrants, nil
		}
	}
	if s.entrants == nil {
		return nil, fmt.Errorf("race %s: %w", key, models.ErrNotFound)
	}

	entrants, err := s.entrants.GetRace(ctx, key)
	if err != nil {
		return nil, err
	}
	if s.snapshots != nil {
		if err := s.snapshots.Put(ctx, key, entrants); err != nil {
			s.logger.WithError(err).WithField("race_key", key.String()).Warn("Failed to cache race snapshot")
		}
	}
	return entrants, nil
}

func unresolvedKind(err error) string {
	switch {
	case errors.Is(err, models.ErrAmbiguousMatch):
		return "ambiguous"
	case errors.Is(err, models.ErrMissingRequiredField):
		return "missing_field"
	default:
		return "unmatched"
	}
}
