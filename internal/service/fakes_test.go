package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yourusername/racefuse/internal/datasource"
	"github.com/yourusername/racefuse/internal/matching"
	"github.com/yourusername/racefuse/internal/models"
	"github.com/yourusername/racefuse/internal/reconcile"
	"github.com/yourusername/racefuse/internal/valuation"
)

const (
	backboneName models.Provider = "racing_api"
	ratingsName  models.Provider = "ratings_feed"
	marketName   models.Provider = "price_stream"
)

var (
	raceDate   = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	errOffline = errors.New("provider offline")
)

// fakeBackbone serves the race card, scratchings, results and weather
type fakeBackbone struct {
	mu          sync.Mutex
	meetings    []models.Meeting
	fields      map[string][]models.RawRunnerRecord
	failRaces   map[string]error
	scratchings []models.ScratchingRecord
	results     []models.ResultRecord
	weather     []models.WeatherSample
	resultsErr  error
	entrantHits int
}

func (f *fakeBackbone) Name() models.Provider { return backboneName }

func (f *fakeBackbone) FetchMeetings(ctx context.Context, date time.Time) ([]models.Meeting, error) {
	return f.meetings, nil
}

func (f *fakeBackbone) FetchEntrants(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error) {
	f.mu.Lock()
	f.entrantHits++
	f.mu.Unlock()
	if err := f.failRaces[key.String()]; err != nil {
		return nil, err
	}
	return f.fields[key.String()], nil
}

func (f *fakeBackbone) FetchScratchings(ctx context.Context, date time.Time) ([]models.ScratchingRecord, error) {
	return f.scratchings, nil
}

func (f *fakeBackbone) FetchResults(ctx context.Context, date time.Time) ([]models.ResultRecord, error) {
	if f.resultsErr != nil {
		return nil, f.resultsErr
	}
	return f.results, nil
}

func (f *fakeBackbone) FetchWeather(ctx context.Context, from, to time.Time) ([]models.WeatherSample, error) {
	return f.weather, nil
}

// fakeSecondary serves ratings or prices keyed by race
type fakeSecondary struct {
	name   models.Provider
	byRace map[string][]models.RawRunnerRecord
	err    error
}

func (f *fakeSecondary) Name() models.Provider { return f.name }

func (f *fakeSecondary) FetchRatings(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byRace[key.String()], nil
}

func (f *fakeSecondary) FetchPrices(ctx context.Context, key models.RaceKey) ([]models.RawRunnerRecord, error) {
	return f.FetchRatings(ctx, key)
}

type fakeEntrantRepo struct {
	mu    sync.Mutex
	races map[string][]*models.FusedEntrant
	saves int
	err   error
}

func newFakeEntrantRepo() *fakeEntrantRepo {
	return &fakeEntrantRepo{races: make(map[string][]*models.FusedEntrant)}
}

func (r *fakeEntrantRepo) SaveRace(ctx context.Context, key models.RaceKey, entrants []*models.FusedEntrant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.saves++
	r.races[key.String()] = models.CloneEntrants(entrants)
	return nil
}

func (r *fakeEntrantRepo) GetRace(ctx context.Context, key models.RaceKey) ([]*models.FusedEntrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entrants, ok := r.races[key.String()]
	if !ok || len(entrants) == 0 {
		return nil, models.ErrNotFound
	}
	return models.CloneEntrants(entrants), nil
}

func (r *fakeEntrantRepo) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.FusedEntrant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.FusedEntrant
	for _, entrants := range r.races {
		for _, e := range entrants {
			if !e.RaceDate.Before(models.RaceDay(start)) && !e.RaceDate.After(models.RaceDay(end)) {
				out = append(out, e.Clone())
			}
		}
	}
	return out, nil
}

type fakeUnresolvedRepo struct {
	mu      sync.Mutex
	records []reconcile.UnresolvedRecord
}

func (r *fakeUnresolvedRepo) InsertBatch(ctx context.Context, key models.RaceKey, records []reconcile.UnresolvedRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, records...)
	return nil
}

func (r *fakeUnresolvedRepo) CountByProvider(ctx context.Context, start, end time.Time) (map[models.Provider]int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[models.Provider]int)
	for _, u := range r.records {
		counts[u.Record.Provider]++
	}
	return counts, nil
}

type fakeSnapshots struct {
	mu    sync.Mutex
	races map[string][]*models.FusedEntrant
	gets  int
}

func newFakeSnapshots() *fakeSnapshots {
	return &fakeSnapshots{races: make(map[string][]*models.FusedEntrant)}
}

func (c *fakeSnapshots) Put(ctx context.Context, key models.RaceKey, entrants []*models.FusedEntrant) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.races[key.String()] = models.CloneEntrants(entrants)
	return nil
}

func (c *fakeSnapshots) Get(ctx context.Context, key models.RaceKey) ([]*models.FusedEntrant, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	entrants, ok := c.races[key.String()]
	return entrants, ok, nil
}

type fakeWeatherRepo struct {
	samples []models.WeatherSample
}

func (r *fakeWeatherRepo) InsertBatch(ctx context.Context, samples []models.WeatherSample) error {
	r.samples = append(r.samples, samples...)
	return nil
}

func (r *fakeWeatherRepo) GetByDateRange(ctx context.Context, start, end time.Time) ([]models.WeatherSample, error) {
	return r.samples, nil
}

func runner(provider models.Provider, race int, name string, tab int) models.RawRunnerRecord {
	r := models.RawRunnerRecord{Provider: provider, Track: "Track X", RaceNumber: race, HorseName: name}
	if tab > 0 {
		r.TabNumber = models.IntPtr(tab)
	}
	return r
}

func backboneField(race int) []models.RawRunnerRecord {
	return []models.RawRunnerRecord{
		runner(backboneName, race, "Don't Tell Me", 4),
		runner(backboneName, race, "Shadow Dancer", 1),
		runner(backboneName, race, "Tell Me More", 7),
	}
}

func raceKey(race int) models.RaceKey {
	return models.NewRaceKey(raceDate, "Track X", race)
}

type testHarness struct {
	backbone   *fakeBackbone
	ratings    *fakeSecondary
	market     *fakeSecondary
	entrants   *fakeEntrantRepo
	unresolved *fakeUnresolvedRepo
	snapshots  *fakeSnapshots
	service    *RaceService
}

// newHarness builds a service over a one-meeting card with races 1 to 3 at
// Track X. Race 3 carries a rating that makes Don't Tell Me a value play.
func newHarness() *testHarness {
	backbone := &fakeBackbone{
		meetings: []models.Meeting{{Date: raceDate, Track: "Track X", Races: []int{1, 2, 3}}},
		fields: map[string][]models.RawRunnerRecord{
			raceKey(1).String(): backboneField(1),
			raceKey(2).String(): backboneField(2),
			raceKey(3).String(): backboneField(3),
		},
		failRaces: map[string]error{},
	}

	rating := runner(ratingsName, 3, "Dont Tell Me", 0)
	rating.Rating = models.FloatPtr(118)
	rating.Price = models.FloatPtr(3.40)
	ratings := &fakeSecondary{
		name:   ratingsName,
		byRace: map[string][]models.RawRunnerRecord{raceKey(3).String(): {rating}},
	}

	price := runner(marketName, 3, "Shadow Dancer", 1)
	price.WinPrice = models.FloatPtr(6.5)
	market := &fakeSecondary{
		name:   marketName,
		byRace: map[string][]models.RawRunnerRecord{raceKey(3).String(): {price}},
	}

	h := &testHarness{
		backbone:   backbone,
		ratings:    ratings,
		market:     market,
		entrants:   newFakeEntrantRepo(),
		unresolved: &fakeUnresolvedRepo{},
		snapshots:  newFakeSnapshots(),
	}

	sources := &datasource.Sources{
		Entrants:    backbone,
		Ratings:     []datasource.RatingSource{ratings},
		Markets:     []datasource.MarketSource{market},
		Scratchings: backbone,
		Results:     backbone,
		Weather:     backbone,
	}
	matcher := matching.NewMatcher(nil)
	reconciler := reconcile.NewReconciler(matcher,
		reconcile.NewPrecedence(backboneName, []models.Provider{backboneName, ratingsName, marketName}), nil)

	h.service = NewRaceService(sources, matcher, reconciler, valuation.NewScorer(valuation.DefaultThreshold), nil,
		WithEntrantRepository(h.entrants),
		WithUnresolvedRepository(h.unresolved),
		WithSnapshotStore(h.snapshots),
		WithWorkers(2),
	)
	return h
}

func findEntrant(entrants []*models.FusedEntrant, name string) *models.FusedEntrant {
	for _, e := range entrants {
		if e.HorseName == name {
			return e
		}
	}
	return nil
}
