package reconcile

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racefuse/internal/matching"
	"github.com/yourusername/racefuse/internal/models"
)

const (
	backbone models.Provider = "racing_api"
	ratings  models.Provider = "ratings_feed"
	market   models.Provider = "price_stream"
)

var raceDate = time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)

func newTestReconciler() *Reconciler {
	return NewReconciler(matching.NewMatcher(nil), NewPrecedence(backbone, []models.Provider{backbone, ratings, market}), nil)
}

func trackXRace3() models.RaceKey {
	return models.NewRaceKey(raceDate, "Track X", 3)
}

func runner(provider models.Provider, name string) models.RawRunnerRecord {
	return models.RawRunnerRecord{Provider: provider, Track: "Track X", RaceNumber: 3, HorseName: name}
}

func backboneField() []models.RawRunnerRecord {
	dtm := runner(backbone, "Don't Tell Me")
	dtm.TabNumber = models.IntPtr(4)
	dtm.Jockey = "J. McDonald"
	sd := runner(backbone, "Shadow Dancer")
	sd.TabNumber = models.IntPtr(1)
	tmm := runner(backbone, "Tell Me More")
	tmm.TabNumber = models.IntPtr(7)
	return []models.RawRunnerRecord{dtm, sd, tmm}
}

func TestReconcileMergesSecondaryRating(t *testing.T) {
	rating := runner(ratings, "Dont Tell Me")
	rating.Rating = models.FloatPtr(118)
	rating.Price = models.FloatPtr(3.40)

	res := newTestReconciler().Reconcile(trackXRace3(), append(backboneField(), rating))

	require.Len(t, res.Entrants, 3)
	e := res.Entrants[0]
	assert.Equal(t, "Don't Tell Me", e.HorseName)
	require.NotNil(t, e.ModelRating)
	require.NotNil(t, e.ModelPrice)
	require.NotNil(t, e.TabNumber)
	assert.Equal(t, 118.0, *e.ModelRating)
	assert.Equal(t, 3.40, *e.ModelPrice)
	assert.Equal(t, 4, *e.TabNumber)
	assert.Equal(t, ratings, e.Sources[models.FieldModelRating])
	assert.Equal(t, backbone, e.Sources[models.FieldTabNumber])
	assert.Empty(t, res.Unresolved)
}

func TestReconcileIsIdempotent(t *testing.T) {
	rating := runner(ratings, "Dont Tell Me")
	rating.Rating = models.FloatPtr(118)
	rating.Price = models.FloatPtr(3.40)
	price := runner(market, "Shadow Dancer")
	price.WinPrice = models.FloatPtr(5.5)
	records := append(backboneField(), rating, price)

	r := newTestReconciler()
	first := r.Reconcile(trackXRace3(), records)
	second := r.Reconcile(trackXRace3(), records)

	assert.Equal(t, first.Entrants, second.Entrants)
	assert.Equal(t, first.Entrants[0].ID, second.Entrants[0].ID)
}

func TestReconcileIgnoresInputOrderAcrossProviders(t *testing.T) {
	rating := runner(ratings, "Dont Tell Me")
	rating.Rating = models.FloatPtr(118)
	bb := backboneField()

	r := newTestReconciler()
	forward := r.Reconcile(trackXRace3(), append(append([]models.RawRunnerRecord{}, bb...), rating))
	reversed := r.Reconcile(trackXRace3(), append([]models.RawRunnerRecord{rating}, bb...))

	assert.Equal(t, forward.Entrants, reversed.Entrants)
}

func TestReconcileSurfacesUnmatchedSecondary(t *testing.T) {
	ghost := runner(ratings, "Completely Unknown")
	ghost.Rating = models.FloatPtr(90)

	res := newTestReconciler().Reconcile(trackXRace3(), append(backboneField(), ghost))

	assert.Len(t, res.Entrants, 3)
	require.Len(t, res.Unresolved, 1)
	assert.Equal(t, "Completely Unknown", res.Unresolved[0].Record.HorseName)
	assert.True(t, errors.Is(res.Unresolved[0].Err(), models.ErrUnresolvedRecord))
	assert.Equal(t, 0, res.AmbiguousCount())
}

func TestReconcileAmbiguousIsNotPicked(t *testing.T) {
	vague := runner(ratings, "Tell Me")
	vague.Rating = models.FloatPtr(100)

	res := newTestReconciler().Reconcile(trackXRace3(), append(backboneField(), vague))

	require.Len(t, res.Unresolved, 1)
	assert.True(t, errors.Is(res.Unresolved[0].Kind, models.ErrAmbiguousMatch))
	assert.Equal(t, 1, res.AmbiguousCount())
	for _, e := range res.Entrants {
		assert.Nil(t, e.ModelRating)
	}
}

func TestReconcileFillsEmptyOnly(t *testing.T) {
	first := runner(ratings, "Shadow Dancer")
	first.Rating = models.FloatPtr(101)
	lower := runner(market, "Shadow Dancer")
	lower.Rating = models.FloatPtr(55)
	lower.WinPrice = models.FloatPtr(8)

	res := newTestReconciler().Reconcile(trackXRace3(), append(backboneField(), lower, first))

	e := res.Entrants[1]
	assert.Equal(t, 101.0, *e.ModelRating)
	assert.Equal(t, 8.0, *e.MarketWinPrice)
	assert.Equal(t, 0, res.Replaced)
}

func TestReconcileHigherPrecedenceReplacesBackboneField(t *testing.T) {
	r := NewReconciler(matching.NewMatcher(nil), NewPrecedence(backbone, []models.Provider{ratings, backbone}), nil)
	jockey := runner(ratings, "Don't Tell Me")
	jockey.Jockey = "H. Bowman"

	res := r.Reconcile(trackXRace3(), append(backboneField(), jockey))

	e := res.Entrants[0]
	assert.Equal(t, "H. Bowman", e.Jockey)
	assert.Equal(t, ratings, e.Sources[models.FieldJockey])
	assert.Equal(t, 1, res.Replaced)
}

func TestReconcileRejectsMissingFields(t *testing.T) {
	bad := models.RawRunnerRecord{Provider: ratings, Track: "Track X", HorseName: "No Race"}

	res := newTestReconciler().Reconcile(trackXRace3(), append(backboneField(), bad))

	require.Len(t, res.Rejected, 1)
	assert.True(t, errors.Is(res.Rejected[0], models.ErrMissingRequiredField))
	assert.Len(t, res.Entrants, 3)
}

func TestReconcileOtherRaceIsUnresolved(t *testing.T) {
	other := runner(ratings, "Don't Tell Me")
	other.RaceNumber = 4

	res := newTestReconciler().Reconcile(trackXRace3(), append(backboneField(), other))

	require.Len(t, res.Unresolved, 1)
	assert.Nil(t, res.Entrants[0].ModelRating)
}

func TestReconcileBackboneDuplicatesFold(t *testing.T) {
	dup := runner(backbone, "DON'T TELL ME")
	dup.Trainer = "C. Waller"

	res := newTestReconciler().Reconcile(trackXRace3(), append(backboneField(), dup))

	require.Len(t, res.Entrants, 3)
	assert.Equal(t, "C. Waller", res.Entrants[0].Trainer)
}

func TestReconcileWithoutBackboneIsEmpty(t *testing.T) {
	rating := runner(ratings, "Dont Tell Me")

	res := newTestReconciler().Reconcile(trackXRace3(), []models.RawRunnerRecord{rating})

	assert.Empty(t, res.Entrants)
	assert.Len(t, res.Unresolved, 1)
}

func TestReconcileForeignRunnerIDsNeverMatch(t *testing.T) {
	field := backboneField()
	field[0].RaceID, field[0].RunnerID = "R3", "1"
	field[1].RaceID, field[1].RunnerID = "R3", "2"
	price := runner(market, "Shadow Dancer")
	price.TabNumber = models.IntPtr(1)
	price.RaceID, price.RunnerID = "R3", "1"
	price.WinPrice = models.FloatPtr(6.5)

	res := newTestReconciler().Reconcile(trackXRace3(), append(field, price))

	require.Len(t, res.Entrants, 3)
	assert.Nil(t, res.Entrants[0].MarketWinPrice)
	require.NotNil(t, res.Entrants[1].MarketWinPrice)
	assert.Equal(t, 6.5, *res.Entrants[1].MarketWinPrice)

	_, runnerID := res.Entrants[0].StableID(backbone)
	assert.Equal(t, "1", runnerID)
	_, runnerID = res.Entrants[1].StableID(market)
	assert.Equal(t, "1", runnerID)
	_, runnerID = res.Entrants[1].StableID(backbone)
	assert.Equal(t, "2", runnerID)
	assert.Empty(t, res.Unresolved)
}

func TestReconcileTrackSpellingKeepsEntrantIDs(t *testing.T) {
	spelled := func(track string) []*models.FusedEntrant {
		field := backboneField()
		for i := range field {
			field[i].Track = track
		}
		return newTestReconciler().Reconcile(models.NewRaceKey(raceDate, track, 3), field).Entrants
	}

	long := spelled("Rosehill Gardens")
	short := spelled("Rosehill")

	require.Len(t, long, 3)
	require.Len(t, short, 3)
	for i := range long {
		assert.Equal(t, long[i].ID, short[i].ID, long[i].HorseName)
	}
}

func TestPrecedence(t *testing.T) {
	p := NewPrecedence(backbone, []models.Provider{ratings, market})

	assert.Equal(t, []models.Provider{backbone, ratings, market}, p.Order())
	assert.True(t, p.Outranks(backbone, ratings))
	assert.True(t, p.Outranks(market, "unknown"))
	assert.False(t, p.Outranks("unknown", market))

	order := p.processingOrder(map[models.Provider]struct{}{market: {}, "zeta": {}, backbone: {}, "alpha": {}})
	assert.Equal(t, []models.Provider{backbone, market, "alpha", "zeta"}, order)
}

type thresholdClassifier float64

func (c thresholdClassifier) IsValuePlay(e *models.FusedEntrant) bool {
	return e.ModelRating != nil && *e.ModelRating > float64(c)
}

func TestSummarize(t *testing.T) {
	key := trackXRace3()

	empty := Summarize(&Result{Key: key}, thresholdClassifier(100))
	assert.Equal(t, StatusNoData, empty.Status)

	rating := runner(ratings, "Dont Tell Me")
	rating.Rating = models.FloatPtr(118)
	res := newTestReconciler().Reconcile(key, append(backboneField(), rating))

	assert.Equal(t, StatusOK, Summarize(res, thresholdClassifier(100)).Status)
	assert.Equal(t, StatusNoValue, Summarize(res, thresholdClassifier(200)).Status)

	failed := Failed(key, errors.New("provider down"))
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "provider down", failed.Error)
}
