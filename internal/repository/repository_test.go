package repository

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racefuse/internal/database"
	"github.com/yourusername/racefuse/internal/models"
	"github.com/yourusername/racefuse/internal/reconcile"
)

var repoKey = models.NewRaceKey(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), "Randwick", 3)

func testEntrant(name string, tab int) *models.FusedEntrant {
	return &models.FusedEntrant{
		ID:          models.EntrantID(repoKey, "randwick", strings.ToLower(name)),
		RaceDate:    repoKey.Date,
		Track:       repoKey.Track,
		RaceNumber:  repoKey.RaceNumber,
		HorseName:   name,
		TabNumber:   models.IntPtr(tab),
		ModelRating: models.FloatPtr(140),
		ModelPrice:  models.FloatPtr(2.0),
		ValueScore:  70,
		Sources: map[models.Field]models.Provider{
			models.FieldModelRating: "ratings_feed",
		},
	}
}

func TestEntrantArgsMatchColumns(t *testing.T) {
	args, err := entrantArgs(testEntrant("Alpha", 1))
	require.NoError(t, err)
	assert.Len(t, args, len(entrantColumns))

	raw, ok := args[len(args)-1].([]byte)
	require.True(t, ok)
	var sources map[string]string
	require.NoError(t, json.Unmarshal(raw, &sources))
	assert.Equal(t, "ratings_feed", sources["model_rating"])
}

func TestEntrantArgsNilSources(t *testing.T) {
	e := testEntrant("Alpha", 1)
	e.Sources = nil

	args, err := entrantArgs(e)
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), args[len(args)-1])
}

func TestUpsertEntrantSQL(t *testing.T) {
	query := upsertEntrantSQL()

	assert.Contains(t, query, "$22")
	assert.NotContains(t, query, "$23")
	assert.Contains(t, query, "ON CONFLICT (id) DO UPDATE SET")
	assert.NotContains(t, query, "id = EXCLUDED.id")
	assert.Contains(t, query, "finishing_position = EXCLUDED.finishing_position")
}

func TestEntrantArgsEncodeProviderIDs(t *testing.T) {
	e := testEntrant("Alpha", 1)
	e.SetStableID("racing_api", "R3", "7")

	args, err := entrantArgs(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"racing_api":"R3"}`, string(args[5].([]byte)))
	assert.JSONEq(t, `{"racing_api":"7"}`, string(args[6].([]byte)))

	ids, err := decodeIDs(args[6].([]byte))
	require.NoError(t, err)
	assert.Equal(t, "7", ids["racing_api"])

	ids, err = decodeIDs([]byte("{}"))
	require.NoError(t, err)
	assert.Nil(t, ids)
}

func TestPruneSparesSettledRows(t *testing.T) {
	assert.Contains(t, pruneRaceSQL, "NOT is_scratched")
	assert.Contains(t, pruneRaceSQL, "finishing_position IS NULL")
}

func TestWeatherRows(t *testing.T) {
	samples := []models.WeatherSample{{
		RaceDate:    time.Date(2024, 3, 2, 15, 30, 0, 0, time.UTC),
		Track:       "Randwick",
		RaceNumber:  1,
		Observation: models.WeatherObservation{WindSpeed: models.FloatPtr(20)},
	}}

	rows := weatherRows(samples)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], len(weatherColumns))
	assert.Equal(t, repoKey.Date, rows[0][0], "race date is truncated to the day")
}

func TestUnresolvedRows(t *testing.T) {
	records := []reconcile.UnresolvedRecord{
		{Record: models.RawRunnerRecord{Provider: "ratings_feed", HorseName: "Ghost"}, Kind: models.ErrUnresolvedRecord, Reason: "no candidate"},
		{Record: models.RawRunnerRecord{Provider: "price_stream", HorseName: "Twin"}, Kind: models.ErrAmbiguousMatch},
	}

	rows := unresolvedRows(repoKey, records)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(unresolvedColumns))
	assert.Equal(t, "ratings_feed", rows[0][3])
	assert.Equal(t, models.ErrAmbiguousMatch.Error(), rows[1][5])
}

func TestNewRepositoriesRequiresDB(t *testing.T) {
	_, err := NewRepositories(nil)
	assert.Error(t, err)
}

func TestEntrantRepositoryRoundTrip(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repos, err := NewRepositories(db)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alpha, bravo, charlie := testEntrant("Alpha", 1), testEntrant("Bravo", 2), testEntrant("Charlie", 3)
	alpha.SetStableID("racing_api", "R3", "1")
	charlie.IsScratched = true
	require.NoError(t, repos.Entrant.SaveRace(ctx, repoKey, []*models.FusedEntrant{alpha, bravo, charlie}))

	// Bravo drops out of the snapshot and must be pruned; scratched Charlie stays
	alpha.FinishingPosition = models.IntPtr(1)
	require.NoError(t, repos.Entrant.SaveRace(ctx, repoKey, []*models.FusedEntrant{alpha}))

	stored, err := repos.Entrant.GetRace(ctx, repoKey)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, alpha.ID, stored[0].ID)
	assert.True(t, stored[0].IsWinner())
	assert.Equal(t, models.Provider("ratings_feed"), stored[0].Sources[models.FieldModelRating])
	_, runnerID := stored[0].StableID("racing_api")
	assert.Equal(t, "1", runnerID)
	assert.Equal(t, charlie.ID, stored[1].ID)
	assert.True(t, stored[1].IsScratched)

	_, err = repos.Entrant.GetRace(ctx, models.NewRaceKey(repoKey.Date, "Flemington", 1))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestWeatherRepositoryUpsert(t *testing.T) {
	db := database.SetupTestDB(t)
	defer database.TeardownTestDB(t, db)

	repo := NewPostgresWeatherRepository(db)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sample := models.WeatherSample{RaceDate: repoKey.Date, Track: "Randwick", RaceNumber: 1,
		Observation: models.WeatherObservation{WindSpeed: models.FloatPtr(10)}}
	require.NoError(t, repo.InsertBatch(ctx, []models.WeatherSample{sample}))

	sample.Observation.WindSpeed = models.FloatPtr(25)
	require.NoError(t, repo.InsertBatch(ctx, []models.WeatherSample{sample}))

	samples, err := repo.GetByDateRange(ctx, repoKey.Date, repoKey.Date)
	require.NoError(t, err)
	require.Len(t, samples, 1)
	assert.Equal(t, 25.0, *samples[0].Observation.WindSpeed)
}
