package overlay

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racefuse/internal/models"
)

func field() []*models.FusedEntrant {
	dtm := &models.FusedEntrant{
		Track: "Track X", RaceNumber: 3, HorseName: "Don't Tell Me",
		TabNumber: models.IntPtr(4), ModelRating: models.FloatPtr(118), ModelPrice: models.FloatPtr(3.4),
	}
	sd := &models.FusedEntrant{
		Track: "Track X", RaceNumber: 3, HorseName: "Shadow Dancer",
		TabNumber: models.IntPtr(1),
	}
	sd.SetStableID("racing_api", "R3", "sd-1")
	return []*models.FusedEntrant{dtm, sd}
}

func TestScratchingFlagsExistingEntrant(t *testing.T) {
	o := New(nil, nil)
	prior := field()
	ts := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)

	next, report := o.ApplyScratchings(prior, []models.ScratchingRecord{
		{Track: "Track X", RaceNumber: 3, HorseName: "Don't Tell Me", Reason: "lame", Timestamp: ts},
	})

	require.Len(t, next, 2)
	assert.True(t, next[0].IsScratched)
	assert.Equal(t, "lame", next[0].ScratchReason)
	assert.Equal(t, ts, *next[0].ScratchedAt)
	assert.Equal(t, 118.0, *next[0].ModelRating)
	assert.Equal(t, 1, report.Applied)
	assert.False(t, prior[0].IsScratched, "prior set must not change")
}

func TestScratchingByTabNumber(t *testing.T) {
	o := New(nil, nil)

	next, report := o.ApplyScratchings(field(), []models.ScratchingRecord{
		{Track: "Track X", RaceNumber: 3, TabNumber: models.IntPtr(1), Reason: "vet"},
	})

	assert.True(t, next[1].IsScratched)
	assert.Equal(t, 1, report.Applied)
}

func TestScratchingIsIdempotent(t *testing.T) {
	o := New(nil, nil)
	rec := models.ScratchingRecord{Track: "Track X", RaceNumber: 3, HorseName: "Dont Tell Me", Reason: "lame"}

	once, _ := o.ApplyScratchings(field(), []models.ScratchingRecord{rec})
	twice, report := o.ApplyScratchings(once, []models.ScratchingRecord{rec})

	assert.Equal(t, once, twice)
	assert.Equal(t, 0, report.Applied)
	assert.Equal(t, 1, report.AlreadyScratched)

	rec.Reason = "changed mind"
	again, _ := o.ApplyScratchings(twice, []models.ScratchingRecord{rec})
	assert.Equal(t, "lame", again[0].ScratchReason)
}

func TestScratchingUnresolvedNeverCreatesEntrant(t *testing.T) {
	o := New(nil, nil)

	next, report := o.ApplyScratchings(field(), []models.ScratchingRecord{
		{Track: "Track X", RaceNumber: 3, HorseName: "Phantom", Reason: "unknown"},
		{Track: "Track X", RaceNumber: 9, HorseName: "Don't Tell Me", Reason: "wrong race"},
	})

	assert.Len(t, next, 2)
	require.Len(t, report.Unresolved, 2)
	assert.True(t, errors.Is(report.Unresolved[0].Kind, models.ErrUnresolvedRecord))
	assert.False(t, next[0].IsScratched)
}

func TestResultsAttachOnce(t *testing.T) {
	o := New(nil, nil)
	first := models.ResultRecord{
		Track: "Track X", RaceNumber: 3, HorseName: "Dont Tell Me",
		FinishingPosition: 1, StartingPrice: models.FloatPtr(3.8), MarginToWinner: models.FloatPtr(0),
	}
	corrected := first
	corrected.FinishingPosition = 2

	next, report := o.ApplyResults(field(), []models.ResultRecord{first})
	require.True(t, next[0].HasResult())
	assert.Equal(t, 1, *next[0].FinishingPosition)
	assert.Equal(t, 3.8, *next[0].StartingPrice)
	assert.Equal(t, 1, report.Applied)

	again, report := o.ApplyResults(next, []models.ResultRecord{corrected})
	assert.Equal(t, 1, *again[0].FinishingPosition)
	assert.Equal(t, 0, report.Applied)
	assert.Equal(t, 1, report.StaleOverwrites)
}

func TestResultReplayIsNoop(t *testing.T) {
	o := New(nil, nil)
	rec := models.ResultRecord{Track: "Track X", RaceNumber: 3, HorseName: "Shadow Dancer", FinishingPosition: 4}

	once, _ := o.ApplyResults(field(), []models.ResultRecord{rec})
	twice, report := o.ApplyResults(once, []models.ResultRecord{rec})

	assert.Equal(t, once, twice)
	assert.Equal(t, 0, report.StaleOverwrites)
}

func TestResultsPreferStableID(t *testing.T) {
	o := New(nil, nil)
	rec := models.ResultRecord{
		Provider: "racing_api", RaceID: "R3", RunnerID: "sd-1",
		Track: "Track X", RaceNumber: 3, HorseName: "Name Spelt Differently",
		FinishingPosition: 2,
	}

	next, report := o.ApplyResults(field(), []models.ResultRecord{rec})

	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, 2, *next[1].FinishingPosition)
	assert.Nil(t, next[0].FinishingPosition)
}

func TestResultsIgnoreOtherProvidersIDs(t *testing.T) {
	o := New(nil, nil)
	rec := models.ResultRecord{
		Provider: "price_stream", RaceID: "R3", RunnerID: "sd-1",
		Track: "Track X", RaceNumber: 3, HorseName: "Name Spelt Differently",
		FinishingPosition: 2,
	}

	next, report := o.ApplyResults(field(), []models.ResultRecord{rec})

	assert.Equal(t, 0, report.Applied)
	require.Len(t, report.Unresolved, 1)
	assert.Nil(t, next[1].FinishingPosition)
}

func TestResultReplayFillsMissingPrice(t *testing.T) {
	o := New(nil, nil)
	bare := models.ResultRecord{Track: "Track X", RaceNumber: 3, HorseName: "Shadow Dancer", FinishingPosition: 4}
	full := bare
	full.StartingPrice = models.FloatPtr(12)
	full.MarginToWinner = models.FloatPtr(2.5)
	late := full
	late.StartingPrice = models.FloatPtr(15)

	once, _ := o.ApplyResults(field(), []models.ResultRecord{bare})
	require.Nil(t, once[1].StartingPrice)

	twice, report := o.ApplyResults(once, []models.ResultRecord{full})
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 0, report.StaleOverwrites)
	assert.Equal(t, 4, *twice[1].FinishingPosition)
	assert.Equal(t, 12.0, *twice[1].StartingPrice)
	assert.Equal(t, 2.5, *twice[1].MarginToWinner)
	assert.Nil(t, once[1].StartingPrice, "prior set must not change")

	thrice, report := o.ApplyResults(twice, []models.ResultRecord{late})
	assert.Equal(t, 0, report.Completed)
	assert.Equal(t, 12.0, *thrice[1].StartingPrice)
}

func TestResultsRejectInvalidRecords(t *testing.T) {
	o := New(nil, nil)

	next, report := o.ApplyResults(field(), []models.ResultRecord{
		{Track: "Track X", RaceNumber: 3, HorseName: "Shadow Dancer", FinishingPosition: 0},
		{Track: "Track X", RaceNumber: 3, FinishingPosition: 1},
	})

	assert.Equal(t, 0, report.Applied)
	assert.Empty(t, report.Unresolved)
	require.Len(t, report.Rejected, 2)
	for _, r := range report.Rejected {
		assert.True(t, errors.Is(r.Kind, models.ErrMissingRequiredField))
	}
	assert.False(t, next[1].HasResult())
}

func TestScratchingRejectsRecordWithoutRunner(t *testing.T) {
	o := New(nil, nil)

	next, report := o.ApplyScratchings(field(), []models.ScratchingRecord{
		{Track: "Track X", RaceNumber: 3, Reason: "no runner named"},
		{Track: "Track X", HorseName: "Shadow Dancer", Reason: "no race"},
	})

	assert.Equal(t, 0, report.Applied)
	require.Len(t, report.Rejected, 2)
	assert.True(t, errors.Is(report.Rejected[0].Kind, models.ErrMissingRequiredField))
	assert.False(t, next[0].IsScratched)
	assert.False(t, next[1].IsScratched)
}

func TestResultOverride(t *testing.T) {
	o := New(nil, nil)
	rec := models.ResultRecord{Track: "Track X", RaceNumber: 3, HorseName: "Shadow Dancer", FinishingPosition: 1}
	protest := rec
	protest.FinishingPosition = 2

	once, _ := o.ApplyResults(field(), []models.ResultRecord{rec})
	next, report := o.ApplyResults(once, []models.ResultRecord{protest}, WithOverride("protest upheld"))

	assert.Equal(t, 2, *next[1].FinishingPosition)
	assert.Equal(t, 1, report.Overridden)
	assert.Equal(t, 0, report.StaleOverwrites)
}

func TestResultUnresolved(t *testing.T) {
	o := New(nil, nil)

	next, report := o.ApplyResults(field(), []models.ResultRecord{
		{Track: "Track X", RaceNumber: 3, HorseName: "Phantom", FinishingPosition: 1},
	})

	require.Len(t, report.Unresolved, 1)
	assert.True(t, errors.Is(report.Unresolved[0].Kind, models.ErrUnresolvedRecord))
	assert.Len(t, next, 2)
}

func TestScratchingAfterReconciliationKeepsOneEntrant(t *testing.T) {
	o := New(nil, nil)

	next, _ := o.ApplyScratchings(field(), []models.ScratchingRecord{
		{Track: "Track X", RaceNumber: 3, HorseName: "Don't Tell Me", Reason: "late scratching"},
	})

	count := 0
	for _, e := range next {
		if e.HorseName == "Don't Tell Me" {
			count++
			assert.True(t, e.IsScratched)
		}
	}
	assert.Equal(t, 1, count)
}
