package identity

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/racefuse/internal/models"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lower and trim", "  Winx  ", "winx"},
		{"collapse whitespace", "Black \t  Caviar", "black caviar"},
		{"apostrophe", "Don't Tell Me", "dont tell me"},
		{"curly apostrophe", "Don’t Tell Me", "dont tell me"},
		{"periods", "St. Mark's Basilica", "st marks basilica"},
		{"country suffix", "Verry Elleegant (NZ)", "verry elleegant"},
		{"inner parenthesised", "Nature Strip (AUS) Junior", "nature strip junior"},
		{"accents folded", "Mañana Élan", "manana elan"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Canonical(tt.input))
		})
	}
}

func TestCanonicalIsIdempotent(t *testing.T) {
	inputs := []string{"Don't Tell Me", "Verry Elleegant (NZ)", "Rosehill Gardens", "A.B. Cee"}
	for _, in := range inputs {
		once := Canonical(in)
		assert.Equal(t, once, Canonical(once), in)
	}
}

func TestTrackAliases(t *testing.T) {
	n := NewNormalizer(map[string]string{"Sportsbet Pakenham": "Pakenham"})

	assert.Equal(t, "rosehill", n.Track("Rosehill Gardens"))
	assert.Equal(t, "rosehill", n.Track("ROSEHILL gardens"))
	assert.Equal(t, "rosehill", n.Track("Rosehill"))
	assert.Equal(t, "pakenham", n.Track("Sportsbet Pakenham"))
	assert.Equal(t, "flemington", n.Track("Flemington"))
}

func TestCheckFeedRecords(t *testing.T) {
	n := Default()

	ok := models.ResultRecord{Track: "Track X", RaceNumber: 3, HorseName: "Winx", FinishingPosition: 1}
	assert.NoError(t, n.Check(&ok))

	unplaced := ok
	unplaced.FinishingPosition = 0
	err := n.Check(&unplaced)
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrMissingRequiredField))
	assert.Contains(t, err.Error(), "FinishingPosition")

	assert.NoError(t, n.Check(&models.ScratchingRecord{Track: "Track X", RaceNumber: 3, TabNumber: models.IntPtr(2)}))
	err = n.Check(&models.ScratchingRecord{Track: "Track X", RaceNumber: 3})
	assert.True(t, errors.Is(err, models.ErrMissingRequiredField))
}

func TestDefaultNormalizerHasBuiltins(t *testing.T) {
	assert.Equal(t, "randwick", Default().Track("Royal Randwick"))
}

func TestNormalizeAnyNonString(t *testing.T) {
	n := Default()

	assert.Equal(t, "winx", n.NormalizeAny("Winx"))
	assert.Equal(t, "", n.NormalizeAny(42))
	assert.Equal(t, "", n.NormalizeAny(nil))
	assert.Equal(t, "", n.NormalizeAny((*string)(nil)))
	s := "Winx"
	assert.Equal(t, "winx", n.NormalizeAny(&s))
}

func TestEmptyNamesNeverMatch(t *testing.T) {
	assert.False(t, Equal("", ""))
	assert.False(t, Equal("winx", ""))
	assert.False(t, Contains("", "winx"))
	assert.False(t, Contains("", ""))
	assert.True(t, Equal("winx", "winx"))
	assert.True(t, Contains("dont tell me", "dont tell"))
	assert.True(t, Contains("dont tell", "dont tell me"))
}

func TestIdentify(t *testing.T) {
	n := Default()

	id, err := n.Identify(&models.RawRunnerRecord{
		Provider:   "racing_api",
		Track:      "Rosehill Gardens",
		RaceNumber: 3,
		HorseName:  "Don't Tell Me",
	})
	require.NoError(t, err)
	assert.Equal(t, "dont tell me", id.CanonicalName)
	assert.Equal(t, "rosehill", id.CanonicalTrack)
}

func TestIdentifyRejectsMissingFields(t *testing.T) {
	n := Default()

	tests := []struct {
		name   string
		record *models.RawRunnerRecord
	}{
		{"nil record", nil},
		{"missing track", &models.RawRunnerRecord{Provider: "p", RaceNumber: 3, HorseName: "Winx"}},
		{"missing race number", &models.RawRunnerRecord{Provider: "p", Track: "Randwick", HorseName: "Winx"}},
		{"missing horse", &models.RawRunnerRecord{Provider: "p", Track: "Randwick", RaceNumber: 3}},
		{"name is only punctuation", &models.RawRunnerRecord{Provider: "p", Track: "Randwick", RaceNumber: 3, HorseName: "(NZ)"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := n.Identify(tt.record)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrMissingRequiredField))
		})
	}
}
