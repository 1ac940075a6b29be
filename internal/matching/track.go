package matching

import (
	"strings"

	"github.com/yourusername/racefuse/internal/identity"
)

// TrackMatcher decides whether two race references point at the same race.
// Tracks match on alias-resolved equality or containment; race numbers must
// be equal.
type TrackMatcher struct {
	normalizer *identity.Normalizer
}

// NewTrackMatcher creates a track matcher using the given normalizer
func NewTrackMatcher(normalizer *identity.Normalizer) *TrackMatcher {
	if normalizer == nil {
		normalizer = identity.Default()
	}
	return &TrackMatcher{normalizer: normalizer}
}

// SameTrack reports whether a and b name the same venue
func (m *TrackMatcher) SameTrack(a, b string) bool {
	ca, cb := m.normalizer.Track(a), m.normalizer.Track(b)
	if ca == "" || cb == "" {
		return false
	}
	return ca == cb || strings.Contains(ca, cb) || strings.Contains(cb, ca)
}

// SameRace reports whether two (track, race number) pairs denote one race
func (m *TrackMatcher) SameRace(trackA string, raceA int, trackB string, raceB int) bool {
	return raceA == raceB && raceA > 0 && m.SameTrack(trackA, trackB)
}
