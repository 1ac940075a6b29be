package models

import (
	"fmt"
	"time"
)

// RaceKey identifies one race on one race date.
type RaceKey struct {
	Date       time.Time `json:"date"`
	Track      string    `json:"track"`
	RaceNumber int       `json:"race_number"`
}

// NewRaceKey truncates the date to the calendar day in UTC
func NewRaceKey(date time.Time, track string, raceNumber int) RaceKey {
	return RaceKey{
		Date:       RaceDay(date),
		Track:      track,
		RaceNumber: raceNumber,
	}
}

// String returns the "2006-01-02|track|race" form used for cache and log keys
func (k RaceKey) String() string {
	return fmt.Sprintf("%s|%s|%d", k.Date.Format("2006-01-02"), k.Track, k.RaceNumber)
}

// Meeting is the set of races run at one track on one day.
type Meeting struct {
	Date  time.Time `json:"date"`
	Track string    `json:"track"`
	Races []int     `json:"races"`
}

// Keys expands the meeting into one RaceKey per race
func (m Meeting) Keys() []RaceKey {
	keys := make([]RaceKey, 0, len(m.Races))
	for _, race := range m.Races {
		keys = append(keys, NewRaceKey(m.Date, m.Track, race))
	}
	return keys
}

// HasRace reports whether the meeting lists race
func (m Meeting) HasRace(race int) bool {
	for _, r := range m.Races {
		if r == race {
			return true
		}
	}
	return false
}

// RaceDay truncates t to midnight UTC
func RaceDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
