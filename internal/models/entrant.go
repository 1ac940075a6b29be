package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field names a FusedEntrant attribute that providers can populate.
type Field string

const (
	FieldTabNumber        Field = "tab_number"
	FieldJockey           Field = "jockey"
	FieldTrainer          Field = "trainer"
	FieldModelRating      Field = "model_rating"
	FieldModelPrice       Field = "model_price"
	FieldMarketWinPrice   Field = "market_win_price"
	FieldMarketPlacePrice Field = "market_place_price"
)

// entrantNamespace seeds deterministic entrant ids.
var entrantNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("racefuse.entrant"))

// FusedEntrant is the reconciled view of one runner in one race.
type FusedEntrant struct {
	ID                uuid.UUID           `db:"id" json:"id"`
	RaceDate          time.Time           `db:"race_date" json:"race_date"`
	Track             string              `db:"track" json:"track"`
	RaceNumber        int                 `db:"race_number" json:"race_number"`
	HorseName         string              `db:"horse_name" json:"horse_name"`
	// RaceIDs and RunnerIDs hold the identifiers each provider assigned.
	// Ids are only comparable within one provider's namespace.
	RaceIDs           map[Provider]string `db:"race_ids" json:"race_ids,omitempty"`
	RunnerIDs         map[Provider]string `db:"runner_ids" json:"runner_ids,omitempty"`
	TabNumber         *int                `db:"tab_number" json:"tab_number,omitempty"`
	Jockey            string              `db:"jockey" json:"jockey,omitempty"`
	Trainer           string              `db:"trainer" json:"trainer,omitempty"`
	ModelRating       *float64            `db:"model_rating" json:"model_rating,omitempty"`
	ModelPrice        *float64            `db:"model_price" json:"model_price,omitempty"`
	MarketWinPrice    *float64            `db:"market_win_price" json:"market_win_price,omitempty"`
	MarketPlacePrice  *float64            `db:"market_place_price" json:"market_place_price,omitempty"`
	IsScratched       bool                `db:"is_scratched" json:"is_scratched"`
	ScratchReason     string              `db:"scratch_reason" json:"scratch_reason,omitempty"`
	ScratchedAt       *time.Time          `db:"scratched_at" json:"scratched_at,omitempty"`
	FinishingPosition *int                `db:"finishing_position" json:"finishing_position,omitempty"`
	StartingPrice     *float64            `db:"starting_price" json:"starting_price,omitempty"`
	MarginToWinner    *float64            `db:"margin_to_winner" json:"margin_to_winner,omitempty"`
	ValueScore        float64             `db:"value_score" json:"value_score"`
	Sources           map[Field]Provider  `db:"-" json:"sources,omitempty"`
}

// EntrantID derives a stable id from the race date, the alias-resolved
// track, the race number and the canonical horse name. Every spelling of a
// venue that resolves to the same canonical track yields the same id.
func EntrantID(key RaceKey, canonicalTrack, canonicalName string) uuid.UUID {
	name := strings.Join([]string{
		key.Date.Format("2006-01-02"), canonicalTrack, strconv.Itoa(key.RaceNumber), canonicalName,
	}, "|")
	return uuid.NewSHA1(entrantNamespace, []byte(name))
}

// StableID returns the race and runner ids provider assigned to e
func (e *FusedEntrant) StableID(provider Provider) (raceID, runnerID string) {
	return e.RaceIDs[provider], e.RunnerIDs[provider]
}

// SetStableID records the ids provider assigned to e. The first id a
// provider reports for an entrant is kept.
func (e *FusedEntrant) SetStableID(provider Provider, raceID, runnerID string) {
	if raceID != "" {
		if e.RaceIDs == nil {
			e.RaceIDs = make(map[Provider]string)
		}
		if _, ok := e.RaceIDs[provider]; !ok {
			e.RaceIDs[provider] = raceID
		}
	}
	if runnerID != "" {
		if e.RunnerIDs == nil {
			e.RunnerIDs = make(map[Provider]string)
		}
		if _, ok := e.RunnerIDs[provider]; !ok {
			e.RunnerIDs[provider] = runnerID
		}
	}
}

// Key returns the race key the entrant belongs to
func (e *FusedEntrant) Key() RaceKey {
	return NewRaceKey(e.RaceDate, e.Track, e.RaceNumber)
}

// HasResult reports whether a finishing position has been attached
func (e *FusedEntrant) HasResult() bool {
	return e.FinishingPosition != nil
}

// IsWinner checks if the entrant finished first
func (e *FusedEntrant) IsWinner() bool {
	return e.FinishingPosition != nil && *e.FinishingPosition == 1
}

// GetTabNumber returns the tab number or 0 if unknown
func (e *FusedEntrant) GetTabNumber() int {
	if e.TabNumber == nil {
		return 0
	}
	return *e.TabNumber
}

// SourceOf returns the provider that populated field, if any
func (e *FusedEntrant) SourceOf(field Field) (Provider, bool) {
	if e.Sources == nil {
		return "", false
	}
	p, ok := e.Sources[field]
	return p, ok
}

// Clone returns a deep copy so overlay stages can apply deltas without
// touching the prior set.
func (e *FusedEntrant) Clone() *FusedEntrant {
	if e == nil {
		return nil
	}
	c := *e
	c.TabNumber = cloneInt(e.TabNumber)
	c.ModelRating = cloneFloat(e.ModelRating)
	c.ModelPrice = cloneFloat(e.ModelPrice)
	c.MarketWinPrice = cloneFloat(e.MarketWinPrice)
	c.MarketPlacePrice = cloneFloat(e.MarketPlacePrice)
	c.FinishingPosition = cloneInt(e.FinishingPosition)
	c.StartingPrice = cloneFloat(e.StartingPrice)
	c.MarginToWinner = cloneFloat(e.MarginToWinner)
	if e.ScratchedAt != nil {
		t := *e.ScratchedAt
		c.ScratchedAt = &t
	}
	if e.Sources != nil {
		c.Sources = make(map[Field]Provider, len(e.Sources))
		for k, v := range e.Sources {
			c.Sources[k] = v
		}
	}
	c.RaceIDs = cloneIDs(e.RaceIDs)
	c.RunnerIDs = cloneIDs(e.RunnerIDs)
	return &c
}

// CloneEntrants deep-copies a slice of entrants
func CloneEntrants(entrants []*FusedEntrant) []*FusedEntrant {
	out := make([]*FusedEntrant, len(entrants))
	for i, e := range entrants {
		out[i] = e.Clone()
	}
	return out
}

func cloneIDs(ids map[Provider]string) map[Provider]string {
	if ids == nil {
		return nil
	}
	c := make(map[Provider]string, len(ids))
	for k, v := range ids {
		c[k] = v
	}
	return c
}

func cloneInt(v *int) *int {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
