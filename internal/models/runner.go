package models

// Provider names an upstream data source (e.g. "racing_api", "ratings_feed").
type Provider string

// RawRunnerRecord is a runner as reported by one provider. It is never
// mutated after it has been fetched.
type RawRunnerRecord struct {
	Provider   Provider `json:"provider" validate:"required"`
	RaceID     string   `json:"race_id,omitempty"`   // provider race identifier, in that provider's namespace
	RunnerID   string   `json:"runner_id,omitempty"` // provider runner identifier, in that provider's namespace
	Track      string   `json:"track" validate:"required"`
	RaceNumber int      `json:"race_number" validate:"required,gt=0"`
	HorseName  string   `json:"horse_name" validate:"required"`
	TabNumber  *int     `json:"tab_number,omitempty" validate:"omitempty,gt=0"`
	Jockey     string   `json:"jockey,omitempty"`
	Trainer    string   `json:"trainer,omitempty"`
	Rating     *float64 `json:"rating,omitempty"`
	Price      *float64 `json:"price,omitempty"` // rated (model) price
	WinPrice   *float64 `json:"win_price,omitempty"`
	PlacePrice *float64 `json:"place_price,omitempty"`
}

// GetTabNumber returns the tab number or 0 if unknown
func (r *RawRunnerRecord) GetTabNumber() int {
	if r.TabNumber == nil {
		return 0
	}
	return *r.TabNumber
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// FloatPtr returns a pointer to v
func FloatPtr(v float64) *float64 {
	return &v
}
