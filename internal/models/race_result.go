package models

// ResultRecord is an official finishing result for one runner.
type ResultRecord struct {
	Provider          Provider `json:"provider"`
	RaceID            string   `json:"race_id,omitempty"`
	RunnerID          string   `json:"runner_id,omitempty"`
	Track             string   `json:"track" validate:"required"`
	RaceNumber        int      `json:"race_number" validate:"required,gt=0"`
	HorseName         string   `json:"horse_name" validate:"required"`
	TabNumber         *int     `json:"tab_number,omitempty"`
	FinishingPosition int      `json:"finishing_position" validate:"required,gt=0"`
	StartingPrice     *float64 `json:"starting_price,omitempty"`
	MarginToWinner    *float64 `json:"margin_to_winner,omitempty"`
}

// HasStableID reports whether the record carries a race and runner identifier
func (r *ResultRecord) HasStableID() bool {
	return r.RaceID != "" && r.RunnerID != ""
}
