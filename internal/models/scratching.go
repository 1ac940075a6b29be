package models

import "time"

// ScratchingRecord announces the withdrawal of a runner.
type ScratchingRecord struct {
	Provider   Provider  `json:"provider"`
	RunnerID   string    `json:"runner_id,omitempty"`
	Track      string    `json:"track" validate:"required"`
	RaceNumber int       `json:"race_number" validate:"required,gt=0"`
	HorseName  string    `json:"horse_name,omitempty" validate:"required_without=TabNumber"`
	TabNumber  *int      `json:"tab_number,omitempty" validate:"required_without=HorseName"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}
