package models

import (
	"errors"
	"fmt"
)

// Reconciliation error taxonomy
var (
	ErrUnresolvedRecord     = errors.New("record could not be matched to any entrant")
	ErrAmbiguousMatch       = errors.New("more than one entrant matched the record")
	ErrMissingRequiredField = errors.New("record is missing a required field")
	ErrStaleOverwrite       = errors.New("field already finalized")
	ErrNoResult             = errors.New("no result")
	ErrNotFound             = errors.New("record not found")
)

// RecordError ties a taxonomy error to the record that triggered it
type RecordError struct {
	Kind       error
	Provider   Provider
	Track      string
	RaceNumber int
	HorseName  string
	Detail     string
}

func (e *RecordError) Error() string {
	msg := fmt.Sprintf("%s: %s R%d %q", e.Provider, e.Track, e.RaceNumber, e.HorseName)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg + ": " + e.Kind.Error()
}

// Unwrap exposes the taxonomy error to errors.Is
func (e *RecordError) Unwrap() error {
	return e.Kind
}

// NewRecordError builds a RecordError for a runner record
func NewRecordError(kind error, r *RawRunnerRecord, detail string) *RecordError {
	return &RecordError{
		Kind:       kind,
		Provider:   r.Provider,
		Track:      r.Track,
		RaceNumber: r.RaceNumber,
		HorseName:  r.HorseName,
		Detail:     detail,
	}
}
