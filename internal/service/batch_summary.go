package service

import (
	"fmt"
	"time"

	"github.com/yourusername/racefuse/internal/reconcile"
)

// BatchSummary reports the outcome of every race of one meeting
type BatchSummary struct {
	Date     time.Time               `json:"date"`
	Track    string                  `json:"track"`
	Races    []reconcile.RaceSummary `json:"races"`
	Duration time.Duration           `json:"duration"`
}

// Count returns how many races ended with status
func (b *BatchSummary) Count(status reconcile.Status) int {
	n := 0
	for _, r := range b.Races {
		if r.Status == status {
			n++
		}
	}
	return n
}

// Entrants returns the number of entrants reconciled across the meeting
func (b *BatchSummary) Entrants() int {
	n := 0
	for _, r := range b.Races {
		n += r.Entrants
	}
	return n
}

// ValuePlays returns the number of value plays across the meeting
func (b *BatchSummary) ValuePlays() int {
	n := 0
	for _, r := range b.Races {
		n += r.ValuePlays
	}
	return n
}

// String returns a formatted one-line summary
func (b *BatchSummary) String() string {
	return fmt.Sprintf(
		"BatchSummary{Date=%s, Track=%s, Races=%d, OK=%d, NoData=%d, NoValue=%d, Failed=%d, Entrants=%d, ValuePlays=%d, Duration=%v}",
		b.Date.Format("2006-01-02"),
		b.Track,
		len(b.Races),
		b.Count(reconcile.StatusOK),
		b.Count(reconcile.StatusNoData),
		b.Count(reconcile.StatusNoValue),
		b.Count(reconcile.StatusFailed),
		b.Entrants(),
		b.ValuePlays(),
		b.Duration.Round(time.Millisecond),
	)
}
