package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/yourusername/racefuse/internal/metrics"
	"github.com/yourusername/racefuse/internal/models"
	"github.com/yourusername/racefuse/internal/overlay"
)

// ErrNoRecordStore is returned by operations that need persisted races
var ErrNoRecordStore = errors.New("no record store configured")

// SettlementSummary describes a post-race results pass over stored races
type SettlementSummary struct {
	Date            time.Time `json:"date"`
	Races           int       `json:"races"`
	Updated         int       `json:"updated"`
	Applied         int       `json:"applied"`
	StaleOverwrites int       `json:"stale_overwrites"`
	Overridden      int       `json:"overridden"`
	Unresolved      int       `json:"unresolved"`
	Rejected        int       `json:"rejected"`
}

// SettleDay attaches the official results for date to the races already in
// the record store. Races that gain no result are left untouched. Pass
// overlay.WithOverride to correct results that are already final.
func (s *RaceService) SettleDay(ctx context.Context, date time.Time, opts ...overlay.ResultOption) (*SettlementSummary, error) {
	if s.entrants == nil {
		return nil, ErrNoRecordStore
	}
	if s.sources.Results == nil {
		return nil, errors.New("no result source configured")
	}

	day := models.RaceDay(date)
	results, err := s.sources.Results.FetchResults(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}
	stored, err := s.entrants.GetByDateRange(ctx, day, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored races: %w", err)
	}

	summary := &SettlementSummary{Date: day}
	for _, race := range groupByRace(stored) {
		summary.Races++
		records := s.resultsFor(race.key, results)
		if len(records) == 0 {
			continue
		}

		next, report := s.overlay.ApplyResults(race.entrants, records, opts...)
		summary.Applied += report.Applied
		summary.StaleOverwrites += report.StaleOverwrites
		summary.Overridden += report.Overridden
		summary.Unresolved += len(report.Unresolved)
		summary.Rejected += len(report.Rejected)
		metrics.RecordResults(report.Applied, report.StaleOverwrites)

		if report.Applied == 0 && report.Overridden == 0 && report.Completed == 0 {
			continue
		}
		next = s.scorer.ScoreAll(next)
		if err := s.entrants.SaveRace(ctx, race.key, next); err != nil {
			return summary, fmt.Errorf("failed to save race %s: %w", race.key, err)
		}
		if s.snapshots != nil {
			if err := s.snapshots.Put(ctx, race.key, next); err != nil {
				s.logger.WithError(err).WithField("race_key", race.key.String()).Warn("Failed to cache race snapshot")
			}
		}
		summary.Updated++
	}

	s.logger.WithFields(logrus.Fields{
		"date":             day.Format("2006-01-02"),
		"races":            summary.Races,
		"updated":          summary.Updated,
		"applied":          summary.Applied,
		"stale_overwrites": summary.StaleOverwrites,
		"unresolved":       summary.Unresolved,
		"rejected":         summary.Rejected,
	}).Info("Results pass complete")
	return summary, nil
}

type storedRace struct {
	key      models.RaceKey
	entrants []*models.FusedEntrant
}

// groupByRace splits a date range read into races, keeping first-seen order
func groupByRace(entrants []*models.FusedEntrant) []storedRace {
	index := make(map[models.RaceKey]int)
	var races []storedRace
	for _, e := range entrants {
		key := e.Key()
		i, ok := index[key]
		if !ok {
			i = len(races)
			index[key] = i
			races = append(races, storedRace{key: key})
		}
		races[i].entrants = append(races[i].entrants, e)
	}
	return races
}
