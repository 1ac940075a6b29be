package repository

import (
	"context"
	"time"

	"github.com/yourusername/racefuse/internal/models"
	"github.com/yourusername/racefuse/internal/reconcile"
)

// EntrantRepository persists reconciled race snapshots
type EntrantRepository interface {
	// SaveRace replaces the stored snapshot of one race with entrants
	SaveRace(ctx context.Context, key models.RaceKey, entrants []*models.FusedEntrant) error
	GetRace(ctx context.Context, key models.RaceKey) ([]*models.FusedEntrant, error)
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.FusedEntrant, error)
}

// WeatherRepository persists weather samples for correlation
type WeatherRepository interface {
	InsertBatch(ctx context.Context, samples []models.WeatherSample) error
	GetByDateRange(ctx context.Context, start, end time.Time) ([]models.WeatherSample, error)
}

// UnresolvedRepository keeps an audit trail of records reconciliation could
// not attach
type UnresolvedRepository interface {
	InsertBatch(ctx context.Context, key models.RaceKey, records []reconcile.UnresolvedRecord) error
	CountByProvider(ctx context.Context, start, end time.Time) (map[models.Provider]int, error)
}
