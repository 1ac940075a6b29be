package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/racefuse/internal/database"
	"github.com/yourusername/racefuse/internal/models"
	"github.com/yourusername/racefuse/internal/reconcile"
)

var unresolvedColumns = []string{"race_date", "track", "race_number", "provider", "horse_name", "kind", "reason"}

// PostgresUnresolvedRepository implements UnresolvedRepository for PostgreSQL
type PostgresUnresolvedRepository struct {
	db *database.DB
}

// NewPostgresUnresolvedRepository creates a new unresolved record repository
func NewPostgresUnresolvedRepository(db *database.DB) UnresolvedRepository {
	return &PostgresUnresolvedRepository{db: db}
}

// InsertBatch appends unresolved records of one race using COPY
func (u *PostgresUnresolvedRepository) InsertBatch(ctx context.Context, key models.RaceKey, records []reconcile.UnresolvedRecord) error {
	if len(records) == 0 {
		return nil
	}

	count, err := u.db.GetPool().CopyFrom(ctx, pgx.Identifier{"unresolved_records"}, unresolvedColumns, pgx.CopyFromRows(unresolvedRows(key, records)))
	if err != nil {
		return fmt.Errorf("failed to batch insert unresolved records: %w", err)
	}
	if count != int64(len(records)) {
		return fmt.Errorf("inserted %d rows, expected %d", count, len(records))
	}
	return nil
}

// CountByProvider returns how many records each provider left unresolved
func (u *PostgresUnresolvedRepository) CountByProvider(ctx context.Context, start, end time.Time) (map[models.Provider]int, error) {
	rows, err := u.db.GetPool().Query(ctx, `
		SELECT provider, COUNT(*) FROM unresolved_records
		WHERE race_date >= $1 AND race_date <= $2
		GROUP BY provider
	`, models.RaceDay(start), models.RaceDay(end))
	if err != nil {
		return nil, fmt.Errorf("failed to count unresolved records: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Provider]int)
	for rows.Next() {
		var provider string
		var n int
		if err := rows.Scan(&provider, &n); err != nil {
			return nil, fmt.Errorf("failed to scan unresolved count: %w", err)
		}
		counts[models.Provider(provider)] = n
	}
	return counts, rows.Err()
}

func unresolvedRows(key models.RaceKey, records []reconcile.UnresolvedRecord) [][]interface{} {
	rows := make([][]interface{}, len(records))
	for i, rec := range records {
		kind := "unmatched"
		if rec.Kind != nil {
			kind = rec.Kind.Error()
		}
		rows[i] = []interface{}{
			key.Date, key.Track, key.RaceNumber, string(rec.Record.Provider), rec.Record.HorseName, kind, rec.Reason,
		}
	}
	return rows
}
