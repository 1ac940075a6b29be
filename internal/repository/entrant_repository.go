package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/yourusername/racefuse/internal/database"
	"github.com/yourusername/racefuse/internal/models"
)

var entrantColumns = []string{
	"id", "race_date", "track", "race_number", "horse_name", "race_ids", "runner_ids",
	"tab_number", "jockey", "trainer", "model_rating", "model_price", "market_win_price",
	"market_place_price", "is_scratched", "scratch_reason", "scratched_at",
	"finishing_position", "starting_price", "margin_to_winner", "value_score", "sources",
}

const pruneRaceSQL = `
	DELETE FROM fused_entrants
	WHERE race_date = $1 AND track = $2 AND race_number = $3 AND NOT (id = ANY($4))
	  AND NOT is_scratched AND finishing_position IS NULL`

// PostgresEntrantRepository implements EntrantRepository for PostgreSQL
type PostgresEntrantRepository struct {
	db *database.DB
}

// NewPostgresEntrantRepository creates a new entrant repository
func NewPostgresEntrantRepository(db *database.DB) EntrantRepository {
	return &PostgresEntrantRepository{db: db}
}

// SaveRace upserts every entrant and removes rows of the race that are no
// longer part of the snapshot, in one transaction. Rows carrying a scratching
// or a finishing position are never pruned.
func (r *PostgresEntrantRepository) SaveRace(ctx context.Context, key models.RaceKey, entrants []*models.FusedEntrant) error {
	return r.db.WithTransaction(ctx, func(tx database.DBTX) error {
		ids := make([]uuid.UUID, 0, len(entrants))
		for _, e := range entrants {
			ids = append(ids, e.ID)
		}

		_, err := tx.Exec(ctx, pruneRaceSQL, key.Date, key.Track, key.RaceNumber, ids)
		if err != nil {
			return fmt.Errorf("failed to prune race %s: %w", key, err)
		}

		if len(entrants) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		query := upsertEntrantSQL()
		for _, e := range entrants {
			args, err := entrantArgs(e)
			if err != nil {
				return err
			}
			batch.Queue(query, args...)
		}

		results := tx.SendBatch(ctx, batch)
		for range entrants {
			if _, err := results.Exec(); err != nil {
				results.Close()
				return fmt.Errorf("failed to upsert entrant: %w", err)
			}
		}
		return results.Close()
	})
}

// GetRace retrieves the stored snapshot of one race ordered by tab number
func (r *PostgresEntrantRepository) GetRace(ctx context.Context, key models.RaceKey) ([]*models.FusedEntrant, error) {
	query := `SELECT ` + strings.Join(entrantColumns, ", ") + `
		FROM fused_entrants
		WHERE race_date = $1 AND track = $2 AND race_number = $3
		ORDER BY tab_number NULLS LAST, horse_name`

	rows, err := r.db.GetPool().Query(ctx, query, key.Date, key.Track, key.RaceNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to query race %s: %w", key, err)
	}
	entrants, err := collectEntrants(rows)
	if err != nil {
		return nil, err
	}
	if len(entrants) == 0 {
		return nil, models.ErrNotFound
	}
	return entrants, nil
}

// GetByDateRange retrieves every stored entrant with a race date in [start, end]
func (r *PostgresEntrantRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]*models.FusedEntrant, error) {
	query := `SELECT ` + strings.Join(entrantColumns, ", ") + `
		FROM fused_entrants
		WHERE race_date >= $1 AND race_date <= $2
		ORDER BY race_date, track, race_number, tab_number NULLS LAST`

	rows, err := r.db.GetPool().Query(ctx, query, models.RaceDay(start), models.RaceDay(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query entrants by date range: %w", err)
	}
	return collectEntrants(rows)
}

func upsertEntrantSQL() string {
	placeholders := make([]string, len(entrantColumns))
	updates := make([]string, 0, len(entrantColumns)-1)
	for i, col := range entrantColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col != "id" {
			updates = append(updates, col+" = EXCLUDED."+col)
		}
	}
	updates = append(updates, "updated_at = now()")

	return `INSERT INTO fused_entrants (` + strings.Join(entrantColumns, ", ") + `)
		VALUES (` + strings.Join(placeholders, ", ") + `)
		ON CONFLICT (id) DO UPDATE SET ` + strings.Join(updates, ", ")
}

// entrantArgs flattens an entrant in entrantColumns order
func entrantArgs(e *models.FusedEntrant) ([]interface{}, error) {
	sources := e.Sources
	if sources == nil {
		sources = map[models.Field]models.Provider{}
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		return nil, fmt.Errorf("failed to encode sources for %s: %w", e.HorseName, err)
	}
	raceIDs, err := encodeIDs(e.RaceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode race ids for %s: %w", e.HorseName, err)
	}
	runnerIDs, err := encodeIDs(e.RunnerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode runner ids for %s: %w", e.HorseName, err)
	}

	return []interface{}{
		e.ID, models.RaceDay(e.RaceDate), e.Track, e.RaceNumber, e.HorseName, raceIDs, runnerIDs,
		e.TabNumber, e.Jockey, e.Trainer, e.ModelRating, e.ModelPrice, e.MarketWinPrice,
		e.MarketPlacePrice, e.IsScratched, e.ScratchReason, e.ScratchedAt,
		e.FinishingPosition, e.StartingPrice, e.MarginToWinner, e.ValueScore, raw,
	}, nil
}

func collectEntrants(rows pgx.Rows) ([]*models.FusedEntrant, error) {
	defer rows.Close()

	var entrants []*models.FusedEntrant
	for rows.Next() {
		e := &models.FusedEntrant{}
		var raw, raceIDs, runnerIDs []byte
		err := rows.Scan(
			&e.ID, &e.RaceDate, &e.Track, &e.RaceNumber, &e.HorseName, &raceIDs, &runnerIDs,
			&e.TabNumber, &e.Jockey, &e.Trainer, &e.ModelRating, &e.ModelPrice, &e.MarketWinPrice,
			&e.MarketPlacePrice, &e.IsScratched, &e.ScratchReason, &e.ScratchedAt,
			&e.FinishingPosition, &e.StartingPrice, &e.MarginToWinner, &e.ValueScore, &raw,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan entrant: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.Sources); err != nil {
				return nil, fmt.Errorf("failed to decode sources for %s: %w", e.HorseName, err)
			}
		}
		if e.RaceIDs, err = decodeIDs(raceIDs); err != nil {
			return nil, fmt.Errorf("failed to decode race ids for %s: %w", e.HorseName, err)
		}
		if e.RunnerIDs, err = decodeIDs(runnerIDs); err != nil {
			return nil, fmt.Errorf("failed to decode runner ids for %s: %w", e.HorseName, err)
		}
		entrants = append(entrants, e)
	}

	return entrants, rows.Err()
}

func encodeIDs(ids map[models.Provider]string) ([]byte, error) {
	if ids == nil {
		ids = map[models.Provider]string{}
	}
	return json.Marshal(ids)
}

func decodeIDs(raw []byte) (map[models.Provider]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var ids map[models.Provider]string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return ids, nil
}
