package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/yourusername/racefuse/internal/database"
	"github.com/yourusername/racefuse/internal/models"
)

var weatherColumns = []string{
	"race_date", "track", "race_number", "temperature", "wind_speed", "humidity",
	"precipitation", "winning_time", "winning_margin",
}

// PostgresWeatherRepository implements WeatherRepository for PostgreSQL
type PostgresWeatherRepository struct {
	db *database.DB
}

// NewPostgresWeatherRepository creates a new weather repository
func NewPostgresWeatherRepository(db *database.DB) WeatherRepository {
	return &PostgresWeatherRepository{db: db}
}

// InsertBatch loads samples through a staging table with COPY, then merges
// them so re-importing a date range replaces earlier observations
func (w *PostgresWeatherRepository) InsertBatch(ctx context.Context, samples []models.WeatherSample) error {
	if len(samples) == 0 {
		return nil
	}

	return w.db.WithTransaction(ctx, func(tx database.DBTX) error {
		_, err := tx.Exec(ctx, `CREATE TEMP TABLE weather_staging (LIKE weather_samples INCLUDING DEFAULTS) ON COMMIT DROP`)
		if err != nil {
			return fmt.Errorf("failed to create staging table: %w", err)
		}

		count, err := tx.CopyFrom(ctx, pgx.Identifier{"weather_staging"}, weatherColumns, pgx.CopyFromRows(weatherRows(samples)))
		if err != nil {
			return fmt.Errorf("failed to batch insert weather samples: %w", err)
		}
		if count != int64(len(samples)) {
			return fmt.Errorf("inserted %d rows, expected %d", count, len(samples))
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO weather_samples SELECT DISTINCT ON (race_date, track, race_number) * FROM weather_staging
			ON CONFLICT (race_date, track, race_number) DO UPDATE SET
				temperature = EXCLUDED.temperature,
				wind_speed = EXCLUDED.wind_speed,
				humidity = EXCLUDED.humidity,
				precipitation = EXCLUDED.precipitation,
				winning_time = EXCLUDED.winning_time,
				winning_margin = EXCLUDED.winning_margin
		`)
		if err != nil {
			return fmt.Errorf("failed to merge weather samples: %w", err)
		}
		return nil
	})
}

// GetByDateRange retrieves samples with a race date in [start, end]
func (w *PostgresWeatherRepository) GetByDateRange(ctx context.Context, start, end time.Time) ([]models.WeatherSample, error) {
	query := `
		SELECT race_date, track, race_number, temperature, wind_speed, humidity,
		       precipitation, winning_time, winning_margin
		FROM weather_samples
		WHERE race_date >= $1 AND race_date <= $2
		ORDER BY race_date, track, race_number
	`

	rows, err := w.db.GetPool().Query(ctx, query, models.RaceDay(start), models.RaceDay(end))
	if err != nil {
		return nil, fmt.Errorf("failed to query weather samples: %w", err)
	}
	defer rows.Close()

	var samples []models.WeatherSample
	for rows.Next() {
		var s models.WeatherSample
		err := rows.Scan(
			&s.RaceDate, &s.Track, &s.RaceNumber,
			&s.Observation.Temperature, &s.Observation.WindSpeed, &s.Observation.Humidity,
			&s.Observation.Precipitation, &s.Outcome.WinningTime, &s.Outcome.WinningMargin,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan weather sample: %w", err)
		}
		samples = append(samples, s)
	}

	return samples, rows.Err()
}

func weatherRows(samples []models.WeatherSample) [][]interface{} {
	rows := make([][]interface{}, len(samples))
	for i, s := range samples {
		rows[i] = []interface{}{
			models.RaceDay(s.RaceDate), s.Track, s.RaceNumber,
			s.Observation.Temperature, s.Observation.WindSpeed, s.Observation.Humidity,
			s.Observation.Precipitation, s.Outcome.WinningTime, s.Outcome.WinningMargin,
		}
	}
	return rows
}
