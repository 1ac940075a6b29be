package repository

import (
	"fmt"

	"github.com/yourusername/racefuse/internal/database"
)

// Repositories holds all repository implementations
type Repositories struct {
	Entrant    EntrantRepository
	Weather    WeatherRepository
	Unresolved UnresolvedRepository
}

// NewRepositories creates and returns all repository implementations
func NewRepositories(db *database.DB) (*Repositories, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	return &Repositories{
		Entrant:    NewPostgresEntrantRepository(db),
		Weather:    NewPostgresWeatherRepository(db),
		Unresolved: NewPostgresUnresolvedRepository(db),
	}, nil
}
