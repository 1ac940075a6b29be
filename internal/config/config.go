// Package config provides configuration management for racefuse.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App       AppConfig       `mapstructure:"app" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Providers ProvidersConfig `mapstructure:"providers" validate:"required"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	Scoring   ScoringConfig   `mapstructure:"scoring" validate:"required"`
	Staking   StakingConfig   `mapstructure:"staking" validate:"required"`
	Weather   WeatherConfig   `mapstructure:"weather" validate:"required"`
	Cache     CacheConfig     `mapstructure:"cache" validate:"required"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Metrics   MetricsConfig   `mapstructure:"metrics" validate:"required"`
	Secrets   SecretsConfig   `mapstructure:"secrets"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
	// Workers bounds how many races of a meeting are reconciled at once.
	Workers int `mapstructure:"workers" validate:"gte=0"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// RedisConfig configures the reconciled snapshot cache
type RedisConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	Address            string `mapstructure:"address" validate:"required_if=Enabled true"`
	Password           string `mapstructure:"password"`
	DB                 int    `mapstructure:"db" validate:"gte=0"`
	SnapshotTTLSeconds int    `mapstructure:"snapshot_ttl_seconds" validate:"gte=0"`
}

// ProvidersConfig lists the upstream providers and their precedence
type ProvidersConfig struct {
	// Backbone names the provider that defines which runners exist in a race.
	Backbone string `mapstructure:"backbone" validate:"required"`
	// Precedence is the field population order, highest first.
	Precedence []string         `mapstructure:"precedence" validate:"required,min=1,unique"`
	Sources    []ProviderConfig `mapstructure:"sources" validate:"required,min=1,dive"`
}

// ProviderConfig represents a single upstream provider
type ProviderConfig struct {
	Name              string  `mapstructure:"name" validate:"required"`
	Type              string  `mapstructure:"type" validate:"required,providertype"`
	Enabled           bool    `mapstructure:"enabled"`
	BaseURL           string  `mapstructure:"base_url" validate:"omitempty,url"`
	StreamURL         string  `mapstructure:"stream_url" validate:"required_if=Type price_stream"`
	APIKey            string  `mapstructure:"api_key"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"gte=0"`
	RetryAttempts     int     `mapstructure:"retry_attempts" validate:"gte=0"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

// MatchingConfig holds extra track aliases merged over the built-in table
type MatchingConfig struct {
	TrackAliases map[string]string `mapstructure:"track_aliases"`
}

// ScoringConfig configures the value scorer
type ScoringConfig struct {
	ValueThreshold float64 `mapstructure:"value_threshold" validate:"gte=0"`
}

// StakingConfig configures the staking simulator
type StakingConfig struct {
	Stake         float64 `mapstructure:"stake" validate:"required,gt=0"`
	Mode          string  `mapstructure:"mode" validate:"required,stakemode"`
	PlaceDivisor  float64 `mapstructure:"place_divisor" validate:"required,gt=0"`
	PlacingCutoff int     `mapstructure:"placing_cutoff" validate:"required,gte=1"`
}

// WeatherConfig configures the weather correlation module
type WeatherConfig struct {
	MinSampleSize int                  `mapstructure:"min_sample_size" validate:"required,gte=2"`
	SignificantR  float64              `mapstructure:"significant_r" validate:"gte=0,lte=1"`
	SignificantN  int                  `mapstructure:"significant_n" validate:"gte=0"`
	Buckets       map[string][]float64 `mapstructure:"buckets" validate:"dive,ascending"`
}

// CacheConfig configures the provider fetch cache
type CacheConfig struct {
	FetchTTLSeconds        int `mapstructure:"fetch_ttl_seconds" validate:"gte=0"`
	CleanupIntervalSeconds int `mapstructure:"cleanup_interval_seconds" validate:"gte=0"`
}

// ScheduleConfig configures cron-driven reconciliation
type ScheduleConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Reconcile string `mapstructure:"reconcile" validate:"required_if=Enabled true"`
	Results   string `mapstructure:"results"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// SecretsConfig points at an AWS Secrets Manager secret to overlay
type SecretsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Region     string `mapstructure:"region" validate:"required_if=Enabled true"`
	SecretName string `mapstructure:"secret_name" validate:"required_if=Enabled true"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// Provider returns the named provider configuration
func (c *Config) Provider(name string) (ProviderConfig, bool) {
	for _, p := range c.Providers.Sources {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderConfig{}, false
}

// Timeout returns the provider request timeout, defaulting to 30s
func (p ProviderConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// FetchTTL returns the fetch cache expiry
func (c CacheConfig) FetchTTL() time.Duration {
	return time.Duration(c.FetchTTLSeconds) * time.Second
}

// CleanupInterval returns the fetch cache janitor interval
func (c CacheConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// SnapshotTTL returns how long reconciled snapshots stay in Redis
func (r RedisConfig) SnapshotTTL() time.Duration {
	return time.Duration(r.SnapshotTTLSeconds) * time.Second
}
