// Package config provides configuration management for the Sharpline analysis core.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Collection CollectionConfig `mapstructure:"collection" validate:"required"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline" validate:"required"`
	Detector   DetectorConfig   `mapstructure:"detector" validate:"required"`
	Arbiter    ArbiterConfig    `mapstructure:"arbiter" validate:"required"`
	Backtest   BacktestConfig   `mapstructure:"backtest" validate:"required"`
	Tuner      TunerConfig      `mapstructure:"tuner" validate:"required"`
	API        APIConfig        `mapstructure:"api" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// CollectionConfig represents the multi-source collection layer configuration
type CollectionConfig struct {
	Sources             []SourceConfig `mapstructure:"sources" validate:"required,min=1,dive"`
	FetchTimeoutSeconds int            `mapstructure:"fetch_timeout_seconds" validate:"required,gt=0"`
	BreakerMaxFailures  int            `mapstructure:"breaker_max_failures" validate:"required,gt=0"`
	BreakerWindowSecs   int            `mapstructure:"breaker_window_seconds" validate:"required,gt=0"`
	BreakerCooldownSecs int            `mapstructure:"breaker_cooldown_seconds" validate:"required,gt=0"`
}

// SourceConfig represents a single provider configuration
type SourceConfig struct {
	Name           string   `mapstructure:"name" validate:"required"`
	Enabled        bool     `mapstructure:"enabled"`
	Endpoint       string   `mapstructure:"endpoint"`
	APIKey         string   `mapstructure:"api_key"`
	DailyQuota     int      `mapstructure:"daily_quota" validate:"omitempty,gt=0"`
	Books          []string `mapstructure:"books"`
	CadenceSeconds int      `mapstructure:"cadence_seconds" validate:"omitempty,gte=5"`
}

// PipelineConfig represents staging/curated pipeline configuration
type PipelineConfig struct {
	StagingBatchSize int `mapstructure:"staging_batch_size" validate:"required,gt=0"`
	LagThresholdSecs int `mapstructure:"lag_threshold_seconds" validate:"required,gt=0"`
	OutcomePollSecs  int `mapstructure:"outcome_poll_seconds" validate:"required,gte=30"`
}

// DetectorConfig represents detector engine configuration
type DetectorConfig struct {
	RunTimeoutSeconds int      `mapstructure:"run_timeout_seconds" validate:"required,gt=0"`
	Markets           []string `mapstructure:"markets" validate:"required,min=1,markets"`
	MinSampleSize     int      `mapstructure:"min_sample_size" validate:"required,gt=0"`
}

// ArbiterConfig represents arbitration configuration
type ArbiterConfig struct {
	ConfidenceFloor float64 `mapstructure:"confidence_floor" validate:"required,gte=0,lte=1"`
	JuiceLimit      int     `mapstructure:"juice_limit" validate:"required,lt=0"`
	AmbiguityMargin float64 `mapstructure:"ambiguity_margin" validate:"required,gt=0,lte=1"`
}

// BacktestConfig represents backtesting configuration
type BacktestConfig struct {
	StartDate     string `mapstructure:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate       string `mapstructure:"end_date" validate:"required,datetime=2006-01-02"`
	ChunkDays     int    `mapstructure:"chunk_days" validate:"required,gt=0"`
	MinSampleSize int    `mapstructure:"min_sample_size" validate:"required,gt=0"`
}

// TunerConfig represents performance tuner configuration
type TunerConfig struct {
	Cron             string  `mapstructure:"cron" validate:"required"`
	PromoteROI       float64 `mapstructure:"promote_roi" validate:"required,gt=0"`
	DemoteROI        float64 `mapstructure:"demote_roi" validate:"lte=0"`
	DisableROI       float64 `mapstructure:"disable_roi" validate:"required,lt=0"`
	TightenIncrement float64 `mapstructure:"tighten_increment" validate:"required,gt=0"`
}

// APIConfig represents the outbound interface configuration
type APIConfig struct {
	Port            int  `mapstructure:"port" validate:"required,min=1,max=65535"`
	StreamEnabled   bool `mapstructure:"stream_enabled"`
	SnapshotTTLSecs int  `mapstructure:"snapshot_ttl_seconds" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
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

// FetchTimeout returns the per-source fetch timeout as a duration
func (c *CollectionConfig) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutSeconds) * time.Second
}

// BreakerWindow returns the failure counting window as a duration
func (c *CollectionConfig) BreakerWindow() time.Duration {
	return time.Duration(c.BreakerWindowSecs) * time.Second
}

// BreakerCooldown returns the half-open cooldown as a duration
func (c *CollectionConfig) BreakerCooldown() time.Duration {
	return time.Duration(c.BreakerCooldownSecs) * time.Second
}

// SourceByName returns the configuration block for the named source
func (c *CollectionConfig) SourceByName(name string) (SourceConfig, bool) {
	for _, src := range c.Sources {
		if src.Name == name {
			return src, true
		}
	}
	return SourceConfig{}, false
}
