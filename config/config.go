// Package config holds the process configuration of the forecaster studio and builds the
// engine, pipeline and job options from it.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	forecaster "github.com/aouyang1/go-forecaster-studio"
	"github.com/aouyang1/go-forecaster-studio/pipeline"
)

var (
	ErrEmptyAddr       = errors.New("addr must not be empty")
	ErrInvalidLogLevel = errors.New("unknown log level")
	ErrInvalidHorizons = errors.New("horizon bounds must satisfy 1 <= min_horizon <= max_horizon")
	ErrInvalidValue    = errors.New("invalid configuration value")
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// MaxUploadBytes caps the size of an uploaded CSV.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	TimeColumn  string `koanf:"time_column"`
	ValueColumn string `koanf:"value_column"`

	MinHorizon int `koanf:"min_horizon"`
	MaxHorizon int `koanf:"max_horizon"`

	// CacheSize is the number of forecast runs kept for the metrics and download endpoints.
	CacheSize int `koanf:"cache_size"`

	IntervalWidth  float64 `koanf:"interval_width"`
	Changepoints   int     `koanf:"changepoints"`
	Regularization float64 `koanf:"regularization"`
	OutlierPasses  int     `koanf:"outlier_passes"`

	// HolidaysCountry adds holiday features for the country, e.g. "US". Empty disables them.
	HolidaysCountry string `koanf:"holidays_country"`

	CVParallelism   int     `koanf:"cv_parallelism"`
	CVRollingWindow float64 `koanf:"cv_rolling_window"`

	// JobsPerSecond and JobsBurst rate limit new cross validation jobs.
	JobsPerSecond float64 `koanf:"jobs_per_second"`
	JobsBurst     int     `koanf:"jobs_burst"`

	// JobTTL is how long a finished job stays available.
	JobTTL time.Duration `koanf:"job_ttl"`
}

// New returns a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8501",
		MaxUploadBytes:  32 << 20,
		TimeColumn:      pipeline.DefaultTimeColumn,
		ValueColumn:     pipeline.DefaultValueColumn,
		MinHorizon:      pipeline.DefaultMinHorizon,
		MaxHorizon:      pipeline.DefaultMaxHorizon,
		CacheSize:       64,
		IntervalWidth:   forecaster.DefaultIntervalWidth,
		Changepoints:    25,
		CVParallelism:   runtime.NumCPU(),
		CVRollingWindow: 0.1,
		JobsPerSecond:   1,
		JobsBurst:       4,
		JobTTL:          30 * time.Minute,
	}
}

// Validate checks values that cannot be used as is.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return ErrEmptyAddr
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	if c.MinHorizon < 1 || c.MaxHorizon < c.MinHorizon {
		return fmt.Errorf("got [%d, %d], %w", c.MinHorizon, c.MaxHorizon, ErrInvalidHorizons)
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes %d, %w", c.MaxUploadBytes, ErrInvalidValue)
	}
	if c.CacheSize <= 0 {
		return fmt.Errorf("cache_size %d, %w", c.CacheSize, ErrInvalidValue)
	}
	if c.Changepoints < 0 {
		return fmt.Errorf("changepoints %d, %w", c.Changepoints, ErrInvalidValue)
	}
	if c.OutlierPasses < 0 {
		return fmt.Errorf("outlier_passes %d, %w", c.OutlierPasses, ErrInvalidValue)
	}
	if c.JobsPerSecond <= 0 || c.JobsBurst <= 0 {
		return fmt.Errorf("jobs_per_second %.3f, jobs_burst %d, %w", c.JobsPerSecond, c.JobsBurst, ErrInvalidValue)
	}
	if c.JobTTL <= 0 {
		return fmt.Errorf("job_ttl %s, %w", c.JobTTL, ErrInvalidValue)
	}
	if err := c.ForecasterOptions().Validate(); err != nil {
		return fmt.Errorf("invalid forecaster options, %w", err)
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c *Config) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%q, %w", c.LogLevel, ErrInvalidLogLevel)
}

// ForecasterOptions builds the engine options. Changepoints of 0 disables automatic changepoints
// and OutlierPasses of 0 disables outlier removal.
func (c *Config) ForecasterOptions() *forecaster.Options {
	opt := forecaster.NewDefaultOptions()
	opt.IntervalWidth = c.IntervalWidth

	series := opt.SeriesOptions
	series.Regularization = c.Regularization
	series.ChangepointOptions.AutoNumChangepoints = c.Changepoints
	series.ChangepointOptions.Auto = c.Changepoints > 0
	series.EventOptions.Country = c.HolidaysCountry

	if c.OutlierPasses > 0 {
		opt.OutlierOptions = forecaster.NewOutlierOptions()
		opt.OutlierOptions.NumPasses = c.OutlierPasses
	}
	return opt
}

// PipelineOptions builds the forecast run options.
func (c *Config) PipelineOptions() *pipeline.Options {
	return &pipeline.Options{
		Load: pipeline.LoadOptions{
			TimeColumn:  c.TimeColumn,
			ValueColumn: c.ValueColumn,
		},
		MinHorizon: c.MinHorizon,
		MaxHorizon: c.MaxHorizon,
		Forecaster: c.ForecasterOptions(),
	}
}
