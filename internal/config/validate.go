package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Data.Symbol == "" {
		return errors.New("data.symbol is required")
	}
	if c.Data.Concurrency < 1 {
		return errors.New("data.concurrency must be >= 1")
	}
	for i, d := range c.Data.Dates {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return fmt.Errorf("data.dates[%d] must be YYYY-MM-DD, got %q", i, d)
		}
	}

	lo, hi := c.Calibration.LowerQuantile, c.Calibration.UpperQuantile
	if lo < 0 || hi > 1 || lo >= hi {
		return fmt.Errorf("calibration quantiles must satisfy 0 <= lower_quantile < upper_quantile <= 1, got [%v, %v]", lo, hi)
	}

	if c.Simulation.Duration <= 0 {
		return fmt.Errorf("simulation.duration must be > 0, got %v", c.Simulation.Duration)
	}
	if c.Simulation.RecordDepth < 0 {
		return errors.New("simulation.record_depth must be >= 0")
	}
	if c.Simulation.InitialDay != "" {
		if _, err := time.Parse(time.DateOnly, c.Simulation.InitialDay); err != nil {
			return fmt.Errorf("simulation.initial_day must be YYYY-MM-DD, got %q", c.Simulation.InitialDay)
		}
	}

	switch c.Output.Delimiter {
	case "tab", "comma":
	default:
		return fmt.Errorf("output.delimiter must be tab or comma, got %q", c.Output.Delimiter)
	}

	if c.Database.Enabled {
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
		if c.Writers.BatchSize < 1 {
			return errors.New("writers.batch_size must be >= 1")
		}
		if c.Writers.BufferSize < 1 {
			return errors.New("writers.buffer_size must be >= 1")
		}
	}

	if c.Stream.Enabled && !strings.HasPrefix(c.Stream.Path, "/") {
		return fmt.Errorf("stream.path must start with /, got %q", c.Stream.Path)
	}

	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return errors.New("kafka.brokers is required")
		}
		if c.Kafka.Topic == "" {
			return errors.New("kafka.topic is required")
		}
	}

	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// SlogLevel maps the configured level name onto a slog level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level must be debug, info, warn or error, got %q", l.Level)
	}
}
