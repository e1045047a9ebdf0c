package config

import "time"

// Config is the root configuration.
type Config struct {
	Data        DataConfig        `yaml:"data"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Output      OutputConfig      `yaml:"output"`
	Database    DatabaseConfig    `yaml:"database"`
	Writers     WritersConfig     `yaml:"writers"`
	Cache       CacheConfig       `yaml:"cache"`
	Stream      StreamConfig      `yaml:"stream"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	Log         LogConfig         `yaml:"log"`
}

// DataConfig locates the historical LOBSTER files.
type DataConfig struct {
	Dir         string   `yaml:"dir"`
	Symbol      string   `yaml:"symbol"`
	Levels      int      `yaml:"levels"`      // 0 accepts any book depth
	Dates       []string `yaml:"dates"`       // YYYY-MM-DD; empty means all available
	Concurrency int      `yaml:"concurrency"` // Days loaded in parallel
}

// CalibrationConfig holds the calibration band.
type CalibrationConfig struct {
	LowerQuantile float64 `yaml:"lower_quantile"`
	UpperQuantile float64 `yaml:"upper_quantile"`
	ParamsFile    string  `yaml:"params_file"` // Output of calibrate, input of simulate
}

// SimulationConfig holds simulation run settings.
type SimulationConfig struct {
	Duration         float64 `yaml:"duration"` // Seconds of model time
	Seed             uint64  `yaml:"seed"`
	InitialDepthFile string  `yaml:"initial_depth_file"` // side,tick,depth lines; side is B or S
	InitialDay       string  `yaml:"initial_day"`        // Use the last snapshot of this day instead
	RecordDepth      int64   `yaml:"record_depth"`       // Ticks recorded per side; 0 disables recording
	ProgressInterval int64   `yaml:"progress_interval"`  // Events between progress logs
}

// OutputConfig controls exported files.
type OutputConfig struct {
	Dir          string `yaml:"dir"`
	PriceSeries  string `yaml:"price_series"`
	DepthProfile string `yaml:"depth_profile"`
	InitialDepth string `yaml:"initial_depth"` // Book before the first event
	History      string `yaml:"history"`       // Recorded events, if recording is enabled
	Delimiter    string `yaml:"delimiter"`     // "tab" or "comma"
	Dollars      bool   `yaml:"dollars"`       // Render prices in dollars instead of raw units
	DepthTicks   bool   `yaml:"depth_ticks"`   // Depth files in ticks, loadable as initial_depth_file
	Compress     bool   `yaml:"compress"`
}

// DatabaseConfig holds the TimescaleDB connection for simulated series.
type DatabaseConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// CacheConfig holds the per-day calibration cache.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
	// Refresh drops cached entries of the calibrated days and recomputes them.
	Refresh bool `yaml:"refresh"`
}

// StreamConfig holds the live price WebSocket server.
type StreamConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Addr         string        `yaml:"addr"`
	Path         string        `yaml:"path"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	PingInterval time.Duration `yaml:"ping_interval"`
}

// KafkaConfig holds the price update publisher.
type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
