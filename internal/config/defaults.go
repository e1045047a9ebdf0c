package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultDataDir           = "data"
	DefaultLoadConcurrency   = 4
	DefaultLowerQuantile     = 0.01
	DefaultUpperQuantile     = 0.80
	DefaultParamsFile        = "params.json"
	DefaultDuration          = 3600.0
	DefaultSeed              = 1
	DefaultProgressInterval  = 100_000
	DefaultOutputDir         = "output"
	DefaultPriceSeriesFile   = "prices.tsv"
	DefaultDepthProfileFile  = "depth.tsv"
	DefaultDelimiter         = "tab"
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultBatchSize         = 1000
	DefaultFlushInterval     = 1 * time.Second
	DefaultBufferSize        = 10000
	DefaultCacheDir          = ".calibration-cache"
	DefaultStreamAddr        = ":8080"
	DefaultStreamPath        = "/prices"
	DefaultWriteTimeout      = 10 * time.Second
	DefaultPingInterval      = 15 * time.Second
	DefaultKafkaTopic        = "lob.prices"
	DefaultKafkaBatchSize    = 100
	DefaultKafkaBatchTimeout = 100 * time.Millisecond
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
)

// ApplyDefaults fills unset optional fields.
func (c *Config) ApplyDefaults() {
	// Data defaults
	if c.Data.Dir == "" {
		c.Data.Dir = DefaultDataDir
	}
	if c.Data.Concurrency == 0 {
		c.Data.Concurrency = DefaultLoadConcurrency
	}

	// Calibration defaults
	if c.Calibration.LowerQuantile == 0 && c.Calibration.UpperQuantile == 0 {
		c.Calibration.LowerQuantile = DefaultLowerQuantile
		c.Calibration.UpperQuantile = DefaultUpperQuantile
	}
	if c.Calibration.ParamsFile == "" {
		c.Calibration.ParamsFile = DefaultParamsFile
	}

	// Simulation defaults
	if c.Simulation.Duration == 0 {
		c.Simulation.Duration = DefaultDuration
	}
	if c.Simulation.Seed == 0 {
		c.Simulation.Seed = DefaultSeed
	}
	if c.Simulation.ProgressInterval == 0 {
		c.Simulation.ProgressInterval = DefaultProgressInterval
	}

	// Output defaults
	if c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Output.PriceSeries == "" {
		c.Output.PriceSeries = DefaultPriceSeriesFile
	}
	if c.Output.DepthProfile == "" {
		c.Output.DepthProfile = DefaultDepthProfileFile
	}
	if c.Output.Delimiter == "" {
		c.Output.Delimiter = DefaultDelimiter
	}

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	// Cache defaults
	if c.Cache.Dir == "" {
		c.Cache.Dir = DefaultCacheDir
	}

	// Stream defaults
	if c.Stream.Addr == "" {
		c.Stream.Addr = DefaultStreamAddr
	}
	if c.Stream.Path == "" {
		c.Stream.Path = DefaultStreamPath
	}
	if c.Stream.WriteTimeout == 0 {
		c.Stream.WriteTimeout = DefaultWriteTimeout
	}
	if c.Stream.PingInterval == 0 {
		c.Stream.PingInterval = DefaultPingInterval
	}

	// Kafka defaults
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = DefaultKafkaTopic
	}
	if c.Kafka.BatchSize == 0 {
		c.Kafka.BatchSize = DefaultKafkaBatchSize
	}
	if c.Kafka.BatchTimeout == 0 {
		c.Kafka.BatchTimeout = DefaultKafkaBatchTimeout
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
