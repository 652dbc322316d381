package config

import "time"

// Config is the root gateway configuration.
type Config struct {
	Server         ServerConfig         `yaml:"server" json:"server"`
	Logging        LoggingConfig        `yaml:"logging" json:"logging"`
	Tracing        TracingConfig        `yaml:"tracing" json:"tracing"`
	Metrics        MetricsConfig        `yaml:"metrics" json:"metrics"`
	SchemaRegistry SchemaRegistryConfig `yaml:"schemaRegistry" json:"schemaRegistry"`
	Source         SourceConfig         `yaml:"source" json:"source"`
	Rules          RulesConfig          `yaml:"rules" json:"rules"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Address            string   `yaml:"address" json:"address"`
	Port               int      `yaml:"port" json:"port"`
	ReadTimeout        Duration `yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout       Duration `yaml:"writeTimeout" json:"writeTimeout"`
	IdleTimeout        Duration `yaml:"idleTimeout" json:"idleTimeout"`
	MaxRequestBodySize int64    `yaml:"maxRequestBodySize" json:"maxRequestBodySize"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

// TracingConfig configures OpenTelemetry export.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	ServiceName  string  `yaml:"serviceName" json:"serviceName"`
	OTLPEndpoint string  `yaml:"otlpEndpoint" json:"otlpEndpoint"`
	SamplingRate float64 `yaml:"samplingRate" json:"samplingRate"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// SchemaRegistryConfig configures fetching of schema documents referenced
// by validation rules.
type SchemaRegistryConfig struct {
	Timeout        Duration             `yaml:"timeout" json:"timeout"`
	MaxBodySize    int64                `yaml:"maxBodySize" json:"maxBodySize"`
	RateLimit      RateLimitConfig      `yaml:"rateLimit" json:"rateLimit"`
	CircuitBreaker CircuitBreakerConfig `yaml:"circuitBreaker" json:"circuitBreaker"`
	Retry          RetryConfig          `yaml:"retry" json:"retry"`
}

// SourceConfig configures retrieval of remote sample payloads.
type SourceConfig struct {
	Timeout     Duration    `yaml:"timeout" json:"timeout"`
	MaxBodySize int64       `yaml:"maxBodySize" json:"maxBodySize"`
	Retry       RetryConfig `yaml:"retry" json:"retry"`
}

// RateLimitConfig configures a token bucket.
type RateLimitConfig struct {
	Enabled           bool `yaml:"enabled" json:"enabled"`
	RequestsPerSecond int  `yaml:"requestsPerSecond" json:"requestsPerSecond"`
	Burst             int  `yaml:"burst" json:"burst"`
}

// RetryConfig configures retries of transient upstream failures. Zero
// MaxRetries disables retrying.
type RetryConfig struct {
	MaxRetries     int      `yaml:"maxRetries" json:"maxRetries"`
	InitialBackoff Duration `yaml:"initialBackoff" json:"initialBackoff"`
	MaxBackoff     Duration `yaml:"maxBackoff" json:"maxBackoff"`
}

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	Enabled   bool     `yaml:"enabled" json:"enabled"`
	Threshold int      `yaml:"threshold" json:"threshold"`
	Timeout   Duration `yaml:"timeout" json:"timeout"`
}

// RulesConfig points at the rule set file.
type RulesConfig struct {
	Path          string   `yaml:"path" json:"path"`
	Watch         bool     `yaml:"watch" json:"watch"`
	DebounceDelay Duration `yaml:"debounceDelay" json:"debounceDelay"`
}

// Default values.
const (
	DefaultPort               = 8080
	DefaultMaxRequestBodySize = 10 << 20
	DefaultFetchTimeout       = 10 * time.Second
	DefaultFetchMaxBodySize   = 5 << 20
	DefaultMetricsPath        = "/metrics"
	DefaultServiceName        = "avaxform"
)

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               DefaultPort,
			ReadTimeout:        Duration(30 * time.Second),
			WriteTimeout:       Duration(30 * time.Second),
			IdleTimeout:        Duration(120 * time.Second),
			MaxRequestBodySize: DefaultMaxRequestBodySize,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Tracing: TracingConfig{
			ServiceName:  DefaultServiceName,
			SamplingRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    DefaultMetricsPath,
		},
		SchemaRegistry: SchemaRegistryConfig{
			Timeout:     Duration(DefaultFetchTimeout),
			MaxBodySize: DefaultFetchMaxBodySize,
			RateLimit: RateLimitConfig{
				RequestsPerSecond: 20,
				Burst:             40,
			},
			CircuitBreaker: CircuitBreakerConfig{
				Threshold: 5,
				Timeout:   Duration(30 * time.Second),
			},
		},
		Source: SourceConfig{
			Timeout:     Duration(DefaultFetchTimeout),
			MaxBodySize: DefaultFetchMaxBodySize,
		},
		Rules: RulesConfig{
			DebounceDelay: Duration(100 * time.Millisecond),
		},
	}
}
