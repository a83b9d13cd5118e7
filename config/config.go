// Package config loads the daemon configuration from TOML.
package config

import "time"

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Address        string   `toml:"address"`
	AllowedOrigins []string `toml:"allowed_origins"`
	RatePerMinute  int      `toml:"rate_per_minute"`
	MaxConcurrent  int      `toml:"max_concurrent_requests"`
	EnableMetrics  bool     `toml:"enable_metrics"`
}

// ProviderConfig configures the quoting provider endpoints.
type ProviderConfig struct {
	URL            string   `toml:"url"`
	BackupURLs     []string `toml:"backup_urls"`
	TimeoutSeconds int      `toml:"timeout_seconds"`
}

// QuotingConfig configures the state machine timings and the chain
// allow-list.
type QuotingConfig struct {
	PollIntervalSeconds     int      `toml:"poll_interval_seconds"`
	DebounceWindowMillis    int      `toml:"debounce_window_ms"`
	SupportedChains         []string `toml:"supported_chains"`
	BlockMaxLag             uint64   `toml:"block_max_lag"`
	HeadPollIntervalSeconds int      `toml:"head_poll_interval_seconds"`
}

// RegistryConfig configures the token registry download.
type RegistryConfig struct {
	// Source is a go-getter style URL, e.g. "github.com/org/token-registry//tokens".
	Source string `toml:"source"`
	// Dir is where the downloaded registry lives.
	Dir string `toml:"dir"`
}

// TelemetryConfig configures the OpenTelemetry exporters.
type TelemetryConfig struct {
	ServiceName    string `toml:"service_name"`
	ServiceVersion string `toml:"service_version"`
	Environment    string `toml:"environment"`
	EnableTracing  bool   `toml:"enable_tracing"`
	UseOTLPTraces  bool   `toml:"use_otlp_traces"`
	OTLPTracesURL  string `toml:"otlp_traces_url"`
	UseOTLPMetrics bool   `toml:"use_otlp_metrics"`
	OTLPMetricsURL string `toml:"otlp_metrics_url"`
	EnableLogs     bool   `toml:"enable_logs"`
	UseOTLPLogs    bool   `toml:"use_otlp_logs"`
	OTLPLogsURL    string `toml:"otlp_logs_url"`
	InsecureOTLP   bool   `toml:"insecure_otlp"`
}

// Config is the root of the daemon's TOML config file.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Provider  ProviderConfig  `toml:"provider"`
	Quoting   QuotingConfig   `toml:"quoting"`
	Registry  RegistryConfig  `toml:"registry"`
	Telemetry TelemetryConfig `toml:"telemetry"`
}

// PollInterval returns the quote poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Quoting.PollIntervalSeconds) * time.Second
}

// DebounceWindow returns the debounce window as a duration.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Quoting.DebounceWindowMillis) * time.Millisecond
}

// HeadPollInterval returns how often the block oracle polls the provider.
func (c *Config) HeadPollInterval() time.Duration {
	return time.Duration(c.Quoting.HeadPollIntervalSeconds) * time.Second
}

// applyDefaults fills unset optional fields.
func (c *Config) applyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = "localhost:8080"
	}
	if c.Provider.TimeoutSeconds == 0 {
		c.Provider.TimeoutSeconds = 10
	}
	if c.Quoting.PollIntervalSeconds == 0 {
		c.Quoting.PollIntervalSeconds = 15
	}
	if c.Quoting.DebounceWindowMillis == 0 {
		c.Quoting.DebounceWindowMillis = 200
	}
	if c.Quoting.BlockMaxLag == 0 {
		c.Quoting.BlockMaxLag = 2
	}
	if c.Quoting.HeadPollIntervalSeconds == 0 {
		c.Quoting.HeadPollIntervalSeconds = 6
	}
	if c.Registry.Dir == "" {
		c.Registry.Dir = "generated/tokens"
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "swapquote"
	}
	if c.Telemetry.ServiceVersion == "" {
		c.Telemetry.ServiceVersion = "1.0.0"
	}
	if c.Telemetry.Environment == "" {
		c.Telemetry.Environment = "production"
	}
}
