package config

import "time"

// Config is the main application configuration struct.
type Config struct {
	App        AppConfig               `mapstructure:"app"`
	Server     ServerConfig            `mapstructure:"server"`
	Camunda    CamundaConfig           `mapstructure:"camunda"`
	Database   DatabaseConfig          `mapstructure:"database"`
	Workers    map[string]WorkerConfig `mapstructure:"workers"`
	Connectors ConnectorsConfig        `mapstructure:"connectors"`
	Dedup      DedupConfig             `mapstructure:"dedup"`
	Breaker    BreakerConfig           `mapstructure:"breaker"`
	Logging    LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	// BaseURL is the public address relative discovery hrefs resolve against.
	BaseURL string `mapstructure:"base_url"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
	DiscoveryPath   string `mapstructure:"discovery_path"`
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Address      string `mapstructure:"address"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  int    `mapstructure:"dial_timeout"` // milliseconds
	IOTimeout    int    `mapstructure:"io_timeout"`   // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// --- Connector Configuration ---

type ConnectorsConfig struct {
	// Strict rejects cards whose builders had to coerce input instead of
	// repairing them silently.
	Strict bool       `mapstructure:"strict"`
	Jira   JiraConfig `mapstructure:"jira"`
}

type JiraConfig struct {
	Enabled   bool     `mapstructure:"enabled"`
	BaseURL   string   `mapstructure:"base_url"`
	Email     string   `mapstructure:"email"`
	APIToken  string   `mapstructure:"api_token"`
	Projects  []string `mapstructure:"projects"`
	JQL       string   `mapstructure:"jql"`
	FetchSize int      `mapstructure:"fetch_size"`
	Timeout   int      `mapstructure:"timeout"`  // milliseconds
	CardTTL   int      `mapstructure:"card_ttl"` // milliseconds
}

// DedupConfig controls the fingerprint store that recognizes cards the hub
// has already been sent.
type DedupConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	TTL       int    `mapstructure:"ttl"` // milliseconds
	KeyPrefix string `mapstructure:"key_prefix"`
}

// BreakerConfig tunes the circuit breaker in front of upstream APIs.
type BreakerConfig struct {
	MaxFailures      uint32 `mapstructure:"max_failures"`
	Interval         int    `mapstructure:"interval"`     // milliseconds
	OpenTimeout      int    `mapstructure:"open_timeout"` // milliseconds
	HalfOpenRequests uint32 `mapstructure:"half_open_requests"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

func (s ServerConfig) ReadTimeoutDuration() time.Duration  { return GetDuration(s.ReadTimeout) }
func (s ServerConfig) WriteTimeoutDuration() time.Duration { return GetDuration(s.WriteTimeout) }
func (s ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return GetDuration(s.ShutdownTimeout)
}
