package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pesio-ai/be-claims-evaluator/internal/errors"
)

// Config is the full service configuration.
type Config struct {
	Service    ServiceConfig    `mapstructure:"service"`
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Sync       SyncConfig       `mapstructure:"sync"`
	Pipeline   PipelineConfig   `mapstructure:"pipeline"`
	Log        LogConfig        `mapstructure:"log"`
}

type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	GRPCPort        int           `mapstructure:"grpc_port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Host        string        `mapstructure:"host"`
	Port        int           `mapstructure:"port"`
	User        string        `mapstructure:"user"`
	Password    string        `mapstructure:"password"`
	Database    string        `mapstructure:"database"`
	SSLMode     string        `mapstructure:"ssl_mode"`
	MaxConns    int32         `mapstructure:"max_conns"`
	MinConns    int32         `mapstructure:"min_conns"`
	MaxConnTime time.Duration `mapstructure:"max_conn_time"`
	MaxIdleTime time.Duration `mapstructure:"max_idle_time"`
	HealthCheck time.Duration `mapstructure:"health_check"`
}

// ExtractionConfig configures the vision extraction collaborator. When
// AzureEndpoint is set the Azure OpenAI flavour is used, otherwise BaseURL
// points at any OpenAI-compatible endpoint.
type ExtractionConfig struct {
	AzureEndpoint     string        `mapstructure:"azure_endpoint"`
	APIKey            string        `mapstructure:"api_key"`
	APIVersion        string        `mapstructure:"api_version"`
	Deployment        string        `mapstructure:"deployment"`
	BaseURL           string        `mapstructure:"base_url"`
	SASToken          string        `mapstructure:"sas_token"`
	MaxTokens         int           `mapstructure:"max_tokens"`
	Timeout           time.Duration `mapstructure:"timeout"`
	DocumentTimeout   time.Duration `mapstructure:"document_timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
	Concurrency       int           `mapstructure:"concurrency"`
	RenderDPI         float64       `mapstructure:"render_dpi"`
}

type SyncConfig struct {
	BackendURL string        `mapstructure:"backend_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	NATSURL    string        `mapstructure:"nats_url"`
	Subject    string        `mapstructure:"subject"`
}

type PipelineConfig struct {
	StageTimeout      time.Duration `mapstructure:"stage_timeout"`
	ExtractionTimeout time.Duration `mapstructure:"extraction_timeout"`
	RulebookPath      string        `mapstructure:"rulebook_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("service.name", "be-claims-evaluator")
	v.SetDefault("service.version", "0.1.0")
	v.SetDefault("service.environment", "development")

	v.SetDefault("server.port", 8002)
	v.SetDefault("server.grpc_port", 9002)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 5*time.Minute)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.request_timeout", 5*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "insurance_ai")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_time", time.Hour)
	v.SetDefault("database.max_idle_time", 30*time.Minute)
	v.SetDefault("database.health_check", time.Minute)

	// Empty defaults register the keys so AutomaticEnv can fill them on Unmarshal.
	v.SetDefault("extraction.azure_endpoint", "")
	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.base_url", "")
	v.SetDefault("extraction.sas_token", "")
	v.SetDefault("extraction.api_version", "2024-02-15-preview")
	v.SetDefault("extraction.deployment", "gpt-4o")
	v.SetDefault("extraction.max_tokens", 1000)
	v.SetDefault("extraction.timeout", 60*time.Second)
	v.SetDefault("extraction.document_timeout", 2*time.Minute)
	v.SetDefault("extraction.max_attempts", 3)
	v.SetDefault("extraction.requests_per_second", 2.0)
	v.SetDefault("extraction.burst", 4)
	v.SetDefault("extraction.cache_ttl", 30*time.Minute)
	v.SetDefault("extraction.concurrency", 4)
	v.SetDefault("extraction.render_dpi", 144.0)

	v.SetDefault("sync.backend_url", "http://localhost:8000")
	v.SetDefault("sync.timeout", 5*time.Second)
	v.SetDefault("sync.subject", "claims.evaluation")
	v.SetDefault("sync.nats_url", "")

	v.SetDefault("pipeline.stage_timeout", 30*time.Second)
	v.SetDefault("pipeline.extraction_timeout", 3*time.Minute)
	v.SetDefault("pipeline.rulebook_path", "")

	v.SetDefault("log.level", "info")
}

// Load reads configuration from the optional file and CLAIMS_* environment
// variables (CLAIMS_DATABASE_HOST overrides database.host).
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix("CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to read config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInvalidInput, "failed to decode config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values a running service cannot do without.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return errors.InvalidInput("server.port", "must be positive")
	}
	if c.Pipeline.StageTimeout <= 0 {
		return errors.InvalidInput("pipeline.stage_timeout", "must be positive")
	}
	if c.Extraction.MaxAttempts < 1 {
		return errors.InvalidInput("extraction.max_attempts", "must be at least 1")
	}
	if c.Extraction.Concurrency < 1 {
		return errors.InvalidInput("extraction.concurrency", "must be at least 1")
	}
	return nil
}
