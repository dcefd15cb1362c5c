// Package config provides application configuration with multi-source
// priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override)
//  2. Config file (~/.gurukul/config.yaml or ./config.yaml)
//  3. Default values
//
// Sensitive values (database password, API key) are masked in MarshalJSON
// and String; validation runs at load time so misconfiguration fails fast.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the Azure OpenAI API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingEndpoint indicates the Azure OpenAI endpoint is missing.
	ErrMissingEndpoint = errors.New("missing endpoint")

	// ErrInvalidEndpoint indicates the Azure OpenAI endpoint is not a valid URL.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrMissingDeployment indicates a required model deployment name is missing.
	ErrMissingDeployment = errors.New("missing deployment name")

	// ErrInvalidChunking indicates the chunking parameters are out of range.
	ErrInvalidChunking = errors.New("invalid chunking parameters")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")

	// ErrInvalidListenAddr indicates the HTTP listen address is invalid.
	ErrInvalidListenAddr = errors.New("invalid listen address")
)

// Config stores application configuration.
// Sensitive fields are masked in MarshalJSON; when adding new secrets,
// update that method.
type Config struct {
	// Azure OpenAI configuration
	AzureEndpoint    string `mapstructure:"azure_endpoint" json:"azure_endpoint"`
	AzureAPIKey      string `mapstructure:"azure_api_key" json:"azure_api_key"` // SENSITIVE: masked in MarshalJSON
	AzureAPIVersion  string `mapstructure:"azure_api_version" json:"azure_api_version"`
	EmbedDeployment  string `mapstructure:"embed_deployment" json:"embed_deployment"`
	AnswerDeployment string `mapstructure:"answer_deployment" json:"answer_deployment"`

	// Chunking configuration
	ChunkMaxChars int `mapstructure:"chunk_max_chars" json:"chunk_max_chars"`
	ChunkOverlap  int `mapstructure:"chunk_overlap" json:"chunk_overlap"`

	// Storage configuration (see storage.go)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// HTTP server configuration
	ListenAddr     string  `mapstructure:"listen_addr" json:"listen_addr"`
	RateLimitRPS   float64 `mapstructure:"rate_limit_rps" json:"rate_limit_rps"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst" json:"rate_limit_burst"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`

	// Observability configuration (see observability.go)
	Tracing TracingConfig `mapstructure:"tracing" json:"tracing"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".gurukul")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// Missing config file is not an error, defaults apply.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using defaults",
			"search_paths", []string{configDir, "."})
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL takes priority over individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	// Azure OpenAI defaults
	viper.SetDefault("azure_api_version", "2024-02-01")
	viper.SetDefault("embed_deployment", "text-embedding-3-small")
	viper.SetDefault("answer_deployment", "gpt-4o-mini")

	// Chunking defaults
	viper.SetDefault("chunk_max_chars", 2000)
	viper.SetDefault("chunk_overlap", 180)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "gurukul")
	viper.SetDefault("postgres_password", "gurukul_dev_password")
	viper.SetDefault("postgres_db_name", "gurukul")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// HTTP server defaults
	viper.SetDefault("listen_addr", ":8080")
	viper.SetDefault("rate_limit_rps", 10.0)
	viper.SetDefault("rate_limit_burst", 20)

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", true)

	// Tracing defaults
	viper.SetDefault("tracing.enabled", false)
	viper.SetDefault("tracing.otlp_endpoint", "localhost:4318")
	viper.SetDefault("tracing.environment", "dev")
	viper.SetDefault("tracing.service_name", "gurukul")
}

// bindEnvVariables binds environment variables explicitly. Hardcoded keys
// cannot fail to bind; a bind error here is a bug, hence the panic.
func bindEnvVariables() {
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	// Secrets
	mustBind("azure_api_key", "AZURE_OPENAI_API_KEY")

	// Azure OpenAI overrides
	mustBind("azure_endpoint", "AZURE_OPENAI_ENDPOINT")
	mustBind("azure_api_version", "AZURE_OPENAI_API_VERSION")
	mustBind("embed_deployment", "GURUKUL_EMBED_DEPLOYMENT")
	mustBind("answer_deployment", "GURUKUL_ANSWER_DEPLOYMENT")

	// Server overrides
	mustBind("listen_addr", "GURUKUL_LISTEN_ADDR")
	mustBind("log_level", "GURUKUL_LOG_LEVEL")

	// Tracing overrides
	mustBind("tracing.enabled", "GURUKUL_TRACING_ENABLED")
	mustBind("tracing.otlp_endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	// NOTE: DATABASE_URL is read directly in parseDatabaseURL, not via Viper.
}

// maskedValue is the placeholder for masked sensitive data. Full-width
// blocks avoid accidental substring matches against real secret content.
const maskedValue = "████████"

// maskSecret masks a secret for safe logging. Secrets of 8 chars or fewer
// are fully masked; longer ones keep the first and last 2 characters for
// debug utility. This defends against accidental logging, not against
// compromised logs.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking. When adding new secrets, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.AzureAPIKey = maskSecret(a.AzureAPIKey)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
