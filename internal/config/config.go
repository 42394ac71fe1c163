// Package config loads and validates service configuration from defaults,
// an optional YAML file, and PAPERDISC_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config is the root of the service configuration tree.
type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Metrics      MetricsConfig      `mapstructure:"metrics"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Summarizer   SummarizerConfig   `mapstructure:"summarizer"`
	Discovery    DiscoveryConfig    `mapstructure:"discovery"`
	PaperSources PaperSourcesConfig `mapstructure:"paper_sources"`
}

// ServerConfig holds the HTTP and metrics listener settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	HTTPPort        int           `mapstructure:"http_port" validate:"gt=0,lte=65535"`
	MetricsPort     int           `mapstructure:"metrics_port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPAddress returns the host:port the API server binds to.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the host:port the metrics server binds to.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	AddSource  bool   `mapstructure:"add_source"`
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds Prometheus exposure settings.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	Namespace string `mapstructure:"namespace"`
}

// CacheConfig holds Redis cache settings. With Enabled false the service
// runs on a no-op cache.
type CacheConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	RedisURL   string        `mapstructure:"redis_url"`
	SummaryTTL time.Duration `mapstructure:"summary_ttl" validate:"gte=0"`
	SampleTTL  time.Duration `mapstructure:"sample_ttl" validate:"gte=0"`
}

// SummarizerConfig holds generation backend settings. With Enabled false
// every summary request takes the deterministic fallback path.
type SummarizerConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	BaseURL string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// DiscoveryConfig holds aggregation and sampling settings. YearFrom is an
// exclusive lower bound on the publication year.
type DiscoveryConfig struct {
	MinCitations  int    `mapstructure:"min_citations" validate:"gte=0"`
	YearFrom      int    `mapstructure:"year_from" validate:"gte=0"`
	PrimarySource string `mapstructure:"primary_source" validate:"oneof=arxiv crossref openalex semantic_scholar"`
}

// PaperSourcesConfig groups the per-provider API settings. ContactEmail
// identifies the service to providers with polite-pool policies (Crossref,
// OpenAlex).
type PaperSourcesConfig struct {
	ContactEmail    string            `mapstructure:"contact_email" validate:"omitempty,email"`
	ArXiv           PaperSourceConfig `mapstructure:"arxiv"`
	Crossref        PaperSourceConfig `mapstructure:"crossref"`
	OpenAlex        PaperSourceConfig `mapstructure:"openalex"`
	SemanticScholar PaperSourceConfig `mapstructure:"semantic_scholar"`
}

// PaperSourceConfig holds the settings for one provider API. APIKey is
// excluded from file and viper loading and comes only from the
// PAPERDISC_PAPER_SOURCES_<SOURCE>_API_KEY environment variable.
type PaperSourceConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	APIKey     string        `mapstructure:"-"`
	BaseURL    string        `mapstructure:"base_url" validate:"omitempty,url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	RateLimit  float64       `mapstructure:"rate_limit" validate:"gte=0"`
	MaxResults int           `mapstructure:"max_results" validate:"gte=0"`
}

// Load builds the configuration from defaults, then an optional config.yaml
// (working directory, ./config, or /etc/paper-discovery-service), then
// environment variables, and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("PAPERDISC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/paper-discovery-service")

	if err := v.ReadInConfig(); err != nil {
		// A missing config file is fine; env vars and defaults carry it.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadSecrets reads API keys straight from the environment, never from
// config files.
func loadSecrets(cfg *Config) {
	const prefix = "PAPERDISC_PAPER_SOURCES_"
	cfg.PaperSources.ArXiv.APIKey = os.Getenv(prefix + "ARXIV_API_KEY")
	cfg.PaperSources.Crossref.APIKey = os.Getenv(prefix + "CROSSREF_API_KEY")
	cfg.PaperSources.OpenAlex.APIKey = os.Getenv(prefix + "OPENALEX_API_KEY")
	cfg.PaperSources.SemanticScholar.APIKey = os.Getenv(prefix + "SEMANTIC_SCHOLAR_API_KEY")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "paper_discovery")

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.redis_url", "redis://localhost:6379/0")
	v.SetDefault("cache.summary_ttl", "2h")
	v.SetDefault("cache.sample_ttl", "5m")

	v.SetDefault("summarizer.enabled", true)
	v.SetDefault("summarizer.base_url", "http://localhost:8001")
	v.SetDefault("summarizer.timeout", "60s")

	v.SetDefault("discovery.min_citations", 50)
	v.SetDefault("discovery.year_from", 2015)
	v.SetDefault("discovery.primary_source", "openalex")

	// Per-provider defaults. The arXiv rate honors their 3 req/s guidance.
	sourceDefaults := map[string]struct {
		baseURL    string
		rateLimit  float64
		maxResults int
	}{
		"arxiv":            {"https://export.arxiv.org/api", 3.0, 100},
		"crossref":         {"https://api.crossref.org", 5.0, 100},
		"openalex":         {"https://api.openalex.org", 10.0, 200},
		"semantic_scholar": {"https://api.semanticscholar.org/graph/v1", 10.0, 100},
	}
	for name, d := range sourceDefaults {
		prefix := "paper_sources." + name
		v.SetDefault(prefix+".enabled", true)
		v.SetDefault(prefix+".base_url", d.baseURL)
		v.SetDefault(prefix+".timeout", "30s")
		v.SetDefault(prefix+".rate_limit", d.rateLimit)
		v.SetDefault(prefix+".max_results", d.maxResults)
	}
}

// Validate checks tag constraints plus the cross-field rules the tag
// language cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return fmt.Errorf("invalid configuration structure: %w", err)
		}

		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return fmt.Errorf("invalid value for %s: failed %q constraint", fe.Namespace(), fe.Tag())
		}
		return err
	}

	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache.redis_url is required when cache is enabled")
	}
	if c.Summarizer.Enabled && c.Summarizer.BaseURL == "" {
		return fmt.Errorf("summarizer.base_url is required when summarizer is enabled")
	}
	return nil
}
