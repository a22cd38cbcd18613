package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// DefaultJWTSecret is only acceptable for local development.
const DefaultJWTSecret = "adrata-dev-secret-change-me"

// DatabaseConfig holds the TiDB/MySQL connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
}

// IsLocal reports whether the host is a loopback address; remote hosts get TLS.
func (d DatabaseConfig) IsLocal() bool {
	return d.Host == "" || d.Host == "127.0.0.1" || d.Host == "localhost"
}

// ProviderConfig holds credentials for one enrichment vendor
type ProviderConfig struct {
	APIKey  string
	BaseURL string
}

// Enabled reports whether an API key is configured.
func (p ProviderConfig) Enabled() bool {
	return p.APIKey != ""
}

// EnrichmentConfig controls the enrichment pipeline
type EnrichmentConfig struct {
	CoreSignal        ProviderConfig
	Lusha             ProviderConfig
	Prospeo           ProviderConfig
	BrightData        ProviderConfig
	BrightDataDataset string
	RequestsPerMinute int
	Concurrency       int
	CachePath         string
	CacheTTL          time.Duration
	Schedule          string
}

// LogConfig controls the zap logger
type LogConfig struct {
	Level  string
	Format string
	File   string
}

// Config is the full runtime configuration
type Config struct {
	Database   DatabaseConfig
	Port       string
	JWTSecret  string
	Log        LogConfig
	Enrichment EnrichmentConfig
	RulesFile  string
}

// UsesDefaultSecret reports whether JWT_SECRET was left unset.
func (c *Config) UsesDefaultSecret() bool {
	return c.JWTSecret == DefaultJWTSecret
}

var envFiles = []string{".env.local", ".env"}

// LoadEnvFiles loads the first .env files found in the working directory or up
// to two parents. Existing environment variables win.
func LoadEnvFiles() {
	for _, dir := range []string{".", "..", filepath.Join("..", "..")} {
		for _, name := range envFiles {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				_ = godotenv.Load(path)
			}
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("TIDB_HOST", "127.0.0.1")
	v.SetDefault("TIDB_PORT", "4000")
	v.SetDefault("TIDB_USER", "root")
	v.SetDefault("TIDB_PASSWORD", "")
	v.SetDefault("TIDB_DATABASE", "adrata")
	v.SetDefault("PORT", "3001")
	v.SetDefault("JWT_SECRET", DefaultJWTSecret)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_FILE", "")
	v.SetDefault("CORESIGNAL_BASE_URL", "https://api.coresignal.com")
	v.SetDefault("LUSHA_BASE_URL", "https://api.lusha.com")
	v.SetDefault("PROSPEO_BASE_URL", "https://api.prospeo.io")
	v.SetDefault("BRIGHTDATA_BASE_URL", "https://api.brightdata.com")
	v.SetDefault("BRIGHTDATA_DATASET_ID", "gd_l1viktl72bvl7bjuj0")
	v.SetDefault("ENRICH_REQUESTS_PER_MINUTE", 60)
	v.SetDefault("ENRICH_CONCURRENCY", 4)
	v.SetDefault("ENRICH_CACHE_PATH", "")
	v.SetDefault("ENRICH_CACHE_TTL", "24h")
	v.SetDefault("ENRICH_SCHEDULE", "*/5 * * * *")
	v.SetDefault("FAKE_RULES_FILE", "")
}

// Load reads .env files, the optional adrata.yaml and the environment.
func Load() (*Config, error) {
	LoadEnvFiles()

	v := viper.New()
	setDefaults(v)
	v.SetConfigName("adrata")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".adrata"))
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	ttl, err := time.ParseDuration(v.GetString("ENRICH_CACHE_TTL"))
	if err != nil {
		return nil, fmt.Errorf("invalid ENRICH_CACHE_TTL: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     v.GetString("TIDB_HOST"),
			Port:     v.GetString("TIDB_PORT"),
			User:     v.GetString("TIDB_USER"),
			Password: v.GetString("TIDB_PASSWORD"),
			Database: v.GetString("TIDB_DATABASE"),
		},
		Port:      v.GetString("PORT"),
		JWTSecret: v.GetString("JWT_SECRET"),
		Log: LogConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
			File:   v.GetString("LOG_FILE"),
		},
		Enrichment: EnrichmentConfig{
			CoreSignal:        ProviderConfig{APIKey: v.GetString("CORESIGNAL_API_KEY"), BaseURL: v.GetString("CORESIGNAL_BASE_URL")},
			Lusha:             ProviderConfig{APIKey: v.GetString("LUSHA_API_KEY"), BaseURL: v.GetString("LUSHA_BASE_URL")},
			Prospeo:           ProviderConfig{APIKey: v.GetString("PROSPEO_API_KEY"), BaseURL: v.GetString("PROSPEO_BASE_URL")},
			BrightData:        ProviderConfig{APIKey: v.GetString("BRIGHTDATA_API_KEY"), BaseURL: v.GetString("BRIGHTDATA_BASE_URL")},
			BrightDataDataset: v.GetString("BRIGHTDATA_DATASET_ID"),
			RequestsPerMinute: v.GetInt("ENRICH_REQUESTS_PER_MINUTE"),
			Concurrency:       v.GetInt("ENRICH_CONCURRENCY"),
			CachePath:         v.GetString("ENRICH_CACHE_PATH"),
			CacheTTL:          ttl,
			Schedule:          v.GetString("ENRICH_SCHEDULE"),
		},
		RulesFile: v.GetString("FAKE_RULES_FILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings that would only fail later at runtime.
func (c *Config) Validate() error {
	for name, port := range map[string]string{"TIDB_PORT": c.Database.Port, "PORT": c.Port} {
		if _, err := strconv.Atoi(port); err != nil {
			return fmt.Errorf("invalid %s %q: must be numeric", name, port)
		}
	}
	if c.Enrichment.Concurrency < 1 {
		return fmt.Errorf("invalid ENRICH_CONCURRENCY %d: must be at least 1", c.Enrichment.Concurrency)
	}
	if c.Enrichment.RequestsPerMinute < 1 {
		return fmt.Errorf("invalid ENRICH_REQUESTS_PER_MINUTE %d: must be at least 1", c.Enrichment.RequestsPerMinute)
	}
	if _, err := cron.ParseStandard(c.Enrichment.Schedule); err != nil {
		return fmt.Errorf("invalid ENRICH_SCHEDULE %q: %w", c.Enrichment.Schedule, err)
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid LOG_FORMAT %q: must be console or json", c.Log.Format)
	}
	return nil
}
