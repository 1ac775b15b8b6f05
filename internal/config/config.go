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
	"github.com/spf13/viper"
)

// MinSecretLength is the shortest accepted JWT signing secret.
const MinSecretLength = 32

// Config holds application configuration
type Config struct {
	DatabaseURL          string
	Port                 string
	DataDir              string
	UploadDir            string
	JWTSecret            string
	TokenTTL             time.Duration
	SecureCookies        bool
	AllowedOrigins       []string
	CacheTTL             time.Duration
	VisitorRetentionDays int
	MaxUploadMB          int
	GeoIPDownload        bool
}

// GeoIPPath is where the GeoLite2 city database is expected.
func (c *Config) GeoIPPath() string {
	return filepath.Join(c.DataDir, "GeoLite2-City.mmdb")
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// Validate reports settings the server cannot start without.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("database_url is required (set DATABASE_URL or --database-url)"))
	}
	if len(c.JWTSecret) < MinSecretLength {
		errs = append(errs, fmt.Errorf("jwt_secret must be at least %d characters", MinSecretLength))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("max_upload_mb must be positive"))
	}
	return errors.Join(errs...)
}

// dotenvFiles are loaded into the process environment before reading config.
// Existing environment variables always win over .env entries.
var dotenvFiles = []string{".env"}

// Load loads configuration from multiple sources with priority:
// 1. Command flags
// 2. Config file (./gmpcms.toml or $XDG_CONFIG_HOME/gmpcms/gmpcms.toml)
// 3. Environment variables (including .env)
func Load() (*Config, error) {
	return LoadWithOverrides("", "", "")
}

// LoadWithOverrides loads config and applies flag overrides
func LoadWithOverrides(databaseURL, port, dataDir string) (*Config, error) {
	loadDotEnv()
	v := newBaseViper()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}
	return buildConfig(v, databaseURL, port, dataDir)
}

func loadDotEnv() {
	for _, file := range dotenvFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		_ = godotenv.Load(file)
	}
}

func newBaseViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("gmpcms")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	// XDG lookup is done by hand so tests can point HOME somewhere else.
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		v.AddConfigPath(filepath.Join(configHome, "gmpcms"))
	}

	return v
}

func buildConfig(v *viper.Viper, overrideDatabaseURL, overridePort, overrideDataDir string) (*Config, error) {
	cfg := &Config{
		DatabaseURL:          stringSetting(v, "database_url", "DATABASE_URL", ""),
		Port:                 stringSetting(v, "port", "PORT", "3000"),
		DataDir:              stringSetting(v, "data_dir", "DATA_DIR", "./data"),
		UploadDir:            stringSetting(v, "upload_dir", "UPLOAD_DIR", ""),
		JWTSecret:            stringSetting(v, "jwt_secret", "JWT_SECRET", ""),
		AllowedOrigins:       []string{"http://localhost:3000"},
		SecureCookies:        true,
		TokenTTL:             24 * time.Hour,
		CacheTTL:             time.Minute,
		VisitorRetentionDays: 365,
		MaxUploadMB:          10,
	}

	var errs []error

	if raw := stringSetting(v, "secure_cookies", "SECURE_COOKIES", ""); raw != "" {
		cfg.SecureCookies = raw == "true" || raw == "1"
	}
	if raw := stringSetting(v, "geoip_download", "GEOIP_DOWNLOAD", ""); raw != "" {
		cfg.GeoIPDownload = raw == "true" || raw == "1"
	}
	if raw := stringSetting(v, "allowed_origins", "ALLOWED_ORIGINS", ""); raw != "" {
		cfg.AllowedOrigins = parseAllowedOrigins(raw)
	}
	if raw := stringSetting(v, "token_ttl", "TOKEN_TTL", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("token_ttl: %w", err))
		} else {
			cfg.TokenTTL = d
		}
	}
	if raw := stringSetting(v, "cache_ttl", "CACHE_TTL", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("cache_ttl: %w", err))
		} else {
			cfg.CacheTTL = d
		}
	}
	if raw := stringSetting(v, "visitor_retention_days", "VISITOR_RETENTION_DAYS", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("visitor_retention_days: invalid value %q", raw))
		} else {
			cfg.VisitorRetentionDays = n
		}
	}
	if raw := stringSetting(v, "max_upload_mb", "MAX_UPLOAD_MB", ""); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("max_upload_mb: invalid value %q", raw))
		} else {
			cfg.MaxUploadMB = n
		}
	}

	// Apply overrides (flags) last
	if overrideDatabaseURL != "" {
		cfg.DatabaseURL = overrideDatabaseURL
	}
	if overridePort != "" {
		cfg.Port = overridePort
	}
	if overrideDataDir != "" {
		cfg.DataDir = overrideDataDir
	}

	if cfg.UploadDir == "" {
		cfg.UploadDir = filepath.Join(cfg.DataDir, "uploads")
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

// stringSetting prefers the config file, then the environment, then the default.
func stringSetting(v *viper.Viper, key, env, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	if value := os.Getenv(env); value != "" {
		return value
	}
	return def
}

// parseAllowedOrigins parses a comma-separated string into normalized origins,
// silently dropping entries that do not validate.
func parseAllowedOrigins(originsStr string) []string {
	parts := strings.Split(originsStr, ",")
	origins := make([]string, 0, len(parts))

	for _, part := range parts {
		origin, err := NormalizeOrigin(part)
		if err != nil {
			continue
		}
		origins = append(origins, origin)
	}

	return origins
}
