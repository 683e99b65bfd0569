package config

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App        AppConfig
	Lookup     LookupConfig
	Providers  ProvidersConfig
	Blocklist  BlocklistConfig
	History    HistoryConfig
	ClickHouse ClickHouseConfig
	JWT        JWTConfig
	RateLimit  RateLimitConfig
}

type AppConfig struct {
	Env  string
	Port int
	Host string
}

type LookupConfig struct {
	GeoCacheTTL     time.Duration
	URLCacheTTL     time.Duration
	ProviderTimeout time.Duration
	UserAgent       string
}

type ProvidersConfig struct {
	IPAPIRatePerMinute int
	IPInfoToken        string
	AbuseIPDBKey       string
	URLhausKey         string
	ThreatFoxKey       string
	GreyNoiseKey       string
}

type BlocklistConfig struct {
	Enabled         bool
	RegistryPath    string
	RefreshInterval time.Duration
	MaxConcurrent   int
}

type HistoryConfig struct {
	Enabled bool
}

type ClickHouseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	RequestsPerMinute int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/app")
	viper.AddConfigPath("/etc/vigilancex")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables
	bindEnvVars()

	// Set defaults
	setDefaults()

	// Try to read config file (optional)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("Error reading config file", "error", err)
		}
	}

	config := &Config{
		App: AppConfig{
			Env:  viper.GetString("APP_ENV"),
			Port: viper.GetInt("APP_PORT"),
			Host: viper.GetString("APP_HOST"),
		},
		Lookup: LookupConfig{
			GeoCacheTTL:     viper.GetDuration("LOOKUP_GEO_CACHE_TTL"),
			URLCacheTTL:     viper.GetDuration("LOOKUP_URL_CACHE_TTL"),
			ProviderTimeout: viper.GetDuration("LOOKUP_PROVIDER_TIMEOUT"),
			UserAgent:       viper.GetString("LOOKUP_USER_AGENT"),
		},
		Providers: ProvidersConfig{
			IPAPIRatePerMinute: viper.GetInt("IPAPI_RATE_PER_MINUTE"),
			IPInfoToken:        viper.GetString("IPINFO_TOKEN"),
			AbuseIPDBKey:       viper.GetString("ABUSEIPDB_API_KEY"),
			URLhausKey:         viper.GetString("URLHAUS_API_KEY"),
			ThreatFoxKey:       viper.GetString("THREATFOX_API_KEY"),
			GreyNoiseKey:       viper.GetString("GREYNOISE_API_KEY"),
		},
		Blocklist: BlocklistConfig{
			Enabled:         viper.GetBool("BLOCKLIST_ENABLED"),
			RegistryPath:    viper.GetString("BLOCKLIST_REGISTRY_PATH"),
			RefreshInterval: viper.GetDuration("BLOCKLIST_REFRESH_INTERVAL"),
			MaxConcurrent:   viper.GetInt("BLOCKLIST_MAX_CONCURRENT"),
		},
		History: HistoryConfig{
			Enabled: viper.GetBool("HISTORY_ENABLED"),
		},
		ClickHouse: ClickHouseConfig{
			Host:     viper.GetString("CLICKHOUSE_HOST"),
			Port:     viper.GetInt("CLICKHOUSE_PORT"),
			User:     viper.GetString("CLICKHOUSE_USER"),
			Password: viper.GetString("CLICKHOUSE_PASSWORD"),
			Database: viper.GetString("CLICKHOUSE_DATABASE"),
		},
		JWT: JWTConfig{
			Secret: viper.GetString("JWT_SECRET"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: viper.GetInt("RATE_LIMIT_PER_MINUTE"),
		},
	}

	return config, nil
}

func bindEnvVars() {
	// App
	viper.BindEnv("APP_ENV")
	viper.BindEnv("APP_PORT")
	viper.BindEnv("APP_HOST")

	// Lookup engines
	viper.BindEnv("LOOKUP_GEO_CACHE_TTL")
	viper.BindEnv("LOOKUP_URL_CACHE_TTL")
	viper.BindEnv("LOOKUP_PROVIDER_TIMEOUT")
	viper.BindEnv("LOOKUP_USER_AGENT")

	// Providers
	viper.BindEnv("IPAPI_RATE_PER_MINUTE")
	viper.BindEnv("IPINFO_TOKEN")
	viper.BindEnv("ABUSEIPDB_API_KEY")
	viper.BindEnv("URLHAUS_API_KEY")
	viper.BindEnv("THREATFOX_API_KEY")
	viper.BindEnv("GREYNOISE_API_KEY")

	// Blocklists
	viper.BindEnv("BLOCKLIST_ENABLED")
	viper.BindEnv("BLOCKLIST_REGISTRY_PATH")
	viper.BindEnv("BLOCKLIST_REFRESH_INTERVAL")
	viper.BindEnv("BLOCKLIST_MAX_CONCURRENT")

	// History
	viper.BindEnv("HISTORY_ENABLED")

	// ClickHouse
	viper.BindEnv("CLICKHOUSE_HOST")
	viper.BindEnv("CLICKHOUSE_PORT")
	viper.BindEnv("CLICKHOUSE_USER")
	viper.BindEnv("CLICKHOUSE_PASSWORD")
	viper.BindEnv("CLICKHOUSE_DATABASE")

	// JWT
	viper.BindEnv("JWT_SECRET")

	// Rate limiting
	viper.BindEnv("RATE_LIMIT_PER_MINUTE")
}

func setDefaults() {
	// App defaults
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", 8080)
	viper.SetDefault("APP_HOST", "0.0.0.0")

	// Lookup defaults
	viper.SetDefault("LOOKUP_GEO_CACHE_TTL", 24*time.Hour)
	viper.SetDefault("LOOKUP_URL_CACHE_TTL", time.Hour)
	viper.SetDefault("LOOKUP_PROVIDER_TIMEOUT", 12*time.Second)
	viper.SetDefault("LOOKUP_USER_AGENT", "vigilancex-lookup/1.0")

	// ip-api.com free tier allows 45 requests per minute
	viper.SetDefault("IPAPI_RATE_PER_MINUTE", 45)

	// Blocklist defaults
	viper.SetDefault("BLOCKLIST_ENABLED", true)
	viper.SetDefault("BLOCKLIST_REFRESH_INTERVAL", time.Hour)
	viper.SetDefault("BLOCKLIST_MAX_CONCURRENT", 3)

	viper.SetDefault("HISTORY_ENABLED", false)

	// ClickHouse defaults
	viper.SetDefault("CLICKHOUSE_HOST", "localhost")
	viper.SetDefault("CLICKHOUSE_PORT", 9000)
	viper.SetDefault("CLICKHOUSE_USER", "vigilance")
	viper.SetDefault("CLICKHOUSE_DATABASE", "vigilance_x")

	viper.SetDefault("RATE_LIMIT_PER_MINUTE", 100)
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// AdminEnabled reports whether admin routes can be authenticated
func (c *Config) AdminEnabled() bool {
	return c.JWT.Secret != ""
}

func SetupLogger(cfg *Config) *slog.Logger {
	return SetupLoggerTo(cfg, os.Stdout)
}

// SetupLoggerTo installs the default logger writing to w
func SetupLoggerTo(cfg *Config, w io.Writer) *slog.Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if cfg.IsDevelopment() {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	return logger
}
