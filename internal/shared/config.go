package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"

	KeyStrategyWidget = "widget"
	KeyStrategyUser   = "user"
)

// Duration wraps [time.Duration] so it can be written as "4s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("%w: invalid duration %q", ErrInvalidConfig, string(text))
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Store       StoreConfig       `toml:"store"`
	Database    DatabaseConfig    `toml:"database"`
	Redis       RedisConfig       `toml:"redis"`
	Server      ServerConfig      `toml:"server"`
	Widget      WidgetConfig      `toml:"widget"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API credentials and endpoints.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AuthURL      string `toml:"auth_url"`
	TokenURL     string `toml:"token_url"`
	APIURL       string `toml:"api_url"`
}

// StoreConfig selects the key-value backend.
type StoreConfig struct {
	Backend string `toml:"backend"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// RedisConfig contains the Redis connection URL.
type RedisConfig struct {
	URL string `toml:"url"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string   `toml:"host"`
	Port            int      `toml:"port"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	AllowDisconnect bool     `toml:"allow_disconnect"`
	RateLimit       float64  `toml:"rate_limit"`
	RateBurst       int      `toml:"rate_burst"`
	RequestTimeout  Duration `toml:"request_timeout"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// WidgetConfig controls keying and cache timing.
type WidgetConfig struct {
	KeyStrategy  string   `toml:"key_strategy"`
	CacheWindow  Duration `toml:"cache_window"`
	SafetyMargin Duration `toml:"safety_margin"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level string `toml:"level"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values omitted from the file keep the embedded defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads path when it exists (defaults otherwise), then applies environment overrides.
//
// A .env file in the working directory is loaded first if present.
func ResolveConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := config.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return config, nil
}

// ApplyEnv overlays environment variables onto the config.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	strs := map[string]*string{
		"SPOTIFY_CLIENT_ID":       &c.Credentials.Spotify.ClientID,
		"SPOTIFY_CLIENT_SECRET":   &c.Credentials.Spotify.ClientSecret,
		"SPOTIFY_REDIRECT_URI":    &c.Credentials.Spotify.RedirectURI,
		"NOWPLAYING_STORE":        &c.Store.Backend,
		"NOWPLAYING_DB_PATH":      &c.Database.Path,
		"NOWPLAYING_REDIS_URL":    &c.Redis.URL,
		"NOWPLAYING_KEY_STRATEGY": &c.Widget.KeyStrategy,
		"NOWPLAYING_HOST":         &c.Server.Host,
		"LOG_LEVEL":               &c.Log.Level,
	}
	for name, dst := range strs {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("NOWPLAYING_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: NOWPLAYING_PORT has invalid value %q", ErrInvalidConfig, v)
		}
		c.Server.Port = port
	}

	if v, ok := lookup("NOWPLAYING_ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, origin)
			}
		}
	}

	if v, ok := lookup("NOWPLAYING_CACHE_WINDOW"); ok && v != "" {
		if err := c.Widget.CacheWindow.UnmarshalText([]byte(v)); err != nil {
			return err
		}
	}

	return nil
}

// Validate checks the settings required to run the service.
func (c *Config) Validate() error {
	if c.Credentials.Spotify.ClientID == "" || c.Credentials.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if c.Credentials.Spotify.RedirectURI == "" {
		return fmt.Errorf("%w: spotify redirect_uri must be set", ErrInvalidConfig)
	}

	switch c.Store.Backend {
	case StoreSQLite:
		if c.Database.Path == "" {
			return fmt.Errorf("%w: database path must be set for sqlite store", ErrInvalidConfig)
		}
	case StoreRedis:
		if c.Redis.URL == "" {
			return fmt.Errorf("%w: redis url must be set for redis store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	switch c.Widget.KeyStrategy {
	case KeyStrategyWidget, KeyStrategyUser:
	default:
		return fmt.Errorf("%w: unknown key strategy %q", ErrInvalidConfig, c.Widget.KeyStrategy)
	}

	if c.Widget.CacheWindow.Duration <= 0 {
		return fmt.Errorf("%w: cache_window must be positive", ErrInvalidConfig)
	}
	if c.Widget.SafetyMargin.Duration < 0 {
		return fmt.Errorf("%w: safety_margin must not be negative", ErrInvalidConfig)
	}
	if c.Server.RequestTimeout.Duration <= 0 {
		return fmt.Errorf("%w: request_timeout must be positive", ErrInvalidConfig)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
