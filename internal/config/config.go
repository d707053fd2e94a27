package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Cache   Cache   `yaml:"cache"`
	Stats   Stats   `yaml:"stats"`
	Import  Import  `yaml:"import"`
	Fetch   Fetch   `yaml:"fetch"`
	Logging Logging `yaml:"logging"`
}

type Server struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Storage struct {
	DataDir string `yaml:"data_dir"`
}

// Cache configures the optional redis cache for stats payloads. An empty
// RedisURL disables caching.
type Cache struct {
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

type Stats struct {
	TagLimit int    `yaml:"tag_limit"`
	Timezone string `yaml:"timezone"`
}

type Import struct {
	Feeds    []Feed         `yaml:"feeds"`
	Defaults Classification `yaml:"defaults"`
}

type Feed struct {
	URL    string `yaml:"url"`
	PageID int64  `yaml:"page_id"`
	Type   string `yaml:"type"`
}

// Classification is applied to imported stories until an analyst reviews them.
type Classification struct {
	Feeling string `yaml:"feeling"`
	Tone    string `yaml:"tone"`
	Ironic  string `yaml:"ironic"`
}

type Fetch struct {
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ConfigDir returns the XDG config directory for storystats.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "storystats")
}

// DataDir returns the XDG data directory for storystats.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "storystats")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/storystats/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'storystats init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file, then applies .env and
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}

	// A missing .env is the normal case outside development.
	_ = godotenv.Load()
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Server: Server{
			Port:           8000,
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Cache: Cache{TTL: 30 * time.Second},
		Stats: Stats{TagLimit: 20, Timezone: "UTC"},
		Import: Import{
			Defaults: Classification{Feeling: "calm", Tone: "informal", Ironic: "unclear"},
		},
		Fetch:   Fetch{Timeout: 15 * time.Second, UserAgent: "storystats/1.0"},
		Logging: Logging{Level: "info", Format: "text"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("STORYSTATS_DATA_DIR"); ok && v != "" {
		c.Storage.DataDir = v
	}
	if v, ok := lookup("STORYSTATS_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid STORYSTATS_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("REDIS_URL"); ok {
		c.Cache.RedisURL = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v, ok := lookup("FRONTEND_URL"); ok && v != "" {
		c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, v)
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Storage.DataDir != "" {
		return c.Storage.DataDir
	}
	return DataDir()
}

// Location resolves the stats timezone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Stats.Timezone)
	if err != nil || c.Stats.Timezone == "" {
		return time.UTC
	}
	return loc
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
