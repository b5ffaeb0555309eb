package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sydlexius/aurral/internal/logging"
)

// Store drivers.
const (
	DriverFile   = "file"
	DriverSQLite = "sqlite"
)

// PlaceholderContact is the sample contact address shipped in example
// configs. It counts as no contact at all.
const PlaceholderContact = "user@example.com"

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Store       StoreConfig       `yaml:"store"`
	Lidarr      LidarrConfig      `yaml:"lidarr"`
	MusicBrainz MusicBrainzConfig `yaml:"musicbrainz"`
	CoverArt    CoverArtConfig    `yaml:"coverart"`
	LastFM      LastFMConfig      `yaml:"lastfm"`
	Discovery   DiscoveryConfig   `yaml:"discovery"`
	Logging     logging.Config    `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// StoreConfig selects where the persisted document lives.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// LidarrConfig points at the library manager.
type LidarrConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// MusicBrainzConfig holds registry settings. MinInterval is the spacing
// between consecutive requests.
type MusicBrainzConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Contact     string        `yaml:"contact"`
	MinInterval time.Duration `yaml:"min_interval"`
}

// CoverArtConfig holds Cover Art Archive settings.
type CoverArtConfig struct {
	BaseURL string `yaml:"base_url"`
}

// LastFMConfig holds listening-stats settings. An empty key disables the
// provider.
type LastFMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

// DiscoveryConfig controls the background recommendation build.
type DiscoveryConfig struct {
	Interval     time.Duration `yaml:"interval"`
	StartupDelay time.Duration `yaml:"startup_delay"`
	HydrateDelay time.Duration `yaml:"hydrate_delay"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     3001,
			BasePath: "/",
		},
		Store: StoreConfig{
			Driver: DriverFile,
			Path:   "data/db.json",
		},
		Lidarr: LidarrConfig{
			URL: "http://localhost:8686",
		},
		MusicBrainz: MusicBrainzConfig{
			BaseURL:     "https://musicbrainz.org/ws/2",
			MinInterval: 1100 * time.Millisecond,
		},
		CoverArt: CoverArtConfig{
			BaseURL: "https://coverartarchive.org",
		},
		LastFM: LastFMConfig{
			BaseURL: "https://ws.audioscrobbler.com/2.0",
		},
		Discovery: DiscoveryConfig{
			Interval:     24 * time.Hour,
			StartupDelay: 5 * time.Second,
			HydrateDelay: 450 * time.Millisecond,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// HasContact reports whether a real registry contact address is set.
func (c *Config) HasContact() bool {
	contact := strings.TrimSpace(c.MusicBrainz.Contact)
	return contact != "" && !strings.EqualFold(contact, PlaceholderContact)
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("AURRAL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	setString(&c.Server.BasePath, "AURRAL_BASE_PATH")
	setString(&c.Store.Driver, "AURRAL_STORE_DRIVER")
	setString(&c.Store.Path, "AURRAL_STORE_PATH")
	setString(&c.Lidarr.URL, "LIDARR_URL")
	setString(&c.Lidarr.APIKey, "LIDARR_API_KEY")
	setString(&c.LastFM.APIKey, "LASTFM_API_KEY")
	setString(&c.MusicBrainz.Contact, "CONTACT_EMAIL")
	setString(&c.Logging.Level, "AURRAL_LOG_LEVEL")
	setString(&c.Logging.Format, "AURRAL_LOG_FORMAT")
	setString(&c.Logging.FilePath, "AURRAL_LOG_FILE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")

	c.Store.Driver = strings.ToLower(c.Store.Driver)
	switch c.Store.Driver {
	case DriverFile, DriverSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Path == "" {
		return errors.New("store path is required")
	}

	for name, raw := range map[string]string{
		"lidarr url":      c.Lidarr.URL,
		"musicbrainz url": c.MusicBrainz.BaseURL,
		"coverart url":    c.CoverArt.BaseURL,
		"lastfm url":      c.LastFM.BaseURL,
	} {
		if err := checkURL(raw); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	if c.MusicBrainz.MinInterval < time.Second {
		return fmt.Errorf("musicbrainz min_interval %s is below the 1s service limit", c.MusicBrainz.MinInterval)
	}
	if c.Discovery.Interval <= 0 {
		return fmt.Errorf("invalid discovery interval: %s", c.Discovery.Interval)
	}
	if c.Discovery.StartupDelay < 0 || c.Discovery.HydrateDelay < 0 {
		return errors.New("discovery delays must not be negative")
	}

	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("invalid log format %q", c.Logging.Format)
	}
	return nil
}

func checkURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host in %q", raw)
	}
	return nil
}
