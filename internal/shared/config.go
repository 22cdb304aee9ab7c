package shared

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Pipeline    PipelineConfig    `toml:"pipeline"`
	Policy      PolicyConfig      `toml:"policy"`
	Moods       MoodsConfig       `toml:"moods"`
	Trace       TraceConfig       `toml:"trace"`
	Outputs     OutputsConfig     `toml:"outputs"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains Spotify API client credentials and the search market.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Market       string `toml:"market"`
}

// Map returns the credentials in the shape expected by the Spotify catalog constructor.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"market":        s.Market,
	}
}

// CatalogConfig selects the candidate source.
type CatalogConfig struct {
	Source      string  `toml:"source"`
	FixturePath string  `toml:"fixture_path"`
	RateLimit   float64 `toml:"rate_limit"`
}

// PipelineConfig holds the per-run defaults; flags and query parameters override them.
type PipelineConfig struct {
	Seed               int64 `toml:"seed"`
	PlaylistSize       int   `toml:"playlist_size"`
	CriticMaxCalls     int   `toml:"critic_max_calls"`
	ComplianceMaxCalls int   `toml:"compliance_max_calls"`
	Candidates         int   `toml:"candidates"`
	GenreCap           int   `toml:"genre_cap"`
}

// PolicyConfig points at the denylist/allowlist directory.
type PolicyConfig struct {
	Dir string `toml:"dir"`
}

// MoodsConfig points at an optional preset table override.
type MoodsConfig struct {
	PresetsPath string `toml:"presets_path"`
}

// TraceConfig controls where trace files are written.
type TraceConfig struct {
	Dir    string `toml:"dir"`
	Prefix string `toml:"prefix"`
}

// OutputsConfig controls where CLI playlist files are written.
type OutputsConfig struct {
	Dir string `toml:"dir"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	AllowedOrigins []string `toml:"allowed_origins"`
}

// Addr returns host:port for [net/http.Server].
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Values missing from the file keep the embedded defaults, and SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET
// override the file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read config file: %v", ErrMissingConfig, err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("%w: failed to parse config: %v", ErrInvalidConfig, err)
	}

	config.applyEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	config.applyEnv()
	return &config
}

// Validate checks values that would make every run fail.
func (c *Config) Validate() error {
	switch {
	case c.Pipeline.PlaylistSize < 1:
		return fmt.Errorf("%w: pipeline.playlist_size must be >= 1", ErrInvalidConfig)
	case c.Pipeline.CriticMaxCalls < 0 || c.Pipeline.ComplianceMaxCalls < 0:
		return fmt.Errorf("%w: pipeline budgets must be >= 0", ErrInvalidConfig)
	case c.Pipeline.Candidates < 1:
		return fmt.Errorf("%w: pipeline.candidates must be >= 1", ErrInvalidConfig)
	case c.Pipeline.GenreCap < 1:
		return fmt.Errorf("%w: pipeline.genre_cap must be >= 1", ErrInvalidConfig)
	case c.Catalog.Source != "spotify" && c.Catalog.Source != "file":
		return fmt.Errorf("%w: catalog.source must be spotify or file, got %q", ErrInvalidConfig, c.Catalog.Source)
	}
	return nil
}

func (c *Config) applyEnv() {
	if id := os.Getenv("SPOTIFY_CLIENT_ID"); id != "" {
		c.Credentials.Spotify.ClientID = id
	}
	if secret := os.Getenv("SPOTIFY_CLIENT_SECRET"); secret != "" {
		c.Credentials.Spotify.ClientSecret = secret
	}
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
