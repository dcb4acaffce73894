package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// APIURLEnv names the environment variable that overrides the backend base URL.
const APIURLEnv = "SCRIBE_API_URL"

// FallbackAPIURL is used when no base URL is configured anywhere.
const FallbackAPIURL = "http://localhost:3001"

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Credentials CredentialsConfig `toml:"credentials"`
	Database    DatabaseConfig    `toml:"database"`
	Stream      StreamConfig      `toml:"stream"`
	Mock        MockConfig        `toml:"mock"`
}

// ServerConfig points the client at the transformation backend.
type ServerConfig struct {
	BaseURL string `toml:"base_url"`
}

// CredentialsConfig controls how the bearer credential is persisted.
type CredentialsConfig struct {
	Cookie CookieConfig `toml:"cookie"`
}

// CookieConfig overrides the derived scope of the ambient auth cookie.
//
// Domain empty means derive from the base URL. Secure is one of "auto", "always", "never".
type CookieConfig struct {
	Name   string `toml:"name"`
	Domain string `toml:"domain"`
	Secure string `toml:"secure"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// StreamConfig tunes the streaming operation client.
type StreamConfig struct {
	IdleTimeout Duration `toml:"idle_timeout"`
	RateLimit   float64  `toml:"rate_limit"`
	Buffer      int      `toml:"buffer"`
}

// MockConfig configures the local mock backend started by `scribe serve`.
type MockConfig struct {
	Addr     string   `toml:"addr"`
	Username string   `toml:"username"`
	Password string   `toml:"password"`
	Secret   string   `toml:"secret"`
	TokenTTL Duration `toml:"token_ttl"`
	Delay    Duration `toml:"delay"`
	Framed   bool     `toml:"framed"`
}

// Duration is a [time.Duration] that decodes from TOML strings such as "2m" or "40ms".
type Duration struct {
	time.Duration
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		d.Duration = 0
		return nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("%w: duration %q: %v", ErrInvalidConfig, s, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements [encoding.TextMarshaler].
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
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

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv loads variables from the dotenv files (default ".env") without overriding the real environment.
//
// Missing files are not an error.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// APIURL resolves the backend base URL.
//
// Precedence: $SCRIBE_API_URL, then [server] base_url, then fallback (build-time default or [FallbackAPIURL]).
func (c *Config) APIURL(fallback string) string {
	if v := strings.TrimSpace(os.Getenv(APIURLEnv)); v != "" {
		return strings.TrimRight(v, "/")
	}
	if c.Server.BaseURL != "" {
		return strings.TrimRight(c.Server.BaseURL, "/")
	}
	if fallback != "" {
		return strings.TrimRight(fallback, "/")
	}
	return FallbackAPIURL
}
