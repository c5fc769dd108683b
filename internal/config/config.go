package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is read by Load when no path is given. A missing file there
// is not an error.
const DefaultPath = "~/.kvdoc/config.toml"

type Config struct {
	Store   StoreConfig   `toml:"store"`
	Server  ServerConfig  `toml:"server"`
	Logging LoggingConfig `toml:"logging"`
}

type StoreConfig struct {
	Engine string `toml:"engine"`
	// Capacity bounds each store in bytes, where the engine supports it.
	// Zero means unbounded.
	Capacity    int64         `toml:"capacity"`
	OpenTimeout time.Duration `toml:"open_timeout"`
	// Pool keeps one handle per store path open for the life of the server.
	Pool bool `toml:"pool"`
}

type ServerConfig struct {
	Transport string `toml:"transport"`
	Listen    string `toml:"listen"`
}

type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Defaults returns a Config with sane defaults.
func Defaults() *Config {
	return &Config{
		Store: StoreConfig{
			Engine:      "bolt",
			Capacity:    10 << 20,
			OpenTimeout: time.Second,
		},
		Server: ServerConfig{
			Transport: "stdio",
			Listen:    "127.0.0.1:8765",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a TOML config file and returns the parsed Config.
// If path is empty, DefaultPath is tried and defaults are returned when it
// does not exist.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path == "" {
		path = expandHome(DefaultPath)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("parsing config: unknown keys %s", strings.Join(keys, ", "))
	}

	return cfg, nil
}

// ExpandHome resolves a leading ~/ to the user's home directory.
func ExpandHome(path string) string {
	return expandHome(path)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
