package pagewalk

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/pagewalk/internal/browser"
	"github.com/hazyhaar/pagewalk/paginate"
)

// Config is the top-level pagewalk configuration.
type Config struct {
	// Database is the SQLite path for sessions and items.
	Database string `yaml:"database"`

	// Listen is the HTTP API address.
	Listen string `yaml:"listen"`

	// UserAgent for the static fetcher.
	UserAgent string `yaml:"user_agent"`

	// ForceBrowser skips the static-sufficiency check and runs every
	// session through Chrome.
	ForceBrowser bool `yaml:"force_browser"`

	Browser browser.Config `yaml:"browser"`

	// Paginate is the default per-session configuration; session requests
	// may carry their own.
	Paginate paginate.Config `yaml:"paginate"`
}

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("pagewalk: parse config: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Database == "" {
		c.Database = "pagewalk.db"
	}
	if c.Listen == "" {
		c.Listen = ":8087"
	}
	if c.UserAgent == "" {
		c.UserAgent = "Mozilla/5.0 (compatible; pagewalk/1.0)"
	}
	c.Paginate.Defaults()
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
