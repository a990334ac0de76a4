package config

import (
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	ServerURL   string
	SessionFile string
	Timeout     time.Duration
}

// DefaultSessionFile is ~/.any2json/config.json, or ./.any2json/config.json
// when the home directory is unknown.
func DefaultSessionFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".any2json", "config.json")
}

func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.SessionFile = DefaultSessionFile()
	c.Timeout = 30 * time.Second
}

// LoadConfig applies defaults, then the JSON file and flags found in args.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
