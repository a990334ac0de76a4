package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/any2json/internal/flagx"
	"github.com/dmitrijs2005/any2json/internal/timex"
)

type JsonConfig struct {
	ServerURL   string         `json:"server_url"`
	SessionFile string         `json:"session_file"`
	Timeout     timex.Duration `json:"timeout"`
}

// parseJson overlays cfg with the file named by -c/-config. Missing keys keep
// their current values.
func parseJson(cfg *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	jc := JsonConfig{ServerURL: cfg.ServerURL, SessionFile: cfg.SessionFile, Timeout: timex.Duration{Duration: cfg.Timeout}}
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	cfg.ServerURL = jc.ServerURL
	cfg.SessionFile = jc.SessionFile
	cfg.Timeout = jc.Timeout.Duration
	return nil
}
