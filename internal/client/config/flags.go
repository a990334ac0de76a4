package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/any2json/internal/flagx"
)

// Flags lists the global flags that take a value, so command parsing can skip them.
var Flags = []string{"-a", "-f", "-t", "-c", "-config"}

func parseFlags(cfg *Config, args []string) error {
	fs := flag.NewFlagSet("client", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server base URL")
	fs.StringVar(&cfg.SessionFile, "f", cfg.SessionFile, "session file")
	fs.DurationVar(&cfg.Timeout, "t", cfg.Timeout, "request timeout")

	return fs.Parse(flagx.FilterArgs(args, []string{"-a", "-f", "-t"}))
}
