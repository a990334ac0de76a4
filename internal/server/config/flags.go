package config

import (
	"flag"
	"io"

	"github.com/dmitrijs2005/any2json/internal/flagx"
)

var serverFlags = []string{"-a", "-g", "-b", "-d", "-p", "-s", "-t", "-r", "-n", "-k", "-l"}

// parseFlags overlays command-line flags onto config.
//
//	-a string    HTTP bind address (e.g. ":8080")
//	-g string    gRPC bind address (e.g. ":50051")
//	-b string    storage backend: memory, postgres or pebble
//	-d string    PostgreSQL DSN
//	-p string    Pebble data directory
//	-s string    JWT signing secret
//	-t duration  session token lifetime (e.g. "168h")
//	-r string    Redis address for the TOTP replay guard
//	-n string    address pool seed location
//	-k string    admin token
//	-l string    log level
//
// Only the flags above are taken from args, so -c/-config and unrelated
// arguments pass through untouched.
func parseFlags(config *Config, args []string) error {
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "HTTP address")
	fs.StringVar(&config.EndpointAddrGRPC, "g", config.EndpointAddrGRPC, "gRPC address")
	fs.StringVar(&config.Backend, "b", config.Backend, "storage backend")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.PebblePath, "p", config.PebblePath, "pebble data directory")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenTTL, "t", config.TokenTTL, "token lifetime")
	fs.StringVar(&config.RedisAddr, "r", config.RedisAddr, "redis address")
	fs.StringVar(&config.PoolSeed, "n", config.PoolSeed, "address pool seed")
	fs.StringVar(&config.AdminToken, "k", config.AdminToken, "admin token")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")

	return fs.Parse(flagx.FilterArgs(args, serverFlags))
}
