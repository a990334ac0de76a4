package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const envPrefix = "A2J_"

type envReader struct {
	lookup func(string) (string, bool)
	err    error
}

func (r *envReader) get(name string) (string, bool) {
	if r.err != nil {
		return "", false
	}
	v, ok := r.lookup(envPrefix + name)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (r *envReader) fail(name string, err error) {
	r.err = fmt.Errorf("env %s%s: %w", envPrefix, name, err)
}

func (r *envReader) str(name string, dst *string) {
	if v, ok := r.get(name); ok {
		*dst = v
	}
}

func (r *envReader) boolean(name string, dst *bool) {
	if v, ok := r.get(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(name, err)
			return
		}
		*dst = b
	}
}

func (r *envReader) integer(name string, dst *int) {
	if v, ok := r.get(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(name, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) unsigned(name string, dst *uint) {
	if v, ok := r.get(name); ok {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			r.fail(name, err)
			return
		}
		*dst = uint(n)
	}
}

func (r *envReader) duration(name string, dst *time.Duration) {
	if v, ok := r.get(name); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			r.fail(name, err)
			return
		}
		*dst = d
	}
}

func (r *envReader) amount(name string, dst *decimal.Decimal) {
	if v, ok := r.get(name); ok {
		d, err := decimal.NewFromString(v)
		if err != nil {
			r.fail(name, err)
			return
		}
		*dst = d
	}
}

// parseEnv overlays A2J_* variables onto config.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	r := &envReader{lookup: lookup}

	r.str("HTTP_ADDR", &config.EndpointAddrHTTP)
	r.str("GRPC_ADDR", &config.EndpointAddrGRPC)
	r.str("STORAGE", &config.Backend)
	r.str("DATABASE_DSN", &config.DatabaseDSN)
	r.str("PEBBLE_PATH", &config.PebblePath)
	r.str("SECRET_KEY", &config.SecretKey)
	r.duration("TOKEN_TTL", &config.TokenTTL)
	r.str("TOTP_ISSUER", &config.TOTPIssuer)
	r.unsigned("TOTP_SKEW", &config.TOTPSkew)
	r.boolean("TOTP_REPLAY_PROTECTION", &config.TOTPReplayProtection)
	r.str("REDIS_ADDR", &config.RedisAddr)
	r.str("REDIS_PASSWORD", &config.RedisPassword)
	r.integer("REDIS_DB", &config.RedisDB)
	r.amount("REQUEST_COST", &config.RequestCost)
	r.amount("FREE_ALLOWANCE", &config.FreeAllowance)
	r.boolean("FREE_UNLIMITED", &config.FreeUnlimited)
	r.str("POOL_SEED", &config.PoolSeed)
	r.str("S3_REGION", &config.S3Region)
	r.str("S3_ENDPOINT", &config.S3Endpoint)
	r.str("S3_ACCESS_KEY", &config.S3AccessKey)
	r.str("S3_SECRET_KEY", &config.S3SecretKey)
	r.boolean("S3_USE_PATH_STYLE", &config.S3UsePathStyle)
	r.str("ADMIN_TOKEN", &config.AdminToken)
	r.str("LOG_LEVEL", &config.LogLevel)
	r.str("LOG_FORMAT", &config.LogFormat)

	return r.err
}
