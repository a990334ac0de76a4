package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/any2json/internal/flagx"
	"github.com/dmitrijs2005/any2json/internal/server/models"
	"github.com/dmitrijs2005/any2json/internal/timex"
	"github.com/shopspring/decimal"
)

// JsonConfig mirrors Config for JSON files. Durations accept "168h" or
// nanoseconds; amounts accept strings or numbers.
type JsonConfig struct {
	EndpointAddrHTTP     string           `json:"endpoint_addr_http"`
	EndpointAddrGRPC     string           `json:"endpoint_addr_grpc"`
	Backend              string           `json:"storage"`
	DatabaseDSN          string           `json:"database_dsn"`
	PebblePath           string           `json:"pebble_path"`
	SecretKey            string           `json:"secret_key"`
	TokenTTL             timex.Duration   `json:"token_ttl"`
	TOTPIssuer           string           `json:"totp_issuer"`
	TOTPSkew             uint             `json:"totp_skew"`
	TOTPReplayProtection bool             `json:"totp_replay_protection"`
	RedisAddr            string           `json:"redis_addr"`
	RedisPassword        string           `json:"redis_password"`
	RedisDB              int              `json:"redis_db"`
	RequestCost          decimal.Decimal  `json:"request_cost"`
	FreeAllowance        decimal.Decimal  `json:"free_allowance"`
	FreeUnlimited        bool             `json:"free_unlimited"`
	Networks             []models.Network `json:"networks"`
	PoolSeed             string           `json:"pool_seed"`
	S3Region             string           `json:"s3_region"`
	S3Endpoint           string           `json:"s3_endpoint"`
	S3AccessKey          string           `json:"s3_access_key"`
	S3SecretKey          string           `json:"s3_secret_key"`
	S3UsePathStyle       bool             `json:"s3_use_path_style"`
	AdminToken           string           `json:"admin_token"`
	LogLevel             string           `json:"log_level"`
	LogFormat            string           `json:"log_format"`
}

func toJson(c *Config) *JsonConfig {
	return &JsonConfig{
		EndpointAddrHTTP:     c.EndpointAddrHTTP,
		EndpointAddrGRPC:     c.EndpointAddrGRPC,
		Backend:              c.Backend,
		DatabaseDSN:          c.DatabaseDSN,
		PebblePath:           c.PebblePath,
		SecretKey:            c.SecretKey,
		TokenTTL:             timex.Duration{Duration: c.TokenTTL},
		TOTPIssuer:           c.TOTPIssuer,
		TOTPSkew:             c.TOTPSkew,
		TOTPReplayProtection: c.TOTPReplayProtection,
		RedisAddr:            c.RedisAddr,
		RedisPassword:        c.RedisPassword,
		RedisDB:              c.RedisDB,
		RequestCost:          c.RequestCost,
		FreeAllowance:        c.FreeAllowance,
		FreeUnlimited:        c.FreeUnlimited,
		Networks:             c.Networks,
		PoolSeed:             c.PoolSeed,
		S3Region:             c.S3Region,
		S3Endpoint:           c.S3Endpoint,
		S3AccessKey:          c.S3AccessKey,
		S3SecretKey:          c.S3SecretKey,
		S3UsePathStyle:       c.S3UsePathStyle,
		AdminToken:           c.AdminToken,
		LogLevel:             c.LogLevel,
		LogFormat:            c.LogFormat,
	}
}

func (j *JsonConfig) apply(c *Config) {
	c.EndpointAddrHTTP = j.EndpointAddrHTTP
	c.EndpointAddrGRPC = j.EndpointAddrGRPC
	c.Backend = j.Backend
	c.DatabaseDSN = j.DatabaseDSN
	c.PebblePath = j.PebblePath
	c.SecretKey = j.SecretKey
	c.TokenTTL = j.TokenTTL.Duration
	c.TOTPIssuer = j.TOTPIssuer
	c.TOTPSkew = j.TOTPSkew
	c.TOTPReplayProtection = j.TOTPReplayProtection
	c.RedisAddr = j.RedisAddr
	c.RedisPassword = j.RedisPassword
	c.RedisDB = j.RedisDB
	c.RequestCost = j.RequestCost
	c.FreeAllowance = j.FreeAllowance
	c.FreeUnlimited = j.FreeUnlimited
	c.Networks = j.Networks
	c.PoolSeed = j.PoolSeed
	c.S3Region = j.S3Region
	c.S3Endpoint = j.S3Endpoint
	c.S3AccessKey = j.S3AccessKey
	c.S3SecretKey = j.S3SecretKey
	c.S3UsePathStyle = j.S3UsePathStyle
	c.AdminToken = j.AdminToken
	c.LogLevel = j.LogLevel
	c.LogFormat = j.LogFormat
}

// parseJson overlays the file named by -c/-config onto config. Keys missing
// from the file keep their current values.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigFileFlag(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	j := toJson(config)
	if err := json.Unmarshal(file, j); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	j.apply(config)
	return nil
}
