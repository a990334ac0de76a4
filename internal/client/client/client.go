package client

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Client is the API surface used by the CLI.
type Client interface {
	Health(ctx context.Context) error
	Register(ctx context.Context, email, password string) (*Session, error)
	Login(ctx context.Context, email, password, code string) (*LoginResult, error)
	Balance(ctx context.Context) (*Balance, error)
	RotateAPIKey(ctx context.Context) (string, error)
	SetupTwoFactor(ctx context.Context) (*Enrollment, error)
	VerifyTwoFactor(ctx context.Context, code string) (bool, error)
	DisableTwoFactor(ctx context.Context, code string) error
	Networks(ctx context.Context) ([]Network, error)
	RequestAddress(ctx context.Context, network string) (*Address, error)
	Convert(ctx context.Context, req ConvertRequest) (json.RawMessage, error)
	SetToken(token string)
}

type Session struct {
	Token     string    `json:"token"`
	APIKey    string    `json:"api_key"`
	UserID    string    `json:"user_id,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// LoginResult holds either a session or Requires2FA when the account has
// two-factor enabled and no code was sent.
type LoginResult struct {
	Session     *Session
	Requires2FA bool
}

type Balance struct {
	Balance decimal.Decimal `json:"balance"`
	Used    decimal.Decimal `json:"used"`
	Tier    string          `json:"tier"`
}

type Enrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

type Network struct {
	Code string `json:"network"`
	Name string `json:"name"`
}

type Address struct {
	Address     string `json:"address"`
	Network     string `json:"network"`
	NetworkName string `json:"network_name"`
}

type ConvertRequest struct {
	Input     string   `json:"input"`
	Type      string   `json:"type,omitempty"`
	MaxTokens int      `json:"max_tokens,omitempty"`
	Expand    []string `json:"expand,omitempty"`
}
