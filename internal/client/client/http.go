package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/any2json/internal/common"
)

type HTTPClient struct {
	baseURL string
	http    *http.Client
	token   string
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// do sends in as JSON (when non-nil) and decodes a 2xx body into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response, data []byte) error {
	e := &APIError{StatusCode: resp.StatusCode}

	var body struct {
		Error     string `json:"error"`
		Code      string `json:"code"`
		Retryable bool   `json:"retryable"`
	}
	if json.Unmarshal(data, &body) == nil && body.Code != "" {
		e.Code, e.Message, e.Retryable = body.Code, body.Error, body.Retryable
	} else {
		e.Message = strings.TrimSpace(string(data))
		if e.Message == "" {
			e.Message = http.StatusText(resp.StatusCode)
		}
	}
	if s, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
		e.RetryAfter = time.Duration(s) * time.Second
	}
	return e
}

func (c *HTTPClient) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	TOTPCode string `json:"totp_code,omitempty"`
}

func (c *HTTPClient) Register(ctx context.Context, email, password string) (*Session, error) {
	var s Session
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", credentials{Email: email, Password: password}, &s); err != nil {
		return nil, err
	}
	c.token = s.Token
	return &s, nil
}

func (c *HTTPClient) Login(ctx context.Context, email, password, code string) (*LoginResult, error) {
	var resp struct {
		Session
		Requires2FA bool `json:"requires_2fa"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", credentials{Email: email, Password: password, TOTPCode: code}, &resp); err != nil {
		return nil, err
	}
	if resp.Requires2FA {
		return &LoginResult{Requires2FA: true}, nil
	}
	c.token = resp.Token
	s := resp.Session
	return &LoginResult{Session: &s}, nil
}

func (c *HTTPClient) Balance(ctx context.Context) (*Balance, error) {
	var b Balance
	if err := c.do(ctx, http.MethodGet, "/api/account/balance", nil, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (c *HTTPClient) RotateAPIKey(ctx context.Context) (string, error) {
	var resp struct {
		APIKey string `json:"api_key"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/account/regenerate-key", nil, &resp); err != nil {
		return "", err
	}
	return resp.APIKey, nil
}

func (c *HTTPClient) SetupTwoFactor(ctx context.Context) (*Enrollment, error) {
	var e Enrollment
	if err := c.do(ctx, http.MethodPost, "/api/account/2fa/setup", nil, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

func (c *HTTPClient) VerifyTwoFactor(ctx context.Context, code string) (bool, error) {
	var resp struct {
		Success bool `json:"success"`
	}
	path := "/api/account/2fa/verify?code=" + url.QueryEscape(code)
	if err := c.do(ctx, http.MethodPost, path, nil, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

func (c *HTTPClient) DisableTwoFactor(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/api/account/2fa/disable", map[string]string{"code": code}, nil)
}

func (c *HTTPClient) Networks(ctx context.Context) ([]Network, error) {
	var out []Network
	if err := c.do(ctx, http.MethodGet, "/api/payments/networks", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) RequestAddress(ctx context.Context, network string) (*Address, error) {
	var a Address
	if err := c.do(ctx, http.MethodPost, "/api/payments/get-address", map[string]string{"network": network}, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *HTTPClient) Convert(ctx context.Context, req ConvertRequest) (json.RawMessage, error) {
	if strings.TrimSpace(req.Input) == "" {
		return nil, errors.New("input is required")
	}
	var out json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/api/convert", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
