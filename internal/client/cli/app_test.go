package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/any2json/internal/client/client"
	"github.com/dmitrijs2005/any2json/internal/client/config"
	"github.com/dmitrijs2005/any2json/internal/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	token string

	registerEmail string
	registerErr   error

	loginCalls []string // codes sent
	require2FA bool
	loginErr   error

	balance    *client.Balance
	addressErr error
	convertReq client.ConvertRequest
	verifyOK   bool
	disabled   string
}

func (f *fakeClient) SetToken(token string)        { f.token = token }
func (f *fakeClient) Health(context.Context) error { return nil }

func (f *fakeClient) Register(_ context.Context, email, _ string) (*client.Session, error) {
	f.registerEmail = email
	if f.registerErr != nil {
		return nil, f.registerErr
	}
	return &client.Session{Token: "tok-reg", APIKey: "a2j_reg", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeClient) Login(_ context.Context, _, _, code string) (*client.LoginResult, error) {
	f.loginCalls = append(f.loginCalls, code)
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	if f.require2FA && code == "" {
		return &client.LoginResult{Requires2FA: true}, nil
	}
	return &client.LoginResult{Session: &client.Session{Token: "tok-login", ExpiresAt: time.Now().Add(time.Hour)}}, nil
}

func (f *fakeClient) Balance(context.Context) (*client.Balance, error) { return f.balance, nil }

func (f *fakeClient) RotateAPIKey(context.Context) (string, error) { return "a2j_new", nil }

func (f *fakeClient) SetupTwoFactor(context.Context) (*client.Enrollment, error) {
	return &client.Enrollment{Secret: "JBSWY3DP", URL: "otpauth://totp/any2json:a@b.c"}, nil
}

func (f *fakeClient) VerifyTwoFactor(context.Context, string) (bool, error) { return f.verifyOK, nil }

func (f *fakeClient) DisableTwoFactor(_ context.Context, code string) error {
	f.disabled = code
	return nil
}

func (f *fakeClient) Networks(context.Context) ([]client.Network, error) {
	return []client.Network{{Code: "trc20", Name: "USDT (TRC-20)"}, {Code: "dai", Name: "DAI (Ethereum)"}}, nil
}

func (f *fakeClient) RequestAddress(_ context.Context, network string) (*client.Address, error) {
	if f.addressErr != nil {
		return nil, f.addressErr
	}
	return &client.Address{Address: "TAbc", Network: network, NetworkName: "USDT (TRC-20)"}, nil
}

func (f *fakeClient) Convert(_ context.Context, req client.ConvertRequest) (json.RawMessage, error) {
	f.convertReq = req
	return json.RawMessage(`{"type":"image","summary":"ok"}`), nil
}

func stubInputs(t *testing.T, lines []string, password string) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) {
		if len(lines) == 0 {
			return "", io.EOF
		}
		line := lines[0]
		lines = lines[1:]
		return line, nil
	}
	getPassword = func(io.Writer) ([]byte, error) { return []byte(password), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func newTestApp(t *testing.T, f *fakeClient) (*App, *bytes.Buffer) {
	t.Helper()
	cfg := &config.Config{ServerURL: "http://test", SessionFile: filepath.Join(t.TempDir(), "config.json"), Timeout: time.Second}
	var out bytes.Buffer
	return newApp(cfg, f, strings.NewReader(""), &out), &out
}

func saveSession(t *testing.T, a *App, expires time.Time) {
	t.Helper()
	require.NoError(t, config.SaveSession(a.config.SessionFile, &config.Session{Token: "saved", Email: "a@b.c", ExpiresAt: expires}))
}

func TestRun_Help(t *testing.T) {
	a, out := newTestApp(t, &fakeClient{})
	require.NoError(t, a.Run(context.Background(), nil))
	assert.Contains(t, out.String(), "address <network>")

	err := a.Run(context.Background(), []string{"frobnicate"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestRegister_SavesSession(t *testing.T) {
	stubInputs(t, nil, "password1")
	f := &fakeClient{}
	a, out := newTestApp(t, f)

	require.NoError(t, a.Run(context.Background(), []string{"register", "a@b.c"}))
	assert.Equal(t, "a@b.c", f.registerEmail)
	assert.Contains(t, out.String(), "a2j_reg")

	s, err := config.LoadSession(a.config.SessionFile)
	require.NoError(t, err)
	assert.Equal(t, "tok-reg", s.Token)
	assert.Equal(t, "http://test", s.Server)
}

func TestRegister_PromptsForEmail(t *testing.T) {
	stubInputs(t, []string{"prompted@b.c"}, "password1")
	f := &fakeClient{}
	a, _ := newTestApp(t, f)

	require.NoError(t, a.Run(context.Background(), []string{"register"}))
	assert.Equal(t, "prompted@b.c", f.registerEmail)
}

func TestRegister_Error(t *testing.T) {
	stubInputs(t, nil, "password1")
	f := &fakeClient{registerErr: &client.APIError{StatusCode: 409, Code: "already_exists", Message: "already exists"}}
	a, _ := newTestApp(t, f)

	err := a.Run(context.Background(), []string{"register", "a@b.c"})
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	_, err = config.LoadSession(a.config.SessionFile)
	assert.ErrorIs(t, err, config.ErrNoSession)
}

func TestLogin_TwoFactorPrompt(t *testing.T) {
	stubInputs(t, []string{"123456"}, "password1")
	f := &fakeClient{require2FA: true}
	a, out := newTestApp(t, f)

	require.NoError(t, a.Run(context.Background(), []string{"login", "a@b.c"}))
	assert.Equal(t, []string{"", "123456"}, f.loginCalls)
	assert.Contains(t, out.String(), "Logged in as a@b.c")

	s, err := config.LoadSession(a.config.SessionFile)
	require.NoError(t, err)
	assert.Equal(t, "tok-login", s.Token)

	require.NoError(t, a.Run(context.Background(), []string{"logout"}))
	_, err = config.LoadSession(a.config.SessionFile)
	assert.ErrorIs(t, err, config.ErrNoSession)
}

func TestAuthCommands_RequireSession(t *testing.T) {
	a, _ := newTestApp(t, &fakeClient{})
	err := a.Run(context.Background(), []string{"balance"})
	assert.ErrorContains(t, err, "not logged in")

	saveSession(t, a, time.Now().Add(-time.Minute))
	err = a.Run(context.Background(), []string{"balance"})
	assert.ErrorContains(t, err, "session expired")
}

func TestBalance(t *testing.T) {
	f := &fakeClient{balance: &client.Balance{Balance: decimal.RequireFromString("5"), Used: decimal.RequireFromString("0.03"), Tier: "paid"}}
	a, out := newTestApp(t, f)
	saveSession(t, a, time.Now().Add(time.Hour))

	require.NoError(t, a.Run(context.Background(), []string{"balance"}))
	assert.Equal(t, "saved", f.token)
	assert.Contains(t, out.String(), "Balance: 5.00")
	assert.Contains(t, out.String(), "Used:    0.03")
	assert.Contains(t, out.String(), "paid")
}

func TestAddress(t *testing.T) {
	f := &fakeClient{}
	a, out := newTestApp(t, f)
	saveSession(t, a, time.Now().Add(time.Hour))

	require.NoError(t, a.Run(context.Background(), []string{"address", "trc20"}))
	assert.Contains(t, out.String(), "TAbc")

	out.Reset()
	err := a.Run(context.Background(), []string{"address"})
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, out.String(), "Usage: any2json address <network>")

	f.addressErr = &client.APIError{StatusCode: 503, Code: "pool_exhausted", Message: "no addresses available", Retryable: true, RetryAfter: time.Minute}
	err = a.Run(context.Background(), []string{"address", "trc20"})
	assert.ErrorIs(t, err, common.ErrPoolExhausted)
	assert.ErrorContains(t, err, "try again in 1m0s")
}

func TestNetworks(t *testing.T) {
	a, out := newTestApp(t, &fakeClient{})
	require.NoError(t, a.Run(context.Background(), []string{"networks"}))
	assert.Contains(t, out.String(), "NETWORK")
	assert.Contains(t, out.String(), "DAI (Ethereum)")
}

func TestRotateKey_UpdatesSession(t *testing.T) {
	a, out := newTestApp(t, &fakeClient{})
	saveSession(t, a, time.Now().Add(time.Hour))

	require.NoError(t, a.Run(context.Background(), []string{"rotate-key"}))
	assert.Contains(t, out.String(), "a2j_new")

	s, err := config.LoadSession(a.config.SessionFile)
	require.NoError(t, err)
	assert.Equal(t, "a2j_new", s.APIKey)
}

func TestTwoFactorCommands(t *testing.T) {
	f := &fakeClient{}
	a, out := newTestApp(t, f)
	saveSession(t, a, time.Now().Add(time.Hour))
	ctx := context.Background()

	require.NoError(t, a.Run(ctx, []string{"2fa-setup"}))
	assert.Contains(t, out.String(), "otpauth://")

	assert.Error(t, a.Run(ctx, []string{"2fa-verify", "000000"}))

	f.verifyOK = true
	require.NoError(t, a.Run(ctx, []string{"2fa-verify", "123456"}))

	require.NoError(t, a.Run(ctx, []string{"2fa-disable", "654321"}))
	assert.Equal(t, "654321", f.disabled)
}

func TestConvert(t *testing.T) {
	f := &fakeClient{}
	a, out := newTestApp(t, f)
	saveSession(t, a, time.Now().Add(time.Hour))

	require.NoError(t, a.Run(context.Background(), []string{"convert", "-type", "image", "-max-tokens", "300", "-expand", "e1, e2", "https://x/cat.png"}))
	assert.Equal(t, client.ConvertRequest{Input: "https://x/cat.png", Type: "image", MaxTokens: 300, Expand: []string{"e1", "e2"}}, f.convertReq)
	assert.Contains(t, out.String(), "\"summary\": \"ok\"")

	err := a.Run(context.Background(), []string{"convert", "-max-tokens", "lots", "x"})
	assert.ErrorIs(t, err, ErrUsage)
}

func TestExplain(t *testing.T) {
	err := explain(client.ErrUnavailable)
	assert.ErrorIs(t, err, client.ErrUnavailable)
	assert.Contains(t, err.Error(), "server running")

	err = explain(&client.APIError{Code: "token_expired", Message: "token expired"})
	assert.Contains(t, err.Error(), "login")

	plain := errors.New("x")
	assert.Equal(t, plain, explain(plain))
}
