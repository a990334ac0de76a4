package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/any2json/internal/client/client"
	"github.com/dmitrijs2005/any2json/internal/client/config"
	"github.com/dmitrijs2005/any2json/internal/common"
)

// ErrUsage marks a malformed command line.
var ErrUsage = errors.New("usage")

type command struct {
	usage string
	// auth commands need a saved session
	auth bool
	run  func(a *App, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"register":    {usage: "register [email]", run: (*App).register},
	"login":       {usage: "login [email]", run: (*App).login},
	"logout":      {usage: "logout", run: (*App).logout},
	"balance":     {usage: "balance", auth: true, run: (*App).balance},
	"networks":    {usage: "networks", run: (*App).networks},
	"address":     {usage: "address <network>", auth: true, run: (*App).address},
	"rotate-key":  {usage: "rotate-key", auth: true, run: (*App).rotateKey},
	"2fa-setup":   {usage: "2fa-setup", auth: true, run: (*App).setup2FA},
	"2fa-verify":  {usage: "2fa-verify <code>", auth: true, run: (*App).verify2FA},
	"2fa-disable": {usage: "2fa-disable <code>", auth: true, run: (*App).disable2FA},
	"convert":     {usage: "convert [-type t] [-max-tokens n] [-expand id,...] <input>", auth: true, run: (*App).convert},
	"version":     {usage: "version", run: (*App).version},
}

type App struct {
	config  *config.Config
	client  client.Client
	reader  *bufio.Reader
	out     io.Writer
	session *config.Session
	now     func() time.Time
}

func NewApp(c *config.Config) *App {
	return newApp(c, client.NewHTTPClient(c.ServerURL, c.Timeout), os.Stdin, os.Stdout)
}

func newApp(c *config.Config, cl client.Client, in io.Reader, out io.Writer) *App {
	return &App{config: c, client: cl, reader: bufio.NewReader(in), out: out, now: time.Now}
}

// Run executes the command named by args[0].
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" {
		a.help()
		return nil
	}

	cmd, ok := commands[args[0]]
	if !ok {
		a.help()
		return fmt.Errorf("%w: unknown command %q", ErrUsage, args[0])
	}

	if cmd.auth {
		if err := a.loadSession(); err != nil {
			return err
		}
	}

	err := cmd.run(a, ctx, args[1:])
	if errors.Is(err, ErrUsage) {
		fmt.Fprintf(a.out, "Usage: any2json %s\n", cmd.usage)
	}
	return explain(err)
}

func (a *App) loadSession() error {
	s, err := config.LoadSession(a.config.SessionFile)
	if err != nil {
		if errors.Is(err, config.ErrNoSession) {
			return errors.New("not logged in: run 'any2json login' first")
		}
		return err
	}
	if s.Expired(a.now()) {
		return errors.New("session expired: run 'any2json login' again")
	}
	a.session = s
	a.client.SetToken(s.Token)
	return nil
}

func (a *App) saveSession(email string, s *client.Session) error {
	a.session = &config.Session{
		Server:    a.config.ServerURL,
		Email:     email,
		Token:     s.Token,
		APIKey:    s.APIKey,
		ExpiresAt: s.ExpiresAt,
	}
	return config.SaveSession(a.config.SessionFile, a.session)
}

// explain adds a hint for errors the user can act on.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, client.ErrUnavailable):
		return fmt.Errorf("%w (is the server running?)", err)
	case errors.Is(err, common.ErrTokenExpired), errors.Is(err, common.ErrInvalidToken):
		return fmt.Errorf("%w: run 'any2json login' again", err)
	case errors.Is(err, common.ErrPoolExhausted):
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
			return fmt.Errorf("%w: try again in %s", err, apiErr.RetryAfter)
		}
	}
	return err
}

func (a *App) help() {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(a.out, "Usage: any2json [-a server-url] [-f session-file] <command> [args]")
	fmt.Fprintln(a.out, "Commands:")
	for _, name := range names {
		fmt.Fprintf(a.out, "  %s\n", commands[name].usage)
	}
}

func (a *App) version(context.Context, []string) error {
	fmt.Fprintf(a.out, "any2json client %s\n", common.Version)
	return nil
}

func wantArgs(args []string, n int) error {
	if len(args) != n || (n > 0 && strings.TrimSpace(args[0]) == "") {
		return ErrUsage
	}
	return nil
}

func (a *App) persistSession() error {
	return config.SaveSession(a.config.SessionFile, a.session)
}
