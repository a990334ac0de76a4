package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/any2json/internal/client/config"
	"github.com/dmitrijs2005/any2json/internal/common"
)

// getSimpleText and getPassword are swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// credentials takes the email from args or prompts for it, then reads the password.
func (a *App) credentials(args []string) (string, []byte, error) {
	if len(args) > 1 {
		return "", nil, ErrUsage
	}

	var email string
	if len(args) == 1 {
		email = args[0]
	} else {
		var err error
		if email, err = getSimpleText(a.reader, "Enter email", a.out); err != nil {
			return "", nil, err
		}
	}

	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

func (a *App) register(ctx context.Context, args []string) error {
	email, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	s, err := a.client.Register(ctx, email, string(password))
	if err != nil {
		return err
	}
	if err := a.saveSession(email, s); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registered.")
	fmt.Fprintf(a.out, "API key: %s\n", s.APIKey)
	return nil
}

func (a *App) login(ctx context.Context, args []string) error {
	email, password, err := a.credentials(args)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	res, err := a.client.Login(ctx, email, string(password), "")
	if err != nil {
		return err
	}
	if res.Requires2FA {
		code, err := getSimpleText(a.reader, "Enter 2FA code", a.out)
		if err != nil {
			return err
		}
		if res, err = a.client.Login(ctx, email, string(password), code); err != nil {
			return err
		}
	}

	if err := a.saveSession(email, res.Session); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Logged in as %s (session valid until %s).\n", email, res.Session.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

func (a *App) logout(context.Context, []string) error {
	if err := config.ClearSession(a.config.SessionFile); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
