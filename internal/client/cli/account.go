package cli

import (
	"context"
	"errors"
	"fmt"
)

func (a *App) balance(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	b, err := a.client.Balance(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Balance: %s\nUsed:    %s\nTier:    %s\n", b.Balance.StringFixed(2), b.Used.StringFixed(2), b.Tier)
	return nil
}

func (a *App) rotateKey(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	key, err := a.client.RotateAPIKey(ctx)
	if err != nil {
		return err
	}
	a.session.APIKey = key
	fmt.Fprintf(a.out, "New API key: %s\n", key)
	return a.persistSession()
}

func (a *App) setup2FA(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	e, err := a.client.SetupTwoFactor(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Secret: %s\nURI:    %s\n", e.Secret, e.URL)
	fmt.Fprintln(a.out, "Add it to your authenticator app, then run 'any2json 2fa-verify <code>'.")
	return nil
}

func (a *App) verify2FA(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	ok, err := a.client.VerifyTwoFactor(ctx, args[0])
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("code not accepted, check the clock on your device and try again")
	}
	fmt.Fprintln(a.out, "Two-factor authentication enabled.")
	return nil
}

func (a *App) disable2FA(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	if err := a.client.DisableTwoFactor(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Two-factor authentication disabled.")
	return nil
}
