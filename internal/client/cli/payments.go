package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func (a *App) networks(ctx context.Context, args []string) error {
	if err := wantArgs(args, 0); err != nil {
		return err
	}
	nets, err := a.client.Networks(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NETWORK\tNAME")
	for _, n := range nets {
		fmt.Fprintf(w, "%s\t%s\n", n.Code, n.Name)
	}
	return w.Flush()
}

func (a *App) address(ctx context.Context, args []string) error {
	if err := wantArgs(args, 1); err != nil {
		return err
	}
	addr, err := a.client.RequestAddress(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Send %s to:\n%s\n", addr.NetworkName, addr.Address)
	return nil
}
