package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/any2json/internal/client/cli"
	"github.com/dmitrijs2005/any2json/internal/client/config"
	"github.com/dmitrijs2005/any2json/internal/flagx"
)

func main() {
	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	name, rest := flagx.SplitCommand(os.Args[1:], config.Flags)
	args := []string{}
	if name != "" {
		args = append([]string{name}, rest...)
	}

	if err := cli.NewApp(cfg).Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
