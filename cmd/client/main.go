package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/client/cli"
	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/client/session"
	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	cfg, err := config.LoadConfig(args)
	if err != nil {
		return err
	}
	_, cmd, rest := flagx.SplitSubcommand(args, config.GlobalFlags)

	api, err := client.New(cfg.ServerEndpointAddr)
	if err != nil {
		return err
	}
	defer api.Close()

	app := cli.NewApp(api, session.NewStore(cfg.SessionFile), cfg.RequestTimeout, os.Stdin, os.Stdout)
	return app.Run(ctx, cmd, rest)
}
