package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"
	_ "go.uber.org/automaxprocs"

	"github.com/lk2023060901/land-relay-go/application"
	"github.com/lk2023060901/land-relay-go/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:  "relay",
		Usage: "websocket event relay",
		Commands: []*cli.Command{
			serveCommand(),
			probeCommand(),
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the relay server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file path, overrides " + application.EnvConfigFilePath,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := application.LoadConfig(cmd.String("config"))
			if err != nil {
				return err
			}
			app, err := application.New(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			return app.Run(ctx)
		},
	}
}

func probeCommand() *cli.Command {
	return &cli.Command{
		Name:  "probe",
		Usage: "identify against a relay and print every received frame",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "ws://127.0.0.1:7878/ws", Usage: "relay websocket url"},
			&cli.StringFlag{Name: "identity", Required: true, Usage: "token issued by /api/login"},
			&cli.StringFlag{Name: "username", Usage: "advisory username sent with Identify"},
			&cli.StringFlag{Name: "message", Usage: "Message payload sent after Identify"},
			&cli.IntFlag{Name: "count", Usage: "exit after this many frames, 0 waits until interrupted"},
			&cli.DurationFlag{Name: "retry", Usage: "keep retrying the dial for this long"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return probe(ctx, probeOptions{
				URL:      cmd.String("url"),
				Identity: cmd.String("identity"),
				Username: cmd.String("username"),
				Message:  cmd.String("message"),
				Count:    int(cmd.Int("count")),
				Retry:    cmd.Duration("retry"),
			}, os.Stdout)
		},
	}
}
