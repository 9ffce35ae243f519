package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/arena/internal/simulate"
	"github.com/okian/arena/pkg/logger"
	"github.com/okian/arena/pkg/token"
	"github.com/urfave/cli/v2"
)

const defaultRunTimeout = 10 * time.Minute

func main() {
	app := &cli.App{
		Name:  "arena-sim",
		Usage: "drive the arena API through a complete challenge round",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-format", Value: "text", Usage: "log format (text or json)"},
			&cli.StringFlag{Name: "log-level", Value: "info", Usage: "log level"},
		},
		Before: func(c *cli.Context) error {
			if err := logger.Init(logger.WithFormat(c.String("log-format"))); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return logger.SetLevelString(c.String("log-level"))
		},
		Commands: []*cli.Command{
			newRunCommand(),
			newTokenCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "arena-sim:", err)
		os.Exit(1)
	}
}

func newRunCommand() *cli.Command {
	def := simulate.DefaultConfig()
	return &cli.Command{
		Name:  "run",
		Usage: "play the scenario on an in-process server and verify balances",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "entry-fee", Value: def.EntryFee, Usage: "entry fee in base units"},
			&cli.Int64Flag{Name: "duration", Value: def.Duration, Usage: "challenge duration in seconds"},
			&cli.IntFlag{Name: "players", Usage: "extra players entered besides A and B"},
			&cli.IntFlag{Name: "workers", Value: def.Workers, Usage: "concurrent clients for extra players"},
			&cli.Int64Flag{Name: "winner-share", Value: def.WinnerSharePct, Usage: "winner share of the prize in percent"},
			&cli.DurationFlag{Name: "timeout", Value: def.Timeout, Usage: "HTTP request timeout"},
			&cli.StringFlag{Name: "journal", Usage: "sqlite event journal path (disabled when empty)"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every passing check"},
		},
		Action: func(c *cli.Context) error {
			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
			defer cancel()

			cfg := simulate.Config{
				EntryFee:       c.Int64("entry-fee"),
				Duration:       c.Int64("duration"),
				ExtraPlayers:   c.Int("players"),
				Workers:        c.Int("workers"),
				WinnerSharePct: c.Int64("winner-share"),
				Timeout:        c.Duration("timeout"),
				JournalPath:    c.String("journal"),
				Verbose:        c.Bool("verbose"),
			}
			rep, err := simulate.Run(ctx, cfg)
			if err != nil {
				if rep != nil {
					for _, f := range rep.Failed() {
						fmt.Fprintf(os.Stderr, "FAIL %s: %s\n", f.Name, f.Detail)
					}
				}
				return err
			}
			fmt.Printf("ok: %d checks passed in %s\n", len(rep.Checks), rep.Duration)
			return nil
		},
	}
}

func newTokenCommand() *cli.Command {
	return &cli.Command{
		Name:      "token",
		Usage:     "print a bearer token for an account",
		ArgsUsage: "<account>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "secret", EnvVars: []string{"ARENA_JWT_SECRET"}, Required: true, Usage: "HMAC signing secret"},
			&cli.DurationFlag{Name: "ttl", Value: time.Hour, Usage: "token lifetime"},
		},
		Action: func(c *cli.Context) error {
			subject := c.Args().First()
			if subject == "" {
				return cli.Exit("account argument is required", 2)
			}
			issuer, err := token.New(c.String("secret"))
			if err != nil {
				return err
			}
			raw, err := issuer.Issue(subject, c.Duration("ttl"))
			if err != nil {
				return err
			}
			fmt.Println(raw)
			return nil
		},
	}
}
