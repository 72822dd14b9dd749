// Command normsctl is the operator tool: table suggestions, local scoring
// and stock administration against the service database.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/pkg/errors"

	"github.com/mind-engage/mindengage-norms/internal/app"
	"github.com/mind-engage/mindengage-norms/internal/config"
	"github.com/mind-engage/mindengage-norms/internal/logging"
)

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintln(os.Stderr, "normsctl:", err)
		os.Exit(1)
	}
}

// cli carries the parsed root configuration to subcommands.
type cli struct {
	cfg    config.Config
	stdout io.Writer
	stderr io.Writer
}

// withApp opens the database for the duration of fn.
func (c *cli) withApp(ctx context.Context, fn func(*app.App) error) error {
	log := logging.New("normsctl", c.cfg.LogLevel)
	log.SetOutput(c.stderr)
	a, err := app.New(ctx, c.cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	c := &cli{stdout: stdout, stderr: stderr}
	rootFS := flag.NewFlagSet("normsctl", flag.ContinueOnError)
	rootFS.SetOutput(stderr)
	config.Register(rootFS, &c.cfg)

	root := &ffcli.Command{
		Name:       "normsctl",
		ShortUsage: "normsctl [flags] <subcommand> [flags]",
		FlagSet:    rootFS,
		Options:    config.Options(),
		Subcommands: []*ffcli.Command{
			c.suggestCmd(),
			c.scoreCmd(),
			c.stockCmd(),
			c.logCmd(),
		},
		Exec: func(context.Context, []string) error { return flag.ErrHelp },
	}
	return root.ParseAndRun(ctx, args)
}
