// Command snipctl runs schema migrations and other operator tasks against a
// snipvault deployment.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/snipvault/snipvault/internal/config"
	"github.com/snipvault/snipvault/internal/repository"
	"github.com/snipvault/snipvault/internal/service"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := newApp(os.Stdin, os.Stdout, config.Load)
	if err := app.RunContext(ctx, os.Args); err != nil {
		slog.Error("snipctl failed", "error", err)
		os.Exit(1)
	}
}

// env carries what every subcommand needs. It is filled in Before.
type env struct {
	cfg    *config.Config
	logger *slog.Logger
	stdin  io.Reader
	stdout io.Writer

	// openUsers returns the account storage and a func releasing it.
	openUsers func(ctx context.Context) (service.UserRepository, func(), error)
}

// openRepository connects to the configured database.
func (e *env) openRepository(ctx context.Context) (*repository.Repository, error) {
	repo, err := repository.New(ctx, e.cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	return repo, nil
}

func (e *env) openPostgresUsers(ctx context.Context) (service.UserRepository, func(), error) {
	repo, err := e.openRepository(ctx)
	if err != nil {
		return nil, nil, err
	}
	return repo, repo.Close, nil
}

func newApp(stdin io.Reader, stdout io.Writer, load func() (*config.Config, error)) *cli.App {
	e := &env{stdin: stdin, stdout: stdout}
	e.openUsers = e.openPostgresUsers
	return buildApp(e, load)
}

func buildApp(e *env, load func() (*config.Config, error)) *cli.App {
	return &cli.App{
		Name:      "snipctl",
		Usage:     "Administer a snipvault deployment",
		Writer:    e.stdout,
		ErrWriter: e.stdout,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "Log at debug level",
			},
		},
		Before: func(c *cli.Context) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			level := slog.LevelWarn
			if c.Bool("verbose") {
				level = slog.LevelDebug
			}
			e.cfg = cfg
			e.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
			return nil
		},
		Commands: []*cli.Command{
			migrateCmd(e),
			userCmd(e),
			tokenCmd(e),
		},
	}
}
