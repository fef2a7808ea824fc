package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/snipvault/snipvault/internal/repository"
)

func migrateCmd(e *env) *cli.Command {
	sub := func(command, usage string) *cli.Command {
		return &cli.Command{
			Name:  command,
			Usage: usage,
			Action: func(c *cli.Context) error {
				repo, err := e.openRepository(c.Context)
				if err != nil {
					return err
				}
				defer repo.Close()

				if err := repo.Migrate(c.Context, command); err != nil {
					return err
				}
				version, err := repo.SchemaVersion(c.Context)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(e.stdout, "schema version %d\n", version)
				return err
			},
		}
	}

	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Subcommands: []*cli.Command{
			sub(repository.MigrateUp, "Apply all pending migrations"),
			sub(repository.MigrateDown, "Roll back the most recent migration"),
			sub(repository.MigrateStatus, "Print applied and pending migrations"),
		},
	}
}
