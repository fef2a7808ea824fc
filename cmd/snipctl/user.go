package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/snipvault/snipvault/internal/auth"
	"github.com/snipvault/snipvault/internal/service"
)

func userCmd(e *env) *cli.Command {
	return &cli.Command{
		Name:  "user",
		Usage: "Manage accounts",
		Subcommands: []*cli.Command{
			userAddCmd(e),
		},
	}
}

func userAddCmd(e *env) *cli.Command {
	var email, name, password string
	return &cli.Command{
		Name:  "add",
		Usage: "Create an account (password is read from stdin when --password is omitted)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "email",
				Usage:       "Login email",
				Destination: &email,
				Required:    true,
			},
			&cli.StringFlag{
				Name:        "name",
				Usage:       "Display name (defaults to the email's local part)",
				Destination: &name,
			},
			&cli.StringFlag{
				Name:        "password",
				Usage:       "Initial password",
				Destination: &password,
			},
		},
		Action: func(c *cli.Context) error {
			if password == "" {
				sc := bufio.NewScanner(e.stdin)
				if !sc.Scan() {
					if err := sc.Err(); err != nil {
						return err
					}
					return errors.New("missing password from stdin")
				}
				password = strings.TrimRight(sc.Text(), "\r\n")
			}

			hasher, err := auth.NewPasswordHasher(e.cfg.PasswordHash)
			if err != nil {
				return err
			}

			if strings.TrimSpace(name) == "" {
				name = defaultName(email)
			}

			users, release, err := e.openUsers(c.Context)
			if err != nil {
				return err
			}
			defer release()

			store, err := service.NewCredentialStore(users, hasher, service.CredentialStoreConfig{Logger: e.logger})
			if err != nil {
				return err
			}

			user, err := store.Register(c.Context, email, password, name)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(e.stdout, "created user %s <%s>\n", user.ID, user.Email)
			return err
		},
	}
}

// defaultName derives a display name from the part of email before "@".
func defaultName(email string) string {
	local, _, _ := strings.Cut(service.NormalizeEmail(email), "@")
	return local
}
