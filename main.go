// Command symbolic-cat runs the account and chat backend of the Symbolic Cat
// game. It loads configuration, opens the selected document store, wires the
// services and serves HTTP until it receives SIGINT or SIGTERM.
//
// @title Symbolic Cat API
// @version 1.0
// @description Accounts, sessions and the shared chat log of the Symbolic Cat game.
// @BasePath /
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/user/symbolic-cat-go/config"
	"github.com/user/symbolic-cat-go/credential"
	"github.com/user/symbolic-cat-go/docstore"
	"github.com/user/symbolic-cat-go/logging"
)

func main() {
	// A missing .env is normal outside development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	app := &cli.App{
		Name:   "symbolic-cat",
		Usage:  "account and chat backend for Symbolic Cat",
		Action: serveAction,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "start the HTTP server (default)",
				Action: serveAction,
			},
			{
				Name:   "migrate",
				Usage:  "apply the documents table schema (postgres backend)",
				Action: migrateAction,
			},
			{
				Name:   "prune-sessions",
				Usage:  "remove expired sessions from the users document once and exit",
				Action: pruneAction,
			},
			{
				Name:      "hash-password",
				Usage:     "print a bcrypt hash for a password read from stdin or the terminal",
				ArgsUsage: " ",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "cost",
						Usage:   "bcrypt cost factor",
						Value:   bcrypt.DefaultCost,
						EnvVars: []string{"BCRYPT_COST"},
					},
				},
				Action: hashPasswordAction,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// loadRuntime reads configuration and builds the logger every command uses.
func loadRuntime() (*config.AppConfig, *slog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.New(logging.Options{Debug: cfg.Server.Debug, Format: cfg.Server.LogFormat})
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func migrateAction(c *cli.Context) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	if cfg.Store.Backend != config.BackendPostgres {
		return fmt.Errorf("migrate needs STORE_BACKEND=postgres, got %q", cfg.Store.Backend)
	}
	if err := docstore.RunMigrations(cfg.Store.DatabaseURL); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}

func pruneAction(c *cli.Context) error {
	cfg, logger, err := loadRuntime()
	if err != nil {
		return err
	}
	svc, cleanup, err := buildServices(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(c.Context, 2*cfg.Store.Timeout)
	defer cancel()
	removed, err := svc.auth.PruneExpired(ctx)
	if err != nil {
		return err
	}
	logger.Info("expired sessions pruned", "removed", removed)
	return nil
}

// hashPasswordAction does not need a store, so it skips LoadConfig.
func hashPasswordAction(c *cli.Context) error {
	var password string
	if fd := int(os.Stdin.Fd()); term.IsTerminal(fd) {
		fmt.Fprint(os.Stderr, "password: ")
		raw, err := term.ReadPassword(fd)
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("read password: %w", err)
		}
		password = string(raw)
	} else {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("read password from stdin: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}

	hash, err := credential.NewHasher(c.Int("cost")).HashPassword(password)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, hash)
	return nil
}
