package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
	"github.com/minhdtb/pocketbase-cursor-mcp/store"
)

// Store connection errors shared by the store-backed commands.
var ErrNoStoreURL = errors.New("no store URL specified (use --url or POCKETBASE_URL)")

// storeFlags are the connection flags shared by every store-backed
// command. Flag values override the config file.
func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "url",
			Usage:   "store base URL",
			Sources: cli.EnvVars("POCKETBASE_URL"),
		},
		&cli.StringFlag{
			Name:    "email",
			Usage:   "admin email",
			Sources: cli.EnvVars("POCKETBASE_ADMIN_EMAIL"),
		},
		&cli.StringFlag{
			Name:    "password",
			Usage:   "admin password",
			Sources: cli.EnvVars("POCKETBASE_ADMIN_PASSWORD"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log level (debug, info, warn, error)",
			Sources: cli.EnvVars("LOG_LEVEL"),
		},
	}
}

// loadConfig loads the nearest config file walking up from the working
// directory. Absent config degrades to an empty one: flags and the
// environment can carry everything.
func loadConfig() *pbmcp.Config {
	cwd, err := os.Getwd()
	if err != nil {
		return &pbmcp.Config{}
	}

	cfg, err := pbmcp.LoadConfig(cwd)
	if err != nil {
		return &pbmcp.Config{}
	}

	return cfg
}

// newStoreClient builds a store client from flags and config, and
// authenticates when admin credentials are present.
func newStoreClient(ctx context.Context, cmd *cli.Command, cfg *pbmcp.Config, logger *zap.Logger) (*store.Client, error) {
	url := firstNonEmpty(cmd.String("url"), cfg.Store.URL)
	if url == "" {
		return nil, ErrNoStoreURL
	}

	client := store.NewClient(url, store.WithLogger(logger))

	email := firstNonEmpty(cmd.String("email"), cfg.Store.AdminEmail)
	password := firstNonEmpty(cmd.String("password"), cfg.Store.AdminPassword)

	if email != "" {
		if _, err := client.AuthWithPassword(ctx, email, password); err != nil {
			return nil, err
		}

		logger.Debug("authenticated", zap.String("email", email))
	}

	return client, nil
}
