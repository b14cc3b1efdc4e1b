package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/minhdtb/pocketbase-cursor-mcp/server"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the MCP tool server on stdio",
		Flags:  storeFlags(),
		Action: runServe,
	}
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg := loadConfig()

	logger, err := newLogger(firstNonEmpty(cmd.String("log-level"), cfg.Log.Level))
	if err != nil {
		return err
	}

	defer func() {
		_ = logger.Sync()
	}()

	client, err := newStoreClient(ctx, cmd, cfg, logger)
	if err != nil {
		return err
	}

	logger.Info("starting MCP server",
		zap.String("url", firstNonEmpty(cmd.String("url"), cfg.Store.URL)))

	return server.New(client, logger).Serve(ctx, os.Stdin, os.Stdout)
}
