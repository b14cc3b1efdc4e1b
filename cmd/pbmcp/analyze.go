package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/urfave/cli/v3"

	"github.com/minhdtb/pocketbase-cursor-mcp/profile"
)

// Analyze command errors.
var ErrNoCollection = errors.New("no collection specified")

func analyzeCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "Profile a sample of a collection's records",
		ArgsUsage: "<collection>",
		Flags: append(storeFlags(),
			&cli.IntFlag{
				Name:  "sample-size",
				Usage: "records to sample",
				Value: profile.DefaultSampleSize,
			},
			&cli.StringSliceFlag{
				Name:  "field",
				Usage: "restrict profiling to a field (repeatable)",
			},
		),
		Action: runAnalyze,
	}
}

func runAnalyze(ctx context.Context, cmd *cli.Command) error {
	collection := cmd.Args().First()
	if collection == "" {
		return ErrNoCollection
	}

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

	profiler := profile.New(client, profile.WithLogger(logger))

	report, err := profiler.Analyze(ctx, collection, profile.Options{
		SampleSize: int(cmd.Int("sample-size")),
		Fields:     cmd.StringSlice("field"),
	})
	if err != nil {
		return err
	}

	payload, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}

	return writeOutput("", append(payload, '\n'))
}
