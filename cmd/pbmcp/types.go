package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
)

// typesPageSize bounds the collection listing fetched for emission.
const typesPageSize = 500

func typesCommand() *cli.Command {
	return &cli.Command{
		Name:      "types",
		Usage:     "Emit TypeScript interfaces from live collection schemas",
		ArgsUsage: "[collections...]",
		Flags: append(storeFlags(),
			&cli.BoolFlag{
				Name:  "relations",
				Usage: "emit relation fields as a union with the target interface",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output file (default: stdout)",
			},
		),
		Action: runTypes,
	}
}

func runTypes(ctx context.Context, cmd *cli.Command) error {
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

	list, err := client.ListCollections(ctx, 1, typesPageSize)
	if err != nil {
		return err
	}

	selected := list.Items

	if names := cmd.Args().Slice(); len(names) > 0 {
		byName := make(map[string]pbmcp.Collection, len(list.Items))
		for _, c := range list.Items {
			byName[c.Name] = c
		}

		selected = make([]pbmcp.Collection, 0, len(names))

		for _, name := range names {
			c, ok := byName[name]
			if !ok {
				return fmt.Errorf("collection %s not found", name)
			}

			selected = append(selected, c)
		}
	}

	out := pbmcp.EmitInterfaces(selected, pbmcp.EmitOptions{
		IncludeRelations: cmd.Bool("relations"),
		Resolve:          pbmcp.ResolverFromCollections(list.Items),
	})

	return writeOutput(cmd.String("out"), []byte(out))
}
