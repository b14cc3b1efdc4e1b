package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/boyter/gocodewalker"
	"github.com/urfave/cli/v3"

	pbmcp "github.com/minhdtb/pocketbase-cursor-mcp"
)

// Generate command errors.
var ErrNoTypeScriptFiles = errors.New("no TypeScript files found")

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:      "generate",
		Aliases:   []string{"gen"},
		Usage:     "Generate collection schemas from TypeScript interfaces",
		ArgsUsage: "[files or directories...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "auth",
				Usage: "append email/password fields to user types",
			},
			&cli.BoolFlag{
				Name:  "timestamps",
				Usage: "append created/updated fields to every schema",
			},
			&cli.StringFlag{
				Name:    "out",
				Aliases: []string{"o"},
				Usage:   "output file (default: stdout)",
			},
		},
		Action: runGenerate,
	}
}

func runGenerate(_ context.Context, cmd *cli.Command) error {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		args = []string{"."}
	}

	files, err := discoverTypeScriptFiles(args)
	if err != nil {
		return err
	}

	if len(files) == 0 {
		return ErrNoTypeScriptFiles
	}

	opts := pbmcp.Options{
		IncludeAuthentication: cmd.Bool("auth"),
		IncludeTimestamps:     cmd.Bool("timestamps"),
	}

	var collections []pbmcp.Collection

	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}

		collections = append(collections, pbmcp.Synthesize(string(data), opts)...)
	}

	payload, err := json.MarshalIndent(collections, "", "  ")
	if err != nil {
		return err
	}

	return writeOutput(cmd.String("out"), append(payload, '\n'))
}

// discoverTypeScriptFiles expands files and directories into a sorted
// list of .ts/.tsx paths, respecting .gitignore.
func discoverTypeScriptFiles(args []string) ([]string, error) {
	var files []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}

		if info.IsDir() {
			if err := walkDir(arg, func(path string) {
				files = append(files, path)
			}); err != nil {
				return nil, err
			}
		} else if strings.HasSuffix(arg, ".ts") || strings.HasSuffix(arg, ".tsx") {
			files = append(files, arg)
		}
	}

	sort.Strings(files)

	return files, nil
}

// walkDir walks a directory for TypeScript files, respecting .gitignore.
func walkDir(root string, callback func(path string)) error {
	fileListQueue := make(chan *gocodewalker.File, 100)

	fileWalker := gocodewalker.NewFileWalker(root, fileListQueue)
	fileWalker.AllowListExtensions = []string{"ts", "tsx"}

	var walkErr error

	fileWalker.SetErrorHandler(func(e error) bool {
		walkErr = e
		return true
	})

	var wg sync.WaitGroup

	wg.Add(1)

	go func() {
		defer wg.Done()

		for f := range fileListQueue {
			callback(f.Location)
		}
	}()

	if err := fileWalker.Start(); err != nil {
		return err
	}

	wg.Wait()

	return walkErr
}
