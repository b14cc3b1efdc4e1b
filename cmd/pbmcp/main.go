// Command pbmcp is a Model Context Protocol server and CLI for PocketBase
// collection schemas: TypeScript interface to schema synthesis, schema to
// interface emission, data profiling and shadow-copy migrations.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// A missing .env is fine; the explicit environment always wins.
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:  "pbmcp",
		Usage: "Collection schema tools for PocketBase",
		Commands: []*cli.Command{
			serveCommand(),
			generateCommand(),
			typesCommand(),
			analyzeCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "pbmcp:", err)
		os.Exit(1)
	}
}

// newLogger builds the process logger. Logs go to stderr: stdout is the
// protocol channel in serve mode and the payload channel elsewhere.
func newLogger(level string) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if isatty.IsTerminal(os.Stderr.Fd()) {
		config = zap.NewDevelopmentConfig()
	}

	config.OutputPaths = []string{"stderr"}

	if level != "" {
		parsed, err := zapcore.ParseLevel(level)
		if err != nil {
			return nil, fmt.Errorf("parsing log level %q: %w", level, err)
		}

		config.Level = zap.NewAtomicLevelAt(parsed)
	}

	return config.Build()
}

// writeOutput writes data to path, or to stdout when path is empty.
func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)

		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
