package cmd

import (
	"context"
	"fmt"
	"strings"
)

const usage = `studyprep is the AI-assisted study backend for public-exam candidates.

Usage:
  studyprep <command> [flags]

Commands:
  serve      Start the HTTP server
  generate   Run one AI study operation and print the JSON result
  migrate    Create the PostgreSQL schema

Flags:
  -h, --help  Show this help message`

// Execute runs the CLI dispatcher with the provided arguments.
func Execute(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return printUsage()
	}

	switch args[0] {
	case "serve":
		return serve(ctx, args[1:])
	case "generate":
		return generate(ctx, args[1:])
	case "migrate":
		return migrate(ctx, args[1:])
	case "help", "-h", "--help":
		return printUsage()
	default:
		return fmt.Errorf("unknown command %q\n\n%s", args[0], usage)
	}
}

func printUsage() error {
	fmt.Println(strings.TrimSpace(usage))
	return nil
}
