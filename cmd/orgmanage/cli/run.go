// Package cli holds operational subcommands for the orgmanage binary:
// schema migration and manual job management. The default invocation with
// no arguments starts the API server and never reaches this package.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/orgmanage/orgmanage/internal/platform/db"
)

// Options carries the subcommand arguments and output streams.
type Options struct {
	Args      []string
	PGDSN     string
	RedisAddr string
	Stdout    io.Writer
	Stderr    io.Writer
}

// Run dispatches a subcommand and returns a process exit code.
func Run(ctx context.Context, opts Options) int {
	if len(opts.Args) == 0 {
		fmt.Fprintln(opts.Stderr, "usage: orgmanage [migrate | jobs trigger <name> | jobs stats]")
		return 1
	}
	switch opts.Args[0] {
	case "migrate":
		if err := db.Migrate(opts.PGDSN); err != nil {
			fmt.Fprintf(opts.Stderr, "migrate: %v\n", err)
			return 1
		}
		fmt.Fprintln(opts.Stdout, "migrations applied")
		return 0
	case "jobs":
		return runJobs(ctx, opts)
	default:
		fmt.Fprintf(opts.Stderr, "unknown command %q\n", opts.Args[0])
		return 1
	}
}

func runJobs(ctx context.Context, opts Options) int {
	if len(opts.Args) < 2 {
		fmt.Fprintln(opts.Stderr, "usage: orgmanage jobs trigger <name> | jobs stats")
		return 1
	}
	cli := NewJobsCLI(opts.RedisAddr)
	defer cli.Close()

	switch opts.Args[1] {
	case "trigger":
		if len(opts.Args) < 3 {
			fmt.Fprintln(opts.Stderr, "usage: orgmanage jobs trigger <name>")
			return 1
		}
		info, err := cli.Trigger(ctx, opts.Args[2])
		if err != nil {
			fmt.Fprintf(opts.Stderr, "trigger: %v\n", err)
			return 1
		}
		fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return 0
	case "stats":
		stats, err := cli.InspectQueue(ctx)
		if err != nil {
			fmt.Fprintf(opts.Stderr, "stats: %v\n", err)
			return 1
		}
		enc := json.NewEncoder(opts.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(stats); err != nil {
			fmt.Fprintf(opts.Stderr, "stats: %v\n", err)
			return 1
		}
		return 0
	default:
		fmt.Fprintf(opts.Stderr, "unknown jobs subcommand %q\n", opts.Args[1])
		return 1
	}
}
