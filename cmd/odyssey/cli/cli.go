// Package cli implements the maintenance subcommands of the odyssey binary.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/odyssey-wms/internal/platform/db"
	"github.com/odyssey-erp/odyssey-wms/jobs"
)

// ErrUnknownCommand is returned for an unsupported subcommand.
var ErrUnknownCommand = errors.New("unknown command")

// Env carries what subcommands need from the loaded configuration.
type Env struct {
	PGDSN     string
	RedisOpts asynq.RedisClientOpt
	Logger    *slog.Logger
	Out       io.Writer
}

// Run dispatches args[0] to a subcommand.
func Run(ctx context.Context, env Env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: expected migrate or jobs", ErrUnknownCommand)
	}
	switch args[0] {
	case "migrate":
		return runMigrate(ctx, env)
	case "jobs":
		return runJobs(ctx, env, args[1:])
	default:
		return fmt.Errorf("%w: %s", ErrUnknownCommand, args[0])
	}
}

func runMigrate(ctx context.Context, env Env) error {
	pool, err := db.New(ctx, env.PGDSN, db.PoolOptions{MaxConns: 2, ApplicationName: "odyssey-wms-cli"})
	if err != nil {
		return err
	}
	defer pool.Close()
	applied, err := db.Migrate(ctx, pool)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		_, _ = fmt.Fprintln(env.Out, "schema is up to date")
		return nil
	}
	for _, version := range applied {
		_, _ = fmt.Fprintf(env.Out, "applied %s\n", version)
	}
	return nil
}

func runJobs(ctx context.Context, env Env, args []string) error {
	fs := flag.NewFlagSet("jobs", flag.ContinueOnError)
	fs.SetOutput(env.Out)
	retention := fs.Int("retention-days", 90, "retention for activity:prune")
	queue := fs.String("queue", jobs.QueueDefault, "queue for archived")
	if len(args) == 0 {
		return fmt.Errorf("%w: expected jobs stats|archived|trigger <task>", ErrUnknownCommand)
	}
	sub := args[0]
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}

	jc := NewJobsCLI(env.RedisOpts)
	defer func() {
		_ = jc.Close()
	}()

	switch sub {
	case "stats":
		stats, err := jc.InspectQueues(ctx)
		if err != nil {
			return err
		}
		return writeStats(env.Out, stats)
	case "archived":
		tasks, err := jc.ListArchived(ctx, *queue, 20)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			_, _ = fmt.Fprintf(env.Out, "%s\t%s\t%s\n", t.ID, t.Type, t.LastErr)
		}
		return nil
	case "trigger":
		if fs.NArg() == 0 {
			return fmt.Errorf("%w: jobs trigger needs a task name", ErrUnknownCommand)
		}
		info, err := jc.Trigger(ctx, fs.Arg(0), *retention)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(env.Out, "enqueued %s as %s\n", info.Type, info.ID)
		return nil
	default:
		return fmt.Errorf("%w: jobs %s", ErrUnknownCommand, sub)
	}
}

func writeStats(out io.Writer, stats []QueueStats) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "QUEUE\tPENDING\tACTIVE\tSCHEDULED\tRETRY\tARCHIVED")
	for _, s := range stats {
		_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\n", s.Queue, s.Pending, s.Active, s.Scheduled, s.Retry, s.Archived)
	}
	return tw.Flush()
}
