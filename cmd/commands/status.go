package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"blockbot/internal/daemon"
	"blockbot/internal/domain"
	"blockbot/internal/storage/sqlite"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:   "status",
		Usage:  "Show background run state and per-run progress",
		Action: runStatus,
	}
}

func runStatus(ctx context.Context, cmd *cli.Command) error {
	for _, name := range []string{domain.ModeFollowers, domain.ModeMediaReplies} {
		running, pid, err := daemon.Status(daemon.PidPath(name))
		switch {
		case err != nil:
			fmt.Printf("%s: unreadable pidfile (%v)\n", name, err)
		case running:
			fmt.Printf("%s: RUNNING (pid %d)\n", name, pid)
		case pid != 0:
			fmt.Printf("%s: NOT RUNNING (stale pidfile, pid %d)\n", name, pid)
		default:
			fmt.Printf("%s: NOT RUNNING\n", name)
		}
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	runs, err := sqlite.NewMaintenance(a.db).Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no recorded runs")
		return nil
	}

	for _, r := range runs {
		line := fmt.Sprintf("%s: processed %d, blocked %d, cursor %q",
			r.RunID, r.ProcessedCount, r.BlockedCount, r.Cursor)
		if r.Completed {
			line += ", completed"
		}
		if r.LockHolder != "" {
			line += fmt.Sprintf(", lock held by %s", r.LockHolder)
		}
		fmt.Println(line)
	}
	return nil
}
