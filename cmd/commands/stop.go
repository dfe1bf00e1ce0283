package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"blockbot/internal/daemon"
	"blockbot/internal/domain"
)

// NewStopCommand returns the stop subcommand.
func NewStopCommand() *cli.Command {
	return &cli.Command{
		Name:      "stop",
		Usage:     "Stop a background run",
		ArgsUsage: "<followers|media-replies>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name != domain.ModeFollowers && name != domain.ModeMediaReplies {
				return fmt.Errorf("usage: blockbot stop <followers|media-replies>")
			}

			pid, err := daemon.Stop(daemon.PidPath(name))
			if err != nil {
				return err
			}

			fmt.Printf("sent SIGTERM to pid %d; the run exits at the next page boundary\n", pid)
			return nil
		},
	}
}
