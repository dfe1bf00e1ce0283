package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"blockbot/internal/storage/sqlite"
)

// NewResetCommand returns the reset subcommand.
func NewResetCommand() *cli.Command {
	return &cli.Command{
		Name:      "reset",
		Usage:     "Delete persisted state for runs",
		ArgsUsage: "[run-id]...",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Delete every recorded run",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ids := cmd.Args().Slice()
			all := cmd.Bool("all")
			if all == (len(ids) > 0) {
				return fmt.Errorf("usage: blockbot reset <run-id>... | --all")
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			m := sqlite.NewMaintenance(a.db)

			if all {
				if err := m.ResetAll(ctx); err != nil {
					return err
				}
				fmt.Println("deleted all run state")
				return nil
			}

			for _, id := range ids {
				if err := m.Reset(ctx, id); err != nil {
					return err
				}
				fmt.Printf("deleted %s\n", id)
			}
			return nil
		},
	}
}
