package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"blockbot/internal/storage/sqlite"
)

// NewExportCommand returns the export subcommand.
func NewExportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Dump the store to CSV files",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory for the CSV files",
				Value:   "export",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			dir := cmd.String("output")
			if err := sqlite.NewMaintenance(a.db).ExportCSV(ctx, dir); err != nil {
				return err
			}

			fmt.Printf("exported store to %s\n", dir)
			return nil
		},
	}
}
