package commands

import (
	"github.com/urfave/cli/v3"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "blockbot",
		Usage: "Bulk-block the followers or media replies of a target account",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   "config.yaml",
			},
		},
		Commands: []*cli.Command{
			NewFollowersCommand(),
			NewMediaRepliesCommand(),
			NewStopCommand(),
			NewStatusCommand(),
			NewExportCommand(),
			NewResetCommand(),
		},
	}
}
