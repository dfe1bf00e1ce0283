package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"blockbot/internal/domain"
)

// NewFollowersCommand returns the followers subcommand.
func NewFollowersCommand() *cli.Command {
	flags := accountToggleFlags()
	flags = append(flags, runFlags()...)

	return &cli.Command{
		Name:      "followers",
		Usage:     "Block the followers of one or more accounts",
		ArgsUsage: "<account>...",
		Flags:     flags,
		Action:    runFollowers,
	}
}

func runFollowers(ctx context.Context, cmd *cli.Command) error {
	targets := cmd.Args().Slice()
	if len(targets) == 0 {
		return fmt.Errorf("usage: blockbot followers <account>...")
	}

	rules := rulesFromCmd(cmd, false)
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("whitelist rules: %w", err)
	}

	if cmd.Bool("daemon") {
		return spawnDaemon(domain.ModeFollowers)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.runPipelines(ctx, cmd, rules, domain.ModeFollowers, targets)
}
