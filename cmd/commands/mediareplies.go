package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"blockbot/internal/domain"
)

// NewMediaRepliesCommand returns the media-replies subcommand.
func NewMediaRepliesCommand() *cli.Command {
	flags := accountToggleFlags()
	flags = append(flags, mediaToggleFlags()...)
	flags = append(flags, runFlags()...)

	return &cli.Command{
		Name:      "media-replies",
		Usage:     "Block accounts replying to an account with native media",
		ArgsUsage: "<account>",
		Flags:     flags,
		Action:    runMediaReplies,
	}
}

func runMediaReplies(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() != 1 {
		return fmt.Errorf("usage: blockbot media-replies <account>")
	}
	target := cmd.Args().First()

	rules := rulesFromCmd(cmd, true)
	if err := rules.Validate(); err != nil {
		return fmt.Errorf("whitelist rules: %w", err)
	}

	if cmd.Bool("daemon") {
		return spawnDaemon(domain.ModeMediaReplies)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.runPipelines(ctx, cmd, rules, domain.ModeMediaReplies, []string{target})
}
