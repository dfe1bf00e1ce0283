package commands

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"blockbot/internal/daemon"
	"blockbot/internal/domain"
	"blockbot/internal/metrics"
	"blockbot/internal/pipeline"
	"blockbot/internal/publisher"
	"blockbot/internal/storage/sqlite"
	"blockbot/internal/twitter"
	"blockbot/internal/whitelist"
)

func accountToggleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:  "whitelist",
			Usage: "Screen name that is never blocked (repeatable)",
		},
		&cli.BoolFlag{
			Name:  "whitelist-verified",
			Usage: "Never block verified accounts",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "whitelist-following",
			Usage: "Never block accounts you follow",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "whitelist-follow-request-sent",
			Usage: "Never block accounts with a pending follow request",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "whitelist-friendship",
			Usage: "Never block accounts that follow you",
			Value: true,
		},
	}
}

func mediaToggleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "whitelist-photo",
			Usage: "Never block replies whose media is a photo",
			Value: true,
		},
		&cli.BoolFlag{
			Name:  "whitelist-animated-gif",
			Usage: "Never block replies whose media is an animated GIF",
		},
		&cli.BoolFlag{
			Name:  "whitelist-video",
			Usage: "Never block replies whose media is a video",
		},
	}
}

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.DurationFlag{
			Name:  "sleep-time",
			Usage: "Wait before retrying a rate-limited call without a reset hint",
		},
		&cli.BoolFlag{
			Name:  "daemon",
			Usage: "Detach and run in the background",
		},
	}
}

func rulesFromCmd(cmd *cli.Command, media bool) whitelist.Rules {
	rules := whitelist.DefaultRules(cmd.StringSlice("whitelist")...)
	rules.Verified = cmd.Bool("whitelist-verified")
	rules.Following = cmd.Bool("whitelist-following")
	rules.FollowRequestSent = cmd.Bool("whitelist-follow-request-sent")
	rules.Friendship = cmd.Bool("whitelist-friendship")
	if media {
		rules.Photo = cmd.Bool("whitelist-photo")
		rules.AnimatedImage = cmd.Bool("whitelist-animated-gif")
		rules.Video = cmd.Bool("whitelist-video")
	}
	return rules
}

// spawnDaemon re-runs the current invocation detached, minus the daemon
// flag so the child takes the foreground path.
func spawnDaemon(name string) error {
	args := stripDaemonFlag(os.Args[1:])
	pid, err := daemon.Spawn(args, daemon.PidPath(name), daemon.LogPath(name))
	if err != nil {
		return err
	}
	fmt.Printf("started %s run in background (pid %d), log: %s\n", name, pid, daemon.LogPath(name))
	return nil
}

func stripDaemonFlag(args []string) []string {
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "--daemon" || strings.HasPrefix(arg, "--daemon=") {
			continue
		}
		out = append(out, arg)
	}
	return out
}

// runPipelines verifies credentials and targets, then executes one pipeline
// run per target, sequentially.
func (a *app) runPipelines(ctx context.Context, cmd *cli.Command, rules whitelist.Rules, mode string, targets []string) error {
	if err := a.cfg.Twitter.Credentials.Validate(); err != nil {
		return fmt.Errorf("twitter credentials: %w", err)
	}

	client := twitter.New(twitter.Config{
		BaseURL:           a.cfg.Twitter.BaseURL,
		Timeout:           a.cfg.Twitter.Timeout,
		RateRPS:           a.cfg.Twitter.RateRPS,
		RateBurst:         a.cfg.Twitter.RateBurst,
		ConsumerKey:       a.cfg.Twitter.Credentials.ConsumerKey,
		ConsumerSecret:    a.cfg.Twitter.Credentials.ConsumerSecret,
		AccessToken:       a.cfg.Twitter.Credentials.AccessToken,
		AccessTokenSecret: a.cfg.Twitter.Credentials.AccessTokenSecret,
	}, a.logger)

	me, err := client.VerifyCredentials(ctx)
	if err != nil {
		return fmt.Errorf("verify credentials: %w", err)
	}
	a.logger.Info("authenticated", "screen_name", me.ScreenName)

	if err := lookupTargets(ctx, client, targets); err != nil {
		return err
	}

	metrics.StartServer(a.cfg.Metrics.Addr)

	var pub pipeline.Publisher
	if a.cfg.RabbitMQ.Enabled() {
		rmq, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        a.cfg.RabbitMQ.URL,
			Exchange:   a.cfg.RabbitMQ.Exchange,
			RoutingKey: a.cfg.RabbitMQ.RoutingKey,
			QueueName:  a.cfg.RabbitMQ.QueueName,
		}, a.logger)
		if err != nil {
			return fmt.Errorf("connect publisher: %w", err)
		}
		defer rmq.Close()
		pub = rmq
	}

	pipelineCfg := pipeline.Config{
		SleepTime:              a.cfg.Pipeline.SleepTime,
		MaxConsecutiveFailures: a.cfg.Pipeline.MaxConsecutiveFailures,
		LockStaleAfter:         a.cfg.Pipeline.LockStaleAfter,
	}
	if d := cmd.Duration("sleep-time"); d > 0 {
		pipelineCfg.SleepTime = d
	}

	runs := sqlite.NewRunStateStore(a.db)
	archive := sqlite.NewArchiveStore(a.db)
	locks := sqlite.NewLockStore(a.db)
	txManager := sqlite.NewTransactionManager(a.db)

	for _, target := range targets {
		var source pipeline.CandidateSource
		switch mode {
		case domain.ModeFollowers:
			source = twitter.NewFollowersSource(client, target)
		default:
			source = twitter.NewMediaRepliesSource(client, target)
		}

		p := pipeline.New(source, runs, archive, locks, txManager, client, pub, rules, a.logger, pipelineCfg)

		report, err := p.Run(ctx)
		if err != nil {
			return err
		}

		outcome := string(report.Outcome)
		if report.FailureKind != "" {
			outcome += " (" + report.FailureKind + ")"
		}
		fmt.Printf("%s: %s, pages %d, fetched %d, blocked %d, skipped %d\n",
			report.RunID, outcome,
			report.Stats.Pages, report.Stats.Fetched,
			report.Stats.Blocked, report.Stats.Skipped,
		)

		if report.Outcome == domain.OutcomeTerminated {
			break
		}
	}

	return nil
}

// lookupTargets fails before any state is touched when a target does not
// exist or is misspelled.
func lookupTargets(ctx context.Context, client *twitter.Client, targets []string) error {
	found, err := client.LookupUsers(ctx, targets)
	if err != nil {
		return fmt.Errorf("look up targets: %w", err)
	}

	known := make(map[string]struct{}, len(found))
	for _, acc := range found {
		known[strings.ToLower(acc.ScreenName)] = struct{}{}
	}
	for _, target := range targets {
		if _, ok := known[strings.ToLower(target)]; !ok {
			return fmt.Errorf("account %s not found", target)
		}
	}
	return nil
}
