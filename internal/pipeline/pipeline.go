package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"blockbot/internal/domain"
	"blockbot/internal/metrics"
	"blockbot/internal/whitelist"
)

// Config tunes retry, backoff and lock staleness for a run.
type Config struct {
	SleepTime              time.Duration
	MaxConsecutiveFailures int
	LockStaleAfter         time.Duration
}

// Pipeline drives one run to its end: enumerate candidate pages, filter
// them through the whitelist, block what remains, and commit progress one
// page at a time so an interrupted run resumes where it stopped.
type Pipeline struct {
	source    CandidateSource
	runs      RunStateStore
	archive   ArchiveStore
	locks     LockStore
	txManager TransactionManager
	blocker   Blocker
	publisher Publisher
	rules     whitelist.Rules
	logger    *slog.Logger
	config    Config
	runID     string
	holder    string
}

func New(
	source CandidateSource,
	runs RunStateStore,
	archive ArchiveStore,
	locks LockStore,
	txManager TransactionManager,
	blocker Blocker,
	publisher Publisher,
	rules whitelist.Rules,
	logger *slog.Logger,
	cfg Config,
) *Pipeline {
	runID := domain.DeriveRunID(source.Mode(), source.Target())
	return &Pipeline{
		source:    source,
		runs:      runs,
		archive:   archive,
		locks:     locks,
		txManager: txManager,
		blocker:   blocker,
		publisher: publisher,
		rules:     rules,
		logger:    logger.With("run_id", runID),
		config:    cfg,
		runID:     runID,
		holder:    newHolder(),
	}
}

// newHolder identifies this instance for lock ownership.
func newHolder() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s#%d#%s", host, os.Getpid(), uuid.NewString())
}

// Run executes the pipeline until the source is exhausted, the context is
// cancelled, or an unrecoverable error stops it. The returned report is
// populated even when err != nil.
func (p *Pipeline) Run(ctx context.Context) (*domain.RunReport, error) {
	startTime := time.Now()
	report := &domain.RunReport{RunID: p.runID}

	grant, err := p.locks.TryAcquire(ctx, p.runID, p.holder, p.config.LockStaleAfter)
	if err != nil {
		return report, fmt.Errorf("acquire lock: %w", err)
	}
	if !grant.Acquired {
		return report, fmt.Errorf("%w: held by %s", domain.ErrAlreadyRunning, grant.Holder)
	}
	if grant.Reclaimed {
		p.logger.Warn("reclaimed stale lock", "previous_holder", grant.Holder)
	}
	defer func() {
		if err := p.locks.Release(context.WithoutCancel(ctx), p.runID, p.holder); err != nil {
			p.logger.Error("release lock", "error", err)
		}
	}()

	state, err := p.runs.Get(ctx, p.runID)
	if err != nil {
		report.Outcome = domain.OutcomeFailed
		return report, fmt.Errorf("load run state: %w", err)
	}

	if state.Completed {
		p.logger.Info("run already completed, nothing to do",
			"processed", len(state.Processed),
		)
		report.Outcome = domain.OutcomeExhausted
		report.Stats.Duration = time.Since(startTime)
		return report, nil
	}

	p.logger.Info("starting run",
		"mode", p.source.Mode(),
		"target", p.source.Target(),
		"cursor", state.Cursor,
		"already_processed", len(state.Processed),
	)

	outcome, failureKind, err := p.loop(ctx, state, &report.Stats)
	report.Stats.Duration = time.Since(startTime)
	if err != nil {
		report.Outcome = domain.OutcomeFailed
		return report, err
	}

	report.Outcome = outcome
	report.FailureKind = failureKind

	metrics.RunsTotal.WithLabelValues(string(outcome)).Inc()
	metrics.RunDuration.Observe(report.Stats.Duration.Seconds())

	p.logger.Info("run finished",
		"outcome", report.Outcome,
		"pages", report.Stats.Pages,
		"fetched", report.Stats.Fetched,
		"blocked", report.Stats.Blocked,
		"skipped", report.Stats.Skipped,
		"already_processed", report.Stats.AlreadyProcessed,
		"published", report.Stats.Published,
		"duration", report.Stats.Duration,
	)

	return report, nil
}

func (p *Pipeline) loop(ctx context.Context, state *domain.RunState, stats *domain.RunStats) (domain.RunOutcome, string, error) {
	for {
		// Termination and lock liveness are page-boundary concerns: an
		// in-flight page either commits whole or is dropped whole.
		select {
		case <-ctx.Done():
			p.logger.Info("termination requested", "cursor", state.Cursor)
			return domain.OutcomeTerminated, "", nil
		default:
		}

		if err := p.locks.Refresh(ctx, p.runID, p.holder); err != nil {
			return "", "", fmt.Errorf("refresh lock: %w", err)
		}

		var page *domain.CandidatePage
		err := p.callWithRetry(ctx, "fetch page", func() error {
			var ferr error
			page, ferr = p.source.FetchPage(ctx, state.Cursor)
			return ferr
		})
		if err != nil {
			return p.mapLoopError(ctx, "fetch page", err)
		}

		processed, blocked, err := p.processPage(ctx, state, page, stats)
		if err != nil {
			return p.mapLoopError(ctx, "process page", err)
		}

		state.Cursor = page.NextCursor
		state.LastFetchAt = time.Now().UTC()
		if page.Exhausted {
			state.Completed = true
		}

		if err := p.commitPage(ctx, state, processed, blocked); err != nil {
			return "", "", err
		}

		for _, a := range processed {
			state.Processed[a.AccountID] = struct{}{}
		}

		p.publish(ctx, blocked, stats)

		stats.Pages++
		stats.Fetched += len(page.Candidates)
		metrics.PagesFetched.Inc()

		p.logger.Debug("page committed",
			"page", stats.Pages,
			"candidates", len(page.Candidates),
			"cursor", state.Cursor,
		)

		if page.Exhausted {
			return domain.OutcomeCompleted, "", nil
		}
	}
}

func (p *Pipeline) processPage(ctx context.Context, state *domain.RunState, page *domain.CandidatePage, stats *domain.RunStats) ([]domain.ProcessedAccount, []domain.BlockedAccount, error) {
	var processed []domain.ProcessedAccount
	var blocked []domain.BlockedAccount
	now := time.Now().UTC()

	for _, cand := range page.Candidates {
		if _, seen := state.Processed[cand.Account.ID]; seen {
			stats.AlreadyProcessed++
			continue
		}

		outcome := domain.ProcessedSkipped
		if whitelist.ShouldBlock(cand, p.rules) {
			if err := p.block(ctx, cand); err != nil {
				return nil, nil, err
			}
			outcome = domain.ProcessedBlocked
			blocked = append(blocked, newBlockedAccount(p.runID, p.source.Target(), cand, now))
			stats.Blocked++
			metrics.BlocksIssued.Inc()
			p.logger.Info("blocked account",
				"account_id", cand.Account.ID,
				"screen_name", cand.Account.ScreenName,
			)
		} else {
			stats.Skipped++
			metrics.AccountsSkipped.Inc()
			p.logger.Debug("whitelisted account", "screen_name", cand.Account.ScreenName)
		}

		processed = append(processed, domain.ProcessedAccount{
			AccountID:   cand.Account.ID,
			ScreenName:  cand.Account.ScreenName,
			Outcome:     outcome,
			ProcessedAt: now,
		})
	}

	return processed, blocked, nil
}

// block issues the remote block. Accounts the page already shows as
// blocking are not re-sent but still count, so reruns archive them
// consistently.
func (p *Pipeline) block(ctx context.Context, cand domain.Candidate) error {
	if cand.Account.Blocking {
		return nil
	}
	return p.callWithRetry(ctx, "create block", func() error {
		return p.blocker.Block(ctx, cand.Account.ID)
	})
}

// commitPage persists cursor, processed set and archive rows atomically.
// A crash therefore loses at most the page in flight.
func (p *Pipeline) commitPage(ctx context.Context, state *domain.RunState, processed []domain.ProcessedAccount, blocked []domain.BlockedAccount) error {
	err := p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := p.runs.Save(txCtx, state); err != nil {
			return fmt.Errorf("save run state: %w", err)
		}
		if err := p.runs.MarkProcessed(txCtx, state.RunID, processed); err != nil {
			return fmt.Errorf("mark processed: %w", err)
		}
		if err := p.archive.Record(txCtx, blocked); err != nil {
			return fmt.Errorf("record blocked: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit page: %w", err)
	}
	return nil
}

// publish emits one event per issued block, after the page committed.
// Publishing is best effort and never fails the run.
func (p *Pipeline) publish(ctx context.Context, blocked []domain.BlockedAccount, stats *domain.RunStats) {
	if p.publisher == nil {
		return
	}
	for _, b := range blocked {
		event := &domain.BlockEvent{
			Action:     "block",
			RunID:      b.RunID,
			AccountID:  b.AccountID,
			ScreenName: b.ScreenName,
			Target:     b.Target,
			MediaKind:  b.MediaKind,
			Timestamp:  time.Now().UTC(),
		}
		if err := p.publisher.Publish(ctx, event); err != nil {
			stats.PublishErrors++
			metrics.PublishErrors.Inc()
			p.logger.Warn("publish block event",
				"account_id", b.AccountID,
				"error", err,
			)
		} else {
			stats.Published++
		}
	}
}

// exhaustedError marks a spent transient retry budget, wrapping the last
// failure.
type exhaustedError struct {
	err error
}

func (e *exhaustedError) Error() string {
	return fmt.Sprintf("transient failures exhausted: %v", e.err)
}

func (e *exhaustedError) Unwrap() error { return e.err }

// callWithRetry applies the retry policy to one remote call: rate limits
// suspend and retry without bound, transient failures retry up to the
// configured budget, anything else returns as-is.
func (p *Pipeline) callWithRetry(ctx context.Context, op string, fn func() error) error {
	failures := 0
	for {
		err := fn()
		if err == nil {
			return nil
		}

		switch {
		case domain.IsRateLimited(err):
			wait := p.rateLimitWait(err)
			p.logger.Warn("rate limited, suspending",
				"op", op,
				"wait", wait,
			)
			metrics.RateLimitWaits.Inc()
			if err := p.sleep(ctx, wait); err != nil {
				return err
			}
		case domain.IsTransient(err):
			failures++
			if failures >= p.config.MaxConsecutiveFailures {
				return &exhaustedError{err: err}
			}
			p.logger.Warn("transient failure, backing off",
				"op", op,
				"failures", failures,
				"error", err,
			)
			metrics.TransientRetries.Inc()
			if err := p.sleep(ctx, p.config.SleepTime); err != nil {
				return err
			}
		default:
			return err
		}
	}
}

// mapLoopError folds a failed remote call into a run outcome. A cancelled
// context means clean termination; a spent transient budget fails the run
// with the failure kind in the report rather than an error.
func (p *Pipeline) mapLoopError(ctx context.Context, op string, err error) (domain.RunOutcome, string, error) {
	var exhausted *exhaustedError
	switch {
	case ctx.Err() != nil:
		p.logger.Info("termination requested", "op", op)
		return domain.OutcomeTerminated, "", nil
	case errors.As(err, &exhausted):
		p.logger.Error("giving up after consecutive transient failures",
			"op", op,
			"error", exhausted.Unwrap(),
		)
		return domain.OutcomeFailed, domain.FailureTransientExhausted, nil
	default:
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
}

// rateLimitWait picks the pause for a rate-limited call: the API's hint
// when it gave one, the configured sleep otherwise.
func (p *Pipeline) rateLimitWait(err error) time.Duration {
	var rl *domain.RateLimitError
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	return p.config.SleepTime
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func newBlockedAccount(runID, target string, cand domain.Candidate, now time.Time) domain.BlockedAccount {
	b := domain.BlockedAccount{
		RunID:          runID,
		AccountID:      cand.Account.ID,
		ScreenName:     cand.Account.ScreenName,
		Name:           cand.Account.Name,
		Verified:       cand.Account.Verified,
		Protected:      cand.Account.Protected,
		FollowersCount: cand.Account.FollowersCount,
		FriendsCount:   cand.Account.FriendsCount,
		StatusesCount:  cand.Account.StatusesCount,
		AccountAge:     cand.Account.CreatedAt,
		Description:    cand.Account.Description,
		Location:       cand.Account.Location,
		URL:            cand.Account.URL,
		Target:         target,
		BlockedAt:      now,
	}
	if cand.Reply != nil {
		b.MediaKind = cand.Reply.MediaKind
	}
	return b
}
