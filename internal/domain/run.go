package domain

import (
	"strings"
	"time"
)

const (
	ModeFollowers    = "followers"
	ModeMediaReplies = "media-replies"
)

// DeriveRunID builds the stable identifier scoping persisted state and
// locking for one selection mode + target pair.
func DeriveRunID(mode, target string) string {
	return mode + ":" + strings.ToLower(target)
}

// RunState is the persisted progress of one run. Processed only grows; an
// account in it is never evaluated again for this run.
type RunState struct {
	RunID       string
	Cursor      string
	Completed   bool
	LastFetchAt time.Time
	Processed   map[string]struct{}
}

// NewRunState returns the initial state for a run that has never executed.
func NewRunState(runID string) *RunState {
	return &RunState{
		RunID:     runID,
		Processed: make(map[string]struct{}),
	}
}

type ProcessedOutcome string

const (
	ProcessedBlocked ProcessedOutcome = "blocked"
	ProcessedSkipped ProcessedOutcome = "skipped"
)

// ProcessedAccount records one evaluated candidate, blocked or whitelisted.
type ProcessedAccount struct {
	AccountID   string
	ScreenName  string
	Outcome     ProcessedOutcome
	ProcessedAt time.Time
}

// BlockedAccount is the archive row written for every issued block.
type BlockedAccount struct {
	RunID          string
	AccountID      string
	ScreenName     string
	Name           string
	Verified       bool
	Protected      bool
	FollowersCount int
	FriendsCount   int
	StatusesCount  int
	AccountAge     time.Time
	Description    string
	Location       string
	URL            string
	Target         string
	MediaKind      MediaKind
	BlockedAt      time.Time
}

// RunOutcome classifies how a pipeline run ended.
type RunOutcome string

const (
	OutcomeCompleted  RunOutcome = "completed"
	OutcomeExhausted  RunOutcome = "exhausted"
	OutcomeTerminated RunOutcome = "terminated"
	OutcomeFailed     RunOutcome = "failed"
)

// FailureTransientExhausted marks a run that gave up after too many
// consecutive transient failures.
const FailureTransientExhausted = "transient-exhausted"

// RunStats holds counters for a single pipeline run.
type RunStats struct {
	Pages            int
	Fetched          int
	Blocked          int
	Skipped          int
	AlreadyProcessed int
	Published        int
	PublishErrors    int
	Duration         time.Duration
}

// RunReport is the result of one pipeline invocation.
type RunReport struct {
	RunID       string
	Outcome     RunOutcome
	FailureKind string
	Stats       RunStats
}

// LockGrant is the result of a lock acquisition attempt. Holder carries the
// previous holder when the lock was reclaimed or is still held.
type LockGrant struct {
	Acquired  bool
	Reclaimed bool
	Holder    string
}

// RunSummary is a store-level view of a run for status reporting.
type RunSummary struct {
	RunID          string
	Cursor         string
	Completed      bool
	ProcessedCount int
	BlockedCount   int
	LastFetchAt    time.Time
	LockHolder     string
	LockRefreshed  time.Time
}
