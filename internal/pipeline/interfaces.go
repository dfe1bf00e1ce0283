package pipeline

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"blockbot/internal/domain"
)

// CandidateSource yields pages of candidate accounts for one run.
type CandidateSource interface {
	Mode() string
	Target() string
	FetchPage(ctx context.Context, cursor string) (*domain.CandidatePage, error)
}

// Blocker issues the remote block action.
type Blocker interface {
	Block(ctx context.Context, accountID string) error
}

type RunStateStore interface {
	Get(ctx context.Context, runID string) (*domain.RunState, error)
	Save(ctx context.Context, state *domain.RunState) error
	MarkProcessed(ctx context.Context, runID string, accounts []domain.ProcessedAccount) error
}

type ArchiveStore interface {
	Record(ctx context.Context, rows []domain.BlockedAccount) error
}

type LockStore interface {
	TryAcquire(ctx context.Context, runID, holder string, staleAfter time.Duration) (*domain.LockGrant, error)
	Refresh(ctx context.Context, runID, holder string) error
	Release(ctx context.Context, runID, holder string) error
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event *domain.BlockEvent) error
	Close() error
}
