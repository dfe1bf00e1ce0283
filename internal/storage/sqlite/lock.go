package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"blockbot/internal/domain"
)

// LockStore guards each run with a single-row advisory lock. Lock
// operations always run against the database directly, never inside a
// page transaction.
type LockStore struct {
	db    *sqlx.DB
	nowFn func() time.Time
}

func NewLockStore(db *sqlx.DB) *LockStore {
	return &LockStore{db: db, nowFn: time.Now}
}

type lockRow struct {
	RunID       string `db:"run_id"`
	Holder      string `db:"holder"`
	AcquiredAt  int64  `db:"acquired_at"`
	RefreshedAt int64  `db:"refreshed_at"`
}

// TryAcquire takes the run's lock if it is free or stale. It never waits:
// a live lock held by someone else yields Acquired=false with the current
// holder, so the caller can fail fast.
func (s *LockStore) TryAcquire(ctx context.Context, runID, holder string, staleAfter time.Duration) (*domain.LockGrant, error) {
	now := s.nowFn()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var row lockRow
	err = tx.GetContext(ctx, &row,
		`SELECT run_id, holder, acquired_at, refreshed_at FROM run_locks WHERE run_id = ?`, runID)

	if err == sql.ErrNoRows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_locks (run_id, holder, acquired_at, refreshed_at) VALUES (?, ?, ?, ?)`,
			runID, holder, now.Unix(), now.Unix(),
		); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return &domain.LockGrant{Acquired: true, Holder: holder}, nil
	}
	if err != nil {
		return nil, err
	}

	if now.Sub(time.Unix(row.RefreshedAt, 0)) <= staleAfter {
		return &domain.LockGrant{Acquired: false, Holder: row.Holder}, nil
	}

	// The previous holder stopped refreshing; assume it died mid-run.
	if _, err := tx.ExecContext(ctx,
		`UPDATE run_locks SET holder = ?, acquired_at = ?, refreshed_at = ? WHERE run_id = ?`,
		holder, now.Unix(), now.Unix(), runID,
	); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &domain.LockGrant{Acquired: true, Reclaimed: true, Holder: row.Holder}, nil
}

// Refresh stamps the lock as live. It fails when the lock is gone or was
// reclaimed by another holder, which means this instance lost ownership.
func (s *LockStore) Refresh(ctx context.Context, runID, holder string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE run_locks SET refreshed_at = ? WHERE run_id = ? AND holder = ?`,
		s.nowFn().Unix(), runID, holder)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("lock for %s no longer held by %s", runID, holder)
	}
	return nil
}

// Release drops the lock if this holder still owns it.
func (s *LockStore) Release(ctx context.Context, runID, holder string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM run_locks WHERE run_id = ? AND holder = ?`, runID, holder)
	return err
}

// Holder reports who currently holds the run's lock, if anyone.
func (s *LockStore) Holder(ctx context.Context, runID string) (string, time.Time, error) {
	var row lockRow
	err := s.db.GetContext(ctx, &row,
		`SELECT run_id, holder, acquired_at, refreshed_at FROM run_locks WHERE run_id = ?`, runID)
	if err == sql.ErrNoRows {
		return "", time.Time{}, nil
	}
	if err != nil {
		return "", time.Time{}, err
	}
	return row.Holder, time.Unix(row.RefreshedAt, 0).UTC(), nil
}
