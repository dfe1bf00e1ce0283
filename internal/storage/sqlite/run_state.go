package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"blockbot/internal/domain"
)

type RunStateStore struct {
	db *sqlx.DB
}

func NewRunStateStore(db *sqlx.DB) *RunStateStore {
	return &RunStateStore{db: db}
}

type runStateRow struct {
	RunID       string `db:"run_id"`
	Cursor      string `db:"cursor"`
	Completed   bool   `db:"completed"`
	LastFetchAt int64  `db:"last_fetch_at"`
}

// Get loads the run's cursor plus its full processed set. Unknown runs get
// a fresh state so a first invocation needs no special casing.
func (s *RunStateStore) Get(ctx context.Context, runID string) (*domain.RunState, error) {
	exec := GetExecutor(ctx, s.db)
	state := domain.NewRunState(runID)

	var row runStateRow
	query := `
		SELECT run_id, cursor, completed, last_fetch_at
		FROM run_state
		WHERE run_id = ?`

	err := sqlx.GetContext(ctx, exec, &row, query, runID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		state.Cursor = row.Cursor
		state.Completed = row.Completed
		if row.LastFetchAt > 0 {
			state.LastFetchAt = time.Unix(row.LastFetchAt, 0).UTC()
		}
	}

	var ids []string
	if err := sqlx.SelectContext(ctx, exec, &ids,
		`SELECT account_id FROM processed_accounts WHERE run_id = ?`, runID); err != nil {
		return nil, err
	}
	for _, id := range ids {
		state.Processed[id] = struct{}{}
	}

	return state, nil
}

func (s *RunStateStore) Save(ctx context.Context, state *domain.RunState) error {
	exec := GetExecutor(ctx, s.db)
	query := `
		INSERT INTO run_state (run_id, cursor, completed, last_fetch_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id) DO UPDATE SET
			cursor = excluded.cursor,
			completed = excluded.completed,
			last_fetch_at = excluded.last_fetch_at,
			updated_at = excluded.updated_at`

	var lastFetch int64
	if !state.LastFetchAt.IsZero() {
		lastFetch = state.LastFetchAt.Unix()
	}

	_, err := exec.ExecContext(ctx, query,
		state.RunID,
		state.Cursor,
		state.Completed,
		lastFetch,
		time.Now().Unix(),
	)
	return err
}

// MarkProcessed appends to the run's processed set. The set only grows;
// replays of already recorded accounts are ignored.
func (s *RunStateStore) MarkProcessed(ctx context.Context, runID string, accounts []domain.ProcessedAccount) error {
	if len(accounts) == 0 {
		return nil
	}

	exec := GetExecutor(ctx, s.db)
	query := `
		INSERT INTO processed_accounts (run_id, account_id, screen_name, outcome, processed_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (run_id, account_id) DO NOTHING`

	for _, a := range accounts {
		if _, err := exec.ExecContext(ctx, query,
			runID, a.AccountID, a.ScreenName, string(a.Outcome), a.ProcessedAt.Unix(),
		); err != nil {
			return err
		}
	}
	return nil
}
