package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"blockbot/internal/domain"
)

type ArchiveStore struct {
	db *sqlx.DB
}

func NewArchiveStore(db *sqlx.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

type blockedRow struct {
	RunID            string `db:"run_id"`
	AccountID        string `db:"account_id"`
	ScreenName       string `db:"screen_name"`
	Name             string `db:"name"`
	Verified         bool   `db:"verified"`
	Protected        bool   `db:"protected"`
	FollowersCount   int    `db:"followers_count"`
	FriendsCount     int    `db:"friends_count"`
	StatusesCount    int    `db:"statuses_count"`
	AccountCreatedAt int64  `db:"account_created_at"`
	Description      string `db:"description"`
	Location         string `db:"location"`
	URL              string `db:"url"`
	Target           string `db:"target"`
	MediaKind        string `db:"media_kind"`
	BlockedAt        int64  `db:"blocked_at"`
}

func (r blockedRow) toDomain() domain.BlockedAccount {
	b := domain.BlockedAccount{
		RunID:          r.RunID,
		AccountID:      r.AccountID,
		ScreenName:     r.ScreenName,
		Name:           r.Name,
		Verified:       r.Verified,
		Protected:      r.Protected,
		FollowersCount: r.FollowersCount,
		FriendsCount:   r.FriendsCount,
		StatusesCount:  r.StatusesCount,
		Description:    r.Description,
		Location:       r.Location,
		URL:            r.URL,
		Target:         r.Target,
		MediaKind:      domain.MediaKind(r.MediaKind),
		BlockedAt:      time.Unix(r.BlockedAt, 0).UTC(),
	}
	if r.AccountCreatedAt > 0 {
		b.AccountAge = time.Unix(r.AccountCreatedAt, 0).UTC()
	}
	return b
}

// Record archives the blocks issued for one page.
func (s *ArchiveStore) Record(ctx context.Context, rows []domain.BlockedAccount) error {
	if len(rows) == 0 {
		return nil
	}

	exec := GetExecutor(ctx, s.db)
	query := `
		INSERT INTO blocked_accounts (
			run_id, account_id, screen_name, name, verified, protected,
			followers_count, friends_count, statuses_count, account_created_at,
			description, location, url, target, media_kind, blocked_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (run_id, account_id) DO NOTHING`

	for _, b := range rows {
		var createdAt int64
		if !b.AccountAge.IsZero() {
			createdAt = b.AccountAge.Unix()
		}
		if _, err := exec.ExecContext(ctx, query,
			b.RunID, b.AccountID, b.ScreenName, b.Name, b.Verified, b.Protected,
			b.FollowersCount, b.FriendsCount, b.StatusesCount, createdAt,
			b.Description, b.Location, b.URL, b.Target, string(b.MediaKind), b.BlockedAt.Unix(),
		); err != nil {
			return err
		}
	}
	return nil
}

// List returns the run's archived blocks ordered by block time.
func (s *ArchiveStore) List(ctx context.Context, runID string) ([]domain.BlockedAccount, error) {
	var rows []blockedRow
	query := `
		SELECT run_id, account_id, screen_name, name, verified, protected,
			followers_count, friends_count, statuses_count, account_created_at,
			description, location, url, target, media_kind, blocked_at
		FROM blocked_accounts
		WHERE run_id = ?
		ORDER BY blocked_at, account_id`

	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, runID); err != nil {
		return nil, err
	}

	out := make([]domain.BlockedAccount, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
