package sqlite

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"blockbot/internal/domain"
)

// Tables in export order.
var tables = []string{"run_state", "processed_accounts", "run_locks", "blocked_accounts"}

type Maintenance struct {
	db *sqlx.DB
}

func NewMaintenance(db *sqlx.DB) *Maintenance {
	return &Maintenance{db: db}
}

// ExportCSV writes one CSV file per table into dir, header row first.
func (m *Maintenance) ExportCSV(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, table := range tables {
		if err := m.exportTable(ctx, dir, table); err != nil {
			return fmt.Errorf("export %s: %w", table, err)
		}
	}
	return nil
}

func (m *Maintenance) exportTable(ctx context.Context, dir, table string) error {
	rows, err := m.db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, table+".csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cols); err != nil {
		return err
	}

	values := make([]any, len(cols))
	scanArgs := make([]any, len(cols))
	for i := range values {
		scanArgs[i] = &values[i]
	}
	record := make([]string, len(cols))

	for rows.Next() {
		if err := rows.Scan(scanArgs...); err != nil {
			return err
		}
		for i, v := range values {
			record[i] = formatValue(v)
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

// Reset deletes everything recorded for one run, lock included.
func (m *Maintenance) Reset(ctx context.Context, runID string) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// ResetAll wipes every run.
func (m *Maintenance) ResetAll(ctx context.Context) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("reset %s: %w", table, err)
		}
	}
	return tx.Commit()
}

type runSummaryRow struct {
	RunID          string `db:"run_id"`
	Cursor         string `db:"cursor"`
	Completed      bool   `db:"completed"`
	LastFetchAt    int64  `db:"last_fetch_at"`
	LockHolder     string `db:"lock_holder"`
	LockRefreshed  int64  `db:"lock_refreshed"`
	ProcessedCount int    `db:"processed_count"`
	BlockedCount   int    `db:"blocked_count"`
}

// Runs summarizes every known run for status output.
func (m *Maintenance) Runs(ctx context.Context) ([]domain.RunSummary, error) {
	query := `
		SELECT rs.run_id, rs.cursor, rs.completed, rs.last_fetch_at,
			COALESCE(l.holder, '') AS lock_holder,
			COALESCE(l.refreshed_at, 0) AS lock_refreshed,
			(SELECT COUNT(*) FROM processed_accounts p WHERE p.run_id = rs.run_id) AS processed_count,
			(SELECT COUNT(*) FROM blocked_accounts b WHERE b.run_id = rs.run_id) AS blocked_count
		FROM run_state rs
		LEFT JOIN run_locks l ON l.run_id = rs.run_id
		ORDER BY rs.run_id`

	var rows []runSummaryRow
	if err := m.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, err
	}

	out := make([]domain.RunSummary, 0, len(rows))
	for _, r := range rows {
		s := domain.RunSummary{
			RunID:          r.RunID,
			Cursor:         r.Cursor,
			Completed:      r.Completed,
			ProcessedCount: r.ProcessedCount,
			BlockedCount:   r.BlockedCount,
			LockHolder:     r.LockHolder,
		}
		if r.LastFetchAt > 0 {
			s.LastFetchAt = time.Unix(r.LastFetchAt, 0).UTC()
		}
		if r.LockRefreshed > 0 {
			s.LockRefreshed = time.Unix(r.LockRefreshed, 0).UTC()
		}
		out = append(out, s)
	}
	return out, nil
}
