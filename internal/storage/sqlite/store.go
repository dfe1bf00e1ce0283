package sqlite

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Open opens (or creates) the embedded store at path and applies the
// schema. Pass ":memory:" for an ephemeral store.
func Open(path string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	// Single writer. Also pins in-memory stores to one connection, which
	// would otherwise see a fresh database per pooled connection.
	db.SetMaxOpenConns(1)

	// synchronous=FULL: a committed page must survive power loss, or the
	// next run reprocesses accounts the store already acknowledged.
	if _, err := db.Exec(`PRAGMA journal_mode=WAL; PRAGMA synchronous=FULL; PRAGMA busy_timeout=5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

func migrate(db *sqlx.DB) error {
	_, err := db.Exec(schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS run_state (
	run_id        TEXT PRIMARY KEY,
	cursor        TEXT NOT NULL DEFAULT '',
	completed     INTEGER NOT NULL DEFAULT 0,
	last_fetch_at INTEGER NOT NULL DEFAULT 0,
	updated_at    INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS processed_accounts (
	run_id       TEXT NOT NULL,
	account_id   TEXT NOT NULL,
	screen_name  TEXT NOT NULL DEFAULT '',
	outcome      TEXT NOT NULL,
	processed_at INTEGER NOT NULL,
	PRIMARY KEY (run_id, account_id)
);

CREATE TABLE IF NOT EXISTS run_locks (
	run_id       TEXT PRIMARY KEY,
	holder       TEXT NOT NULL,
	acquired_at  INTEGER NOT NULL,
	refreshed_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS blocked_accounts (
	run_id             TEXT NOT NULL,
	account_id         TEXT NOT NULL,
	screen_name        TEXT NOT NULL DEFAULT '',
	name               TEXT NOT NULL DEFAULT '',
	verified           INTEGER NOT NULL DEFAULT 0,
	protected          INTEGER NOT NULL DEFAULT 0,
	followers_count    INTEGER NOT NULL DEFAULT 0,
	friends_count      INTEGER NOT NULL DEFAULT 0,
	statuses_count     INTEGER NOT NULL DEFAULT 0,
	account_created_at INTEGER NOT NULL DEFAULT 0,
	description        TEXT NOT NULL DEFAULT '',
	location           TEXT NOT NULL DEFAULT '',
	url                TEXT NOT NULL DEFAULT '',
	target             TEXT NOT NULL DEFAULT '',
	media_kind         TEXT NOT NULL DEFAULT '',
	blocked_at         INTEGER NOT NULL,
	PRIMARY KEY (run_id, account_id)
);
`
