// Package resources holds example long-lived dependencies wired through the
// core's executor model: the DI runtime owns their open/close lifecycle,
// they are not part of the core itself. A sqlite-backed key/value store is
// the canonical example the core's own design notes call out (persistent
// storage is "an example of use, not part of the core").
package resources

import (
	"context"
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	pumped "github.com/pumped-fn/pumped-core"
)

// Store is a minimal key/value wrapper over a sqlite-backed table, enough
// to demonstrate a pumped executor managing a real external resource.
type Store struct {
	db *sql.DB
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&val)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO kv (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

// ProvideSQLiteStore declares a leaf executor opening a sqlite database at
// dsn (e.g. "file:app.db?cache=shared" or ":memory:"), creating the kv
// table if absent, and closing the connection on release or scope
// disposal. Resolved once per scope like any other executor; callers
// needing a fresh connection per test should use a fresh scope or
// WithPreset.
func ProvideSQLiteStore(dsn string, opts ...pumped.ExecutorOption) *pumped.Executor[*Store] {
	return pumped.Provide(func(ctx *pumped.ResolveCtx, self *pumped.Controller[*Store]) (*Store, error) {
		db, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, err
		}

		if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (key TEXT PRIMARY KEY, value TEXT NOT NULL)`); err != nil {
			db.Close()
			return nil, err
		}

		ctx.OnCleanup(func() error {
			return db.Close()
		})

		return &Store{db: db}, nil
	}, opts...)
}
