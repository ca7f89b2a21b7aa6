package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/scriptboard/backend/internal/domain/history"
	"github.com/scriptboard/backend/internal/domain/script"
)

const schema = `
CREATE TABLE IF NOT EXISTS scripts (
    id TEXT PRIMARY KEY,
    learner_id TEXT NOT NULL,
    text TEXT NOT NULL,
    category TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scripts_learner ON scripts(learner_id);

CREATE TABLE IF NOT EXISTS history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    learner_id TEXT NOT NULL,
    script_id TEXT NOT NULL,
    used_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_learner ON history(learner_id);
`

type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; one connection also keeps an
	// in-memory database alive for the lifetime of the store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// Scripts
// ============================================================================

func (s *SQLiteStore) SaveScript(ctx context.Context, sc *script.Script) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO scripts (id, learner_id, text, category, created_at) VALUES (?, ?, ?, ?, ?)",
		sc.ID, sc.LearnerID, sc.Text, string(sc.Category), sc.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("save script: %w", err)
	}
	return nil
}

// SaveScripts inserts all scripts in a single transaction.
func (s *SQLiteStore) SaveScripts(ctx context.Context, scripts []*script.Script) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, sc := range scripts {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO scripts (id, learner_id, text, category, created_at) VALUES (?, ?, ?, ?, ?)",
			sc.ID, sc.LearnerID, sc.Text, string(sc.Category), sc.CreatedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("save script %q: %w", sc.Text, err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetScript(ctx context.Context, learnerID, id string) (*script.Script, error) {
	var row scriptRow
	err := s.db.GetContext(ctx, &row,
		"SELECT id, learner_id, text, category, created_at FROM scripts WHERE id = ? AND learner_id = ?",
		id, learnerID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	sc := row.toScript()
	return &sc, nil
}

// ListScripts returns the learner's scripts, oldest first.
func (s *SQLiteStore) ListScripts(ctx context.Context, learnerID string) ([]script.Script, error) {
	var rows []scriptRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, learner_id, text, category, created_at FROM scripts WHERE learner_id = ? ORDER BY created_at, id",
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list scripts: %w", err)
	}

	scripts := make([]script.Script, 0, len(rows))
	for _, r := range rows {
		scripts = append(scripts, r.toScript())
	}
	return scripts, nil
}

func (s *SQLiteStore) CountScripts(ctx context.Context, learnerID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM scripts WHERE learner_id = ?", learnerID); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteScript removes a script. History entries that reference it are
// kept and simply no longer match any script.
func (s *SQLiteStore) DeleteScript(ctx context.Context, learnerID, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM scripts WHERE id = ? AND learner_id = ?", id, learnerID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListLearners returns every learner that owns scripts or history.
func (s *SQLiteStore) ListLearners(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.SelectContext(ctx, &ids, `
		SELECT learner_id FROM scripts
		UNION
		SELECT learner_id FROM history
		ORDER BY learner_id
	`)
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	return ids, nil
}

// ============================================================================
// History
// ============================================================================

// ListHistory returns the learner's history in insertion order.
func (s *SQLiteStore) ListHistory(ctx context.Context, learnerID string) ([]history.Entry, error) {
	var rows []historyRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT script_id, used_at FROM history WHERE learner_id = ? ORDER BY id",
		learnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	entries := make([]history.Entry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

// ReplaceHistory overwrites the learner's history with entries, keeping
// their order.
func (s *SQLiteStore) ReplaceHistory(ctx context.Context, learnerID string, entries []history.Entry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM history WHERE learner_id = ?", learnerID); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}

	for _, e := range entries {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO history (learner_id, script_id, used_at) VALUES (?, ?, ?)",
			learnerID, e.ScriptID, e.UsedAt.UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("insert history: %w", err)
		}
	}

	return tx.Commit()
}
