package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// SQLiteStore keeps sessions in a local database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens path and applies migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		user TEXT NOT NULL,
		login_at DATETIME NOT NULL,
		path TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS session_actions (
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (session_id, seq)
	);
	`
	_, err := s.db.Exec(query)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Create(ctx context.Context, user, path string) (Session, error) {
	sess := Session{
		ID:      uuid.NewString(),
		User:    user,
		LoginAt: time.Now().UTC().Truncate(time.Second),
		Actions: []string{},
		Path:    path,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user, login_at, path) VALUES (?, ?, ?, ?)`,
		sess.ID, sess.User, sess.LoginAt, sess.Path)
	if err != nil {
		return Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return sess, nil
}

func (s *SQLiteStore) AppendAction(ctx context.Context, id, action string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE id = ?`, id).Scan(&exists); err != nil {
		return err
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO session_actions (session_id, seq, name)
		VALUES (?, (SELECT COALESCE(MAX(seq), -1) + 1 FROM session_actions WHERE session_id = ?), ?)`,
		id, id, action)
	if err != nil {
		return fmt.Errorf("failed to append action: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) List(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user, login_at, path FROM sessions ORDER BY login_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Session
	index := make(map[string]int)
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.User, &sess.LoginAt, &sess.Path); err != nil {
			return nil, err
		}
		sess.Actions = []string{}
		index[sess.ID] = len(out)
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	actions, err := s.db.QueryContext(ctx, `SELECT session_id, name FROM session_actions ORDER BY session_id, seq`)
	if err != nil {
		return nil, err
	}
	defer actions.Close()
	for actions.Next() {
		var id, name string
		if err := actions.Scan(&id, &name); err != nil {
			return nil, err
		}
		if i, ok := index[id]; ok {
			out[i].Actions = append(out[i].Actions, name)
		}
	}
	return out, actions.Err()
}

func (s *SQLiteStore) DeleteAll(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_actions`); err != nil {
		return 0, err
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, tx.Commit()
}
