package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

var ErrSessionNotFound = errors.New("session not found")

type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteStore(dataSourceName string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS session (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
    );

    CREATE TABLE IF NOT EXISTS history (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        session_id INTEGER NOT NULL,
        question TEXT NOT NULL,
        answer TEXT NOT NULL,
        created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
        FOREIGN KEY (session_id) REFERENCES session (id)
    );

    CREATE INDEX IF NOT EXISTS idx_history_session ON history (session_id, created_at);
    `
	_, err := s.db.Exec(schema)
	return err
}

// Session methods
func (s *SQLiteStore) CreateSession(ctx context.Context) (*Session, error) {
	now := s.now()
	res, err := s.db.ExecContext(ctx, "INSERT INTO session (created_at) VALUES (?)", now)
	if err != nil {
		return nil, fmt.Errorf("failed to insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read session id: %w", err)
	}
	return &Session{ID: id, CreatedAt: now}, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, id int64) (*Session, error) {
	var session Session
	err := s.db.QueryRowContext(ctx, "SELECT id, created_at FROM session WHERE id = ?", id).Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// History methods
func (s *SQLiteStore) CreateHistory(ctx context.Context, sessionID int64, question, answer string) (*History, error) {
	h := &History{SessionID: sessionID, Question: question, Answer: answer, CreatedAt: s.now()}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO history (session_id, question, answer, created_at) VALUES (?, ?, ?, ?)",
		h.SessionID, h.Question, h.Answer, h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert history: %w", err)
	}
	if h.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("failed to read history id: %w", err)
	}
	return h, nil
}

// GetHistoryBySession returns every pair of the session, oldest first.
func (s *SQLiteStore) GetHistoryBySession(ctx context.Context, sessionID int64) ([]History, error) {
	return s.queryHistory(ctx, `
        SELECT id, session_id, question, answer, created_at
        FROM history
        WHERE session_id = ?
        ORDER BY created_at ASC, id ASC
    `, sessionID)
}

// GetLastHistoriesBySession returns the newest n pairs, oldest first.
func (s *SQLiteStore) GetLastHistoriesBySession(ctx context.Context, sessionID int64, n int) ([]History, error) {
	if n <= 0 {
		return []History{}, nil
	}
	histories, err := s.queryHistory(ctx, `
        SELECT id, session_id, question, answer, created_at
        FROM history
        WHERE session_id = ?
        ORDER BY created_at DESC, id DESC
        LIMIT ?
    `, sessionID, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(histories)-1; i < j; i, j = i+1, j-1 {
		histories[i], histories[j] = histories[j], histories[i]
	}
	return histories, nil
}

func (s *SQLiteStore) queryHistory(ctx context.Context, query string, args ...any) ([]History, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	histories := []History{}
	for rows.Next() {
		var h History
		if err := rows.Scan(&h.ID, &h.SessionID, &h.Question, &h.Answer, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		histories = append(histories, h)
	}
	return histories, rows.Err()
}

// Pruning

// PruneHistory keeps at most maxRows history rows overall, deleting the
// oldest. A non-positive limit disables it.
func (s *SQLiteStore) PruneHistory(ctx context.Context, maxRows int) (int64, error) {
	if maxRows <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `
        DELETE FROM history WHERE id IN (
            SELECT id FROM history
            ORDER BY created_at ASC, id ASC
            LIMIT MAX((SELECT COUNT(*) FROM history) - ?, 0)
        )
    `, maxRows)
	if err != nil {
		return 0, fmt.Errorf("failed to prune history: %w", err)
	}
	return res.RowsAffected()
}

// PruneSessions keeps at most maxSessions sessions, deleting the oldest ones
// together with their history. A non-positive limit disables it.
func (s *SQLiteStore) PruneSessions(ctx context.Context, maxSessions int) (int64, error) {
	if maxSessions <= 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin prune: %w", err)
	}
	defer tx.Rollback()

	oldest := `
        SELECT id FROM session
        ORDER BY created_at ASC, id ASC
        LIMIT MAX((SELECT COUNT(*) FROM session) - ?, 0)
    `
	if _, err := tx.ExecContext(ctx, "DELETE FROM history WHERE session_id IN ("+oldest+")", maxSessions); err != nil {
		return 0, fmt.Errorf("failed to prune session history: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM session WHERE id IN ("+oldest+")", maxSessions)
	if err != nil {
		return 0, fmt.Errorf("failed to prune sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}
	return res.RowsAffected()
}
