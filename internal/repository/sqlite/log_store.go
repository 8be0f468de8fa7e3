// Package sqlite is a single-file session log store for deployments without
// Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"ba-assistant-be/internal/entity"
	"ba-assistant-be/internal/repository/contract"
	"ba-assistant-be/pkg/store"

	"github.com/google/uuid"
)

// Fixed width so timestamps compare correctly as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// LogStore implements contract.SessionLogStore on SQLite
type LogStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ contract.SessionLogStore = (*LogStore)(nil)

// NewLogStore opens or creates the database at path and its schema
func NewLogStore(path string) (*LogStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &LogStore{db: db, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

func (s *LogStore) Close() error {
	return s.db.Close()
}

func (s *LogStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			doc_type TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'active',
			progress REAL NOT NULL DEFAULT 0,
			document_path TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session_id ON messages(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

func (s *LogStore) stamp() string {
	return s.now().UTC().Format(timeLayout)
}

func (s *LogStore) CreateSession(ctx context.Context, sessionID string) error {
	return s.ensureSession(ctx, s.db, sessionID)
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *LogStore) ensureSession(ctx context.Context, db execer, sessionID string) error {
	now := s.stamp()
	_, err := db.ExecContext(ctx,
		`INSERT INTO sessions (id, status, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		sessionID, store.StatusActive, now, now)
	if err != nil {
		return fmt.Errorf("create session %s: %w", sessionID, err)
	}
	return nil
}

func (s *LogStore) AppendMessage(ctx context.Context, sessionID, role, content string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.ensureSession(ctx, tx, sessionID); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (id, session_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, role, content, s.stamp())
	if err != nil {
		return fmt.Errorf("append message to %s: %w", sessionID, err)
	}
	return tx.Commit()
}

func (s *LogStore) UpdateSession(ctx context.Context, sessionID string, fields entity.SessionUpdate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.ensureSession(ctx, tx, sessionID); err != nil {
		return err
	}
	session, err := scanSession(tx.QueryRowContext(ctx, selectSession+` WHERE id = ?`, sessionID))
	if err != nil {
		return err
	}
	fields.Apply(session)

	metadata, err := encodeMetadata(session.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE sessions SET doc_type = ?, status = ?, progress = ?, document_path = ?, metadata = ?, updated_at = ?
		 WHERE id = ?`,
		session.DocType, session.Status, session.Progress, session.DocumentPath, metadata, s.stamp(), sessionID)
	if err != nil {
		return fmt.Errorf("update session %s: %w", sessionID, err)
	}
	return tx.Commit()
}

const selectSession = `SELECT id, doc_type, status, progress, document_path, metadata, created_at, updated_at FROM sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*entity.SessionLog, error) {
	var (
		s                    entity.SessionLog
		metadata             sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&s.Id, &s.DocType, &s.Status, &s.Progress, &s.DocumentPath, &metadata, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &s.Metadata); err != nil {
			return nil, fmt.Errorf("decoding metadata of %s: %w", s.Id, err)
		}
	}
	s.CreatedAt, _ = time.Parse(timeLayout, createdAt)
	s.UpdatedAt, _ = time.Parse(timeLayout, updatedAt)
	return &s, nil
}

func encodeMetadata(m map[string]interface{}) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encoding metadata: %w", err)
	}
	return sql.NullString{String: string(raw), Valid: true}, nil
}

func (s *LogStore) GetSession(ctx context.Context, sessionID string) (*entity.SessionLog, error) {
	session, err := scanSession(s.db.QueryRowContext(ctx, selectSession+` WHERE id = ?`, sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return session, err
}

func (s *LogStore) GetMessages(ctx context.Context, sessionID string) ([]*entity.MessageLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at, rowid`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.MessageLog
	for rows.Next() {
		var (
			m         entity.MessageLog
			id        string
			createdAt string
		)
		if err := rows.Scan(&id, &m.SessionId, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, err
		}
		m.Id, _ = uuid.Parse(id)
		m.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (s *LogStore) ListSessions(ctx context.Context, limit, offset int) ([]*entity.SessionLog, error) {
	query := selectSession + ` ORDER BY updated_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*entity.SessionLog
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, session)
	}
	return out, rows.Err()
}

func (s *LogStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	return err
}

func (s *LogStore) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE updated_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *LogStore) Statistics(ctx context.Context) (*entity.SessionStats, error) {
	stats := entity.SessionStats{ByDocType: map[string]int64{}}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM sessions`,
		store.StatusActive, store.StatusCompleted,
	).Scan(&stats.TotalSessions, &stats.ActiveSessions, &stats.CompletedSessions)
	if err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&stats.TotalMessages); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT doc_type, COUNT(*) FROM sessions WHERE doc_type <> '' GROUP BY doc_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			docType string
			n       int64
		)
		if err := rows.Scan(&docType, &n); err != nil {
			return nil, err
		}
		stats.ByDocType[docType] = n
	}
	return &stats, rows.Err()
}
