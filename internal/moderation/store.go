// Package moderation keeps the queue of suggested answers awaiting a
// moderator's approve, edit, or reject decision.
package moderation

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Suggestion statuses.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusEdited   = "edited"
	StatusRejected = "rejected"
)

// Suggestion is one model answer waiting for a moderator decision.
type Suggestion struct {
	ID          int64
	Channel     string // gateway name of the origin
	ChatID      string // origin channel the answer would be posted to
	Sender      string
	Question    string // redacted form
	Answer      string // model answer as suggested
	FinalAnswer string // what was actually posted, set on approve/edit
	Model       string
	Status      string
	Moderator   string
	CreatedAt   time.Time
	DecidedAt   sql.NullTime
}

// Store persists suggestions in SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Set connection pool (single connection for SQLite)
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &Store{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS suggestions (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		channel      TEXT NOT NULL,
		chat_id      TEXT NOT NULL,
		sender       TEXT,
		question     TEXT NOT NULL,
		answer       TEXT NOT NULL,
		final_answer TEXT,
		model        TEXT,
		status       TEXT NOT NULL DEFAULT 'pending',
		moderator    TEXT,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		decided_at   DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_suggestions_status ON suggestions(status, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Enqueue stores a new pending suggestion and returns its id.
func (s *Store) Enqueue(ctx context.Context, sug Suggestion) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO suggestions (channel, chat_id, sender, question, answer, model, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sug.Channel, sug.ChatID, sug.Sender, sug.Question, sug.Answer, sug.Model, StatusPending, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("enqueue suggestion: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("enqueue suggestion: %w", err)
	}
	s.logger.Info("suggestion queued for moderation", "id", id, "chat", sug.ChatID)
	return id, nil
}

// Get returns one suggestion by id.
func (s *Store) Get(ctx context.Context, id int64) (*Suggestion, error) {
	var sug Suggestion
	var finalAnswer, model, moderator sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT id, channel, chat_id, sender, question, answer, final_answer, model, status, moderator, created_at, decided_at
		 FROM suggestions WHERE id = ?`, id,
	).Scan(&sug.ID, &sug.Channel, &sug.ChatID, &sug.Sender, &sug.Question, &sug.Answer,
		&finalAnswer, &model, &sug.Status, &moderator, &sug.CreatedAt, &sug.DecidedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("suggestion %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get suggestion %d: %w", id, err)
	}
	sug.FinalAnswer = finalAnswer.String
	sug.Model = model.String
	sug.Moderator = moderator.String
	return &sug, nil
}

// Decide marks a pending suggestion as approved, edited, or rejected.
// finalAnswer is what gets posted (empty for reject). Deciding a
// suggestion twice fails, which keeps two moderators from racing.
func (s *Store) Decide(ctx context.Context, id int64, status, finalAnswer, moderator string) (*Suggestion, error) {
	switch status {
	case StatusApproved, StatusEdited, StatusRejected:
	default:
		return nil, fmt.Errorf("invalid decision status %q", status)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE suggestions SET status = ?, final_answer = ?, moderator = ?, decided_at = ?
		 WHERE id = ? AND status = ?`,
		status, finalAnswer, moderator, time.Now(), id, StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("decide suggestion %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("decide suggestion %d: %w", id, err)
	}
	if n == 0 {
		if sug, getErr := s.Get(ctx, id); getErr == nil {
			return nil, fmt.Errorf("suggestion %d already %s", id, sug.Status)
		}
		return nil, fmt.Errorf("suggestion %d not found", id)
	}
	return s.Get(ctx, id)
}

// ListPending returns pending suggestions, oldest first.
func (s *Store) ListPending(ctx context.Context, limit int) ([]Suggestion, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel, chat_id, sender, question, answer, final_answer, model, status, moderator, created_at, decided_at
		 FROM suggestions WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		StatusPending, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list pending suggestions: %w", err)
	}
	defer rows.Close()

	var out []Suggestion
	for rows.Next() {
		var sug Suggestion
		var finalAnswer, model, moderator sql.NullString
		if err := rows.Scan(&sug.ID, &sug.Channel, &sug.ChatID, &sug.Sender, &sug.Question, &sug.Answer,
			&finalAnswer, &model, &sug.Status, &moderator, &sug.CreatedAt, &sug.DecidedAt); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		sug.FinalAnswer = finalAnswer.String
		sug.Model = model.String
		sug.Moderator = moderator.String
		out = append(out, sug)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
