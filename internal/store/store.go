// Package store implements OpenCrust's session store: sessions, their
// message history, and scheduled heartbeat tasks, backed by SQLite.
package store

import (
	"database/sql"
	"embed"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/opencrust/opencrust/errors"
	"github.com/opencrust/opencrust/internal/dbutil"
)

//go:embed sqlite/migrations/*.sql
var migrations embed.FS

// MaxPendingTasksPerSession caps the number of pending scheduled tasks a
// single session may accumulate.
const MaxPendingTasksPerSession = 5

// Session is a conversation's durable identity: who it's with, on which
// channel, and any caller-supplied metadata.
type Session struct {
	ID        string
	Channel   string
	User      string
	Metadata  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn of a session's history.
type Message struct {
	ID        int64
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

// TaskStatus is a scheduled task's lifecycle state.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskFired   TaskStatus = "fired"
)

// Task is a scheduled heartbeat: the agent asked to be re-entered at FireAt
// with Reason, on behalf of Session/User.
type Task struct {
	ID        int64
	SessionID string
	User      string
	FireAt    time.Time
	Reason    string
	Status    TaskStatus
	CreatedAt time.Time
}

// ErrSessionNotFound is returned by operations that require an existing session.
var ErrSessionNotFound = errors.NewKind(errors.KindNotFound, "session not found")

// Store is a single SQLite connection guarded by a mutex: every statement
// holds the lock only for its own duration, and locks never nest.
type Store struct {
	mu  sync.Mutex
	db  *sql.DB
	log *zap.SugaredLogger
}

// Open opens (and migrates) a session store at path. Use ":memory:" for an
// ephemeral, process-local store.
func Open(path string, log *zap.SugaredLogger) (*Store, error) {
	db, err := dbutil.Open(path, log)
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindDatabase, "open session store")
	}
	if err := dbutil.ApplyMigrations(db, log, migrations, "sqlite/migrations"); err != nil {
		db.Close()
		return nil, errors.WrapKind(err, errors.KindDatabase, "migrate session store")
	}
	return &Store{db: db, log: log}, nil
}

// InMemory opens a transient store, useful for tests and short-lived demos.
func InMemory(log *zap.SugaredLogger) (*Store, error) {
	return Open(":memory:", log)
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// parseTimestamp accepts both RFC3339 (what this package writes) and
// SQLite's default "YYYY-MM-DD HH:MM:SS" form, in case rows were written by
// another tool that used SQLite's CURRENT_TIMESTAMP default.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, errors.WrapKind(err, errors.KindDatabase, "parse timestamp")
	}
	return t.UTC(), nil
}

// CreateSession inserts a new session. user and channel may be empty.
func (s *Store) CreateSession(id, user, channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	_, err := s.db.Exec(
		`INSERT INTO sessions (id, channel, user, metadata, created_at, updated_at) VALUES (?, ?, ?, '', ?, ?)`,
		id, channel, user, ts, ts,
	)
	if err != nil {
		return errors.WrapKind(err, errors.KindDatabase, "create session")
	}
	return nil
}

// UpsertSession creates the session if absent, or updates its channel, user,
// and metadata if present. updated_at is always bumped.
func (s *Store) UpsertSession(id, channel, user, metadata string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := now()
	_, err := s.db.Exec(`
		INSERT INTO sessions (id, channel, user, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			channel = excluded.channel,
			user = excluded.user,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
	`, id, channel, user, metadata, ts, ts)
	if err != nil {
		return errors.WrapKind(err, errors.KindDatabase, "upsert session")
	}
	return nil
}

// GetSession returns the session, or (nil, nil) if it does not exist.
func (s *Store) GetSession(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, channel, user, metadata, created_at, updated_at FROM sessions WHERE id = ?`, id)

	var sess Session
	var createdAt, updatedAt string
	if err := row.Scan(&sess.ID, &sess.Channel, &sess.User, &sess.Metadata, &createdAt, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, errors.WrapKind(err, errors.KindDatabase, "get session")
	}

	var err error
	if sess.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if sess.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

// DeleteSession removes a session and, via foreign-key cascade, its
// messages and scheduled tasks.
func (s *Store) DeleteSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return errors.WrapKind(err, errors.KindDatabase, "delete session")
	}
	return nil
}

// TouchSession bumps a session's updated_at to now without changing its content.
func (s *Store) TouchSession(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, now(), id); err != nil {
		return errors.WrapKind(err, errors.KindDatabase, "touch session")
	}
	return nil
}

// SessionCount returns the number of sessions currently stored.
func (s *Store) SessionCount() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&count); err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "count sessions")
	}
	return count, nil
}

// AppendMessage records one turn of a session's history and bumps the
// session's updated_at atomically with the insert.
func (s *Store) AppendMessage(sessionID, role, content string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "begin append message")
	}
	defer tx.Rollback()

	ts := now()
	res, err := tx.Exec(
		`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, ts,
	)
	if err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "insert message")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "read message id")
	}

	if _, err := tx.Exec(`UPDATE sessions SET updated_at = ? WHERE id = ?`, ts, sessionID); err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "bump session updated_at")
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "commit append message")
	}
	return id, nil
}

// GetMessages returns a session's messages in ascending creation order. A
// non-positive limit returns every message.
func (s *Store) GetMessages(sessionID string, limit int) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, session_id, role, content, created_at FROM messages WHERE session_id = ? ORDER BY created_at ASC, id ASC`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindDatabase, "get messages")
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, errors.WrapKind(err, errors.KindDatabase, "scan message")
		}
		if m.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapKind(err, errors.KindDatabase, "iterate messages")
	}
	return messages, nil
}

// CountPendingTasksForSession returns how many tasks a session currently
// has in the pending state.
func (s *Store) CountPendingTasksForSession(sessionID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM scheduled_tasks WHERE session_id = ? AND status = ?`,
		sessionID, TaskPending,
	).Scan(&count)
	if err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "count pending tasks")
	}
	return count, nil
}

// ScheduleTask persists a new pending task and returns its id.
func (s *Store) ScheduleTask(sessionID, user string, fireAt time.Time, reason string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`INSERT INTO scheduled_tasks (session_id, user, fire_at, reason, status, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, user, fireAt.UTC().Format(time.RFC3339), reason, TaskPending, now(),
	)
	if err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "schedule task")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, errors.WrapKind(err, errors.KindDatabase, "read task id")
	}
	return id, nil
}

// MarkTaskFired transitions a task from pending to fired.
func (s *Store) MarkTaskFired(taskID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`UPDATE scheduled_tasks SET status = ? WHERE id = ?`, TaskFired, taskID); err != nil {
		return errors.WrapKind(err, errors.KindDatabase, "mark task fired")
	}
	return nil
}

// DueTasks returns every pending task whose fire_at is at or before at.
// The dispatcher (outside this package) re-enters the agent for each, with
// is_heartbeat=true, then calls MarkTaskFired.
func (s *Store) DueTasks(at time.Time) ([]Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id, session_id, user, fire_at, reason, status, created_at FROM scheduled_tasks WHERE status = ? AND fire_at <= ? ORDER BY fire_at ASC`,
		TaskPending, at.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, errors.WrapKind(err, errors.KindDatabase, "query due tasks")
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var t Task
		var fireAt, createdAt string
		if err := rows.Scan(&t.ID, &t.SessionID, &t.User, &fireAt, &t.Reason, &t.Status, &createdAt); err != nil {
			return nil, errors.WrapKind(err, errors.KindDatabase, "scan task")
		}
		if t.FireAt, err = parseTimestamp(fireAt); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTimestamp(createdAt); err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.WrapKind(err, errors.KindDatabase, "iterate due tasks")
	}
	return tasks, nil
}
