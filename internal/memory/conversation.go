package memory

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultRecentMessages is the window returned by Recent when n <= 0.
const DefaultRecentMessages = 50

// Message is one entry of the conversation log.
type Message struct {
	ID        int64     `json:"id"`
	RunID     string    `json:"run_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationLog is an append-only message log backed by SQLite.
type ConversationLog struct {
	conn       *sql.DB
	mu         sync.RWMutex
	defaultMax int
}

const conversationSchema = `
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_run ON messages(run_id);
`

// OpenConversationLog opens the log at path, creating parent directories and
// the schema. ":memory:" gives a private in-process database.
func OpenConversationLog(path string, defaultMax int) (*ConversationLog, error) {
	if path != ":memory:" {
		expanded, err := expandPath(path)
		if err != nil {
			return nil, fmt.Errorf("expand path: %w", err)
		}
		path = expanded
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Each connection to ":memory:" is a separate database.
	conn.SetMaxOpenConns(1)

	if path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("enable WAL mode: %w", err)
		}
	}
	if _, err := conn.Exec(conversationSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if defaultMax <= 0 {
		defaultMax = DefaultRecentMessages
	}
	return &ConversationLog{conn: conn, defaultMax: defaultMax}, nil
}

// Append adds a message. A zero CreatedAt is stamped with the current time.
func (l *ConversationLog) Append(ctx context.Context, m Message) (Message, error) {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	m.CreatedAt = m.CreatedAt.UTC()

	l.mu.Lock()
	defer l.mu.Unlock()
	res, err := l.conn.ExecContext(ctx,
		`INSERT INTO messages (run_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		m.RunID, m.Role, m.Content, m.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return m, fmt.Errorf("insert message: %w", err)
	}
	m.ID, err = res.LastInsertId()
	if err != nil {
		return m, fmt.Errorf("last insert id: %w", err)
	}
	return m, nil
}

// Recent returns the last n messages in chronological order.
func (l *ConversationLog) Recent(ctx context.Context, n int) ([]Message, error) {
	if n <= 0 {
		n = l.defaultMax
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	rows, err := l.conn.QueryContext(ctx, `
		SELECT id, run_id, role, content, created_at FROM (
			SELECT * FROM messages ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, n)
	if err != nil {
		return nil, fmt.Errorf("query recent: %w", err)
	}
	return scanMessages(rows)
}

// Search returns messages whose content contains keyword, case-insensitively,
// oldest first.
func (l *ConversationLog) Search(ctx context.Context, keyword string) ([]Message, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(strings.ToLower(keyword))

	l.mu.RLock()
	defer l.mu.RUnlock()
	rows, err := l.conn.QueryContext(ctx,
		`SELECT id, run_id, role, content, created_at FROM messages
		 WHERE lower(content) LIKE ? ESCAPE '\' ORDER BY id ASC`,
		"%"+escaped+"%")
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	defer rows.Close()
	var out []Message
	for rows.Next() {
		var m Message
		var created string
		if err := rows.Scan(&m.ID, &m.RunID, &m.Role, &m.Content, &created); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		out = append(out, m)
	}
	return out, rows.Err()
}

// Close closes the database.
func (l *ConversationLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.Close()
}
