package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
}

// Timestamps are stored as unix milliseconds so aggregates keep their type.
const schema = `
CREATE TABLE IF NOT EXISTS entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    conversation_id TEXT NOT NULL,
    server_id INTEGER NOT NULL DEFAULT 0,
    role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
    content TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'completed',
    total_tokens INTEGER NOT NULL DEFAULT 0,
    created_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_entries_conversation ON entries(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS metadata (
    key TEXT PRIMARY KEY,
    value TEXT
);

CREATE VIRTUAL TABLE IF NOT EXISTS entries_fts USING fts5(
    content,
    content='entries',
    content_rowid='id'
);

CREATE TRIGGER IF NOT EXISTS entries_ai AFTER INSERT ON entries BEGIN
    INSERT INTO entries_fts(rowid, content) VALUES (new.id, new.content);
END;

CREATE TRIGGER IF NOT EXISTS entries_ad AFTER DELETE ON entries BEGIN
    INSERT INTO entries_fts(entries_fts, rowid, content) VALUES ('delete', old.id, old.content);
END;
`

// NewSQLiteStore opens (creating if needed) the transcript database.
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	dbPath, err := GetDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("get db path: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	store := &SQLiteStore{db: db, cfg: cfg}
	if err := store.cleanup(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: history cleanup failed: %v\n", err)
	}
	return store, nil
}

// schemaVersion is the current schema version. Fresh databases get the
// full schema and start here; older ones run the pending migrations.
const schemaVersion = 1

type migration struct {
	version     int
	description string
	up          func(db *sql.DB) error
}

var migrations = []migration{
	{
		version:     1,
		description: "add server_id and total_tokens columns",
		up: func(db *sql.DB) error {
			for _, stmt := range []string{
				"ALTER TABLE entries ADD COLUMN server_id INTEGER NOT NULL DEFAULT 0",
				"ALTER TABLE entries ADD COLUMN total_tokens INTEGER NOT NULL DEFAULT 0",
			} {
				if _, err := db.Exec(stmt); err != nil && !isDuplicateColumnError(err) {
					return err
				}
			}
			return nil
		},
	},
}

func initSchema(db *sql.DB) error {
	var currentVersion int
	err := db.QueryRow("SELECT version FROM schema_version").Scan(&currentVersion)
	if err == nil && currentVersion >= schemaVersion {
		return nil
	}
	return initSchemaFull(db, err, currentVersion)
}

func initSchemaFull(db *sql.DB, versionErr error, currentVersion int) error {
	// Probe before creating the base schema so a pre-version database is
	// told apart from a fresh one.
	var tableCount int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='entries'`).Scan(&tableCount); err != nil {
		return fmt.Errorf("check entries table: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create base schema: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	if versionErr != nil && (versionErr == sql.ErrNoRows || strings.Contains(versionErr.Error(), "no such table")) {
		if tableCount > 0 {
			currentVersion = 0
		} else {
			currentVersion = schemaVersion
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", currentVersion); err != nil {
			return fmt.Errorf("insert initial version: %w", err)
		}
	} else if versionErr != nil {
		return fmt.Errorf("get current version: %w", versionErr)
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if err := m.up(db); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := db.Exec("UPDATE schema_version SET version = ?", m.version); err != nil {
			return fmt.Errorf("update version to %d: %w", m.version, err)
		}
	}
	return nil
}

func isDuplicateColumnError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate column") ||
		strings.Contains(errStr, "already exists")
}

func (s *SQLiteStore) cleanup() error {
	if s.cfg.MaxAgeDays <= 0 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -s.cfg.MaxAgeDays).UnixMilli()
	if _, err := s.db.Exec("DELETE FROM entries WHERE created_at < ?", cutoff); err != nil {
		return fmt.Errorf("delete old entries: %w", err)
	}
	return nil
}

// Append inserts a message.
func (s *SQLiteStore) Append(ctx context.Context, e *Entry) error {
	if e.ConversationID == "" {
		return fmt.Errorf("append: conversation id is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Status == "" {
		e.Status = "completed"
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (conversation_id, server_id, role, content, status, total_tokens, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ConversationID, e.ServerID, e.Role, e.Content, e.Status, e.TotalTokens, e.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("entry id: %w", err)
	}
	e.ID = id
	return nil
}

// Transcript returns the entries of a conversation, oldest first. A
// positive limit keeps only the most recent entries.
func (s *SQLiteStore) Transcript(ctx context.Context, conversationID string, limit int) ([]Entry, error) {
	query := `
		SELECT id, conversation_id, server_id, role, content, status, total_tokens, created_at
		FROM (
			SELECT * FROM entries WHERE conversation_id = ?
			ORDER BY created_at DESC, id DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	query += `) ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created int64
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.ServerID, &e.Role, &e.Content, &e.Status, &e.TotalTokens, &created); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.CreatedAt = time.UnixMilli(created)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Conversations summarizes locally recorded conversations.
func (s *SQLiteStore) Conversations(ctx context.Context, limit int) ([]ConversationSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.conversation_id,
		       (SELECT f.content FROM entries f
		        WHERE f.conversation_id = e.conversation_id AND f.role = 'user'
		        ORDER BY f.created_at, f.id LIMIT 1),
		       COUNT(*), COALESCE(SUM(e.total_tokens), 0), MAX(e.created_at)
		FROM entries e
		GROUP BY e.conversation_id
		ORDER BY MAX(e.created_at) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var out []ConversationSummary
	for rows.Next() {
		var sum ConversationSummary
		var first sql.NullString
		var updated int64
		if err := rows.Scan(&sum.ConversationID, &first, &sum.MessageCount, &sum.TotalTokens, &updated); err != nil {
			return nil, fmt.Errorf("scan conversation summary: %w", err)
		}
		sum.FirstMessage = first.String
		sum.UpdatedAt = time.UnixMilli(updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Search finds entries matching query using FTS5. Every word of query must
// appear; punctuation carries no FTS meaning.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	match := ftsQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.id, e.conversation_id, e.role, snippet(entries_fts, 0, '**', '**', '...', 16), e.created_at
		FROM entries_fts f
		JOIN entries e ON e.id = f.rowid
		WHERE entries_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search entries: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		var created int64
		if err := rows.Scan(&r.EntryID, &r.ConversationID, &r.Role, &r.Snippet, &created); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.CreatedAt = time.UnixMilli(created)
		results = append(results, r)
	}
	return results, rows.Err()
}

// ftsQuery quotes every word so user input is never parsed as FTS syntax.
func ftsQuery(q string) string {
	var terms []string
	for _, w := range strings.Fields(q) {
		terms = append(terms, `"`+strings.ReplaceAll(w, `"`, `""`)+`"`)
	}
	return strings.Join(terms, " ")
}

// SetCurrent remembers the conversation to resume.
func (s *SQLiteStore) SetCurrent(ctx context.Context, conversationID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO metadata (key, value) VALUES ('current_conversation', ?)`,
		conversationID)
	return err
}

// Current returns the remembered conversation, or "" if none.
func (s *SQLiteStore) Current(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE key = 'current_conversation'").Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return id, err
}

// ClearCurrent forgets the remembered conversation.
func (s *SQLiteStore) ClearCurrent(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM metadata WHERE key = 'current_conversation'")
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
