package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/sitescribe/internal/crawler"
	"github.com/nao1215/sitescribe/internal/model"
)

// DBFileName is the name of the database file inside the data directory.
const DBFileName = "sitescribe.db"

var (
	// ErrSessionNotFound is returned when no session matches an ID.
	ErrSessionNotFound = errors.New("session not found")

	// ErrAmbiguousID is returned when an ID prefix matches several sessions.
	ErrAmbiguousID = errors.New("session ID prefix is ambiguous")

	// ErrDatabaseNotFound is returned by Open when the file is missing and
	// creation is disabled.
	ErrDatabaseNotFound = errors.New("database not found")
)

// Store provides SQLite-based storage for scrape sessions.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a Store in dbDir.
// If CreateIfNotExists is false and the database doesn't exist,
// ErrDatabaseNotFound is returned.
func Open(dbDir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dbDir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// mode=rw refuses to create a new file, mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		seed_url TEXT NOT NULL,
		host TEXT NOT NULL,
		instructions TEXT,
		max_depth INTEGER NOT NULL,
		keywords TEXT,
		stats TEXT,
		steps TEXT,
		truncated INTEGER DEFAULT 0,
		error TEXT,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_host ON sessions(host);
	CREATE INDEX IF NOT EXISTS idx_sessions_started ON sessions(started_at);

	-- Documents keep the output order of their session in position.
	CREATE TABLE IF NOT EXISTS documents (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		doc_id TEXT NOT NULL,
		url TEXT NOT NULL,
		title TEXT,
		content TEXT,
		headings TEXT,
		language TEXT,
		depth INTEGER,
		sources TEXT,
		extracted_at TEXT,
		PRIMARY KEY (session_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_documents_url ON documents(url);

	CREATE TABLE IF NOT EXISTS failures (
		session_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		url TEXT NOT NULL,
		depth INTEGER,
		kind TEXT,
		status_code INTEGER,
		attempts INTEGER,
		message TEXT,
		PRIMARY KEY (session_id, position)
	);
	`

	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveSession stores a session with its documents and failures.
// Saving the same session again replaces the stored copy.
func (s *Store) SaveSession(ctx context.Context, session *model.Session) (err error) {
	keywordsJSON, err := json.Marshal(session.Keywords)
	if err != nil {
		return fmt.Errorf("failed to serialize keywords: %w", err)
	}
	statsJSON, err := json.Marshal(session.Stats)
	if err != nil {
		return fmt.Errorf("failed to serialize stats: %w", err)
	}
	stepsJSON, err := json.Marshal(session.Steps)
	if err != nil {
		return fmt.Errorf("failed to serialize steps: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
	INSERT INTO sessions (id, seed_url, host, instructions, max_depth, keywords, stats, steps, truncated, error, started_at, finished_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		seed_url = excluded.seed_url,
		host = excluded.host,
		instructions = excluded.instructions,
		max_depth = excluded.max_depth,
		keywords = excluded.keywords,
		stats = excluded.stats,
		steps = excluded.steps,
		truncated = excluded.truncated,
		error = excluded.error,
		started_at = excluded.started_at,
		finished_at = excluded.finished_at
	`,
		session.ID,
		session.SeedURL,
		crawler.Host(session.SeedURL),
		session.Instructions,
		session.MaxDepth,
		string(keywordsJSON),
		string(statsJSON),
		string(stepsJSON),
		boolToInt(session.Truncated),
		session.ErrorMessage,
		formatTimestamp(session.StartedAt),
		formatTimestamp(session.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	for _, table := range []string{"documents", "failures"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", session.ID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	for i, doc := range session.Documents {
		if err = insertDocument(ctx, tx, session.ID, i, doc); err != nil {
			return err
		}
	}
	for i, f := range session.Failures {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO failures (session_id, position, url, depth, kind, status_code, attempts, message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, session.ID, i, f.URL, f.Depth, f.Kind, f.StatusCode, f.Attempts, f.Message)
		if err != nil {
			return fmt.Errorf("failed to save failure: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

func insertDocument(ctx context.Context, tx *sql.Tx, sessionID string, position int, doc model.Document) error {
	headingsJSON, err := json.Marshal(doc.Headings)
	if err != nil {
		return fmt.Errorf("failed to serialize headings: %w", err)
	}
	sourcesJSON, err := json.Marshal(doc.Sources)
	if err != nil {
		return fmt.Errorf("failed to serialize sources: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO documents (session_id, position, doc_id, url, title, content, headings, language, depth, sources, extracted_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		sessionID, position, doc.ID, doc.URL, doc.Title, doc.Content,
		string(headingsJSON), doc.Language, doc.Depth, string(sourcesJSON),
		formatTimestamp(doc.ExtractedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// SessionSummary contains summary information about a stored session.
// It is used for listing history without loading the documents.
type SessionSummary struct {
	ID           string
	SeedURL      string
	Instructions string
	StartedAt    time.Time
	FinishedAt   time.Time
	Documents    int
	Stats        model.CrawlStats
	Truncated    bool
	Error        string
}

// ListSessions returns stored sessions, newest first.
// A non-empty host ("example.com" or a URL) restricts the list to sessions
// seeded on that host.
// A positive limit caps the number of sessions returned.
func (s *Store) ListSessions(ctx context.Context, host string, limit int) ([]SessionSummary, error) {
	query := `
	SELECT s.id, s.seed_url, s.instructions, s.stats, s.truncated, s.error, s.started_at, s.finished_at,
		(SELECT COUNT(*) FROM documents d WHERE d.session_id = s.id)
	FROM sessions s
	`
	args := []any{}
	if host != "" {
		query += " WHERE s.host = ?"
		key := strings.ToLower(host)
		if strings.Contains(host, "://") {
			key = crawler.Host(host)
		}
		args = append(args, key)
	}
	query += " ORDER BY s.started_at DESC, s.id"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	summaries := make([]SessionSummary, 0)
	for rows.Next() {
		var (
			sum                   SessionSummary
			instructions, errMsg  sql.NullString
			statsJSON             sql.NullString
			startedAt, finishedAt sql.NullString
			truncated             int
		)
		if err := rows.Scan(&sum.ID, &sum.SeedURL, &instructions, &statsJSON, &truncated, &errMsg,
			&startedAt, &finishedAt, &sum.Documents); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sum.Instructions = instructions.String
		sum.Error = errMsg.String
		sum.Truncated = truncated != 0
		sum.StartedAt = parseTimestamp(startedAt.String)
		sum.FinishedAt = parseTimestamp(finishedAt.String)
		if statsJSON.Valid && statsJSON.String != "" {
			_ = json.Unmarshal([]byte(statsJSON.String), &sum.Stats) //nolint:errcheck // stats are informational
		}
		summaries = append(summaries, sum)
	}

	return summaries, rows.Err()
}

// GetSession loads a session with its documents and failures.
// id may be a unique prefix of the session ID.
func (s *Store) GetSession(ctx context.Context, id string) (*model.Session, error) {
	fullID, err := s.resolveID(ctx, id)
	if err != nil {
		return nil, err
	}

	var (
		session                        model.Session
		instructions, errMsg           sql.NullString
		keywordsJSON, statsJSON, steps sql.NullString
		startedAt, finishedAt          sql.NullString
		truncated                      int
	)
	err = s.db.QueryRowContext(ctx, `
	SELECT id, seed_url, instructions, max_depth, keywords, stats, steps, truncated, error, started_at, finished_at
	FROM sessions WHERE id = ?
	`, fullID).Scan(&session.ID, &session.SeedURL, &instructions, &session.MaxDepth, &keywordsJSON,
		&statsJSON, &steps, &truncated, &errMsg, &startedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	session.Instructions = instructions.String
	session.ErrorMessage = errMsg.String
	session.Truncated = truncated != 0
	session.StartedAt = parseTimestamp(startedAt.String)
	session.FinishedAt = parseTimestamp(finishedAt.String)
	if err := unmarshalColumn(keywordsJSON, &session.Keywords); err != nil {
		return nil, fmt.Errorf("failed to parse keywords: %w", err)
	}
	if err := unmarshalColumn(statsJSON, &session.Stats); err != nil {
		return nil, fmt.Errorf("failed to parse stats: %w", err)
	}
	if err := unmarshalColumn(steps, &session.Steps); err != nil {
		return nil, fmt.Errorf("failed to parse steps: %w", err)
	}

	if session.Documents, err = s.documents(ctx, fullID); err != nil {
		return nil, err
	}
	if session.Failures, err = s.failures(ctx, fullID); err != nil {
		return nil, err
	}
	session.Records = make([]*model.ContentRecord, 0)

	return &session, nil
}

// resolveID expands a session ID prefix to the full ID.
func (s *Store) resolveID(ctx context.Context, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%w: empty ID", ErrSessionNotFound)
	}

	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(id)
	rows, err := s.db.QueryContext(ctx,
		`SELECT id FROM sessions WHERE id = ? OR id LIKE ? ESCAPE '\' LIMIT 3`, id, escaped+"%")
	if err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}
	defer rows.Close()

	var matches []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return "", fmt.Errorf("failed to scan session ID: %w", err)
		}
		if m == id {
			return m, nil
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("failed to look up session: %w", err)
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%w: %s", ErrAmbiguousID, id)
	}
}

func (s *Store) documents(ctx context.Context, sessionID string) ([]model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT doc_id, url, title, content, headings, language, depth, sources, extracted_at
	FROM documents WHERE session_id = ? ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents: %w", err)
	}
	defer rows.Close()

	docs := make([]model.Document, 0)
	for rows.Next() {
		var (
			doc                          model.Document
			title, content, language     sql.NullString
			headings, sources, extracted sql.NullString
			depth                        sql.NullInt64
		)
		if err := rows.Scan(&doc.ID, &doc.URL, &title, &content, &headings, &language, &depth, &sources, &extracted); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		doc.Title = title.String
		doc.Content = content.String
		doc.Language = language.String
		doc.Depth = int(depth.Int64)
		doc.ExtractedAt = parseTimestamp(extracted.String)
		if err := unmarshalColumn(headings, &doc.Headings); err != nil {
			return nil, fmt.Errorf("failed to parse headings: %w", err)
		}
		if err := unmarshalColumn(sources, &doc.Sources); err != nil {
			return nil, fmt.Errorf("failed to parse sources: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) failures(ctx context.Context, sessionID string) ([]model.FetchFailure, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT url, depth, kind, status_code, attempts, message
	FROM failures WHERE session_id = ? ORDER BY position
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get failures: %w", err)
	}
	defer rows.Close()

	failures := make([]model.FetchFailure, 0)
	for rows.Next() {
		var (
			f                       model.FetchFailure
			kind, message           sql.NullString
			depth, status, attempts sql.NullInt64
		)
		if err := rows.Scan(&f.URL, &depth, &kind, &status, &attempts, &message); err != nil {
			return nil, fmt.Errorf("failed to scan failure: %w", err)
		}
		f.Depth = int(depth.Int64)
		f.Kind = kind.String
		f.StatusCode = int(status.Int64)
		f.Attempts = int(attempts.Int64)
		f.Message = message.String
		failures = append(failures, f)
	}
	return failures, rows.Err()
}

// DeleteSession removes a session and its documents and failures.
func (s *Store) DeleteSession(ctx context.Context, id string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"documents", "failures"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table+" WHERE session_id = ?", id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		err = fmt.Errorf("%w: %s", ErrSessionNotFound, id)
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// unmarshalColumn decodes a nullable JSON column. NULL and "" leave v untouched.
func unmarshalColumn(col sql.NullString, v any) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	return json.Unmarshal([]byte(col.String), v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// storedTimeFormat has a fixed width so that stored timestamps sort lexically.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// formatTimestamp stores times in UTC. The zero time is stored as "".
func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(storedTimeFormat)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
