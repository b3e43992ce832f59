// Package registry tracks known sessions and their last index status in a
// local SQLite database, so the CLI can list sessions without re-indexing.
package registry

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	slxerrors "slx/internal/errors"
	"slx/internal/logging"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id              TEXT PRIMARY KEY,
	path            TEXT UNIQUE NOT NULL,
	project_root    TEXT NOT NULL,
	total_records   INTEGER NOT NULL DEFAULT 0,
	file_edit_count INTEGER NOT NULL DEFAULT 0,
	last_indexed_at INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_sessions_indexed_at ON sessions(last_indexed_at);
`

// Session is one registered session log.
type Session struct {
	ID            string    `json:"id"`
	Path          string    `json:"path"`
	ProjectRoot   string    `json:"projectRoot"`
	TotalRecords  uint32    `json:"totalRecords"`
	FileEditCount uint32    `json:"fileEditCount"`
	LastIndexedAt time.Time `json:"lastIndexedAt"`
}

// Registry is a handle to the sessions database.
type Registry struct {
	conn   *sql.DB
	logger *logging.Logger
	dbPath string
}

// Open opens or creates the registry database at dir/sessions.db.
func Open(dir string, logger *logging.Logger) (*Registry, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, slxerrors.New(slxerrors.RegistryUnavailable, "create registry directory", err)
	}

	dbPath := filepath.Join(dir, "sessions.db")
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, slxerrors.New(slxerrors.RegistryUnavailable, "open registry database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck // Best effort cleanup
			return nil, slxerrors.New(slxerrors.RegistryUnavailable, "set pragma", err)
		}
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close() //nolint:errcheck // Best effort cleanup
		return nil, slxerrors.New(slxerrors.RegistryUnavailable, "initialize registry schema", err)
	}

	return &Registry{conn: conn, logger: logger, dbPath: dbPath}, nil
}

// Close closes the registry database.
func (r *Registry) Close() error {
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}

// Record upserts a session entry after a successful build or update.
func (r *Registry) Record(sess Session) error {
	_, err := r.conn.Exec(`
		INSERT INTO sessions (id, path, project_root, total_records, file_edit_count, last_indexed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			project_root    = excluded.project_root,
			total_records   = excluded.total_records,
			file_edit_count = excluded.file_edit_count,
			last_indexed_at = excluded.last_indexed_at
	`, sess.ID, sess.Path, sess.ProjectRoot, sess.TotalRecords, sess.FileEditCount, sess.LastIndexedAt.Unix())
	if err != nil {
		return fmt.Errorf("record session: %w", err)
	}

	r.logger.Debug("Recorded session", map[string]interface{}{
		"path":         sess.Path,
		"totalRecords": sess.TotalRecords,
	})

	return nil
}

// Get returns the registered session for a path, or nil if unknown.
func (r *Registry) Get(path string) (*Session, error) {
	row := r.conn.QueryRow(`
		SELECT id, path, project_root, total_records, file_edit_count, last_indexed_at
		FROM sessions WHERE path = ?
	`, path)

	var sess Session
	var indexedAt int64
	err := row.Scan(&sess.ID, &sess.Path, &sess.ProjectRoot, &sess.TotalRecords, &sess.FileEditCount, &indexedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	sess.LastIndexedAt = time.Unix(indexedAt, 0)

	return &sess, nil
}

// List returns all registered sessions, most recently indexed first.
func (r *Registry) List() ([]Session, error) {
	rows, err := r.conn.Query(`
		SELECT id, path, project_root, total_records, file_edit_count, last_indexed_at
		FROM sessions ORDER BY last_indexed_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close() //nolint:errcheck // Best effort cleanup

	var sessions []Session
	for rows.Next() {
		var sess Session
		var indexedAt int64
		if err := rows.Scan(&sess.ID, &sess.Path, &sess.ProjectRoot, &sess.TotalRecords, &sess.FileEditCount, &indexedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.LastIndexedAt = time.Unix(indexedAt, 0)
		sessions = append(sessions, sess)
	}

	return sessions, rows.Err()
}

// SessionID derives a stable ID for a session file. Session logs are normally
// named by a UUID; when the file name parses as one it is kept, otherwise a
// new ID is minted.
func SessionID(sessionFile string) string {
	base := filepath.Base(sessionFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if id, err := uuid.Parse(stem); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
