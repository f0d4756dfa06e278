package orchestrator

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ppiankov/deskbridge/internal/audit"
	"github.com/ppiankov/deskbridge/internal/model"

	_ "modernc.org/sqlite"
)

// SessionRecorder persists the action stream of one session twice:
// a JSONL replay file (pointer events only, never text) and a SQLite
// index for querying across sessions. Single writer, mutex-guarded.
type SessionRecorder struct {
	session string
	dir     string

	mu   sync.Mutex
	file *os.File
	db   *sql.DB
	seq  int
}

const recorderSchema = `
CREATE TABLE IF NOT EXISTS actions (
	session     TEXT NOT NULL,
	seq         INTEGER NOT NULL,
	timestamp   TEXT NOT NULL,
	kind        TEXT NOT NULL,
	x           INTEGER,
	y           INTEGER,
	text_length INTEGER,
	rule_id     TEXT,
	allowed     INTEGER,
	PRIMARY KEY (session, seq)
);
`

// NewSessionRecorder opens a fresh session directory under baseDir and
// the shared index database next to it.
func NewSessionRecorder(baseDir string) (*SessionRecorder, error) {
	session := uuid.NewString()
	dir := filepath.Join(baseDir, session)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	file, err := os.OpenFile(filepath.Join(dir, "actions.jsonl"),
		os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open replay stream: %w", err)
	}

	db, err := sql.Open("sqlite", filepath.Join(baseDir, "index.db"))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("open action index: %w", err)
	}
	if _, err := db.Exec(recorderSchema); err != nil {
		file.Close()
		db.Close()
		return nil, fmt.Errorf("init action index: %w", err)
	}

	return &SessionRecorder{session: session, dir: dir, file: file, db: db}, nil
}

// Session returns the session identifier, used as the audit session
// field as well.
func (r *SessionRecorder) Session() string { return r.session }

// Dir returns the session directory holding the replay stream.
func (r *SessionRecorder) Dir() string { return r.dir }

// Record appends one evaluated action. Every action lands in the
// index; only pointer events land in the replay stream, and the text
// of TYPE actions is reduced to its length before it gets anywhere
// near a file.
func (r *SessionRecorder) Record(action model.Action, decision model.PolicyDecision) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	ts := time.Now().UTC().Format(audit.TimestampFormat)

	allowed := 0
	if decision.Allowed {
		allowed = 1
	}
	if _, err := r.db.Exec(
		`INSERT INTO actions (session, seq, timestamp, kind, x, y, text_length, rule_id, allowed)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.session, r.seq, ts, string(action.Kind),
		action.X, action.Y, action.TextLength(), decision.RuleID, allowed,
	); err != nil {
		return fmt.Errorf("index action: %w", err)
	}

	if !action.HasPoint() {
		return nil
	}

	line, err := json.Marshal(map[string]any{
		"timestamp": ts,
		"session":   r.session,
		"payload": map[string]any{
			"action":  string(action.Kind),
			"x":       action.X,
			"y":       action.Y,
			"rule_id": decision.RuleID,
		},
	})
	if err != nil {
		return err
	}
	if _, err := r.file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("append replay stream: %w", err)
	}
	return nil
}

// Close flushes and closes both sinks.
func (r *SessionRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var first error
	if err := r.file.Close(); err != nil {
		first = err
	}
	if err := r.db.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
