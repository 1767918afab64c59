package bus

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/corvidworks/ndbg/message"

	_ "modernc.org/sqlite"
)

//go:embed sqlite_schema.sql
var sqliteSchema string

// SQLiteRecorderConfig configures an optional durable audit log of
// engine messages. It is not consulted when the engine starts: breakpoints
// and session state never persist here (see SPEC_FULL.md §4.15).
type SQLiteRecorderConfig struct {
	// DSN is the database connection string, e.g. "session.db".
	DSN string

	// RetentionAge deletes recorded messages older than this duration
	// (0 disables age-based pruning).
	RetentionAge time.Duration

	// PruneInterval is how often the background pruner runs (default 1h).
	PruneInterval time.Duration
}

// SQLiteRecorder persists every message it observes to SQLite, for
// post-mortem inspection. It implements Recorder and is meant to be wired
// as an additional consumer of a MemBus, never as the thing the engine
// reads back from.
type SQLiteRecorder struct {
	db   *sql.DB
	cfg  SQLiteRecorderConfig
	stop chan struct{}
	done chan struct{}
}

// NewSQLiteRecorder opens (or creates) the backing database and starts the
// background pruner if retention is configured.
func NewSQLiteRecorder(cfg SQLiteRecorderConfig) (*SQLiteRecorder, error) {
	if cfg.PruneInterval == 0 {
		cfg.PruneInterval = time.Hour
	}

	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqliterecorder: open: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqliterecorder: set WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqliterecorder: create schema: %w", err)
	}

	r := &SQLiteRecorder{
		db:   db,
		cfg:  cfg,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}

	if cfg.RetentionAge > 0 {
		go r.pruneLoop()
	} else {
		close(r.done)
	}

	return r, nil
}

// Record inserts msg into the audit log. Errors are not surfaced to the
// publisher (Recorder.Record has no return value); a failed insert is
// discarded without being logged and never blocks message delivery.
func (r *SQLiteRecorder) Record(msg message.Message) {
	_, _ = r.db.ExecContext(context.Background(),
		`INSERT INTO messages (kind, thread_id, thread_name, file_path, line_number, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		string(msg.Kind), msg.ThreadID, msg.ThreadName, msg.FilePath, msg.LineNumber,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
}

// Prune deletes messages older than RetentionAge. Exported for testing.
func (r *SQLiteRecorder) Prune(ctx context.Context) error {
	if r.cfg.RetentionAge <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-r.cfg.RetentionAge).UTC().Format(time.RFC3339Nano)
	if _, err := r.db.ExecContext(ctx, `DELETE FROM messages WHERE recorded_at < ?`, cutoff); err != nil {
		return fmt.Errorf("sqliterecorder: prune: %w", err)
	}
	return nil
}

// Close stops the pruner and closes the database.
func (r *SQLiteRecorder) Close() error {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
	<-r.done
	return r.db.Close()
}

func (r *SQLiteRecorder) pruneLoop() {
	defer close(r.done)

	ticker := time.NewTicker(r.cfg.PruneInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			_ = r.Prune(context.Background())
		}
	}
}

var _ Recorder = (*SQLiteRecorder)(nil)
