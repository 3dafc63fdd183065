package audit

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/obscura-io/obscura/document"
	"github.com/obscura-io/obscura/errors"
)

// RunRecord is the persisted outcome of one pipeline run.
type RunRecord struct {
	RunID         string
	FileName      string
	DocumentType  string
	Status        string // "success", "partial", "aborted"
	Entities      int
	Relationships int
	Findings      int
	Summary       *document.AnonymizationSummary
	Error         string
	StartedAt     time.Time
	CompletedAt   time.Time
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id        TEXT PRIMARY KEY,
	file_name     TEXT NOT NULL,
	document_type TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL,
	entities      INTEGER NOT NULL DEFAULT 0,
	relationships INTEGER NOT NULL DEFAULT 0,
	findings      INTEGER NOT NULL DEFAULT 0,
	summary       TEXT,
	error         TEXT,
	started_at    TIMESTAMP NOT NULL,
	completed_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// RunStore persists run records in SQLite.
type RunStore struct {
	db *sql.DB
}

// OpenRunStore opens (or creates) the run database at path with WAL mode,
// foreign keys and a busy timeout, then applies the schema.
func OpenRunStore(path string, log *zap.SugaredLogger) (*RunStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open run database")
	}

	// WAL allows readers while a run record is being written.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, errors.Wrapf(err, "failed to apply %q", pragma)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to apply run schema")
	}

	if log != nil {
		log.Infow("Run database opened", "path", path, "wal_mode", true)
	}
	return &RunStore{db: db}, nil
}

// Close releases the database handle.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// SaveRun inserts a run record. Run IDs are unique per run, so duplicates
// are an error.
func (s *RunStore) SaveRun(rec RunRecord) error {
	var summaryJSON sql.NullString
	if rec.Summary != nil {
		raw, err := json.Marshal(rec.Summary)
		if err != nil {
			return errors.Wrap(err, "failed to marshal anonymization summary")
		}
		summaryJSON = sql.NullString{String: string(raw), Valid: true}
	}

	query := `
		INSERT INTO runs (
			run_id, file_name, document_type, status,
			entities, relationships, findings,
			summary, error, started_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	errMsg := sql.NullString{String: rec.Error, Valid: rec.Error != ""}

	_, err := s.db.Exec(query,
		rec.RunID,
		rec.FileName,
		rec.DocumentType,
		rec.Status,
		rec.Entities,
		rec.Relationships,
		rec.Findings,
		summaryJSON,
		errMsg,
		rec.StartedAt,
		rec.CompletedAt,
	)
	if err != nil {
		return errors.Wrap(err, "failed to save run record")
	}
	return nil
}

// GetRun retrieves a run record by ID.
func (s *RunStore) GetRun(runID string) (*RunRecord, error) {
	query := `
		SELECT run_id, file_name, document_type, status,
		       entities, relationships, findings,
		       summary, error, started_at, completed_at
		FROM runs WHERE run_id = ?
	`
	rec, err := scanRun(s.db.QueryRow(query, runID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Newf("run not found: %s", runID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get run record")
	}
	return rec, nil
}

// ListRecent returns up to limit run records, newest first.
func (s *RunStore) ListRecent(limit int) ([]RunRecord, error) {
	query := `
		SELECT run_id, file_name, document_type, status,
		       entities, relationships, findings,
		       summary, error, started_at, completed_at
		FROM runs ORDER BY started_at DESC LIMIT ?
	`
	rows, err := s.db.Query(query, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list run records")
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan run record")
		}
		out = append(out, *rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var rec RunRecord
	var summaryJSON, errMsg sql.NullString

	err := row.Scan(
		&rec.RunID,
		&rec.FileName,
		&rec.DocumentType,
		&rec.Status,
		&rec.Entities,
		&rec.Relationships,
		&rec.Findings,
		&summaryJSON,
		&errMsg,
		&rec.StartedAt,
		&rec.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if summaryJSON.Valid {
		var summary document.AnonymizationSummary
		if err := json.Unmarshal([]byte(summaryJSON.String), &summary); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal anonymization summary")
		}
		rec.Summary = &summary
	}
	rec.Error = errMsg.String
	return &rec, nil
}
