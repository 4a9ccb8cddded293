// Package history stores terminal execution records in a session-scoped
// DuckDB file. The store is an audit sink: records are appended once, never
// updated, and queried per file for the history view. The database file
// lives in the temp directory and is removed on Close; nothing survives a
// process restart.
package history

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/marcboeker/go-duckdb"

	"github.com/compliance-checker/backend/internal/models"
)

// Store is the DuckDB-backed execution audit store.
type Store struct {
	db     *sql.DB
	dbPath string

	mu  sync.Mutex
	seq int64
}

// NewStore creates the audit database under tempDir.
func NewStore(tempDir string) (*Store, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}
	dbPath := filepath.Join(tempDir, "execution_audit.duckdb")
	// A leftover file from a crashed process would fail table creation.
	os.Remove(dbPath)

	connector, err := duckdb.NewConnector(dbPath, func(execer driver.ExecerContext) error {
		pragmas := []string{
			"PRAGMA memory_limit='256MB'",
			"PRAGMA threads=2",
			"PRAGMA enable_progress_bar=false",
		}
		for _, pragma := range pragmas {
			if _, err := execer.ExecContext(context.Background(), pragma, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("creating DuckDB connector: %w", err)
	}

	db := sql.OpenDB(connector)

	_, err = db.Exec(`
		CREATE TABLE executions (
			seq           BIGINT PRIMARY KEY,
			id            VARCHAR NOT NULL,
			file_id       VARCHAR NOT NULL,
			status        VARCHAR NOT NULL,
			error_message VARCHAR,
			started_at    BIGINT NOT NULL,
			payload       VARCHAR
		)
	`)
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, fmt.Errorf("creating executions table: %w", err)
	}

	fmt.Printf("[History] Audit store ready at %s\n", dbPath)
	return &Store{db: db, dbPath: dbPath}, nil
}

// Append writes one terminal record. Running records are skipped; the audit
// holds outcomes only.
func (s *Store) Append(rec *models.ExecutionRecord) error {
	if rec == nil || !rec.Terminal() {
		return nil
	}

	var payload interface{}
	if rec.Payload != nil {
		bs, err := json.Marshal(rec.Payload)
		if err != nil {
			return fmt.Errorf("encoding payload: %w", err)
		}
		payload = string(bs)
	}

	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	_, err := s.db.Exec(
		`INSERT INTO executions (seq, id, file_id, status, error_message, started_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		seq, rec.ID, rec.FileID, string(rec.Status), rec.ErrorMessage, rec.StartedAt, payload,
	)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}
	return nil
}

// ListByFile returns the stored records for a file, most recent first.
func (s *Store) ListByFile(fileID string) ([]*models.ExecutionRecord, error) {
	rows, err := s.db.Query(
		`SELECT id, file_id, status, error_message, started_at, payload
		 FROM executions WHERE file_id = ? ORDER BY seq DESC`,
		fileID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying records: %w", err)
	}
	defer rows.Close()

	recs := make([]*models.ExecutionRecord, 0)
	for rows.Next() {
		var rec models.ExecutionRecord
		var status string
		var errMsg, payload sql.NullString
		if err := rows.Scan(&rec.ID, &rec.FileID, &status, &errMsg, &rec.StartedAt, &payload); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		rec.Status = models.ExecutionStatus(status)
		rec.ErrorMessage = errMsg.String
		if payload.Valid && payload.String != "" {
			var result models.WorkflowResult
			if err := json.Unmarshal([]byte(payload.String), &result); err == nil {
				rec.Payload = &result
			}
		}
		recs = append(recs, &rec)
	}
	return recs, rows.Err()
}

// CountByStatus returns how many stored records ended in each status, across
// all files.
func (s *Store) CountByStatus() (map[models.ExecutionStatus]int, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM executions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.ExecutionStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[models.ExecutionStatus(status)] = count
	}
	return counts, rows.Err()
}

// Close releases the database and removes the audit file.
func (s *Store) Close() error {
	if s.db != nil {
		s.db.Close()
	}
	if s.dbPath != "" {
		os.Remove(s.dbPath)
	}
	return nil
}
