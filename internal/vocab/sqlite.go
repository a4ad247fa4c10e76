// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vocab

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// sqliteTimeLayout is fixed-width so created_at sorts lexically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteStore implements Store over a SQLite database. Append order is the
// autoincrement sequence; the profile's field list is recorded in
// schema_meta and checked on open.
type SQLiteStore struct {
	db     *sql.DB
	path   string
	schema Schema
}

// NewSQLiteStore opens or creates the database at path and creates the
// schema if it does not exist. It fails with SchemaMismatch when the
// database was created for a different field list.
func NewSQLiteStore(path string, schema Schema) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, ioFailure(path, fmt.Errorf("creating directory: %w", err))
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, ioFailure(path, fmt.Errorf("opening database: %w", err))
	}

	s := &SQLiteStore{db: db, path: path, schema: schema}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS records (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			phrase TEXT NOT NULL,
			enrichment TEXT NOT NULL,
			context_tag TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			synced INTEGER NOT NULL DEFAULT 0,
			note_id INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_records_synced ON records(synced)`,
		`CREATE INDEX IF NOT EXISTS idx_records_created_at ON records(created_at)`,
		`CREATE TABLE IF NOT EXISTS schema_meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return ioFailure(s.path, fmt.Errorf("executing schema statement: %w", err))
		}
	}

	want, err := json.Marshal(s.schema.FieldNames())
	if err != nil {
		return ioFailure(s.path, err)
	}

	var stored string
	err = s.db.QueryRow(`SELECT value FROM schema_meta WHERE key = 'fields'`).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		if _, err := s.db.Exec(`INSERT INTO schema_meta (key, value) VALUES ('fields', ?)`, string(want)); err != nil {
			return ioFailure(s.path, fmt.Errorf("recording schema: %w", err))
		}
		return nil
	case err != nil:
		return ioFailure(s.path, fmt.Errorf("reading schema: %w", err))
	}

	if stored != string(want) {
		return schemaMismatch(s.path, "store fields %s, profile fields %s", stored, want)
	}
	return nil
}

func (s *SQLiteStore) Append(ctx context.Context, rec types.VocabRecord) error {
	return s.AppendAll(ctx, []types.VocabRecord{rec})
}

func (s *SQLiteStore) AppendAll(ctx context.Context, recs []types.VocabRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ioFailure(s.path, fmt.Errorf("beginning transaction: %w", err))
	}
	defer tx.Rollback()

	taken, err := existingIDs(ctx, tx, recs)
	if err != nil {
		return ioFailure(s.path, err)
	}
	if err := s.schema.checkRecords(s.path, recs, taken); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO records (id, phrase, enrichment, context_tag, created_at, synced, note_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return ioFailure(s.path, fmt.Errorf("preparing insert: %w", err))
	}
	defer stmt.Close()

	for _, rec := range recs {
		enrichmentJSON, err := json.Marshal(rec.Enrichment)
		if err != nil {
			return ioFailure(s.path, fmt.Errorf("encoding enrichment of %s: %w", rec.ID, err))
		}
		_, err = stmt.ExecContext(ctx,
			rec.ID, rec.Phrase, string(enrichmentJSON), rec.ContextTag,
			rec.CreatedAt.UTC().Format(sqliteTimeLayout), rec.Synced, rec.NoteID,
		)
		if err != nil {
			return ioFailure(s.path, fmt.Errorf("inserting record %s: %w", rec.ID, err))
		}
	}

	if err := tx.Commit(); err != nil {
		return ioFailure(s.path, fmt.Errorf("committing: %w", err))
	}
	return nil
}

// existingIDs returns which IDs of recs are already stored.
func existingIDs(ctx context.Context, tx *sql.Tx, recs []types.VocabRecord) (map[string]bool, error) {
	taken := map[string]bool{}
	for _, rec := range recs {
		var n int
		if err := tx.QueryRowContext(ctx, `SELECT count(*) FROM records WHERE id = ?`, rec.ID).Scan(&n); err != nil {
			return nil, fmt.Errorf("checking id %s: %w", rec.ID, err)
		}
		if n > 0 {
			taken[rec.ID] = true
		}
	}
	return taken, nil
}

func (s *SQLiteStore) ListRecent(ctx context.Context, n int) ([]types.VocabRecord, error) {
	if n <= 0 {
		return []types.VocabRecord{}, nil
	}
	return s.query(ctx, `ORDER BY created_at DESC, seq DESC LIMIT ?`, n)
}

func (s *SQLiteStore) ListUnsynced(ctx context.Context) ([]types.VocabRecord, error) {
	return s.query(ctx, `WHERE synced = 0 ORDER BY seq`)
}

func (s *SQLiteStore) All(ctx context.Context) ([]types.VocabRecord, error) {
	return s.query(ctx, `ORDER BY seq`)
}

func (s *SQLiteStore) MarkSynced(ctx context.Context, id string, noteID int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET synced = 1, note_id = ? WHERE id = ? AND synced = 0`, noteID, id)
	if err != nil {
		return ioFailure(s.path, fmt.Errorf("marking %s synced: %w", id, err))
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		return nil
	}

	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM records WHERE id = ?`, id).Scan(&count); err != nil {
		return ioFailure(s.path, fmt.Errorf("looking up %s: %w", id, err))
	}
	if count == 0 {
		return notFound(s.path, id)
	}
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, tail string, args ...any) ([]types.VocabRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, phrase, enrichment, context_tag, created_at, synced, note_id FROM records `+tail, args...)
	if err != nil {
		return nil, ioFailure(s.path, fmt.Errorf("querying records: %w", err))
	}
	defer rows.Close()

	recs := []types.VocabRecord{}
	for rows.Next() {
		var (
			rec            types.VocabRecord
			enrichmentJSON string
			createdAt      string
		)
		if err := rows.Scan(&rec.ID, &rec.Phrase, &enrichmentJSON, &rec.ContextTag,
			&createdAt, &rec.Synced, &rec.NoteID); err != nil {
			return nil, ioFailure(s.path, fmt.Errorf("scanning record: %w", err))
		}
		if err := json.Unmarshal([]byte(enrichmentJSON), &rec.Enrichment); err != nil {
			return nil, ioFailure(s.path, fmt.Errorf("decoding enrichment of %s: %w", rec.ID, err))
		}
		if rec.Enrichment == nil {
			rec.Enrichment = map[string]string{}
		}
		t, err := time.Parse(sqliteTimeLayout, createdAt)
		if err != nil {
			return nil, ioFailure(s.path, fmt.Errorf("parsing created_at of %s: %w", rec.ID, err))
		}
		rec.CreatedAt = t.UTC()
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, ioFailure(s.path, fmt.Errorf("iterating records: %w", err))
	}
	return recs, nil
}
