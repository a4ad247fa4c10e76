// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vocab

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// codec reads and writes the full record list of a flat file store.
// Decode errors wrapping errIncompatible are reported as SchemaMismatch.
type codec interface {
	decode(r io.Reader, schema Schema) ([]types.VocabRecord, error)
	encode(w io.Writer, schema Schema, recs []types.VocabRecord) error
}

// fileStore implements Store over a single human-diffable file. Every
// change rewrites the file through a temporary file and a rename, so a
// failure leaves the previous contents in place.
type fileStore struct {
	path   string
	schema Schema
	codec  codec
}

// NewCSVStore returns a store backed by a CSV file at path.
func NewCSVStore(path string, schema Schema) Store {
	return &fileStore{path: path, schema: schema, codec: csvCodec{}}
}

// NewJSONStore returns a store backed by a JSON array file at path.
func NewJSONStore(path string, schema Schema) Store {
	return &fileStore{path: path, schema: schema, codec: jsonCodec{}}
}

func (s *fileStore) Append(ctx context.Context, rec types.VocabRecord) error {
	return s.AppendAll(ctx, []types.VocabRecord{rec})
}

func (s *fileStore) AppendAll(ctx context.Context, recs []types.VocabRecord) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if len(recs) == 0 {
		return nil
	}
	existing, err := s.load()
	if err != nil {
		return err
	}
	taken := make(map[string]bool, len(existing))
	for _, r := range existing {
		taken[r.ID] = true
	}
	if err := s.schema.checkRecords(s.path, recs, taken); err != nil {
		return err
	}
	return s.save(append(existing, recs...))
}

func (s *fileStore) ListRecent(ctx context.Context, n int) ([]types.VocabRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	recs, err := s.load()
	if err != nil {
		return nil, err
	}
	return mostRecent(recs, n), nil
}

func (s *fileStore) ListUnsynced(ctx context.Context) ([]types.VocabRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	recs, err := s.load()
	if err != nil {
		return nil, err
	}
	return unsynced(recs), nil
}

func (s *fileStore) MarkSynced(ctx context.Context, id string, noteID int64) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	recs, err := s.load()
	if err != nil {
		return err
	}
	for i := range recs {
		if recs[i].ID != id {
			continue
		}
		if recs[i].Synced {
			return nil
		}
		recs[i].Synced = true
		recs[i].NoteID = noteID
		return s.save(recs)
	}
	return notFound(s.path, id)
}

func (s *fileStore) All(ctx context.Context) ([]types.VocabRecord, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	recs, err := s.load()
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []types.VocabRecord{}
	}
	return recs, nil
}

func (s *fileStore) Close() error { return nil }

// load reads every record. A missing file is an empty store.
func (s *fileStore) load() ([]types.VocabRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, ioFailure(s.path, err)
	}
	defer f.Close()

	recs, err := s.codec.decode(bufio.NewReader(f), s.schema)
	if err != nil {
		if errors.Is(err, errIncompatible) {
			return nil, &StorageError{Kind: SchemaMismatch, Path: s.path, Err: err}
		}
		return nil, ioFailure(s.path, err)
	}
	return recs, nil
}

// save replaces the file with recs via a temporary file in the same directory.
func (s *fileStore) save(recs []types.VocabRecord) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ioFailure(s.path, fmt.Errorf("creating directory %s: %w", dir, err))
	}

	tmpFile, err := os.CreateTemp(dir, ".vocab-*.tmp")
	if err != nil {
		return ioFailure(s.path, fmt.Errorf("creating temp file: %w", err))
	}
	tmpPath := tmpFile.Name()

	bw := bufio.NewWriter(tmpFile)
	encErr := s.codec.encode(bw, s.schema, recs)
	if encErr == nil {
		encErr = bw.Flush()
	}
	if encErr == nil {
		encErr = tmpFile.Sync()
	}
	closeErr := tmpFile.Close()
	if encErr != nil {
		os.Remove(tmpPath)
		return ioFailure(s.path, fmt.Errorf("writing records: %w", encErr))
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return ioFailure(s.path, fmt.Errorf("closing temp file: %w", closeErr))
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return ioFailure(s.path, fmt.Errorf("renaming temp file: %w", err))
	}
	return nil
}
