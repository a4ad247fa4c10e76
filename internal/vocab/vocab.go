// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package vocab persists captured vocabulary records in an append-only local
// store. Three backends share one contract: a CSV file, a JSON array file,
// and a SQLite database. Content is never rewritten after append; the only
// post-creation change is the sync flag flipping from false to true.
package vocab

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// Store is the vocabulary record store used by the CLI and the sync agent.
type Store interface {
	// Append writes rec after every existing record. On error the store is
	// left as it was.
	Append(ctx context.Context, rec types.VocabRecord) error

	// AppendAll writes recs in order as a single atomic change.
	AppendAll(ctx context.Context, recs []types.VocabRecord) error

	// ListRecent returns at most n records, newest created_at first.
	ListRecent(ctx context.Context, n int) ([]types.VocabRecord, error)

	// ListUnsynced returns records with Synced == false in append order.
	ListUnsynced(ctx context.Context) ([]types.VocabRecord, error)

	// MarkSynced flips the sync flag of the record with the given ID and
	// records noteID. Marking an already synced record is a no-op.
	MarkSynced(ctx context.Context, id string, noteID int64) error

	// All returns every record in append order.
	All(ctx context.Context) ([]types.VocabRecord, error)

	// Close releases any resources held by the store.
	Close() error
}

const (
	defaultCSVFile    = "vocab.csv"
	defaultJSONFile   = "vocab.json"
	defaultSQLiteFile = "vocab.db"
)

// Open returns the store configured by the profile, rooted at dir.
func Open(p *types.LanguageProfile, dir string) (Store, error) {
	schema := SchemaFor(p)
	file := p.Storage.File

	switch p.Storage.Format {
	case types.FormatCSV, "":
		if file == "" {
			file = defaultCSVFile
		}
		return NewCSVStore(filepath.Join(dir, file), schema), nil
	case types.FormatJSON:
		if file == "" {
			file = defaultJSONFile
		}
		return NewJSONStore(filepath.Join(dir, file), schema), nil
	case types.FormatSQLite:
		if file == "" {
			file = defaultSQLiteFile
		}
		return NewSQLiteStore(filepath.Join(dir, file), schema)
	default:
		return nil, fmt.Errorf("unsupported store format %q: use csv, json, or sqlite", p.Storage.Format)
	}
}

// mostRecent orders recs by CreatedAt descending, breaking ties by later
// append first, and truncates to n.
func mostRecent(recs []types.VocabRecord, n int) []types.VocabRecord {
	if n <= 0 || len(recs) == 0 {
		return []types.VocabRecord{}
	}
	out := make([]types.VocabRecord, len(recs))
	for i, r := range recs {
		out[len(recs)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// unsynced filters recs to those not yet synced, keeping order.
func unsynced(recs []types.VocabRecord) []types.VocabRecord {
	out := []types.VocabRecord{}
	for _, r := range recs {
		if !r.Synced {
			out = append(out, r)
		}
	}
	return out
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
