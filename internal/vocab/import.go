package vocab

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// ImportSummary holds counts from a bulk import.
type ImportSummary struct {
	Imported int
	Skipped  int

	// Rejected lists the skipped rows (zero-based) and why.
	Rejected []RowError
}

// Total returns the number of rows processed.
func (s ImportSummary) Total() int {
	return s.Imported + s.Skipped
}

// RowError explains why one import row was skipped.
type RowError struct {
	Row int
	Err error
}

// ImportBulk converts raw rows (column name to value) into records tagged
// with tag and appends them in one atomic write. Column names match schema
// field names or their aliases, ignoring case. Rows missing the phrase or a
// required field are skipped and counted. If the write fails nothing is
// imported and the storage error is returned.
func ImportBulk(ctx context.Context, store Store, schema Schema, rows []map[string]string, tag string, now func() time.Time) (ImportSummary, error) {
	if now == nil {
		now = time.Now
	}

	var (
		summary ImportSummary
		batch   []types.VocabRecord
	)

	for i, row := range rows {
		rec, err := schema.recordFromRow(normalizeKeys(row), tag, now())
		if err != nil {
			summary.Skipped++
			summary.Rejected = append(summary.Rejected, RowError{Row: i, Err: err})
			continue
		}
		batch = append(batch, rec)
	}

	if err := store.AppendAll(ctx, batch); err != nil {
		return ImportSummary{Skipped: summary.Skipped, Rejected: summary.Rejected}, err
	}
	summary.Imported = len(batch)
	return summary, nil
}

func (s Schema) recordFromRow(row map[string]string, tag string, now time.Time) (types.VocabRecord, error) {
	phraseKeys := append([]string{s.Primary, colPhrase}, s.PrimaryAliases...)
	phrase := lookup(row, phraseKeys...)

	enrichment := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		keys := append([]string{f.Name}, f.Aliases...)
		if v := lookup(row, keys...); v != "" {
			enrichment[f.Name] = v
		}
	}
	return s.NewRecord(phrase, enrichment, tag, now)
}

// lookup returns the first non-empty value among keys.
func lookup(row map[string]string, keys ...string) string {
	for _, k := range keys {
		if k == "" {
			continue
		}
		if v := strings.TrimSpace(row[strings.ToLower(k)]); v != "" {
			return v
		}
	}
	return ""
}

func normalizeKeys(row map[string]string) map[string]string {
	out := make(map[string]string, len(row))
	for k, v := range row {
		out[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return out
}

// ReadRows parses a CSV file with a header row into one map per data row,
// keyed by header name. A UTF-8 byte order mark is ignored and rows may be
// shorter than the header.
func ReadRows(r io.Reader) ([]map[string]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	var rows []map[string]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV row %d: %w", len(rows)+1, err)
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
