package vocab

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// Fixed CSV columns around the profile's enrichment fields.
const (
	colID         = "id"
	colPhrase     = "phrase"
	colContextTag = "context_tag"
	colCreatedAt  = "created_at"
	colSynced     = "synced"
	colNoteID     = "note_id"
)

// csvHeader returns the expected header row for a schema.
func csvHeader(schema Schema) []string {
	header := []string{colID, colPhrase}
	header = append(header, schema.FieldNames()...)
	return append(header, colContextTag, colCreatedAt, colSynced, colNoteID)
}

// csvCodec stores one record per row under a header naming every column.
type csvCodec struct{}

func (csvCodec) decode(r io.Reader, schema Schema) ([]types.VocabRecord, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	want := csvHeader(schema)
	if !equalColumns(header, want) {
		return nil, fmt.Errorf("%w: header %v, want %v", errIncompatible, header, want)
	}

	fields := schema.FieldNames()
	var recs []types.VocabRecord
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if errors.Is(err, csv.ErrFieldCount) {
				return nil, fmt.Errorf("%w: line %d: %v", errIncompatible, line, err)
			}
			return nil, fmt.Errorf("reading line %d: %w", line, err)
		}

		rec, err := parseCSVRow(row, fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func parseCSVRow(row []string, fields []string) (types.VocabRecord, error) {
	n := len(fields)
	rec := types.VocabRecord{
		ID:         row[0],
		Phrase:     row[1],
		Enrichment: make(map[string]string, n),
		ContextTag: row[2+n],
	}
	for i, name := range fields {
		rec.Enrichment[name] = row[2+i]
	}

	created, err := time.Parse(time.RFC3339Nano, row[3+n])
	if err != nil {
		return rec, fmt.Errorf("parsing %s: %w", colCreatedAt, err)
	}
	rec.CreatedAt = created.UTC()

	if s := row[4+n]; s != "" {
		synced, err := strconv.ParseBool(s)
		if err != nil {
			return rec, fmt.Errorf("parsing %s: %w", colSynced, err)
		}
		rec.Synced = synced
	}

	if s := row[5+n]; s != "" {
		noteID, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return rec, fmt.Errorf("parsing %s: %w", colNoteID, err)
		}
		rec.NoteID = noteID
	}
	return rec, nil
}

func (csvCodec) encode(w io.Writer, schema Schema, recs []types.VocabRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader(schema)); err != nil {
		return err
	}

	fields := schema.FieldNames()
	row := make([]string, 0, len(fields)+6)
	for _, rec := range recs {
		row = row[:0]
		row = append(row, rec.ID, rec.Phrase)
		for _, name := range fields {
			row = append(row, rec.Enrichment[name])
		}
		noteID := ""
		if rec.NoteID != 0 {
			noteID = strconv.FormatInt(rec.NoteID, 10)
		}
		row = append(row,
			rec.ContextTag,
			rec.CreatedAt.UTC().Format(time.RFC3339Nano),
			strconv.FormatBool(rec.Synced),
			noteID,
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func equalColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if strings.TrimSpace(got[i]) != want[i] {
			return false
		}
	}
	return true
}
