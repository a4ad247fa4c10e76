package vocab

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// jsonCodec stores the records as one indented JSON array, one object per
// record, in append order.
type jsonCodec struct{}

func (jsonCodec) decode(r io.Reader, schema Schema) ([]types.VocabRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var recs []types.VocabRecord
	if err := dec.Decode(&recs); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) || strings.HasPrefix(err.Error(), "json: unknown field") {
			return nil, fmt.Errorf("%w: %v", errIncompatible, err)
		}
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	for i := range recs {
		if recs[i].Enrichment == nil {
			recs[i].Enrichment = make(map[string]string, len(schema.Fields))
		}
		for k := range recs[i].Enrichment {
			if !schema.has(k) {
				return nil, fmt.Errorf("%w: record %s has field %q outside the profile schema",
					errIncompatible, recs[i].ID, k)
			}
		}
		for _, f := range schema.Fields {
			if _, ok := recs[i].Enrichment[f.Name]; !ok {
				recs[i].Enrichment[f.Name] = ""
			}
		}
		recs[i].CreatedAt = recs[i].CreatedAt.UTC()
	}
	return recs, nil
}

func (jsonCodec) encode(w io.Writer, _ Schema, recs []types.VocabRecord) error {
	if recs == nil {
		recs = []types.VocabRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(recs)
}
