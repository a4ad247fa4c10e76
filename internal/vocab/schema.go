package vocab

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// Schema is the fixed field set of one language profile. Records are
// validated against it when they are constructed.
type Schema struct {
	Primary        string
	PrimaryAliases []string
	Fields         []types.FieldSpec
}

// SchemaFor builds the record schema of a profile.
func SchemaFor(p *types.LanguageProfile) Schema {
	return Schema{
		Primary:        p.Primary,
		PrimaryAliases: p.PrimaryAliases,
		Fields:         p.Fields,
	}
}

// FieldNames returns the enrichment field names in schema order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

func (s Schema) has(name string) bool {
	for _, f := range s.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ValidationError reports a record that does not fit the schema.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid record: %s: %s", e.Field, e.Reason)
}

// NewRecord validates phrase and enrichment against the schema and returns
// a new unsynced record tagged with tag and stamped with now.
func (s Schema) NewRecord(phrase string, enrichment map[string]string, tag string, now time.Time) (types.VocabRecord, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return types.VocabRecord{}, &ValidationError{Field: s.primaryName(), Reason: "phrase is empty"}
	}

	for k := range enrichment {
		if !s.has(k) {
			return types.VocabRecord{}, &ValidationError{Field: k, Reason: "not a field of this profile"}
		}
	}

	fields := make(map[string]string, len(s.Fields))
	for _, f := range s.Fields {
		v := strings.TrimSpace(enrichment[f.Name])
		if f.Required && v == "" {
			return types.VocabRecord{}, &ValidationError{Field: f.Name, Reason: "required field is empty"}
		}
		fields[f.Name] = v
	}

	return types.VocabRecord{
		ID:         uuid.NewString(),
		Phrase:     phrase,
		Enrichment: fields,
		ContextTag: strings.TrimSpace(tag),
		CreatedAt:  now.UTC(),
	}, nil
}

// checkRecords validates recs before they are written to the store at path.
// taken holds the IDs already stored. A record with an empty ID or phrase, a
// repeated ID, or a field outside the schema is reported as a
// SchemaMismatch wrapping a *ValidationError.
func (s Schema) checkRecords(path string, recs []types.VocabRecord, taken map[string]bool) error {
	seen := make(map[string]bool, len(recs))
	for _, rec := range recs {
		if verr := s.checkRecord(rec, taken, seen); verr != nil {
			return &StorageError{Kind: SchemaMismatch, Path: path, Err: verr}
		}
		seen[rec.ID] = true
	}
	return nil
}

func (s Schema) checkRecord(rec types.VocabRecord, taken, seen map[string]bool) *ValidationError {
	if strings.TrimSpace(rec.ID) == "" {
		return &ValidationError{Field: "id", Reason: "id is empty"}
	}
	if taken[rec.ID] || seen[rec.ID] {
		return &ValidationError{Field: "id", Reason: fmt.Sprintf("id %q is already in the store", rec.ID)}
	}
	if strings.TrimSpace(rec.Phrase) == "" {
		return &ValidationError{Field: s.primaryName(), Reason: "phrase is empty"}
	}
	keys := make([]string, 0, len(rec.Enrichment))
	for k := range rec.Enrichment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if !s.has(k) {
			return &ValidationError{Field: k, Reason: "not a field of this profile"}
		}
	}
	return nil
}

func (s Schema) primaryName() string {
	if s.Primary == "" {
		return "phrase"
	}
	return s.Primary
}
