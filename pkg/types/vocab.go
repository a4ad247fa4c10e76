// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for the lang CLI: captured
// vocabulary records, language profiles, and configuration.
package types

import "time"

// VocabRecord is one captured phrase with its enrichment fields and sync
// state. Records are immutable once appended; only Synced and NoteID change,
// and only from false/0 to true/non-zero.
type VocabRecord struct {
	// ID is a UUID assigned when the record is constructed. Phrases may
	// repeat, so the ID is the only stable reference to a record.
	ID string `json:"id" yaml:"id"`

	// Phrase is the captured text in the profile's target language.
	Phrase string `json:"phrase" yaml:"phrase"`

	// Enrichment maps profile field names (e.g. "Pinyin", "English") to
	// values. Never nil; missing optional fields are stored as "".
	Enrichment map[string]string `json:"enrichment" yaml:"enrichment"`

	// ContextTag is the sticky level that was current at capture time
	// (e.g. "3" for HSK 3, "B1" for CEFR B1).
	ContextTag string `json:"context_tag" yaml:"context_tag"`

	// CreatedAt is set once at construction, in UTC.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// Synced reports whether the flashcard target confirmed the note.
	Synced bool `json:"synced" yaml:"synced"`

	// NoteID is the flashcard target's note identifier, 0 until synced.
	NoteID int64 `json:"note_id,omitempty" yaml:"note_id,omitempty"`
}

// Field returns the enrichment value for name, or "" when absent.
func (r VocabRecord) Field(name string) string {
	return r.Enrichment[name]
}
