// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
)

// StoreFormat selects the on-disk representation of a vocabulary store.
type StoreFormat string

const (
	FormatCSV    StoreFormat = "csv"
	FormatJSON   StoreFormat = "json"
	FormatSQLite StoreFormat = "sqlite"
)

// FieldSpec describes one enrichment field of a language profile.
type FieldSpec struct {
	// Name is the field key stored with each record (e.g. "Pinyin").
	Name string `json:"name" yaml:"name"`

	// Description tells the AI backend what to put in the field.
	Description string `json:"description" yaml:"description"`

	// Required fields must be non-empty when a record is constructed.
	Required bool `json:"required,omitempty" yaml:"required,omitempty"`

	// Aliases are alternate column names accepted on bulk import
	// (e.g. "pinyin" from a LanguagePlayer export).
	Aliases []string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// Levels describes the proficiency scale used as the context tag.
type Levels struct {
	// Type is the scale name shown to the user (e.g. "HSK", "CEFR").
	Type string `json:"type" yaml:"type"`

	// Values lists the accepted level values.
	Values []string `json:"values" yaml:"values"`

	// Default is used when no level has been set yet.
	Default string `json:"default" yaml:"default"`

	// Special maps extra level keys to deck labels (e.g. "0" -> "Misc").
	Special map[string]string `json:"special,omitempty" yaml:"special,omitempty"`
}

// Valid reports whether v is a regular or special level.
func (l Levels) Valid(v string) bool {
	if _, ok := l.Special[v]; ok {
		return true
	}
	for _, val := range l.Values {
		if val == v {
			return true
		}
	}
	return false
}

// AnkiSettings controls deck naming and note construction on sync.
type AnkiSettings struct {
	// UseLevels selects one deck per level (DeckPrefix + level) instead of
	// a single deck (DeckName).
	UseLevels bool `json:"use_levels" yaml:"use_levels"`

	DeckPrefix string `json:"deck_prefix,omitempty" yaml:"deck_prefix,omitempty"`
	DeckName   string `json:"deck_name,omitempty" yaml:"deck_name,omitempty"`

	// ModelName is the note type the notes are created with.
	ModelName string `json:"model_name" yaml:"model_name"`

	// TagPrefix is prepended to the level to form the note tag.
	TagPrefix string `json:"tag_prefix" yaml:"tag_prefix"`

	// FieldMapping maps record field names (the primary field name for the
	// phrase) to note type field names.
	FieldMapping map[string]string `json:"field_mapping" yaml:"field_mapping"`

	// FieldOrder lists the note type fields in display order. Used when
	// creating the note type.
	FieldOrder []string `json:"field_order" yaml:"field_order"`

	// GrammarField names the record field holding grammar notes. When it
	// is non-empty on a record, the notes are appended below the note field
	// that GrammarInto maps to.
	GrammarField string `json:"grammar_field,omitempty" yaml:"grammar_field,omitempty"`
	GrammarInto  string `json:"grammar_into,omitempty" yaml:"grammar_into,omitempty"`

	// LevelField, when set, receives "<levels.type> <level>" on each note.
	LevelField string `json:"level_field,omitempty" yaml:"level_field,omitempty"`

	// Templates and CSS define the note type created by setup-anki.
	Templates []CardTemplate `json:"templates,omitempty" yaml:"templates,omitempty"`
	CSS       string         `json:"css,omitempty" yaml:"css,omitempty"`
}

// CardTemplate is one card of a note type.
type CardTemplate struct {
	Name  string `json:"Name" yaml:"name"`
	Front string `json:"Front" yaml:"front"`
	Back  string `json:"Back" yaml:"back"`
}

// StorageSettings locates the vocabulary store for a profile.
type StorageSettings struct {
	Format StoreFormat `json:"format" yaml:"format"`
	File   string      `json:"file" yaml:"file"`
}

// LanguageProfile holds every language-specific setting: the field schema
// used to validate records, the level scale, and deck naming.
type LanguageProfile struct {
	// Code is the short profile key (e.g. "cn", "fr").
	Code string `json:"code" yaml:"code"`

	// Language is the full language name (e.g. "Chinese").
	Language string `json:"language" yaml:"language"`

	// DefaultInputLang is the assumed language of phrases typed by the user.
	DefaultInputLang string `json:"default_input_lang" yaml:"default_input_lang"`

	// Primary is the field name that holds the phrase itself (e.g. "Hanzi").
	Primary string `json:"primary" yaml:"primary"`

	// PrimaryAliases are alternate import column names for the phrase.
	PrimaryAliases []string `json:"primary_aliases,omitempty" yaml:"primary_aliases,omitempty"`

	// Fields is the fixed enrichment schema, in display order.
	Fields []FieldSpec `json:"fields" yaml:"fields"`

	Levels  Levels          `json:"levels" yaml:"levels"`
	Anki    AnkiSettings    `json:"anki" yaml:"anki"`
	Storage StorageSettings `json:"storage" yaml:"storage"`

	// PromptPreamble replaces the default first line of the enrichment prompt.
	PromptPreamble string `json:"prompt_preamble,omitempty" yaml:"prompt_preamble,omitempty"`
}

// FieldNames returns the enrichment field names in schema order.
func (p *LanguageProfile) FieldNames() []string {
	names := make([]string, len(p.Fields))
	for i, f := range p.Fields {
		names[i] = f.Name
	}
	return names
}

// DeckFor derives the deck a record with the given context tag belongs to.
// The result depends only on the profile and the tag.
func (p *LanguageProfile) DeckFor(tag string) string {
	if tag == "" {
		tag = p.Levels.Default
	}
	special, isSpecial := p.Levels.Special[tag]

	if p.Anki.UseLevels {
		if isSpecial {
			return p.Anki.DeckPrefix + special
		}
		return p.Anki.DeckPrefix + tag
	}

	base := p.Anki.DeckName
	if base == "" {
		base = p.Anki.DeckPrefix
	}
	if base == "" {
		base = p.Language
	}
	if isSpecial {
		return base + "::" + special
	}
	return base
}

// TagFor returns the note tag for a record with the given context tag:
// lowercased, without spaces.
func (p *LanguageProfile) TagFor(tag string) string {
	if !p.Anki.UseLevels {
		return p.Anki.TagPrefix
	}
	if tag == "" {
		tag = p.Levels.Default
	}
	return strings.ToLower(strings.ReplaceAll(p.Anki.TagPrefix+tag, " ", ""))
}

// NoteFields maps a record onto the note type's fields.
func (p *LanguageProfile) NoteFields(rec VocabRecord) map[string]string {
	fields := make(map[string]string, len(p.Anki.FieldMapping)+1)
	for recordField, noteField := range p.Anki.FieldMapping {
		if recordField == p.Primary {
			fields[noteField] = rec.Phrase
			continue
		}
		if v, ok := rec.Enrichment[recordField]; ok {
			fields[noteField] = v
		}
	}
	if grammar := rec.Enrichment[p.Anki.GrammarField]; p.Anki.GrammarField != "" && grammar != "" {
		if target, ok := p.Anki.FieldMapping[p.Anki.GrammarInto]; ok {
			fields[target] = withGrammar(fields[target], grammar)
		}
	}
	if p.Anki.LevelField != "" && p.Anki.UseLevels {
		tag := rec.ContextTag
		if tag == "" {
			tag = p.Levels.Default
		}
		fields[p.Anki.LevelField] = strings.TrimSpace(p.Levels.Type + " " + tag)
	}
	return fields
}

// withGrammar appends a grammar block below base.
func withGrammar(base, grammar string) string {
	block := "<div class='grammar'>" + grammar + "</div>"
	if base == "" {
		return block
	}
	return base + "<br><hr>" + block
}

// PrimaryNoteField returns the note type field that holds the phrase.
func (p *LanguageProfile) PrimaryNoteField() string {
	if f, ok := p.Anki.FieldMapping[p.Primary]; ok {
		return f
	}
	return p.Primary
}
