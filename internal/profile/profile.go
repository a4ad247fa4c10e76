// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile loads language profiles and the per-profile sticky state.
//
// Built-in profiles (cn, fr) are embedded in the binary. A file at
// <data_dir>/profiles/<code>.yaml replaces the built-in profile of the same
// code or adds a new one.
package profile

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/lang-engine/pkg/types"
)

//go:embed profiles/*.yaml
var builtin embed.FS

// ErrUnknown is returned when no profile has the requested code.
var ErrUnknown = errors.New("unknown profile")

// Dir returns the directory holding a profile's store and state.
func Dir(dataDir, code string) string {
	return filepath.Join(dataDir, code)
}

func overridePath(dataDir, code string) string {
	return filepath.Join(dataDir, "profiles", code+".yaml")
}

// Load returns the profile for code, preferring an override file under
// dataDir over the built-in profile. The result is validated.
func Load(code, dataDir string) (*types.LanguageProfile, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: empty profile code", ErrUnknown)
	}

	data, source, err := read(code, dataDir)
	if err != nil {
		return nil, err
	}

	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", source, err)
	}
	if p.Code == "" {
		p.Code = code
	}
	if p.Code != code {
		return nil, fmt.Errorf("profile %s declares code %q, want %q", source, p.Code, code)
	}
	if err := Validate(p); err != nil {
		return nil, fmt.Errorf("profile %s: %w", source, err)
	}
	return p, nil
}

func read(code, dataDir string) ([]byte, string, error) {
	if dataDir != "" {
		path := overridePath(dataDir, code)
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("reading profile %s: %w", path, err)
		}
	}

	name := "profiles/" + code + ".yaml"
	data, err := builtin.ReadFile(name)
	if err != nil {
		return nil, "", fmt.Errorf("%w %q (available: %s)", ErrUnknown, code, strings.Join(List(dataDir), ", "))
	}
	return data, "builtin:" + code, nil
}

// Parse decodes one profile document. Unknown keys are rejected.
func Parse(data []byte) (*types.LanguageProfile, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var p types.LanguageProfile
	if err := dec.Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns the codes of every built-in and override profile, sorted.
func List(dataDir string) []string {
	seen := map[string]bool{}
	if entries, err := fs.ReadDir(builtin, "profiles"); err == nil {
		for _, e := range entries {
			seen[strings.TrimSuffix(e.Name(), ".yaml")] = true
		}
	}
	if dataDir != "" {
		if entries, err := os.ReadDir(filepath.Join(dataDir, "profiles")); err == nil {
			for _, e := range entries {
				if !e.IsDir() && strings.HasSuffix(e.Name(), ".yaml") {
					seen[strings.TrimSuffix(e.Name(), ".yaml")] = true
				}
			}
		}
	}

	codes := make([]string, 0, len(seen))
	for c := range seen {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}

// Validate checks that a profile is internally consistent.
func Validate(p *types.LanguageProfile) error {
	var errs []error
	if p.Code == "" {
		errs = append(errs, errors.New("code is empty"))
	}
	if p.Language == "" {
		errs = append(errs, errors.New("language is empty"))
	}
	if p.Primary == "" {
		errs = append(errs, errors.New("primary field is empty"))
	}

	names := map[string]bool{p.Primary: true}
	for i, f := range p.Fields {
		switch {
		case f.Name == "":
			errs = append(errs, fmt.Errorf("field %d has no name", i))
		case names[f.Name]:
			errs = append(errs, fmt.Errorf("field %q is defined twice or shadows the primary field", f.Name))
		}
		names[f.Name] = true
	}

	if len(p.Levels.Values) > 0 && p.Levels.Default != "" && !p.Levels.Valid(p.Levels.Default) {
		errs = append(errs, fmt.Errorf("default level %q is not one of %v", p.Levels.Default, p.Levels.Values))
	}

	for recordField := range p.Anki.FieldMapping {
		if !names[recordField] {
			errs = append(errs, fmt.Errorf("anki field_mapping refers to unknown field %q", recordField))
		}
	}
	if g := p.Anki.GrammarField; g != "" {
		if !names[g] {
			errs = append(errs, fmt.Errorf("anki grammar_field refers to unknown field %q", g))
		}
		if _, ok := p.Anki.FieldMapping[p.Anki.GrammarInto]; !ok {
			errs = append(errs, fmt.Errorf("anki grammar_into %q is not in field_mapping", p.Anki.GrammarInto))
		}
	}
	if p.Anki.UseLevels && p.Anki.DeckPrefix == "" {
		errs = append(errs, errors.New("anki.deck_prefix is required when use_levels is set"))
	}

	switch p.Storage.Format {
	case types.FormatCSV, types.FormatJSON, types.FormatSQLite:
	case "":
		p.Storage.Format = types.FormatCSV
	default:
		errs = append(errs, fmt.Errorf("storage format %q: use csv, json, or sqlite", p.Storage.Format))
	}

	return errors.Join(errs...)
}
