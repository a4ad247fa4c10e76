// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/lang-engine/pkg/types"
)

const stateFile = "state.yaml"

// State is the persisted per-profile context. CurrentLevel is applied as
// the context tag of every record captured until it is changed.
type State struct {
	CurrentLevel string `yaml:"current_level"`
}

// StatePath returns the state file of a profile.
func StatePath(dataDir, code string) string {
	return filepath.Join(Dir(dataDir, code), stateFile)
}

// LoadState reads the state of p. A missing file yields the profile's
// default level.
func LoadState(dataDir string, p *types.LanguageProfile) (State, error) {
	path := StatePath(dataDir, p.Code)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return State{CurrentLevel: p.Levels.Default}, nil
		}
		return State{}, fmt.Errorf("reading state %s: %w", path, err)
	}

	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parsing state %s: %w", path, err)
	}
	if st.CurrentLevel == "" {
		st.CurrentLevel = p.Levels.Default
	}
	return st, nil
}

// SaveState writes st for p atomically via a temp file and rename.
func SaveState(dataDir string, p *types.LanguageProfile, st State) error {
	path := StatePath(dataDir, p.Code)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming state file: %w", err)
	}
	return nil
}

// CheckLevel normalises v and reports an error if it is not a level or
// special key of p. CEFR-style levels are matched case-insensitively.
func CheckLevel(p *types.LanguageProfile, v string) (string, error) {
	v = strings.TrimSpace(v)
	if p.Levels.Valid(v) {
		return v, nil
	}
	if up := strings.ToUpper(v); p.Levels.Valid(up) {
		return up, nil
	}
	if low := strings.ToLower(v); p.Levels.Valid(low) {
		return low, nil
	}

	valid := append([]string{}, p.Levels.Values...)
	for k := range p.Levels.Special {
		valid = append(valid, k)
	}
	return "", fmt.Errorf("invalid %s level %q: use one of %s", p.Levels.Type, v, strings.Join(valid, ", "))
}
