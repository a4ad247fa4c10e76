// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves API keys from the environment, from .env files,
// and from a directory of plain-text files. In the directory each file is
// one secret: the filename is the key name and the trimmed contents are the
// value.
//
// Supported keys: openai-api-key (env OPENAI_API_KEY).
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// OpenAIKey names the OpenAI API key.
const OpenAIKey = "openai-api-key"

// ErrMissing is returned by Lookup when no source provides the key.
var ErrMissing = errors.New("secret not found")

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory or missing files are not errors; Load returns an empty map.
// Unreadable files produce a warning on stderr but do not abort.
func Load(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		value := strings.TrimSpace(string(data))
		if value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// LoadEnvFiles reads dotenv files and merges them; a value from an earlier
// file wins. Missing files are skipped.
func LoadEnvFiles(paths ...string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		vals, err := godotenv.Read(p)
		if err != nil {
			return nil, fmt.Errorf("reading env file %s: %w", p, err)
		}
		for k, v := range vals {
			if _, seen := out[k]; !seen && strings.TrimSpace(v) != "" {
				out[k] = strings.TrimSpace(v)
			}
		}
	}
	return out, nil
}

// EnvName maps a key name to its environment variable: "openai-api-key"
// becomes "OPENAI_API_KEY".
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}

// Resolver looks a key up in the process environment, then in EnvFiles,
// then in Dir.
type Resolver struct {
	Dir      string
	EnvFiles []string

	// Getenv defaults to os.Getenv.
	Getenv func(string) string
}

// Lookup returns the first non-empty value for key, or ErrMissing.
func (r Resolver) Lookup(key string) (string, error) {
	getenv := r.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	envName := EnvName(key)

	if v := strings.TrimSpace(getenv(envName)); v != "" {
		return v, nil
	}

	fromFiles, err := LoadEnvFiles(r.EnvFiles...)
	if err != nil {
		return "", err
	}
	if v, ok := fromFiles[envName]; ok {
		return v, nil
	}

	if r.Dir != "" {
		fromDir, err := Load(r.Dir)
		if err != nil {
			return "", err
		}
		if v, ok := fromDir[key]; ok {
			return v, nil
		}
	}

	return "", fmt.Errorf("%w: set %s, add it to a .env file, or write %s",
		ErrMissing, envName, filepath.Join(r.Dir, key))
}
