//go:build mage

// Package main contains Mage build targets for lang developer tooling.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir  = "bin"
	binName = "lang"
	cmdPkg  = "./cmd/lang"
)

// Init creates the local data directory, the profile override directory,
// and the secrets directory.
func Init() error {
	dataDir := os.Getenv("LANGCLI_DATA_DIR")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("finding home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share", "lang")
	}

	for _, dir := range []string{
		filepath.Join(dataDir, "profiles"),
		filepath.Join(dataDir, "logs"),
		".secrets",
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
		fmt.Println("  ", dir)
	}
	fmt.Println("Directories initialized. Put your OpenAI key in .secrets/openai-api-key or OPENAI_API_KEY.")
	return nil
}

// ldflags stamps the version from git, falling back to "dev".
func ldflags() string {
	v, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || strings.TrimSpace(v) == "" {
		v = "dev"
	}
	return "-X main.version=" + strings.TrimSpace(v)
}

// Build compiles the CLI binary into bin/.
func Build() error {
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", binDir, err)
	}
	out := filepath.Join(binDir, binName)
	if err := sh.RunV("go", "build", "-ldflags", ldflags(), "-o", out, cmdPkg); err != nil {
		return fmt.Errorf("go build: %w", err)
	}
	fmt.Printf("Built %s\n", out)
	return nil
}

// Install runs the tests, then installs lang into GOBIN.
func Install() error {
	mg.Deps(Test)
	if err := sh.RunV("go", "install", "-ldflags", ldflags(), cmdPkg); err != nil {
		return fmt.Errorf("go install: %w", err)
	}
	fmt.Println("Installed lang")
	return nil
}

// Test runs the unit tests. The sqlite backend needs cgo.
func Test() error {
	env := map[string]string{"CGO_ENABLED": "1"}
	return sh.RunWithV(env, "go", "test", "./...")
}

// Stats prints project metrics: Go production/test LOC and profile count.
func Stats() error {
	prodLines, err := countGoLines(".", false)
	if err != nil {
		return err
	}
	testLines, err := countGoLines(".", true)
	if err != nil {
		return err
	}
	profiles, err := filepath.Glob(filepath.Join("internal", "profile", "profiles", "*.yaml"))
	if err != nil {
		return err
	}

	fmt.Printf("Lines of code (Go, production): %d\n", prodLines)
	fmt.Printf("Lines of code (Go, tests):      %d\n", testLines)
	fmt.Printf("Built-in language profiles:     %d\n", len(profiles))
	return nil
}

// countGoLines walks the directory tree and counts non-blank lines in Go files.
// If testOnly is true, count only _test.go files; otherwise count non-test .go files.
// Directories starting with "_" or "." are skipped, as the go tool does.
func countGoLines(root string, testOnly bool) (int, error) {
	total := 0
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if path != root && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".go" {
			return nil
		}
		if isTest := strings.HasSuffix(path, "_test.go"); isTest != testOnly {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		for _, line := range strings.Split(string(data), "\n") {
			if strings.TrimSpace(line) != "" {
				total++
			}
		}
		return nil
	})
	return total, err
}
