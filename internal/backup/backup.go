// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package backup renders the vocabulary store to Markdown and converts it
// to PDF with pandoc.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/lang-engine/internal/logging"
	"github.com/pdiddy/lang-engine/internal/vocab"
	"github.com/pdiddy/lang-engine/pkg/types"
)

const binPandoc = "pandoc"

// ErrPandocMissing is returned when pandoc is not on PATH.
var ErrPandocMissing = errors.New("pandoc not found on PATH: install it from https://pandoc.org")

// Options tune the PDF conversion.
type Options struct {
	// Engine is passed as --pdf-engine. xelatex handles CJK text.
	Engine string

	// MainFont sets the mainfont and CJKmainfont variables when non-empty.
	MainFont string

	// KeepMarkdown also writes the Markdown next to the PDF.
	KeepMarkdown bool
}

// Backup writes every record of store to a PDF at outPath and returns the
// number of records. The store is only read.
func Backup(ctx context.Context, store vocab.Store, p *types.LanguageProfile, outPath string, opts Options, log *zap.Logger) (int, error) {
	return backup(ctx, defaultExec, store, p, outPath, opts, time.Now(), log)
}

func backup(ctx context.Context, ex executor, store vocab.Store, p *types.LanguageProfile, outPath string, opts Options, now time.Time, log *zap.Logger) (int, error) {
	log = logging.OrNop(log)

	if _, err := ex.LookPath(binPandoc); err != nil {
		return 0, ErrPandocMissing
	}

	recs, err := store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading records: %w", err)
	}

	var md bytes.Buffer
	if err := RenderMarkdown(&md, p, recs, now); err != nil {
		return 0, fmt.Errorf("rendering markdown: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("creating output directory: %w", err)
	}

	if opts.KeepMarkdown {
		mdPath := strings.TrimSuffix(outPath, filepath.Ext(outPath)) + ".md"
		if err := os.WriteFile(mdPath, md.Bytes(), 0o644); err != nil {
			return 0, fmt.Errorf("writing %s: %w", mdPath, err)
		}
	}

	args := pandocArgs(outPath, opts)
	var stderr bytes.Buffer
	log.Info("running pandoc", zap.Strings("args", args), zap.Int("records", len(recs)))
	if err := ex.RunPiped(ctx, binPandoc, args, &md, io.Discard, &stderr); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return 0, fmt.Errorf("converting to PDF with pandoc: %w: %s", err, msg)
		}
		return 0, fmt.Errorf("converting to PDF with pandoc: %w", err)
	}
	return len(recs), nil
}

func pandocArgs(outPath string, opts Options) []string {
	engine := opts.Engine
	if engine == "" {
		engine = "xelatex"
	}
	args := []string{
		"--from", "markdown",
		"--output", outPath,
		"--pdf-engine=" + engine,
		"--variable", "geometry:margin=2cm",
	}
	if opts.MainFont != "" {
		args = append(args,
			"--variable", "mainfont="+opts.MainFont,
			"--variable", "CJKmainfont="+opts.MainFont,
		)
	}
	return args
}

// DefaultPath returns the backup file for a profile under dir, stamped with
// the date.
func DefaultPath(dir string, p *types.LanguageProfile, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s-vocab-%s.pdf", p.Code, now.Format("2006-01-02")))
}
