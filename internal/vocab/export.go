// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vocab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// ExportEntry is a record with its derived deck, as written by Export.
type ExportEntry struct {
	types.VocabRecord `yaml:",inline"`
	Deck              string `json:"deck" yaml:"deck"`
}

// Export writes every record in append order to w as "yaml" or "json" and
// returns the number of records written.
func Export(ctx context.Context, store Store, p *types.LanguageProfile, format string, w io.Writer) (int, error) {
	recs, err := store.All(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading records for export: %w", err)
	}

	entries := make([]ExportEntry, len(recs))
	for i, r := range recs {
		entries[i] = ExportEntry{VocabRecord: r, Deck: p.DeckFor(r.ContextTag)}
	}

	switch format {
	case "yaml", "":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(entries); err != nil {
			return 0, fmt.Errorf("marshaling YAML: %w", err)
		}
		if err := enc.Close(); err != nil {
			return 0, fmt.Errorf("marshaling YAML: %w", err)
		}
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(entries); err != nil {
			return 0, fmt.Errorf("marshaling JSON: %w", err)
		}
	default:
		return 0, fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	return len(entries), nil
}
