// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package backup

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/lang-engine/pkg/types"
)

var cellEscaper = strings.NewReplacer("|", `\|`, "\r\n", "<br>", "\n", "<br>")

// RenderMarkdown writes recs as a Markdown document with one table per deck.
// Decks appear in order of first record; rows keep append order.
func RenderMarkdown(w io.Writer, p *types.LanguageProfile, recs []types.VocabRecord, now time.Time) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s vocabulary\n\n", p.Language)
	fmt.Fprintf(&b, "Backup of %d record(s), %s.\n", len(recs), now.Format("2006-01-02 15:04"))

	var order []string
	byDeck := map[string][]types.VocabRecord{}
	for _, r := range recs {
		deck := p.DeckFor(r.ContextTag)
		if _, ok := byDeck[deck]; !ok {
			order = append(order, deck)
		}
		byDeck[deck] = append(byDeck[deck], r)
	}

	header := append([]string{p.Primary}, p.FieldNames()...)
	header = append(header, "Level", "Added", "Synced")

	for _, deck := range order {
		fmt.Fprintf(&b, "\n## %s\n\n", deck)
		b.WriteString("| " + strings.Join(header, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")

		for _, r := range byDeck[deck] {
			cells := make([]string, 0, len(header))
			cells = append(cells, cell(r.Phrase))
			for _, name := range p.FieldNames() {
				cells = append(cells, cell(r.Field(name)))
			}
			synced := "no"
			if r.Synced {
				synced = "yes"
			}
			cells = append(cells, cell(r.ContextTag), r.CreatedAt.Format("2006-01-02"), synced)
			b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func cell(s string) string {
	return cellEscaper.Replace(strings.TrimSpace(s))
}
