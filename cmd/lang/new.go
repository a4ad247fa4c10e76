package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/lang-engine/internal/enrich"
	"github.com/pdiddy/lang-engine/internal/vocab"
	"github.com/pdiddy/lang-engine/pkg/types"
)

var newCmd = &cobra.Command{
	Use:   "new <phrase>",
	Short: "Enrich a phrase and add it to the vocabulary",
	Long: `New sends the phrase to the AI backend for the profile's fields (for
Chinese: pinyin, English, an example sentence and its translation) and
appends the result to the store, tagged with the current level.

A phrase already in the store is not added again unless --force is given.
If enrichment fails nothing is stored.`,
	Args: cobra.MinimumNArgs(1),
	RunE: withApp(runNew),
}

func init() {
	newCmd.Flags().String("lang", "", "language the phrase is typed in (default from profile)")
	newCmd.Flags().StringP("context", "c", "", "sentence the phrase was seen in, used as the example")
	newCmd.Flags().StringP("grammar", "g", "", "grammar point to explain in the Grammar field")
	newCmd.Flags().StringP("level", "l", "", "level for this phrase only (default: current level)")
	newCmd.Flags().Bool("force", false, "add the phrase even if it is already in the vocabulary")

	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string, a *app) error {
	phrase := strings.TrimSpace(strings.Join(args, " "))
	if phrase == "" {
		return fmt.Errorf("phrase is empty")
	}
	inputLang, _ := cmd.Flags().GetString("lang")
	seenIn, _ := cmd.Flags().GetString("context")
	grammar, _ := cmd.Flags().GetString("grammar")
	levelFlag, _ := cmd.Flags().GetString("level")
	force, _ := cmd.Flags().GetBool("force")

	level, err := a.level(levelFlag)
	if err != nil {
		return err
	}

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	w := cmd.OutOrStdout()

	if !force {
		if dup, err := findExisting(ctx, store, phrase); err != nil {
			return err
		} else if dup != nil {
			printDuplicate(w, a.profile, *dup)
			return nil
		}
	}

	enricher, err := a.enricher()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Enriching %q (%s)...\n", phrase, levelLabel(a.profile, level))
	res, err := enricher.Enrich(ctx, enrich.Request{
		Phrase:    phrase,
		InputLang: inputLang,
		Level:     level,
		Context:   seenIn,
		Grammar:   grammar,
	})
	if err != nil {
		return err
	}

	// The backend may return the phrase in another form (translated or
	// converted script); check that form too.
	if !force && !strings.EqualFold(res.Phrase, phrase) {
		if dup, err := findExisting(ctx, store, res.Phrase); err != nil {
			return err
		} else if dup != nil {
			printDuplicate(w, a.profile, *dup)
			return nil
		}
	}

	rec, err := vocab.SchemaFor(a.profile).NewRecord(res.Phrase, res.Fields, level, time.Now())
	if err != nil {
		return fmt.Errorf("building record: %w", err)
	}
	if err := store.Append(ctx, rec); err != nil {
		return err
	}
	a.log.Info("record added", zap.String("id", rec.ID), zap.String("phrase", rec.Phrase), zap.String("level", level))

	fmt.Fprintln(w)
	printRecord(w, a.profile, rec)
	fmt.Fprintf(w, "\nAdded to %s. Run 'lang sync' to push it to Anki.\n", a.profile.DeckFor(rec.ContextTag))
	return nil
}

// findExisting returns the most recent record whose phrase equals phrase,
// ignoring case, or nil.
func findExisting(ctx context.Context, store vocab.Store, phrase string) (*types.VocabRecord, error) {
	all, err := store.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := len(all) - 1; i >= 0; i-- {
		if strings.EqualFold(all[i].Phrase, phrase) {
			return &all[i], nil
		}
	}
	return nil, nil
}

func printDuplicate(w io.Writer, p *types.LanguageProfile, rec types.VocabRecord) {
	fmt.Fprintf(w, "%q is already in the vocabulary (%s, added %s). Use --force to add it again.\n",
		rec.Phrase, levelLabel(p, rec.ContextTag), rec.CreatedAt.Local().Format("2006-01-02"))
}

// printRecord writes rec as a short block: the phrase with its level, then
// one line per non-empty field.
func printRecord(w io.Writer, p *types.LanguageProfile, rec types.VocabRecord) {
	mark := ""
	if rec.Synced {
		mark = " *"
	}
	fmt.Fprintf(w, "%s  [%s]%s\n", rec.Phrase, levelLabel(p, rec.ContextTag), mark)
	for _, name := range p.FieldNames() {
		if v := rec.Field(name); v != "" {
			fmt.Fprintf(w, "  %-18s %s\n", name+":", strings.ReplaceAll(v, "\n", "\n  "+strings.Repeat(" ", 19)))
		}
	}
}
