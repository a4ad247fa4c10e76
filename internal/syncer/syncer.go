// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package syncer pushes unsynced vocabulary records to a flashcard target
// and marks each one synced once the target confirms the note. Records are
// never pushed twice and never rolled back.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/lang-engine/internal/logging"
	"github.com/pdiddy/lang-engine/internal/vocab"
	"github.com/pdiddy/lang-engine/pkg/types"
)

// ErrTargetUnavailable means the flashcard target could not be reached.
// Clients wrap their transport errors with it.
var ErrTargetUnavailable = errors.New("flashcard target unavailable")

// Note is one flashcard note as sent to the target.
type Note struct {
	Deck   string
	Model  string
	Fields map[string]string
	Tags   []string
}

// Target is the flashcard service. Errors wrapping ErrTargetUnavailable are
// connection failures; any other error is a rejection of that one request.
type Target interface {
	Ping(ctx context.Context) error
	DeckNames(ctx context.Context) ([]string, error)
	CreateDeck(ctx context.Context, name string) error
	AddNote(ctx context.Context, note Note) (int64, error)
	FindNotes(ctx context.Context, query string) ([]int64, error)
	UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error
}

// Failure is one record the target rejected.
type Failure struct {
	RecordID string
	Phrase   string
	Deck     string
	Err      error
}

// Summary holds counts from one sync run.
type Summary struct {
	Created  int
	Updated  int
	Failed   int
	Failures []Failure
}

// Synced returns the number of records marked synced.
func (s Summary) Synced() int {
	return s.Created + s.Updated
}

// Total returns the number of records attempted.
func (s Summary) Total() int {
	return s.Created + s.Updated + s.Failed
}

// HasFailures reports whether any record was rejected.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Agent syncs one profile's store to a target.
type Agent struct {
	Store   vocab.Store
	Target  Target
	Profile *types.LanguageProfile

	// UpdateExisting updates a note that already holds the same phrase in
	// the same deck instead of adding a duplicate.
	UpdateExisting bool

	Log *zap.Logger
}

// Sync pushes every unsynced record, grouped by deck. A rejected record is
// reported and skipped; the batch continues. If the target is unreachable
// at the start, Sync returns ErrTargetUnavailable without touching the
// store. If it becomes unreachable mid-batch, Sync stops and returns the
// partial summary with ErrTargetUnavailable; records already confirmed stay
// synced.
func (a *Agent) Sync(ctx context.Context, w io.Writer) (Summary, error) {
	log := logging.OrNop(a.Log)

	if err := a.Target.Ping(ctx); err != nil {
		log.Error("target unavailable", zap.Error(err))
		return Summary{}, unavailable(err)
	}

	pending, err := a.Store.ListUnsynced(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing unsynced records: %w", err)
	}
	if len(pending) == 0 {
		fmt.Fprintln(w, "Nothing to sync.")
		return Summary{}, nil
	}
	fmt.Fprintf(w, "Syncing %d record(s)\n", len(pending))

	existing, err := a.Target.DeckNames(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("listing decks: %w", err)
	}
	decks := make(map[string]bool, len(existing))
	for _, d := range existing {
		decks[d] = true
	}

	var summary Summary
	for _, g := range groupByDeck(a.Profile, pending) {
		if !decks[g.deck] {
			if err := a.Target.CreateDeck(ctx, g.deck); err != nil {
				if errors.Is(err, ErrTargetUnavailable) {
					return summary, err
				}
				log.Error("deck creation rejected", zap.String("deck", g.deck), zap.Error(err))
				for _, rec := range g.records {
					a.fail(w, log, &summary, rec, g.deck, fmt.Errorf("creating deck: %w", err))
				}
				continue
			}
			decks[g.deck] = true
			fmt.Fprintf(w, "created deck %s\n", g.deck)
		}

		for _, rec := range g.records {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			noteID, updated, err := a.push(ctx, rec, g.deck)
			if err != nil {
				if errors.Is(err, ErrTargetUnavailable) {
					log.Error("target lost mid-batch", zap.Int("synced", summary.Synced()), zap.Error(err))
					return summary, err
				}
				a.fail(w, log, &summary, rec, g.deck, err)
				continue
			}

			if err := a.Store.MarkSynced(ctx, rec.ID, noteID); err != nil {
				return summary, fmt.Errorf("marking %s synced: %w", rec.ID, err)
			}

			verb := "added"
			if updated {
				verb = "updated"
				summary.Updated++
			} else {
				summary.Created++
			}
			fmt.Fprintf(w, "%-7s %s -> %s\n", verb, rec.Phrase, g.deck)
			log.Info("record synced",
				zap.String("id", rec.ID),
				zap.String("phrase", rec.Phrase),
				zap.String("deck", g.deck),
				zap.Int64("note_id", noteID),
				zap.Bool("updated", updated),
			)
		}
	}
	return summary, nil
}

// push adds or updates the note for rec and returns its note id.
func (a *Agent) push(ctx context.Context, rec types.VocabRecord, deck string) (int64, bool, error) {
	fields := a.Profile.NoteFields(rec)

	if a.UpdateExisting {
		ids, err := a.Target.FindNotes(ctx, findQuery(deck, a.Profile.PrimaryNoteField(), rec.Phrase))
		if err != nil {
			return 0, false, fmt.Errorf("finding existing note: %w", err)
		}
		if len(ids) > 0 {
			if err := a.Target.UpdateNoteFields(ctx, ids[0], fields); err != nil {
				return 0, false, fmt.Errorf("updating note %d: %w", ids[0], err)
			}
			return ids[0], true, nil
		}
	}

	var tags []string
	if tag := a.Profile.TagFor(rec.ContextTag); tag != "" {
		tags = []string{tag}
	}
	id, err := a.Target.AddNote(ctx, Note{
		Deck:   deck,
		Model:  a.Profile.Anki.ModelName,
		Fields: fields,
		Tags:   tags,
	})
	if err != nil {
		return 0, false, fmt.Errorf("adding note: %w", err)
	}
	return id, false, nil
}

func (a *Agent) fail(w io.Writer, log *zap.Logger, s *Summary, rec types.VocabRecord, deck string, err error) {
	s.Failed++
	s.Failures = append(s.Failures, Failure{RecordID: rec.ID, Phrase: rec.Phrase, Deck: deck, Err: err})
	fmt.Fprintf(w, "failed  %s: %v\n", rec.Phrase, err)
	log.Warn("record rejected", zap.String("id", rec.ID), zap.String("phrase", rec.Phrase), zap.String("deck", deck), zap.Error(err))
}

type deckGroup struct {
	deck    string
	records []types.VocabRecord
}

// groupByDeck splits recs by derived deck, in order of first appearance,
// keeping append order within each group.
func groupByDeck(p *types.LanguageProfile, recs []types.VocabRecord) []deckGroup {
	var groups []deckGroup
	index := map[string]int{}
	for _, rec := range recs {
		deck := p.DeckFor(rec.ContextTag)
		i, ok := index[deck]
		if !ok {
			i = len(groups)
			index[deck] = i
			groups = append(groups, deckGroup{deck: deck})
		}
		groups[i].records = append(groups[i].records, rec)
	}
	return groups
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`, `*`, `\*`, `_`, `\_`)

// findQuery builds a search matching notes in deck whose field equals value.
func findQuery(deck, field, value string) string {
	return fmt.Sprintf(`"deck:%s" "%s:%s"`, queryEscaper.Replace(deck), field, queryEscaper.Replace(value))
}

func unavailable(err error) error {
	if errors.Is(err, ErrTargetUnavailable) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrTargetUnavailable, err)
}
