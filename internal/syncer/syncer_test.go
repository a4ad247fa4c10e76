// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package syncer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/lang-engine/internal/vocab"
	"github.com/pdiddy/lang-engine/pkg/types"
)

// fakeTarget is an in-memory flashcard target.
type fakeTarget struct {
	down        bool
	decks       map[string]bool
	rejectNotes map[string]bool // by primary field value
	rejectDecks map[string]bool
	failAfter   int // go down after this many successful adds; 0 = never

	createdDecks []string
	notes        map[int64]Note
	nextID       int64
	adds         int
	queries      []string
	updates      map[int64]map[string]string
}

func newFakeTarget() *fakeTarget {
	return &fakeTarget{
		decks:       map[string]bool{},
		rejectNotes: map[string]bool{},
		rejectDecks: map[string]bool{},
		notes:       map[int64]Note{},
		nextID:      1000,
		updates:     map[int64]map[string]string{},
	}
}

func (f *fakeTarget) Ping(context.Context) error {
	if f.down {
		return fmt.Errorf("dial tcp 127.0.0.1:8765: connection refused: %w", ErrTargetUnavailable)
	}
	return nil
}

func (f *fakeTarget) DeckNames(context.Context) ([]string, error) {
	var out []string
	for d := range f.decks {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeTarget) CreateDeck(_ context.Context, name string) error {
	if f.down {
		return ErrTargetUnavailable
	}
	if f.rejectDecks[name] {
		return errors.New("deck name not allowed")
	}
	f.decks[name] = true
	f.createdDecks = append(f.createdDecks, name)
	return nil
}

func (f *fakeTarget) AddNote(_ context.Context, n Note) (int64, error) {
	if f.down {
		return 0, fmt.Errorf("write: broken pipe: %w", ErrTargetUnavailable)
	}
	if f.rejectNotes[n.Fields["Hanzi"]] {
		return 0, errors.New("cannot create note because it is a duplicate")
	}
	f.nextID++
	f.notes[f.nextID] = n
	f.adds++
	if f.failAfter > 0 && f.adds >= f.failAfter {
		f.down = true
	}
	return f.nextID, nil
}

func (f *fakeTarget) FindNotes(_ context.Context, query string) ([]int64, error) {
	f.queries = append(f.queries, query)
	for id, n := range f.notes {
		if fmt.Sprintf(`"deck:%s" "Hanzi:%s"`, n.Deck, n.Fields["Hanzi"]) == query {
			return []int64{id}, nil
		}
	}
	return nil, nil
}

func (f *fakeTarget) UpdateNoteFields(_ context.Context, id int64, fields map[string]string) error {
	f.updates[id] = fields
	return nil
}

func testProfile() *types.LanguageProfile {
	return &types.LanguageProfile{
		Code:     "cn",
		Language: "Chinese",
		Primary:  "Hanzi",
		Fields: []types.FieldSpec{
			{Name: "Pinyin"},
			{Name: "English"},
		},
		Levels: types.Levels{Type: "HSK", Values: []string{"1", "2", "3"}, Default: "1"},
		Anki: types.AnkiSettings{
			UseLevels:  true,
			DeckPrefix: "Chinese::HSK",
			ModelName:  "Chinese (CLI)",
			TagPrefix:  "HSK",
			LevelField: "Lesson",
			FieldMapping: map[string]string{
				"Hanzi":   "Hanzi",
				"Pinyin":  "Pinyin",
				"English": "English",
			},
		},
		Storage: types.StorageSettings{Format: types.FormatJSON},
	}
}

// seed appends one record per phrase, all tagged with the matching tag.
func seed(t *testing.T, p *types.LanguageProfile, phrases []string, tags []string) vocab.Store {
	t.Helper()
	store, err := vocab.Open(p, t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	schema := vocab.SchemaFor(p)
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	for i, ph := range phrases {
		rec, err := schema.NewRecord(ph, map[string]string{"English": "meaning " + ph}, tags[i], at.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err)
		require.NoError(t, store.Append(context.Background(), rec))
	}
	return store
}

func unsyncedPhrases(t *testing.T, store vocab.Store) []string {
	t.Helper()
	recs, err := store.ListUnsynced(context.Background())
	require.NoError(t, err)
	out := []string{}
	for _, r := range recs {
		out = append(out, r.Phrase)
	}
	return out
}

func TestSyncAll(t *testing.T) {
	p := testProfile()
	store := seed(t, p, []string{"一", "二", "三"}, []string{"1", "2", "1"})
	target := newFakeTarget()
	target.decks["Chinese::HSK1"] = true

	var out bytes.Buffer
	agent := &Agent{Store: store, Target: target, Profile: p, Log: zaptest.NewLogger(t)}
	summary, err := agent.Sync(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.Created)
	assert.Equal(t, 3, summary.Total())
	assert.False(t, summary.HasFailures())
	assert.Equal(t, []string{"Chinese::HSK2"}, target.createdDecks)
	assert.Empty(t, unsyncedPhrases(t, store))

	all, err := store.All(context.Background())
	require.NoError(t, err)
	for _, rec := range all {
		assert.True(t, rec.Synced)
		require.Contains(t, target.notes, rec.NoteID)
		note := target.notes[rec.NoteID]
		assert.Equal(t, rec.Phrase, note.Fields["Hanzi"])
		assert.Equal(t, "HSK "+rec.ContextTag, note.Fields["Lesson"])
		assert.Equal(t, []string{"hsk" + rec.ContextTag}, note.Tags)
		assert.Equal(t, "Chinese (CLI)", note.Model)
	}
	assert.Contains(t, out.String(), "created deck Chinese::HSK2")
}

func TestSyncPartialFailure(t *testing.T) {
	p := testProfile()
	store := seed(t, p, []string{"一", "二", "三", "四", "五"}, []string{"1", "1", "1", "1", "1"})
	target := newFakeTarget()
	target.rejectNotes["三"] = true

	var out bytes.Buffer
	agent := &Agent{Store: store, Target: target, Profile: p}
	summary, err := agent.Sync(context.Background(), &out)
	require.NoError(t, err)

	assert.Equal(t, 4, summary.Created)
	assert.Equal(t, 1, summary.Failed)
	assert.True(t, summary.HasFailures())
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "三", summary.Failures[0].Phrase)
	assert.Contains(t, summary.Failures[0].Err.Error(), "duplicate")
	assert.Equal(t, []string{"三"}, unsyncedPhrases(t, store))
	assert.Contains(t, out.String(), "failed  三")

	// A second run retries only the rejected record.
	target.rejectNotes["三"] = false
	summary, err = agent.Sync(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Created)
	assert.Len(t, target.notes, 5)
}

func TestSyncTargetUnavailable(t *testing.T) {
	p := testProfile()
	store := seed(t, p, []string{"一", "二"}, []string{"1", "2"})
	target := newFakeTarget()
	target.down = true

	agent := &Agent{Store: store, Target: target, Profile: p}
	summary, err := agent.Sync(context.Background(), &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTargetUnavailable)
	assert.Equal(t, Summary{}, summary)
	assert.Equal(t, []string{"一", "二"}, unsyncedPhrases(t, store))
}

func TestSyncTargetLostMidBatch(t *testing.T) {
	p := testProfile()
	store := seed(t, p, []string{"一", "二", "三", "四"}, []string{"1", "1", "1", "1"})
	target := newFakeTarget()
	target.failAfter = 2

	agent := &Agent{Store: store, Target: target, Profile: p}
	summary, err := agent.Sync(context.Background(), &bytes.Buffer{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTargetUnavailable)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, []string{"三", "四"}, unsyncedPhrases(t, store), "confirmed records stay synced")
}

func TestSyncDeckRejected(t *testing.T) {
	p := testProfile()
	store := seed(t, p, []string{"一", "二", "三"}, []string{"1", "2", "2"})
	target := newFakeTarget()
	target.rejectDecks["Chinese::HSK2"] = true

	agent := &Agent{Store: store, Target: target, Profile: p}
	summary, err := agent.Sync(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 2, summary.Failed)
	for _, f := range summary.Failures {
		assert.Equal(t, "Chinese::HSK2", f.Deck)
		assert.Contains(t, f.Err.Error(), "creating deck")
	}
	assert.Equal(t, []string{"二", "三"}, unsyncedPhrases(t, store))
}

func TestSyncNothingToDo(t *testing.T) {
	p := testProfile()
	store := seed(t, p, nil, nil)

	var out bytes.Buffer
	agent := &Agent{Store: store, Target: newFakeTarget(), Profile: p}
	summary, err := agent.Sync(context.Background(), &out)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Total())
	assert.Equal(t, "Nothing to sync.\n", out.String())
}

func TestSyncUpdateExisting(t *testing.T) {
	p := testProfile()
	store := seed(t, p, []string{"一", "二"}, []string{"1", "1"})
	target := newFakeTarget()
	target.decks["Chinese::HSK1"] = true
	target.notes[42] = Note{Deck: "Chinese::HSK1", Fields: map[string]string{"Hanzi": "一", "English": "old"}}

	agent := &Agent{Store: store, Target: target, Profile: p, UpdateExisting: true}
	summary, err := agent.Sync(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Updated)
	assert.Equal(t, 1, summary.Created)
	assert.Equal(t, 2, summary.Synced())
	require.Contains(t, target.updates, int64(42))
	assert.Equal(t, "meaning 一", target.updates[42]["English"])

	all, err := store.All(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(42), all[0].NoteID)
}

func TestGroupByDeck(t *testing.T) {
	p := testProfile()
	recs := []types.VocabRecord{
		{Phrase: "a", ContextTag: "2"},
		{Phrase: "b", ContextTag: "1"},
		{Phrase: "c", ContextTag: "2"},
		{Phrase: "d", ContextTag: ""},
	}

	groups := groupByDeck(p, recs)
	require.Len(t, groups, 2)
	assert.Equal(t, "Chinese::HSK2", groups[0].deck)
	assert.Equal(t, "Chinese::HSK1", groups[1].deck)
	assert.Len(t, groups[0].records, 2)
	assert.Equal(t, "d", groups[1].records[1].Phrase, "empty tag uses the default level")
}

func TestFindQueryEscapes(t *testing.T) {
	assert.Equal(t, `"deck:French::Expressions" "Expression:c'est \"ça\" \*"`,
		findQuery("French::Expressions", "Expression", `c'est "ça" *`))
}

func TestSyncMergesGrammarIntoExample(t *testing.T) {
	p := testProfile()
	p.Fields = append(p.Fields, types.FieldSpec{Name: "ExampleSentence"}, types.FieldSpec{Name: "Grammar"})
	p.Anki.FieldMapping["ExampleSentence"] = "ExampleSentence"
	p.Anki.GrammarField = "Grammar"
	p.Anki.GrammarInto = "ExampleSentence"

	store, err := vocab.Open(p, t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	rec, err := vocab.SchemaFor(p).NewRecord("吃饭", map[string]string{
		"English":         "to eat",
		"ExampleSentence": "我想吃饭。",
		"Grammar":         "verb-object compound",
	}, "1", time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), rec))

	target := newFakeTarget()
	agent := &Agent{Store: store, Target: target, Profile: p}
	_, err = agent.Sync(context.Background(), &bytes.Buffer{})
	require.NoError(t, err)

	require.Len(t, target.notes, 1)
	for _, note := range target.notes {
		assert.Equal(t, "我想吃饭。<br><hr><div class='grammar'>verb-object compound</div>", note.Fields["ExampleSentence"])
		assert.NotContains(t, note.Fields, "Grammar")
	}
}
