// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package vocab

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// --- test helpers ---

func testProfile(format types.StoreFormat) *types.LanguageProfile {
	return &types.LanguageProfile{
		Code:           "cn",
		Language:       "Chinese",
		Primary:        "Hanzi",
		PrimaryAliases: []string{"simplified"},
		Fields: []types.FieldSpec{
			{Name: "Pinyin", Aliases: []string{"pinyin"}},
			{Name: "English", Aliases: []string{"definitions"}},
			{Name: "ExampleSentence", Aliases: []string{"example"}},
		},
		Levels: types.Levels{Type: "HSK", Values: []string{"1", "2", "3"}, Default: "1"},
		Anki:   types.AnkiSettings{UseLevels: true, DeckPrefix: "Chinese::HSK"},
		Storage: types.StorageSettings{Format: format},
	}
}

var baseTime = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

// clock returns a now function advancing one minute per call.
func clock() func() time.Time {
	t := baseTime
	return func() time.Time {
		t = t.Add(time.Minute)
		return t
	}
}

func newRecord(t *testing.T, schema Schema, phrase, tag string, at time.Time) types.VocabRecord {
	t.Helper()
	rec, err := schema.NewRecord(phrase, map[string]string{
		"Pinyin":  "pin " + phrase,
		"English": "meaning of " + phrase,
	}, tag, at)
	require.NoError(t, err)
	return rec
}

func openStore(t *testing.T, format types.StoreFormat) Store {
	t.Helper()
	s, err := Open(testProfile(format), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func assertSameRecord(t *testing.T, want, got types.VocabRecord) {
	t.Helper()
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "CreatedAt = %v, want %v", got.CreatedAt, want.CreatedAt)
	want.CreatedAt, got.CreatedAt = time.Time{}, time.Time{}
	assert.Equal(t, want, got)
}

func phrases(recs []types.VocabRecord) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.Phrase
	}
	return out
}

var allFormats = []types.StoreFormat{types.FormatCSV, types.FormatJSON, types.FormatSQLite}

// --- contract tests, run against every backend ---

func TestStoreEmpty(t *testing.T) {
	for _, format := range allFormats {
		t.Run(string(format), func(t *testing.T) {
			s := openStore(t, format)
			ctx := context.Background()

			recent, err := s.ListRecent(ctx, 5)
			require.NoError(t, err)
			assert.Empty(t, recent)

			pending, err := s.ListUnsynced(ctx)
			require.NoError(t, err)
			assert.Empty(t, pending)

			all, err := s.All(ctx)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}

func TestStoreListRecent(t *testing.T) {
	tests := []struct {
		name  string
		count int
		n     int
		want  []string
	}{
		{"fewer than n", 2, 5, []string{"w1", "w0"}},
		{"exactly n", 3, 3, []string{"w2", "w1", "w0"}},
		{"more than n", 6, 3, []string{"w5", "w4", "w3"}},
		{"zero n", 3, 0, []string{}},
	}

	for _, format := range allFormats {
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s/%s", format, tt.name), func(t *testing.T) {
				s := openStore(t, format)
				schema := SchemaFor(testProfile(format))
				now := clock()
				ctx := context.Background()

				for i := 0; i < tt.count; i++ {
					require.NoError(t, s.Append(ctx, newRecord(t, schema, fmt.Sprintf("w%d", i), "1", now())))
				}

				got, err := s.ListRecent(ctx, tt.n)
				require.NoError(t, err)
				assert.Equal(t, tt.want, phrases(got))
			})
		}
	}
}

func TestStoreListRecentOrdersByCreatedAt(t *testing.T) {
	for _, format := range allFormats {
		t.Run(string(format), func(t *testing.T) {
			s := openStore(t, format)
			schema := SchemaFor(testProfile(format))
			ctx := context.Background()

			// Appended out of chronological order; the tie between b and c
			// goes to the later append.
			require.NoError(t, s.Append(ctx, newRecord(t, schema, "a", "1", baseTime.Add(2*time.Hour))))
			require.NoError(t, s.Append(ctx, newRecord(t, schema, "b", "1", baseTime)))
			require.NoError(t, s.Append(ctx, newRecord(t, schema, "c", "1", baseTime)))

			got, err := s.ListRecent(ctx, 10)
			require.NoError(t, err)
			assert.Equal(t, []string{"a", "c", "b"}, phrases(got))
		})
	}
}

func TestStoreRoundTrip(t *testing.T) {
	for _, format := range allFormats {
		t.Run(string(format), func(t *testing.T) {
			s := openStore(t, format)
			schema := SchemaFor(testProfile(format))
			ctx := context.Background()

			rec, err := schema.NewRecord("你好", map[string]string{
				"Pinyin":          "nǐ hǎo",
				"English":         "hello, \"hi\"",
				"ExampleSentence": "你好，你叫什么名字？\nline two",
			}, "2", baseTime.Add(123456789*time.Nanosecond))
			require.NoError(t, err)
			require.NoError(t, s.Append(ctx, rec))

			got, err := s.ListRecent(ctx, 1)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assertSameRecord(t, rec, got[0])
		})
	}
}

func TestStoreMarkSyncedIdempotent(t *testing.T) {
	for _, format := range allFormats {
		t.Run(string(format), func(t *testing.T) {
			s := openStore(t, format)
			schema := SchemaFor(testProfile(format))
			now := clock()
			ctx := context.Background()

			first := newRecord(t, schema, "一", "1", now())
			second := newRecord(t, schema, "二", "1", now())
			third := newRecord(t, schema, "三", "1", now())
			require.NoError(t, s.AppendAll(ctx, []types.VocabRecord{first, second, third}))

			require.NoError(t, s.MarkSynced(ctx, second.ID, 1001))
			require.NoError(t, s.MarkSynced(ctx, second.ID, 2002), "second mark must be a no-op")

			pending, err := s.ListUnsynced(ctx)
			require.NoError(t, err)
			assert.Equal(t, []string{"一", "三"}, phrases(pending))

			all, err := s.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 3)
			assert.True(t, all[1].Synced)
			assert.Equal(t, int64(1001), all[1].NoteID, "note id of the first confirmation is kept")
			assert.Equal(t, "二", all[1].Phrase)
		})
	}
}

func TestStoreMarkSyncedUnknownID(t *testing.T) {
	for _, format := range allFormats {
		t.Run(string(format), func(t *testing.T) {
			s := openStore(t, format)
			schema := SchemaFor(testProfile(format))
			ctx := context.Background()
			require.NoError(t, s.Append(ctx, newRecord(t, schema, "一", "1", baseTime)))

			err := s.MarkSynced(ctx, "no-such-id", 1)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotFound)

			var se *StorageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, NotFound, se.Kind)
		})
	}
}

func TestStoreAllowsDuplicatePhrases(t *testing.T) {
	for _, format := range allFormats {
		t.Run(string(format), func(t *testing.T) {
			s := openStore(t, format)
			schema := SchemaFor(testProfile(format))
			now := clock()
			ctx := context.Background()

			a := newRecord(t, schema, "好", "1", now())
			b := newRecord(t, schema, "好", "2", now())
			require.NoError(t, s.Append(ctx, a))
			require.NoError(t, s.Append(ctx, b))

			all, err := s.All(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.NotEqual(t, all[0].ID, all[1].ID)
			assert.Equal(t, "1", all[0].ContextTag)
			assert.Equal(t, "2", all[1].ContextTag)
		})
	}
}

func TestStoreCancelledContext(t *testing.T) {
	s := openStore(t, types.FormatJSON)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Append(ctx, newRecord(t, SchemaFor(testProfile(types.FormatJSON)), "一", "1", baseTime))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenUnsupportedFormat(t *testing.T) {
	_, err := Open(testProfile("xml"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported store format")
}

func TestOpenUsesConfiguredFile(t *testing.T) {
	dir := t.TempDir()
	p := testProfile(types.FormatCSV)
	p.Storage.File = "chinese_vocab.csv"

	s, err := Open(p, dir)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), newRecord(t, SchemaFor(p), "一", "1", baseTime)))

	assert.FileExists(t, filepath.Join(dir, "chinese_vocab.csv"))
}

func TestStoreRejectsInvalidRecords(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(rec *types.VocabRecord, stored types.VocabRecord)
		wantField string
	}{
		{"empty phrase", func(r *types.VocabRecord, _ types.VocabRecord) { r.Phrase = "  " }, "Hanzi"},
		{"empty id", func(r *types.VocabRecord, _ types.VocabRecord) { r.ID = "" }, "id"},
		{"id already stored", func(r *types.VocabRecord, stored types.VocabRecord) { r.ID = stored.ID }, "id"},
		{"field outside schema", func(r *types.VocabRecord, _ types.VocabRecord) { r.Enrichment["Bogus"] = "v" }, "Bogus"},
	}

	for _, format := range allFormats {
		for _, tt := range tests {
			t.Run(fmt.Sprintf("%s/%s", format, tt.name), func(t *testing.T) {
				s := openStore(t, format)
				schema := SchemaFor(testProfile(format))
				ctx := context.Background()

				stored := newRecord(t, schema, "一", "1", baseTime)
				require.NoError(t, s.Append(ctx, stored))

				bad := newRecord(t, schema, "二", "1", baseTime.Add(time.Minute))
				tt.mutate(&bad, stored)

				err := s.Append(ctx, bad)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrSchemaMismatch)
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, tt.wantField, verr.Field)

				all, err := s.All(ctx)
				require.NoError(t, err, "store stays readable")
				assert.Equal(t, []string{"一"}, phrases(all))
			})
		}
	}
}

func TestStoreRejectsDuplicateIDsInBatch(t *testing.T) {
	for _, format := range allFormats {
		t.Run(string(format), func(t *testing.T) {
			s := openStore(t, format)
			schema := SchemaFor(testProfile(format))
			ctx := context.Background()

			a := newRecord(t, schema, "一", "1", baseTime)
			b := newRecord(t, schema, "二", "1", baseTime)
			b.ID = a.ID

			err := s.AppendAll(ctx, []types.VocabRecord{a, b})
			assert.ErrorIs(t, err, ErrSchemaMismatch)

			all, err := s.All(ctx)
			require.NoError(t, err)
			assert.Empty(t, all, "nothing from a rejected batch is written")
		})
	}
}
