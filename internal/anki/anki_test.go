// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package anki

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/pdiddy/lang-engine/internal/syncer"
	"github.com/pdiddy/lang-engine/pkg/types"
)

type call struct {
	Action  string          `json:"action"`
	Version int             `json:"version"`
	Params  json.RawMessage `json:"params"`
}

// fakeAnki answers AnkiConnect actions from a table of canned replies.
type fakeAnki struct {
	replies map[string]string
	calls   []call
}

func (f *fakeAnki) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var c call
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.calls = append(f.calls, c)

	reply, ok := f.replies[c.Action]
	if !ok {
		reply = `{"result": null, "error": "unsupported action"}`
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(reply))
}

func (f *fakeAnki) actions() []string {
	out := make([]string, len(f.calls))
	for i, c := range f.calls {
		out[i] = c.Action
	}
	return out
}

func newTestClient(t *testing.T, f *fakeAnki) *Client {
	t.Helper()
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)
	return New(ts.URL, time.Second, zaptest.NewLogger(t))
}

func TestClientBasicActions(t *testing.T) {
	f := &fakeAnki{replies: map[string]string{
		"version":          `{"result": 6, "error": null}`,
		"deckNames":        `{"result": ["Default", "Chinese::HSK1"], "error": null}`,
		"createDeck":       `{"result": 1651445861967, "error": null}`,
		"findNotes":        `{"result": [1483959289817, 1483959291695], "error": null}`,
		"updateNoteFields": `{"result": null, "error": null}`,
	}}
	c := newTestClient(t, f)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))

	decks, err := c.DeckNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Default", "Chinese::HSK1"}, decks)

	require.NoError(t, c.CreateDeck(ctx, "Chinese::HSK2"))

	ids, err := c.FindNotes(ctx, `"deck:Chinese::HSK1" "Hanzi:你好"`)
	require.NoError(t, err)
	assert.Equal(t, []int64{1483959289817, 1483959291695}, ids)

	require.NoError(t, c.UpdateNoteFields(ctx, 1483959289817, map[string]string{"English": "hi"}))

	assert.Equal(t, []string{"version", "deckNames", "createDeck", "findNotes", "updateNoteFields"}, f.actions())
	for _, cl := range f.calls {
		assert.Equal(t, 6, cl.Version)
	}
	assert.JSONEq(t, `{"deck": "Chinese::HSK2"}`, string(f.calls[2].Params))
	assert.JSONEq(t, `{"note": {"id": 1483959289817, "fields": {"English": "hi"}}}`, string(f.calls[4].Params))
}

func TestClientAddNote(t *testing.T) {
	f := &fakeAnki{replies: map[string]string{
		"addNote": `{"result": 1496198395707, "error": null}`,
	}}
	c := newTestClient(t, f)

	id, err := c.AddNote(context.Background(), syncer.Note{
		Deck:   "Chinese::HSK3",
		Model:  "Chinese (CLI)",
		Fields: map[string]string{"Hanzi": "猫", "Lesson": "HSK 3"},
		Tags:   []string{"hsk3"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1496198395707), id)
	assert.JSONEq(t, `{"note": {
		"deckName": "Chinese::HSK3",
		"modelName": "Chinese (CLI)",
		"fields": {"Hanzi": "猫", "Lesson": "HSK 3"},
		"tags": ["hsk3"]
	}}`, string(f.calls[0].Params))
}

func TestClientAPIError(t *testing.T) {
	f := &fakeAnki{replies: map[string]string{
		"addNote": `{"result": null, "error": "cannot create note because it is a duplicate"}`,
	}}
	c := newTestClient(t, f)

	_, err := c.AddNote(context.Background(), syncer.Note{Deck: "d", Model: "m"})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "addNote", apiErr.Action)
	assert.Contains(t, apiErr.Message, "duplicate")
	assert.NotErrorIs(t, err, syncer.ErrTargetUnavailable)
	assert.JSONEq(t, `{"note": {"deckName": "d", "modelName": "m", "fields": null, "tags": []}}`, string(f.calls[0].Params))
}

func TestClientUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, time.Second, nil)
	err := c.Ping(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, syncer.ErrTargetUnavailable)
	assert.Contains(t, err.Error(), "AnkiConnect installed")
}

func TestClientHTTPStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(ts.Close)

	_, err := New(ts.URL, time.Second, nil).DeckNames(context.Background())
	assert.ErrorIs(t, err, syncer.ErrTargetUnavailable)
}

func TestClientCancelledContext(t *testing.T) {
	c := newTestClient(t, &fakeAnki{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.Ping(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEnsureModel(t *testing.T) {
	settings := types.AnkiSettings{
		ModelName:  "Chinese (CLI)",
		FieldOrder: []string{"Hanzi", "Pinyin", "English"},
		Templates:  []types.CardTemplate{{Name: "Recognition", Front: "{{English}}", Back: "{{Hanzi}}"}},
		CSS:        ".card {}",
	}

	t.Run("creates missing model", func(t *testing.T) {
		f := &fakeAnki{replies: map[string]string{
			"modelNames":  `{"result": ["Basic"], "error": null}`,
			"createModel": `{"result": {"id": 1}, "error": null}`,
		}}
		created, err := newTestClient(t, f).EnsureModel(context.Background(), settings)
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, []string{"modelNames", "createModel"}, f.actions())
		assert.JSONEq(t, `{
			"modelName": "Chinese (CLI)",
			"inOrderFields": ["Hanzi", "Pinyin", "English"],
			"css": ".card {}",
			"cardTemplates": [{"Name": "Recognition", "Front": "{{English}}", "Back": "{{Hanzi}}"}]
		}`, string(f.calls[1].Params))
	})

	t.Run("updates existing model", func(t *testing.T) {
		f := &fakeAnki{replies: map[string]string{
			"modelNames":           `{"result": ["Basic", "Chinese (CLI)"], "error": null}`,
			"updateModelTemplates": `{"result": null, "error": null}`,
			"updateModelStyling":   `{"result": null, "error": null}`,
		}}
		created, err := newTestClient(t, f).EnsureModel(context.Background(), settings)
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, []string{"modelNames", "updateModelTemplates", "updateModelStyling"}, f.actions())
		assert.JSONEq(t, `{"model": {"name": "Chinese (CLI)", "templates": {"Recognition": {"Front": "{{English}}", "Back": "{{Hanzi}}"}}}}`,
			string(f.calls[1].Params))
	})

	t.Run("default template", func(t *testing.T) {
		f := &fakeAnki{replies: map[string]string{
			"modelNames":  `{"result": [], "error": null}`,
			"createModel": `{"result": {}, "error": null}`,
		}}
		s := settings
		s.Templates = nil
		_, err := newTestClient(t, f).EnsureModel(context.Background(), s)
		require.NoError(t, err)

		var params struct {
			CardTemplates []types.CardTemplate `json:"cardTemplates"`
		}
		require.NoError(t, json.Unmarshal(f.calls[1].Params, &params))
		require.Len(t, params.CardTemplates, 1)
		assert.Equal(t, "{{Pinyin}}", params.CardTemplates[0].Front)
		assert.Contains(t, params.CardTemplates[0].Back, "{{Hanzi}}")
		assert.NotContains(t, params.CardTemplates[0].Back, "{{Pinyin}}")
	})

	t.Run("missing settings", func(t *testing.T) {
		_, err := New(DefaultURL, 0, nil).EnsureModel(context.Background(), types.AnkiSettings{ModelName: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "field_order")
	})
}
