// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package anki is a client for the AnkiConnect add-on (JSON-RPC, API
// version 6). It implements syncer.Target.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/lang-engine/internal/logging"
	"github.com/pdiddy/lang-engine/internal/syncer"
	"github.com/pdiddy/lang-engine/pkg/types"
)

// DefaultURL is where AnkiConnect listens by default.
const DefaultURL = "http://localhost:8765"

const apiVersion = 6

// APIError is a request AnkiConnect answered with a non-null error, such as
// a duplicate note or a missing model.
type APIError struct {
	Action  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("AnkiConnect %s: %s", e.Action, e.Message)
}

// Client talks to one AnkiConnect endpoint.
type Client struct {
	URL    string
	Client *http.Client
	Log    *zap.Logger
}

// New returns a client for url with the given request timeout.
func New(url string, timeout time.Duration, log *zap.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{URL: url, Client: &http.Client{Timeout: timeout}, Log: log}
}

var _ syncer.Target = (*Client)(nil)

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

// invoke calls action and decodes its result into out (which may be nil).
// Transport failures wrap syncer.ErrTargetUnavailable; an error reply is an
// *APIError.
func (c *Client) invoke(ctx context.Context, action string, params, out any) error {
	log := logging.OrNop(c.Log)

	body, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", action, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		log.Error("AnkiConnect request failed", zap.String("action", action), zap.Error(err))
		return fmt.Errorf("%w: is Anki running with AnkiConnect installed? %v", syncer.ErrTargetUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: reading %s response: %v", syncer.ErrTargetUnavailable, action, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: AnkiConnect returned %d", syncer.ErrTargetUnavailable, resp.StatusCode)
	}

	var r response
	if err := json.Unmarshal(data, &r); err != nil {
		return fmt.Errorf("decoding %s response: %w", action, err)
	}
	if r.Error != nil {
		log.Warn("AnkiConnect rejected request", zap.String("action", action), zap.String("error", *r.Error))
		return &APIError{Action: action, Message: *r.Error}
	}
	if out == nil || len(r.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("decoding %s result: %w", action, err)
	}
	return nil
}

// Ping checks that AnkiConnect answers.
func (c *Client) Ping(ctx context.Context) error {
	var v int
	return c.invoke(ctx, "version", nil, &v)
}

// DeckNames lists every deck.
func (c *Client) DeckNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.invoke(ctx, "deckNames", nil, &names)
	return names, err
}

// CreateDeck creates name. Creating an existing deck is a no-op.
func (c *Client) CreateDeck(ctx context.Context, name string) error {
	return c.invoke(ctx, "createDeck", map[string]any{"deck": name}, nil)
}

// ModelNames lists every note type.
func (c *Client) ModelNames(ctx context.Context) ([]string, error) {
	var names []string
	err := c.invoke(ctx, "modelNames", nil, &names)
	return names, err
}

type noteParams struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags"`
}

// AddNote adds a note and returns its id.
func (c *Client) AddNote(ctx context.Context, n syncer.Note) (int64, error) {
	tags := n.Tags
	if tags == nil {
		tags = []string{}
	}
	var id *int64
	err := c.invoke(ctx, "addNote", map[string]any{
		"note": noteParams{DeckName: n.Deck, ModelName: n.Model, Fields: n.Fields, Tags: tags},
	}, &id)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, &APIError{Action: "addNote", Message: "note was not created"}
	}
	return *id, nil
}

// FindNotes returns the ids of notes matching an Anki search query.
func (c *Client) FindNotes(ctx context.Context, query string) ([]int64, error) {
	var ids []int64
	err := c.invoke(ctx, "findNotes", map[string]any{"query": query}, &ids)
	return ids, err
}

// UpdateNoteFields replaces the given fields of note id.
func (c *Client) UpdateNoteFields(ctx context.Context, id int64, fields map[string]string) error {
	return c.invoke(ctx, "updateNoteFields", map[string]any{
		"note": map[string]any{"id": id, "fields": fields},
	}, nil)
}

// EnsureModel creates the note type described by the profile when it does
// not exist, or refreshes its templates and styling when it does. It
// reports whether the model was created.
func (c *Client) EnsureModel(ctx context.Context, s types.AnkiSettings) (bool, error) {
	if s.ModelName == "" {
		return false, errors.New("profile has no anki model_name")
	}
	if len(s.FieldOrder) == 0 {
		return false, fmt.Errorf("model %s: profile has no anki field_order", s.ModelName)
	}

	names, err := c.ModelNames(ctx)
	if err != nil {
		return false, fmt.Errorf("listing models: %w", err)
	}
	for _, n := range names {
		if n == s.ModelName {
			return false, c.updateModel(ctx, s)
		}
	}

	templates := s.Templates
	if len(templates) == 0 {
		templates = []types.CardTemplate{defaultTemplate(s.FieldOrder)}
	}
	err = c.invoke(ctx, "createModel", map[string]any{
		"modelName":     s.ModelName,
		"inOrderFields": s.FieldOrder,
		"css":           s.CSS,
		"cardTemplates": templates,
	}, nil)
	if err != nil {
		return false, fmt.Errorf("creating model %s: %w", s.ModelName, err)
	}
	return true, nil
}

func (c *Client) updateModel(ctx context.Context, s types.AnkiSettings) error {
	if len(s.Templates) > 0 {
		byName := make(map[string]map[string]string, len(s.Templates))
		for _, t := range s.Templates {
			byName[t.Name] = map[string]string{"Front": t.Front, "Back": t.Back}
		}
		err := c.invoke(ctx, "updateModelTemplates", map[string]any{
			"model": map[string]any{"name": s.ModelName, "templates": byName},
		}, nil)
		if err != nil {
			return fmt.Errorf("updating templates of %s: %w", s.ModelName, err)
		}
	}
	if s.CSS != "" {
		err := c.invoke(ctx, "updateModelStyling", map[string]any{
			"model": map[string]any{"name": s.ModelName, "css": s.CSS},
		}, nil)
		if err != nil {
			return fmt.Errorf("updating styling of %s: %w", s.ModelName, err)
		}
	}
	return nil
}

// defaultTemplate shows the second field on the front and the rest on the back.
func defaultTemplate(fields []string) types.CardTemplate {
	front := "{{" + fields[0] + "}}"
	if len(fields) > 1 {
		front = "{{" + fields[1] + "}}"
	}
	back := "{{FrontSide}}\n<hr id=answer>\n"
	for i, f := range fields {
		if i == 1 {
			continue
		}
		back += "<div>{{" + f + "}}</div>\n"
	}
	return types.CardTemplate{Name: "Card 1", Front: front, Back: back}
}
