// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package enrich turns a raw phrase into a profile-shaped set of fields by
// asking a generative AI backend for a JSON object.
package enrich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/lang-engine/internal/logging"
	"github.com/pdiddy/lang-engine/pkg/types"
)

// Backend abstracts the Generative AI API so tests can supply a mock.
type Backend interface {
	// Complete sends prompt and returns the model's raw text reply.
	Complete(ctx context.Context, prompt string) (string, error)
}

// Request is one phrase to enrich.
type Request struct {
	Phrase string

	// InputLang is the language the phrase was typed in; empty uses the
	// profile default.
	InputLang string

	// Level is the context tag the example should be pitched at.
	Level string

	// Context is a sentence the phrase was seen in, used verbatim as the
	// example.
	Context string

	// Grammar is a note from the student to expand on.
	Grammar string
}

// Result is the enriched phrase. Phrase is the primary field as returned by
// the backend, which may differ from the input (e.g. a translation into the
// target language). Fields holds only the profile's enrichment fields.
type Result struct {
	Phrase string
	Fields map[string]string
}

// Error reports a failed enrichment. Nothing is stored when it occurs.
type Error struct {
	Phrase string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("enriching %q: %v", e.Phrase, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Enricher renders the profile prompt and parses the backend's reply.
type Enricher struct {
	Backend Backend
	Profile *types.LanguageProfile
	Log     *zap.Logger
}

// Enrich asks the backend for the fields of req.Phrase with a single call.
// Every failure is an *Error.
func (e *Enricher) Enrich(ctx context.Context, req Request) (Result, error) {
	log := logging.OrNop(e.Log)
	req.Phrase = strings.TrimSpace(req.Phrase)
	if req.Phrase == "" {
		return Result{}, &Error{Phrase: req.Phrase, Err: errors.New("phrase is empty")}
	}

	prompt, err := renderPrompt(e.Profile, req)
	if err != nil {
		return Result{}, &Error{Phrase: req.Phrase, Err: fmt.Errorf("rendering prompt: %w", err)}
	}
	log.Debug("enrichment prompt", zap.String("phrase", req.Phrase), zap.String("prompt", prompt))

	reply, err := e.complete(ctx, prompt)
	if err != nil {
		return Result{}, &Error{Phrase: req.Phrase, Err: err}
	}

	res, err := parseReply(e.Profile, reply)
	if err != nil {
		log.Warn("unusable enrichment reply", zap.String("phrase", req.Phrase), zap.String("reply", reply), zap.Error(err))
		return Result{}, &Error{Phrase: req.Phrase, Err: err}
	}
	log.Info("phrase enriched", zap.String("input", req.Phrase), zap.String("phrase", res.Phrase))
	return res, nil
}

// complete makes one backend call. Transient HTTP failures (429, 503) are
// retried by the backend's transport; anything else is final.
func (e *Enricher) complete(ctx context.Context, prompt string) (string, error) {
	reply, err := e.Backend.Complete(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", err
	}
	return reply, nil
}

// parseReply decodes the backend reply into a Result shaped by p.
func parseReply(p *types.LanguageProfile, reply string) (Result, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(stripFences(reply)), &obj); err != nil {
		return Result{}, fmt.Errorf("parsing AI response JSON: %w", err)
	}

	byFold := make(map[string]any, len(obj))
	for k, v := range obj {
		byFold[strings.ToLower(k)] = v
	}
	get := func(name string) (string, bool) {
		if v, ok := obj[name]; ok {
			return stringify(v), true
		}
		v, ok := byFold[strings.ToLower(name)]
		return stringify(v), ok
	}

	phrase, _ := get(p.Primary)
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return Result{}, fmt.Errorf("AI response has no %q", p.Primary)
	}

	fields := make(map[string]string, len(p.Fields))
	for _, f := range p.Fields {
		v, _ := get(f.Name)
		v = strings.TrimSpace(v)
		if f.Required && v == "" {
			return Result{}, fmt.Errorf("AI response has no %q", f.Name)
		}
		fields[f.Name] = v
	}
	return Result{Phrase: phrase, Fields: fields}, nil
}

// stripFences removes a surrounding Markdown code fence, which some models
// add despite the JSON response format.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}

// stringify coerces a decoded JSON value to the string stored in a record.
func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringify(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, "; ")
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+stringify(t[k]))
		}
		return strings.Join(parts, "; ")
	default:
		return fmt.Sprint(t)
	}
}
