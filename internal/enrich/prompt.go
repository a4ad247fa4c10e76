// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package enrich

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/lang-engine/pkg/types"
)

// enrichPromptTmpl asks the model for one JSON object keyed by the
// profile's primary field and enrichment fields.
var enrichPromptTmpl = template.Must(template.New("enrich").Parse(`{{.Preamble}} A student{{if .Level}} at {{.LevelType}} level {{.Level}}{{end}} has given you a word or phrase in {{.InputLanguage}}.
The phrase is: "{{.Phrase}}"
{{- if .Context}}
The student met it in this sentence: "{{.Context}}"
{{- end}}

Your task is to return a JSON object with the following fields for the corresponding {{.Language}} word or phrase:
- "{{.Primary}}": The word or phrase in {{.Language}}.
{{- range .Fields}}
- "{{.Name}}": {{if .Description}}{{.Description}}{{else}}The {{.Name}}.{{end}}
{{- end}}
{{- if .Context}}

Use the student's sentence as the example sentence EXACTLY as written. Do not fix grammar, formalize contractions, or replace slang. Copy it verbatim.
{{- end}}
{{- if .Grammar}}

The student added this grammar note: "{{.Grammar}}". Expand on it in the grammar field.
{{- end}}

Every value must be a string. Return ONLY the valid JSON object.
`))

type promptData struct {
	Preamble      string
	Language      string
	InputLanguage string
	LevelType     string
	Level         string
	Phrase        string
	Context       string
	Grammar       string
	Primary       string
	Fields        []types.FieldSpec
}

var languageNames = map[string]string{
	"zh":     "Chinese",
	"cn":     "Chinese",
	"en":     "English",
	"fr":     "French",
	"es":     "Spanish",
	"de":     "German",
	"pinyin": "Pinyin",
}

// languageName expands a short input language code. Unknown codes are
// returned unchanged.
func languageName(code string) string {
	if name, ok := languageNames[strings.ToLower(code)]; ok {
		return name
	}
	return code
}

// renderPrompt executes the enrichment prompt template for one request.
func renderPrompt(p *types.LanguageProfile, req Request) (string, error) {
	preamble := p.PromptPreamble
	if preamble == "" {
		preamble = "You are a " + p.Language + " language teacher."
	}
	input := req.InputLang
	if input == "" {
		input = p.DefaultInputLang
	}
	if input == "" {
		input = p.Language
	}

	data := promptData{
		Preamble:      preamble,
		Language:      p.Language,
		InputLanguage: languageName(input),
		LevelType:     p.Levels.Type,
		Level:         req.Level,
		Phrase:        req.Phrase,
		Context:       req.Context,
		Grammar:       req.Grammar,
		Primary:       p.Primary,
		Fields:        p.Fields,
	}

	var buf bytes.Buffer
	if err := enrichPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
