// Package instruction renders the instruction sent to the report model from
// the customer details, the advisor's notes and the data payload.
package instruction

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// MaxPayloadChars caps the serialized payload embedded in the instruction.
const MaxPayloadChars = 20000

const (
	notSpecified   = "Ikke angivet"
	noExtraNotes   = "Ingen"
	noTopicComment = "Ingen specifik kommentar."
	noTopicNotes   = "Ingen specifikke kommentarer til enkelte slides"
)

var ErrUnknownTopic = errors.New("unknown topic")

//go:embed default_instruction.toml
var defaultTemplate []byte

// Input is what the advisor filled in for one run.
type Input struct {
	CustomerName string
	CustomerURL  string
	// SelectedTopics flags topics for extra focus. It does not change which
	// sections the report contains.
	SelectedTopics []string
	ExtraNotes     string
	// TopicNotes holds per-topic comments. Nil means no comments were given.
	TopicNotes map[string]string
}

type templateFile struct {
	Name    string `toml:"name" validate:"required"`
	Version int    `toml:"version"`
	Prompt  string `toml:"prompt" validate:"required"`
}

type templateData struct {
	CustomerName   string
	CustomerURL    string
	SelectedTopics string
	ExtraNotes     string
	TopicNotes     string
	Topics         []string
	Payload        string
}

// Composer renders instructions from a loaded template.
type Composer struct {
	name    string
	version int
	tmpl    *template.Template
}

// NewComposer loads the template at path, or the built-in one when path is
// empty.
func NewComposer(path string) (*Composer, error) {
	if path == "" {
		return ParseTemplate(defaultTemplate)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read instruction template %s: %w", path, err)
	}
	c, err := ParseTemplate(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load instruction template %s: %w", path, err)
	}
	return c, nil
}

// ParseTemplate decodes a TOML template file and checks that its prompt
// renders and embeds the payload.
func ParseTemplate(data []byte) (*Composer, error) {
	var f templateFile
	if err := toml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to decode template: %w", err)
	}
	if err := validator.New().Struct(f); err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}

	tmpl, err := template.New(f.Name).
		Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
		Option("missingkey=error").
		Parse(f.Prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse prompt: %w", err)
	}
	c := &Composer{name: f.Name, version: f.Version, tmpl: tmpl}

	const marker = "\x00payload\x00"
	out, err := c.execute(templateData{Topics: Topics, Payload: marker})
	if err != nil {
		return nil, fmt.Errorf("failed to render prompt: %w", err)
	}
	if !strings.Contains(out, marker) {
		return nil, errors.New("prompt does not include the payload")
	}
	return c, nil
}

// Name identifies the template, for logging.
func (c *Composer) Name() string { return fmt.Sprintf("%s@v%d", c.name, c.version) }

// Compose renders the instruction. data is serialized as JSON and cut to
// MaxPayloadChars; values that cannot be marshalled fall back to their
// fmt representation. The only error is an unknown topic in in.
func (c *Composer) Compose(in Input, data any) (string, error) {
	for _, t := range in.SelectedTopics {
		if !IsTopic(t) {
			return "", fmt.Errorf("%w: %q", ErrUnknownTopic, t)
		}
	}
	for t := range in.TopicNotes {
		if !IsTopic(t) {
			return "", fmt.Errorf("%w: %q", ErrUnknownTopic, t)
		}
	}

	out, err := c.execute(templateData{
		CustomerName:   orDefault(in.CustomerName, notSpecified),
		CustomerURL:    orDefault(in.CustomerURL, notSpecified),
		SelectedTopics: topicList(in.SelectedTopics),
		ExtraNotes:     orDefault(in.ExtraNotes, noExtraNotes),
		TopicNotes:     topicNotes(in.TopicNotes),
		Topics:         Topics,
		Payload:        Truncate(SerializePayload(data), MaxPayloadChars),
	})
	if err != nil {
		return "", fmt.Errorf("failed to render instruction: %w", err)
	}
	return out, nil
}

func (c *Composer) execute(d templateData) (string, error) {
	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// SerializePayload renders data as compact JSON without HTML escaping.
func SerializePayload(data any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return fmt.Sprint(data)
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

// Truncate returns at most n characters of s.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func topicList(topics []string) string {
	if topics == nil {
		topics = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(topics)
	return strings.TrimSuffix(buf.String(), "\n")
}

func topicNotes(notes map[string]string) string {
	if len(notes) == 0 {
		return noTopicNotes
	}
	var lines []string
	for _, t := range Topics {
		note, ok := notes[t]
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", t, orDefault(strings.TrimSpace(note), noTopicComment)))
	}
	return strings.Join(lines, "\n")
}
