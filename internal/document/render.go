// Package document turns report text into a downloadable document.
//
// Render is a narrow line classifier for the four shapes the report model is
// asked to produce. It is not a markdown parser: anything else becomes a
// plain paragraph.
package document

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind is the type of a rendered block.
type Kind int

const (
	Paragraph Kind = iota
	Heading
	Bold
	Bullet
)

func (k Kind) String() string {
	switch k {
	case Heading:
		return "heading"
	case Bold:
		return "bold"
	case Bullet:
		return "bullet"
	default:
		return "paragraph"
	}
}

// Block is one line of the rendered document.
type Block struct {
	Kind Kind
	Text string
}

// Document is the ordered block sequence of a report.
type Document struct {
	Blocks []Block
}

// Meta is the title block information.
type Meta struct {
	CustomerName string
	CustomerURL  string
}

// Title returns the document title.
func (m Meta) Title() string {
	name := strings.TrimSpace(m.CustomerName)
	if name == "" {
		return "SEO-analyse"
	}
	return "SEO-analyse – " + name
}

// Render classifies each non-blank line of text.
func Render(text string) Document {
	var doc Document
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		doc.Blocks = append(doc.Blocks, classify(line))
	}
	return doc
}

func classify(line string) Block {
	if rest, ok := strings.CutPrefix(line, "### "); ok {
		return Block{Kind: Heading, Text: strings.TrimSpace(rest)}
	}
	stripped := strings.TrimSpace(line)
	if strings.HasPrefix(stripped, "**") && strings.HasSuffix(stripped, "**") && utf8.RuneCountInString(stripped) > 4 {
		return Block{Kind: Bold, Text: strings.TrimSpace(stripped[2 : len(stripped)-2])}
	}
	if rest, ok := strings.CutPrefix(strings.TrimLeftFunc(line, unicode.IsSpace), "- "); ok {
		return Block{Kind: Bullet, Text: strings.TrimSpace(rest)}
	}
	return Block{Kind: Paragraph, Text: stripped}
}

// Markdown writes the blocks back in the form Render reads.
func (d Document) Markdown() string {
	lines := make([]string, len(d.Blocks))
	for i, b := range d.Blocks {
		switch b.Kind {
		case Heading:
			lines[i] = "### " + b.Text
		case Bold:
			// "****" is too short to read back as bold.
			text := b.Text
			if text == "" {
				text = " "
			}
			lines[i] = "**" + text + "**"
		case Bullet:
			lines[i] = "- " + b.Text
		default:
			lines[i] = b.Text
		}
	}
	return strings.Join(lines, "\n")
}
