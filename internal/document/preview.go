package document

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Raw HTML in the model output is dropped by the default renderer.
var previewMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.Strikethrough, extension.Linkify),
	goldmark.WithRendererOptions(html.WithHardWraps()),
)

// PreviewHTML renders report text, partial or complete, for on-screen
// display.
func PreviewHTML(text string) (string, error) {
	var buf bytes.Buffer
	if err := previewMarkdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render preview: %w", err)
	}
	return buf.String(), nil
}
