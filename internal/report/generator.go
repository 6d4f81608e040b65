// Package report talks to the language model that writes the analysis. Every
// provider exposes the same streaming contract: a finite channel of text
// fragments that is closed by the producer.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const defaultImageMIME = "image/png"

// Image is an optional picture attached to one topic.
type Image struct {
	Topic    string
	MIMEType string
	Data     []byte
}

// Request is one generation call.
type Request struct {
	Model       string
	Instruction string
	Images      []Image
}

// Fragment is either a piece of text or a terminal error.
type Fragment struct {
	Text string
	Err  error
}

// Generator streams a report for a request. The returned channel is closed
// when the model is done, fails, or ctx is cancelled. A failure is delivered
// as the last fragment.
type Generator interface {
	Stream(ctx context.Context, req Request) <-chan Fragment
	Close() error
}

// ImageCaption is the text part sent ahead of each image.
func ImageCaption(topic string) string {
	return fmt.Sprintf("Billede til slide '%s'. Brug dette billede som ekstra kontekst i din analyse af det tilhørende tema.", topic)
}

// imageMIME returns the declared type, or a sniffed image type, falling back
// to PNG.
func imageMIME(img Image) string {
	if img.MIMEType != "" {
		return img.MIMEType
	}
	if sniffed := http.DetectContentType(img.Data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return defaultImageMIME
}

// usableImages drops images without content.
func usableImages(images []Image) []Image {
	out := make([]Image, 0, len(images))
	for _, img := range images {
		if len(img.Data) == 0 {
			slog.Warn("Skipping empty image.", "topic", img.Topic)
			continue
		}
		out = append(out, img)
	}
	return out
}

// send delivers f unless ctx is done first.
func send(ctx context.Context, ch chan<- Fragment, f Fragment) bool {
	select {
	case ch <- f:
		return true
	case <-ctx.Done():
		return false
	}
}

// Collect drains a stream, calling onDelta for every text fragment in arrival
// order, and returns the full text. Any failure, including cancellation,
// returns an error and no text.
func Collect(ctx context.Context, gen Generator, req Request, onDelta func(string)) (string, error) {
	var sb strings.Builder
	for frag := range gen.Stream(ctx, req) {
		if frag.Err != nil {
			return "", frag.Err
		}
		if frag.Text == "" {
			continue
		}
		sb.WriteString(frag.Text)
		if onDelta != nil {
			onDelta(frag.Text)
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return sb.String(), nil
}
