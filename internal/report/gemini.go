package report

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Gemini generates reports through the Gemini API with an API key.
type Gemini struct {
	client *genai.Client
}

func NewGemini(ctx context.Context, apiKey string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &Gemini{client: client}, nil
}

func geminiContents(req Request) []*genai.Content {
	parts := []*genai.Part{genai.NewPartFromText(req.Instruction)}
	for _, img := range usableImages(req.Images) {
		parts = append(parts,
			genai.NewPartFromText(ImageCaption(img.Topic)),
			genai.NewPartFromBytes(img.Data, imageMIME(img)),
		)
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

func (g *Gemini) Stream(ctx context.Context, req Request) <-chan Fragment {
	ch := make(chan Fragment)
	go func() {
		defer close(ch)
		for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, geminiContents(req), nil) {
			if err != nil {
				send(ctx, ch, Fragment{Err: fmt.Errorf("failed to stream from gemini: %w", err)})
				return
			}
			if text := resp.Text(); text != "" {
				if !send(ctx, ch, Fragment{Text: text}) {
					return
				}
			}
		}
	}()
	return ch
}

// Close is a no-op; the Gemini client holds no resources.
func (g *Gemini) Close() error { return nil }
