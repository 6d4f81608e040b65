package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/seoanalyser/internal/gcp"
	"google.golang.org/api/iterator"
)

// Vertex generates reports with Gemini models on Vertex AI.
type Vertex struct {
	client *gcp.VertexClient
}

func NewVertex(ctx context.Context, projectID, region string) (*Vertex, error) {
	client, err := gcp.NewVertexClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	return &Vertex{client: client}, nil
}

func vertexParts(req Request) []genai.Part {
	parts := []genai.Part{genai.Text(req.Instruction)}
	for _, img := range usableImages(req.Images) {
		parts = append(parts,
			genai.Text(ImageCaption(img.Topic)),
			genai.Blob{MIMEType: imageMIME(img), Data: img.Data},
		)
	}
	return parts
}

func (v *Vertex) Stream(ctx context.Context, req Request) <-chan Fragment {
	ch := make(chan Fragment)
	go func() {
		defer close(ch)
		iter := v.client.ReportModel(req.Model).GenerateContentStream(ctx, vertexParts(req)...)
		for {
			resp, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				send(ctx, ch, Fragment{Err: fmt.Errorf("failed to stream from vertex: %w", err)})
				return
			}
			if text := vertexText(resp); text != "" {
				if !send(ctx, ch, Fragment{Text: text}) {
					return
				}
			}
		}
	}()
	return ch
}

// vertexText concatenates the text parts of the first candidate.
func vertexText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String()
}

func (v *Vertex) Close() error { return v.client.Close() }
