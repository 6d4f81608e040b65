package report

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultMaxTokens = 8192

// Anthropic generates reports with Claude models.
type Anthropic struct {
	client    anthropic.Client
	maxTokens int64
}

func NewAnthropic(apiKey string, maxTokens int) (*Anthropic, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Anthropic{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		maxTokens: int64(maxTokens),
	}, nil
}

func anthropicBlocks(req Request) []anthropic.ContentBlockParamUnion {
	blocks := []anthropic.ContentBlockParamUnion{anthropic.NewTextBlock(req.Instruction)}
	for _, img := range usableImages(req.Images) {
		blocks = append(blocks,
			anthropic.NewTextBlock(ImageCaption(img.Topic)),
			anthropic.NewImageBlockBase64(imageMIME(img), base64.StdEncoding.EncodeToString(img.Data)),
		)
	}
	return blocks
}

func (a *Anthropic) Stream(ctx context.Context, req Request) <-chan Fragment {
	ch := make(chan Fragment)
	go func() {
		defer close(ch)
		stream := a.client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
			Model:     anthropic.Model(req.Model),
			MaxTokens: a.maxTokens,
			Messages:  []anthropic.MessageParam{anthropic.NewUserMessage(anthropicBlocks(req)...)},
		})
		defer stream.Close()

		for stream.Next() {
			ev, ok := stream.Current().AsAny().(anthropic.ContentBlockDeltaEvent)
			if !ok {
				continue
			}
			delta, ok := ev.Delta.AsAny().(anthropic.TextDelta)
			if !ok || delta.Text == "" {
				continue
			}
			if !send(ctx, ch, Fragment{Text: delta.Text}) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(ctx, ch, Fragment{Err: fmt.Errorf("failed to stream from anthropic: %w", err)})
		}
	}()
	return ch
}

func (a *Anthropic) Close() error { return nil }
