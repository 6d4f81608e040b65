package report

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
)

// OpenAI generates reports through the Responses API.
type OpenAI struct {
	client    openai.Client
	maxTokens int64
}

func NewOpenAI(apiKey string, maxTokens int) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key is required")
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &OpenAI{
		client:    openai.NewClient(option.WithAPIKey(apiKey)),
		maxTokens: int64(maxTokens),
	}, nil
}

func openaiContent(req Request) responses.ResponseInputMessageContentListParam {
	content := responses.ResponseInputMessageContentListParam{
		{OfInputText: &responses.ResponseInputTextParam{Text: req.Instruction}},
	}
	for _, img := range usableImages(req.Images) {
		dataURL := "data:" + imageMIME(img) + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
		content = append(content,
			responses.ResponseInputContentUnionParam{OfInputText: &responses.ResponseInputTextParam{Text: ImageCaption(img.Topic)}},
			responses.ResponseInputContentUnionParam{OfInputImage: &responses.ResponseInputImageParam{
				ImageURL: openai.String(dataURL),
				Detail:   responses.ResponseInputImageDetailAuto,
			}},
		)
	}
	return content
}

func (o *OpenAI) Stream(ctx context.Context, req Request) <-chan Fragment {
	ch := make(chan Fragment)
	go func() {
		defer close(ch)
		stream := o.client.Responses.NewStreaming(ctx, responses.ResponseNewParams{
			Model: shared.ResponsesModel(req.Model),
			Input: responses.ResponseNewParamsInputUnion{
				OfInputItemList: responses.ResponseInputParam{
					responses.ResponseInputItemParamOfMessage(openaiContent(req), responses.EasyInputMessageRoleUser),
				},
			},
			MaxOutputTokens: openai.Int(o.maxTokens),
		})
		defer stream.Close()

		for stream.Next() {
			switch ev := stream.Current().AsAny().(type) {
			case responses.ResponseTextDeltaEvent:
				if ev.Delta == "" {
					continue
				}
				if !send(ctx, ch, Fragment{Text: ev.Delta}) {
					return
				}
			case responses.ResponseErrorEvent:
				send(ctx, ch, Fragment{Err: fmt.Errorf("openai stream error %s: %s", ev.Code, ev.Message)})
				return
			}
		}
		if err := stream.Err(); err != nil {
			send(ctx, ch, Fragment{Err: fmt.Errorf("failed to stream from openai: %w", err)})
		}
	}()
	return ch
}

func (o *OpenAI) Close() error { return nil }
