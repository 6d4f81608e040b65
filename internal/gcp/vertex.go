package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// VertexClient wraps the Vertex AI client used for report generation.
type VertexClient struct {
	baseClient *genai.Client
}

// NewVertexClient creates a client for the given project and region.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}
	return &VertexClient{baseClient: baseClient}, nil
}

// ReportModel returns a configured model handle. Handles are cheap, so one
// is built per run to honour the selected model.
func (c *VertexClient) ReportModel(name string) *genai.GenerativeModel {
	model := c.baseClient.GenerativeModel(name)
	model.SetCandidateCount(1)
	// The reports discuss competitors and brands by name; the default
	// thresholds occasionally cut a section short.
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockOnlyHigh},
	}
	return model
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
