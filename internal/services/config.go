package services

import (
	"fmt"
	"strconv"

	"github.com/Lllllllleong/seoanalyser/internal/gcp"
	"github.com/Lllllllleong/seoanalyser/internal/report"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// AnalyserConfig holds the configuration of the analysis pipeline.
type AnalyserConfig struct {
	Provider          report.Provider `validate:"oneof=vertex gemini anthropic openai mock"`
	ProjectID         string          `validate:"required_if=Provider vertex"`
	VertexAIRegion    string          `validate:"required_if=Provider vertex"`
	GeminiAPIKey      string          `validate:"required_if=Provider gemini"`
	AnthropicAPIKey   string          `validate:"required_if=Provider anthropic"`
	OpenAIAPIKey      string          `validate:"required_if=Provider openai"`
	Models            report.Models
	MaxOutputTokens   int
	InstructionPath   string
	IngestConcurrency int `validate:"gte=1,lte=64"`
}

// BatchConfig adds the storage targets used by the event-triggered run.
type BatchConfig struct {
	Analyser       AnalyserConfig
	ProjectID      string `validate:"required"`
	ReportBucket   string `validate:"required"`
	CollectionName string `validate:"required"`
}

func envInt(key string, fallback int) (int, error) {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

// LoadAnalyserConfig reads and validates the pipeline configuration from
// the environment.
func LoadAnalyserConfig() (*AnalyserConfig, error) {
	provider := report.Provider(gcp.GetEnv("REPORT_PROVIDER", string(report.ProviderVertex)))
	models := report.DefaultModels(provider)
	models.Thorough = gcp.GetEnv("REPORT_MODEL_THOROUGH", models.Thorough)
	models.Fast = gcp.GetEnv("REPORT_MODEL_FAST", models.Fast)

	concurrency, err := envInt("INGEST_CONCURRENCY", 4)
	if err != nil {
		return nil, err
	}
	maxTokens, err := envInt("REPORT_MAX_OUTPUT_TOKENS", 0)
	if err != nil {
		return nil, err
	}

	cfg := &AnalyserConfig{
		Provider:          provider,
		ProjectID:         gcp.GetEnv("PROJECT_ID", ""),
		VertexAIRegion:    gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		GeminiAPIKey:      gcp.GetEnv("GEMINI_API_KEY", ""),
		AnthropicAPIKey:   gcp.GetEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:      gcp.GetEnv("OPENAI_API_KEY", ""),
		Models:            models,
		MaxOutputTokens:   maxTokens,
		InstructionPath:   gcp.GetEnv("INSTRUCTION_TEMPLATE_PATH", ""),
		IngestConcurrency: concurrency,
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid analyser configuration: %w", err)
	}
	return cfg, nil
}

// LoadBatchConfig reads the batch configuration, including the pipeline's.
func LoadBatchConfig() (*BatchConfig, error) {
	analyser, err := LoadAnalyserConfig()
	if err != nil {
		return nil, err
	}
	cfg := &BatchConfig{
		Analyser:       *analyser,
		ProjectID:      gcp.GetEnv("PROJECT_ID", ""),
		ReportBucket:   gcp.GetEnv("REPORT_BUCKET", ""),
		CollectionName: gcp.GetEnv("FIRESTORE_COLLECTION", "analyses"),
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid batch configuration: %w", err)
	}
	return cfg, nil
}
