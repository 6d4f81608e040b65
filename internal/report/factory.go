package report

import (
	"context"
	"fmt"
	"strings"
)

// Provider names a generator backend.
type Provider string

const (
	ProviderVertex    Provider = "vertex"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderMock      Provider = "mock"
)

// Profile is the model choice offered in the form.
type Profile string

const (
	ProfileThorough Profile = "grundig"
	ProfileFast     Profile = "hurtig"
)

// ParseProfile maps a form value to a profile, defaulting to thorough.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProfileThorough:
		return ProfileThorough, nil
	case ProfileFast:
		return ProfileFast, nil
	default:
		return "", fmt.Errorf("unknown model profile %q", s)
	}
}

// Models maps profiles to provider model names.
type Models struct {
	Thorough string
	Fast     string
}

func (m Models) For(p Profile) string {
	if p == ProfileFast {
		return m.Fast
	}
	return m.Thorough
}

// DefaultModels returns the models used when none are configured.
func DefaultModels(p Provider) Models {
	switch p {
	case ProviderAnthropic:
		return Models{Thorough: "claude-sonnet-4-5", Fast: "claude-haiku-4-5"}
	case ProviderOpenAI:
		return Models{Thorough: "gpt-5.1", Fast: "gpt-4.1"}
	case ProviderMock:
		return Models{Thorough: "mock-grundig", Fast: "mock-hurtig"}
	default:
		return Models{Thorough: "gemini-2.5-pro", Fast: "gemini-2.5-flash"}
	}
}

// Config selects and configures a provider.
type Config struct {
	Provider        Provider
	ProjectID       string
	Region          string
	GeminiAPIKey    string
	AnthropicAPIKey string
	OpenAIAPIKey    string
	MaxTokens       int
	// MockTopics seeds the offline generator's canned report.
	MockTopics []string
}

// New creates the generator named by cfg.Provider.
func New(ctx context.Context, cfg Config) (Generator, error) {
	switch cfg.Provider {
	case ProviderVertex, "":
		return NewVertex(ctx, cfg.ProjectID, cfg.Region)
	case ProviderGemini:
		return NewGemini(ctx, cfg.GeminiAPIKey)
	case ProviderAnthropic:
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.MaxTokens)
	case ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.MaxTokens)
	case ProviderMock:
		return NewMock(cfg.MockTopics), nil
	default:
		return nil, fmt.Errorf("unknown report provider %q", cfg.Provider)
	}
}
