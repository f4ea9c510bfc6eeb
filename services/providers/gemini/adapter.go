package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/upb/llm-arena/services/providers"
)

const (
	defaultModel = "gemini-1.5-pro"

	// Confidence is reported for every successful answer.
	Confidence = 0.9
)

// Generator produces text for a prompt. The SDK-backed implementation is the
// default; tests substitute their own.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Adapter implements providers.Adapter on top of the Gemini SDK
type Adapter struct {
	name      string
	config    providers.ProviderConfig
	generator Generator
}

// Option configures an Adapter
type Option func(*Adapter)

// WithGenerator replaces the SDK client.
func WithGenerator(g Generator) Option {
	return func(a *Adapter) {
		a.generator = g
	}
}

// NewAdapter creates a new Gemini adapter
func NewAdapter(name, model string, config providers.ProviderConfig, opts ...Option) *Adapter {
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if model == "" {
		model = defaultModel
	}

	a := &Adapter{
		name:   name,
		config: config,
		generator: &sdkGenerator{
			apiKey: config.APIKey,
			model:  model,
			params: config.Params,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Name returns the display name
func (a *Adapter) Name() string {
	return a.name
}

// Invoke implements providers.Adapter.
func (a *Adapter) Invoke(ctx context.Context, question string) providers.ResponseRecord {
	if a.config.APIKey == "" {
		return providers.Failed(providers.CredentialGemini.NotConfiguredMessage(), providers.OutcomeCredentialMissing, 0)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	start := time.Now()
	text, err := a.generator.Generate(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return providers.FallbackFromError(a.name, ctx.Err())
		}
		return providers.FallbackFromError(a.name, providers.NewError(
			a.name, providers.OutcomeProviderError, 0, fmt.Sprintf("Gemini API error: %v", err), err))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return providers.Failed(providers.UnavailableMessage(a.name), providers.OutcomeEmpty, time.Since(start))
	}
	return providers.Succeeded(text, Confidence, time.Since(start))
}

type sdkGenerator struct {
	apiKey string
	model  string
	params providers.GenerationParameters
}

func (g *sdkGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	model.SetMaxOutputTokens(int32(g.params.MaxTokens))
	model.SetTemperature(float32(g.params.Temperature))
	model.SetCandidateCount(1)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		// only the best candidate is used
		break
	}
	return sb.String(), nil
}
