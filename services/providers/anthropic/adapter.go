package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/upb/llm-arena/services/providers"
)

const (
	defaultBaseURL    = "https://api.anthropic.com"
	defaultModel      = "claude-3-opus-20240229"
	defaultAPIVersion = "2023-06-01"

	// Confidence is reported for every successful answer.
	Confidence = 0.95
)

// Generator produces text for a prompt. The SDK-backed implementation is the
// default; tests substitute their own.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Adapter implements providers.Adapter on top of the Anthropic Messages API
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

// NewAdapter creates a new Anthropic adapter
func NewAdapter(name, model, apiVersion string, config providers.ProviderConfig, opts ...Option) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if model == "" {
		model = defaultModel
	}
	if apiVersion == "" {
		apiVersion = defaultAPIVersion
	}

	a := &Adapter{
		name:      name,
		config:    config,
		generator: newSDKGenerator(model, apiVersion, config),
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
		return providers.Failed(providers.CredentialAnthropic.NotConfiguredMessage(), providers.OutcomeCredentialMissing, 0)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	start := time.Now()
	text, err := a.generator.Generate(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return providers.FallbackFromError(a.name, ctx.Err())
		}
		return providers.FallbackFromError(a.name, a.classify(err))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return providers.Failed(providers.UnavailableMessage(a.name), providers.OutcomeEmpty, time.Since(start))
	}
	return providers.Succeeded(text, Confidence, time.Since(start))
}

// classify keeps transport failures as they are and turns everything the
// API answered into a provider error.
func (a *Adapter) classify(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return err
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return providers.NewError(a.name, providers.OutcomeProviderError, apiErr.StatusCode,
			fmt.Sprintf("Error code: %d - %v", apiErr.StatusCode, err), err)
	}
	return providers.NewError(a.name, providers.OutcomeProviderError, 0, fmt.Sprintf("Anthropic API error: %v", err), err)
}

type sdkGenerator struct {
	client anthropic.Client
	model  string
	params providers.GenerationParameters
}

func newSDKGenerator(model, apiVersion string, config providers.ProviderConfig) *sdkGenerator {
	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithBaseURL(config.BaseURL),
		option.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
		option.WithHeader("anthropic-version", apiVersion),
		option.WithMaxRetries(0),
	}
	for k, v := range config.Headers {
		opts = append(opts, option.WithHeader(k, v))
	}

	return &sdkGenerator{
		client: anthropic.NewClient(opts...),
		model:  model,
		params: config.Params,
	}
}

func (g *sdkGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	msg, err := g.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(g.model),
		MaxTokens:   int64(g.params.MaxTokens),
		Temperature: anthropic.Float(g.params.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", err
	}

	for _, block := range msg.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", errors.New("response contained no text content")
}
