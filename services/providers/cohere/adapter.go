package cohere

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"
	"github.com/cohere-ai/cohere-go/v2/option"

	"github.com/upb/llm-arena/services/providers"
)

const (
	defaultBaseURL = "https://api.cohere.ai"
	defaultModel   = "command"

	// Confidence is reported for every successful answer.
	Confidence = 0.9
)

// Generator produces text for a prompt. The SDK-backed implementation is the
// default; tests substitute their own.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Adapter implements providers.Adapter for the Cohere generate endpoint
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

// NewAdapter creates a new Cohere adapter
func NewAdapter(name, model string, config providers.ProviderConfig, opts ...Option) *Adapter {
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

	a := &Adapter{
		name:      name,
		config:    config,
		generator: newSDKGenerator(model, config),
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
		return providers.Failed(providers.CredentialCohere.NotConfiguredMessage(), providers.OutcomeCredentialMissing, 0)
	}

	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	start := time.Now()
	text, err := a.generator.Generate(ctx, question)
	if err != nil {
		if ctx.Err() != nil {
			return providers.FallbackFromError(a.name, ctx.Err())
		}
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return providers.FallbackFromError(a.name, err)
		}
		return providers.FallbackFromError(a.name, providers.NewError(
			a.name, providers.OutcomeProviderError, 0, fmt.Sprintf("Cohere API error: %v", err), err))
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return providers.Failed(providers.UnavailableMessage(a.name), providers.OutcomeEmpty, time.Since(start))
	}
	return providers.Succeeded(text, Confidence, time.Since(start))
}

type sdkGenerator struct {
	client *cohereclient.Client
	model  string
	params providers.GenerationParameters
}

func newSDKGenerator(model string, config providers.ProviderConfig) *sdkGenerator {
	header := make(http.Header, len(config.Headers))
	for k, v := range config.Headers {
		header.Set(k, v)
	}

	return &sdkGenerator{
		client: cohereclient.NewClient(
			option.WithToken(config.APIKey),
			option.WithBaseURL(config.BaseURL),
			option.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
			option.WithHTTPHeader(header),
		),
		model:  model,
		params: config.Params,
	}
}

func (g *sdkGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Generate(ctx, &cohere.GenerateRequest{
		Prompt:            prompt,
		Model:             cohere.String(g.model),
		MaxTokens:         cohere.Int(g.params.MaxTokens),
		Temperature:       cohere.Float64(g.params.Temperature),
		K:                 cohere.Int(0),
		StopSequences:     []string{},
		ReturnLikelihoods: cohere.GenerateRequestReturnLikelihoodsNone.Ptr(),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Generations) == 0 || resp.Generations[0] == nil {
		return "", errors.New("response contained no generations")
	}
	return resp.Generations[0].Text, nil
}
