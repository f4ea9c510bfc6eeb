package huggingface

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/upb/llm-arena/services/providers"
)

const (
	defaultBaseURL = "https://api-inference.huggingface.co"

	// DefaultConfidence is used by inference models without their own constant.
	DefaultConfidence = 0.85
)

const (
	invalidKeyMessage = "Error: Invalid or missing API key. Please check your Hugging Face API key configuration."
	loadingMessage    = "The model is currently loading. Please try again in a few minutes."
	emptyTextMessage  = "I apologize, but I couldn't generate a meaningful response. Please try rephrasing your question."
)

// Adapter calls one model on the hosted inference API.
type Adapter struct {
	name       string
	modelID    string
	confidence float64
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewAdapter creates an adapter for modelID, reported under name.
func NewAdapter(name, modelID string, confidence float64, config providers.ProviderConfig) *Adapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	if confidence <= 0 {
		confidence = DefaultConfidence
	}

	return &Adapter{
		name:       name,
		modelID:    modelID,
		confidence: confidence,
		config:     config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the display name
func (a *Adapter) Name() string {
	return a.name
}

// ModelID returns the inference model path segment
func (a *Adapter) ModelID() string {
	return a.modelID
}

// Invoke implements providers.Adapter.
func (a *Adapter) Invoke(ctx context.Context, question string) providers.ResponseRecord {
	if a.config.APIKey == "" {
		return providers.Failed(providers.CredentialHuggingFace.NotConfiguredMessage(), providers.OutcomeCredentialMissing, 0)
	}

	rec, err := a.generate(ctx, question)
	if err != nil {
		return providers.FallbackFromError(a.name, err)
	}
	return rec
}

func (a *Adapter) generate(ctx context.Context, question string) (providers.ResponseRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	reqBody, err := json.Marshal(a.buildRequest(question))
	if err != nil {
		return providers.ResponseRecord{}, providers.NewError(a.name, providers.OutcomeTransportError, 0, "Failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/models/"+a.modelID, bytes.NewReader(reqBody))
	if err != nil {
		return providers.ResponseRecord{}, providers.NewError(a.name, providers.OutcomeTransportError, 0, "Failed to create request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	for k, v := range a.config.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return providers.ResponseRecord{}, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return providers.ResponseRecord{}, err
	}
	elapsed := time.Since(start)

	switch {
	case httpResp.StatusCode == http.StatusUnauthorized:
		return providers.Failed(invalidKeyMessage, providers.OutcomeProviderError, elapsed), nil
	case httpResp.StatusCode == http.StatusServiceUnavailable:
		return providers.Failed(loadingMessage, providers.OutcomeProviderError, elapsed), nil
	case httpResp.StatusCode != http.StatusOK:
		msg := fmt.Sprintf("API Error: %d. %s", httpResp.StatusCode, string(respBody))
		return providers.Failed(msg, providers.OutcomeProviderError, elapsed), nil
	}

	text, err := extractText(respBody)
	if err != nil {
		return providers.ResponseRecord{}, providers.NewError(a.name, providers.OutcomeProviderError, httpResp.StatusCode, err.Error(), err)
	}

	text = strings.TrimSpace(strings.TrimPrefix(text, question))
	if text == "" {
		rec := providers.Failed(emptyTextMessage, providers.OutcomeEmpty, elapsed)
		return rec, nil
	}

	return providers.Succeeded(text, a.confidence, elapsed), nil
}

func (a *Adapter) buildRequest(question string) *InferenceRequest {
	return &InferenceRequest{
		Inputs: question,
		Parameters: InferenceParameters{
			MaxLength:          a.config.Params.MaxTokens,
			Temperature:        a.config.Params.Temperature,
			NumReturnSequences: 1,
			DoSample:           true,
			TopP:               0.9,
			TopK:               50,
		},
	}
}

// extractText accepts a list of generated_text objects, a list of raw values,
// or any other JSON shape, which is stringified. A generated_text that is not
// a string and a null generation are errors.
func extractText(body []byte) (string, error) {
	var raw interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid response body: %w", err)
	}

	if raw == nil {
		return "", errors.New("response body is null")
	}

	list, ok := raw.([]interface{})
	if !ok || len(list) == 0 {
		return stringify(raw), nil
	}

	if obj, ok := list[0].(map[string]interface{}); ok {
		if generated, ok := obj["generated_text"]; ok {
			text, ok := generated.(string)
			if !ok {
				return "", fmt.Errorf("generated_text is %s, not a string", stringify(generated))
			}
			return text, nil
		}
	}
	if list[0] == nil {
		return "", errors.New("response contained a null generation")
	}
	return stringify(list[0]), nil
}

func stringify(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// Inference API request types

type InferenceRequest struct {
	Inputs     string              `json:"inputs"`
	Parameters InferenceParameters `json:"parameters"`
}

type InferenceParameters struct {
	MaxLength          int     `json:"max_length"`
	Temperature        float64 `json:"temperature"`
	NumReturnSequences int     `json:"num_return_sequences"`
	DoSample           bool    `json:"do_sample"`
	TopP               float64 `json:"top_p"`
	TopK               int     `json:"top_k"`
}
