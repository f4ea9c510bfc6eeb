package huggingface

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-arena/services/providers"
)

const question = "What is the capital of France?"

func newTestAdapter(t *testing.T, handler http.HandlerFunc) (*Adapter, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := providers.DefaultProviderConfig()
	cfg.APIKey = "hf_test"
	cfg.BaseURL = server.URL
	return NewAdapter("GPT-2", "gpt2", DefaultConfidence, cfg), server
}

func TestNewAdapter_Defaults(t *testing.T) {
	a := NewAdapter("FLAN-T5", "google/flan-t5-base", 0, providers.ProviderConfig{})

	assert.Equal(t, "FLAN-T5", a.Name())
	assert.Equal(t, "google/flan-t5-base", a.ModelID())
	assert.Equal(t, defaultBaseURL, a.config.BaseURL)
	assert.Equal(t, 30*time.Second, a.config.Timeout)
	assert.Equal(t, DefaultConfidence, a.confidence)
}

func TestInvoke_SendsInferencePayload(t *testing.T) {
	var got InferenceRequest
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/gpt2", r.URL.Path)
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`[{"generated_text": "Paris."}]`))
	})

	rec := a.Invoke(context.Background(), question)

	assert.Equal(t, "Paris.", rec.Text)
	assert.Equal(t, question, got.Inputs)
	assert.Equal(t, 512, got.Parameters.MaxLength)
	assert.Equal(t, 0.7, got.Parameters.Temperature)
	assert.Equal(t, 1, got.Parameters.NumReturnSequences)
	assert.True(t, got.Parameters.DoSample)
	assert.Equal(t, 0.9, got.Parameters.TopP)
	assert.Equal(t, 50, got.Parameters.TopK)
}

func TestInvoke_StatusHandling(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantText    string
		wantOutcome providers.Outcome
		wantConf    float64
	}{
		{
			name:        "echo stripped",
			status:      http.StatusOK,
			body:        `[{"generated_text": "What is the capital of France? Paris is the capital."}]`,
			wantText:    "Paris is the capital.",
			wantOutcome: providers.OutcomeOK,
			wantConf:    DefaultConfidence,
		},
		{
			name:        "echo only stripped at the start",
			status:      http.StatusOK,
			body:        `[{"generated_text": "You asked: What is the capital of France?"}]`,
			wantText:    "You asked: What is the capital of France?",
			wantOutcome: providers.OutcomeOK,
			wantConf:    DefaultConfidence,
		},
		{
			name:        "list of raw strings",
			status:      http.StatusOK,
			body:        `["  Lyon?  "]`,
			wantText:    "Lyon?",
			wantOutcome: providers.OutcomeOK,
			wantConf:    DefaultConfidence,
		},
		{
			name:        "unrecognized shape is stringified",
			status:      http.StatusOK,
			body:        `{"summary_text": "Paris"}`,
			wantText:    `{"summary_text":"Paris"}`,
			wantOutcome: providers.OutcomeOK,
			wantConf:    DefaultConfidence,
		},
		{
			name:        "empty generation",
			status:      http.StatusOK,
			body:        `[{"generated_text": "What is the capital of France?   "}]`,
			wantText:    emptyTextMessage,
			wantOutcome: providers.OutcomeEmpty,
		},
		{
			name:        "unauthorized",
			status:      http.StatusUnauthorized,
			body:        `{"error": "Authorization header is invalid"}`,
			wantText:    invalidKeyMessage,
			wantOutcome: providers.OutcomeProviderError,
		},
		{
			name:        "model loading",
			status:      http.StatusServiceUnavailable,
			body:        `{"error": "Model gpt2 is currently loading", "estimated_time": 20}`,
			wantText:    loadingMessage,
			wantOutcome: providers.OutcomeProviderError,
		},
		{
			name:        "other api error embeds status and body",
			status:      http.StatusBadRequest,
			body:        `bad input`,
			wantText:    "API Error: 400. bad input",
			wantOutcome: providers.OutcomeProviderError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			rec := a.Invoke(context.Background(), question)

			assert.Equal(t, tt.wantText, rec.Text)
			assert.Equal(t, tt.wantOutcome, rec.Outcome)
			assert.Equal(t, tt.wantConf, rec.Confidence)
			assert.GreaterOrEqual(t, rec.LatencySeconds, 0.0)
		})
	}
}

func TestInvoke_NonStringGeneration(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{name: "null generated_text", body: `[{"generated_text": null}]`, contains: "generated_text is null"},
		{name: "numeric generated_text", body: `[{"generated_text": 42}]`, contains: "generated_text is 42"},
		{name: "null list item", body: `[null]`, contains: "null generation"},
		{name: "null body", body: `null`, contains: "response body is null"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			rec := a.Invoke(context.Background(), question)

			assert.Zero(t, rec.Confidence)
			assert.Contains(t, rec.Text, tt.contains)
			assert.NotEqual(t, "null", rec.Text)
			assert.Equal(t, providers.OutcomeProviderError, rec.Outcome)
		})
	}
}

func TestInvoke_MalformedJSON(t *testing.T) {
	a, _ := newTestAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	rec := a.Invoke(context.Background(), question)

	assert.Zero(t, rec.Confidence)
	assert.Zero(t, rec.LatencySeconds)
	assert.Contains(t, rec.Text, "invalid response body")
	assert.Equal(t, providers.OutcomeProviderError, rec.Outcome)
}

func TestInvoke_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	cfg := providers.DefaultProviderConfig()
	cfg.APIKey = "hf_test"
	cfg.BaseURL = server.URL
	cfg.Timeout = 50 * time.Millisecond
	a := NewAdapter("GPT-2", "gpt2", DefaultConfidence, cfg)

	rec := a.Invoke(context.Background(), question)

	assert.Equal(t, providers.TimeoutMessage, rec.Text)
	assert.Equal(t, providers.OutcomeTimeout, rec.Outcome)
	assert.Zero(t, rec.Confidence)
}

func TestInvoke_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	cfg := providers.DefaultProviderConfig()
	cfg.APIKey = "hf_test"
	cfg.BaseURL = url
	a := NewAdapter("GPT-2", "gpt2", DefaultConfidence, cfg)

	rec := a.Invoke(context.Background(), question)

	assert.Zero(t, rec.Confidence)
	assert.NotEmpty(t, rec.Text)
	assert.Equal(t, providers.OutcomeTransportError, rec.Outcome)
}

func TestInvoke_MissingCredentialMakesNoCall(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	a := NewAdapter("GPT-2", "gpt2", DefaultConfidence, providers.ProviderConfig{BaseURL: server.URL})
	rec := a.Invoke(context.Background(), question)

	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
	assert.Equal(t, providers.CredentialHuggingFace.NotConfiguredMessage(), rec.Text)
	assert.Equal(t, providers.OutcomeCredentialMissing, rec.Outcome)
	assert.Zero(t, rec.Confidence)
	assert.Zero(t, rec.LatencySeconds)
}

func TestInvoke_CustomConfidence(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"generated_text": "def add(a, b): return a + b"}]`))
	}))
	defer server.Close()

	cfg := providers.DefaultProviderConfig()
	cfg.APIKey = "hf_test"
	cfg.BaseURL = server.URL
	a := NewAdapter("DeepSeek R1", "deepseek-ai/deepseek-coder-6.7b-base", 0.95, cfg)

	rec := a.Invoke(context.Background(), "write add")
	assert.Equal(t, 0.95, rec.Confidence)
}
