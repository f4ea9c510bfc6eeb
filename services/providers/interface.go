package providers

import (
	"context"
	"time"
)

// Adapter turns a question into a ResponseRecord for one provider.
//
// Invoke must never panic or surface an error: every failure is folded into
// the returned record (see Fallback). Implementations short-circuit with a
// zero-confidence record when their credential is absent.
type Adapter interface {
	Invoke(ctx context.Context, question string) ResponseRecord
}

// AdapterFunc lets a plain function satisfy Adapter.
type AdapterFunc func(ctx context.Context, question string) ResponseRecord

// Invoke calls f(ctx, question).
func (f AdapterFunc) Invoke(ctx context.Context, question string) ResponseRecord {
	return f(ctx, question)
}

// Outcome classifies how a provider call ended.
type Outcome string

const (
	OutcomeOK                Outcome = "ok"
	OutcomeEmpty             Outcome = "empty"
	OutcomeCredentialMissing Outcome = "credential_missing"
	OutcomeTimeout           Outcome = "timeout"
	OutcomeTransportError    Outcome = "transport_error"
	OutcomeProviderError     Outcome = "provider_error"
)

// ResponseRecord is the normalized result of one provider call.
type ResponseRecord struct {
	// Text is the answer, or a human-readable explanation when no answer was produced.
	Text string `json:"response"`

	// Confidence is a fixed per-provider constant on success; 0 means no usable response.
	Confidence float64 `json:"confidence"`

	// LatencySeconds is the wall-clock call time; 0 when the provider was never reached.
	LatencySeconds float64 `json:"response_time"`

	Outcome Outcome `json:"outcome"`
}

// Usable reports whether the record carries a real answer.
func (r ResponseRecord) Usable() bool {
	return r.Confidence > 0
}

// Succeeded builds a record for a successful call.
func Succeeded(text string, confidence float64, elapsed time.Duration) ResponseRecord {
	return ResponseRecord{
		Text:           text,
		Confidence:     confidence,
		LatencySeconds: elapsed.Seconds(),
		Outcome:        OutcomeOK,
	}
}

// Failed builds a zero-confidence record that still reports time spent.
func Failed(text string, outcome Outcome, elapsed time.Duration) ResponseRecord {
	return ResponseRecord{
		Text:           text,
		LatencySeconds: elapsed.Seconds(),
		Outcome:        outcome,
	}
}

// GenerationParameters are shared read-only by every adapter.
type GenerationParameters struct {
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// DefaultGenerationParameters mirrors the configuration defaults.
func DefaultGenerationParameters() GenerationParameters {
	return GenerationParameters{MaxTokens: 512, Temperature: 0.7}
}

// Family groups providers by how they are called.
type Family string

const (
	FamilyInference Family = "inference"
	FamilySDK       Family = "sdk"
)

// Descriptor is the static, user-facing metadata of a provider.
type Descriptor struct {
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	Specialties    []string   `json:"specialties"`
	NominalLatency string     `json:"avg_response_time"`
	MaxTokens      int        `json:"max_tokens"`
	Credential     Credential `json:"credential"`
	Family         Family     `json:"family"`
}

// ProviderConfig holds common configuration for the HTTP adapters
type ProviderConfig struct {
	// APIKey for authentication; empty means the credential is missing.
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout bounds one request.
	Timeout time.Duration

	// Additional headers
	Headers map[string]string

	Params GenerationParameters
}

// DefaultProviderConfig returns a sensible default configuration
func DefaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Timeout: 30 * time.Second,
		Headers: make(map[string]string),
		Params:  DefaultGenerationParameters(),
	}
}
