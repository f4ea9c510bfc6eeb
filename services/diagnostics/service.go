package diagnostics

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/upb/llm-arena/services/aggregation"
	"github.com/upb/llm-arena/services/providers"
)

const (
	// TestQuestion is sent to every provider by TestConnections.
	TestQuestion = "Hello, this is a test."

	StatusConnected = "Connected successfully"
	StatusFailed    = "Connection failed"
)

// Aggregator is the part of the aggregation service diagnostics needs
type Aggregator interface {
	Aggregate(ctx context.Context, question string, requested []string) (*aggregation.Result, error)
}

// ConnectionResult is the connection test status of one provider.
type ConnectionResult struct {
	Provider string
	Status   string
}

// ConnectionResults encode as an ordered JSON object provider -> status.
type ConnectionResults []ConnectionResult

// MarshalJSON implements json.Marshaler
func (c ConnectionResults) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(r.Provider)
		val, _ := json.Marshal(r.Status)
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Connected counts successful connection tests.
func (c ConnectionResults) Connected() int {
	n := 0
	for _, r := range c {
		if r.Status == StatusConnected {
			n++
		}
	}
	return n
}

// KeyReport combines credential presence with a connection test.
type KeyReport struct {
	APIKeyStatus     map[providers.Credential]providers.KeyStatus `json:"api_key_status"`
	ModelTestResults ConnectionResults                             `json:"model_test_results"`
}

// Service tests every registered provider
type Service struct {
	registry    *providers.Registry
	credentials providers.Credentials
	aggregator  Aggregator
	logger      *zap.Logger
}

// NewService creates a new diagnostics service
func NewService(registry *providers.Registry, credentials providers.Credentials, aggregator Aggregator, logger *zap.Logger) *Service {
	return &Service{
		registry:    registry,
		credentials: credentials,
		aggregator:  aggregator,
		logger:      logger,
	}
}

// TestConnections sends TestQuestion to every provider in registry order.
// Providers that were skipped count as failed; a recovered adapter panic is
// reported as "Error: <detail>".
func (s *Service) TestConnections(ctx context.Context) (ConnectionResults, error) {
	names := s.registry.Names()
	result, err := s.aggregator.Aggregate(ctx, TestQuestion, names)
	if err != nil {
		return nil, err
	}

	panics := make(map[string]string)
	for _, msg := range result.PreconditionErrors {
		for _, name := range names {
			prefix := "Error with " + name + ": "
			if strings.HasPrefix(msg, prefix) {
				panics[name] = "Error: " + strings.TrimPrefix(msg, prefix)
			}
		}
	}

	out := make(ConnectionResults, 0, len(names))
	for _, name := range names {
		status := StatusFailed
		if rec, ok := result.Responses.Get(name); ok && rec.Usable() {
			status = StatusConnected
		} else if msg, ok := panics[name]; ok {
			status = msg
		}
		out = append(out, ConnectionResult{Provider: name, Status: status})
	}

	s.logger.Info("connection test completed",
		zap.Int("providers", len(out)),
		zap.Int("connected", out.Connected()))

	return out, nil
}

// KeyStatus reports credential presence (with a 4 character prefix) and
// runs TestConnections.
func (s *Service) KeyStatus(ctx context.Context) (*KeyReport, error) {
	results, err := s.TestConnections(ctx)
	if err != nil {
		return nil, err
	}
	return &KeyReport{
		APIKeyStatus:     s.credentials.Status(),
		ModelTestResults: results,
	}, nil
}
