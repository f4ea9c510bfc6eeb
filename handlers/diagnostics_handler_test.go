package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/upb/llm-arena/services/diagnostics"
	"github.com/upb/llm-arena/services/providers"
	"go.uber.org/zap"
)

// MockDiagnosticsService is a mock implementation of DiagnosticsService
type MockDiagnosticsService struct {
	mock.Mock
}

func (m *MockDiagnosticsService) TestConnections(ctx context.Context) (diagnostics.ConnectionResults, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(diagnostics.ConnectionResults), args.Error(1)
}

func (m *MockDiagnosticsService) KeyStatus(ctx context.Context) (*diagnostics.KeyReport, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*diagnostics.KeyReport), args.Error(1)
}

var connectionResults = diagnostics.ConnectionResults{
	{Provider: "Cohere-Command", Status: diagnostics.StatusConnected},
	{Provider: "Claude-2", Status: diagnostics.StatusFailed},
}

func TestHandleTestConnections(t *testing.T) {
	svc := new(MockDiagnosticsService)
	svc.On("TestConnections", mock.Anything).Return(connectionResults, nil)

	w := httptest.NewRecorder()
	NewDiagnosticsHandler(svc, zap.NewNop()).HandleTestConnections(w, httptest.NewRequest(http.MethodGet, "/test-connections", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t,
		`{"data":{"Cohere-Command":"Connected successfully","Claude-2":"Connection failed"}}`+"\n",
		w.Body.String())
}

func TestHandleTestAPIKeys(t *testing.T) {
	creds := providers.Credentials{providers.CredentialHuggingFace: "hf_123456"}
	svc := new(MockDiagnosticsService)
	svc.On("KeyStatus", mock.Anything).Return(&diagnostics.KeyReport{
		APIKeyStatus:     creds.Status(),
		ModelTestResults: connectionResults,
	}, nil)

	w := httptest.NewRecorder()
	NewDiagnosticsHandler(svc, zap.NewNop()).HandleTestAPIKeys(w, httptest.NewRequest(http.MethodGet, "/test-api-keys", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data struct {
			APIKeyStatus     map[string]providers.KeyStatus `json:"api_key_status"`
			ModelTestResults map[string]string              `json:"model_test_results"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	hf := response.Data.APIKeyStatus["huggingface"]
	assert.True(t, hf.Present)
	assert.Equal(t, "hf_1...", *hf.KeyStartsWith)
	assert.Nil(t, response.Data.APIKeyStatus["anthropic"].KeyStartsWith)
	assert.Equal(t, diagnostics.StatusConnected, response.Data.ModelTestResults["Cohere-Command"])
}
