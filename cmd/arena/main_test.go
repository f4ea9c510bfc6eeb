package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	os.Setenv("ENVIRONMENT", "test")
	os.Setenv("LOG_LEVEL", "error")
	os.Setenv("STORE_BACKEND", "memory")
	os.Setenv("METRICS_ENABLED", "false")

	os.Exit(m.Run())
}

func TestInitLogger(t *testing.T) {
	t.Run("default json logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "info")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("development console logger", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "debug")
		t.Setenv("LOG_FORMAT", "console")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})

	t.Run("invalid log level", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "invalid")
		t.Setenv("LOG_FORMAT", "json")

		logger, err := initLogger()
		assert.Error(t, err)
		assert.Nil(t, logger)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("defaults when not set", func(t *testing.T) {
		t.Setenv("LOG_LEVEL", "")
		t.Setenv("LOG_FORMAT", "")

		logger, err := initLogger()
		require.NoError(t, err)
		require.NotNil(t, logger)
		defer logger.Sync()
	})
}

func fakeInference(t *testing.T) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Inputs string `json:"inputs"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]string{{"generated_text": body.Inputs + " 4"}})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("HUGGINGFACE_API_KEY", "hf_test")
	t.Setenv("HUGGINGFACE_BASE_URL", srv.URL)
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("COHERE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAskCommand(t *testing.T) {
	fakeInference(t)

	out, err := run(t, "ask", "What is 2+2?", "--provider", "GPT-2", "-p", "Claude-2")
	require.NoError(t, err)

	var result struct {
		Question  string                            `json:"question"`
		Errors    []string                          `json:"errors"`
		Responses map[string]map[string]interface{} `json:"responses"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))

	assert.Equal(t, "What is 2+2?", result.Question)
	assert.Equal(t, "4", result.Responses["GPT-2"]["response"])
	assert.Equal(t, []string{"Claude-2 requires Anthropic API key"}, result.Errors)
}

func TestAskCommand_Errors(t *testing.T) {
	fakeInference(t)

	t.Run("missing provider flag", func(t *testing.T) {
		_, err := run(t, "ask", "hi")
		assert.Error(t, err)
	})

	t.Run("missing question", func(t *testing.T) {
		_, err := run(t, "ask", "-p", "GPT-2")
		assert.Error(t, err)
	})

	t.Run("blank question", func(t *testing.T) {
		_, err := run(t, "ask", "   ", "-p", "GPT-2")
		assert.Error(t, err)
	})
}

func TestCheckCommand(t *testing.T) {
	fakeInference(t)

	out, err := run(t, "check")
	require.NoError(t, err)

	var report struct {
		APIKeyStatus map[string]struct {
			Present bool `json:"present"`
		} `json:"api_key_status"`
		ModelTestResults map[string]string `json:"model_test_results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))

	assert.True(t, report.APIKeyStatus["huggingface"].Present)
	assert.False(t, report.APIKeyStatus["anthropic"].Present)
	assert.Equal(t, "Connected successfully", report.ModelTestResults["FLAN-T5"])
	assert.Equal(t, "Connection failed", report.ModelTestResults["Cohere-Command"])
}

func TestServe_GracefulShutdown(t *testing.T) {
	fakeInference(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())

	t.Setenv("SERVER_HOST", "127.0.0.1")
	t.Setenv("PORT", strconv.Itoa(port))
	t.Setenv("SERVER_SHUTDOWN_TIMEOUT", "2s")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx) }()

	addr := "http://127.0.0.1:" + strconv.Itoa(port) + "/healthz"
	require.Eventually(t, func() bool {
		resp, err := http.Get(addr)
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 50*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
