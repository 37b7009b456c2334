package assess

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestRetryExponentialBackoff tests that retry delays grow between attempts
func TestRetryExponentialBackoff(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("Retry delays follow exponential backoff pattern", prop.ForAll(
		func(numFailures int) bool {
			var requestCount int32
			var recordedDelays []time.Duration

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				count := atomic.AddInt32(&requestCount, 1)
				if int(count) <= numFailures {
					w.WriteHeader(http.StatusInternalServerError)
					return
				}
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := DefaultRetryConfig()
			cfg.MaxRetries = 3
			client := NewRetryableHTTPClientWithConfig(cfg)
			client.SetHTTPClient(server.Client())
			client.SetDelayFunc(func(d time.Duration) {
				recordedDelays = append(recordedDelays, d)
			})

			resp, err := client.PostJSON(context.Background(), server.URL, nil, []byte(`{}`))
			if err != nil {
				t.Logf("Request failed: %v", err)
				return false
			}
			defer resp.Body.Close()

			if len(recordedDelays) != numFailures {
				t.Logf("Expected %d delays, got %d", numFailures, len(recordedDelays))
				return false
			}
			for i := 1; i < len(recordedDelays); i++ {
				if recordedDelays[i] <= recordedDelays[i-1] {
					return false
				}
			}
			return resp.StatusCode == http.StatusOK
		},
		gen.IntRange(1, 3),
	))

	properties.TestingRun(t)
}

// TestDefaultClientMakesSingleAttempt tests that retries are off by default
func TestDefaultClientMakesSingleAttempt(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewRetryableHTTPClient()
	client.SetHTTPClient(server.Client())

	resp, err := client.PostJSON(context.Background(), server.URL, nil, []byte(`{}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected the 503 to be returned, got %d", resp.StatusCode)
	}
	if atomic.LoadInt32(&requestCount) != 1 {
		t.Errorf("Expected exactly one attempt, got %d", requestCount)
	}
}

// TestRetryReplaysBody tests that every attempt carries the full request body
func TestRetryReplaysBody(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"model":"m"}` {
			t.Errorf("unexpected body %q", body)
		}
		if atomic.AddInt32(&requestCount, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	cfg := DefaultRetryConfig()
	cfg.MaxRetries = 1
	client := NewRetryableHTTPClientWithConfig(cfg)
	client.SetHTTPClient(server.Client())
	client.SetDelayFunc(func(time.Duration) {})

	resp, err := client.PostJSON(context.Background(), server.URL, nil, []byte(`{"model":"m"}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	resp.Body.Close()

	if requestCount != 2 {
		t.Errorf("Expected 2 attempts, got %d", requestCount)
	}
}

// TestNoRetryOn4xx tests that client errors are returned immediately
func TestNoRetryOn4xx(t *testing.T) {
	var requestCount int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requestCount, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := DefaultRetryConfig()
	cfg.MaxRetries = 3
	client := NewRetryableHTTPClientWithConfig(cfg)
	client.SetHTTPClient(server.Client())
	client.SetDelayFunc(func(time.Duration) {})

	resp, err := client.PostJSON(context.Background(), server.URL, nil, nil)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	resp.Body.Close()

	if requestCount != 1 {
		t.Errorf("Expected 1 attempt for 401, got %d", requestCount)
	}
}

// TestNetworkErrorWithRetries tests that exhausted retries wrap ErrMaxRetriesExceeded
func TestNetworkErrorWithRetries(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.MaxRetries = 2
	client := NewRetryableHTTPClientWithConfig(cfg)
	client.SetHTTPClient(&http.Client{Transport: &failingTransport{}})
	client.SetDelayFunc(func(time.Duration) {})

	_, err := client.PostJSON(context.Background(), "http://backend.invalid/v1", nil, nil)
	if !errors.Is(err, ErrMaxRetriesExceeded) {
		t.Errorf("Expected ErrMaxRetriesExceeded, got: %v", err)
	}
	if len(client.GetRecordedDelays()) != 2 {
		t.Errorf("Expected 2 recorded delays, got %d", len(client.GetRecordedDelays()))
	}
}

// TestContextCancellation tests that a cancelled context stops the request
func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewRetryableHTTPClient()
	_, err := client.PostJSON(ctx, "http://backend.invalid/v1", nil, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got: %v", err)
	}
}

// TestHeadersAndEnvSubstitution tests default and custom header handling
func TestHeadersAndEnvSubstitution(t *testing.T) {
	t.Setenv("APTAUDIT_TEST_TOKEN", "s3cret")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "aptaudit/test" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("X-Token"); got != "s3cret" {
			t.Errorf("X-Token = %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "application/json" {
			t.Errorf("Content-Type = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewRetryableHTTPClient()
	client.SetHTTPClient(server.Client())
	client.SetDefaultHeaders(map[string]string{"User-Agent": "aptaudit/test"})

	resp, err := client.PostJSON(context.Background(), server.URL, map[string]string{"X-Token": "${APTAUDIT_TEST_TOKEN}"}, []byte(`{}`))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	resp.Body.Close()
}

// TestCalculateDelay tests the backoff schedule and its cap
func TestCalculateDelay(t *testing.T) {
	client := NewRetryableHTTPClient()

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 4 * time.Second},
	}

	for _, tt := range tests {
		if got := client.calculateDelay(tt.attempt); got != tt.expected {
			t.Errorf("calculateDelay(%d) = %v, want %v", tt.attempt, got, tt.expected)
		}
	}
}

// TestShouldRetry tests which status codes are retried
func TestShouldRetry(t *testing.T) {
	client := NewRetryableHTTPClient()

	tests := []struct {
		status   int
		expected bool
	}{
		{200, false},
		{400, false},
		{401, false},
		{404, false},
		{429, true},
		{500, true},
		{502, true},
		{503, true},
	}

	for _, tt := range tests {
		if got := client.shouldRetry(tt.status); got != tt.expected {
			t.Errorf("shouldRetry(%d) = %v, want %v", tt.status, got, tt.expected)
		}
	}
}

// TestDefaultRetryConfig tests the default settings
func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxRetries != 0 {
		t.Errorf("MaxRetries = %d, want 0", cfg.MaxRetries)
	}
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}

	negative := NewRetryableHTTPClientWithConfig(RetryConfig{MaxRetries: -3})
	if negative.Config().MaxRetries != 0 {
		t.Errorf("negative MaxRetries must clamp to 0, got %d", negative.Config().MaxRetries)
	}
}

// TestSubstituteEnvVars tests ${VAR} expansion
func TestSubstituteEnvVars(t *testing.T) {
	os.Setenv("APTAUDIT_HOST", "llm.internal")
	defer os.Unsetenv("APTAUDIT_HOST")
	os.Unsetenv("APTAUDIT_UNSET")

	tests := []struct {
		input    string
		expected string
	}{
		{"http://${APTAUDIT_HOST}:3000", "http://llm.internal:3000"},
		{"${APTAUDIT_UNSET}", ""},
		{"no vars", "no vars"},
	}

	for _, tt := range tests {
		if got := SubstituteEnvVars(tt.input); got != tt.expected {
			t.Errorf("SubstituteEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}
