package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// okHandler answers every path with an empty JSON object.
func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{}`))
	})
}

// TestNewClient tests client construction with various options.
func TestNewClient(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		c := NewClient([]string{"https://api.example.com"})

		if len(c.hosts) != 1 || c.hosts[0] != "https://api.example.com" {
			t.Errorf("hosts = %v, want [https://api.example.com]", c.hosts)
		}
		if c.httpClient.Timeout != 10*time.Second {
			t.Errorf("Timeout = %v, want %v", c.httpClient.Timeout, 10*time.Second)
		}
		if c.logger == nil {
			t.Error("logger should not be nil")
		}
		if c.capability() != CapabilityUnknown {
			t.Errorf("capability = %v, want unknown", c.capability())
		}
		if c.pinnedHost() != "" {
			t.Errorf("pinnedHost = %q, want empty", c.pinnedHost())
		}
	})

	t.Run("with options", func(t *testing.T) {
		logger := testLogger()
		custom := &http.Client{Timeout: 3 * time.Second}
		c := NewClient([]string{"https://a", "https://b"},
			WithTimeout(5*time.Second),
			WithAPIKey("key123"),
			WithLogger(logger),
			WithHTTPClient(custom),
		)
		if c.httpClient != custom {
			t.Error("custom HTTP client not set")
		}
		if c.apiKey != "key123" {
			t.Errorf("apiKey = %q, want %q", c.apiKey, "key123")
		}
		if c.logger != logger {
			t.Error("logger not set correctly")
		}
	})
}

// TestAPIError tests the APIError type.
func TestAPIError(t *testing.T) {
	t.Run("Error method", func(t *testing.T) {
		err := &APIError{StatusCode: 404, Message: "Not Found"}
		want := "upstream api error 404: Not Found"
		if err.Error() != want {
			t.Errorf("Error() = %q, want %q", err.Error(), want)
		}
	})

	t.Run("IsServerError", func(t *testing.T) {
		tests := []struct {
			code     int
			expected bool
		}{
			{500, true},
			{502, true},
			{503, true},
			{400, false},
			{404, false},
			{429, false},
		}
		for _, tt := range tests {
			err := &APIError{StatusCode: tt.code}
			if got := err.IsServerError(); got != tt.expected {
				t.Errorf("IsServerError() for status %d = %v, want %v", tt.code, got, tt.expected)
			}
		}
	})
}

// TestProbeHosts tests startup host probing and pinning.
func TestProbeHosts(t *testing.T) {
	t.Run("pins first healthy host", func(t *testing.T) {
		good := httptest.NewServer(okHandler())
		defer good.Close()

		c := NewClient([]string{good.URL}, WithLogger(testLogger()))
		c.probeHosts(context.Background())
		if c.pinnedHost() != good.URL {
			t.Errorf("pinned = %q, want %q", c.pinnedHost(), good.URL)
		}
	})

	t.Run("skips failing host", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer bad.Close()
		good := httptest.NewServer(okHandler())
		defer good.Close()

		c := NewClient([]string{bad.URL, good.URL}, WithLogger(testLogger()))
		c.probeHosts(context.Background())
		if c.pinnedHost() != good.URL {
			t.Errorf("pinned = %q, want %q", c.pinnedHost(), good.URL)
		}
	})

	t.Run("pins last host when all probes fail", func(t *testing.T) {
		dead := httptest.NewServer(okHandler())
		dead.Close() // connection refused from here on

		c := NewClient([]string{dead.URL + "/a", dead.URL + "/b"}, WithLogger(testLogger()))
		c.probeHosts(context.Background())
		if c.pinnedHost() != dead.URL+"/b" {
			t.Errorf("pinned = %q, want last host %q", c.pinnedHost(), dead.URL+"/b")
		}
	})
}

// TestResilientGet tests host failover behavior.
func TestResilientGet(t *testing.T) {
	t.Run("fails over on 5xx and repins", func(t *testing.T) {
		var aCalls, bCalls atomic.Int32
		a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/markets" { // startup probe
				w.Write([]byte(`{}`))
				return
			}
			aCalls.Add(1)
			w.WriteHeader(http.StatusBadGateway)
		}))
		defer a.Close()
		b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bCalls.Add(1)
			w.Write([]byte(`{"ok":true}`))
		}))
		defer b.Close()

		c := NewClient([]string{a.URL, b.URL}, WithLogger(testLogger()))

		body, err := c.resilientGet(context.Background(), "/test", nil)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(body) != `{"ok":true}` {
			t.Errorf("body = %q", string(body))
		}
		if c.pinnedHost() != b.URL {
			t.Errorf("pinned = %q, want failover target %q", c.pinnedHost(), b.URL)
		}

		// Next call goes straight to the new pin.
		if _, err := c.resilientGet(context.Background(), "/test", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := aCalls.Load(); got != 1 {
			t.Errorf("calls to demoted host = %d, want 1", got)
		}
		if got := bCalls.Load(); got != 2 {
			t.Errorf("calls to pinned host = %d, want 2", got)
		}
	})

	t.Run("fails over on network error", func(t *testing.T) {
		dead := httptest.NewServer(okHandler())
		dead.Close()
		good := httptest.NewServer(okHandler())
		defer good.Close()

		c := NewClient([]string{dead.URL, good.URL}, WithLogger(testLogger()))
		if _, err := c.resilientGet(context.Background(), "/test", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.pinnedHost() != good.URL {
			t.Errorf("pinned = %q, want %q", c.pinnedHost(), good.URL)
		}
	})

	t.Run("4xx surfaces immediately without failover", func(t *testing.T) {
		var bCalls atomic.Int32
		a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/markets" {
				w.Write([]byte(`{}`))
				return
			}
			w.WriteHeader(http.StatusForbidden)
		}))
		defer a.Close()
		b := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			bCalls.Add(1)
			w.Write([]byte(`{}`))
		}))
		defer b.Close()

		c := NewClient([]string{a.URL, b.URL}, WithLogger(testLogger()))
		_, err := c.resilientGet(context.Background(), "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		apiErr, ok := err.(*APIError)
		if !ok {
			t.Fatalf("expected *APIError, got %T", err)
		}
		if apiErr.StatusCode != 403 {
			t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
		}
		if got := bCalls.Load(); got != 0 {
			t.Errorf("fallback host was called %d times, want 0", got)
		}
		if c.pinnedHost() != a.URL {
			t.Errorf("pinned = %q, want unchanged %q", c.pinnedHost(), a.URL)
		}
	})

	t.Run("all hosts exhausted", func(t *testing.T) {
		a := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/markets" {
				w.Write([]byte(`{}`))
				return
			}
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer a.Close()

		c := NewClient([]string{a.URL}, WithLogger(testLogger()))
		_, err := c.resilientGet(context.Background(), "/test", nil)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "all upstream hosts exhausted") {
			t.Errorf("error = %v, want hosts-exhausted", err)
		}
	})

	t.Run("empty host list errors without panicking", func(t *testing.T) {
		c := NewClient(nil, WithLogger(testLogger()))
		_, err := c.FetchTradesSince(context.Background(), 0, 100)
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !errors.Is(err, ErrHostsExhausted) {
			t.Errorf("error = %v, want ErrHostsExhausted", err)
		}
		if c.pinnedHost() != "" {
			t.Errorf("pinned = %q, want empty", c.pinnedHost())
		}
	})

	t.Run("sends auth and user agent headers", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/markets" {
				if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
					t.Errorf("Authorization = %q, want %q", got, "Bearer test-key")
				}
				if got := r.Header.Get("User-Agent"); got != "whalewatch/1.0" {
					t.Errorf("User-Agent = %q, want %q", got, "whalewatch/1.0")
				}
			}
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		c := NewClient([]string{server.URL}, WithAPIKey("test-key"), WithLogger(testLogger()))
		if _, err := c.resilientGet(context.Background(), "/test", nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// TestStatus tests the health-reporting snapshot.
func TestStatus(t *testing.T) {
	server := httptest.NewServer(okHandler())
	defer server.Close()

	c := NewClient([]string{server.URL}, WithLogger(testLogger()))

	st := c.Status()
	if st.PinnedHost != "" || st.MinTSCapability != "unknown" {
		t.Errorf("initial Status() = %+v", st)
	}

	c.probeHosts(context.Background())
	c.setCapability(CapabilitySupported)

	st = c.Status()
	if st.PinnedHost != server.URL {
		t.Errorf("PinnedHost = %q, want %q", st.PinnedHost, server.URL)
	}
	if st.MinTSCapability != "supported" {
		t.Errorf("MinTSCapability = %q, want %q", st.MinTSCapability, "supported")
	}
}

// TestSetCapability tests that transitions happen at most once per direction.
func TestSetCapability(t *testing.T) {
	t.Run("unsupported is terminal", func(t *testing.T) {
		c := NewClient([]string{"https://a"})
		c.setCapability(CapabilityUnsupported)
		c.setCapability(CapabilitySupported)
		if c.capability() != CapabilityUnsupported {
			t.Errorf("capability = %v, want unsupported", c.capability())
		}
	})

	t.Run("supported can only degrade", func(t *testing.T) {
		c := NewClient([]string{"https://a"})
		c.setCapability(CapabilitySupported)
		c.setCapability(CapabilityUnsupported)
		if c.capability() != CapabilityUnsupported {
			t.Errorf("capability = %v, want unsupported", c.capability())
		}
	})
}
