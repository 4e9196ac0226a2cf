package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	apperrors "hub-connectors/internal/common/errors"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func newTestClient(t *testing.T, server *httptest.Server, mutate func(*Config)) *Client {
	t.Helper()
	cfg := Config{
		Service: "test-upstream",
		BaseURL: server.URL + "/rest",
		Timeout: 2 * time.Second,
		Breaker: BreakerSettings{MaxFailures: 2, OpenTimeout: time.Minute, HalfOpenRequests: 1},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewClient(cfg)
	require.NoError(t, err)
	return c
}

// ==========================
// Success Paths
// ==========================

func TestClient_GetJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/api/search", r.URL.Path)
		assert.Equal(t, "project = HUB", r.URL.Query().Get("jql"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "v1", r.Header.Get("X-Api-Version"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "token", pass)

		_ = json.NewEncoder(w).Encode(map[string]int{"total": 7})
	}))
	defer server.Close()

	c := newTestClient(t, server, func(cfg *Config) {
		cfg.Username = "bot@example.com"
		cfg.Password = "token"
		cfg.Headers = map[string]string{"X-Api-Version": "v1"}
	})

	var out struct {
		Total int `json:"total"`
	}
	err := c.GetJSON(context.Background(), "/api/search", url.Values{"jql": {"project = HUB"}}, &out)
	require.NoError(t, err)
	assert.Equal(t, 7, out.Total)
}

func TestClient_PostJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "hello", in["body"])
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient(t, server, func(cfg *Config) { cfg.BearerToken = "abc" })

	var out map[string]interface{}
	err := c.PostJSON(context.Background(), "issue/HUB-1/comment", map[string]string{"body": "hello"}, &out)
	require.NoError(t, err)
	assert.Nil(t, out)
}

// ==========================
// Error Mapping
// ==========================

func TestClient_StatusMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		expected apperrors.ErrorCode
	}{
		{"unauthorized", http.StatusUnauthorized, apperrors.ErrCodeUpstreamAuthFailed},
		{"forbidden", http.StatusForbidden, apperrors.ErrCodeUpstreamAuthFailed},
		{"bad request", http.StatusBadRequest, apperrors.ErrCodeUpstreamRequestFailed},
		{"not found", http.StatusNotFound, apperrors.ErrCodeUpstreamRequestFailed},
		{"server error", http.StatusInternalServerError, apperrors.ErrCodeUpstreamUnavailable},
		{"bad gateway", http.StatusBadGateway, apperrors.ErrCodeUpstreamUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"errorMessages":["nope"]}`))
			}))
			defer server.Close()

			c := newTestClient(t, server, nil)
			err := c.GetJSON(context.Background(), "x", nil, nil)
			require.Error(t, err)

			stdErr := apperrors.AsStandardError(err)
			assert.Equal(t, tt.expected, stdErr.Code)
			assert.Equal(t, tt.status, stdErr.Metadata["upstreamStatus"])
		})
	}
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	c := newTestClient(t, server, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := c.GetJSON(ctx, "slow", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUpstreamTimeout))
}

func TestClient_InvalidJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer server.Close()

	var out map[string]interface{}
	err := newTestClient(t, server, nil).GetJSON(context.Background(), "x", nil, &out)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUpstreamUnavailable))
}

// ==========================
// Circuit Breaker
// ==========================

func TestClient_BreakerOpensOnServerErrors(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.Error(t, c.GetJSON(ctx, "x", nil, nil))
	}
	assert.Equal(t, gobreaker.StateOpen, c.BreakerState())

	err := c.GetJSON(ctx, "x", nil, nil)
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUpstreamUnavailable))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_OpenBreakerGuardsEveryRequest(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := newTestClient(t, server, nil)
	ctx := context.Background()
	require.Error(t, c.PostJSON(ctx, "a", map[string]string{"k": "v"}, nil))
	require.Error(t, c.GetJSON(ctx, "b", nil, nil))
	require.Equal(t, gobreaker.StateOpen, c.BreakerState())

	assert.ErrorIs(t, c.GetJSON(ctx, "c", nil, nil), gobreaker.ErrOpenState)
	assert.ErrorIs(t, c.PostJSON(ctx, "d", map[string]string{"k": "v"}, nil), gobreaker.ErrOpenState)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_ClientErrorsDoNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(t, server, nil)
	for i := 0; i < 5; i++ {
		err := c.GetJSON(context.Background(), "missing", nil, nil)
		assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUpstreamRequestFailed))
	}
	assert.Equal(t, gobreaker.StateClosed, c.BreakerState())
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "://bad"})
	assert.Error(t, err)
}
