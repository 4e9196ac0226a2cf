package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"hub-connectors/internal/common/config"
	apperrors "hub-connectors/internal/common/errors"
	"hub-connectors/internal/common/logger"
	"hub-connectors/internal/common/observability"
	"hub-connectors/internal/common/validation"
	"hub-connectors/internal/connectors"
	"hub-connectors/internal/dedup"
	"hub-connectors/pkg/card"
	"hub-connectors/pkg/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockConnector struct {
	name  string
	cards func() []*card.Card
	err   error
	req   *connectors.CardRequest
}

func (m *mockConnector) Name() string { return m.name }

func (m *mockConnector) Cards(ctx context.Context, req *connectors.CardRequest) ([]*card.Card, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return m.cards(), nil
}

type mockActions struct {
	commentKey  string
	commentBody string
	watchKey    string
	err         error
}

func (m *mockActions) Comment(ctx context.Context, issueKey, body string) error {
	if m.err != nil {
		return m.err
	}
	if strings.TrimSpace(body) == "" {
		return apperrors.NewInvalidCardRequestError("comment must not be empty")
	}
	m.commentKey, m.commentBody = issueKey, body
	return nil
}

func (m *mockActions) Watch(ctx context.Context, issueKey string) error {
	if m.err != nil {
		return m.err
	}
	m.watchKey = issueKey
	return nil
}

// --- helpers ---

func issueCard(key string) *card.Card {
	return card.NewBuilder().
		SetName("jira").
		SetHeader(card.NewHeaderBuilder().SetTitle("[" + key + "] Broken login").Build()).
		AddAction(card.NewActionBuilder().
			SetActionKey(card.ActionKeyDirect).
			SetLabel("Watch").
			SetURL(card.NewLink("/api/v1/issues/" + key + "/watch")).
			Build()).
		Build()
}

type testEnv struct {
	server    *Server
	connector *mockConnector
	actions   *mockActions
	store     *dedup.Store
}

func setupServer(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logger.NewTestLogger(t)
	validator, err := validation.NewCardValidator()
	require.NoError(t, err)
	obs, err := observability.NewWithRegisterer("test", prometheus.NewRegistry())
	require.NoError(t, err)

	discovery, err := registry.ParseDiscovery([]byte(`{"object_types":{"card":{"endpoint":{"href":"cards/requests"}}}}`))
	require.NoError(t, err)

	env := &testEnv{
		connector: &mockConnector{
			name:  "jira",
			cards: func() []*card.Card { return []*card.Card{issueCard("HUB-1"), issueCard("HUB-2")} },
		},
		actions: &mockActions{},
		store:   dedup.NewStore(client, dedup.Config{TTL: time.Hour}, log),
	}
	env.server = New(config.ServerConfig{Address: ":0"}, "https://connectors.example.com/jira/", Deps{
		Connectors:       connectors.NewRegistry(env.connector),
		DefaultConnector: "jira",
		Actions:          env.actions,
		Dedup:            env.store,
		Validator:        validator,
		Discovery:        discovery,
		Observability:    obs,
		Logger:           log,
	})
	return env
}

func do(t *testing.T, s *Server, method, target, contentType, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	res := httptest.NewRecorder()
	s.Handler().ServeHTTP(res, req)
	return res
}

func decodeError(t *testing.T, res *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var body errorResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	return body
}

// --- tests ---

func TestHealthAndReady(t *testing.T) {
	env := setupServer(t)

	res := do(t, env.server, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"status":"healthy"`)

	res = do(t, env.server, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusOK, res.Code)

	env.server.deps.Ready = func(ctx context.Context) error { return errors.New("redis down") }
	res = do(t, env.server, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
	assert.Contains(t, res.Body.String(), "redis down")
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupServer(t)

	res := do(t, env.server, http.MethodGet, "/metrics", "", "")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "go_goroutines")
}

func TestDiscovery(t *testing.T) {
	env := setupServer(t)

	res := do(t, env.server, http.MethodGet, "/discovery/metadata.json", "", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), `"href":"https://connectors.example.com/jira/cards/requests"`)

	env.server.deps.Discovery = nil
	res = do(t, env.server, http.MethodGet, "/discovery/metadata.json", "", "")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, res).Code)
}

func TestCardRequest(t *testing.T) {
	env := setupServer(t)

	res := do(t, env.server, http.MethodPost, "/cards/requests", echo.MIMEApplicationJSON, `{"tokens":{"issue_id":["HUB-1","HUB-2"]}}`)
	require.Equal(t, http.StatusOK, res.Code, res.Body.String())

	assert.Equal(t, []string{"HUB-1", "HUB-2"}, env.connector.req.Tokens["issue_id"])

	var got card.Cards
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	require.Len(t, got.Cards, 2)
	assert.Equal(t, "[HUB-1] Broken login", got.Cards[0].Header().Title())

	for _, h := range got.Hashes() {
		id, err := env.store.Lookup(context.Background(), h)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
	}
}

func TestCardRequest_DuplicatesAreStillReturned(t *testing.T) {
	env := setupServer(t)

	first := do(t, env.server, http.MethodPost, "/cards/requests", echo.MIMEApplicationJSON, `{}`)
	require.Equal(t, http.StatusOK, first.Code)
	second := do(t, env.server, http.MethodPost, "/cards/requests", echo.MIMEApplicationJSON, `{}`)
	require.Equal(t, http.StatusOK, second.Code)

	var a, b card.Cards
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &a))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &b))
	require.Len(t, b.Cards, 2)
	assert.Equal(t, a.Hashes(), b.Hashes())
	assert.NotEqual(t, a.Cards[0].ID(), b.Cards[0].ID())
}

func TestCardRequest_DropsInvalidCards(t *testing.T) {
	env := setupServer(t)
	env.connector.cards = func() []*card.Card {
		return []*card.Card{
			issueCard("HUB-1"),
			card.NewBuilder().SetName("jira").Build(),
			nil,
		}
	}

	res := do(t, env.server, http.MethodPost, "/cards/requests", "", "")
	require.Equal(t, http.StatusOK, res.Code)

	var got card.Cards
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	assert.Len(t, got.Cards, 1)
}

func TestCardRequest_EmptyResult(t *testing.T) {
	env := setupServer(t)
	env.connector.cards = func() []*card.Card { return nil }

	res := do(t, env.server, http.MethodPost, "/cards/requests", "", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"cards":[]}`, res.Body.String())
}

func TestCardRequest_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		body       string
		connectErr error
		status     int
		code       string
	}{
		{
			name:   "malformed body",
			target: "/cards/requests",
			body:   `{"tokens":`,
			status: http.StatusBadRequest,
			code:   string(apperrors.ErrCodeInvalidCardRequest),
		},
		{
			name:   "unknown connector",
			target: "/connectors/servicenow/cards/requests",
			body:   `{}`,
			status: http.StatusNotFound,
			code:   string(apperrors.ErrCodeConnectorNotFound),
		},
		{
			name:       "upstream auth",
			target:     "/cards/requests",
			body:       `{}`,
			connectErr: apperrors.NewUpstreamAuthFailedError("jira", http.StatusUnauthorized),
			status:     http.StatusForbidden,
			code:       string(apperrors.ErrCodeUpstreamAuthFailed),
		},
		{
			name:       "upstream down",
			target:     "/connectors/jira/cards/requests",
			body:       `{}`,
			connectErr: apperrors.NewUpstreamUnavailableError("jira", errors.New("connection refused")),
			status:     http.StatusServiceUnavailable,
			code:       string(apperrors.ErrCodeUpstreamUnavailable),
		},
		{
			name:       "unexpected error",
			target:     "/cards/requests",
			body:       `{}`,
			connectErr: errors.New("boom"),
			status:     http.StatusInternalServerError,
			code:       string(apperrors.ErrCodeInternal),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupServer(t)
			env.connector.err = tt.connectErr

			res := do(t, env.server, http.MethodPost, tt.target, echo.MIMEApplicationJSON, tt.body)
			assert.Equal(t, tt.status, res.Code)
			assert.Equal(t, tt.code, decodeError(t, res).Code)
		})
	}
}

func TestCardRequest_StoreDownDoesNotFail(t *testing.T) {
	env := setupServer(t)
	client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	env.server.deps.Dedup = dedup.NewStore(client, dedup.Config{TTL: time.Hour}, logger.NewNoOpLogger())

	res := do(t, env.server, http.MethodPost, "/cards/requests", "", "")
	require.Equal(t, http.StatusOK, res.Code)

	var got card.Cards
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &got))
	assert.Len(t, got.Cards, 2)
}

func TestComment(t *testing.T) {
	t.Run("form", func(t *testing.T) {
		env := setupServer(t)
		form := url.Values{"comment": {"On it"}}.Encode()

		res := do(t, env.server, http.MethodPost, "/api/v1/issues/HUB-7/comment", echo.MIMEApplicationForm, form)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "HUB-7", env.actions.commentKey)
		assert.Equal(t, "On it", env.actions.commentBody)
	})

	t.Run("json", func(t *testing.T) {
		env := setupServer(t)

		res := do(t, env.server, http.MethodPost, "/api/v1/issues/HUB-7/comment", echo.MIMEApplicationJSON, `{"comment":"Done"}`)
		assert.Equal(t, http.StatusOK, res.Code)
		assert.Equal(t, "Done", env.actions.commentBody)
	})

	t.Run("blank", func(t *testing.T) {
		env := setupServer(t)

		res := do(t, env.server, http.MethodPost, "/api/v1/issues/HUB-7/comment", echo.MIMEApplicationJSON, `{"comment":" "}`)
		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.Equal(t, string(apperrors.ErrCodeInvalidCardRequest), decodeError(t, res).Code)
	})
}

func TestWatch(t *testing.T) {
	env := setupServer(t)

	res := do(t, env.server, http.MethodPost, "/api/v1/issues/HUB-9/watch", "", "")
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "HUB-9", env.actions.watchKey)

	env.actions.err = apperrors.NewUpstreamTimeoutError("jira", context.DeadlineExceeded)
	res = do(t, env.server, http.MethodPost, "/api/v1/issues/HUB-9/watch", "", "")
	assert.Equal(t, http.StatusGatewayTimeout, res.Code)
	body := decodeError(t, res)
	assert.Equal(t, string(apperrors.ErrCodeUpstreamTimeout), body.Code)
	assert.NotEmpty(t, body.Message)
}

func TestUnknownRoute(t *testing.T) {
	env := setupServer(t)

	res := do(t, env.server, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "NOT_FOUND", decodeError(t, res).Code)
}
