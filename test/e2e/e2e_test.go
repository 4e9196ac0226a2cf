// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hub-connectors/internal/common/config"
	"hub-connectors/internal/common/database"
	"hub-connectors/internal/common/logger"
	"hub-connectors/internal/common/observability"
	"hub-connectors/internal/common/validation"
	"hub-connectors/internal/connectors"
	"hub-connectors/internal/connectors/jira"
	"hub-connectors/internal/dedup"
	"hub-connectors/internal/server"
	"hub-connectors/pkg/card"
	"hub-connectors/pkg/registry"
)

const issueJSON = `{
  "issues": [{
    "id": "10001",
    "key": "HUB-7",
    "fields": {
      "summary": "Login page returns 500",
      "description": {"type":"doc","version":1,"content":[{"type":"paragraph","content":[{"type":"text","text":"Stack trace attached."}]}]},
      "status": {"name":"In Progress"},
      "priority": {"name":"High"},
      "issuetype": {"name":"Bug"},
      "project": {"key":"HUB","name":"Hub"},
      "reporter": {"displayName":"Dana Reyes"},
      "labels": ["auth"],
      "comment": {"comments":[
        {"id":"1","author":{"displayName":"Sam"},"body":"looking","created":"2024-05-01T10:00:00.000+0000"}
      ]}
    }
  }]
}`

// fakeJira records what the connector sends upstream.
type fakeJira struct {
	mu       sync.Mutex
	jql      []string
	comments map[string]string
	watched  []string
}

func issueKey(path string) string {
	return strings.Split(strings.TrimPrefix(path, "/rest/api/3/issue/"), "/")[0]
}

func (f *fakeJira) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/rest/api/3/search":
		f.jql = append(f.jql, r.URL.Query().Get("jql"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, issueJSON)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/comment"):
		body, _ := io.ReadAll(r.Body)
		f.comments[issueKey(r.URL.Path)] = string(body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"99"}`)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/watchers"):
		f.watched = append(f.watched, issueKey(r.URL.Path))
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

type stack struct {
	url   string
	jira  *fakeJira
	redis *miniredis.Miniredis
	store *dedup.Store
}

func startStack(t *testing.T) *stack {
	t.Helper()
	log := logger.NewTestLogger(t)

	fj := &fakeJira{comments: map[string]string{}}
	upstream := httptest.NewServer(fj)
	t.Cleanup(upstream.Close)

	mr := miniredis.RunT(t)
	rdb, err := database.NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdb.Close() })
	store := dedup.NewStore(rdb.GetClient(), dedup.Config{TTL: time.Hour}, log)

	conn, err := jira.New(jira.Config{
		BaseURL:       upstream.URL,
		Email:         "bot@example.com",
		APIToken:      "token",
		Projects:      []string{"HUB"},
		Timeout:       2 * time.Second,
		CardTTL:       time.Hour,
		ActionBaseURL: "https://connectors.example.com/jira",
	}, log)
	require.NoError(t, err)

	validator, err := validation.NewCardValidator()
	require.NoError(t, err)
	obs, err := observability.NewWithRegisterer("e2e", prometheus.NewRegistry())
	require.NoError(t, err)
	discovery, err := registry.LoadDiscovery("../../configs/discovery.json")
	require.NoError(t, err)

	srv := server.New(config.ServerConfig{Address: ":0"}, "https://connectors.example.com/jira/", server.Deps{
		Connectors:       connectors.NewRegistry(conn),
		DefaultConnector: jira.Name,
		Actions:          conn,
		Dedup:            store,
		Validator:        validator,
		Discovery:        discovery,
		Observability:    obs,
		Ready:            rdb.Ping,
		Logger:           log,
	})
	front := httptest.NewServer(srv.Handler())
	t.Cleanup(front.Close)

	return &stack{url: front.URL, jira: fj, redis: mr, store: store}
}

func post(t *testing.T, target, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(target, "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func getStatus(t *testing.T, target string) int {
	t.Helper()
	resp, err := http.Get(target)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func requestCards(t *testing.T, s *stack, body string) *card.Cards {
	t.Helper()
	resp := post(t, s.url+"/cards/requests", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var cards card.Cards
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&cards))
	return &cards
}

func TestFullE2E(t *testing.T) {
	s := startStack(t)
	ctx := context.Background()

	t.Run("discovery", func(t *testing.T) {
		resp, err := http.Get(s.url + "/discovery/metadata.json")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var doc registry.Discovery
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&doc))
		require.Contains(t, doc.ObjectTypes, "card")
		assert.Equal(t, "https://connectors.example.com/jira/cards/requests", doc.ObjectTypes["card"].Endpoint.Href)
	})

	var first *card.Card
	t.Run("cards", func(t *testing.T) {
		cards := requestCards(t, s, `{"tokens":{"issue_id":["HUB-7"]}}`)
		require.Len(t, cards.Cards, 1)
		first = cards.Cards[0]

		assert.Equal(t, "[HUB-7] Login page returns 500", first.Header().Title())
		assert.Equal(t, first.ComputeHash().String(), first.Hash())

		s.jira.mu.Lock()
		require.Len(t, s.jira.jql, 1)
		assert.Contains(t, s.jira.jql[0], "key in (HUB-7)")
		assert.Contains(t, s.jira.jql[0], `project in ("HUB")`)
		s.jira.mu.Unlock()

		id, err := s.store.Lookup(ctx, first.Hash())
		require.NoError(t, err)
		assert.Equal(t, first.ID().String(), id)
	})

	t.Run("repeat request keeps the hash", func(t *testing.T) {
		require.NotNil(t, first)
		cards := requestCards(t, s, `{"tokens":{"issue_id":["HUB-7"]}}`)
		require.Len(t, cards.Cards, 1)
		assert.NotEqual(t, first.ID(), cards.Cards[0].ID())
		assert.Equal(t, first.Hash(), cards.Cards[0].Hash())
	})

	t.Run("actions", func(t *testing.T) {
		require.NotNil(t, first)
		paths := map[string]string{}
		for _, a := range first.Actions() {
			u, err := url.Parse(a.URL().Href())
			require.NoError(t, err)
			paths[a.ActionKey()] = strings.TrimPrefix(u.Path, "/jira")
		}
		require.Contains(t, paths, card.ActionKeyUserInput)
		require.Contains(t, paths, card.ActionKeyDirect)

		resp := post(t, s.url+paths[card.ActionKeyUserInput], `{"comment":"on it"}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		resp = post(t, s.url+paths[card.ActionKeyDirect], `{}`)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		s.jira.mu.Lock()
		defer s.jira.mu.Unlock()
		assert.Contains(t, s.jira.comments["HUB-7"], "on it")
		assert.Equal(t, []string{"HUB-7"}, s.jira.watched)
	})

	t.Run("readiness follows redis", func(t *testing.T) {
		assert.Equal(t, http.StatusOK, getStatus(t, s.url+"/ready"))

		s.redis.Close()
		assert.Equal(t, http.StatusServiceUnavailable, getStatus(t, s.url+"/ready"))

		// fingerprinting is best effort
		cards := requestCards(t, s, `{"tokens":{"issue_id":["HUB-7"]}}`)
		assert.Len(t, cards.Cards, 1)
	})
}
