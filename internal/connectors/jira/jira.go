// Package jira turns the Jira issues assigned to a user into hub cards and
// executes the card actions (comment, watch) against Jira.
package jira

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	apperrors "hub-connectors/internal/common/errors"
	httpclient "hub-connectors/internal/common/http"
	"hub-connectors/internal/common/logger"
	"hub-connectors/internal/common/metrics"
	"hub-connectors/internal/connectors"
	"hub-connectors/pkg/card"
)

const (
	Name = "jira"

	// IssueToken is the request token carrying issue keys.
	IssueToken = "issue_id"

	DefaultJQL       = "assignee = currentUser() AND resolution = Unresolved ORDER BY updated DESC"
	DefaultFetchSize = 50
	// MaxFetchSize is the Jira API hard limit.
	MaxFetchSize = 100

	searchFields = "summary,description,status,priority,issuetype,project,reporter,assignee,labels,created,updated,comment"
)

var issueKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]*-[0-9]+$`)

// Config holds Jira connection configuration.
type Config struct {
	BaseURL  string
	Email    string
	APIToken string
	Projects []string
	JQL      string
	// FetchSize is the maximum number of issues turned into cards per request.
	FetchSize int
	Timeout   time.Duration
	// CardTTL sets each card's expiration relative to its creation.
	CardTTL time.Duration
	// ActionBaseURL prefixes action hrefs; empty leaves them relative to the
	// connector.
	ActionBaseURL string
	ImageURL      string
	Breaker       httpclient.BreakerSettings
}

// Validate fills defaults and rejects unusable configuration.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("jira: base url is required")
	}
	if c.JQL == "" {
		c.JQL = DefaultJQL
	}
	if c.FetchSize <= 0 {
		c.FetchSize = DefaultFetchSize
	}
	if c.FetchSize > MaxFetchSize {
		c.FetchSize = MaxFetchSize
	}
	return nil
}

// Connector is the Jira card connector.
type Connector struct {
	client *httpclient.Client
	cfg    Config
	logger logger.Logger
	now    func() time.Time
}

var _ connectors.Connector = (*Connector)(nil)

func New(cfg Config, log logger.Logger) (*Connector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := httpclient.NewClient(httpclient.Config{
		Service:  Name,
		BaseURL:  cfg.BaseURL,
		Timeout:  cfg.Timeout,
		Username: cfg.Email,
		Password: cfg.APIToken,
		Breaker:  cfg.Breaker,
	})
	if err != nil {
		return nil, err
	}
	return &Connector{
		client: client,
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"connector": Name}),
		now:    time.Now,
	}, nil
}

func (c *Connector) Name() string { return Name }

// Cards returns one card per matching issue. When the request carries issue
// keys only those issues are searched; an empty key list yields no cards.
func (c *Connector) Cards(ctx context.Context, req *connectors.CardRequest) ([]*card.Card, error) {
	keys, filtered := req.Values(IssueToken)
	if filtered && len(keys) == 0 {
		return nil, nil
	}
	for _, k := range keys {
		if !issueKeyPattern.MatchString(k) {
			return nil, apperrors.NewInvalidCardRequestError(fmt.Sprintf("invalid issue key %q", k))
		}
	}

	jql := buildJQL(c.cfg.JQL, c.cfg.Projects, keys)
	query := url.Values{
		"jql":        {jql},
		"maxResults": {strconv.Itoa(c.cfg.FetchSize)},
		"fields":     {searchFields},
	}

	var result SearchResult
	if err := c.client.GetJSON(ctx, "/rest/api/3/search", query, &result); err != nil {
		c.logger.Error("Issue search failed", map[string]interface{}{"jql": jql, "error": err})
		return nil, err
	}

	now := c.now()
	cards := make([]*card.Card, 0, len(result.Issues))
	for _, issue := range result.Issues {
		if issue == nil || issue.Key == "" {
			continue
		}
		cards = append(cards, c.issueCard(issue, now))
	}

	metrics.CardsBuilt.WithLabelValues(Name).Add(float64(len(cards)))
	c.logger.Info("Built cards", map[string]interface{}{
		"count": len(cards),
		"total": result.Total,
	})
	return cards, nil
}

// Comment adds a comment to an issue.
func (c *Connector) Comment(ctx context.Context, issueKey, body string) error {
	if !issueKeyPattern.MatchString(issueKey) {
		return apperrors.NewInvalidCardRequestError(fmt.Sprintf("invalid issue key %q", issueKey))
	}
	if strings.TrimSpace(body) == "" {
		return apperrors.NewInvalidCardRequestError("comment must not be empty")
	}

	path := fmt.Sprintf("/rest/api/3/issue/%s/comment", issueKey)
	payload := map[string]any{"body": document(body)}
	if err := c.client.PostJSON(ctx, path, payload, nil); err != nil {
		return err
	}
	c.logger.Info("Comment added", map[string]interface{}{"issueKey": issueKey})
	return nil
}

// Watch adds the authenticated user as a watcher of an issue.
func (c *Connector) Watch(ctx context.Context, issueKey string) error {
	if !issueKeyPattern.MatchString(issueKey) {
		return apperrors.NewInvalidCardRequestError(fmt.Sprintf("invalid issue key %q", issueKey))
	}

	path := fmt.Sprintf("/rest/api/3/issue/%s/watchers", issueKey)
	if err := c.client.PostJSON(ctx, path, nil, nil); err != nil {
		return err
	}
	c.logger.Info("Watching issue", map[string]interface{}{"issueKey": issueKey})
	return nil
}

// buildJQL narrows base to projects and keys. An ORDER BY clause in base is
// kept at the end.
func buildJQL(base string, projects, keys []string) string {
	where, order := splitOrderBy(base)

	var clauses []string
	if len(keys) > 0 {
		clauses = append(clauses, fmt.Sprintf("key in (%s)", strings.Join(keys, ", ")))
	}
	if len(projects) > 0 {
		quoted := make([]string, len(projects))
		for i, p := range projects {
			quoted[i] = strconv.Quote(p)
		}
		clauses = append(clauses, fmt.Sprintf("project in (%s)", strings.Join(quoted, ", ")))
	}
	if where != "" {
		if len(clauses) > 0 {
			where = "(" + where + ")"
		}
		clauses = append(clauses, where)
	}

	jql := strings.Join(clauses, " AND ")
	if order != "" {
		if jql != "" {
			jql += " "
		}
		jql += order
	}
	return jql
}

func splitOrderBy(jql string) (string, string) {
	jql = strings.TrimSpace(jql)
	idx := strings.Index(strings.ToUpper(jql), "ORDER BY")
	if idx < 0 {
		return jql, ""
	}
	return strings.TrimSpace(jql[:idx]), strings.TrimSpace(jql[idx:])
}
