package jira

import (
	"strings"
	"time"
)

// =============================================================================
// JIRA API RESPONSE TYPES
// =============================================================================

// User represents a Jira user.
type User struct {
	AccountID    string `json:"accountId"`
	DisplayName  string `json:"displayName"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// Issue represents a Jira issue.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the issue fields a card is built from.
type IssueFields struct {
	Summary     string        `json:"summary"`
	Description any           `json:"description,omitempty"`
	Status      *Status       `json:"status,omitempty"`
	Priority    *Priority     `json:"priority,omitempty"`
	IssueType   *IssueType    `json:"issuetype,omitempty"`
	Project     *Project      `json:"project,omitempty"`
	Reporter    *User         `json:"reporter,omitempty"`
	Assignee    *User         `json:"assignee,omitempty"`
	Labels      []string      `json:"labels,omitempty"`
	Created     string        `json:"created,omitempty"`
	Updated     string        `json:"updated,omitempty"`
	Comment     *CommentsPage `json:"comment,omitempty"`
}

type Project struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type Status struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Priority struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type IssueType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Comment represents an issue comment. Body is plain text on API v2 and an
// Atlassian document on v3.
type Comment struct {
	ID      string `json:"id"`
	Author  *User  `json:"author,omitempty"`
	Body    any    `json:"body,omitempty"`
	Created string `json:"created,omitempty"`
}

// CommentsPage is the comment field embedded in an issue.
type CommentsPage struct {
	StartAt    int        `json:"startAt"`
	MaxResults int        `json:"maxResults"`
	Total      int        `json:"total"`
	Comments   []*Comment `json:"comments"`
}

// SearchResult represents a JQL search response.
type SearchResult struct {
	StartAt    int      `json:"startAt"`
	MaxResults int      `json:"maxResults"`
	Total      int      `json:"total"`
	Issues     []*Issue `json:"issues"`
}

// =============================================================================
// HELPERS
// =============================================================================

func parseJiraTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	layouts := []string{
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05-0700",
		time.RFC3339,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// documentText flattens an Atlassian document (or a plain string) into text.
// Paragraph-level blocks are separated by newlines.
func documentText(doc any) string {
	switch d := doc.(type) {
	case nil:
		return ""
	case string:
		return d
	case map[string]any:
		var b strings.Builder
		writeNode(&b, d)
		return strings.TrimSpace(b.String())
	default:
		return ""
	}
}

func writeNode(b *strings.Builder, node map[string]any) {
	nodeType, _ := node["type"].(string)
	switch nodeType {
	case "text":
		text, _ := node["text"].(string)
		b.WriteString(text)
		return
	case "hardBreak":
		b.WriteString("\n")
		return
	case "mention":
		if attrs, ok := node["attrs"].(map[string]any); ok {
			text, _ := attrs["text"].(string)
			b.WriteString(text)
		}
		return
	}

	children, _ := node["content"].([]any)
	for _, child := range children {
		if m, ok := child.(map[string]any); ok {
			writeNode(b, m)
		}
	}

	switch nodeType {
	case "paragraph", "heading", "codeBlock", "listItem", "blockquote":
		b.WriteString("\n")
	}
}

// document wraps plain text in a single-paragraph Atlassian document.
func document(text string) map[string]any {
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": []map[string]any{
			{
				"type": "paragraph",
				"content": []map[string]any{
					{"type": "text", "text": text},
				},
			},
		},
	}
}
