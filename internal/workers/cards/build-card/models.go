// internal/workers/cards/build-card/models.go
package buildcard

import "hub-connectors/pkg/card"

// Input describes a card in process variables.
type Input struct {
	Name             string        `json:"name"`
	Template         string        `json:"template,omitempty"`
	Header           *HeaderInput  `json:"header"`
	Body             *BodyInput    `json:"body,omitempty"`
	Actions          []ActionInput `json:"actions,omitempty"`
	Tags             []string      `json:"tags,omitempty"`
	Links            []LinkInput   `json:"links,omitempty"`
	Image            string        `json:"image,omitempty"`
	Importance       *int          `json:"importance,omitempty"`
	ExpiresInSeconds int64         `json:"expires_in_seconds,omitempty"`
	// Hash overrides the computed fingerprint when set.
	Hash string `json:"hash,omitempty"`
}

type HeaderInput struct {
	Title     string   `json:"title"`
	Subtitles []string `json:"subtitles,omitempty"`
}

type BodyInput struct {
	Description string       `json:"description,omitempty"`
	Fields      []FieldInput `json:"fields,omitempty"`
}

type FieldInput struct {
	Type        string              `json:"type"`
	Title       string              `json:"title,omitempty"`
	Description string              `json:"description,omitempty"`
	Content     []map[string]string `json:"content,omitempty"`
}

type ActionInput struct {
	ActionKey      string            `json:"action_key"`
	Label          string            `json:"label"`
	CompletedLabel string            `json:"completed_label,omitempty"`
	Primary        bool              `json:"primary,omitempty"`
	Type           string            `json:"type,omitempty"` // HTTP method, POST when empty
	URL            string            `json:"url"`
	Request        map[string]string `json:"request,omitempty"`
	UserInput      []UserInputField  `json:"user_input,omitempty"`
}

type UserInputField struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Format    string `json:"format,omitempty"`
	MinLength int    `json:"min_length,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
}

type LinkInput struct {
	Href string `json:"href"`
	Text string `json:"text,omitempty"`
}

// Output is written back to the process instance.
type Output struct {
	Card   *card.Card `json:"card"`
	CardID string     `json:"cardId"`
	Hash   string     `json:"hash"`
}
