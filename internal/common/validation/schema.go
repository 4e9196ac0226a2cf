package validation

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"hub-connectors/pkg/card"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed card_schema.json
var cardSchema string

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Summary joins the errors into one line, e.g. for a BPMN error message.
func (r *ValidationResult) Summary() string {
	parts := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		parts[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(parts, "; ")
}

// CardValidator checks cards against the hub's card contract. It is safe for
// concurrent use.
type CardValidator struct {
	schema *gojsonschema.Schema
}

// NewCardValidator compiles the embedded card contract.
func NewCardValidator() (*CardValidator, error) {
	return NewValidator(cardSchema)
}

// NewValidator compiles an arbitrary JSON schema document.
func NewValidator(schemaJSON string) (*CardValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &CardValidator{schema: schema}, nil
}

// ValidateCard validates c's wire form.
func (v *CardValidator) ValidateCard(c *card.Card) (*ValidationResult, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode card: %w", err)
	}
	return v.ValidateDocument(data)
}

// ValidateDocument validates raw JSON.
func (v *CardValidator) ValidateDocument(data []byte) (*ValidationResult, error) {
	result, err := v.schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("validation error: %w", err)
	}

	out := &ValidationResult{Valid: result.Valid()}
	for _, desc := range result.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   desc.Field(),
			Message: desc.Description(),
			Code:    desc.Type(),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool {
		return out.Errors[i].Field < out.Errors[j].Field
	})
	return out, nil
}

// FromWarnings converts builder warnings into a validation result.
func FromWarnings(ws []card.Warning) *ValidationResult {
	out := &ValidationResult{Valid: len(ws) == 0}
	for _, w := range ws {
		out.Errors = append(out.Errors, ValidationError{Field: w.Field, Message: w.Message, Code: w.Code})
	}
	return out
}
