package card

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// Action is something the user can do from the card, executed by the hub as an
// HTTP request against the connector.
type Action struct {
	id                     *string
	actionKey              *string
	label                  *string
	completedLabel         *string
	primary                bool
	mutuallyExclusiveSetID *string
	method                 *string
	url                    *Link
	request                map[string]string
	userInput              []*ActionInputField
	contentType            *string
	sealed                 bool
}

// Common action keys understood by the hub.
const (
	ActionKeyDirect     = "DIRECT"
	ActionKeyUserInput  = "USER_INPUT"
	ActionKeyOpenInApp  = "OPEN_IN"
	ActionKeyInstallApp = "INSTALL_APP"
)

func (a *Action) ID() string                     { return deref(a.id) }
func (a *Action) ActionKey() string              { return deref(a.actionKey) }
func (a *Action) Label() string                  { return deref(a.label) }
func (a *Action) CompletedLabel() string         { return deref(a.completedLabel) }
func (a *Action) Primary() bool                  { return a.primary }
func (a *Action) MutuallyExclusiveSetID() string { return deref(a.mutuallyExclusiveSetID) }
func (a *Action) Method() string                 { return deref(a.method) }
func (a *Action) URL() *Link                     { return a.url }
func (a *Action) ContentType() string            { return deref(a.contentType) }

// Request returns a copy of the request parameters.
func (a *Action) Request() map[string]string {
	return cloneMap(a.request)
}

// UserInput returns a copy of the input fields.
func (a *Action) UserInput() []*ActionInputField {
	return cloneSlice(a.userInput)
}

// Hash covers everything but the id, which is random per construction.
func (a *Action) Hash() Digest {
	if a == nil {
		return nullDigest
	}
	return Hash(
		F("action_key", OptString(a.actionKey)),
		F("label", OptString(a.label)),
		F("completed_label", OptString(a.completedLabel)),
		F("primary", Bool(a.primary)),
		F("mutually_exclusive_set_id", OptString(a.mutuallyExclusiveSetID)),
		F("type", OptString(a.method)),
		F("url", Nested(a.url.Hash())),
		F("request", Nested(HashStringMap(a.request))),
		F("user_input", Nested(hashEach(a.userInput))),
		F("content_type", OptString(a.contentType)),
	)
}

func (a *Action) warnings() []Warning {
	var ws []Warning
	if isBlank(a.label) {
		ws = append(ws, Warning{Field: "label", Message: "required field missing", Code: WarnRequiredFieldMissing})
	}
	if a.url == nil || isBlank(a.url.href) {
		ws = append(ws, Warning{Field: "url", Message: "required field missing", Code: WarnRequiredFieldMissing})
	}
	return ws
}

type actionJSON struct {
	ID                     *string             `json:"id,omitempty"`
	ActionKey              *string             `json:"action_key,omitempty"`
	Label                  *string             `json:"label,omitempty"`
	CompletedLabel         *string             `json:"completed_label,omitempty"`
	Primary                bool                `json:"primary"`
	MutuallyExclusiveSetID *string             `json:"mutually_exclusive_set_id,omitempty"`
	Type                   *string             `json:"type,omitempty"`
	URL                    *Link               `json:"url,omitempty"`
	Request                map[string]string   `json:"request,omitempty"`
	UserInput              []*ActionInputField `json:"user_input,omitempty"`
	ContentType            *string             `json:"content_type,omitempty"`
}

func (a *Action) MarshalJSON() ([]byte, error) {
	return json.Marshal(actionJSON{
		ID:                     a.id,
		ActionKey:              a.actionKey,
		Label:                  a.label,
		CompletedLabel:         a.completedLabel,
		Primary:                a.primary,
		MutuallyExclusiveSetID: a.mutuallyExclusiveSetID,
		Type:                   a.method,
		URL:                    a.url,
		Request:                a.request,
		UserInput:              a.userInput,
		ContentType:            a.contentType,
	})
}

func (a *Action) UnmarshalJSON(data []byte) error {
	if a.sealed {
		return ErrImmutable
	}
	var w actionJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*a = Action{
		id:                     w.ID,
		actionKey:              w.ActionKey,
		label:                  w.Label,
		completedLabel:         w.CompletedLabel,
		primary:                w.Primary,
		mutuallyExclusiveSetID: w.MutuallyExclusiveSetID,
		method:                 w.Type,
		url:                    w.URL,
		request:                cloneMap(w.Request),
		userInput:              cloneSlice(w.UserInput),
		contentType:            w.ContentType,
		sealed:                 true,
	}
	return nil
}

type ActionBuilder struct {
	a Action
}

func NewActionBuilder() *ActionBuilder {
	return &ActionBuilder{}
}

// SetID overrides the generated id. It does not affect the hash.
func (b *ActionBuilder) SetID(id string) *ActionBuilder {
	b.a.id = strPtr(id)
	return b
}

func (b *ActionBuilder) SetActionKey(key string) *ActionBuilder {
	b.a.actionKey = strPtr(key)
	return b
}

func (b *ActionBuilder) SetLabel(label string) *ActionBuilder {
	b.a.label = strPtr(label)
	return b
}

func (b *ActionBuilder) SetCompletedLabel(label string) *ActionBuilder {
	b.a.completedLabel = strPtr(label)
	return b
}

func (b *ActionBuilder) SetPrimary(primary bool) *ActionBuilder {
	b.a.primary = primary
	return b
}

func (b *ActionBuilder) SetMutuallyExclusiveSetID(id string) *ActionBuilder {
	b.a.mutuallyExclusiveSetID = strPtr(id)
	return b
}

// SetType sets the HTTP method; it is upper-cased.
func (b *ActionBuilder) SetType(method string) *ActionBuilder {
	b.a.method = strPtr(strings.ToUpper(method))
	return b
}

func (b *ActionBuilder) SetURL(url *Link) *ActionBuilder {
	b.a.url = url
	return b
}

func (b *ActionBuilder) AddRequestParam(key, value string) *ActionBuilder {
	if b.a.request == nil {
		b.a.request = make(map[string]string)
	}
	b.a.request[key] = value
	return b
}

// AddUserInput appends in call order; nil fields keep their position.
func (b *ActionBuilder) AddUserInput(fields ...*ActionInputField) *ActionBuilder {
	b.a.userInput = append(b.a.userInput, fields...)
	return b
}

func (b *ActionBuilder) SetContentType(contentType string) *ActionBuilder {
	b.a.contentType = strPtr(contentType)
	return b
}

// Build defaults the method to POST and generates an id when none was set.
func (b *ActionBuilder) Build() *Action {
	a := b.a
	if isBlank(a.id) {
		a.id = strPtr(uuid.NewString())
	}
	if a.method == nil {
		a.method = strPtr(http.MethodPost)
	}
	a.request = cloneMap(a.request)
	a.userInput = cloneSlice(a.userInput)
	a.sealed = true
	b.a = Action{}
	return &a
}
