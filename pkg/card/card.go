// Package card models the notification cards connectors send to the hub, and
// the canonical fingerprint the hub uses to recognize the same notification
// across requests.
//
// Every value object is immutable once built. Builders are mutable, not safe
// for concurrent use, and reset themselves on Build so one builder can stamp
// out a batch of similar objects.
package card

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Card is a single notification unit sent to the hub.
type Card struct {
	id             uuid.UUID
	creationDate   *time.Time
	expirationDate *time.Time
	importance     *int
	name           *string
	template       *Link
	header         *Header
	body           *Body
	actions        []*Action
	image          *Link
	tags           []string
	links          []*OpenInLink
	sticky         *Sticky
	banner         *Banner
	hash           string
	sealed         bool
}

func (c *Card) ID() uuid.UUID       { return c.id }
func (c *Card) Name() string        { return deref(c.name) }
func (c *Card) Template() *Link     { return c.template }
func (c *Card) Header() *Header     { return c.header }
func (c *Card) Body() *Body         { return c.body }
func (c *Card) Image() *Link        { return c.image }
func (c *Card) Sticky() *Sticky     { return c.sticky }
func (c *Card) Banner() *Banner     { return c.banner }
func (c *Card) Hash() string        { return c.hash }
func (c *Card) HasExpiration() bool { return c.expirationDate != nil }

func (c *Card) CreationDate() time.Time {
	if c.creationDate == nil {
		return time.Time{}
	}
	return *c.creationDate
}

func (c *Card) ExpirationDate() time.Time {
	if c.expirationDate == nil {
		return time.Time{}
	}
	return *c.expirationDate
}

// Importance returns the importance and whether one was set.
func (c *Card) Importance() (int, bool) {
	if c.importance == nil {
		return 0, false
	}
	return *c.importance, true
}

// Actions returns a copy of the actions in order.
func (c *Card) Actions() []*Action {
	return cloneSlice(c.actions)
}

// Tags returns the tags sorted and de-duplicated.
func (c *Card) Tags() []string {
	return cloneSlice(c.tags)
}

// Links returns a copy of the open-in links.
func (c *Card) Links() []*OpenInLink {
	return cloneSlice(c.links)
}

// ComputeHash fingerprints the card from its content. The id, the creation and
// expiration dates and the importance are left out so the same logical card
// requested again later fingerprints the same.
func (c *Card) ComputeHash() Digest {
	return Hash(
		F("name", OptString(c.name)),
		F("template", Nested(c.template.Hash())),
		F("header", Nested(c.header.Hash())),
		F("body", Nested(c.body.Hash())),
		F("actions", Nested(hashEach(c.actions))),
		F("image", Nested(c.image.Hash())),
		F("tags", Nested(HashSet(c.tags...))),
		F("links", Nested(hashEach(c.links))),
		F("sticky", Nested(c.sticky.Hash())),
		F("banner", Nested(c.banner.Hash())),
	)
}

// Validate reports what a strict hub would reject. Construction itself never
// fails.
func (c *Card) Validate() []Warning {
	var ws []Warning
	if isBlank(c.name) {
		ws = append(ws, Warning{Field: "name", Message: "required field missing", Code: WarnRequiredFieldMissing})
	}
	if c.header == nil || isBlank(c.header.title) {
		ws = append(ws, Warning{Field: "header.title", Message: "required field missing", Code: WarnRequiredFieldMissing})
	}
	for i, a := range c.actions {
		if a == nil {
			continue
		}
		prefix := fmt.Sprintf("actions[%d]", i)
		ws = append(ws, prefixWarnings(prefix, a.warnings())...)
		for j, in := range a.userInput {
			if in == nil {
				continue
			}
			ws = append(ws, prefixWarnings(fmt.Sprintf("%s.user_input[%d]", prefix, j), in.warnings())...)
		}
	}
	return ws
}

type cardJSON struct {
	ID             *uuid.UUID    `json:"id,omitempty"`
	CreationDate   *time.Time    `json:"creation_date,omitempty"`
	ExpirationDate *time.Time    `json:"expiration_date,omitempty"`
	Importance     *int          `json:"importance,omitempty"`
	Name           *string       `json:"name,omitempty"`
	Template       *Link         `json:"template,omitempty"`
	Header         *Header       `json:"header,omitempty"`
	Body           *Body         `json:"body,omitempty"`
	Actions        []*Action     `json:"actions,omitempty"`
	Image          *Link         `json:"image,omitempty"`
	Tags           []string      `json:"tags,omitempty"`
	Links          []*OpenInLink `json:"links,omitempty"`
	Sticky         *Sticky       `json:"sticky,omitempty"`
	Banner         *Banner       `json:"banner,omitempty"`
	Hash           string        `json:"hash"`
}

func (c *Card) MarshalJSON() ([]byte, error) {
	w := cardJSON{
		CreationDate:   c.creationDate,
		ExpirationDate: c.expirationDate,
		Importance:     c.importance,
		Name:           c.name,
		Template:       c.template,
		Header:         c.header,
		Body:           c.body,
		Actions:        c.actions,
		Image:          c.image,
		Tags:           c.tags,
		Links:          c.links,
		Sticky:         c.sticky,
		Banner:         c.banner,
		Hash:           c.hash,
	}
	if c.id != uuid.Nil {
		id := c.id
		w.ID = &id
	}
	return json.Marshal(w)
}

// UnmarshalJSON restores a card exactly as it was sent, including its hash. A
// missing hash is recomputed so a decoded card always carries one. Decoding
// into a card that was already built or decoded returns ErrImmutable.
func (c *Card) UnmarshalJSON(data []byte) error {
	if c.sealed {
		return ErrImmutable
	}
	var w cardJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*c = Card{
		creationDate:   copyTime(w.CreationDate),
		expirationDate: copyTime(w.ExpirationDate),
		importance:     w.Importance,
		name:           w.Name,
		template:       w.Template,
		header:         w.Header,
		body:           w.Body,
		actions:        cloneSlice(w.Actions),
		image:          w.Image,
		tags:           sortedUnique(w.Tags),
		links:          cloneSlice(w.Links),
		sticky:         w.Sticky,
		banner:         w.Banner,
		hash:           w.Hash,
		sealed:         true,
	}
	if w.ID != nil {
		c.id = *w.ID
	}
	if c.hash == "" {
		c.hash = string(c.ComputeHash())
	}
	return nil
}

// Builder accumulates a card. The zero value is ready to use.
type Builder struct {
	creationDate   *time.Time
	expirationDate *time.Time
	importance     *int
	name           *string
	template       *Link
	header         *Header
	body           *Body
	actions        []*Action
	image          *Link
	tags           []string
	links          []*OpenInLink
	sticky         *Sticky
	banner         *Banner
	hash           *string
}

func NewBuilder() *Builder {
	return &Builder{}
}

// SetCreationDate overrides the default of the build time.
func (b *Builder) SetCreationDate(t time.Time) *Builder {
	b.creationDate = utcPtr(t)
	return b
}

func (b *Builder) SetExpirationDate(t time.Time) *Builder {
	b.expirationDate = utcPtr(t)
	return b
}

func (b *Builder) SetImportance(importance int) *Builder {
	b.importance = &importance
	return b
}

func (b *Builder) SetName(name string) *Builder {
	b.name = strPtr(name)
	return b
}

func (b *Builder) SetTemplate(template *Link) *Builder {
	b.template = template
	return b
}

func (b *Builder) SetHeader(header *Header) *Builder {
	b.header = header
	return b
}

func (b *Builder) SetBody(body *Body) *Builder {
	b.body = body
	return b
}

// AddAction appends in call order; nil actions keep their position.
func (b *Builder) AddAction(actions ...*Action) *Builder {
	b.actions = append(b.actions, actions...)
	return b
}

func (b *Builder) SetImage(image *Link) *Builder {
	b.image = image
	return b
}

// AddTag adds to the tag set. Order and duplicates do not matter.
func (b *Builder) AddTag(tags ...string) *Builder {
	b.tags = append(b.tags, tags...)
	return b
}

// AddLinks appends open-in links in call order; nil links keep their position.
func (b *Builder) AddLinks(links ...*OpenInLink) *Builder {
	b.links = append(b.links, links...)
	return b
}

func (b *Builder) SetSticky(sticky *Sticky) *Builder {
	b.sticky = sticky
	return b
}

func (b *Builder) SetBanner(banner *Banner) *Builder {
	b.banner = banner
	return b
}

// SetHash supplies the fingerprint directly. A non-blank value replaces the
// computed hash entirely.
func (b *Builder) SetHash(hash string) *Builder {
	b.hash = strPtr(hash)
	return b
}

// Build finalizes the card with a fresh time-ordered id and resets the builder.
func (b *Builder) Build() *Card {
	c := &Card{
		id:             uuid.Must(uuid.NewV7()),
		creationDate:   b.creationDate,
		expirationDate: b.expirationDate,
		importance:     b.importance,
		name:           b.name,
		template:       b.template,
		header:         b.header,
		body:           b.body,
		actions:        cloneSlice(b.actions),
		image:          b.image,
		tags:           sortedUnique(b.tags),
		links:          cloneSlice(b.links),
		sticky:         b.sticky,
		banner:         b.banner,
		sealed:         true,
	}
	if c.creationDate == nil {
		c.creationDate = utcPtr(time.Now())
	}
	if isBlank(b.hash) {
		c.hash = string(c.ComputeHash())
	} else {
		c.hash = *b.hash
	}
	*b = Builder{}
	return c
}

// BuildStrict returns a *ValidationError instead of a card when Validate
// reports anything. The builder is reset either way.
func (b *Builder) BuildStrict() (*Card, error) {
	c := b.Build()
	if ws := c.Validate(); len(ws) > 0 {
		return nil, &ValidationError{Object: "card", Warnings: ws}
	}
	return c, nil
}

// Cards is the response envelope returned to the hub.
type Cards struct {
	Cards []*Card `json:"cards"`
}

// NewCards never returns a nil slice so an empty response encodes as
// {"cards":[]}.
func NewCards(cards ...*Card) *Cards {
	out := make([]*Card, 0, len(cards))
	for _, c := range cards {
		if c != nil {
			out = append(out, c)
		}
	}
	return &Cards{Cards: out}
}

// Hashes returns the fingerprints in card order.
func (c *Cards) Hashes() []string {
	out := make([]string, len(c.Cards))
	for i, card := range c.Cards {
		out[i] = card.Hash()
	}
	return out
}
