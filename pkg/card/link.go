package card

import "encoding/json"

// Link is an href with optional display text.
type Link struct {
	href   *string
	text   *string
	sealed bool
}

// NewLink is shorthand for a Link with only an href.
func NewLink(href string) *Link {
	return NewLinkBuilder().SetHref(href).Build()
}

func (l *Link) Href() string { return deref(l.href) }
func (l *Link) Text() string { return deref(l.text) }

func (l *Link) Hash() Digest {
	if l == nil {
		return nullDigest
	}
	return Hash(
		F("href", OptString(l.href)),
		F("text", OptString(l.text)),
	)
}

type linkJSON struct {
	Href *string `json:"href,omitempty"`
	Text *string `json:"text,omitempty"`
}

func (l *Link) MarshalJSON() ([]byte, error) {
	return json.Marshal(linkJSON{Href: l.href, Text: l.text})
}

func (l *Link) UnmarshalJSON(data []byte) error {
	if l.sealed {
		return ErrImmutable
	}
	var w linkJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = Link{href: w.Href, text: w.Text, sealed: true}
	return nil
}

type LinkBuilder struct {
	href *string
	text *string
}

func NewLinkBuilder() *LinkBuilder {
	return &LinkBuilder{}
}

func (b *LinkBuilder) SetHref(href string) *LinkBuilder {
	b.href = strPtr(href)
	return b
}

func (b *LinkBuilder) SetText(text string) *LinkBuilder {
	b.text = strPtr(text)
	return b
}

func (b *LinkBuilder) Build() *Link {
	l := &Link{href: b.href, text: b.text, sealed: true}
	*b = LinkBuilder{}
	return l
}

// OpenInLink points the hub at the item in the third-party system's own UI.
type OpenInLink struct {
	href   *string
	text   *string
	sealed bool
}

func (l *OpenInLink) Href() string { return deref(l.href) }
func (l *OpenInLink) Text() string { return deref(l.text) }

func (l *OpenInLink) Hash() Digest {
	if l == nil {
		return nullDigest
	}
	return Hash(
		F("href", OptString(l.href)),
		F("text", OptString(l.text)),
	)
}

func (l *OpenInLink) MarshalJSON() ([]byte, error) {
	return json.Marshal(linkJSON{Href: l.href, Text: l.text})
}

func (l *OpenInLink) UnmarshalJSON(data []byte) error {
	if l.sealed {
		return ErrImmutable
	}
	var w linkJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*l = OpenInLink{href: w.Href, text: w.Text, sealed: true}
	return nil
}

type OpenInLinkBuilder struct {
	href *string
	text *string
}

func NewOpenInLinkBuilder() *OpenInLinkBuilder {
	return &OpenInLinkBuilder{}
}

func (b *OpenInLinkBuilder) SetHref(href string) *OpenInLinkBuilder {
	b.href = strPtr(href)
	return b
}

func (b *OpenInLinkBuilder) SetText(text string) *OpenInLinkBuilder {
	b.text = strPtr(text)
	return b
}

func (b *OpenInLinkBuilder) Build() *OpenInLink {
	l := &OpenInLink{href: b.href, text: b.text, sealed: true}
	*b = OpenInLinkBuilder{}
	return l
}
