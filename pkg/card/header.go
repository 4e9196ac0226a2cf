package card

import "encoding/json"

// Header holds the card title, its subtitles and optional header links.
type Header struct {
	title     *string
	subtitles []string
	links     []*Link
	sealed    bool
}

func (h *Header) Title() string { return deref(h.title) }

// Subtitles returns a copy of the subtitles in order.
func (h *Header) Subtitles() []string {
	return cloneSlice(h.subtitles)
}

// Links returns a copy of the header links.
func (h *Header) Links() []*Link {
	return cloneSlice(h.links)
}

func (h *Header) Hash() Digest {
	if h == nil {
		return nullDigest
	}
	return Hash(
		F("title", OptString(h.title)),
		F("subtitle", Nested(HashStrings(h.subtitles...))),
		F("links", Nested(hashEach(h.links))),
	)
}

type headerJSON struct {
	Title    *string  `json:"title,omitempty"`
	Subtitle []string `json:"subtitle,omitempty"`
	Links    []*Link  `json:"links,omitempty"`
}

func (h *Header) MarshalJSON() ([]byte, error) {
	return json.Marshal(headerJSON{Title: h.title, Subtitle: h.subtitles, Links: h.links})
}

// UnmarshalJSON only decodes into a fresh Header. A header reached through a
// card accessor returns ErrImmutable.
func (h *Header) UnmarshalJSON(data []byte) error {
	if h.sealed {
		return ErrImmutable
	}
	var w headerJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*h = Header{title: w.Title, subtitles: cloneSlice(w.Subtitle), links: cloneSlice(w.Links), sealed: true}
	return nil
}

type HeaderBuilder struct {
	title     *string
	subtitles []string
	links     []*Link
}

func NewHeaderBuilder() *HeaderBuilder {
	return &HeaderBuilder{}
}

func (b *HeaderBuilder) SetTitle(title string) *HeaderBuilder {
	b.title = strPtr(title)
	return b
}

// AddSubtitle appends in call order; empty strings are kept.
func (b *HeaderBuilder) AddSubtitle(subtitles ...string) *HeaderBuilder {
	b.subtitles = append(b.subtitles, subtitles...)
	return b
}

// AddLinks appends in call order; nil links keep their position.
func (b *HeaderBuilder) AddLinks(links ...*Link) *HeaderBuilder {
	b.links = append(b.links, links...)
	return b
}

func (b *HeaderBuilder) Build() *Header {
	h := &Header{title: b.title, subtitles: cloneSlice(b.subtitles), links: cloneSlice(b.links), sealed: true}
	*b = HeaderBuilder{}
	return h
}
