package card

import "encoding/json"

// BannerItem is one entry of a card banner (typically an image or video).
type BannerItem struct {
	itemType    *string
	href        *string
	title       *string
	description *string
	sealed      bool
}

func (i *BannerItem) Type() string        { return deref(i.itemType) }
func (i *BannerItem) Href() string        { return deref(i.href) }
func (i *BannerItem) Title() string       { return deref(i.title) }
func (i *BannerItem) Description() string { return deref(i.description) }

func (i *BannerItem) Hash() Digest {
	if i == nil {
		return nullDigest
	}
	return Hash(
		F("type", OptString(i.itemType)),
		F("href", OptString(i.href)),
		F("title", OptString(i.title)),
		F("description", OptString(i.description)),
	)
}

type bannerItemJSON struct {
	Type        *string `json:"type,omitempty"`
	Href        *string `json:"href,omitempty"`
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (i *BannerItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(bannerItemJSON{
		Type:        i.itemType,
		Href:        i.href,
		Title:       i.title,
		Description: i.description,
	})
}

func (i *BannerItem) UnmarshalJSON(data []byte) error {
	if i.sealed {
		return ErrImmutable
	}
	var w bannerItemJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*i = BannerItem{itemType: w.Type, href: w.Href, title: w.Title, description: w.Description, sealed: true}
	return nil
}

type BannerItemBuilder struct {
	item BannerItem
}

func NewBannerItemBuilder() *BannerItemBuilder {
	return &BannerItemBuilder{}
}

func (b *BannerItemBuilder) SetType(t string) *BannerItemBuilder {
	b.item.itemType = strPtr(t)
	return b
}

func (b *BannerItemBuilder) SetHref(href string) *BannerItemBuilder {
	b.item.href = strPtr(href)
	return b
}

func (b *BannerItemBuilder) SetTitle(title string) *BannerItemBuilder {
	b.item.title = strPtr(title)
	return b
}

func (b *BannerItemBuilder) SetDescription(description string) *BannerItemBuilder {
	b.item.description = strPtr(description)
	return b
}

func (b *BannerItemBuilder) Build() *BannerItem {
	item := b.item
	item.sealed = true
	b.item = BannerItem{}
	return &item
}

// Banner is an ordered list of banner items shown above the card header.
type Banner struct {
	items  []*BannerItem
	sealed bool
}

// Items returns a copy of the banner items.
func (b *Banner) Items() []*BannerItem {
	return cloneSlice(b.items)
}

func (b *Banner) Hash() Digest {
	if b == nil {
		return nullDigest
	}
	return Hash(F("items", Nested(hashEach(b.items))))
}

type bannerJSON struct {
	Items []*BannerItem `json:"items,omitempty"`
}

func (b *Banner) MarshalJSON() ([]byte, error) {
	return json.Marshal(bannerJSON{Items: b.items})
}

func (b *Banner) UnmarshalJSON(data []byte) error {
	if b.sealed {
		return ErrImmutable
	}
	var w bannerJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Banner{items: cloneSlice(w.Items), sealed: true}
	return nil
}

type BannerBuilder struct {
	items []*BannerItem
}

func NewBannerBuilder() *BannerBuilder {
	return &BannerBuilder{}
}

// AddItem appends in call order; nil items keep their position.
func (b *BannerBuilder) AddItem(items ...*BannerItem) *BannerBuilder {
	b.items = append(b.items, items...)
	return b
}

func (b *BannerBuilder) Build() *Banner {
	banner := &Banner{items: cloneSlice(b.items), sealed: true}
	*b = BannerBuilder{}
	return banner
}
