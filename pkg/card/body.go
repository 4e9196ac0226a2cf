package card

import "encoding/json"

// Body field types understood by the hub.
const (
	FieldTypeGeneral         = "GENERAL"
	FieldTypeComment         = "COMMENT"
	FieldTypeAttachmentURL   = "ATTACHMENT_URL"
	FieldTypeTripInfo        = "TRIPINFO"
	FieldTypeSection         = "SECTION"
	ItemTypeGeneral          = "GENERAL"
	ItemTypeAttachmentURL    = "ATTACHMENT_URL"
	ItemTypeAttachmentInline = "ATTACHMENT"
)

// BodyFieldItem is a nested entry of a body field, e.g. one comment or one
// attachment.
type BodyFieldItem struct {
	itemType       *string
	title          *string
	description    *string
	attachmentName *string
	attachmentURL  *string
	attachmentBody []byte
	contentType    *string
	contentLength  *int64
	sealed         bool
}

func (i *BodyFieldItem) Type() string           { return deref(i.itemType) }
func (i *BodyFieldItem) Title() string          { return deref(i.title) }
func (i *BodyFieldItem) Description() string    { return deref(i.description) }
func (i *BodyFieldItem) AttachmentName() string { return deref(i.attachmentName) }
func (i *BodyFieldItem) AttachmentURL() string  { return deref(i.attachmentURL) }
func (i *BodyFieldItem) ContentType() string    { return deref(i.contentType) }

// AttachmentBody returns a copy of the inline attachment bytes.
func (i *BodyFieldItem) AttachmentBody() []byte {
	return cloneSlice(i.attachmentBody)
}

// ContentLength returns -1 when unknown.
func (i *BodyFieldItem) ContentLength() int64 {
	if i.contentLength == nil {
		return -1
	}
	return *i.contentLength
}

// Hash leaves out the attachment url and body: the same attachment served from
// a different location is the same item.
func (i *BodyFieldItem) Hash() Digest {
	if i == nil {
		return nullDigest
	}
	return Hash(
		F("type", OptString(i.itemType)),
		F("title", OptString(i.title)),
		F("description", OptString(i.description)),
		F("attachment_name", OptString(i.attachmentName)),
		F("content_type", OptString(i.contentType)),
		F("content_length", OptInt64(i.contentLength)),
	)
}

type bodyFieldItemJSON struct {
	Type           *string `json:"type,omitempty"`
	Title          *string `json:"title,omitempty"`
	Description    *string `json:"description,omitempty"`
	AttachmentName *string `json:"attachment_name,omitempty"`
	AttachmentURL  *string `json:"attachment_url,omitempty"`
	AttachmentBody []byte  `json:"attachment_body,omitempty"`
	ContentType    *string `json:"content_type,omitempty"`
	ContentLength  *int64  `json:"content_length,omitempty"`
}

func (i *BodyFieldItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(bodyFieldItemJSON{
		Type:           i.itemType,
		Title:          i.title,
		Description:    i.description,
		AttachmentName: i.attachmentName,
		AttachmentURL:  i.attachmentURL,
		AttachmentBody: i.attachmentBody,
		ContentType:    i.contentType,
		ContentLength:  i.contentLength,
	})
}

func (i *BodyFieldItem) UnmarshalJSON(data []byte) error {
	if i.sealed {
		return ErrImmutable
	}
	var w bodyFieldItemJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*i = BodyFieldItem{
		itemType:       w.Type,
		title:          w.Title,
		description:    w.Description,
		attachmentName: w.AttachmentName,
		attachmentURL:  w.AttachmentURL,
		attachmentBody: cloneSlice(w.AttachmentBody),
		contentType:    w.ContentType,
		contentLength:  w.ContentLength,
		sealed:         true,
	}
	return nil
}

type BodyFieldItemBuilder struct {
	i BodyFieldItem
}

func NewBodyFieldItemBuilder() *BodyFieldItemBuilder {
	return &BodyFieldItemBuilder{}
}

func (b *BodyFieldItemBuilder) SetType(t string) *BodyFieldItemBuilder {
	b.i.itemType = strPtr(t)
	return b
}

func (b *BodyFieldItemBuilder) SetTitle(title string) *BodyFieldItemBuilder {
	b.i.title = strPtr(title)
	return b
}

func (b *BodyFieldItemBuilder) SetDescription(description string) *BodyFieldItemBuilder {
	b.i.description = strPtr(description)
	return b
}

func (b *BodyFieldItemBuilder) SetAttachmentName(name string) *BodyFieldItemBuilder {
	b.i.attachmentName = strPtr(name)
	return b
}

func (b *BodyFieldItemBuilder) SetAttachmentURL(url string) *BodyFieldItemBuilder {
	b.i.attachmentURL = strPtr(url)
	return b
}

func (b *BodyFieldItemBuilder) SetAttachmentBody(body []byte) *BodyFieldItemBuilder {
	b.i.attachmentBody = cloneSlice(body)
	return b
}

func (b *BodyFieldItemBuilder) SetContentType(contentType string) *BodyFieldItemBuilder {
	b.i.contentType = strPtr(contentType)
	return b
}

func (b *BodyFieldItemBuilder) SetContentLength(n int64) *BodyFieldItemBuilder {
	b.i.contentLength = &n
	return b
}

func (b *BodyFieldItemBuilder) Build() *BodyFieldItem {
	item := b.i
	item.sealed = true
	b.i = BodyFieldItem{}
	return &item
}

// BodyField is one labeled section of the card body.
type BodyField struct {
	fieldType   *string
	title       *string
	description *string
	content     []map[string]string
	items       []*BodyFieldItem
	sealed      bool
}

func (f *BodyField) Type() string        { return deref(f.fieldType) }
func (f *BodyField) Title() string       { return deref(f.title) }
func (f *BodyField) Description() string { return deref(f.description) }

// Content returns a deep copy of the content maps.
func (f *BodyField) Content() []map[string]string {
	return cloneContent(f.content)
}

// Items returns a copy of the nested items.
func (f *BodyField) Items() []*BodyFieldItem {
	return cloneSlice(f.items)
}

// Hash digests every content map key by key instead of relying on any string
// rendering of the map.
func (f *BodyField) Hash() Digest {
	if f == nil {
		return nullDigest
	}
	content := make([]Digest, len(f.content))
	for i, m := range f.content {
		if m == nil {
			content[i] = nullDigest
			continue
		}
		content[i] = HashStringMap(m)
	}
	return Hash(
		F("type", OptString(f.fieldType)),
		F("title", OptString(f.title)),
		F("description", OptString(f.description)),
		F("content", Nested(HashList(content...))),
		F("items", Nested(hashEach(f.items))),
	)
}

type bodyFieldJSON struct {
	Type        *string             `json:"type,omitempty"`
	Title       *string             `json:"title,omitempty"`
	Description *string             `json:"description,omitempty"`
	Content     []map[string]string `json:"content,omitempty"`
	Items       []*BodyFieldItem    `json:"items,omitempty"`
}

func (f *BodyField) MarshalJSON() ([]byte, error) {
	return json.Marshal(bodyFieldJSON{
		Type:        f.fieldType,
		Title:       f.title,
		Description: f.description,
		Content:     f.content,
		Items:       f.items,
	})
}

func (f *BodyField) UnmarshalJSON(data []byte) error {
	if f.sealed {
		return ErrImmutable
	}
	var w bodyFieldJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*f = BodyField{
		fieldType:   w.Type,
		title:       w.Title,
		description: w.Description,
		content:     cloneContent(w.Content),
		items:       cloneSlice(w.Items),
		sealed:      true,
	}
	return nil
}

type BodyFieldBuilder struct {
	f BodyField
}

func NewBodyFieldBuilder() *BodyFieldBuilder {
	return &BodyFieldBuilder{}
}

func (b *BodyFieldBuilder) SetType(t string) *BodyFieldBuilder {
	b.f.fieldType = strPtr(t)
	return b
}

func (b *BodyFieldBuilder) SetTitle(title string) *BodyFieldBuilder {
	b.f.title = strPtr(title)
	return b
}

func (b *BodyFieldBuilder) SetDescription(description string) *BodyFieldBuilder {
	b.f.description = strPtr(description)
	return b
}

// AddContent appends one key/value map in call order. A nil map keeps its
// position; a non-nil map is copied.
func (b *BodyFieldBuilder) AddContent(content map[string]string) *BodyFieldBuilder {
	var c map[string]string
	if content != nil {
		c = make(map[string]string, len(content))
		for k, v := range content {
			c[k] = v
		}
	}
	b.f.content = append(b.f.content, c)
	return b
}

// AddItem appends in call order; nil items keep their position.
func (b *BodyFieldBuilder) AddItem(items ...*BodyFieldItem) *BodyFieldBuilder {
	b.f.items = append(b.f.items, items...)
	return b
}

func (b *BodyFieldBuilder) Build() *BodyField {
	f := b.f
	f.content = cloneContent(f.content)
	f.items = cloneSlice(f.items)
	f.sealed = true
	b.f = BodyField{}
	return &f
}

// Body is the main content of a card.
type Body struct {
	description *string
	fields      []*BodyField
	sealed      bool
}

func (b *Body) Description() string { return deref(b.description) }

// Fields returns a copy of the body fields.
func (b *Body) Fields() []*BodyField {
	return cloneSlice(b.fields)
}

func (b *Body) Hash() Digest {
	if b == nil {
		return nullDigest
	}
	return Hash(
		F("description", OptString(b.description)),
		F("fields", Nested(hashEach(b.fields))),
	)
}

type bodyJSON struct {
	Description *string      `json:"description,omitempty"`
	Fields      []*BodyField `json:"fields,omitempty"`
}

func (b *Body) MarshalJSON() ([]byte, error) {
	return json.Marshal(bodyJSON{Description: b.description, Fields: b.fields})
}

func (b *Body) UnmarshalJSON(data []byte) error {
	if b.sealed {
		return ErrImmutable
	}
	var w bodyJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*b = Body{description: w.Description, fields: cloneSlice(w.Fields), sealed: true}
	return nil
}

type BodyBuilder struct {
	description *string
	fields      []*BodyField
}

func NewBodyBuilder() *BodyBuilder {
	return &BodyBuilder{}
}

func (b *BodyBuilder) SetDescription(description string) *BodyBuilder {
	b.description = strPtr(description)
	return b
}

// AddField appends in call order. Unlike the other list setters, nil fields
// are skipped.
func (b *BodyBuilder) AddField(fields ...*BodyField) *BodyBuilder {
	for _, f := range fields {
		if f != nil {
			b.fields = append(b.fields, f)
		}
	}
	return b
}

func (b *BodyBuilder) Build() *Body {
	body := &Body{description: b.description, fields: cloneSlice(b.fields), sealed: true}
	*b = BodyBuilder{}
	return body
}
