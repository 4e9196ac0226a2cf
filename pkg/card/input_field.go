package card

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Option is one key/value entry of an input field's ordered options.
type Option struct {
	Key   string
	Value string
}

// Options is an insertion-ordered map. It serializes as a JSON object whose
// members keep their order.
type Options []Option

func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(opt.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(opt.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (o *Options) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*o = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("options: expected object, got %v", tok)
	}

	var out Options
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("options: expected string key, got %v", keyTok)
		}
		var value string
		if err := dec.Decode(&value); err != nil {
			return fmt.Errorf("options: value for %q: %w", key, err)
		}
		out = out.with(key, value)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*o = out
	return nil
}

// with replaces an existing key in place or appends a new one.
func (o Options) with(key, value string) Options {
	for i := range o {
		if o[i].Key == key {
			o[i].Value = value
			return o
		}
	}
	return append(o, Option{Key: key, Value: value})
}

// Get returns the value for key.
func (o Options) Get(key string) (string, bool) {
	for _, opt := range o {
		if opt.Key == key {
			return opt.Value, true
		}
	}
	return "", false
}

// ActionInputField describes one piece of user input collected before an
// action is submitted.
type ActionInputField struct {
	id             *string
	label          *string
	format         *string
	options        Options
	minLength      int
	maxLength      int
	displayContent bool
	sealed         bool
}

func (f *ActionInputField) ID() string     { return deref(f.id) }
func (f *ActionInputField) Label() string  { return deref(f.label) }
func (f *ActionInputField) Format() string { return deref(f.format) }
func (f *ActionInputField) MinLength() int { return f.minLength }

// MaxLength of 0 means unconstrained.
func (f *ActionInputField) MaxLength() int       { return f.maxLength }
func (f *ActionInputField) DisplayContent() bool { return f.displayContent }

// Options returns a copy of the ordered options.
func (f *ActionInputField) Options() Options {
	return cloneSlice(f.options)
}

func (f *ActionInputField) Hash() Digest {
	if f == nil {
		return nullDigest
	}
	return Hash(
		F("id", OptString(f.id)),
		F("label", OptString(f.label)),
		F("format", OptString(f.format)),
		F("options", Nested(HashOrderedMap(f.options))),
		F("min_length", Int(f.minLength)),
		F("max_length", Int(f.maxLength)),
		F("display_content", Bool(f.displayContent)),
	)
}

func (f *ActionInputField) warnings() []Warning {
	var ws []Warning
	if isBlank(f.id) {
		ws = append(ws, Warning{Field: "id", Message: "required field missing", Code: WarnRequiredFieldMissing})
	}
	if isBlank(f.label) {
		ws = append(ws, Warning{Field: "label", Message: "required field missing", Code: WarnRequiredFieldMissing})
	}
	return ws
}

type inputFieldJSON struct {
	ID             *string `json:"id,omitempty"`
	Label          *string `json:"label,omitempty"`
	Format         *string `json:"format,omitempty"`
	Options        Options `json:"options,omitempty"`
	MinLength      int     `json:"min_length"`
	MaxLength      int     `json:"max_length"`
	DisplayContent bool    `json:"display_content"`
}

func (f *ActionInputField) MarshalJSON() ([]byte, error) {
	return json.Marshal(inputFieldJSON{
		ID:             f.id,
		Label:          f.label,
		Format:         f.format,
		Options:        f.options,
		MinLength:      f.minLength,
		MaxLength:      f.maxLength,
		DisplayContent: f.displayContent,
	})
}

// UnmarshalJSON takes the wire values as they are; normalization only happens
// in the builder.
func (f *ActionInputField) UnmarshalJSON(data []byte) error {
	if f.sealed {
		return ErrImmutable
	}
	var w inputFieldJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*f = ActionInputField{
		id:             w.ID,
		label:          w.Label,
		format:         w.Format,
		options:        cloneSlice(w.Options),
		minLength:      w.MinLength,
		maxLength:      w.MaxLength,
		displayContent: w.DisplayContent,
		sealed:         true,
	}
	return nil
}

type ActionInputFieldBuilder struct {
	id             *string
	label          *string
	format         *string
	options        Options
	minLength      int
	maxLength      int
	displayContent bool
}

func NewActionInputFieldBuilder() *ActionInputFieldBuilder {
	return &ActionInputFieldBuilder{}
}

func (b *ActionInputFieldBuilder) SetID(id string) *ActionInputFieldBuilder {
	b.id = strPtr(id)
	return b
}

func (b *ActionInputFieldBuilder) SetLabel(label string) *ActionInputFieldBuilder {
	b.label = strPtr(label)
	return b
}

func (b *ActionInputFieldBuilder) SetFormat(format string) *ActionInputFieldBuilder {
	b.format = strPtr(format)
	return b
}

// AddOption keeps insertion order; re-adding a key replaces its value in place.
func (b *ActionInputFieldBuilder) AddOption(key, value string) *ActionInputFieldBuilder {
	b.options = b.options.with(key, value)
	return b
}

func (b *ActionInputFieldBuilder) SetMinLength(n int) *ActionInputFieldBuilder {
	b.minLength = n
	return b
}

func (b *ActionInputFieldBuilder) SetMaxLength(n int) *ActionInputFieldBuilder {
	b.maxLength = n
	return b
}

func (b *ActionInputFieldBuilder) SetDisplayContent(display bool) *ActionInputFieldBuilder {
	b.displayContent = display
	return b
}

// Warnings lists what Build would accept but repair or leave missing.
func (b *ActionInputFieldBuilder) Warnings() []Warning {
	ws := (&ActionInputField{id: b.id, label: b.label}).warnings()
	minLength, maxLength := normalizeLengths(b.minLength, b.maxLength)
	if minLength != b.minLength {
		ws = append(ws, Warning{
			Field:   "min_length",
			Message: fmt.Sprintf("%d coerced to %d", b.minLength, minLength),
			Code:    WarnMinLengthCoerced,
		})
	}
	if maxLength != b.maxLength {
		ws = append(ws, Warning{
			Field:   "max_length",
			Message: fmt.Sprintf("%d is below min_length %d, coerced to %d", b.maxLength, minLength, maxLength),
			Code:    WarnMaxLengthCoerced,
		})
	}
	return ws
}

// Build never fails: a negative min length becomes 0 and a max length below
// the min length becomes 0 (unconstrained).
func (b *ActionInputFieldBuilder) Build() *ActionInputField {
	minLength, maxLength := normalizeLengths(b.minLength, b.maxLength)
	f := &ActionInputField{
		id:             b.id,
		label:          b.label,
		format:         b.format,
		options:        cloneSlice(b.options),
		minLength:      minLength,
		maxLength:      maxLength,
		displayContent: b.displayContent,
		sealed:         true,
	}
	*b = ActionInputFieldBuilder{}
	return f
}

// BuildStrict refuses to build when Warnings is non-empty. The builder is left
// untouched on failure so the caller can fix it and retry.
func (b *ActionInputFieldBuilder) BuildStrict() (*ActionInputField, error) {
	if ws := b.Warnings(); len(ws) > 0 {
		return nil, &ValidationError{Object: "action input field", Warnings: ws}
	}
	return b.Build(), nil
}

func normalizeLengths(minLength, maxLength int) (int, int) {
	if minLength < 0 {
		minLength = 0
	}
	if maxLength < minLength {
		maxLength = 0
	}
	return minLength, maxLength
}
