package card

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Input Field Normalization
// ==========================

func TestActionInputFieldBuilder_Normalization(t *testing.T) {
	tests := []struct {
		name        string
		minLength   int
		maxLength   int
		expectedMin int
		expectedMax int
	}{
		{"negative min coerced to zero", -3, 10, 0, 10},
		{"max below min coerced to zero", 5, 1, 5, 0},
		{"negative min and negative max", -3, -1, 0, 0},
		{"valid range untouched", 2, 8, 2, 8},
		{"equal bounds untouched", 4, 4, 4, 4},
		{"unconstrained max", 3, 0, 3, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewActionInputFieldBuilder().
				SetID("comment").
				SetLabel("Comment").
				SetMinLength(tt.minLength).
				SetMaxLength(tt.maxLength).
				Build()

			assert.Equal(t, tt.expectedMin, f.MinLength())
			assert.Equal(t, tt.expectedMax, f.MaxLength())
		})
	}
}

func TestActionInputFieldBuilder_MissingIDAndLabelAreAccepted(t *testing.T) {
	f := NewActionInputFieldBuilder().SetFormat("textarea").Build()

	require.NotNil(t, f)
	assert.Equal(t, "", f.ID())
	assert.Equal(t, "", f.Label())
	assert.Equal(t, "textarea", f.Format())
}

func TestActionInputFieldBuilder_Warnings(t *testing.T) {
	b := NewActionInputFieldBuilder().SetMinLength(-3)

	ws := b.Warnings()
	codes := make([]string, len(ws))
	for i, w := range ws {
		codes[i] = w.Code
	}
	assert.ElementsMatch(t, []string{
		WarnRequiredFieldMissing,
		WarnRequiredFieldMissing,
		WarnMinLengthCoerced,
	}, codes)

	b = NewActionInputFieldBuilder().SetID("x").SetLabel("X").SetMinLength(5).SetMaxLength(1)
	ws = b.Warnings()
	require.Len(t, ws, 1)
	assert.Equal(t, "max_length", ws[0].Field)
	assert.Equal(t, WarnMaxLengthCoerced, ws[0].Code)
}

func TestActionInputFieldBuilder_BuildStrict(t *testing.T) {
	b := NewActionInputFieldBuilder().SetMinLength(5).SetMaxLength(1)

	f, err := b.BuildStrict()
	assert.Nil(t, f)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Len(t, verr.Warnings, 3)
	assert.Contains(t, err.Error(), "action input field")

	// the failed strict build leaves the builder as it was
	f, err = b.SetID("reason").SetLabel("Reason").SetMaxLength(10).BuildStrict()
	require.NoError(t, err)
	assert.Equal(t, 5, f.MinLength())
	assert.Equal(t, 10, f.MaxLength())
}

func TestActionInputFieldBuilder_Options(t *testing.T) {
	f := NewActionInputFieldBuilder().
		AddOption("approve", "Approve").
		AddOption("reject", "Reject").
		AddOption("approve", "Approve it").
		Build()

	opts := f.Options()
	require.Len(t, opts, 2)
	assert.Equal(t, Option{Key: "approve", Value: "Approve it"}, opts[0])
	assert.Equal(t, Option{Key: "reject", Value: "Reject"}, opts[1])

	v, ok := opts.Get("reject")
	assert.True(t, ok)
	assert.Equal(t, "Reject", v)

	opts[0].Value = "mutated"
	assert.Equal(t, "Approve it", f.Options()[0].Value)
}

// ==========================
// Reset On Build
// ==========================

func TestBuilders_ResetAfterBuild(t *testing.T) {
	t.Run("card", func(t *testing.T) {
		b := NewBuilder().SetName("first").AddTag("a").AddAction(NewActionBuilder().SetLabel("x").Build())
		first := b.Build()
		second := b.Build()

		assert.Equal(t, "first", first.Name())
		assert.Equal(t, "", second.Name())
		assert.Empty(t, second.Tags())
		assert.Empty(t, second.Actions())
		assert.NotEqual(t, first.ID(), second.ID())
	})

	t.Run("header", func(t *testing.T) {
		b := NewHeaderBuilder().SetTitle("t").AddSubtitle("s")
		_ = b.Build()
		h := b.Build()
		assert.Equal(t, "", h.Title())
		assert.Empty(t, h.Subtitles())
	})

	t.Run("action", func(t *testing.T) {
		b := NewActionBuilder().SetLabel("Approve").AddRequestParam("k", "v")
		_ = b.Build()
		a := b.Build()
		assert.Equal(t, "", a.Label())
		assert.Empty(t, a.Request())
	})

	t.Run("input field", func(t *testing.T) {
		b := NewActionInputFieldBuilder().SetID("x").SetMinLength(3).AddOption("a", "b")
		_ = b.Build()
		f := b.Build()
		assert.Equal(t, "", f.ID())
		assert.Equal(t, 0, f.MinLength())
		assert.Empty(t, f.Options())
	})

	t.Run("body field", func(t *testing.T) {
		b := NewBodyFieldBuilder().SetTitle("t").AddContent(map[string]string{"k": "v"})
		_ = b.Build()
		f := b.Build()
		assert.Equal(t, "", f.Title())
		assert.Empty(t, f.Content())
	})
}

func TestBuilders_ReuseDoesNotLeakIntoBuiltValues(t *testing.T) {
	b := NewHeaderBuilder()
	first := b.SetTitle("one").AddSubtitle("a", "b").Build()
	_ = b.SetTitle("two").AddSubtitle("c").Build()

	assert.Equal(t, "one", first.Title())
	assert.Equal(t, []string{"a", "b"}, first.Subtitles())
}

// ==========================
// Immutability
// ==========================

func TestBuiltValues_AreNotMutableThroughAccessors(t *testing.T) {
	content := map[string]string{"k": "v"}
	field := NewBodyFieldBuilder().AddContent(content).Build()

	content["k"] = "changed"
	assert.Equal(t, "v", field.Content()[0]["k"])

	field.Content()[0]["k"] = "changed"
	assert.Equal(t, "v", field.Content()[0]["k"])

	action := NewActionBuilder().AddRequestParam("a", "1").Build()
	action.Request()["a"] = "2"
	assert.Equal(t, "1", action.Request()["a"])

	c := NewBuilder().AddTag("x").AddAction(action).Build()
	c.Tags()[0] = "y"
	c.Actions()[0] = nil
	assert.Equal(t, []string{"x"}, c.Tags())
	assert.NotNil(t, c.Actions()[0])

	body := []byte("payload")
	item := NewBodyFieldItemBuilder().SetAttachmentBody(body).Build()
	body[0] = 'P'
	assert.Equal(t, []byte("payload"), item.AttachmentBody())
}

// ==========================
// Nil Handling
// ==========================

func TestBodyBuilder_AddFieldSkipsNil(t *testing.T) {
	f := NewBodyFieldBuilder().SetTitle("f").Build()
	body := NewBodyBuilder().AddField(nil, f, nil).Build()

	require.Len(t, body.Fields(), 1)
	assert.Equal(t, "f", body.Fields()[0].Title())
	assert.Equal(t, NewBodyBuilder().AddField(f).Build().Hash(), body.Hash())
}

func TestListSetters_KeepNilPositions(t *testing.T) {
	a := NewActionBuilder().SetLabel("a").Build()

	withNil := NewBuilder().SetName("n").AddAction(nil, a).Build()
	withoutNil := NewBuilder().SetName("n").AddAction(a).Build()
	nilLast := NewBuilder().SetName("n").AddAction(a, nil).Build()

	require.Len(t, withNil.Actions(), 2)
	assert.Nil(t, withNil.Actions()[0])
	assert.NotEqual(t, withNil.Hash(), withoutNil.Hash())
	assert.NotEqual(t, withNil.Hash(), nilLast.Hash())

	field := NewBodyFieldBuilder().AddContent(nil).AddContent(map[string]string{}).Build()
	require.Len(t, field.Content(), 2)
	assert.Nil(t, field.Content()[0])
	assert.NotNil(t, field.Content()[1])
	assert.NotEqual(t,
		field.Hash(),
		NewBodyFieldBuilder().AddContent(map[string]string{}).AddContent(nil).Build().Hash(),
	)
}

// ==========================
// Defaults
// ==========================

func TestActionBuilder_Defaults(t *testing.T) {
	a := NewActionBuilder().SetLabel("Approve").Build()

	assert.NotEmpty(t, a.ID())
	assert.Equal(t, http.MethodPost, a.Method())

	a = NewActionBuilder().SetID("fixed").SetType("put").Build()
	assert.Equal(t, "fixed", a.ID())
	assert.Equal(t, http.MethodPut, a.Method())
}

func TestAction_IDDoesNotAffectHash(t *testing.T) {
	build := func(id string) *Action {
		return NewActionBuilder().SetID(id).SetLabel("Approve").SetURL(NewLink("/approve")).Build()
	}
	assert.Equal(t, build("one").Hash(), build("two").Hash())
	assert.NotEqual(t, NewActionBuilder().Build().ID(), NewActionBuilder().Build().ID())
}

func TestBodyFieldItem_HashIgnoresAttachmentLocationAndBytes(t *testing.T) {
	build := func(url string, body []byte) *BodyFieldItem {
		return NewBodyFieldItemBuilder().
			SetType(ItemTypeAttachmentURL).
			SetTitle("Receipt").
			SetAttachmentName("receipt.pdf").
			SetAttachmentURL(url).
			SetAttachmentBody(body).
			SetContentType("application/pdf").
			SetContentLength(1024).
			Build()
	}

	a := build("https://a.example.com/r.pdf", []byte("one"))
	b := build("https://b.example.com/r.pdf", []byte("two"))
	assert.Equal(t, a.Hash(), b.Hash())

	c := NewBodyFieldItemBuilder().SetAttachmentName("receipt.pdf").SetContentLength(2048).Build()
	d := NewBodyFieldItemBuilder().SetAttachmentName("receipt.pdf").SetContentLength(1024).Build()
	assert.NotEqual(t, c.Hash(), d.Hash())
	assert.Equal(t, int64(-1), NewBodyFieldItemBuilder().Build().ContentLength())
}

func TestNilObjects_HashToNullDigest(t *testing.T) {
	var (
		l *Link
		h *Header
		b *Body
		s *Sticky
	)
	assert.Equal(t, NullDigest(), l.Hash())
	assert.Equal(t, NullDigest(), h.Hash())
	assert.Equal(t, NullDigest(), b.Hash())
	assert.Equal(t, NullDigest(), s.Hash())
	assert.NotEqual(t, NullDigest(), NewLinkBuilder().Build().Hash())
}
