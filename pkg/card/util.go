package card

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrImmutable is returned when JSON is decoded into a value that was already
// built or decoded.
var ErrImmutable = errors.New("card: value is immutable once built or decoded")

func strPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func copyStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func utcPtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	return utcPtr(*t)
}

func isBlank(s *string) bool {
	return s == nil || strings.TrimSpace(*s) == ""
}

// Collections are stored nil when empty, matching the wire format where empty
// collections are omitted.
func cloneSlice[T any](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

func cloneMap(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// cloneContent keeps nil entries and empty maps as they are; both are
// meaningful positions inside a field's content list.
func cloneContent(in []map[string]string) []map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make([]map[string]string, len(in))
	for i, m := range in {
		if m == nil {
			continue
		}
		c := make(map[string]string, len(m))
		for k, v := range m {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

// hashable is implemented by every value object; nil receivers hash to the
// null digest.
type hashable interface {
	Hash() Digest
}

func hashEach[T hashable](items []T) Digest {
	digests := make([]Digest, len(items))
	for i, it := range items {
		digests[i] = it.Hash()
	}
	return HashList(digests...)
}

// Warning describes a field that construction accepted but a strict caller may
// want to reject.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const (
	WarnRequiredFieldMissing = "REQUIRED_FIELD_MISSING"
	WarnMinLengthCoerced     = "MIN_LENGTH_COERCED"
	WarnMaxLengthCoerced     = "MAX_LENGTH_COERCED"
)

// ValidationError is returned by strict construction paths.
type ValidationError struct {
	Object   string
	Warnings []Warning
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Warnings))
	for i, w := range e.Warnings {
		parts[i] = fmt.Sprintf("%s: %s", w.Field, w.Message)
	}
	return fmt.Sprintf("invalid %s: %s", e.Object, strings.Join(parts, "; "))
}

func prefixWarnings(prefix string, ws []Warning) []Warning {
	for i := range ws {
		ws[i].Field = prefix + "." + ws[i].Field
	}
	return ws
}
