// pkg/card/hash.go
package card

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Digest is a lowercase hex SHA-256 fingerprint produced by the hash engine.
type Digest string

// String returns the hex form of the digest.
func (d Digest) String() string {
	return string(d)
}

// Value is a canonicalizable field value. The set of implementations is closed:
// build values with Null, String, OptString, Int, OptInt, Int64, OptInt64, Bool,
// Time, OptTime and Nested.
type Value interface {
	canonical() string
}

type nullValue struct{}

func (nullValue) canonical() string { return "n" }

type stringValue string

func (s stringValue) canonical() string {
	return "s:" + strconv.Itoa(len(s)) + ":" + string(s)
}

type intValue int64

func (i intValue) canonical() string {
	return "i:" + strconv.FormatInt(int64(i), 10)
}

type boolValue bool

func (b boolValue) canonical() string {
	return "b:" + strconv.FormatBool(bool(b))
}

type timeValue time.Time

func (t timeValue) canonical() string {
	return "t:" + time.Time(t).UTC().Format(time.RFC3339Nano)
}

type digestValue Digest

func (d digestValue) canonical() string {
	return "d:" + strconv.Itoa(len(d)) + ":" + string(d)
}

// Null is the canonical absent value. It never collides with an empty string or
// an empty collection.
func Null() Value { return nullValue{} }

func String(s string) Value { return stringValue(s) }

// OptString returns Null for a nil pointer.
func OptString(s *string) Value {
	if s == nil {
		return nullValue{}
	}
	return stringValue(*s)
}

func Int(n int) Value { return intValue(n) }

func OptInt(n *int) Value {
	if n == nil {
		return nullValue{}
	}
	return intValue(*n)
}

func Int64(n int64) Value { return intValue(n) }

func OptInt64(n *int64) Value {
	if n == nil {
		return nullValue{}
	}
	return intValue(*n)
}

func Bool(b bool) Value { return boolValue(b) }

// Time canonicalizes to RFC 3339 with nanoseconds in UTC, so the same instant in
// different zones hashes identically.
func Time(t time.Time) Value { return timeValue(t) }

func OptTime(t *time.Time) Value {
	if t == nil {
		return nullValue{}
	}
	return timeValue(*t)
}

// Nested wraps the digest of a child object so it is never confused with a raw
// string of the same text.
func Nested(d Digest) Value { return digestValue(d) }

// Field is one labeled input to Hash.
type Field struct {
	Label string
	Value Value
}

// F is shorthand for a Field literal.
func F(label string, v Value) Field {
	return Field{Label: label, Value: v}
}

// nullDigest is what a nil object or nil collection element hashes to.
var nullDigest = sum("n")

// NullDigest returns the digest used for absent nested objects.
func NullDigest() Digest { return nullDigest }

// Hash digests every labeled field independently and then hashes the
// concatenation of the fixed-width field digests. Field order is significant.
func Hash(fields ...Field) Digest {
	var b strings.Builder
	b.WriteString("obj:")
	b.WriteString(strconv.Itoa(len(fields)))
	for _, f := range fields {
		v := f.Value
		if v == nil {
			v = nullValue{}
		}
		b.WriteByte('|')
		b.WriteString(string(sum(stringValue(f.Label).canonical() + "=" + v.canonical())))
	}
	return sum(b.String())
}

// HashList folds pre-computed element digests in order. The element count and
// each position are part of the input, so reordering, dropping or inserting an
// element always changes the result.
func HashList(items ...Digest) Digest {
	var b strings.Builder
	b.WriteString("list:")
	b.WriteString(strconv.Itoa(len(items)))
	for i, d := range items {
		b.WriteByte('|')
		b.WriteString(strconv.Itoa(i))
		b.WriteByte(':')
		b.WriteString(digestValue(d).canonical())
	}
	return sum(b.String())
}

// HashStrings hashes an ordered list of strings, digesting each element first.
func HashStrings(values ...string) Digest {
	digests := make([]Digest, len(values))
	for i, v := range values {
		digests[i] = HashValue(String(v))
	}
	return HashList(digests...)
}

// HashSet hashes strings with set semantics: duplicates collapse and insertion
// order is irrelevant.
func HashSet(values ...string) Digest {
	return HashStrings(sortedUnique(values)...)
}

// HashStringMap hashes a map by sorted key, digesting every key and every value
// on its own.
func HashStringMap(m map[string]string) Digest {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]Option, len(keys))
	for i, k := range keys {
		pairs[i] = Option{Key: k, Value: m[k]}
	}
	return HashOrderedMap(pairs)
}

// HashOrderedMap hashes key/value pairs in the given order.
func HashOrderedMap(pairs []Option) Digest {
	digests := make([]Digest, len(pairs))
	for i, p := range pairs {
		digests[i] = Hash(
			F("key", String(p.Key)),
			F("value", String(p.Value)),
		)
	}
	return sum("map:" + string(HashList(digests...)))
}

// HashValue returns the digest of a single canonical value.
func HashValue(v Value) Digest {
	if v == nil {
		return nullDigest
	}
	return sum(v.canonical())
}

func sum(s string) Digest {
	h := sha256.Sum256([]byte(s))
	return Digest(hex.EncodeToString(h[:]))
}

func sortedUnique(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	sort.Strings(out)

	n := 1
	for i := 1; i < len(out); i++ {
		if out[i] != out[n-1] {
			out[n] = out[i]
			n++
		}
	}
	return out[:n]
}
