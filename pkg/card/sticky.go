package card

import (
	"encoding/json"
	"time"
)

// Sticky asks the hub to keep the card pinned until a point in time.
type Sticky struct {
	until     *time.Time
	stickType *string
	sealed    bool
}

// Until returns the zero time when no deadline was set.
func (s *Sticky) Until() time.Time {
	if s.until == nil {
		return time.Time{}
	}
	return *s.until
}

func (s *Sticky) Type() string { return deref(s.stickType) }

func (s *Sticky) Hash() Digest {
	if s == nil {
		return nullDigest
	}
	return Hash(
		F("until", OptTime(s.until)),
		F("type", OptString(s.stickType)),
	)
}

type stickyJSON struct {
	Until *time.Time `json:"until,omitempty"`
	Type  *string    `json:"type,omitempty"`
}

func (s *Sticky) MarshalJSON() ([]byte, error) {
	return json.Marshal(stickyJSON{Until: s.until, Type: s.stickType})
}

func (s *Sticky) UnmarshalJSON(data []byte) error {
	if s.sealed {
		return ErrImmutable
	}
	var w stickyJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Sticky{until: copyTime(w.Until), stickType: w.Type, sealed: true}
	return nil
}

type StickyBuilder struct {
	until     *time.Time
	stickType *string
}

func NewStickyBuilder() *StickyBuilder {
	return &StickyBuilder{}
}

func (b *StickyBuilder) SetUntil(t time.Time) *StickyBuilder {
	b.until = utcPtr(t)
	return b
}

func (b *StickyBuilder) SetType(t string) *StickyBuilder {
	b.stickType = strPtr(t)
	return b
}

func (b *StickyBuilder) Build() *Sticky {
	s := &Sticky{until: b.until, stickType: b.stickType, sealed: true}
	*b = StickyBuilder{}
	return s
}
