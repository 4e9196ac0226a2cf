// Package connectors holds what every connector shares: the hub's card
// request shape and the interfaces the server and workers drive connectors
// through.
package connectors

import (
	"context"
	"sort"
	"strings"
	"sync"

	apperrors "hub-connectors/internal/common/errors"
	"hub-connectors/pkg/card"
)

// CardRequest is the body the hub posts to a connector's card endpoint.
// Tokens are values the hub extracted from the user's context, keyed by the
// names the connector declared in its discovery metadata.
type CardRequest struct {
	Tokens map[string][]string `json:"tokens"`
}

// Values returns the non-blank, trimmed, de-duplicated values for name in
// request order, and whether the token was present at all.
func (r *CardRequest) Values(name string) ([]string, bool) {
	if r == nil || r.Tokens == nil {
		return nil, false
	}
	raw, ok := r.Tokens[name]
	if !ok {
		return nil, false
	}
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out, true
}

// Connector turns a card request into cards.
type Connector interface {
	Name() string
	Cards(ctx context.Context, req *CardRequest) ([]*card.Card, error)
}

// Registry looks connectors up by name.
type Registry struct {
	mu         sync.RWMutex
	connectors map[string]Connector
}

func NewRegistry(cs ...Connector) *Registry {
	r := &Registry{connectors: make(map[string]Connector)}
	for _, c := range cs {
		r.Register(c)
	}
	return r
}

// Register adds c, replacing any connector with the same name.
func (r *Registry) Register(c Connector) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.connectors[c.Name()] = c
}

func (r *Registry) Get(name string) (Connector, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.connectors[name]
	if !ok {
		return nil, apperrors.NewConnectorNotFoundError(name)
	}
	return c, nil
}

// Names returns the registered names sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.connectors))
	for name := range r.connectors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
