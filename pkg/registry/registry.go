// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
)

func LoadDiscovery(path string) (*Discovery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseDiscovery(data)
}

func ParseDiscovery(data []byte) (*Discovery, error) {
	var d Discovery
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse discovery: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate requires at least one object type, each with an endpoint.
func (d *Discovery) Validate() error {
	if len(d.ObjectTypes) == 0 {
		return fmt.Errorf("discovery: no object types")
	}
	for _, name := range d.TypeNames() {
		ot := d.ObjectTypes[name]
		if ot.Endpoint == nil || ot.Endpoint.Href == "" {
			return fmt.Errorf("discovery: object type %q has no endpoint", name)
		}
	}
	return nil
}

// TypeNames returns the object type names sorted.
func (d *Discovery) TypeNames() []string {
	names := make([]string, 0, len(d.ObjectTypes))
	for name := range d.ObjectTypes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve returns a copy with every relative href made absolute against
// baseURL. Absolute hrefs are left alone.
func (d *Discovery) Resolve(baseURL string) (*Discovery, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", baseURL, err)
	}

	resolve := func(h *Href) (*Href, error) {
		if h == nil {
			return nil, nil
		}
		ref, err := url.Parse(h.Href)
		if err != nil {
			return nil, fmt.Errorf("parse href %q: %w", h.Href, err)
		}
		return &Href{Href: base.ResolveReference(ref).String()}, nil
	}

	out := &Discovery{
		Version:     d.Version,
		ObjectTypes: make(map[string]ObjectType, len(d.ObjectTypes)),
	}
	if out.Image, err = resolve(d.Image); err != nil {
		return nil, err
	}
	for name, ot := range d.ObjectTypes {
		resolved := ObjectType{Fields: make(map[string]Field, len(ot.Fields))}
		for k, f := range ot.Fields {
			resolved.Fields[k] = f
		}
		if len(resolved.Fields) == 0 {
			resolved.Fields = nil
		}
		if resolved.Doc, err = resolve(ot.Doc); err != nil {
			return nil, err
		}
		if resolved.Endpoint, err = resolve(ot.Endpoint); err != nil {
			return nil, err
		}
		out.ObjectTypes[name] = resolved
	}
	return out, nil
}
