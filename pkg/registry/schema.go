// pkg/registry/schema.go
package registry

// Discovery is the metadata document the hub reads to learn which object
// types a connector serves and which tokens it wants extracted.
type Discovery struct {
	Version     string                `json:"version,omitempty"`
	Image       *Href                 `json:"image,omitempty"`
	ObjectTypes map[string]ObjectType `json:"object_types"`
}

type ObjectType struct {
	Doc      *Href            `json:"doc,omitempty"`
	Fields   map[string]Field `json:"fields,omitempty"`
	Endpoint *Href            `json:"endpoint"`
}

// Field tells the hub how to capture a token from the user's context.
type Field struct {
	Regex        string `json:"regex,omitempty"`
	CaptureGroup int    `json:"capture_group,omitempty"`
	Description  string `json:"description,omitempty"`
}

type Href struct {
	Href string `json:"href"`
}
