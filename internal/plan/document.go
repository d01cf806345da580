package plan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"
)

// rootKey is the reserved document key naming the entry node.
const rootKey = "root"

// Document is the undecorated plan as submitted by a caller: a root name
// plus one NodeSpec per node name. It has not been validated.
type Document struct {
	Root  string
	Nodes map[string]NodeSpec
}

// NodeSpec is the raw form of one node entry.
type NodeSpec struct {
	Operator   string    `json:"operator"`
	Input      InputSpec `json:"input"`
	ColNames   []string  `json:"colNames,omitempty"`
	JoinColumn string    `json:"joinColumn,omitempty"`
	Condition  string    `json:"condition,omitempty"`
}

// InputSpec holds the "input" field, which is a single name for Project
// and Select and a list of names for Join.
type InputSpec struct {
	Names []string
	List  bool
}

// UnmarshalJSON accepts either a string or a list of strings.
func (s *InputSpec) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*s = InputSpec{}
		return nil
	}
	if data[0] == '[' {
		var names []string
		if err := json.Unmarshal(data, &names); err != nil {
			return fmt.Errorf("input must be a list of strings: %w", err)
		}
		*s = InputSpec{Names: names, List: true}
		return nil
	}
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("input must be a string or a list of strings: %w", err)
	}
	*s = InputSpec{Names: []string{name}}
	return nil
}

// MarshalJSON writes the input back in the shape it was read.
func (s InputSpec) MarshalJSON() ([]byte, error) {
	if s.List {
		if s.Names == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.Names)
	}
	if len(s.Names) == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(s.Names[0])
}

// MarshalJSON writes the document in its flat wire form.
func (d *Document) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(d.Nodes)+1)
	for name, spec := range d.Nodes {
		flat[name] = spec
	}
	flat[rootKey] = d.Root
	return json.Marshal(flat)
}

// ── Formats ─────────────────────────────────────────────────────────────────

// Format names an encoding of a plan document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatFromPath picks a format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".cue":
		return FormatCUE
	default:
		return FormatJSON
	}
}

// FormatFromContentType picks a format from an HTTP Content-Type header,
// defaulting to JSON.
func FormatFromContentType(contentType string) Format {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return FormatJSON
	}
	switch mt {
	case "application/yaml", "application/x-yaml", "text/yaml", "text/x-yaml":
		return FormatYAML
	case "application/cue", "text/x-cue":
		return FormatCUE
	default:
		return FormatJSON
	}
}

// ── Decoding ────────────────────────────────────────────────────────────────

// Decode decodes a plan document in the given format.
func Decode(data []byte, format Format) (*Document, error) {
	switch format {
	case FormatJSON, "":
		return DecodeJSON(data)
	case FormatYAML:
		return DecodeYAML(data)
	case FormatCUE:
		return DecodeCUE(data)
	default:
		return nil, fmt.Errorf("unsupported plan format %q", format)
	}
}

// DecodeJSON decodes the flat JSON wire form. Shape errors inside a node
// entry are reported as MalformedNode on that node.
func DecodeJSON(data []byte) (*Document, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decoding plan document: %w", err)
	}
	if top == nil {
		return nil, fmt.Errorf("decoding plan document: document is null")
	}

	doc := &Document{Nodes: make(map[string]NodeSpec, len(top))}
	for key, raw := range top {
		if key == rootKey {
			if err := json.Unmarshal(raw, &doc.Root); err != nil {
				return nil, Errorf(MissingRoot, "", "root must be a string")
			}
			continue
		}
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '{' {
			return nil, Errorf(MalformedNode, key, "node entry must be an object")
		}
		var spec NodeSpec
		if err := json.Unmarshal(trimmed, &spec); err != nil {
			return nil, Errorf(MalformedNode, key, "%v", err)
		}
		doc.Nodes[key] = spec
	}
	return doc, nil
}

// DecodeYAML decodes a YAML document with the same layout as the JSON form.
func DecodeYAML(data []byte) (*Document, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decoding yaml plan: %w", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("decoding yaml plan: %w", err)
	}
	return DecodeJSON(out)
}

// DecodeCUE evaluates a CUE document, which must be concrete, and decodes
// the resulting value like the JSON form.
func DecodeCUE(data []byte) (*Document, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("compiling cue plan: %w", err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating cue plan: %w", err)
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("exporting cue plan: %w", err)
	}
	return DecodeJSON(out)
}

// Parse decodes and builds a plan in one step.
func Parse(data []byte, format Format, opts ...Option) (*Plan, error) {
	doc, err := Decode(data, format)
	if err != nil {
		return nil, err
	}
	return Build(doc, opts...)
}
