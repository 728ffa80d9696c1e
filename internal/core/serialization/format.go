package serialization

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format selects the document encoding of a value tree.
type Format uint8

const (
	FormatJSON Format = iota
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatJSON:
		return "json"
	case FormatYAML:
		return "yaml"
	default:
		return "unknown"
	}
}

// FormatFromPath picks YAML for .yaml/.yml files and JSON otherwise.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Encode finishes w and encodes its tree.
func Encode(w *Writer, format Format) ([]byte, error) {
	root, err := w.Root()
	if err != nil {
		return nil, err
	}
	switch format {
	case FormatJSON:
		return json.MarshalIndent(root, "", "  ")
	case FormatYAML:
		return yaml.Marshal(root)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
}

// Decode parses data and returns a Reader over it.
func Decode(data []byte, format Format) (*Reader, error) {
	root, err := DecodeTree(data, format)
	if err != nil {
		return nil, err
	}
	return NewReader(root), nil
}

// DecodeTree parses data into a value tree. It is safe to call from any
// goroutine; the returned tree is not shared.
func DecodeTree(data []byte, format Format) (map[string]any, error) {
	var doc any
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			return nil, err
		}
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownFormat, format)
	}
	if doc == nil {
		return map[string]any{}, nil
	}
	root, ok := asObject(doc)
	if !ok {
		return nil, ErrNotAnObject
	}
	return root, nil
}

// Marshal serializes v into a standalone document.
func Marshal(v Serializable, format Format) ([]byte, error) {
	w := NewWriter()
	v.Serialize(w)
	return Encode(w, format)
}

// Unmarshal deserializes a standalone document into v. Fields missing from
// data keep the values v already holds.
func Unmarshal(data []byte, format Format, v Serializable) error {
	r, err := Decode(data, format)
	if err != nil {
		return err
	}
	v.Deserialize(r)
	return nil
}
