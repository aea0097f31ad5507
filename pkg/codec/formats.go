package codec

import (
	"encoding/json"
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

// Marshal encodes a graph as indented JSON.
func Marshal(g domain.Graph) ([]byte, error) {
	data, err := json.MarshalIndent(Encode(g), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a graph from JSON.
// Syntax errors are reported as malformed snapshots as well.
func Unmarshal(data []byte) (domain.Graph, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return domain.Graph{}, fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
	}
	return Decode(doc)
}

// MarshalYAML encodes a graph as YAML, used for human-friendly exports.
func MarshalYAML(g domain.Graph) ([]byte, error) {
	data, err := yaml.Marshal(Encode(g))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}
	return data, nil
}

// UnmarshalYAML decodes a graph from YAML.
func UnmarshalYAML(data []byte) (domain.Graph, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return domain.Graph{}, fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
	}
	return Decode(doc)
}

// DecodeMap converts a generic map, as returned by document databases, into a Document.
// Numeric fields are converted leniently (json.Number, ints and numeric strings are accepted).
func DecodeMap(raw map[string]any) (Document, error) {
	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Document{}, fmt.Errorf("failed to create decoder: %w", err)
	}
	if err := decoder.Decode(raw); err != nil {
		return Document{}, fmt.Errorf("%w: %v", domain.ErrMalformedSnapshot, err)
	}
	return doc, nil
}
