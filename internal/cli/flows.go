package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/aretw0/chatflow/pkg/adapters/file"
	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
)

// LoadFlow reads a flow either from a snapshot file or from the file store.
func LoadFlow(ctx context.Context, path, owner, storeDir string) (domain.Graph, error) {
	if path != "" {
		return LoadFlowFile(path)
	}
	if owner == "" {
		return domain.Graph{}, errors.New("either a flow file or --owner is required")
	}

	doc, err := file.New(storeDir).Load(ctx, owner)
	if err != nil {
		return domain.Graph{}, fmt.Errorf("failed to load flow %q from %s: %w", owner, storeDir, err)
	}
	return codec.Decode(doc)
}

// LoadFlowFile decodes a snapshot file. YAML is picked by extension, JSON otherwise.
func LoadFlowFile(path string) (domain.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Graph{}, fmt.Errorf("failed to read flow: %w", err)
	}

	var g domain.Graph
	if isYAML(path) {
		g, err = codec.UnmarshalYAML(data)
	} else {
		g, err = codec.Unmarshal(data)
	}
	if err != nil {
		return domain.Graph{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}
	return g, nil
}

// ExportFlow serializes a flow as json or yaml.
func ExportFlow(g domain.Graph, format string) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", "json":
		return codec.Marshal(g)
	case "yaml", "yml":
		return codec.MarshalYAML(g)
	default:
		return nil, fmt.Errorf("unsupported format %q (want json or yaml)", format)
	}
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}
