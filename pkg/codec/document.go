package codec

import (
	"github.com/aretw0/chatflow/pkg/domain"
)

// CurrentVersion is the schema version written by Encode.
// Version 0 denotes legacy documents written before the field existed.
const CurrentVersion = 1

// Document is the persisted form of a graph.
type Document struct {
	Version     int             `json:"version" yaml:"version" mapstructure:"version"`
	Nodes       []NodeDoc       `json:"nodes" yaml:"nodes" mapstructure:"nodes" validate:"dive"`
	Connections []ConnectionDoc `json:"connections" yaml:"connections" mapstructure:"connections" validate:"dive"`
}

// NodeDoc is the persisted form of a node.
type NodeDoc struct {
	ID   string  `json:"id" yaml:"id" mapstructure:"id" validate:"required"`
	Kind string  `json:"kind" yaml:"kind" mapstructure:"kind" validate:"required,kind"`
	Text string  `json:"text" yaml:"text" mapstructure:"text"`
	X    float64 `json:"x" yaml:"x" mapstructure:"x"`
	Y    float64 `json:"y" yaml:"y" mapstructure:"y"`
}

// ConnectionDoc is the persisted form of a connection.
type ConnectionDoc struct {
	ID   string `json:"id" yaml:"id" mapstructure:"id" validate:"required"`
	From string `json:"from" yaml:"from" mapstructure:"from" validate:"required"`
	To   string `json:"to" yaml:"to" mapstructure:"to" validate:"required"`
}

// Encode produces the document form of a graph, preserving node and connection order.
func Encode(g domain.Graph) Document {
	doc := Document{
		Version:     CurrentVersion,
		Nodes:       make([]NodeDoc, 0, len(g.Nodes)),
		Connections: make([]ConnectionDoc, 0, len(g.Connections)),
	}
	for _, n := range g.Nodes {
		doc.Nodes = append(doc.Nodes, NodeDoc{
			ID:   n.ID,
			Kind: string(n.Kind),
			Text: n.Text,
			X:    n.Position.X,
			Y:    n.Position.Y,
		})
	}
	for _, c := range g.Connections {
		doc.Connections = append(doc.Connections, ConnectionDoc{ID: c.ID, From: c.From, To: c.To})
	}
	return doc
}

// Decode rebuilds a graph from its document form.
// Empty node or connection lists decode to nil slices.
func Decode(doc Document) (domain.Graph, error) {
	if err := validate(doc); err != nil {
		return domain.Graph{}, err
	}

	var g domain.Graph
	for _, nd := range doc.Nodes {
		g.Nodes = append(g.Nodes, domain.Node{
			ID:       nd.ID,
			Kind:     domain.Kind(nd.Kind),
			Text:     nd.Text,
			Position: domain.Position{X: nd.X, Y: nd.Y},
		})
	}
	for _, cd := range doc.Connections {
		g.Connections = append(g.Connections, domain.Connection{ID: cd.ID, From: cd.From, To: cd.To})
	}
	return g, nil
}
