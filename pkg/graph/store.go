package graph

import (
	"fmt"
	"slices"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/google/uuid"
)

// IDGenerator produces opaque unique identifiers.
type IDGenerator func() string

// Store holds the nodes and connections of one flow.
type Store struct {
	nodes       []domain.Node
	connections []domain.Connection
	newID       IDGenerator
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides the default UUID generator.
func WithIDGenerator(gen IDGenerator) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// NewStore creates a store seeded with a single start node at the origin.
func NewStore(opts ...Option) *Store {
	s := newEmpty(opts...)
	s.AddNode(domain.KindStart, domain.Position{})
	return s
}

// NewStoreFrom creates a store holding a copy of an existing graph, typically a decoded snapshot.
func NewStoreFrom(g domain.Graph, opts ...Option) *Store {
	s := newEmpty(opts...)
	s.Load(g)
	return s
}

func newEmpty(opts ...Option) *Store {
	s := &Store{
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the store contents with a copy of g.
func (s *Store) Load(g domain.Graph) {
	c := g.Clone()
	s.nodes = c.Nodes
	s.connections = c.Connections
}

// AddNode allocates a node of the given kind with its default text and appends it.
func (s *Store) AddNode(kind domain.Kind, pos domain.Position) domain.Node {
	n := domain.Node{
		ID:       s.newID(),
		Kind:     kind,
		Text:     kind.DefaultText(),
		Position: pos,
	}
	s.nodes = append(s.nodes, n)
	return n
}

// MoveNode replaces the position of a node.
func (s *Store) MoveNode(id string, pos domain.Position) error {
	i := s.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("move node %s: %w", id, domain.ErrNotFound)
	}
	s.nodes[i].Position = pos
	return nil
}

// UpdateText replaces the text of a node.
func (s *Store) UpdateText(id, text string) error {
	i := s.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("update node %s: %w", id, domain.ErrNotFound)
	}
	s.nodes[i].Text = text
	return nil
}

// AddConnection appends an edge between two existing nodes.
// Duplicate pairs are kept: each call creates a distinct connection.
func (s *Store) AddConnection(from, to string) (domain.Connection, error) {
	if s.nodeIndex(from) < 0 {
		return domain.Connection{}, fmt.Errorf("connect %s -> %s: source %w", from, to, domain.ErrUnknownNode)
	}
	if s.nodeIndex(to) < 0 {
		return domain.Connection{}, fmt.Errorf("connect %s -> %s: target %w", from, to, domain.ErrUnknownNode)
	}
	c := domain.Connection{ID: s.newID(), From: from, To: to}
	s.connections = append(s.connections, c)
	return c, nil
}

// RemoveNode deletes a node and every connection touching it.
func (s *Store) RemoveNode(id string) error {
	i := s.nodeIndex(id)
	if i < 0 {
		return fmt.Errorf("remove node %s: %w", id, domain.ErrNotFound)
	}
	s.nodes = slices.Delete(s.nodes, i, i+1)
	s.connections = slices.DeleteFunc(s.connections, func(c domain.Connection) bool {
		return c.From == id || c.To == id
	})
	return nil
}

// RemoveConnection deletes a single connection.
func (s *Store) RemoveConnection(id string) error {
	i := slices.IndexFunc(s.connections, func(c domain.Connection) bool { return c.ID == id })
	if i < 0 {
		return fmt.Errorf("remove connection %s: %w", id, domain.ErrNotFound)
	}
	s.connections = slices.Delete(s.connections, i, i+1)
	return nil
}

// Node returns a copy of the node with the given id.
func (s *Store) Node(id string) (domain.Node, bool) {
	i := s.nodeIndex(id)
	if i < 0 {
		return domain.Node{}, false
	}
	return s.nodes[i], true
}

// Len returns the number of nodes and connections.
func (s *Store) Len() (nodes, connections int) {
	return len(s.nodes), len(s.connections)
}

// Snapshot returns a deep copy of the current graph.
func (s *Store) Snapshot() domain.Graph {
	return domain.Graph{Nodes: s.nodes, Connections: s.connections}.Clone()
}

func (s *Store) nodeIndex(id string) int {
	return slices.IndexFunc(s.nodes, func(n domain.Node) bool { return n.ID == id })
}
