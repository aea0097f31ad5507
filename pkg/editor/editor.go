// Package editor implements the user-facing editing verbs of the flow builder.
//
// The Editor wraps a graph.Store with the forgiving semantics of an interactive canvas:
// references to missing ids are treated as already-resolved no-ops. It also owns the only
// piece of interactive state, the node currently being dragged.
package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"

	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/graph"
	"github.com/aretw0/chatflow/pkg/ports"
)

// DefaultJitter is the size of the square, anchored at the canvas origin,
// in which AddStep places new nodes.
const DefaultJitter = 200

// drag is the state of an in-progress reposition.
type drag struct {
	nodeID string
	anchor domain.Position // pointer-down location minus node origin
}

// Editor is one editing session over a flow graph.
// It is not safe for concurrent use.
type Editor struct {
	store  *graph.Store
	active *drag

	jitter float64
	random func() float64
	logger *slog.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithLogger sets the logger used to report swallowed editing errors.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Editor) {
		e.logger = logger
	}
}

// WithJitter sets the size of the placement area used by AddStep.
func WithJitter(size float64) Option {
	return func(e *Editor) {
		e.jitter = size
	}
}

// WithRandom overrides the random source used by AddStep. It must return values in [0, 1).
func WithRandom(random func() float64) Option {
	return func(e *Editor) {
		e.random = random
	}
}

// New creates an editor over an existing store.
func New(store *graph.Store, opts ...Option) *Editor {
	e := &Editor{
		store:  store,
		jitter: DefaultJitter,
		random: rand.Float64,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewBlank creates an editor over a fresh graph containing only a start node.
func NewBlank(opts ...Option) *Editor {
	return New(graph.NewStore(), opts...)
}

// Store exposes the underlying graph store.
func (e *Editor) Store() *graph.Store {
	return e.store
}

// AddStep inserts a node of the given kind at a randomized offset near the canvas origin,
// so repeated insertions do not perfectly overlap.
// A second start node is refused: ok is false and nothing is added.
func (e *Editor) AddStep(kind domain.Kind) (node domain.Node, ok bool) {
	if !kind.Valid() {
		e.logger.Debug("add step ignored: invalid kind", "kind", kind)
		return domain.Node{}, false
	}
	if kind == domain.KindStart {
		if _, exists := e.store.Snapshot().Start(); exists {
			e.logger.Debug("add step ignored: graph already has a start node")
			return domain.Node{}, false
		}
	}
	pos := domain.Position{X: e.random() * e.jitter, Y: e.random() * e.jitter}
	return e.store.AddNode(kind, pos), true
}

// Connect adds an edge. Unlike other verbs, an unknown endpoint is reported to the caller.
func (e *Editor) Connect(from, to string) (domain.Connection, error) {
	return e.store.AddConnection(from, to)
}

// Move repositions a node directly.
func (e *Editor) Move(id string, pos domain.Position) {
	e.forgive(e.store.MoveNode(id, pos))
}

// SetText replaces the text of a node.
func (e *Editor) SetText(id, text string) {
	e.forgive(e.store.UpdateText(id, text))
}

// Remove deletes a node and its connections. Removing the dragged node ends the drag.
func (e *Editor) Remove(id string) {
	if e.active != nil && e.active.nodeID == id {
		e.active = nil
	}
	e.forgive(e.store.RemoveNode(id))
}

// Disconnect deletes a connection.
func (e *Editor) Disconnect(id string) {
	e.forgive(e.store.RemoveConnection(id))
}

// BeginDrag records id as the active drag target, replacing any previous target.
// The anchor keeps the grabbed point of the node under the pointer while moving.
func (e *Editor) BeginDrag(id string, pointer domain.Position) {
	node, ok := e.store.Node(id)
	if !ok {
		e.logger.Debug("begin drag ignored: node not found", "node_id", id)
		return
	}
	e.active = &drag{nodeID: id, anchor: pointer.Sub(node.Position)}
}

// UpdateDrag moves the dragged node to follow the pointer. No-op without an active drag.
func (e *Editor) UpdateDrag(pointer domain.Position) {
	if e.active == nil {
		return
	}
	e.forgive(e.store.MoveNode(e.active.nodeID, pointer.Sub(e.active.anchor)))
}

// EndDrag clears the active drag target.
func (e *Editor) EndDrag() {
	e.active = nil
}

// Dragging returns the id of the node being dragged, if any.
func (e *Editor) Dragging() (string, bool) {
	if e.active == nil {
		return "", false
	}
	return e.active.nodeID, true
}

// Snapshot returns an immutable copy of the graph being edited.
func (e *Editor) Snapshot() domain.Graph {
	return e.store.Snapshot()
}

// Document returns the persisted form of the graph being edited.
func (e *Editor) Document() codec.Document {
	return codec.Encode(e.store.Snapshot())
}

// Save writes the current snapshot to store under owner.
func (e *Editor) Save(ctx context.Context, store ports.SnapshotStore, owner string) error {
	if err := store.Save(ctx, owner, e.Document()); err != nil {
		return fmt.Errorf("failed to save flow for %s: %w", owner, err)
	}
	return nil
}

// Open loads the snapshot saved under owner and starts an editing session on it.
// When nothing was saved yet, a blank graph is returned.
func Open(ctx context.Context, store ports.SnapshotStore, owner string, opts ...Option) (*Editor, error) {
	doc, err := store.Load(ctx, owner)
	if errors.Is(err, domain.ErrSnapshotNotFound) {
		return NewBlank(opts...), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load flow for %s: %w", owner, err)
	}

	g, err := codec.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flow for %s: %w", owner, err)
	}
	return New(graph.NewStoreFrom(g), opts...), nil
}

// forgive swallows NotFound errors, which an interactive canvas treats as already resolved.
func (e *Editor) forgive(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, domain.ErrNotFound) {
		e.logger.Debug("editing operation ignored", "err", err)
		return
	}
	e.logger.Warn("editing operation failed", "err", err)
}
