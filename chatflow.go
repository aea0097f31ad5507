package chatflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/editor"
	"github.com/aretw0/chatflow/pkg/ports"
)

const (
	// DefaultDelay is the pause before each bot event of a preview becomes visible.
	DefaultDelay = runtime.DefaultDelay
	// DefaultMaxSteps bounds how many steps a preview auto-continues before aborting.
	DefaultMaxSteps = runtime.DefaultMaxSteps
)

// Preview is a live simulation of a conversation over one graph snapshot.
type Preview = runtime.Run

// PreviewOption tunes a single preview.
type PreviewOption = runtime.RunOption

// DetachedDelivery makes a preview record visible events without feeding its Events channel.
// Use it when the transcript is polled instead of streamed.
func DetachedDelivery() PreviewOption {
	return runtime.WithDetachedDelivery()
}

// BranchSelector picks the connection followed when a node has several outgoing edges.
type BranchSelector = runtime.BranchSelector

// Studio is the high-level entry point of the library.
// It ties editing sessions, snapshot persistence and previews together.
type Studio struct {
	store      ports.SnapshotStore
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	runOpts    []runtime.RunOption
	editorOpts []editor.Option
}

// Option defines a functional option for configuring the Studio.
type Option func(*Studio)

// WithStore sets where flows are saved. Defaults to an in-memory store.
func WithStore(store ports.SnapshotStore) Option {
	return func(s *Studio) {
		s.store = store
	}
}

// WithLifecycleHooks registers observability hooks on every preview.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Studio) {
		s.hooks = hooks
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Studio) {
		s.logger = logger
	}
}

// WithBranchSelector replaces uniform random branching in previews.
func WithBranchSelector(sel BranchSelector) Option {
	return func(s *Studio) {
		s.runOpts = append(s.runOpts, runtime.WithBranchSelector(sel))
	}
}

// WithDelay sets the thinking time between bot events of a preview.
func WithDelay(d time.Duration) Option {
	return func(s *Studio) {
		s.runOpts = append(s.runOpts, runtime.WithDelay(d))
	}
}

// WithMaxSteps bounds auto-continuation through non-interactive nodes.
func WithMaxSteps(n int) Option {
	return func(s *Studio) {
		s.runOpts = append(s.runOpts, runtime.WithMaxSteps(n))
	}
}

// WithPlacementJitter sets the area in which new steps are dropped on the canvas.
func WithPlacementJitter(size float64) Option {
	return func(s *Studio) {
		s.editorOpts = append(s.editorOpts, editor.WithJitter(size))
	}
}

// New creates a Studio.
func New(opts ...Option) *Studio {
	s := &Studio{}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = memory.NewStore()
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s
}

// Store returns the snapshot store flows are saved to.
func (s *Studio) Store() ports.SnapshotStore {
	return s.store
}

// Open starts an editing session on the flow saved under owner, or on a blank flow.
func (s *Studio) Open(ctx context.Context, owner string) (*editor.Editor, error) {
	opts := append([]editor.Option{editor.WithLogger(s.logger.With("owner", owner))}, s.editorOpts...)
	return editor.Open(ctx, s.store, owner, opts...)
}

// Save persists the current graph of an editing session under owner.
func (s *Studio) Save(ctx context.Context, owner string, ed *editor.Editor) error {
	return ed.Save(ctx, s.store, owner)
}

// Preview creates an idle preview over a copy of g.
// Call Reset to start the conversation and Close once done.
func (s *Studio) Preview(g domain.Graph, opts ...PreviewOption) *Preview {
	base := []runtime.RunOption{
		runtime.WithLogger(s.logger),
		runtime.WithLifecycleHooks(s.hooks),
	}
	base = append(base, s.runOpts...)
	return runtime.NewRun(g, append(base, opts...)...)
}

// PreviewSaved loads the flow saved under owner and creates a preview over it.
func (s *Studio) PreviewSaved(ctx context.Context, owner string) (*Preview, error) {
	doc, err := s.store.Load(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to load flow for %s: %w", owner, err)
	}
	g, err := codec.Decode(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode flow for %s: %w", owner, err)
	}
	return s.Preview(g), nil
}
