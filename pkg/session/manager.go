package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/codec"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/editor"
	"github.com/aretw0/chatflow/pkg/ports"
)

// Manager orchestrates access to saved flows and live previews.
type Manager struct {
	studio *chatflow.Studio

	flows *keyedLocks
	runs  *keyedLocks

	mu       sync.RWMutex
	previews map[string]*chatflow.Preview

	logger *slog.Logger
}

// Option configures the Manager.
type Option func(*Manager)

// WithLogger configures a logger for the Manager.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a Manager over the flows and preview settings of studio.
func NewManager(studio *chatflow.Studio, opts ...Option) *Manager {
	m := &Manager{
		studio:   studio,
		flows:    newKeyedLocks(),
		runs:     newKeyedLocks(),
		previews: make(map[string]*chatflow.Preview),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying snapshot store.
func (m *Manager) Store() ports.SnapshotStore {
	return m.studio.Store()
}

// Load returns the flow saved under owner.
func (m *Manager) Load(ctx context.Context, owner string) (domain.Graph, error) {
	var g domain.Graph
	err := m.flows.with(ctx, owner, func(ctx context.Context) error {
		doc, err := m.Store().Load(ctx, owner)
		if err != nil {
			return err
		}
		g, err = codec.Decode(doc)
		return err
	})
	return g, err
}

// Save validates and persists a full snapshot under owner, replacing any previous one.
func (m *Manager) Save(ctx context.Context, owner string, doc codec.Document) error {
	if _, err := codec.Decode(doc); err != nil {
		return err
	}
	return m.flows.with(ctx, owner, func(ctx context.Context) error {
		return m.Store().Save(ctx, owner, doc)
	})
}

// Edit opens the flow of owner, applies fn and saves the result.
// Concurrent edits of the same owner are serialized; nothing is saved when fn fails.
func (m *Manager) Edit(ctx context.Context, owner string, fn func(*editor.Editor) error) (domain.Graph, error) {
	var g domain.Graph
	err := m.flows.with(ctx, owner, func(ctx context.Context) error {
		ed, err := m.studio.Open(ctx, owner)
		if err != nil {
			return err
		}
		if err := fn(ed); err != nil {
			return err
		}
		if err := m.studio.Save(ctx, owner, ed); err != nil {
			return err
		}
		g = ed.Snapshot()
		return nil
	})
	return g, err
}

// Delete removes the flow saved under owner.
func (m *Manager) Delete(ctx context.Context, owner string) error {
	return m.flows.with(ctx, owner, func(ctx context.Context) error {
		return m.Store().Delete(ctx, owner)
	})
}

// List returns the owners with a saved flow, when the store can enumerate them.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	ls, ok := m.Store().(ports.ListableStore)
	if !ok {
		return nil, fmt.Errorf("store %T cannot list flows", m.Store())
	}
	return ls.List(ctx)
}

// StartPreview creates a preview over g, resets it and registers it under its id.
// The preview stays registered when the reset aborts a runaway flow; any other
// failure unregisters and closes it.
func (m *Manager) StartPreview(ctx context.Context, g domain.Graph) (*chatflow.Preview, error) {
	p := m.studio.Preview(g, chatflow.DetachedDelivery())

	m.mu.Lock()
	m.previews[p.ID()] = p
	m.mu.Unlock()

	m.logger.Debug("preview started", "preview_id", p.ID())
	err := m.runs.with(ctx, p.ID(), func(ctx context.Context) error {
		return p.Reset(ctx)
	})
	if err != nil && !errors.Is(err, domain.ErrRunawayFlow) {
		m.mu.Lock()
		delete(m.previews, p.ID())
		m.mu.Unlock()
		p.Close()
		return nil, err
	}
	return p, err
}

// Preview returns the registered preview with the given id.
func (m *Manager) Preview(id string) (*chatflow.Preview, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.previews[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrPreviewNotFound, id)
	}
	return p, nil
}

// Reply submits a user reply to a preview.
func (m *Manager) Reply(ctx context.Context, id, text string) (*chatflow.Preview, error) {
	return m.withPreview(ctx, id, func(ctx context.Context, p *chatflow.Preview) error {
		return p.SubmitReply(ctx, text)
	})
}

// Reset restarts a preview from its start node.
func (m *Manager) Reset(ctx context.Context, id string) (*chatflow.Preview, error) {
	return m.withPreview(ctx, id, func(ctx context.Context, p *chatflow.Preview) error {
		return p.Reset(ctx)
	})
}

// ClosePreview stops and forgets a preview.
func (m *Manager) ClosePreview(id string) error {
	m.mu.Lock()
	p, ok := m.previews[id]
	delete(m.previews, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrPreviewNotFound, id)
	}
	p.Close()
	return nil
}

// Close stops every registered preview.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, p := range m.previews {
		p.Close()
		delete(m.previews, id)
	}
}

func (m *Manager) withPreview(ctx context.Context, id string, fn func(context.Context, *chatflow.Preview) error) (*chatflow.Preview, error) {
	p, err := m.Preview(id)
	if err != nil {
		return nil, err
	}
	err = m.runs.with(ctx, id, func(ctx context.Context) error {
		return fn(ctx, p)
	})
	return p, err
}
