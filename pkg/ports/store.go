package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/codec"
)

// SnapshotStore defines the persistence boundary of the editor.
// The document produced by the codec is the only thing written to or read from storage.
type SnapshotStore interface {
	// Save persists the snapshot of the flow owned by owner, replacing any previous one.
	Save(ctx context.Context, owner string, doc codec.Document) error

	// Load retrieves the snapshot of the flow owned by owner.
	// Returns domain.ErrSnapshotNotFound if nothing was saved for that owner.
	Load(ctx context.Context, owner string) (codec.Document, error)

	// Delete removes the snapshot of the flow owned by owner.
	Delete(ctx context.Context, owner string) error
}

// ListableStore is implemented by stores able to enumerate their owners.
type ListableStore interface {
	SnapshotStore
	List(ctx context.Context) ([]string, error)
}
