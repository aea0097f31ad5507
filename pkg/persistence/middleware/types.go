package middleware

import (
	"context"
	"fmt"

	"github.com/aretw0/chatflow/pkg/ports"
)

// Middleware allows wrapping a SnapshotStore to add behavior.
type Middleware func(ports.SnapshotStore) ports.SnapshotStore

// Wrap applies mws to store. The first middleware is the outermost one.
func Wrap(store ports.SnapshotStore, mws ...Middleware) ports.SnapshotStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// list delegates to next when it can enumerate owners.
func list(ctx context.Context, next ports.SnapshotStore) ([]string, error) {
	ls, ok := next.(ports.ListableStore)
	if !ok {
		return nil, fmt.Errorf("store %T cannot list flows", next)
	}
	return ls.List(ctx)
}
