package domain

import "errors"

// ErrNotFound is returned when an editing operation references a missing node or connection.
var ErrNotFound = errors.New("not found")

// ErrUnknownNode is returned when a connection endpoint does not exist in the graph.
var ErrUnknownNode = errors.New("unknown node")

// ErrMalformedSnapshot is returned when a snapshot document is structurally invalid.
var ErrMalformedSnapshot = errors.New("malformed snapshot")

// ErrRunawayFlow is returned when a run auto-continues past its step limit without reaching
// an interactive node, which happens on cycles made only of non-interactive steps.
var ErrRunawayFlow = errors.New("runaway flow")

// ErrSnapshotNotFound is returned when no snapshot is stored for an owner.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// ErrPreviewNotFound is returned when a preview session id is unknown.
var ErrPreviewNotFound = errors.New("preview not found")
