package runner

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents one visible transcript event.
	Output(ctx context.Context, ev domain.Event) error

	// Input reads a reply from the user.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message (run finished, run aborted).
	SystemOutput(ctx context.Context, msg string) error
}

// ContentRenderer transforms message text before it is printed.
// This allows markdown rendering without coupling the runner to a terminal library.
type ContentRenderer func(string) (string, error)

// AnnotationStyler decorates annotation text (condition labels, action summaries).
type AnnotationStyler func(string) string
