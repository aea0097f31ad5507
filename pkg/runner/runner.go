package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/pkg/domain"
)

// Runner handles the conversation loop of a preview using a pluggable IOHandler.
type Runner struct {
	// Handler is the strategy for IO. Defaults to a TextHandler on Stdin/Stdout.
	Handler IOHandler

	// Logger is used for internal debug logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// EchoReplies forwards user events to the handler.
	EchoReplies bool
}

// NewRunner creates a new Runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.Logger == nil {
		r.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return r
}

// Run resets the preview and converses until the run terminates, the input ends,
// the user types exit or quit, or ctx is cancelled.
func (r *Runner) Run(ctx context.Context, preview *chatflow.Preview) error {
	signals := NewSignalManager(ctx)
	defer signals.Stop()
	ctx = signals.Context()

	seen := 0
	opErr := preview.Reset(ctx)
	for {
		var err error
		if seen, err = r.drain(ctx, preview, seen); err != nil {
			return err
		}
		if opErr != nil {
			_ = r.Handler.SystemOutput(ctx, "Conversation aborted: "+opErr.Error())
			return opErr
		}

		switch preview.Status() {
		case domain.StatusIdle:
			return r.Handler.SystemOutput(ctx, "Flow has no start step.")
		case domain.StatusTerminal:
			return r.Handler.SystemOutput(ctx, "End of conversation.")
		}

		text, err := r.Handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				r.Logger.Debug("input closed, leaving conversation")
				return nil
			}
			signals.CheckRace()
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("input error: %w", err)
		}

		if cmd := strings.ToLower(text); cmd == "exit" || cmd == "quit" {
			return r.Handler.SystemOutput(ctx, "Bye!")
		}

		opErr = preview.SubmitReply(ctx, text)
	}
}

// drain forwards events until everything in the transcript has become visible.
func (r *Runner) drain(ctx context.Context, preview *chatflow.Preview, seen int) (int, error) {
	for seen < len(preview.Transcript()) {
		select {
		case <-ctx.Done():
			return seen, ctx.Err()
		case ev, ok := <-preview.Events():
			if !ok {
				return seen, nil
			}
			seen++
			if ev.Kind == domain.EventUser && !r.EchoReplies {
				continue
			}
			if err := r.Handler.Output(ctx, ev); err != nil {
				return seen, fmt.Errorf("output error: %w", err)
			}
		}
	}
	return seen, nil
}
