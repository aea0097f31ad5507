package runner

import "log/slog"

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithEchoReplies makes the runner hand user events to the handler too.
// Useful for non-interactive handlers whose output must be a full transcript.
func WithEchoReplies(echo bool) Option {
	return func(r *Runner) {
		r.EchoReplies = echo
	}
}
