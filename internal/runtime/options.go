package runtime

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
)

// DefaultDelay is the artificial "thinking time" before a bot event becomes visible.
const DefaultDelay = 600 * time.Millisecond

// DefaultMaxSteps bounds how many non-interactive nodes a single advance may walk through.
const DefaultMaxSteps = 1000

// BranchSelector picks one connection among the outgoing candidates of a node
// and returns its index. Candidates are never empty.
type BranchSelector func(candidates []domain.Connection) int

// UniformRandom selects a candidate uniformly at random. Node text is never consulted.
func UniformRandom(candidates []domain.Connection) int {
	return rand.IntN(len(candidates))
}

// RunOption configures a Run.
type RunOption func(*Run)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) RunOption {
	return func(r *Run) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
// Hooks run synchronously while the run is locked and must not call back into it.
func WithLifecycleHooks(hooks domain.LifecycleHooks) RunOption {
	return func(r *Run) {
		r.hooks = hooks
	}
}

// WithBranchSelector replaces the uniform random branching policy.
func WithBranchSelector(sel BranchSelector) RunOption {
	return func(r *Run) {
		if sel != nil {
			r.choose = sel
		}
	}
}

// WithDelay sets the delay between consecutive bot events becoming visible.
func WithDelay(d time.Duration) RunOption {
	return func(r *Run) {
		r.delay = d
	}
}

// WithMaxSteps bounds auto-continuation. Zero or negative disables the bound.
func WithMaxSteps(n int) RunOption {
	return func(r *Run) {
		r.maxSteps = n
	}
}

// WithRunID sets the identifier reported to hooks.
func WithRunID(id string) RunOption {
	return func(r *Run) {
		r.id = id
	}
}

// WithClock overrides the time source used to stamp events.
func WithClock(now func() time.Time) RunOption {
	return func(r *Run) {
		if now != nil {
			r.now = now
		}
	}
}

// WithDetachedDelivery stops feeding the Events channel. Events still become
// visible after their delay and can be polled with Visible.
func WithDetachedDelivery() RunOption {
	return func(r *Run) {
		r.detached = true
	}
}
