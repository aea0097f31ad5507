package runtime

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/google/uuid"
)

// Run is a live, steppable simulation of a conversation walking one graph snapshot.
//
// The run owns a private copy of the graph; later edits to the source never affect it.
// All operations are serialized by a run-level lock, so transcript events always appear
// in traversal order. Visibility of bot events to consumers of Events is delayed by the
// outbox, which preserves that order.
type Run struct {
	mu sync.Mutex

	id         string
	graph      domain.Graph
	status     domain.RunStatus
	current    string
	transcript []domain.Event

	choose   BranchSelector
	maxSteps int
	delay    time.Duration
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
	detached bool

	outbox *outbox
}

// NewRun creates an idle run over a copy of g.
// The caller must Close the run to stop its delivery goroutine.
func NewRun(g domain.Graph, opts ...RunOption) *Run {
	r := &Run{
		id:       uuid.NewString(),
		graph:    g.Clone(),
		status:   domain.StatusIdle,
		choose:   UniformRandom,
		maxSteps: DefaultMaxSteps,
		delay:    DefaultDelay,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("run_id", r.id)
	r.outbox = newOutbox(r.now, r.detached)
	return r
}

// ID returns the run identifier.
func (r *Run) ID() string {
	return r.id
}

// Status returns the current state machine position.
func (r *Run) Status() domain.RunStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Current returns the id of the node the run stopped at, empty while idle.
func (r *Run) Current() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Graph returns a copy of the snapshot the run walks.
func (r *Run) Graph() domain.Graph {
	return r.graph.Clone()
}

// Transcript returns every event appended so far, whether or not it is visible yet.
func (r *Run) Transcript() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Event, len(r.transcript))
	copy(out, r.transcript)
	return out
}

// Events returns the channel on which events are delivered once visible.
// It is closed by Close. Consumers must keep draining it; delivery blocks otherwise.
// Reset discards events of the previous conversation that were not read yet.
// With detached delivery nothing is ever sent on it.
func (r *Run) Events() <-chan domain.Event {
	return r.outbox.events()
}

// Visible returns the events already delivered, in order.
func (r *Run) Visible() []domain.Event {
	_, events := r.outbox.delivered()
	return events
}

// Delivered returns the events already delivered together with the reset generation
// they belong to. The generation grows on every Reset, so pollers can tell a restarted
// conversation from one that merely progressed.
func (r *Run) Delivered() (uint64, []domain.Event) {
	return r.outbox.delivered()
}

// Close stops delivery. Pending events are discarded.
func (r *Run) Close() {
	r.outbox.close()
}

// Reset clears the transcript, returns to idle and starts traversal from the start node.
// Without a start node the run stays idle.
func (r *Run) Reset(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.transcript = nil
	r.status = domain.StatusIdle
	r.current = ""
	r.outbox.reset()

	start, ok := r.graph.Start()
	if !ok {
		r.logger.DebugContext(ctx, "reset without start node, staying idle")
		return nil
	}

	r.current = start.ID
	r.enter(ctx, start)
	r.emitFor(start)
	return r.advance(ctx, start.ID)
}

// Advance resolves the next connection from nodeID and walks the graph until it
// suspends or terminates. It is a no-op on terminal and suspended runs.
func (r *Run) Advance(ctx context.Context, nodeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status == domain.StatusTerminal || r.status == domain.StatusSuspended {
		r.logger.DebugContext(ctx, "advance ignored", "status", r.status, "node_id", nodeID)
		return nil
	}
	return r.advance(ctx, nodeID)
}

// SubmitReply records a user reply and resumes traversal from the node that suspended the run.
// Calling it while the run is not suspended is a no-op.
func (r *Run) SubmitReply(ctx context.Context, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.status != domain.StatusSuspended {
		r.logger.DebugContext(ctx, "reply ignored: run is not suspended", "status", r.status)
		return nil
	}

	r.append(domain.EventUser, "", text)
	if r.hooks.OnReply != nil {
		r.hooks.OnReply(ctx, r.nodeEvent(r.current))
	}
	return r.advance(ctx, r.current)
}

// advance is the traversal loop. Caller must hold r.mu.
func (r *Run) advance(ctx context.Context, from string) error {
	steps := 0
	for {
		r.status = domain.StatusAdvancing

		candidates := r.graph.Outgoing(from)
		if len(candidates) == 0 {
			r.terminate(ctx, from)
			return nil
		}

		conn := candidates[r.pick(candidates)]
		target, ok := r.graph.Node(conn.To)
		if !ok {
			r.logger.DebugContext(ctx, "dangling connection treated as dead end",
				"connection_id", conn.ID, "from", conn.From, "to", conn.To)
			r.terminate(ctx, from)
			return nil
		}

		// Reaching an interactive node never counts against the step limit.
		if r.maxSteps > 0 && steps >= r.maxSteps && !target.Kind.Interactive() {
			r.terminate(ctx, from)
			r.logger.WarnContext(ctx, "flow aborted after step limit", "node_id", from, "max_steps", r.maxSteps)
			return fmt.Errorf("%w: %d steps without reaching an interactive node (stopped at %s)",
				domain.ErrRunawayFlow, steps, from)
		}

		r.current = target.ID
		r.enter(ctx, target)
		r.emitFor(target)

		if target.Kind.Interactive() {
			r.status = domain.StatusSuspended
			if r.hooks.OnSuspend != nil {
				r.hooks.OnSuspend(ctx, r.nodeEvent(target.ID))
			}
			return nil
		}

		steps++
		from = target.ID
	}
}

func (r *Run) pick(candidates []domain.Connection) int {
	if len(candidates) == 1 {
		return 0
	}
	i := r.choose(candidates)
	if i < 0 || i >= len(candidates) {
		r.logger.Warn("branch selector returned out of range index", "index", i, "candidates", len(candidates))
		return 0
	}
	return i
}

func (r *Run) terminate(ctx context.Context, last string) {
	r.status = domain.StatusTerminal
	r.logger.DebugContext(ctx, "run terminated", "node_id", last)
	if r.hooks.OnTerminal != nil {
		r.hooks.OnTerminal(ctx, r.id, last)
	}
}

func (r *Run) enter(ctx context.Context, n domain.Node) {
	r.logger.DebugContext(ctx, "node entered", "node_id", n.ID, "kind", n.Kind)
	if r.hooks.OnNodeEnter != nil {
		r.hooks.OnNodeEnter(ctx, r.nodeEvent(n.ID))
	}
}

func (r *Run) nodeEvent(nodeID string) *domain.NodeEvent {
	n, _ := r.graph.Node(nodeID)
	return &domain.NodeEvent{RunID: r.id, NodeID: nodeID, Kind: n.Kind}
}
