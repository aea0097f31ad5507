package domain

import (
	"context"
	"time"
)

// EventKind defines the category of a transcript event.
type EventKind string

const (
	// EventMessage is a conversational message authored by the bot.
	EventMessage EventKind = "message"
	// EventAnnotation is a descriptive note (condition label, action summary).
	EventAnnotation EventKind = "annotation"
	// EventUser is a reply authored by the user.
	EventUser EventKind = "user"
)

// ActionPrefix is prepended to the text of action nodes when annotated.
const ActionPrefix = "[Action] "

// Event is one entry of a transcript.
type Event struct {
	Seq    int       `json:"seq"`
	Kind   EventKind `json:"kind"`
	NodeID string    `json:"node_id,omitempty"`
	Text   string    `json:"text"`
	At     time.Time `json:"at"`
}

// RunStatus is the position of a preview run in its state machine.
type RunStatus string

const (
	StatusIdle      RunStatus = "idle"      // No traversal started
	StatusAdvancing RunStatus = "advancing" // Resolving the next connection
	StatusSuspended RunStatus = "suspended" // Waiting for an external reply
	StatusTerminal  RunStatus = "terminal"  // No way forward, the run is over
)

// NodeEvent describes a node reached by a run.
type NodeEvent struct {
	RunID  string `json:"run_id"`
	NodeID string `json:"node_id"`
	Kind   Kind   `json:"kind"`
}

// LifecycleHooks defines callbacks for run observability.
type LifecycleHooks struct {
	OnNodeEnter func(context.Context, *NodeEvent)
	OnSuspend   func(context.Context, *NodeEvent)
	OnReply     func(context.Context, *NodeEvent)
	OnTerminal  func(ctx context.Context, runID string, lastNodeID string)
}
