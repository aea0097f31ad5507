package domain

import "fmt"

// Kind is the type of a flow step. The set is closed.
type Kind string

const (
	// KindStart is the entry point of a flow. Emits nothing unless it carries text.
	KindStart Kind = "start"
	// KindMessage sends its text to the user and continues immediately.
	KindMessage Kind = "message"
	// KindInput asks for free text and halts waiting for a reply.
	KindInput Kind = "input"
	// KindQuestion asks a question and halts waiting for a reply.
	KindQuestion Kind = "question"
	// KindCondition is a descriptive branch label. It never gates which edge is taken.
	KindCondition Kind = "condition"
	// KindAction describes a side-effect. It is only annotated, never executed.
	KindAction Kind = "action"
)

// Kinds lists every valid node kind in palette order.
var Kinds = []Kind{KindStart, KindMessage, KindInput, KindQuestion, KindCondition, KindAction}

var defaultText = map[Kind]string{
	KindStart:     "",
	KindMessage:   "New message",
	KindInput:     "Please type your answer",
	KindQuestion:  "New question?",
	KindCondition: "If condition",
	KindAction:    "Do something",
}

// Valid reports whether k belongs to the closed set of kinds.
func (k Kind) Valid() bool {
	_, ok := defaultText[k]
	return ok
}

// Interactive reports whether reaching a node of this kind suspends the run.
func (k Kind) Interactive() bool {
	return k == KindInput || k == KindQuestion
}

// DefaultText returns the placeholder text assigned to freshly added nodes.
func (k Kind) DefaultText() string {
	return defaultText[k]
}

// ParseKind converts a raw string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown node kind %q", s)
	}
	return k, nil
}

// Position is a 2D canvas coordinate. It is layout only and has no effect on execution.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Sub returns p - o.
func (p Position) Sub(o Position) Position {
	return Position{X: p.X - o.X, Y: p.Y - o.Y}
}

// Add returns p + o.
func (p Position) Add(o Position) Position {
	return Position{X: p.X + o.X, Y: p.Y + o.Y}
}

// Node represents a single step in the flow.
type Node struct {
	ID       string   `json:"id" yaml:"id"`
	Kind     Kind     `json:"kind" yaml:"kind"`
	Text     string   `json:"text" yaml:"text"`
	Position Position `json:"position" yaml:"position"`
}

// Connection is a directed edge between two nodes.
// Self-loops and duplicate pairs are representable.
type Connection struct {
	ID   string `json:"id" yaml:"id"`
	From string `json:"from" yaml:"from"`
	To   string `json:"to" yaml:"to"`
}
