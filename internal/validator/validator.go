package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// Severity ranks an Issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one finding about a graph.
type Issue struct {
	Severity Severity `json:"severity"`
	NodeID   string   `json:"node_id,omitempty"`
	Message  string   `json:"message"`
}

func (i Issue) String() string {
	if i.NodeID == "" {
		return fmt.Sprintf("[%s] %s", i.Severity, i.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", i.Severity, i.NodeID, i.Message)
}

// Report lists everything found by ValidateGraph.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Err summarizes error-level issues, or returns nil when there are none.
func (r Report) Err() error {
	var lines []string
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			lines = append(lines, i.String())
		}
	}
	if len(lines) == 0 {
		return nil
	}
	return fmt.Errorf("found %d errors:\n- %s", len(lines), strings.Join(lines, "\n- "))
}

// Warnings returns warning-level issues.
func (r Report) Warnings() []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == SeverityWarning {
			out = append(out, i)
		}
	}
	return out
}

// ValidateGraph crawls the graph from its start node.
//
// Errors are things a preview cannot recover from: no start node, more than one,
// duplicate ids. Warnings are tolerated by previews but likely mistakes: connections
// to missing nodes, nodes no path reaches, and cycles that never ask the user anything.
func ValidateGraph(g domain.Graph) Report {
	var r Report
	add := func(sev Severity, nodeID, format string, args ...any) {
		r.Issues = append(r.Issues, Issue{Severity: sev, NodeID: nodeID, Message: fmt.Sprintf(format, args...)})
	}

	seen := make(map[string]bool, len(g.Nodes))
	starts := 0
	for _, n := range g.Nodes {
		if seen[n.ID] {
			add(SeverityError, n.ID, "duplicate node id")
		}
		seen[n.ID] = true
		if n.Kind == domain.KindStart {
			starts++
		}
	}

	start, ok := g.Start()
	switch {
	case !ok:
		add(SeverityError, "", "flow has no start step")
	case starts > 1:
		add(SeverityError, "", "flow has %d start steps, only the first one is used", starts)
	}

	for _, c := range g.Connections {
		if !g.HasNode(c.From) {
			add(SeverityWarning, c.From, "connection %s leaves a missing node", c.ID)
		}
		if !g.HasNode(c.To) {
			add(SeverityWarning, c.From, "connection %s points to missing node %s", c.ID, c.To)
		}
	}

	if !ok {
		return r
	}

	visited := crawl(g, start.ID)
	for _, n := range g.Nodes {
		if !visited[n.ID] {
			add(SeverityWarning, n.ID, "unreachable from the start step")
		}
	}

	for _, cycle := range silentCycles(g, visited) {
		add(SeverityWarning, cycle[0], "cycle %s never waits for a reply and may be aborted", strings.Join(cycle, " -> "))
	}

	return r
}

// crawl returns the ids reachable from id, breadth first.
func crawl(g domain.Graph, id string) map[string]bool {
	visited := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, c := range g.Outgoing(current) {
			if !visited[c.To] && g.HasNode(c.To) {
				visited[c.To] = true
				queue = append(queue, c.To)
			}
		}
	}
	return visited
}

// silentCycles finds strongly connected groups of reachable non-interactive nodes
// (Tarjan), which a preview could walk forever.
func silentCycles(g domain.Graph, reachable map[string]bool) [][]string {
	silent := func(id string) bool {
		n, ok := g.Node(id)
		return ok && reachable[id] && !n.Kind.Interactive()
	}

	var (
		index   = map[string]int{}
		low     = map[string]int{}
		onStack = map[string]bool{}
		stack   []string
		next    int
		cycles  [][]string
	)

	var visit func(id string)
	visit = func(id string) {
		index[id], low[id] = next, next
		next++
		stack = append(stack, id)
		onStack[id] = true

		selfLoop := false
		for _, c := range g.Outgoing(id) {
			if !silent(c.To) {
				continue
			}
			if c.To == id {
				selfLoop = true
			}
			if _, seen := index[c.To]; !seen {
				visit(c.To)
				low[id] = min(low[id], low[c.To])
			} else if onStack[c.To] {
				low[id] = min(low[id], index[c.To])
			}
		}

		if low[id] != index[id] {
			return
		}
		var group []string
		for {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			onStack[top] = false
			group = append([]string{top}, group...)
			if top == id {
				break
			}
		}
		if len(group) > 1 || selfLoop {
			cycles = append(cycles, group)
		}
	}

	for _, n := range g.Nodes {
		if _, seen := index[n.ID]; !seen && silent(n.ID) {
			visit(n.ID)
		}
	}
	return cycles
}
