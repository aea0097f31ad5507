package domain

// Graph is the aggregate of nodes and connections of one flow.
// Order of both slices is significant and preserved by every copy and codec.
type Graph struct {
	Nodes       []Node       `json:"nodes" yaml:"nodes"`
	Connections []Connection `json:"connections" yaml:"connections"`
}

// Clone returns a deep copy of the graph. Mutating the copy never affects g.
// Empty lists are normalized to nil.
func (g Graph) Clone() Graph {
	out := Graph{}
	if len(g.Nodes) > 0 {
		out.Nodes = make([]Node, len(g.Nodes))
		copy(out.Nodes, g.Nodes)
	}
	if len(g.Connections) > 0 {
		out.Connections = make([]Connection, len(g.Connections))
		copy(out.Connections, g.Connections)
	}
	return out
}

// Node looks up a node by id.
func (g Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// HasNode reports whether a node with the given id exists.
func (g Graph) HasNode(id string) bool {
	_, ok := g.Node(id)
	return ok
}

// Start returns the first node of kind start, if any.
func (g Graph) Start() (Node, bool) {
	for _, n := range g.Nodes {
		if n.Kind == KindStart {
			return n, true
		}
	}
	return Node{}, false
}

// Outgoing returns the connections leaving the given node, in insertion order.
func (g Graph) Outgoing(id string) []Connection {
	var out []Connection
	for _, c := range g.Connections {
		if c.From == id {
			out = append(out, c)
		}
	}
	return out
}

// Incoming returns the connections arriving at the given node, in insertion order.
func (g Graph) Incoming(id string) []Connection {
	var in []Connection
	for _, c := range g.Connections {
		if c.To == id {
			in = append(in, c)
		}
	}
	return in
}
