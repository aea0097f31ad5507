package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		graph    domain.Graph
		contains []string
	}{
		{
			name: "Shapes By Kind",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "s", Kind: domain.KindStart},
				{ID: "m", Kind: domain.KindMessage, Text: "Hi"},
				{ID: "q", Kind: domain.KindQuestion, Text: "Name?"},
				{ID: "i", Kind: domain.KindInput, Text: "Email"},
				{ID: "c", Kind: domain.KindCondition, Text: "If VIP"},
				{ID: "a", Kind: domain.KindAction, Text: "Notify"},
			}},
			contains: []string{
				`n_s(("start"))`,
				`n_m["Hi"]`,
				`n_q[/"Name?"/]`,
				`n_i[/"Email"/]`,
				`n_c{"If VIP"}`,
				`n_a[["Notify"]]`,
			},
		},
		{
			name: "ID Sanitization",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "3f2a-9c", Kind: domain.KindMessage, Text: "x"},
			}},
			contains: []string{`n_3f2a_9c["x"]`},
		},
		{
			name: "Text Escaping",
			graph: domain.Graph{Nodes: []domain.Node{
				{ID: "m", Kind: domain.KindMessage, Text: "Say \"hi\"\nnow"},
			}},
			contains: []string{`n_m["Say 'hi'<br/>now"]`},
		},
		{
			name: "Connections And Dangling Edges",
			graph: domain.Graph{
				Nodes: []domain.Node{
					{ID: "s", Kind: domain.KindStart},
					{ID: "m", Kind: domain.KindMessage, Text: "Hi"},
				},
				Connections: []domain.Connection{
					{ID: "1", From: "s", To: "m"},
					{ID: "2", From: "m", To: "gone"},
				},
			},
			contains: []string{
				"n_s --> n_m",
				`n_m -.-> n_gone["missing: gone"]`,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.graph, nil)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			assert.NotContains(t, got, "classDef")
		})
	}
}

func TestGenerateMermaid_Overlay(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			{ID: "s", Kind: domain.KindStart},
			{ID: "m", Kind: domain.KindMessage, Text: "Hi"},
			{ID: "q", Kind: domain.KindQuestion, Text: "Name?"},
		},
	}
	transcript := []domain.Event{
		{Kind: domain.EventMessage, NodeID: "m", Text: "Hi"},
		{Kind: domain.EventMessage, NodeID: "q", Text: "Name?"},
		{Kind: domain.EventUser, Text: "Ana"},
	}

	got := graph.GenerateMermaid(g, graph.OverlayFromTranscript(transcript, "q"))

	assert.Contains(t, got, "class n_m visited;")
	assert.Contains(t, got, "class n_q current;")
	assert.NotContains(t, got, "class n_q visited;")
	assert.Equal(t, 1, strings.Count(got, "class n_m visited;"))
}
