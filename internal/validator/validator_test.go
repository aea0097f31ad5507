package validator

import (
	"strings"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func n(id string, kind domain.Kind) domain.Node {
	return domain.Node{ID: id, Kind: kind}
}

func c(id, from, to string) domain.Connection {
	return domain.Connection{ID: id, From: from, To: to}
}

func messages(issues []Issue) string {
	var parts []string
	for _, i := range issues {
		parts = append(parts, i.String())
	}
	return strings.Join(parts, "\n")
}

func TestValidateGraph_Valid(t *testing.T) {
	g := domain.Graph{
		Nodes:       []domain.Node{n("s", domain.KindStart), n("m", domain.KindMessage), n("q", domain.KindQuestion)},
		Connections: []domain.Connection{c("1", "s", "m"), c("2", "m", "q"), c("3", "q", "m")},
	}

	report := ValidateGraph(g)
	assert.NoError(t, report.Err())
	assert.Empty(t, report.Issues, messages(report.Issues))
}

func TestValidateGraph_StartProblems(t *testing.T) {
	report := ValidateGraph(domain.Graph{Nodes: []domain.Node{n("m", domain.KindMessage)}})
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "no start step")

	report = ValidateGraph(domain.Graph{Nodes: []domain.Node{n("a", domain.KindStart), n("b", domain.KindStart)}})
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "2 start steps")
}

func TestValidateGraph_DuplicateIDs(t *testing.T) {
	report := ValidateGraph(domain.Graph{Nodes: []domain.Node{n("s", domain.KindStart), n("s", domain.KindMessage)}})
	require.Error(t, report.Err())
	assert.Contains(t, report.Err().Error(), "duplicate node id")
}

func TestValidateGraph_Warnings(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			n("s", domain.KindStart),
			n("m", domain.KindMessage),
			n("orphan", domain.KindMessage),
		},
		Connections: []domain.Connection{c("1", "s", "m"), c("2", "m", "ghost")},
	}

	report := ValidateGraph(g)
	assert.NoError(t, report.Err())

	warnings := messages(report.Warnings())
	assert.Contains(t, warnings, "points to missing node ghost")
	assert.Contains(t, warnings, "orphan: unreachable")
}

func TestValidateGraph_SilentCycles(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			n("s", domain.KindStart),
			n("a", domain.KindMessage),
			n("b", domain.KindCondition),
			n("loop", domain.KindAction),
		},
		Connections: []domain.Connection{
			c("1", "s", "a"), c("2", "a", "b"), c("3", "b", "a"),
			c("4", "b", "loop"), c("5", "loop", "loop"),
		},
	}

	warnings := ValidateGraph(g).Warnings()
	require.Len(t, warnings, 2, messages(warnings))
	joined := messages(warnings)
	assert.Contains(t, joined, "a -> b")
	assert.Contains(t, joined, "cycle loop never waits")
}
