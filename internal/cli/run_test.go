package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSession_Text(t *testing.T) {
	var out bytes.Buffer
	err := RunSession(context.Background(), greetingFlow(), RunOptions{}, strings.NewReader("Ada\n"), &out)
	require.NoError(t, err)

	text := out.String()
	assert.NotContains(t, text, "chatflow", "banner is only printed on terminals")
	assert.Contains(t, text, "Hello\n")
	assert.Contains(t, text, "Name?\n")
	assert.Contains(t, text, "Bye\n")
	assert.Contains(t, text, "End of conversation.")
	assert.Less(t, strings.Index(text, "Hello"), strings.Index(text, "Name?"))
	assert.Less(t, strings.Index(text, "Name?"), strings.Index(text, "Bye"))
}

func TestRunSession_JSON(t *testing.T) {
	var out bytes.Buffer
	err := RunSession(context.Background(), greetingFlow(), RunOptions{JSON: true}, strings.NewReader("\"Ada\"\n"), &out)
	require.NoError(t, err)

	var kinds []string
	var texts []string
	dec := json.NewDecoder(&out)
	for dec.More() {
		var line map[string]any
		require.NoError(t, dec.Decode(&line))
		if sys, ok := line["system"]; ok {
			kinds = append(kinds, "system")
			texts = append(texts, sys.(string))
			continue
		}
		kinds = append(kinds, line["kind"].(string))
		texts = append(texts, line["text"].(string))
	}

	assert.Equal(t, []string{"message", "message", "user", "message", "system"}, kinds)
	assert.Equal(t, []string{"Hello", "Name?", "Ada", "Bye", "End of conversation."}, texts)
}

func TestRunSession_InputClosedEarly(t *testing.T) {
	var out bytes.Buffer
	err := RunSession(context.Background(), greetingFlow(), RunOptions{}, strings.NewReader(""), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Name?")
	assert.NotContains(t, out.String(), "Bye")
}

func TestRunSession_Runaway(t *testing.T) {
	g := domain.Graph{
		Nodes: []domain.Node{
			{ID: "s", Kind: domain.KindStart},
			{ID: "m", Kind: domain.KindMessage, Text: "again"},
		},
		Connections: []domain.Connection{
			{ID: "c1", From: "s", To: "m"},
			{ID: "c2", From: "m", To: "m"},
		},
	}
	var out bytes.Buffer
	err := RunSession(context.Background(), g, RunOptions{MaxSteps: 5}, strings.NewReader(""), &out)
	assert.ErrorIs(t, err, domain.ErrRunawayFlow)
	assert.Equal(t, 5, strings.Count(out.String(), "again"))
}
