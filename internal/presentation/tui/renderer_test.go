package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/chatflow/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderer_KeepsMessageText(t *testing.T) {
	render := tui.NewRenderer()

	out, err := render("Hello **Ana**")
	require.NoError(t, err)
	assert.Contains(t, out, "Hello")
	assert.Contains(t, out, "Ana")
}

func TestAnnotationStyler_KeepsText(t *testing.T) {
	style := tui.NewAnnotationStyler()
	assert.Contains(t, style("[Action] Send invoice"), "[Action] Send invoice")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf)
	assert.GreaterOrEqual(t, strings.Count(buf.String(), "\n"), 6)
}
