package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplatePlainTextFastPath(t *testing.T) {
	out, err := RenderTemplate("no markers here", map[string]any{"x": 1})
	require.NoError(t, err)
	assert.Equal(t, "no markers here", out)
}

func TestRenderTemplateSubstitution(t *testing.T) {
	out, err := RenderTemplate(
		"You are {{.Agent}} answering on {{.Channel}}.",
		map[string]any{"Agent": "support", "Channel": "whatsapp"},
	)
	require.NoError(t, err)
	assert.Equal(t, "You are support answering on whatsapp.", out)
}

func TestRenderTemplateHelpers(t *testing.T) {
	out, err := RenderTemplate(
		`{{upper .Name}} / {{default "none" .Missing}}`,
		map[string]any{"Name": "acme"},
	)
	require.NoError(t, err)
	assert.Equal(t, "ACME / none", out)
}

func TestRenderTemplateParseError(t *testing.T) {
	_, err := RenderTemplate("{{.Broken", nil)
	assert.Error(t, err)
}
