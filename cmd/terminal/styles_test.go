package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTheme(t *testing.T) {
	theme, err := ParseTheme(" Dracula ")
	require.NoError(t, err)
	assert.Equal(t, ThemeDracula, theme)

	_, err = ParseTheme("solarized")
	assert.ErrorContains(t, err, "--list-themes")
}

func TestThemesHaveMarkdownStyle(t *testing.T) {
	for _, theme := range ListThemes() {
		assert.NotEmpty(t, GetTheme(theme).markdown, theme)
	}
	assert.Equal(t, "dark", GetTheme("unknown").markdown)
}
