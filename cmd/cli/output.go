package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	infoColor    = color.New(color.FgWhite)
	dimColor     = color.New(color.FgHiBlack)
)

// formatMarkdown renders content for a color terminal. It reports false when
// stdout is not a terminal or rendering fails.
func formatMarkdown(content string) (string, bool) {
	if color.NoColor || strings.TrimSpace(content) == "" {
		return "", false
	}
	renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return "", false
	}
	out, err := renderer.Render(content)
	if err != nil {
		return "", false
	}
	return out, true
}

// renderMarkdown appends the formatted review below the streamed raw text.
func renderMarkdown(content string) {
	out, ok := formatMarkdown(content)
	if !ok {
		return
	}
	fmt.Println()
	dimColor.Println(strings.Repeat("─", 60))
	fmt.Fprint(os.Stdout, out)
}

// printMarkdown prints content formatted, or raw when it cannot be.
func printMarkdown(content string) {
	if out, ok := formatMarkdown(content); ok {
		fmt.Fprint(os.Stdout, out)
		return
	}
	fmt.Println(content)
}

func truncateSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
