package diff

import (
	"fmt"
	"log/slog"
	"strings"
)

// NoLine marks a side of an AnnotatedLine that has no line number.
const NoLine = -1

// AnnotatedLine is one raw diff line with its old and new line numbers.
type AnnotatedLine struct {
	OldLineNumber int
	NewLineNumber int
	Content       string
}

// AnnotateLines walks a unified diff line by line and assigns line numbers
// from the most recent hunk header. File headers and hunk headers get NoLine
// on both sides. A malformed hunk header is logged and resets both counters
// to zero; the rest of the diff is still processed.
func AnnotateLines(patch string, logger *slog.Logger) []AnnotatedLine {
	if patch == "" {
		return nil
	}

	lines := strings.Split(patch, "\n")
	annotated := make([]AnnotatedLine, 0, len(lines))

	oldLine, newLine := 0, 0

	for _, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			annotated = append(annotated, AnnotatedLine{NoLine, NoLine, line})
		case strings.HasPrefix(line, "@@"):
			hunk, ok := parseHunkHeader(line)
			if !ok && logger != nil {
				logger.Warn("malformed hunk header, line numbers for this hunk are unreliable", "line", line)
			}
			oldLine, newLine = hunk.OldStart, hunk.NewStart
			annotated = append(annotated, AnnotatedLine{NoLine, NoLine, line})
		case strings.HasPrefix(line, "+"):
			annotated = append(annotated, AnnotatedLine{NoLine, newLine, line})
			newLine++
		case strings.HasPrefix(line, "-"):
			annotated = append(annotated, AnnotatedLine{oldLine, NoLine, line})
			oldLine++
		default:
			annotated = append(annotated, AnnotatedLine{oldLine, newLine, line})
			oldLine++
			newLine++
		}
	}

	return annotated
}

// Render formats annotated lines as two 4-wide number columns followed by the
// original content. Non-positive numbers render as blanks.
func Render(lines []AnnotatedLine) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(formatLineNumber(l.OldLineNumber))
		b.WriteByte(' ')
		b.WriteString(formatLineNumber(l.NewLineNumber))
		b.WriteByte(' ')
		b.WriteString(l.Content)
	}
	return b.String()
}

// Annotate is Render(AnnotateLines(patch)).
func Annotate(patch string, logger *slog.Logger) string {
	return Render(AnnotateLines(patch, logger))
}

// NewSideLines returns the new-file line numbers that exist in the diff, i.e.
// added and context lines. These are the lines a pull request comment can be
// anchored to.
func NewSideLines(lines []AnnotatedLine) map[int]struct{} {
	valid := make(map[int]struct{})
	for _, l := range lines {
		if l.NewLineNumber > 0 {
			valid[l.NewLineNumber] = struct{}{}
		}
	}
	return valid
}

func formatLineNumber(n int) string {
	if n <= 0 {
		return "    "
	}
	return fmt.Sprintf("%4d", n)
}
