package diff

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePatch = `--- a/main.go
+++ b/main.go
@@ -1,3 +1,4 @@
 a
-b
+c
+d
 e`

func TestAnnotateLines(t *testing.T) {
	lines := AnnotateLines(samplePatch, nil)
	require.Len(t, lines, 8)

	type pair struct{ old, new int }
	want := []pair{
		{NoLine, NoLine}, // ---
		{NoLine, NoLine}, // +++
		{NoLine, NoLine}, // @@
		{1, 1},
		{2, NoLine},
		{NoLine, 2},
		{NoLine, 3},
		{3, 4},
	}
	for i, w := range want {
		assert.Equal(t, w.old, lines[i].OldLineNumber, "old number of line %d (%q)", i, lines[i].Content)
		assert.Equal(t, w.new, lines[i].NewLineNumber, "new number of line %d (%q)", i, lines[i].Content)
	}
	assert.Equal(t, "-b", lines[4].Content)
}

func TestAnnotateLines_MultipleHunks(t *testing.T) {
	patch := strings.Join([]string{
		"@@ -10,2 +10,2 @@",
		" x",
		"-y",
		"+z",
		"@@ -40 +40,2 @@",
		" p",
		"+q",
	}, "\n")

	lines := AnnotateLines(patch, nil)
	require.Len(t, lines, 7)

	assert.Equal(t, AnnotatedLine{10, 10, " x"}, lines[1])
	assert.Equal(t, AnnotatedLine{11, NoLine, "-y"}, lines[2])
	assert.Equal(t, AnnotatedLine{NoLine, 11, "+z"}, lines[3])
	assert.Equal(t, AnnotatedLine{40, 40, " p"}, lines[5])
	assert.Equal(t, AnnotatedLine{NoLine, 41, "+q"}, lines[6])
}

func TestAnnotateLines_MalformedHeaderDegrades(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	patch := strings.Join([]string{
		"@@ garbage @@",
		" a",
		"+b",
		"@@ -5 +7 @@",
		" c",
	}, "\n")

	lines := AnnotateLines(patch, logger)
	require.Len(t, lines, 5)

	assert.Equal(t, AnnotatedLine{0, 0, " a"}, lines[1])
	assert.Equal(t, AnnotatedLine{NoLine, 1, "+b"}, lines[2])
	assert.Equal(t, AnnotatedLine{5, 7, " c"}, lines[4], "numbering recovers at the next valid hunk")
	assert.Contains(t, buf.String(), "malformed hunk header")
}

func TestRender(t *testing.T) {
	want := strings.Join([]string{
		"          --- a/main.go",
		"          +++ b/main.go",
		"          @@ -1,3 +1,4 @@",
		"   1    1  a",
		"   2      -b",
		"        2 +c",
		"        3 +d",
		"   3    4  e",
	}, "\n")

	assert.Equal(t, want, Annotate(samplePatch, nil))
}

func TestRender_ZeroNumbersAreBlank(t *testing.T) {
	got := Render([]AnnotatedLine{{0, 0, " x"}, {12345, 7, "y"}})
	assert.Equal(t, "           x\n12345    7 y", got)
}

func TestAnnotate_EmptyDiff(t *testing.T) {
	assert.Empty(t, Annotate("", nil))
	assert.Nil(t, AnnotateLines("", nil))
}

func TestAnnotate_Deterministic(t *testing.T) {
	first := Annotate(samplePatch, nil)
	second := Annotate(samplePatch, nil)
	assert.Equal(t, first, second)
}

func TestNewSideLines(t *testing.T) {
	valid := NewSideLines(AnnotateLines(samplePatch, nil))

	assert.Len(t, valid, 4)
	for _, n := range []int{1, 2, 3, 4} {
		assert.Contains(t, valid, n)
	}
}
