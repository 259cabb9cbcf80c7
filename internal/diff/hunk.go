// Package diff reconstructs source and destination line numbers from unified diffs.
package diff

import (
	"regexp"
	"strconv"
)

var hunkHeaderRegex = regexp.MustCompile(`@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// HunkHeader holds the four numeric fields of a "@@ -A,B +C,D @@" line.
type HunkHeader struct {
	OldStart int
	OldCount int
	NewStart int
	NewCount int
}

// ParseHunkHeader parses a hunk header line. Omitted counts default to 1,
// which is how unified diffs describe single-line hunks. A line that does not
// match yields the zero HunkHeader rather than an error.
func ParseHunkHeader(header string) HunkHeader {
	h, _ := parseHunkHeader(header)
	return h
}

func parseHunkHeader(header string) (HunkHeader, bool) {
	matches := hunkHeaderRegex.FindStringSubmatch(header)
	if matches == nil {
		return HunkHeader{}, false
	}

	return HunkHeader{
		OldStart: atoi(matches[1], 0),
		OldCount: atoi(matches[2], 1),
		NewStart: atoi(matches[3], 0),
		NewCount: atoi(matches[4], 1),
	}, true
}

func atoi(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// only reachable on overflow
		return 0
	}
	return n
}
