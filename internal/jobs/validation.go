package jobs

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// lineRefRegex matches "path/to/file.ext:42" and "file.ext#L42" references
// in review text.
var lineRefRegex = regexp.MustCompile("`?((?:[\\w.-]+/)*[\\w.-]+\\.\\w+)`?(?::|#L)(\\d+)")

// LineReference is a file and new-side line number mentioned by a review.
type LineReference struct {
	FilePath   string
	LineNumber int
}

func (r LineReference) String() string {
	return fmt.Sprintf("%s:%d", r.FilePath, r.LineNumber)
}

// ExtractLineReferences returns the distinct line references in review, in
// order of first appearance.
func ExtractLineReferences(review string) []LineReference {
	seen := make(map[LineReference]struct{})
	var refs []LineReference
	for _, m := range lineRefRegex.FindAllStringSubmatch(review, -1) {
		line, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		ref := LineReference{FilePath: m[1], LineNumber: line}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}

// ValidateLineReferences splits references into those that point at a line
// present in the diff and those that do not. References to files outside the
// diff are dropped: they are usually mentions of unrelated code.
func ValidateLineReferences(logger *slog.Logger, refs []LineReference, validLineMaps map[string]map[int]struct{}) ([]LineReference, []LineReference) {
	if len(validLineMaps) == 0 {
		logger.Warn("valid line map is empty, skipping line reference validation")
		return refs, nil
	}

	var onDiff []LineReference
	var offDiff []LineReference

	for _, ref := range refs {
		cleanPath := strings.TrimPrefix(ref.FilePath, "./")
		lines, exists := validLineMaps[cleanPath]
		if !exists {
			logger.Debug("ignoring line reference to a file outside the diff", "ref", ref.String())
			continue
		}

		if _, lineExists := lines[ref.LineNumber]; lineExists {
			onDiff = append(onDiff, ref)
		} else {
			logger.Warn("review references a line outside the diff",
				"original", ref.FilePath,
				"normalized", cleanPath,
				"line", ref.LineNumber,
			)
			offDiff = append(offDiff, ref)
		}
	}
	return onDiff, offDiff
}
