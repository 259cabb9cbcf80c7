package gitutil

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	prURLRegex       = regexp.MustCompile(`^(?:https?://)?(?:www\.)?github\.com/([^/]+)/([^/]+)/pull/(\d+)(?:/(?:files|commits|checks))?$`)
	prShorthandRegex = regexp.MustCompile(`^([\w.-]+)/([\w.-]+)#(\d+)$`)
)

// ParsePullRequestURL extracts the owner, repository and number from a pull
// request reference. Accepted forms are a PR page URL, optionally on one of
// its tabs, and the owner/repo#number shorthand.
func ParsePullRequestURL(ref string) (owner, repo string, number int, err error) {
	ref, _, _ = strings.Cut(strings.TrimSpace(ref), "?")

	matches := prShorthandRegex.FindStringSubmatch(ref)
	if matches == nil {
		page, _, _ := strings.Cut(ref, "#")
		matches = prURLRegex.FindStringSubmatch(strings.TrimSuffix(page, "/"))
	}
	if matches == nil {
		return "", "", 0, fmt.Errorf("invalid pull request reference %q (expected https://github.com/owner/repo/pull/N or owner/repo#N)", ref)
	}

	number, err = strconv.Atoi(matches[3])
	if err != nil || number <= 0 {
		return "", "", 0, fmt.Errorf("invalid pull request number %q", matches[3])
	}
	return matches[1], matches[2], number, nil
}
