package github

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var prURLPattern = regexp.MustCompile(`^https?://github\.com/[^/]+/[^/]+/pull/(\d+)(?:[/?#].*)?$`)

// ParsePRIdentifier accepts either a bare PR number ("142") or a full
// github.com pull request URL and returns the PR number.
func ParsePRIdentifier(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty PR identifier")
	}

	if strings.HasSuffix(s, ".md") {
		return 0, fmt.Errorf("%q looks like a plan file, not a PR; pass a PR number or URL", s)
	}

	if n, err := strconv.Atoi(s); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("invalid PR number: %d", n)
		}
		return n, nil
	}

	if m := prURLPattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("invalid PR number in URL: %q", s)
		}
		return n, nil
	}

	return 0, fmt.Errorf("unrecognized PR identifier: %q (expected a number or github.com PR URL)", s)
}
