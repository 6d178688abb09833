package forum

import (
	"fmt"
	"regexp"
	"strings"
)

var pageSuffixPattern = regexp.MustCompile(`/page-\d+$`)

// CanonicalURL maps any thread URL to its first-page form: the fragment and a
// trailing /page-N segment (with or without a slash) are removed and the
// result ends in exactly one slash. The result is a fixed point.
func CanonicalURL(raw string) string {
	u := raw
	if i := strings.Index(u, "#"); i >= 0 {
		u = u[:i]
	}
	for {
		u = strings.TrimRight(u, "/")
		loc := pageSuffixPattern.FindStringIndex(u)
		if loc == nil {
			break
		}
		u = u[:loc[0]]
	}
	return u + "/"
}

// PageURL builds the URL of page n of the thread rooted at canonicalURL.
func PageURL(canonicalURL string, n int) string {
	if n <= 1 {
		return canonicalURL
	}
	return fmt.Sprintf("%s/page-%d", strings.TrimRight(canonicalURL, "/"), n)
}
