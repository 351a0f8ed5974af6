// Package sanitize cleans text that arrives from the backend API before it is
// shown to an operator. Backend messages are displayed verbatim, so any markup
// they carry is stripped with bluemonday rather than trusted.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared strict policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Message strips all HTML from a backend-supplied message and collapses
// surrounding whitespace. Entities produced by the policy are decoded again
// because templates escape on output.
func Message(input string) string {
	if input == "" {
		return ""
	}
	out := getPolicy().Sanitize(input)
	return strings.TrimSpace(html.UnescapeString(out))
}
