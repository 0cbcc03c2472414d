package forms

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\p{Z}\x{FEFF}]+`)
	slugInvalid   = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify derives an organization slug from its display name: lower-case,
// each whitespace run becomes one hyphen and anything outside [a-z0-9-] is
// dropped. Leading and trailing hyphens are kept so the result matches what
// the register page derives in the browser.
func Slugify(name string) string {
	slug := strings.ToLower(name)
	slug = whitespaceRun.ReplaceAllString(slug, "-")
	return slugInvalid.ReplaceAllString(slug, "")
}
