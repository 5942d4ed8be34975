package slug

import (
	"regexp"
	"strings"
)

const maxLen = 40

var reSlug = regexp.MustCompile(`^[a-z0-9_]{2,40}$`)

// IsSlug returns true if s matches ^[a-z0-9_]{2,40}$
func IsSlug(s string) bool {
	return reSlug.MatchString(s)
}

// Slugify lowercases s, folds every run of characters outside [a-z0-9] into a
// single '_', caps the result at 40 characters and trims surrounding '_'.
// "  Checking " becomes "checking", "Interest Rate" becomes "interest_rate".
func Slugify(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pendingSep := false
	for _, r := range strings.ToLower(s) {
		if b.Len() >= maxLen {
			break
		}
		word := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		if !word {
			pendingSep = true
			continue
		}
		if pendingSep && b.Len() > 0 {
			if b.Len()+1 >= maxLen {
				break
			}
			b.WriteByte('_')
		}
		pendingSep = false
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "_")
}
