// Package security keeps identifiers that end up in file names from
// escaping the directory they are written to.
package security

import "strings"

// maxFilenameLen bounds sanitized names.
const maxFilenameLen = 128

// SanitizeFilename maps s to a name made only of ASCII letters, digits, dot,
// underscore and dash. Other characters become an underscore, never two in a
// row. Leading and trailing dots and underscores are trimmed; an empty result
// becomes "unknown". The result is always a single path element.
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-', r == '_':
			b.WriteRune(r)
			lastUnderscore = r == '_'
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
