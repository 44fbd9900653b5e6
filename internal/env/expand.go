// Package env expands ${env.NAME} references in configuration text.
package env

import (
	"os"
	"strings"
	"unicode"
)

const prefix = "${env."

// Expand replaces every ${env.NAME} in text with lookup(NAME). Expressions
// whose name is not made of letters, digits and '_' are kept as written.
func Expand(text string, lookup func(name string) string) string {
	if !strings.Contains(text, prefix) {
		return text
	}
	var b strings.Builder
	for {
		before, after, found := strings.Cut(text, prefix)
		b.WriteString(before)
		if !found {
			return b.String()
		}
		name, rest, closed := strings.Cut(after, "}")
		if !closed || !isName(name) {
			b.WriteString(prefix)
			text = after
			continue
		}
		b.WriteString(lookup(name))
		text = rest
	}
}

// ExpandOS expands text against the process environment.
func ExpandOS(text string) string {
	return Expand(text, os.Getenv)
}

func isName(name string) bool {
	for _, r := range name {
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return false
		}
	}
	return true
}
