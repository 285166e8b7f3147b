package stringutils

import (
	"fmt"
	"strings"
	"unicode"
)

// INCluse builds positional placeholders for an IN list, numbering them
// from start.
func INCluse[T any](start int, list []T) (placeholders []string, args []any) {
	placeholders = make([]string, len(list))
	args = make([]any, len(list))
	for i, id := range list {
		placeholders[i] = fmt.Sprintf("$%d", start+i)
		args[i] = id
	}

	return placeholders, args
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// SquashSpaces collapses every run of whitespace into a single space.
func SquashSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// WordCount counts whitespace separated words.
func WordCount(s string) int {
	return len(strings.FieldsFunc(s, unicode.IsSpace))
}

func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// NilIfBlank returns nil for an empty or all-space string.
func NilIfBlank(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
