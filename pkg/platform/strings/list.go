// Package strings holds list parsing for flag and environment values.
package strings

import (
	"strings"
	"unicode"
)

// SplitList splits value on commas and whitespace. Empty items and repeats
// are dropped; the first occurrence keeps its position.
//
//	SplitList(" 101, 102,,101 ") // []string{"101", "102"}
func SplitList(value string) []string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}
