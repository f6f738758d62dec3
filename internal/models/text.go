package models

import "unicode/utf8"

// TextLength is the width of every free-text bank column
const TextLength = 300

// ClipText trims s to at most TextLength runes
func ClipText(s string) string {
	if utf8.RuneCountInString(s) <= TextLength {
		return s
	}
	n := 0
	for i := range s {
		if n == TextLength {
			return s[:i]
		}
		n++
	}
	return s
}
