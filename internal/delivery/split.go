// Package delivery turns a long text into units a chat transport can send.
//
// Splitting and planning are pure: they never touch the network and hold no
// state between calls. Deliver is the only function that talks to a Sender.
// Lengths are counted in Unicode code points.
package delivery

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Cut points in order of preference.
var separators = []string{"\n\n", "\n", " "}

// Split breaks text into chunks of at most limit code points, preferring to
// cut at a paragraph break, then a newline, then a space, and only then in
// the middle of a word.
func Split(text string, limit int) ([]string, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var chunks []string
	rest := text
	for rest != "" {
		if utf8.RuneCountInString(rest) <= limit {
			chunks = append(chunks, rest)
			break
		}

		cut := cutPoint(rest, limit)
		if chunk := strings.TrimRightFunc(rest[:cut], unicode.IsSpace); chunk != "" {
			chunks = append(chunks, chunk)
		}
		rest = strings.TrimLeftFunc(rest[cut:], unicode.IsSpace)
	}
	return chunks, nil
}

// cutPoint returns a byte offset into s, always > 0, such that s[:offset]
// holds at most limit code points. s must be longer than limit.
func cutPoint(s string, limit int) int {
	window := s[:byteOffset(s, limit)]
	for _, sep := range separators {
		if i := strings.LastIndex(window, sep); i > 0 {
			return i
		}
	}
	return len(window)
}

// byteOffset returns the byte index of the n-th code point of s.
func byteOffset(s string, n int) int {
	for i := range s {
		if n == 0 {
			return i
		}
		n--
	}
	return len(s)
}

// Len is the length measure used for every limit in this package.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
