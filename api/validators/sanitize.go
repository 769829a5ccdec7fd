package validators

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CleanText normalizes a single-line field such as a product title, brand or
// shopper name: control characters are dropped, runs of whitespace collapse to
// one space, and the result is cut to maxRunes without splitting a character.
func CleanText(input string, maxRunes int) string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r) || r == utf8.RuneError
	})
	return truncateRunes(strings.Join(fields, " "), maxRunes)
}

// CleanMultiline keeps line breaks for descriptions and review comments but
// strips other control characters and trailing spaces on each line.
func CleanMultiline(input string, maxRunes int) string {
	input = strings.ReplaceAll(input, "\r\n", "\n")
	lines := strings.Split(input, "\n")
	for i, line := range lines {
		line = strings.Map(func(r rune) rune {
			if r == '\t' {
				return ' '
			}
			if unicode.IsControl(r) || r == utf8.RuneError {
				return -1
			}
			return r
		}, line)
		lines[i] = strings.TrimRightFunc(line, unicode.IsSpace)
	}
	return truncateRunes(strings.TrimSpace(strings.Join(lines, "\n")), maxRunes)
}

func truncateRunes(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:maxRunes]))
}
