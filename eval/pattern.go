package eval

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// PatternToRegexp translates a LIKE pattern (or a SIMILAR TO pattern when
// similar is set) into an anchored regular expression. Unescaped % matches
// any run of characters and _ matches one character. A character preceded
// by escape is taken literally. LIKE patterns treat every other character
// literally; SIMILAR TO patterns keep the remaining regex operators.
func PatternToRegexp(pattern, escape string, similar bool) (*regexp.Regexp, error) {
	var esc rune = -1
	if escape != "" {
		if utf8.RuneCountInString(escape) != 1 {
			return nil, fmt.Errorf("escape must be a single character, got %q", escape)
		}
		esc, _ = utf8.DecodeRuneInString(escape)
	}

	var b strings.Builder
	b.WriteString("(?s)^(?:")
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case c == esc:
			if i+1 >= len(runes) {
				return nil, fmt.Errorf("pattern %q ends with the escape character", pattern)
			}
			i++
			b.WriteString(regexp.QuoteMeta(string(runes[i])))
		case c == '%':
			b.WriteString(".*")
		case c == '_':
			b.WriteString(".")
		case similar:
			b.WriteRune(c)
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	b.WriteString(")$")

	rx, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return rx, nil
}
