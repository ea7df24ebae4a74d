package domain

import (
	"strings"
	"unicode/utf8"
)

// MaxTextLength is the maximum number of characters a text blob may hold.
const MaxTextLength = 100_000

// CheckText validates content for storage. It reports blank content as absent
// (ok == false) so stores can clear instead of saving whitespace.
func CheckText(content string) (ok bool, err error) {
	if n := utf8.RuneCountInString(content); n > MaxTextLength {
		return false, &TextTooLongError{Length: n, Max: MaxTextLength}
	}
	return strings.TrimSpace(content) != "", nil
}
