package lobby

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/hardliner66/MageBattle/internal/model"
)

// NormalizeName trims a candidate display name and checks it is non-empty and
// at most maxLen runes long
func NormalizeName(name string, maxLen int) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", model.ErrInvalidName)
	}
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("%w: name is not valid UTF-8", model.ErrInvalidName)
	}
	if n := utf8.RuneCountInString(name); n > maxLen {
		return "", fmt.Errorf("%w: name has %d characters, at most %d allowed", model.ErrInvalidName, n, maxLen)
	}
	return name, nil
}

// nameKey maps a display name to the key used for uniqueness checks. Two names
// collide when they are equal under Unicode case folding, regardless of
// composed or decomposed form.
func nameKey(name string) string {
	return norm.NFC.String(cases.Fold().String(norm.NFC.String(name)))
}
