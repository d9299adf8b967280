// Package onboarding collects a paying client's profile, prefilled from their
// job-board purchase, and hands it to ApplyWizz together with their resume.
package onboarding

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var encodedJBID = regexp.MustCompile(`^[0-9-]+$`)

// DecodeJBID reverses the link obfuscation that writes each character of a JB
// id as its decimal code point, joined by dashes ("74-66-45-50" is "JB-2").
// Anything that is not a well-formed encoding is returned unchanged.
func DecodeJBID(raw string) string {
	if raw == "" || !encodedJBID.MatchString(raw) {
		return raw
	}
	var b strings.Builder
	for _, part := range strings.Split(raw, "-") {
		if part == "" {
			return raw
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 || n > utf8.MaxRune || !utf8.ValidRune(rune(n)) {
			return raw
		}
		b.WriteRune(rune(n))
	}
	return b.String()
}

// EncodeJBID produces the form DecodeJBID accepts, for onboarding links.
func EncodeJBID(jbID string) string {
	parts := make([]string, 0, len(jbID))
	for _, r := range jbID {
		parts = append(parts, strconv.Itoa(int(r)))
	}
	return strings.Join(parts, "-")
}
