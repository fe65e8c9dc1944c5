// Package textutils provides text extraction helpers for the free-text
// header and footer sections of statement files.
package textutils

import (
	"regexp"
	"strings"
)

// ExtractBracketed extracts the token of the first `<label>:[token]`
// occurrence in line. Returns "" and false when the pattern is absent.
// The colon and brackets must be adjacent to the label, no spacing.
func ExtractBracketed(line, label string) (string, bool) {
	re := regexp.MustCompile(regexp.QuoteMeta(label) + `:\[(.*?)\]`)
	matches := re.FindStringSubmatch(line)
	if len(matches) < 2 {
		return "", false
	}
	return matches[1], true
}

// ExtractSuffix extracts everything after the first `<label>:` occurrence
// in line, to end of line. Returns "" and false when the label is absent.
func ExtractSuffix(line, label string) (string, bool) {
	marker := label + ":"
	idx := strings.Index(line, marker)
	if idx < 0 {
		return "", false
	}
	return line[idx+len(marker):], true
}
