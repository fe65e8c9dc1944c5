// Package dateutils handles the fixed timestamp layout used by statement
// body rows.
package dateutils

import (
	"fmt"
	"time"
)

// StatementLayout is the only timestamp format the platform exports.
const StatementLayout = "2006-01-02 15:04:05"

// Parse parses a required statement timestamp.
func Parse(value string) (time.Time, error) {
	t, err := time.Parse(StatementLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
	}
	return t, nil
}

// ParseOptional parses an optional statement timestamp. Absent or malformed
// values yield the zero time, mirroring the "unknown" date of the export.
func ParseOptional(value string) time.Time {
	t, err := time.Parse(StatementLayout, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
