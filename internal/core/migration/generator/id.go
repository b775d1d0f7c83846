package generator

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// idLayout is the second-resolution part of a migration ID. Microseconds are
// appended after a colon, e.g. 2024-03-01T12:30:45:123456.
const idLayout = "2006-01-02T15:04:05"

// NewID derives a migration ID from t in UTC.
func NewID(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%s:%06d", t.Format(idLayout), t.Nanosecond()/int(time.Microsecond))
}

// ParseID parses an ID produced by NewID.
func ParseID(id string) (time.Time, error) {
	i := strings.LastIndexByte(id, ':')
	if i < 0 || len(id)-i-1 != 6 {
		return time.Time{}, fmt.Errorf("invalid migration id %q", id)
	}
	t, err := time.Parse(idLayout, id[:i])
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid migration id %q: %w", id, err)
	}
	var micro int
	if _, err := fmt.Sscanf(id[i+1:], "%06d", &micro); err != nil {
		return time.Time{}, fmt.Errorf("invalid migration id %q: %w", id, err)
	}
	return t.Add(time.Duration(micro) * time.Microsecond), nil
}

// FileName returns the source file name of a migration unit.
func FileName(moduleID, id string) string {
	clean := func(s string) string {
		return strings.Map(func(r rune) rune {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				return unicode.ToLower(r)
			}
			return '_'
		}, s)
	}
	return clean(moduleID) + "_" + clean(id) + ".go"
}
