// Package version holds the toolkit version and compares it with the version
// recorded in generated migration units.
package version

import (
	"fmt"

	goversion "github.com/hashicorp/go-version"
)

var (
	// Version is the toolkit version (set by build).
	Version = "0.1.0"
	// Commit is the source revision (set by build).
	Commit = "unknown"
)

// String returns the version with its commit.
func String() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Compatibility is the result of comparing a unit's version with the
// running toolkit.
type Compatibility int

const (
	// Compatible means the unit was written by this or an older toolkit.
	Compatible Compatibility = iota
	// Newer means the unit was written by a newer toolkit.
	Newer
	// Unknown means one of the versions could not be parsed.
	Unknown
)

// Check compares the version a migration unit was generated with against
// running. An empty unit version is treated as compatible.
func Check(unit, running string) (Compatibility, error) {
	if unit == "" {
		return Compatible, nil
	}
	u, err := goversion.NewVersion(unit)
	if err != nil {
		return Unknown, fmt.Errorf("invalid migration version %q: %w", unit, err)
	}
	r, err := goversion.NewVersion(running)
	if err != nil {
		// Development builds carry no comparable version.
		return Unknown, nil
	}
	if u.GreaterThan(r) {
		return Newer, nil
	}
	return Compatible, nil
}

// CheckCurrent compares unit against the running toolkit.
func CheckCurrent(unit string) (Compatibility, error) {
	return Check(unit, Version)
}
