package domain

import "regexp"

// IdentifierPattern is the shared namespace pattern for service and
// environment identifiers (spec §3, §8 invariant 9).
var IdentifierPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidIdentifier reports whether id matches the service/environment
// identifier grammar.
func ValidIdentifier(id string) bool {
	return IdentifierPattern.MatchString(id)
}

// Service is a named binding of an identifier to a plugin, an optional
// environment tag, and opaque settings.
type Service struct {
	ID          string
	Plugin      string
	Environment string // empty if unset
	Settings    map[string]any
}
