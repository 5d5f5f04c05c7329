// Package strings provides small string helpers shared across services
package strings

import std "strings"

// SQLNull returns nil if s is blank/whitespace, else the original string.
// Useful for query args where NULL is desired for blanks
func SQLNull(s string) any {
	if std.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// CleanBase normalizes an object key base path like "gharchive/events".
// It strips surrounding whitespace and slashes so keys built from it never
// start with "/" or contain "//" at the joins. Inner slashes are kept.
// Returns "" when nothing usable remains
func CleanBase(s string) string {
	return std.Trim(std.TrimSpace(s), "/")
}
