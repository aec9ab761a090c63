// Package scope implements the single shared scope-negotiation algorithm used
// by every grant flow and by the consent dialog. Scope values are short
// dot-namespaced strings ("api.read", "user.admin"); only membership and
// intersection are meaningful.
package scope

import "strings"

// DefaultScope is granted when negotiation has no usable inputs or the
// intersection is empty. It carries no permissions.
const DefaultScope = "auth.none"

// OfflineAccess marks a grant as eligible for a refresh token.
const OfflineAccess = "offline_access"

// Negotiate reconciles what the client is allowed, what the user is permitted
// (their role set), and what was requested:
//
//   - empty request: fall back to allowed ∩ default (∩ role when a user is
//     part of the grant)
//   - otherwise: requested ∩ allowed (∩ role when a user is present)
//
// A missing allowed set, a missing role set for a user-bound grant, or an
// empty intersection all collapse to {auth.none}. The result never contains a
// value absent from allowed (or from role when a user is present).
func Negotiate(requested, allowed, defaultScope, role []string, userPresent bool) []string {
	if len(allowed) == 0 {
		return []string{DefaultScope}
	}
	if userPresent && len(role) == 0 {
		return []string{DefaultScope}
	}

	base := requested
	bound := allowed
	if len(requested) == 0 {
		base = allowed
		bound = defaultScope
	}

	granted := intersect(base, bound)
	if userPresent {
		granted = intersect(granted, role)
	}

	if len(granted) == 0 {
		return []string{DefaultScope}
	}
	return granted
}

// intersect returns the members of a that are also members of b, preserving
// the order of a and dropping duplicates.
func intersect(a, b []string) []string {
	members := make(map[string]bool, len(b))
	for _, v := range b {
		members[v] = true
	}

	var out []string
	seen := make(map[string]bool, len(a))
	for _, v := range a {
		if members[v] && !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

// Contains reports whether the scope set includes the named value.
func Contains(set []string, value string) bool {
	for _, v := range set {
		if v == value {
			return true
		}
	}
	return false
}

// ParseScopeList parses a human-edited comma-separated scope string, trimming
// whitespace. Used only at the edges (forms, logs), never inside negotiation.
func ParseScopeList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// ToScopeString renders a scope set as a comma-separated string.
func ToScopeString(set []string) string {
	return strings.Join(set, ", ")
}
