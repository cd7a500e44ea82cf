// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

// Role describes what part a window plays in the application. Exactly
// one connected window may hold RoleMain at a time; the shell routes
// main-targeted sends to it. The other roles exist for diagnostics and
// window-management policy, not for routing.
type Role string

const (
	// RoleMain marks the primary application window. Targeted sends
	// addressed to "main" land here.
	RoleMain Role = "main"

	// RoleSecondary marks additional document or workspace windows.
	RoleSecondary Role = "secondary"

	// RoleUtility marks auxiliary windows such as palettes and
	// inspectors.
	RoleUtility Role = "utility"
)

// ParseRole validates a raw role string.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleMain, RoleSecondary, RoleUtility:
		return Role(raw), nil
	}
	return "", fmt.Errorf("unknown window role %q (want main, secondary, or utility)", raw)
}

// String returns the role string.
func (r Role) String() string { return string(r) }

// IsZero reports whether the Role is empty.
func (r Role) IsZero() bool { return r == "" }
