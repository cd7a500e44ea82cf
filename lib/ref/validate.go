// Copyright 2026 The Mullion Authors
// SPDX-License-Identifier: Apache-2.0

package ref

import "fmt"

const (
	// maxSlugLength bounds every single identifier segment. Window IDs
	// appear in Unix socket filenames under the run directory, so the
	// bound keeps the full path comfortably below the sockaddr_un
	// limit.
	maxSlugLength = 64
)

// slugChars is the set of characters permitted in a Mullion slug:
// a-z, 0-9, and '-'.
var slugChars [256]bool

func init() {
	for c := byte('a'); c <= 'z'; c++ {
		slugChars[c] = true
	}
	for c := byte('0'); c <= '9'; c++ {
		slugChars[c] = true
	}
	slugChars['-'] = true
}

// validateSlug enforces the Mullion slug rules: 1 to 64 characters from
// a-z, 0-9, and '-'; no leading or trailing hyphen. Slugs name windows
// and panel segments, and end up in socket filenames and log lines, so
// the alphabet is deliberately narrow.
func validateSlug(value, label string) error {
	if value == "" {
		return fmt.Errorf("%s is empty", label)
	}
	if len(value) > maxSlugLength {
		return fmt.Errorf("%s %q is %d characters, maximum is %d", label, value, len(value), maxSlugLength)
	}
	for i := 0; i < len(value); i++ {
		if !slugChars[value[i]] {
			return fmt.Errorf("%s %q: invalid character %q at position %d (allowed: a-z, 0-9, -)", label, value, value[i], i)
		}
	}
	if value[0] == '-' {
		return fmt.Errorf("%s %q must not start with '-'", label, value)
	}
	if value[len(value)-1] == '-' {
		return fmt.Errorf("%s %q must not end with '-'", label, value)
	}
	return nil
}
