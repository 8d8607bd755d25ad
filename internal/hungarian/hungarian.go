// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package hungarian detects Hungarian-notation resource names, where the
// resource name repeats tokens from its Terraform type.
package hungarian

import (
	"regexp"
	"strings"
)

var (
	camelBoundaryRE = regexp.MustCompile(`([a-z])([A-Z])`)
	separatorRE     = regexp.MustCompile(`[^a-z0-9]+`)
)

// IsHungarian reports whether any underscore-separated token of the resource
// type appears in the resource name. Matching is case-insensitive and covers
// both whole name tokens (split on separators and camelCase boundaries) and
// bare substring containment for names jammed together without separators,
// e.g. google_storage_bucket "assetbucket".
func IsHungarian(typ string, name string) bool {
	if typ == "" || name == "" {
		return false
	}

	nameLower := strings.ToLower(name)
	nameTokens := tokens(name)

	for _, tok := range strings.Split(strings.ToLower(typ), "_") {
		if tok == "" {
			continue
		}

		for _, p := range nameTokens {
			if p == tok {
				return true
			}
		}

		if strings.Contains(nameLower, tok) {
			return true
		}
	}

	return false
}

// tokens splits a name into lowercase tokens on non-alphanumeric separators
// and camelCase boundaries.
func tokens(name string) []string {
	delimited := camelBoundaryRE.ReplaceAllString(name, "${1}_${2}")
	return separatorRE.Split(strings.ToLower(delimited), -1)
}
