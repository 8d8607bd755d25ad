// Copyright (c) 2026 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0
// no-cloc

// Package filters selects rows from a query result set based on attribute
// values.
//
// Filters are key-operator-target expressions joined by a delimiter
// (default: comma, override with TFCHECK_FILTER_DELIM). Operators:
//
//   - = : exact match
//   - ~ : case-insensitive match
//   - ^ : prefix match
//   - < : less than (numeric when the value is numeric)
//   - > : greater than (numeric when the value is numeric)
//   - @ : contains (substring, slice member or map key)
//   - / : regex match
//
// Any operator may be negated with a leading '!', e.g. status!=pass.
//
// Examples:
//
//   - "bucket=postspot-terraform-state" : exact bucket match
//   - "type^google_" : resource types starting with "google_"
//   - "serial>4" : state serial greater than 4
//   - "name!@test" : names not containing "test"
//
// Filter keys are matched against attribute output keys (see the attrs
// package). The pseudo-key "hungarian" filters resources on whether their
// name repeats tokens from their type.
package filters
