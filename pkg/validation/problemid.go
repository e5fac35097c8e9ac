// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for identifiers that end
// up in lookup keys, file paths, or persisted records.
//
// Problem IDs travel a long way: they are minted by the scraper, stored
// in problems.json, used as store keys, embedded in API routes, and
// written into hint-session records. Validating them at the boundaries
// catches malformed records from hand-edited data files before they
// pollute keys other components trust.
package validation

import (
	"fmt"
	"regexp"
)

// problemIDPattern matches canonical problem identifiers: contest slug,
// 4-digit year, grade 7 or 8, and a one- or two-digit question number,
// e.g. "gauss-2024-g7-13".
var problemIDPattern = regexp.MustCompile(`^gauss-\d{4}-g[78]-\d{1,2}$`)

// ValidateProblemID validates a problem identifier before it is used as
// a lookup key or path component.
//
// Valid IDs:
//   - "gauss-" prefix
//   - 4-digit contest year
//   - grade segment "g7" or "g8"
//   - question number of one or two digits
//
// Returns an error if the ID is invalid.
//
// Example:
//
//	if err := validation.ValidateProblemID(id); err != nil {
//	    return fmt.Errorf("invalid problem ID: %w", err)
//	}
//	// Safe to use as a store key
func ValidateProblemID(id string) error {
	if id == "" {
		return fmt.Errorf("problem ID cannot be empty")
	}

	if !problemIDPattern.MatchString(id) {
		return fmt.Errorf("invalid problem ID format: %q (expected gauss-<year>-g<grade>-<number>, like gauss-2024-g7-13)", id)
	}

	return nil
}

// ValidateProblemIDs validates multiple problem identifiers.
// Returns an error listing all invalid IDs if any fail validation.
func ValidateProblemIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateProblemID(id); err != nil {
			invalid = append(invalid, id)
		}
	}

	if len(invalid) > 0 {
		return fmt.Errorf("invalid problem IDs: %v", invalid)
	}
	return nil
}
