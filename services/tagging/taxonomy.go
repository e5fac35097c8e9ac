// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package tagging assigns concept tags to competition problems and
// free-form expressions using an LLM constrained to a fixed taxonomy.
package tagging

import (
	"regexp"
	"strings"
)

// Category groups related concept tags for presentation and prompting.
type Category struct {
	Name string
	Tags []string
}

// Categories is the full tag taxonomy. Every tag the system accepts,
// stores, or returns comes from this list; model output naming
// anything else is dropped.
var Categories = []Category{
	{"Number Theory", []string{
		"divisibility", "primes", "factors", "gcd-lcm", "remainders",
		"exponents", "powers-and-patterns", "digits", "parity", "modular-arithmetic",
	}},
	{"Arithmetic & Algebra", []string{
		"fractions", "ratios", "percentages", "expressions", "equations",
		"substitution", "patterns", "sequences", "inequalities", "polynomials",
		"multiplication", "division", "linear-equations",
	}},
	{"Geometry", []string{
		"triangles", "angles", "similarity", "circles", "coordinates",
		"distance", "area", "perimeter", "3d-geometry", "transformations",
		"reflections",
	}},
	{"Combinatorics & Probability", []string{
		"counting", "arrangements", "casework", "probability", "paths",
	}},
	{"Word Problems & Applications", []string{
		"rates", "averages", "money", "tables-and-graphs", "time", "calendar",
		"bar-graphs",
	}},
	{"Problem-Solving Strategies", []string{
		"logic", "working-backwards", "guess-check", "symmetry", "invariants", "extremal",
	}},
	{"Statistics", []string{
		"mean", "median", "mode", "statistics",
	}},
}

// tagAliases maps common near-miss spellings from model output onto
// canonical tags.
var tagAliases = map[string]string{
	"percent":        "percentages",
	"percents":       "percentages",
	"prime":          "primes",
	"fraction":       "fractions",
	"ratio":          "ratios",
	"remainder":      "remainders",
	"exponent":       "exponents",
	"average":        "averages",
	"angle":          "angles",
	"triangle":       "triangles",
	"circle":         "circles",
	"transformation": "transformations",
}

var (
	allTags     []string
	tagSet      map[string]bool
	mentionExpr map[string]*regexp.Regexp
)

func init() {
	tagSet = make(map[string]bool)
	mentionExpr = make(map[string]*regexp.Regexp)
	for _, cat := range Categories {
		for _, tag := range cat.Tags {
			allTags = append(allTags, tag)
			tagSet[tag] = true
			mentionExpr[tag] = regexp.MustCompile(`\b` + regexp.QuoteMeta(tag) + `\b`)
		}
	}
}

// AllTags returns the flattened whitelist in category order.
func AllTags() []string { return allTags }

// IsValid reports whether tag is a canonical whitelist entry.
func IsValid(tag string) bool { return tagSet[tag] }

// Normalize trims, lowercases, and resolves aliases, returning the
// canonical tag and whether it is whitelisted.
func Normalize(raw string) (string, bool) {
	tag := strings.ToLower(strings.TrimSpace(raw))
	if canon, ok := tagAliases[tag]; ok {
		tag = canon
	}
	return tag, tagSet[tag]
}

// ScanMentions extracts whitelisted tags cited anywhere in free-form
// text. Used as the fallback when a model reply carries no parseable
// JSON but its reasoning names the concepts. Results are deduplicated
// and returned in whitelist order.
func ScanMentions(text string) []string {
	lowered := strings.ToLower(text)
	var found []string
	for _, tag := range allTags {
		if mentionExpr[tag].MatchString(lowered) {
			found = append(found, tag)
		}
	}
	return found
}
