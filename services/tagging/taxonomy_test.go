// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tagging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllTags_FlattensCategoriesInOrder(t *testing.T) {
	tags := AllTags()
	require.Len(t, tags, 56)

	// Category order: the first tag is Number Theory's first entry and
	// Statistics closes the list.
	assert.Equal(t, "divisibility", tags[0])
	assert.Equal(t, "statistics", tags[len(tags)-1])

	assert.Contains(t, tags, "modular-arithmetic")
	assert.Contains(t, tags, "linear-equations")
	assert.Contains(t, tags, "reflections")
	assert.Contains(t, tags, "bar-graphs")
	assert.Contains(t, tags, "mean")
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("primes"))
	assert.True(t, IsValid("3d-geometry"))
	assert.False(t, IsValid("calculus"))
	assert.False(t, IsValid("Primes"))
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{"trims and lowercases", "Divisibility ", "divisibility", true},
		{"alias percent", "percent", "percentages", true},
		{"alias percents uppercase", "PERCENTS", "percentages", true},
		{"alias singular prime", "prime", "primes", true},
		{"canonical passes through", "gcd-lcm", "gcd-lcm", true},
		{"unknown rejected", "calculus", "calculus", false},
		{"empty rejected", "  ", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, valid := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.valid, valid)
		})
	}
}

func TestScanMentions_FindsWhitelistedConcepts(t *testing.T) {
	tags := ScanMentions("This requires angles and percentages reasoning.")
	assert.ElementsMatch(t, []string{"angles", "percentages"}, tags)
}

func TestScanMentions_ReturnsWhitelistOrder(t *testing.T) {
	// Text order is reversed; output follows the taxonomy.
	tags := ScanMentions("angles before percentages here")
	assert.Equal(t, []string{"percentages", "angles"}, tags)
}

func TestScanMentions_RespectsWordBoundaries(t *testing.T) {
	assert.Empty(t, ScanMentions("rectangles everywhere"))
	assert.Empty(t, ScanMentions("the path was long"))
	assert.Equal(t, []string{"gcd-lcm"}, ScanMentions("classic gcd-lcm setup"))
}

func TestScanMentions_CaseInsensitive(t *testing.T) {
	assert.Equal(t, []string{"probability"}, ScanMentions("A Probability question."))
}

func TestScanMentions_NoMatches(t *testing.T) {
	assert.Empty(t, ScanMentions("nothing mathematical here"))
	assert.Empty(t, ScanMentions(""))
}
