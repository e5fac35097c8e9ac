// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package render

import "testing"

func TestResolveImage_ValidIndex(t *testing.T) {
	images := []string{"data:image/png;base64,AAAA", "data:image/png;base64,BBBB"}
	got := ResolveImage(1, images)
	if got.Kind != UnitImage {
		t.Fatalf("kind = %q, want %q", got.Kind, UnitImage)
	}
	if got.Src != images[1] {
		t.Errorf("src = %q, want %q", got.Src, images[1])
	}
	if got.Alt != "Image 2" {
		t.Errorf("alt = %q, want %q", got.Alt, "Image 2")
	}
	if got.Degraded {
		t.Error("resolved image should not be degraded")
	}
}

func TestResolveImage_Fallbacks(t *testing.T) {
	tests := []struct {
		name   string
		index  int
		images []string
		want   string
	}{
		{"nil list", 0, nil, "[Image 1]"},
		{"out of range", 5, []string{"x"}, "[Image 6]"},
		{"negative", -1, []string{"x"}, "[Image 0]"},
		{"empty payload", 0, []string{""}, "[Image 1]"},
		{"far out of range", 1 << 40, []string{"x"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveImage(tt.index, tt.images)
			if got.Kind != UnitText {
				t.Fatalf("kind = %q, want %q", got.Kind, UnitText)
			}
			if !got.Degraded {
				t.Error("fallback unit should be degraded")
			}
			if tt.want != "" && got.Text != tt.want {
				t.Errorf("text = %q, want %q", got.Text, tt.want)
			}
		})
	}
}
