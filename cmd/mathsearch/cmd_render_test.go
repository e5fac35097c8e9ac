// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/gaolin1/math-olympic-question-search/pkg/render"
)

// TestFormatUnit tests the one-line rendering of each unit kind.
func TestFormatUnit(t *testing.T) {
	oldTTY := stdoutIsTTY
	stdoutIsTTY = false
	defer func() { stdoutIsTTY = oldTTY }()

	tests := []struct {
		name string
		unit render.Unit
		want []string
	}{
		{
			name: "text",
			unit: render.Unit{Kind: render.UnitText, Text: "hello"},
			want: []string{"text", "\"hello\""},
		},
		{
			name: "math",
			unit: render.Unit{Kind: render.UnitMath, Source: "2+2", Markup: "<math></math>"},
			want: []string{"math", "\"2+2\"", "13 bytes of MathML"},
		},
		{
			name: "image",
			unit: render.Unit{Kind: render.UnitImage, Src: "data:abcd", Alt: "Image 1"},
			want: []string{"image", "Image 1", "(9 bytes)"},
		},
		{
			name: "break",
			unit: render.Unit{Kind: render.UnitBreak},
			want: []string{"break"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatUnit(tt.unit)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("formatUnit() = %q, want it to contain %q", got, want)
				}
			}
		})
	}
}

// TestRunRender_Output captures stdout to verify the full render
// command output for a mixed statement.
func TestRunRender_Output(t *testing.T) {
	oldTTY := stdoutIsTTY
	stdoutIsTTY = false
	defer func() { stdoutIsTTY = oldTTY }()

	output := captureStdout(t, func() {
		runRender(&cobra.Command{}, []string{`What is \( 2 + 3 \)?`})
	})

	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 unit lines, got %d:\n%s", len(lines), output)
	}
	if !strings.Contains(lines[0], "text") || !strings.Contains(lines[0], "\"What is \"") {
		t.Errorf("Line 1 should be the leading text unit: %q", lines[0])
	}
	if !strings.Contains(lines[1], "math") || !strings.Contains(lines[1], "\"2 + 3\"") {
		t.Errorf("Line 2 should be the math unit: %q", lines[1])
	}
	if strings.Contains(output, "[degraded]") {
		t.Errorf("Typesetting 2 + 3 should not degrade:\n%s", output)
	}
}

// TestRunRender_Empty tests the no-units message.
func TestRunRender_Empty(t *testing.T) {
	output := captureStdout(t, func() {
		runRender(&cobra.Command{}, []string{""})
	})

	if !strings.Contains(output, "No units produced.") {
		t.Errorf("Expected the empty message, got: %q", output)
	}
}
