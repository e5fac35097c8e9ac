// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaolin1/math-olympic-question-search/pkg/render"
)

// runRender splits a mixed-content string into its typeset units and
// prints one line per unit, so markup problems can be debugged without
// a browser. Degraded units are flagged in red.
func runRender(cmd *cobra.Command, args []string) {
	units := render.New(render.EngineFromEnv()).Render(args[0], nil)
	if len(units) == 0 {
		fmt.Println("No units produced.")
		return
	}

	for i, u := range units {
		fmt.Printf("%2d %s", i+1, formatUnit(u))
		if u.Degraded {
			fmt.Printf("  %s", colorize(colorRed, "[degraded]"))
		}
		fmt.Println()
	}
}

// formatUnit renders one unit as a kind label plus its payload.
func formatUnit(u render.Unit) string {
	switch u.Kind {
	case render.UnitMath:
		return fmt.Sprintf("%-6s %q -> %d bytes of MathML", colorize(colorCyan, "math"), u.Source, len(u.Markup))
	case render.UnitImage:
		return fmt.Sprintf("%-6s %s (%d bytes)", colorize(colorCyan, "image"), u.Alt, len(u.Src))
	case render.UnitBreak:
		return colorize(colorCyan, "break")
	default:
		return fmt.Sprintf("%-6s %q", colorize(colorCyan, "text"), u.Text)
	}
}
