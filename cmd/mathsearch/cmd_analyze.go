// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/gaolin1/math-olympic-question-search/services/llm"
	"github.com/gaolin1/math-olympic-question-search/services/tagging"
)

// runAnalyze classifies a single LaTeX expression against the tag
// whitelist and prints each suggested tag with the model's confidence.
func runAnalyze(cmd *cobra.Command, args []string) {
	model := analyzeModel
	if model == "" {
		model = config.Ollama.Model
	}
	client := llm.NewOllamaClientFor(config.Ollama.BaseURL, model)

	tags, err := tagging.AnalyzeExpression(context.Background(), client, args[0])
	if err != nil {
		log.Fatalf("Analysis failed: %v", err)
	}
	if len(tags) == 0 {
		fmt.Println("No tags suggested for this expression.")
		return
	}

	fmt.Printf("Suggested tags for %q:\n", args[0])
	fmt.Println("------------------------------------------------------------------")
	for _, tc := range tags {
		fmt.Printf("%-24s %s\n", tc.Name, colorizeConfidence(tc.Confidence))
	}
}

// colorizeConfidence renders a confidence score green above 0.7,
// yellow above 0.4, red below.
func colorizeConfidence(confidence float64) string {
	s := fmt.Sprintf("%.2f", confidence)
	switch {
	case confidence >= 0.7:
		return colorize(colorGreen, s)
	case confidence >= 0.4:
		return colorize(colorYellow, s)
	default:
		return colorize(colorRed, s)
	}
}
