// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
	"github.com/gaolin1/math-olympic-question-search/services/llm"
	"github.com/gaolin1/math-olympic-question-search/services/tagging"
)

// runTag loads a problem file, asks the model to tag every problem,
// and writes the tagged set back out. Tagging runs with bounded
// concurrency; a problem the model cannot classify keeps an empty tag
// list rather than failing the batch.
func runTag(cmd *cobra.Command, args []string) {
	inputPath := tagInput
	if inputPath == "" {
		inputPath = filepath.Join(config.DataDir, "problems.json")
	}
	outputPath := tagOutput
	if outputPath == "" {
		outputPath = inputPath
	}
	model := tagModel
	if model == "" {
		model = config.Ollama.Model
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		log.Fatalf("Failed to read the problem file: %v", err)
	}
	var problems []datatypes.Problem
	if err := json.Unmarshal(data, &problems); err != nil {
		log.Fatalf("Failed to parse %s: %v", inputPath, err)
	}
	if len(problems) == 0 {
		log.Fatalf("No problems in %s. Run 'mathsearch scrape' first.", inputPath)
	}

	client := llm.NewOllamaClientFor(config.Ollama.BaseURL, model)
	fmt.Printf("Tagging %d problems with %s (%d at a time)...\n", len(problems), model, tagBatchSize)

	if err := tagging.TagAll(context.Background(), client, problems, tagBatchSize); err != nil {
		log.Fatalf("Tagging failed: %v", err)
	}

	out, err := json.MarshalIndent(problems, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal tagged problems: %v", err)
	}
	if err := os.WriteFile(outputPath, out, 0o644); err != nil {
		log.Fatalf("Failed to write the tagged problem file: %v", err)
	}
	fmt.Printf("Wrote %d tagged problems to %s\n", len(problems), outputPath)

	if tagShowDist {
		printTagDistribution(problems)
	}
}

// printTagDistribution renders tag counts sorted by frequency, most
// common first, ties alphabetical.
func printTagDistribution(problems []datatypes.Problem) {
	counts := tagging.TagDistribution(problems)
	if len(counts) == 0 {
		fmt.Println("\nNo tags were assigned.")
		return
	}

	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})

	fmt.Println("\nTag distribution:")
	fmt.Println("------------------------------------------------------------------")
	for _, tag := range tags {
		fmt.Printf("%-24s %d\n", tag, counts[tag])
	}
}
