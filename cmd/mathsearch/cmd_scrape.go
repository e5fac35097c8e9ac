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

	"github.com/gaolin1/math-olympic-question-search/services/scraper"
)

// runScrape fetches, caches, and parses one contest year for both
// grades, then writes the combined problem file. With --urls it only
// prints where to download the pages by hand, for when the CEMC site
// blocks automated fetches.
func runScrape(cmd *cobra.Command, args []string) {
	year := scrapeYear
	if year == 0 {
		year = config.Year
	}
	cacheDir := scrapeCacheDir
	if cacheDir == "" {
		cacheDir = config.CacheDir
	}
	outDir := scrapeOutDir
	if outDir == "" {
		outDir = config.DataDir
	}

	s, err := scraper.New(cacheDir, outDir)
	if err != nil {
		log.Fatalf("Failed to set up the scraper: %v", err)
	}

	if scrapeURLsOnly {
		fmt.Printf("Manual download targets for %d:\n", year)
		fmt.Println("------------------------------------------------------------------")
		for _, target := range s.ManualTargets(year) {
			fmt.Printf("URL:  %s\nSave: %s\n\n", target.URL, target.SavePath)
		}
		return
	}

	problems := s.Run(context.Background(), year)
	if len(problems) == 0 {
		log.Fatalf("No problems parsed for %d. Download the pages listed by --urls into %s and rerun.", year, cacheDir)
	}

	path, err := s.SaveProblems(problems, "problems.json")
	if err != nil {
		log.Fatalf("Failed to write the problem file: %v", err)
	}
	fmt.Printf("Wrote %d problems to %s\n", len(problems), path)
}
