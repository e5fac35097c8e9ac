// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command mathsearch is the maintenance CLI for the math problem
// search stack: scraping contest pages, tagging problem files, and
// poking the running API.
//
// # Usage
//
//	mathsearch scrape --year 2025
//	mathsearch tag --input data/problems.json
//	mathsearch analyze '\frac{3}{4} + \frac{1}{2}'
//	mathsearch render 'Compute \( 2^{10} \). {{IMG:0}}'
//	mathsearch health
//
// Defaults come from mathsearch.yaml in the working directory when it
// exists; flags override the file.
package main

import (
	"log"
)

var config Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}
