// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the problem search API.
//
// This file contains the competition problem model shared by the
// scraper, the store, and the HTTP handlers.
package datatypes

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

var problemValidate = validator.New()

// Problem is one competition problem as stored in problems.json.
//
// Statement and Choices may contain inline math wrapped in \( ... \)
// and image placeholders of the form {{IMG:n}}; n indexes into Images,
// which holds self-contained payloads (data URIs) in placeholder order.
// Answer and Solution are withheld from list responses so the API does
// not spoil problems the student is still working on.
type Problem struct {
	ID            string   `json:"id" validate:"required"`
	Source        string   `json:"source" validate:"required"`
	Grade         int      `json:"grade" validate:"oneof=7 8"`
	Year          int      `json:"year" validate:"gte=2000,lte=2100"`
	ProblemNumber int      `json:"problem_number" validate:"gte=1,lte=25"`
	Statement     string   `json:"statement" validate:"required"`
	Choices       []string `json:"choices" validate:"len=5"`
	Images        []string `json:"images,omitempty"`
	Answer        string   `json:"answer,omitempty"`
	Solution      string   `json:"solution,omitempty"`
	Tags          []string `json:"tags"`
	URL           string   `json:"url"`
}

// Validate checks structural invariants after scraping or loading.
func (p *Problem) Validate() error {
	return problemValidate.Struct(p)
}

// NewProblemID builds the canonical problem identifier, e.g.
// "gauss-2025-g7-15".
func NewProblemID(year, grade, number int) string {
	return fmt.Sprintf("gauss-%d-g%d-%d", year, grade, number)
}

// ProblemSummary is the list-view projection of a Problem. It carries
// everything needed to display and render the problem but omits the
// answer and the solution.
type ProblemSummary struct {
	ID            string   `json:"id"`
	Source        string   `json:"source"`
	Grade         int      `json:"grade"`
	Year          int      `json:"year"`
	ProblemNumber int      `json:"problem_number"`
	Statement     string   `json:"statement"`
	Choices       []string `json:"choices"`
	Images        []string `json:"images,omitempty"`
	Tags          []string `json:"tags"`
	URL           string   `json:"url"`
}

// Summary projects the problem into its list view.
func (p *Problem) Summary() ProblemSummary {
	return ProblemSummary{
		ID:            p.ID,
		Source:        p.Source,
		Grade:         p.Grade,
		Year:          p.Year,
		ProblemNumber: p.ProblemNumber,
		Statement:     p.Statement,
		Choices:       p.Choices,
		Images:        p.Images,
		Tags:          p.Tags,
		URL:           p.URL,
	}
}
