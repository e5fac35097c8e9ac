// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scraper

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
)

var (
	// "12. " at the start of a line opens a problem section. The
	// trailing whitespace requirement keeps decimals like 12.5 from
	// being read as headers.
	problemHeaderPattern = regexp.MustCompile(`(?:^|\n)\s*(\d{1,2})\.\s`)

	choiceMarkPattern = regexp.MustCompile(`\(([A-E])\)`)

	// "1. A" lines on the answer-key page.
	answerLinePattern = regexp.MustCompile(`(\d{1,2})\.\s*([A-E])(?:\s|$)`)

	imageTokenPattern = regexp.MustCompile(`\{\{IMG:(\d+)\}\}`)
)

// ParseContestPage extracts the numbered problems from one contest
// page. Problems come back sorted by number with exactly five choices
// each (empty strings pad short lists) and per-problem image payloads.
func ParseContestPage(page string, year, grade int) []datatypes.Problem {
	text, images := extractContent(page)
	sections := splitProblemSections(text)

	problems := make([]datatypes.Problem, 0, len(sections))
	for number, body := range sections {
		statement, choices := extractChoices(body)
		problem := datatypes.Problem{
			ID:            datatypes.NewProblemID(year, grade, number),
			Source:        "gauss",
			Grade:         grade,
			Year:          year,
			ProblemNumber: number,
			Statement:     statement,
			Choices:       choices,
			Tags:          []string{},
			URL:           ContestURL(year, grade),
		}
		reindexImages(&problem, images)
		problems = append(problems, problem)
	}

	sort.Slice(problems, func(i, j int) bool {
		return problems[i].ProblemNumber < problems[j].ProblemNumber
	})
	return problems
}

// splitProblemSections carves the flattened page text into per-problem
// bodies keyed by problem number. Each body runs from its header to
// the next header or the end of the text. Numbers outside 1..25 are
// page furniture and dropped; a repeated number keeps the last body.
func splitProblemSections(text string) map[int]string {
	headers := problemHeaderPattern.FindAllStringSubmatchIndex(text, -1)
	sections := make(map[int]string)
	for i, header := range headers {
		number, err := strconv.Atoi(text[header[2]:header[3]])
		if err != nil || number < 1 || number > 25 {
			continue
		}
		bodyStart := header[1]
		bodyEnd := len(text)
		if i+1 < len(headers) {
			bodyEnd = headers[i+1][0]
		}
		body := strings.TrimSpace(text[bodyStart:bodyEnd])
		if body == "" {
			continue
		}
		sections[number] = body
	}
	return sections
}

// extractChoices splits a problem body into its statement and the
// five answer choices. Choices are stored without their letter
// prefixes. A body with no (A) marker is all statement.
func extractChoices(body string) (string, []string) {
	marks := choiceMarkPattern.FindAllStringSubmatchIndex(body, -1)

	firstA := -1
	for _, mark := range marks {
		if body[mark[2]:mark[3]] == "A" {
			firstA = mark[0]
			break
		}
	}
	if firstA < 0 {
		return strings.TrimSpace(body), padChoices(nil)
	}

	statement := strings.TrimSpace(body[:firstA])
	choices := make([]string, 0, len(marks))
	for i, mark := range marks {
		end := len(body)
		if i+1 < len(marks) {
			end = marks[i+1][0]
		}
		choices = append(choices, strings.TrimSpace(body[mark[1]:end]))
	}
	return statement, padChoices(choices)
}

func padChoices(choices []string) []string {
	for len(choices) < 5 {
		choices = append(choices, "")
	}
	return choices[:5]
}

// reindexImages rewrites page-global {{IMG:n}} tokens in a problem's
// statement and choices to indices local to the problem, and attaches
// the referenced payloads in first-use order. Tokens pointing outside
// the page's image list are left alone.
func reindexImages(problem *datatypes.Problem, pageImages []string) {
	var local []string
	assigned := make(map[int]int)

	rewrite := func(s string) string {
		return imageTokenPattern.ReplaceAllStringFunc(s, func(token string) string {
			match := imageTokenPattern.FindStringSubmatch(token)
			global, err := strconv.Atoi(match[1])
			if err != nil || global < 0 || global >= len(pageImages) {
				return token
			}
			localIndex, ok := assigned[global]
			if !ok {
				localIndex = len(local)
				assigned[global] = localIndex
				local = append(local, pageImages[global])
			}
			return fmt.Sprintf("{{IMG:%d}}", localIndex)
		})
	}

	problem.Statement = rewrite(problem.Statement)
	for i := range problem.Choices {
		problem.Choices[i] = rewrite(problem.Choices[i])
	}
	problem.Images = local
}

type solutionKey struct {
	grade  int
	number int
}

// parseSolutionPage reads answer letters off the combined answer-key
// page. The page lists grade 7 answers then grade 8 answers with the
// numbering restarting at 1, so a second problem 1 switches grades.
func parseSolutionPage(page string) map[solutionKey]string {
	text, _ := extractContent(page)
	answers := make(map[solutionKey]string)

	currentGrade := 7
	for _, match := range answerLinePattern.FindAllStringSubmatch(text, -1) {
		number, err := strconv.Atoi(match[1])
		if err != nil || number < 1 || number > 25 {
			continue
		}
		if number == 1 {
			if _, seen := answers[solutionKey{grade: 7, number: 1}]; seen {
				currentGrade = 8
			}
		}
		answers[solutionKey{grade: currentGrade, number: number}] = match[2]
	}
	return answers
}
