// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package tagging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
	"github.com/gaolin1/math-olympic-question-search/services/llm"
)

// DefaultBatchSize bounds concurrent tagging requests against the model.
const DefaultBatchSize = 5

var tagSystemPrompt = buildTagSystemPrompt()

func buildTagSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a math education expert. Your task is to analyze math problems and assign relevant concept tags.\n\n")
	b.WriteString("You MUST ONLY use tags from this exact whitelist:\n")
	for _, cat := range Categories {
		b.WriteString("\n")
		b.WriteString(cat.Name)
		b.WriteString(": ")
		b.WriteString(strings.Join(cat.Tags, ", "))
		b.WriteString("\n")
	}
	b.WriteString(`
Rules:
1. Return ONLY valid JSON in this exact format: {"tags": ["tag1", "tag2"]}
2. Use 1-4 tags per problem
3. Only use tags from the whitelist above
4. Choose tags based on the mathematical concepts needed to solve the problem
5. Do not explain or add any text outside the JSON`)
	return b.String()
}

func buildTagPrompt(statement string, choices []string) string {
	var lettered []string
	for i, c := range choices {
		lettered = append(lettered, fmt.Sprintf("  %c) %s", rune('A'+i), c))
	}
	return fmt.Sprintf(`Analyze this math problem and return appropriate concept tags as JSON.

Problem: %s

Answer choices:
%s

Return ONLY valid JSON: {"tags": ["tag1", "tag2"]}`, statement, strings.Join(lettered, "\n"))
}

// TagProblem asks the model to classify a single problem and returns
// the whitelisted tags it named.
func TagProblem(ctx context.Context, client llm.LLMClient, statement string, choices []string) ([]string, error) {
	temp := float32(0.1)
	maxTokens := 100
	raw, err := client.Generate(ctx, buildTagPrompt(statement, choices), llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		System:      tagSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("tag generation failed: %w", err)
	}
	return ParseTags(raw), nil
}

// ParseTags extracts whitelisted tags from a raw model reply. The
// reply is expected to carry a {"tags": [...]} object, possibly inside
// a markdown code fence. Replies with no JSON object at all fall back
// to scanning the text for tag mentions, which recovers tags from
// models that reason aloud instead of answering.
func ParseTags(raw string) []string {
	obj, ok := extractJSONObject(raw)
	if !ok {
		return ScanMentions(raw)
	}
	var payload struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		return ScanMentions(raw)
	}
	seen := make(map[string]bool)
	var tags []string
	for _, t := range payload.Tags {
		canon, valid := Normalize(t)
		if !valid || seen[canon] {
			continue
		}
		seen[canon] = true
		tags = append(tags, canon)
	}
	return tags
}

// extractJSONObject isolates the first {...} span in a model reply,
// unwrapping one layer of markdown code fence first.
func extractJSONObject(raw string) (string, bool) {
	text := raw
	if i := strings.Index(text, "```json"); i >= 0 {
		text = text[i+len("```json"):]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	} else if i := strings.Index(text, "```"); i >= 0 {
		text = text[i+len("```"):]
		if j := strings.Index(text, "```"); j >= 0 {
			text = text[:j]
		}
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// TagAll tags every problem in place with bounded concurrency. A
// failed problem is logged and left with empty tags; the batch keeps
// going unless the context is cancelled.
func TagAll(ctx context.Context, client llm.LLMClient, problems []datatypes.Problem, batchSize int) error {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(batchSize)
	for i := range problems {
		g.Go(func() error {
			p := &problems[i]
			tags, err := TagProblem(ctx, client, p.Statement, p.Choices)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				slog.Error("Tagging problem failed", "problem_id", p.ID, "error", err)
				p.Tags = []string{}
				return nil
			}
			if tags == nil {
				tags = []string{}
			}
			p.Tags = tags
			slog.Info("Tagged problem", "problem_id", p.ID, "tags", tags)
			return nil
		})
	}
	return g.Wait()
}

// TagDistribution counts how many problems carry each tag.
func TagDistribution(problems []datatypes.Problem) map[string]int {
	counts := make(map[string]int)
	for _, p := range problems {
		for _, tag := range p.Tags {
			counts[tag]++
		}
	}
	return counts
}
