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
	"sort"
	"strings"

	"github.com/gaolin1/math-olympic-question-search/services/llm"
)

// TagConfidence is one suggested tag with the model's certainty that
// the concept is involved.
type TagConfidence struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

var analyzeSystemPrompt = buildAnalyzeSystemPrompt()

func buildAnalyzeSystemPrompt() string {
	return `You are a math education expert. Analyze the given math expression or problem and identify relevant mathematical concepts.

Return ONLY valid JSON in this exact format:
{"tags": [{"name": "tag_name", "confidence": 0.95}, {"name": "tag_name2", "confidence": 0.80}]}

You MUST ONLY use tags from this whitelist:
` + strings.Join(AllTags(), ", ") + `

Rules:
1. Assign confidence scores between 0.0 and 1.0
2. Return 1-5 most relevant tags
3. Higher confidence = more certain the concept is needed
4. Only return valid JSON, no other text`
}

// AnalyzeExpression asks the model which taxonomy concepts a LaTeX
// expression involves. Suggestions are whitelist-filtered, clamped to
// [0,1], and sorted by confidence descending. A reply that cannot be
// parsed yields an empty list, not an error; only a failed generation
// call is an error.
func AnalyzeExpression(ctx context.Context, client llm.LLMClient, latex string) ([]TagConfidence, error) {
	prompt := fmt.Sprintf(`Analyze this math expression and identify the mathematical concepts involved:

%s

Return JSON with tags and confidence scores.`, latex)

	temp := float32(0.1)
	maxTokens := 200
	raw, err := client.Generate(ctx, prompt, llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
		System:      analyzeSystemPrompt,
	})
	if err != nil {
		return nil, fmt.Errorf("analysis generation failed: %w", err)
	}

	obj, ok := extractJSONObject(raw)
	if !ok {
		return []TagConfidence{}, nil
	}
	var payload struct {
		Tags []struct {
			Name       string   `json:"name"`
			Confidence *float64 `json:"confidence"`
		} `json:"tags"`
	}
	if err := json.Unmarshal([]byte(obj), &payload); err != nil {
		slog.Warn("Analysis reply carried malformed JSON", "error", err)
		return []TagConfidence{}, nil
	}

	suggestions := make([]TagConfidence, 0, len(payload.Tags))
	for _, t := range payload.Tags {
		canon, valid := Normalize(t.Name)
		if !valid {
			continue
		}
		conf := 0.5
		if t.Confidence != nil {
			conf = *t.Confidence
		}
		suggestions = append(suggestions, TagConfidence{
			Name:       canon,
			Confidence: min(1.0, max(0.0, conf)),
		})
	}
	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Confidence > suggestions[j].Confidence
	})
	return suggestions, nil
}
