// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package render

import (
	"regexp"
	"strconv"
	"strings"
)

// wholeMathPattern matches a trimmed content string that is a single
// delimiter pair spanning the entire input. Whole-math input skips
// line-break and placeholder handling.
var wholeMathPattern = regexp.MustCompile(`(?s)^\\\((.+?)\\\)$`)

// mathPairPattern matches the shortest span between an opening \( and
// the next closing \). A dangling opener never matches and stays in the
// surrounding text region as literal characters.
var mathPairPattern = regexp.MustCompile(`(?s)\\\((.*?)\\\)`)

// imageTokenPattern matches {{IMG:n}} placeholder tokens, n base-10.
var imageTokenPattern = regexp.MustCompile(`\{\{IMG:(\d+)\}\}`)

var lineBreakPattern = regexp.MustCompile(`\r?\n`)

// Segmentize converts a content string into its ordered segment
// sequence. It is a pure function: the same input always yields the
// same output, and no state survives between calls.
//
// Processing order:
//
//  1. Unescape \$ to a literal dollar sign. $...$ is never a math
//     delimiter, so the unescaped form cannot re-trigger math handling.
//  2. Empty or whitespace-only content yields nil.
//  3. If the trimmed content is one \( ... \) pair spanning the whole
//     string, the interior becomes a single SegmentMath (or nothing
//     when the interior is blank) and scanning stops there.
//  4. Otherwise each non-overlapping \( ... \) pair becomes a
//     SegmentMath with trimmed source; the text regions between pairs
//     are split on line breaks and {{IMG:n}} tokens.
//
// A math interior that trims to the empty string contributes no
// segment, so "\(  \)" renders as nothing at that position.
func Segmentize(content string) []Segment {
	normalized := strings.ReplaceAll(content, `\$`, "$")
	trimmed := strings.TrimSpace(normalized)
	if trimmed == "" {
		return nil
	}

	if m := wholeMathPattern.FindStringSubmatch(trimmed); m != nil {
		source := strings.TrimSpace(m[1])
		if source == "" {
			return nil
		}
		return []Segment{{Kind: SegmentMath, Math: source}}
	}

	var segments []Segment
	last := 0
	for _, pair := range mathPairPattern.FindAllStringSubmatchIndex(normalized, -1) {
		segments = appendTextRegion(segments, normalized[last:pair[0]])
		source := strings.TrimSpace(normalized[pair[2]:pair[3]])
		if source != "" {
			segments = append(segments, Segment{Kind: SegmentMath, Math: source})
		}
		last = pair[1]
	}
	return appendTextRegion(segments, normalized[last:])
}

// appendTextRegion splits a text region on line breaks and appends the
// resulting segments. Exactly one SegmentBreak separates adjacent
// lines; there is never a break after the final line.
func appendTextRegion(segments []Segment, region string) []Segment {
	if region == "" {
		return segments
	}
	for i, line := range lineBreakPattern.Split(region, -1) {
		if i > 0 {
			segments = append(segments, Segment{Kind: SegmentBreak})
		}
		segments = appendLine(segments, line)
	}
	return segments
}

// appendLine scans one line for {{IMG:n}} tokens. Literal text around
// each token is kept verbatim; empty literals contribute no segment.
func appendLine(segments []Segment, line string) []Segment {
	last := 0
	for _, tok := range imageTokenPattern.FindAllStringSubmatchIndex(line, -1) {
		if lit := line[last:tok[0]]; lit != "" {
			segments = append(segments, Segment{Kind: SegmentText, Text: lit})
		}
		index, err := strconv.Atoi(line[tok[2]:tok[3]])
		if err != nil {
			// Digit run exceeds int range; keep the token as literal text.
			segments = append(segments, Segment{Kind: SegmentText, Text: line[tok[0]:tok[1]]})
		} else {
			segments = append(segments, Segment{Kind: SegmentImage, Index: index})
		}
		last = tok[1]
	}
	if lit := line[last:]; lit != "" {
		segments = append(segments, Segment{Kind: SegmentText, Text: lit})
	}
	return segments
}
