// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package render turns mixed problem content into an ordered sequence
// of displayable units. Content strings interleave literal text,
// line breaks, \( ... \) math spans, and {{IMG:n}} image placeholders;
// every user-facing text field in the system (problem statements,
// answer choices, hint replies) passes through this package.
//
// The pipeline has no failure path. Malformed math degrades to its raw
// source, a missing image degrades to "[Image n]", and an unmatched
// opening delimiter stays literal text. Degraded units are marked, not
// hidden, so callers can count them.
//
// Rendering is a pure function of (content, images): segments are
// derived fresh on every call, nothing is cached, and a Renderer is
// safe for concurrent use as long as its Engine is.
//
// Example:
//
//	r := render.New(render.NewTreeBloodEngine())
//	units := r.Render("What is \\( 2+2 \\)?", nil)
//	// units: [text "What is "] [math 2+2] [text "?"]
package render

// UnitKind identifies the displayable form a Unit resolved to.
type UnitKind string

const (
	UnitText  UnitKind = "text"
	UnitBreak UnitKind = "break"
	UnitImage UnitKind = "image"
	UnitMath  UnitKind = "math"
)

// Unit is one resolved display element. The populated fields depend on
// Kind:
//
//   - UnitText: Text holds the literal run. Degraded is set when the
//     text stands in for an unresolvable image.
//   - UnitBreak: no payload.
//   - UnitImage: Src holds the opaque payload (typically a data URI),
//     Alt the derived alt text.
//   - UnitMath: Source always holds the expression. Markup holds the
//     typeset form on success; on engine failure Markup is empty,
//     Degraded is set, and Text repeats the source for display.
type Unit struct {
	Kind     UnitKind `json:"kind"`
	Text     string   `json:"text,omitempty"`
	Src      string   `json:"src,omitempty"`
	Alt      string   `json:"alt,omitempty"`
	Source   string   `json:"source,omitempty"`
	Markup   string   `json:"markup,omitempty"`
	Degraded bool     `json:"degraded,omitempty"`
}

// Renderer resolves segment sequences against a typesetting engine.
type Renderer struct {
	engine Engine
}

// New returns a Renderer backed by the given engine. A nil engine
// selects the default TreeBlood engine.
func New(engine Engine) *Renderer {
	if engine == nil {
		engine = NewTreeBloodEngine()
	}
	return &Renderer{engine: engine}
}

// Render segments content and resolves every segment, in order, into a
// displayable unit. Empty or whitespace-only content yields nil.
// Render never returns an error and never panics; see the package
// comment for the degradation rules.
func (r *Renderer) Render(content string, images []string) []Unit {
	segments := Segmentize(content)
	if len(segments) == 0 {
		return nil
	}
	units := make([]Unit, 0, len(segments))
	for _, seg := range segments {
		switch seg.Kind {
		case SegmentText:
			units = append(units, Unit{Kind: UnitText, Text: seg.Text})
		case SegmentBreak:
			units = append(units, Unit{Kind: UnitBreak})
		case SegmentImage:
			units = append(units, ResolveImage(seg.Index, images))
		case SegmentMath:
			units = append(units, r.renderMath(seg.Math))
		}
	}
	return units
}

// renderMath applies the render-or-fallback contract: any engine error
// or panic yields a degraded unit carrying the raw source.
func (r *Renderer) renderMath(source string) (unit Unit) {
	defer func() {
		if rec := recover(); rec != nil {
			unit = Unit{Kind: UnitMath, Source: source, Text: source, Degraded: true}
		}
	}()
	markup, err := r.engine.Render(source)
	if err != nil {
		return Unit{Kind: UnitMath, Source: source, Text: source, Degraded: true}
	}
	return Unit{Kind: UnitMath, Source: source, Markup: markup}
}
