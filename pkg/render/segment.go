// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package render

// SegmentKind identifies which variant a Segment carries.
type SegmentKind int

const (
	// SegmentText is a literal run of characters with no markup.
	SegmentText SegmentKind = iota
	// SegmentBreak separates two adjacent lines of a text region.
	SegmentBreak
	// SegmentImage references an entry in the caller-supplied image list.
	SegmentImage
	// SegmentMath is the trimmed interior of a \( ... \) delimiter pair.
	SegmentMath
)

// String returns a human-readable name for the segment kind.
func (k SegmentKind) String() string {
	switch k {
	case SegmentText:
		return "text"
	case SegmentBreak:
		return "break"
	case SegmentImage:
		return "image"
	case SegmentMath:
		return "math"
	default:
		return "unknown"
	}
}

// Segment is one atomic unit of parsed content. Exactly one of the
// payload fields is meaningful, selected by Kind:
//
//   - SegmentText: Text holds the literal run, verbatim.
//   - SegmentBreak: no payload.
//   - SegmentImage: Index is the 0-based position in the image list.
//   - SegmentMath: Math holds the trimmed expression source.
//
// Segments are ordered; concatenating their rendered forms reconstructs
// the original content left to right.
type Segment struct {
	Kind  SegmentKind
	Text  string
	Index int
	Math  string
}
