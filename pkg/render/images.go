// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package render

import "fmt"

// ResolveImage maps an image segment index onto the supplied payload
// list. When images[index] exists and is non-empty the result is an
// image unit carrying the payload and alt text numbered from 1.
// Any other index, including negative values and indexes past the end
// of the list, degrades to the visible text "[Image n]" where n is the
// 1-based image number. It never panics.
func ResolveImage(index int, images []string) Unit {
	if index >= 0 && index < len(images) && images[index] != "" {
		return Unit{
			Kind: UnitImage,
			Src:  images[index],
			Alt:  fmt.Sprintf("Image %d", index+1),
		}
	}
	return Unit{
		Kind:     UnitText,
		Text:     fmt.Sprintf("[Image %d]", index+1),
		Degraded: true,
	}
}
