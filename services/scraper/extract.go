// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scraper

import (
	"bytes"
	"fmt"
	"strings"

	"golang.org/x/net/html"
)

// extractContent flattens a contest page into newline-joined text.
// Each <img> becomes a {{IMG:n}} placeholder line, with the n-th src
// collected into the returned slice. Script and style subtrees carry
// no problem text and are skipped, as are the page's "Hide/Reveal"
// solution toggles.
func extractContent(page string) (string, []string) {
	tokenizer := html.NewTokenizer(strings.NewReader(page))
	var lines []string
	var images []string
	skipDepth := 0

	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			return strings.Join(lines, "\n"), images

		case html.StartTagToken, html.SelfClosingTagToken:
			name, moreAttr := tokenizer.TagName()
			if bytes.Equal(name, []byte("script")) || bytes.Equal(name, []byte("style")) {
				if tokenType == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if bytes.Equal(name, []byte("img")) && skipDepth == 0 {
				var key, val []byte
				src := ""
				for moreAttr {
					key, val, moreAttr = tokenizer.TagAttr()
					if bytes.Equal(key, []byte("src")) {
						src = string(val)
					}
				}
				lines = append(lines, fmt.Sprintf("{{IMG:%d}}", len(images)))
				images = append(images, src)
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if bytes.Equal(name, []byte("script")) || bytes.Equal(name, []byte("style")) {
				if skipDepth > 0 {
					skipDepth--
				}
			}

		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			text := strings.TrimSpace(string(tokenizer.Text()))
			text = strings.TrimSpace(strings.ReplaceAll(text, "Hide/Reveal", ""))
			if text == "" {
				continue
			}
			lines = append(lines, text)
		}
	}
}
