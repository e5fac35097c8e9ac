// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gaolin1/math-olympic-question-search/services/tagging"
)

func HandleListTags() gin.HandlerFunc {
	// The taxonomy is fixed at compile time, so the category map is
	// built once.
	byCategory := make(map[string][]string, len(tagging.Categories))
	for _, category := range tagging.Categories {
		byCategory[category.Name] = category.Tags
	}

	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"tags":     byCategory,
			"all_tags": tagging.AllTags(),
		})
	}
}
