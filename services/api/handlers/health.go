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

	"github.com/gaolin1/math-olympic-question-search/services/api/store"
)

// BackendInfo describes the configured model backend for the health
// endpoint.
type BackendInfo struct {
	Backend string
	URL     string
	Model   string
}

func HandleHealth(problems *store.ProblemStore, backend BackendInfo) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":          "healthy",
			"problems_loaded": problems.Len(),
			"llm_backend":     backend.Backend,
			"llm_url":         backend.URL,
			"model":           backend.Model,
		})
	}
}
