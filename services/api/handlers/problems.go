// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
	"github.com/gaolin1/math-olympic-question-search/services/api/store"
)

// HandleListProblems serves the filterable problem list. Tags filter by
// intersection (a problem must carry every requested tag); grade and
// year filter by equality. Answers and solutions are omitted.
func HandleListProblems(problems *store.ProblemStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter store.Filter

		if raw := c.Query("tags"); raw != "" {
			for _, tag := range strings.Split(raw, ",") {
				if tag = strings.TrimSpace(tag); tag != "" {
					filter.Tags = append(filter.Tags, tag)
				}
			}
		}
		if raw := c.Query("grade"); raw != "" {
			grade, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "grade must be an integer"})
				return
			}
			filter.Grade = grade
		}
		if raw := c.Query("year"); raw != "" {
			year, err := strconv.Atoi(raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "year must be an integer"})
				return
			}
			filter.Year = year
		}

		matches := problems.List(filter)
		summaries := make([]datatypes.ProblemSummary, 0, len(matches))
		for i := range matches {
			summaries = append(summaries, matches[i].Summary())
		}
		c.JSON(http.StatusOK, summaries)
	}
}

// HandleGetProblem serves one problem in full, including answer and
// solution.
func HandleGetProblem(problems *store.ProblemStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		problem, err := problems.Get(c.Param("problemId"))
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "problem not found"})
				return
			}
			slog.Error("Problem lookup failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load problem"})
			return
		}
		c.JSON(http.StatusOK, problem)
	}
}
