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

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/gaolin1/math-olympic-question-search/pkg/render"
	"github.com/gaolin1/math-olympic-question-search/services/api/observability"
	"github.com/gaolin1/math-olympic-question-search/services/api/store"
)

var renderTracer = otel.Tracer("mathsearch.api.handlers")

// HandleRenderProblem runs a problem's statement and choices through
// the renderer and serves the unit sequences. Degraded units (failed
// typesetting, missing images) are served as-is and counted in
// Prometheus.
func HandleRenderProblem(problems *store.ProblemStore, renderer *render.Renderer) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, span := renderTracer.Start(c.Request.Context(), "HandleRenderProblem")
		defer span.End()

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

		statement := renderUnits(renderer, problem.Statement, problem.Images)
		badMath, badImages := countDegraded(statement)

		choices := make([][]render.Unit, 0, len(problem.Choices))
		for _, choice := range problem.Choices {
			units := renderUnits(renderer, choice, problem.Images)
			m, i := countDegraded(units)
			badMath += m
			badImages += i
			choices = append(choices, units)
		}

		observability.DefaultMetrics.RecordRenderFallbacks("malformed_math", badMath)
		observability.DefaultMetrics.RecordRenderFallbacks("unresolved_image", badImages)
		span.SetAttributes(attribute.Int("render.degraded_units", badMath+badImages))

		c.JSON(http.StatusOK, gin.H{
			"id":        problem.ID,
			"statement": statement,
			"choices":   choices,
		})
	}
}

// renderUnits normalizes empty content to an empty slice so padded
// blank choices serve as [] rather than null.
func renderUnits(renderer *render.Renderer, content string, images []string) []render.Unit {
	units := renderer.Render(content, images)
	if units == nil {
		units = []render.Unit{}
	}
	return units
}

// countDegraded splits degraded units by cause: a degraded math unit
// failed typesetting, a degraded text unit stands in for an image that
// could not be resolved.
func countDegraded(units []render.Unit) (badMath, badImages int) {
	for _, unit := range units {
		if !unit.Degraded {
			continue
		}
		if unit.Kind == render.UnitMath {
			badMath++
		} else {
			badImages++
		}
	}
	return badMath, badImages
}
