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
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
	"github.com/gaolin1/math-olympic-question-search/services/api/observability"
	"github.com/gaolin1/math-olympic-question-search/services/llm"
	"github.com/gaolin1/math-olympic-question-search/services/tagging"
)

var analyzeTracer = otel.Tracer("mathsearch.api.handlers")

// llmFailureReason maps a model call error onto the metrics reason
// label: "" for success, "unavailable" for transport failures, "error"
// for everything else.
func llmFailureReason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, llm.ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}

func HandleAnalyze(llmClient llm.LLMClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := analyzeTracer.Start(c.Request.Context(), "HandleAnalyze")
		defer span.End()

		var req datatypes.AnalyzeRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the analyze request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if strings.TrimSpace(req.Latex) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "latex expression is required"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		start := time.Now()
		tags, err := tagging.AnalyzeExpression(ctx, llmClient, req.Latex)
		observability.DefaultMetrics.ObserveLLM("analyze", time.Since(start).Seconds(), llmFailureReason(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, llm.ErrUnavailable) {
				slog.Error("Tagging backend unreachable", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model backend unavailable"})
				return
			}
			slog.Error("Expression analysis failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"tags": tags})
	}
}
