// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaolin1/math-olympic-question-search/services/api/observability"
)

// RequestLogger creates a middleware that logs one structured line per
// completed request. When the request carries a span, the trace ID is
// included so log lines can be joined against exported traces.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.IsValid() {
			attrs = append(attrs, "trace_id", spanCtx.TraceID().String())
		}
		slog.Info("request", attrs...)
	}
}

// RequestMetrics creates a middleware that counts completed requests in
// Prometheus. The endpoint label uses the route template, not the raw
// path, to keep cardinality bounded.
func RequestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		observability.DefaultMetrics.RecordRequest(endpoint, strconv.Itoa(c.Writer.Status()))
	}
}
