// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"

	"github.com/gaolin1/math-olympic-question-search/services/api/observability"
)

func newCORSRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(CORS(origins))
	router.GET("/api/problems", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestDefaultOrigins(t *testing.T) {
	origins := DefaultOrigins()

	assert.Contains(t, origins, "http://localhost:5173")
	assert.Contains(t, origins, "http://localhost:3000")
	assert.Contains(t, origins, "http://127.0.0.1:5173")
}

func TestCORS_AllowedOriginGetsHeaders(t *testing.T) {
	router := newCORSRouter(DefaultOrigins())

	req := httptest.NewRequest(http.MethodGet, "/api/problems", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, w.Header().Values("Vary"), "Origin")
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	router := newCORSRouter(DefaultOrigins())

	req := httptest.NewRequest(http.MethodOptions, "/api/problems", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Session-ID")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "POST")
	assert.Equal(t, "Content-Type, X-Session-ID", w.Header().Get("Access-Control-Allow-Headers"))
	assert.Equal(t, "600", w.Header().Get("Access-Control-Max-Age"))
}

func TestCORS_PreflightDefaultsAllowedHeaders(t *testing.T) {
	router := newCORSRouter(DefaultOrigins())

	req := httptest.NewRequest(http.MethodOptions, "/api/problems", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "Content-Type", w.Header().Get("Access-Control-Allow-Headers"))
}

func TestCORS_DisallowedPreflightRejected(t *testing.T) {
	router := newCORSRouter(DefaultOrigins())

	req := httptest.NewRequest(http.MethodOptions, "/api/problems", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_DisallowedOriginPassesThroughBare(t *testing.T) {
	// Non-preflight requests still reach the handler; the browser blocks
	// the response because no CORS headers come back.
	router := newCORSRouter(DefaultOrigins())

	req := httptest.NewRequest(http.MethodGet, "/api/problems", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_NoOriginHeaderIsUntouched(t *testing.T) {
	router := newCORSRouter(DefaultOrigins())

	req := httptest.NewRequest(http.MethodGet, "/api/problems", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestLogger_EmitsOneLine(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	logged := buf.String()
	assert.Contains(t, logged, `"path":"/api/health"`)
	assert.Contains(t, logged, `"status":200`)
	assert.Contains(t, logged, `"method":"GET"`)
	assert.NotContains(t, logged, "trace_id")
}

func TestRequestLogger_IncludesTraceID(t *testing.T) {
	var buf bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(previous) })

	traceID, err := trace.TraceIDFromHex("0af7651916cd43dd8448eb211c80319c")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("b7ad6b7169203331")
	require.NoError(t, err)
	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestLogger())
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req = req.WithContext(trace.ContextWithSpanContext(req.Context(), spanCtx))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, buf.String(), `"trace_id":"0af7651916cd43dd8448eb211c80319c"`)
}

func TestRequestMetrics_CountsByRouteTemplate(t *testing.T) {
	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "test_requests_total"},
		[]string{"endpoint", "status"},
	)
	observability.DefaultMetrics = &observability.Metrics{RequestsTotal: requests}
	t.Cleanup(func() { observability.DefaultMetrics = nil })

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestMetrics())
	router.GET("/api/problems/:id", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/problems/gauss-2025-g7-p1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	val := testutil.ToFloat64(requests.WithLabelValues("/api/problems/:id", "200"))
	assert.Equal(t, float64(1), val)

	// Unrouted paths collapse into one label value.
	req = httptest.NewRequest(http.MethodGet, "/nope", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	val = testutil.ToFloat64(requests.WithLabelValues("unmatched", "404"))
	assert.Equal(t, float64(1), val)
}

func TestRequestMetrics_NilMetricsIsSafe(t *testing.T) {
	observability.DefaultMetrics = nil

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RequestMetrics())
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
