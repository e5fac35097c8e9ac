// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/gaolin1/math-olympic-question-search/pkg/render"
	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
	"github.com/gaolin1/math-olympic-question-search/services/api/handlers"
	"github.com/gaolin1/math-olympic-question-search/services/api/sessions"
	"github.com/gaolin1/math-olympic-question-search/services/api/store"
	"github.com/gaolin1/math-olympic-question-search/services/llm"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// mockLLMClient is a minimal mock for llm.LLMClient
type mockLLMClient struct{}

func (m *mockLLMClient) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	return "mock response", nil
}

func (m *mockLLMClient) Chat(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams) (string, error) {
	return "mock response", nil
}

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()

	// A nonexistent problems file yields an empty, functional store.
	problems, err := store.Open(filepath.Join(t.TempDir(), "problems.json"))
	if err != nil {
		t.Fatalf("store.Open() error = %v", err)
	}
	t.Cleanup(problems.Close)

	hintSessions, err := sessions.OpenInMemory()
	if err != nil {
		t.Fatalf("sessions.OpenInMemory() error = %v", err)
	}
	t.Cleanup(func() { _ = hintSessions.Close() })

	router := gin.New()
	SetupRoutes(router, problems, hintSessions, &mockLLMClient{}, render.New(nil),
		handlers.BackendInfo{Backend: "ollama", URL: "http://localhost:11434", Model: "test-model"})
	return router
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersAllRoutes(t *testing.T) {
	router := newTestRouter(t)

	expected := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"GET", "/api/tags"},
		{"POST", "/api/analyze"},
		{"GET", "/api/problems"},
		{"GET", "/api/problems/:problemId"},
		{"GET", "/api/problems/:problemId/render"},
		{"POST", "/api/hint"},
		{"GET", "/api/hint/ws"},
		{"GET", "/api/sessions"},
		{"GET", "/api/sessions/:sessionId/history"},
		{"DELETE", "/api/sessions/:sessionId"},
	}

	routes := router.Routes()
	for _, want := range expected {
		found := false
		for _, r := range routes {
			if r.Method == want.method && r.Path == want.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected route %s %s not found", want.method, want.path)
		}
	}
}

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Health endpoint returned %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Status         string `json:"status"`
		ProblemsLoaded int    `json:"problems_loaded"`
		Model          string `json:"model"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode health body: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("status = %q, want %q", body.Status, "healthy")
	}
	if body.ProblemsLoaded != 0 {
		t.Errorf("problems_loaded = %d, want 0", body.ProblemsLoaded)
	}
	if body.Model != "test-model" {
		t.Errorf("model = %q, want %q", body.Model, "test-model")
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	// Prometheus metrics endpoint should return 200
	if w.Code != http.StatusOK {
		t.Errorf("Metrics endpoint returned %d, want %d", w.Code, http.StatusOK)
	}

	if w.Header().Get("Content-Type") == "" {
		t.Error("Metrics endpoint should return Content-Type header")
	}
}

func TestSetupRoutes_TagsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/tags", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Tags endpoint returned %d, want %d", w.Code, http.StatusOK)
	}

	var body struct {
		Tags    map[string][]string `json:"tags"`
		AllTags []string            `json:"all_tags"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode tags body: %v", err)
	}
	if len(body.Tags) == 0 {
		t.Error("Expected at least one tag category")
	}
	if len(body.AllTags) == 0 {
		t.Error("Expected a non-empty flat tag list")
	}
}

func TestSetupRoutes_RouteCount(t *testing.T) {
	router := newTestRouter(t)

	routes := router.Routes()

	minExpectedRoutes := 12
	if len(routes) < minExpectedRoutes {
		t.Errorf("Expected at least %d routes, got %d", minExpectedRoutes, len(routes))
	}
}

func TestSetupRoutes_APIGroupExists(t *testing.T) {
	router := newTestRouter(t)

	apiRoutes := 0
	for _, r := range router.Routes() {
		if len(r.Path) > 4 && r.Path[:4] == "/api" {
			apiRoutes++
		}
	}

	if apiRoutes == 0 {
		t.Error("Expected at least one /api route")
	}
}
