// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
	"github.com/gaolin1/math-olympic-question-search/services/api/sessions"
	"github.com/gaolin1/math-olympic-question-search/services/api/store"
	"github.com/gaolin1/math-olympic-question-search/services/llm"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// MockLLMClient implements llm.LLMClient for handler testing. It
// records every prompt, every chat message slice, and the last
// generation params it saw.
type MockLLMClient struct {
	mu         sync.Mutex
	Response   string
	Err        error
	Prompts    []string
	ChatCalls  [][]datatypes.Message
	LastParams llm.GenerationParams
}

func (m *MockLLMClient) Generate(_ context.Context, prompt string, params llm.GenerationParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Prompts = append(m.Prompts, prompt)
	m.LastParams = params
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockLLMClient) Chat(_ context.Context, messages []datatypes.Message, params llm.GenerationParams) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := make([]datatypes.Message, len(messages))
	copy(copied, messages)
	m.ChatCalls = append(m.ChatCalls, copied)
	m.LastParams = params
	if m.Err != nil {
		return "", m.Err
	}
	return m.Response, nil
}

func (m *MockLLMClient) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Prompts) == 0 {
		return ""
	}
	return m.Prompts[len(m.Prompts)-1]
}

func (m *MockLLMClient) LastChatMessages() []datatypes.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.ChatCalls) == 0 {
		return nil
	}
	return m.ChatCalls[len(m.ChatCalls)-1]
}

// SetResponse and SetErr mutate the mock under its lock so websocket
// tests can change behavior between turns without racing the handler
// goroutine.
func (m *MockLLMClient) SetResponse(response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Response = response
}

func (m *MockLLMClient) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// createTestRouter creates a Gin router with the specified handler for testing.
func createTestRouter(method, path string, handler gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	switch method {
	case "POST":
		router.POST(path, handler)
	case "GET":
		router.GET(path, handler)
	case "DELETE":
		router.DELETE(path, handler)
	}
	return router
}

// performRequest executes an HTTP request against the test router.
func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// sampleProblems returns a small fixture set spanning both grades.
func sampleProblems() []datatypes.Problem {
	return []datatypes.Problem{
		{
			ID:            "gauss-2025-g7-1",
			Source:        "gauss",
			Grade:         7,
			Year:          2025,
			ProblemNumber: 1,
			Statement:     `What is the value of \( 2 + 3 \)?`,
			Choices:       []string{"3", "4", "5", "6", "7"},
			Answer:        "C",
			Solution:      `Adding the two numbers gives \( 5 \).`,
			Tags:          []string{"equations"},
			URL:           "https://example.com/2025Gauss7Contest.html",
		},
		{
			ID:            "gauss-2025-g7-2",
			Source:        "gauss",
			Grade:         7,
			Year:          2025,
			ProblemNumber: 2,
			Statement:     "How many paths lead through the grid?\n{{IMG:0}}",
			Choices:       []string{"2", "4", "6", "8", ""},
			Images:        []string{"data:image/png;base64,GRID"},
			Answer:        "B",
			Tags:          []string{"counting", "paths"},
			URL:           "https://example.com/2025Gauss7Contest.html",
		},
		{
			ID:            "gauss-2024-g8-1",
			Source:        "gauss",
			Grade:         8,
			Year:          2024,
			ProblemNumber: 1,
			Statement:     "A rectangle has area 24 and width 4. What is its length?",
			Choices:       []string{"4", "5", "6", "7", "8"},
			Answer:        "C",
			Tags:          []string{"area"},
			URL:           "https://example.com/2024Gauss8Contest.html",
		},
	}
}

// newProblemStore writes the problems to a temp problems.json and opens
// a store over it.
func newProblemStore(t *testing.T, problems []datatypes.Problem) *store.ProblemStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "problems.json")
	data, err := json.Marshal(problems)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	s, err := store.Open(path)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// newSessionStore opens an in-memory session store.
func newSessionStore(t *testing.T) *sessions.Store {
	t.Helper()

	s, err := sessions.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
