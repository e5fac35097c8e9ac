// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaolin1/math-olympic-question-search/pkg/render"
)

// =============================================================================
// HandleRenderProblem Tests
// =============================================================================

type renderResponse struct {
	ID        string          `json:"id"`
	Statement []render.Unit   `json:"statement"`
	Choices   [][]render.Unit `json:"choices"`
}

func decodeRenderResponse(t *testing.T, body []byte) renderResponse {
	t.Helper()
	var response renderResponse
	require.NoError(t, json.Unmarshal(body, &response))
	return response
}

// TestHandleRenderProblem_MathStatement verifies that a statement with
// an inline math span renders as text/math/text units with the math
// typeset.
func TestHandleRenderProblem_MathStatement(t *testing.T) {
	problems := newProblemStore(t, sampleProblems())
	router := createTestRouter("GET", "/api/problems/:problemId/render",
		HandleRenderProblem(problems, render.New(nil)))

	w := performRequest(router, "GET", "/api/problems/gauss-2025-g7-1/render", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeRenderResponse(t, w.Body.Bytes())
	assert.Equal(t, "gauss-2025-g7-1", response.ID)

	require.Len(t, response.Statement, 3)
	assert.Equal(t, render.UnitText, response.Statement[0].Kind)
	assert.Equal(t, "What is the value of ", response.Statement[0].Text)
	assert.Equal(t, render.UnitMath, response.Statement[1].Kind)
	assert.Equal(t, "2 + 3", response.Statement[1].Source)
	assert.NotEmpty(t, response.Statement[1].Markup)
	assert.False(t, response.Statement[1].Degraded)
	assert.Equal(t, render.UnitText, response.Statement[2].Kind)
	assert.Equal(t, "?", response.Statement[2].Text)

	require.Len(t, response.Choices, 5)
	for i, choice := range response.Choices {
		require.Len(t, choice, 1, "choice %d", i)
		assert.Equal(t, render.UnitText, choice[0].Kind)
	}
	assert.Equal(t, "3", response.Choices[0][0].Text)
	assert.Equal(t, "7", response.Choices[4][0].Text)
}

// TestHandleRenderProblem_ImageAndBlankChoice verifies image
// placeholder resolution and that a padded blank choice serves as an
// empty unit list, not null.
func TestHandleRenderProblem_ImageAndBlankChoice(t *testing.T) {
	problems := newProblemStore(t, sampleProblems())
	router := createTestRouter("GET", "/api/problems/:problemId/render",
		HandleRenderProblem(problems, render.New(nil)))

	w := performRequest(router, "GET", "/api/problems/gauss-2025-g7-2/render", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeRenderResponse(t, w.Body.Bytes())

	require.Len(t, response.Statement, 3)
	assert.Equal(t, render.UnitText, response.Statement[0].Kind)
	assert.Equal(t, "How many paths lead through the grid?", response.Statement[0].Text)
	assert.Equal(t, render.UnitBreak, response.Statement[1].Kind)
	assert.Equal(t, render.UnitImage, response.Statement[2].Kind)
	assert.Equal(t, "data:image/png;base64,GRID", response.Statement[2].Src)
	assert.Equal(t, "Image 1", response.Statement[2].Alt)

	// The fifth choice is padding; it must appear as [].
	require.Len(t, response.Choices, 5)
	assert.NotNil(t, response.Choices[4])
	assert.Empty(t, response.Choices[4])
	assert.Contains(t, w.Body.String(), `[]`)
}

// TestHandleRenderProblem_DegradedMath verifies that typesetting
// failures degrade to the raw source instead of erroring the request.
func TestHandleRenderProblem_DegradedMath(t *testing.T) {
	problems := newProblemStore(t, sampleProblems())
	router := createTestRouter("GET", "/api/problems/:problemId/render",
		HandleRenderProblem(problems, render.New(render.NopEngine{})))

	w := performRequest(router, "GET", "/api/problems/gauss-2025-g7-1/render", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	response := decodeRenderResponse(t, w.Body.Bytes())

	require.Len(t, response.Statement, 3)
	math := response.Statement[1]
	assert.Equal(t, render.UnitMath, math.Kind)
	assert.True(t, math.Degraded)
	assert.Equal(t, "2 + 3", math.Source)
	assert.Equal(t, "2 + 3", math.Text)
	assert.Empty(t, math.Markup)
}

// TestHandleRenderProblem_NotFound verifies that an unknown identifier
// returns a 404 Not Found response.
func TestHandleRenderProblem_NotFound(t *testing.T) {
	problems := newProblemStore(t, sampleProblems())
	router := createTestRouter("GET", "/api/problems/:problemId/render",
		HandleRenderProblem(problems, render.New(nil)))

	w := performRequest(router, "GET", "/api/problems/gauss-2099-g7-1/render", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	var response map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &response)
	assert.Equal(t, "problem not found", response["error"])
}
