// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
	"github.com/gaolin1/math-olympic-question-search/services/api/sessions"
)

// =============================================================================
// HandleHintWebSocket Tests
// =============================================================================

// newHintSocketServer starts a test server exposing the hint socket and
// returns its ws:// URL plus the session store backing it.
func newHintSocketServer(t *testing.T, mockLLM *MockLLMClient) (string, *sessions.Store) {
	t.Helper()

	problems := newProblemStore(t, sampleProblems())
	hintSessions := newSessionStore(t)

	router := gin.New()
	router.GET("/api/hint/ws", HandleHintWebSocket(problems, hintSessions, mockLLM))

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return "ws" + strings.TrimPrefix(server.URL, "http") + "/api/hint/ws", hintSessions
}

// dialHintSocket connects and consumes the session_created handshake,
// returning the connection and the announced session id.
func dialHintSocket(t *testing.T, wsURL string) (*websocket.Conn, string) {
	t.Helper()

	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { _ = ws.Close() })

	var handshake struct {
		Action    string `json:"action"`
		SessionID string `json:"session_id"`
	}
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	require.NoError(t, ws.ReadJSON(&handshake))
	require.Equal(t, "session_created", handshake.Action)
	require.NotEmpty(t, handshake.SessionID)

	return ws, handshake.SessionID
}

func readHintReply(t *testing.T, ws *websocket.Conn) WSHintResponse {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
	var reply WSHintResponse
	require.NoError(t, ws.ReadJSON(&reply))
	return reply
}

// TestHandleHintWebSocket_Handshake verifies that connecting announces
// a fresh session, distinct per connection.
func TestHandleHintWebSocket_Handshake(t *testing.T) {
	wsURL, _ := newHintSocketServer(t, &MockLLMClient{Response: "hint"})

	ws1, sessionID1 := dialHintSocket(t, wsURL)
	defer ws1.Close()
	_, err := uuid.Parse(sessionID1)
	assert.NoError(t, err)

	ws2, sessionID2 := dialHintSocket(t, wsURL)
	defer ws2.Close()
	assert.NotEqual(t, sessionID1, sessionID2)
}

// TestHandleHintWebSocket_HintExchange verifies a full request/reply
// turn, including speaker prefix cleanup.
func TestHandleHintWebSocket_HintExchange(t *testing.T) {
	mockLLM := &MockLLMClient{Response: "Tutor: Start with the first number."}
	wsURL, _ := newHintSocketServer(t, mockLLM)

	ws, _ := dialHintSocket(t, wsURL)

	require.NoError(t, ws.WriteJSON(WSHintRequest{
		ProblemID: "gauss-2025-g7-1",
		Message:   "I need help",
	}))

	reply := readHintReply(t, ws)
	assert.Equal(t, "Start with the first number.", reply.Response)
	assert.Empty(t, reply.Error)

	messages := mockLLM.LastChatMessages()
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].Role)
	assert.Contains(t, messages[0].Content, "NEVER reveal the correct answer letter")
	assert.Contains(t, messages[0].Content, `Problem: What is the value of \( 2 + 3 \)?`)
	assert.Equal(t, datatypes.Message{Role: "user", Content: "I need help"}, messages[1])
}

// TestHandleHintWebSocket_UnknownProblem verifies that an error reply
// is sent and the connection stays usable.
func TestHandleHintWebSocket_UnknownProblem(t *testing.T) {
	mockLLM := &MockLLMClient{Response: "A helpful hint."}
	wsURL, _ := newHintSocketServer(t, mockLLM)

	ws, _ := dialHintSocket(t, wsURL)

	require.NoError(t, ws.WriteJSON(WSHintRequest{ProblemID: "gauss-1900-g7-1", Message: "help"}))
	reply := readHintReply(t, ws)
	assert.Equal(t, "problem not found", reply.Error)
	assert.Empty(t, reply.Response)

	// The same connection still serves valid requests.
	require.NoError(t, ws.WriteJSON(WSHintRequest{ProblemID: "gauss-2025-g7-1", Message: "help"}))
	reply = readHintReply(t, ws)
	assert.Equal(t, "A helpful hint.", reply.Response)
}

// TestHandleHintWebSocket_EmptyMessage verifies that a blank message is
// rejected per-turn without closing the connection.
func TestHandleHintWebSocket_EmptyMessage(t *testing.T) {
	wsURL, _ := newHintSocketServer(t, &MockLLMClient{Response: "hint"})

	ws, _ := dialHintSocket(t, wsURL)

	require.NoError(t, ws.WriteJSON(WSHintRequest{ProblemID: "gauss-2025-g7-1", Message: "   "}))
	reply := readHintReply(t, ws)
	assert.Equal(t, "message is required", reply.Error)
}

// TestHandleHintWebSocket_ModelErrorKeepsConnection verifies that a
// generation failure reports per-turn and recovery is possible.
func TestHandleHintWebSocket_ModelErrorKeepsConnection(t *testing.T) {
	mockLLM := &MockLLMClient{}
	mockLLM.SetErr(assert.AnError)
	wsURL, _ := newHintSocketServer(t, mockLLM)

	ws, _ := dialHintSocket(t, wsURL)

	require.NoError(t, ws.WriteJSON(WSHintRequest{ProblemID: "gauss-2025-g7-1", Message: "help"}))
	reply := readHintReply(t, ws)
	assert.NotEmpty(t, reply.Error)

	mockLLM.SetErr(nil)
	mockLLM.SetResponse("Back online.")
	require.NoError(t, ws.WriteJSON(WSHintRequest{ProblemID: "gauss-2025-g7-1", Message: "again"}))
	reply = readHintReply(t, ws)
	assert.Equal(t, "Back online.", reply.Response)
}

// TestHandleHintWebSocket_HistoryAccumulates verifies that the server
// carries conversation context between turns on one connection.
func TestHandleHintWebSocket_HistoryAccumulates(t *testing.T) {
	mockLLM := &MockLLMClient{Response: "Think about place value."}
	wsURL, _ := newHintSocketServer(t, mockLLM)

	ws, _ := dialHintSocket(t, wsURL)

	require.NoError(t, ws.WriteJSON(WSHintRequest{ProblemID: "gauss-2025-g7-1", Message: "first message"}))
	readHintReply(t, ws)

	mockLLM.SetResponse("Now add them.")
	require.NoError(t, ws.WriteJSON(WSHintRequest{ProblemID: "gauss-2025-g7-1", Message: "second message"}))
	readHintReply(t, ws)

	messages := mockLLM.LastChatMessages()
	require.Len(t, messages, 4)
	assert.Equal(t, datatypes.Message{Role: "user", Content: "first message"}, messages[1])
	assert.Equal(t, datatypes.Message{Role: "assistant", Content: "Think about place value."}, messages[2])
	assert.Equal(t, datatypes.Message{Role: "user", Content: "second message"}, messages[3])
}

// TestHandleHintWebSocket_PersistsTurns verifies that exchanges land in
// the session store under the announced session id.
func TestHandleHintWebSocket_PersistsTurns(t *testing.T) {
	mockLLM := &MockLLMClient{Response: "Count the possibilities."}
	wsURL, hintSessions := newHintSocketServer(t, mockLLM)

	ws, sessionID := dialHintSocket(t, wsURL)

	require.NoError(t, ws.WriteJSON(WSHintRequest{ProblemID: "gauss-2025-g7-2", Message: "How do I count paths?"}))
	readHintReply(t, ws)

	turns, err := hintSessions.History(sessionID)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "user", turns[0].Role)
	assert.Equal(t, "How do I count paths?", turns[0].Content)
	assert.Equal(t, "assistant", turns[1].Role)
	assert.Equal(t, "Count the possibilities.", turns[1].Content)

	meta, err := hintSessions.GetMeta(sessionID)
	require.NoError(t, err)
	assert.Equal(t, "gauss-2025-g7-2", meta.ProblemID)
}
