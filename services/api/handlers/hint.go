// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/gaolin1/math-olympic-question-search/services/api/datatypes"
	"github.com/gaolin1/math-olympic-question-search/services/api/observability"
	"github.com/gaolin1/math-olympic-question-search/services/api/sessions"
	"github.com/gaolin1/math-olympic-question-search/services/api/store"
	"github.com/gaolin1/math-olympic-question-search/services/llm"
)

var hintTracer = otel.Tracer("mathsearch.api.handlers")

// hintHistoryTurns bounds how much conversation context goes into the
// prompt.
const hintHistoryTurns = 10

const tutorSystemPrompt = `You are a helpful math tutor. Your job is to guide students to understand and solve math problems WITHOUT revealing the answer directly.

CRITICAL RULES:
1. NEVER reveal the correct answer letter (A, B, C, D, or E)
2. NEVER say which specific choice is correct
3. Guide the student step by step with hints and questions
4. Encourage them to think through the problem
5. If they're stuck, give progressively more specific hints
6. Explain concepts but let them reach the answer themselves
7. If they ask "what's the answer?" or similar, politely decline and offer another hint instead

You can:
- Explain relevant formulas or concepts
- Break down the problem into smaller steps
- Ask guiding questions
- Point out what to focus on
- Verify their reasoning (without confirming the final answer)`

// hintProblemContext renders the problem with its lettered choices for
// the tutor's context.
func hintProblemContext(problem datatypes.Problem) string {
	var choices strings.Builder
	for i, choice := range problem.Choices {
		if i > 0 {
			choices.WriteByte('\n')
		}
		fmt.Fprintf(&choices, "%c) %s", rune('A'+i), choice)
	}

	return fmt.Sprintf(`The student is working on this problem:

Problem: %s

Answer choices:
%s

Help them WITHOUT revealing which answer is correct.`, problem.Statement, choices.String())
}

// buildHintPrompt assembles the tutoring prompt: the problem with its
// lettered choices, the most recent conversation turns, and the
// student's new message.
func buildHintPrompt(problem datatypes.Problem, conversation []datatypes.Message, message string) string {
	turns := conversation
	if len(turns) > hintHistoryTurns {
		turns = turns[len(turns)-hintHistoryTurns:]
	}
	var history strings.Builder
	for _, turn := range turns {
		fmt.Fprintf(&history, "\n%s: %s", capitalizeRole(turn.Role), turn.Content)
	}
	fmt.Fprintf(&history, "\nStudent: %s", message)

	return fmt.Sprintf(`%s

Conversation so far:%s

Provide a helpful hint (remember: NEVER reveal the answer):`, hintProblemContext(problem), history.String())
}

// buildHintMessages assembles the same tutoring context in chat form: a
// system turn carrying the tutor rules and the problem, the most recent
// conversation turns, then the student's new message. The websocket
// path feeds this to Chat so the model sees real conversation
// structure instead of a transcript dump.
func buildHintMessages(problem datatypes.Problem, conversation []datatypes.Message, message string) []datatypes.Message {
	turns := conversation
	if len(turns) > hintHistoryTurns {
		turns = turns[len(turns)-hintHistoryTurns:]
	}
	messages := make([]datatypes.Message, 0, len(turns)+2)
	messages = append(messages, datatypes.Message{
		Role:    "system",
		Content: tutorSystemPrompt + "\n\n" + hintProblemContext(problem),
	})
	messages = append(messages, turns...)
	messages = append(messages, datatypes.Message{Role: "user", Content: message})
	return messages
}

func capitalizeRole(role string) string {
	if role == "" {
		return "User"
	}
	return strings.ToUpper(role[:1]) + strings.ToLower(role[1:])
}

// cleanHintReply strips the speaker prefixes smaller models like to
// prepend.
func cleanHintReply(reply string) string {
	reply = strings.TrimSpace(reply)
	if after, ok := strings.CutPrefix(reply, "Tutor:"); ok {
		reply = strings.TrimSpace(after)
	}
	if after, ok := strings.CutPrefix(reply, "Assistant:"); ok {
		reply = strings.TrimSpace(after)
	}
	return reply
}

// hintParams are the generation settings for tutoring replies.
func hintParams() llm.GenerationParams {
	temperature := float32(0.7)
	maxTokens := 500
	return llm.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
		System:      tutorSystemPrompt,
	}
}

func HandleHint(problems *store.ProblemStore, hintSessions *sessions.Store, llmClient llm.LLMClient) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := hintTracer.Start(c.Request.Context(), "HandleHint")
		defer span.End()

		var req datatypes.HintRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the hint request", "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		problem, err := problems.Get(req.ProblemID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "problem not found"})
			return
		}

		prompt := buildHintPrompt(problem, req.Conversation, req.Message)

		start := time.Now()
		reply, err := llmClient.Generate(ctx, prompt, hintParams())
		observability.DefaultMetrics.ObserveLLM("hint", time.Since(start).Seconds(), llmFailureReason(err))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if errors.Is(err, llm.ErrUnavailable) {
				slog.Error("Hint backend unreachable", "error", err)
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "model backend unavailable"})
				return
			}
			slog.Error("Hint generation failed", "error", err, "problem_id", req.ProblemID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		reply = cleanHintReply(reply)

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = uuid.New().String()
		}
		now := time.Now().UTC()
		if err := hintSessions.Append(sessionID, req.ProblemID,
			sessions.Turn{Role: "user", Content: req.Message, CreatedAt: now},
			sessions.Turn{Role: "assistant", Content: reply, CreatedAt: now},
		); err != nil {
			// The hint is still served; losing the transcript is not fatal.
			slog.Warn("Failed to persist hint turns", "error", err, "session_id", sessionID)
		}

		c.JSON(http.StatusOK, datatypes.HintResponse{Response: reply, SessionID: sessionID})
	}
}
