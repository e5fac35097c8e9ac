// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package datatypes provides data structures for the problem search API.
//
// This file contains request types for the analyze and hint endpoints.
package datatypes

import (
	"github.com/go-playground/validator/v10"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// MaxContentBytes is the maximum size of a single user-supplied text
	// field (expression, chat message, or stored conversation turn).
	// Byte length, not rune count, to bound memory regardless of
	// encoding tricks.
	MaxContentBytes = 32 * 1024 // 32KB

	// MaxConversationTurns is the maximum number of conversation turns a
	// hint request may carry. Older turns are expected to be truncated
	// client-side; the prompt builder only uses the most recent ten
	// anyway.
	MaxConversationTurns = 100
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// requestValidate is the validator instance for request datatypes.
// Initialized in init() with custom validators.
var requestValidate *validator.Validate

func init() {
	requestValidate = validator.New()
	_ = requestValidate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces MaxContentBytes on string fields.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxContentBytes
}

// =============================================================================
// Analyze
// =============================================================================

// AnalyzeRequest asks the tagging model to suggest concept tags for a
// free-form math expression.
//
// # Fields
//
//   - Latex: Required. The expression or problem text to analyze.
//     Limited to 32KB.
//
// # Validation
//
//   - Latex: required, maxbytes. Whitespace-only input passes tag
//     validation and is rejected by the handler with 400, mirroring the
//     empty case.
type AnalyzeRequest struct {
	Latex string `json:"latex" validate:"required,maxbytes"`
}

// Validate validates the AnalyzeRequest fields.
func (r *AnalyzeRequest) Validate() error {
	return requestValidate.Struct(r)
}

// =============================================================================
// Hint Chat
// =============================================================================

// Message is one turn of a hint conversation.
type Message struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"maxbytes"`
}

// HintRequest asks the tutor for the next hint on a problem.
//
// # Fields
//
//   - ProblemID: Required. Identifier of the problem being worked on,
//     e.g. "gauss-2025-g7-4".
//   - Conversation: Optional. Prior turns, oldest first. At most 100
//     turns are accepted; the prompt uses the most recent ten.
//   - Message: Required. The student's new message. Limited to 32KB.
//   - SessionID: Optional. Continues a stored hint session; a blank
//     value starts a new one.
//
// # Validation
//
// Uses go-playground/validator with the shared maxbytes custom
// validator. Conversation entries are validated element-wise (dive).
type HintRequest struct {
	ProblemID    string    `json:"problem_id" validate:"required"`
	Conversation []Message `json:"conversation" validate:"max=100,dive"`
	Message      string    `json:"message" validate:"required,maxbytes"`
	SessionID    string    `json:"session_id,omitempty" validate:"omitempty,uuid4"`
}

// Validate validates the HintRequest fields.
func (r *HintRequest) Validate() error {
	return requestValidate.Struct(r)
}

// HintResponse carries the tutor's reply and the session the turn was
// recorded under.
type HintResponse struct {
	Response  string `json:"response"`
	SessionID string `json:"session_id,omitempty"`
}
