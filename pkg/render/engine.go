// Copyright (C) 2025 Gao Lin
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package render

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"git.sr.ht/~mekyt/latex2mathml"
	"github.com/wyatt915/treeblood"
)

const mathMLNamespace = "http://www.w3.org/1998/Math/MathML"

// Engine converts a math expression source string into display markup.
// A failed conversion reports an error; the caller decides how to
// degrade. Implementations must be safe for concurrent use.
type Engine interface {
	Render(mathSource string) (string, error)
}

// =============================================================================
// TreeBlood engine
// =============================================================================

// TreeBloodEngine typesets expressions to MathML with treeblood.
type TreeBloodEngine struct {
	mu   sync.Mutex
	pitz *treeblood.Pitziil
}

// NewTreeBloodEngine returns an engine with no predefined macros.
func NewTreeBloodEngine() *TreeBloodEngine {
	return &TreeBloodEngine{pitz: treeblood.NewDocument(nil, false)}
}

// Render implements Engine using inline (text style) layout.
func (e *TreeBloodEngine) Render(mathSource string) (string, error) {
	// A Pitziil accumulates per-document state; access is serialized.
	e.mu.Lock()
	defer e.mu.Unlock()
	markup, err := e.pitz.TextStyle(mathSource)
	if err != nil {
		return "", err
	}
	return markup, nil
}

// =============================================================================
// latex2mathml engine
// =============================================================================

// LatexMathMLEngine typesets expressions with git.sr.ht/~mekyt/latex2mathml.
// The underlying converter panics on input it cannot parse; Render
// reports those panics as errors.
type LatexMathMLEngine struct{}

// NewLatexMathMLEngine returns the alternate MathML engine.
func NewLatexMathMLEngine() *LatexMathMLEngine {
	return &LatexMathMLEngine{}
}

// Render implements Engine using inline display mode.
func (e *LatexMathMLEngine) Render(mathSource string) (markup string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("latex2mathml: %v", rec)
		}
	}()
	markup = latex2mathml.Convert(mathSource, mathMLNamespace, "inline", 0)
	return markup, nil
}

// =============================================================================
// Nop engine
// =============================================================================

// NopEngine rejects every expression. It exists for tests and for
// callers that want the raw-source fallback unconditionally.
type NopEngine struct{}

// Render implements Engine by always failing.
func (NopEngine) Render(string) (string, error) {
	return "", errors.New("typesetting disabled")
}

// =============================================================================
// Selection
// =============================================================================

// EngineFromEnv selects the typesetting engine from the MATH_ENGINE
// environment variable. Recognized values are "treeblood" (the
// default) and "latex2mathml". Unknown values fall back to the default
// with a warning.
func EngineFromEnv() Engine {
	name := strings.ToLower(os.Getenv("MATH_ENGINE"))
	switch name {
	case "", "treeblood":
		return NewTreeBloodEngine()
	case "latex2mathml":
		return NewLatexMathMLEngine()
	default:
		slog.Warn("Unknown MATH_ENGINE value, using treeblood", "value", name)
		return NewTreeBloodEngine()
	}
}
