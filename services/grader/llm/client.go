// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package llm provides text-generation clients for the grading
// pipeline. The grounding verifier uses a TextGenerator as its judge
// model; the judge must be a different model from whatever produced
// the answers under test, to avoid self-evaluation bias.
package llm

import "context"

// GenerationParams carries per-request sampling parameters. Nil fields
// use the backend's defaults.
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// TextGenerator defines the standard interface for any LLM backend.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// Float32 returns a pointer to v. Convenience for GenerationParams.
func Float32(v float32) *float32 { return &v }

// Int returns a pointer to v. Convenience for GenerationParams.
func Int(v int) *int { return &v }
