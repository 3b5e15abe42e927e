// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package embed provides sentence-embedding support for the grounding
// verifier and the duplicate detector.
//
// Embeddings come from an external HTTP service running a sentence
// transformer model (MiniLM, BGE, or similar). The service is optional:
// when it is unreachable, callers degrade to lexical methods and tag
// their results accordingly. A process-wide Registry caches one client
// per model name so repeated verification calls reuse the loaded model.
package embed

import (
	"context"
	"errors"
)

// Sentinel errors for the embed package.
var (
	// ErrInvalidInput indicates a programming error in the call.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnavailable indicates the embedding service is not reachable.
	// Callers should fall back to lexical methods.
	ErrUnavailable = errors.New("embedding service unavailable")
)

// Embedder converts texts into dense vectors.
//
// Implementations must be safe for concurrent use.
type Embedder interface {
	// Embed computes one vector per input text, batched into a single
	// service call.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}
