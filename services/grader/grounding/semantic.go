// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grounding

import (
	"context"
	"fmt"
	"strings"

	"github.com/AleutianAI/qaguard/services/grader/embed"
	"github.com/AleutianAI/qaguard/services/grader/textseg"
)

// verifySemantic classifies each answer sentence by its best cosine
// similarity against document chunks.
//
// Chunks are the individual document sentences plus sliding windows of
// 2..WindowSize consecutive sentences. The windows capture claims that
// aggregate across sentence boundaries ("John was arrested. Peter was
// arrested." supports "two men were arrested") which single-sentence
// comparison would miss.
//
// If no embedder is configured or the embedding call fails, the check
// degrades to keyword matching and says so in Method and Note.
func (v *Verifier) verifySemantic(ctx context.Context, req Request) *Result {
	if v.embedder == nil {
		res := v.verifyKeyword(req)
		res.Method = "keyword (semantic unavailable)"
		res.Note = "embedding service not configured, using keyword-based method"
		return res
	}

	answerSentences := textseg.Segment(req.Answer)
	if len(answerSentences) == 0 {
		return &Result{
			IsGrounded: false,
			Confidence: 0.0,
			Issues:     []string{"Answer is empty"},
			Method:     string(MethodSemantic),
		}
	}

	docSentences := textseg.Segment(req.Document)

	// Individual sentences first, then windows of increasing width.
	docChunks := make([]string, 0, len(docSentences)*v.cfg.WindowSize)
	docChunks = append(docChunks, docSentences...)
	for w := 2; w <= v.cfg.WindowSize; w++ {
		for j := 0; j+w <= len(docSentences); j++ {
			docChunks = append(docChunks, strings.Join(docSentences[j:j+w], " "))
		}
	}

	// One round trip: answer sentences and document chunks together.
	texts := make([]string, 0, len(answerSentences)+len(docChunks))
	texts = append(texts, answerSentences...)
	texts = append(texts, docChunks...)

	vectors, err := v.embedder.Embed(ctx, texts)
	if err != nil {
		v.log.Warn("embedding failed, degrading to keyword check", "error", err)
		res := v.verifyKeyword(req)
		res.Method = "keyword (semantic unavailable)"
		res.Note = fmt.Sprintf("Could not embed sentences: %v. Using keyword-based fallback.", err)
		return res
	}

	answerVecs := vectors[:len(answerSentences)]
	chunkVecs := vectors[len(answerSentences):]

	var (
		issues     []string
		grounded   []string
		ungrounded []string
	)

	for i, sentence := range answerSentences {
		maxSim := 0.0
		for k, cv := range chunkVecs {
			sim := embed.CosineSimilarity(answerVecs[i], cv)
			if k == 0 || sim > maxSim {
				maxSim = sim
			}
		}

		switch {
		case maxSim >= v.cfg.SemanticThreshold:
			grounded = append(grounded, sentence)
		case v.isGenericStatement(sentence):
			grounded = append(grounded, sentence)
		default:
			ungrounded = append(ungrounded, sentence)
			issues = append(issues, fmt.Sprintf(
				"Low similarity (%.2f): '%s...'", maxSim, truncate(sentence, 100),
			))
		}
	}

	total := len(grounded) + len(ungrounded)
	confidence := 0.0
	if total > 0 {
		confidence = float64(len(grounded)) / float64(total)
	}

	return &Result{
		IsGrounded:          confidence >= v.cfg.ConfidenceThreshold && len(ungrounded) == 0,
		Confidence:          round3(confidence),
		Method:              string(MethodSemantic),
		Issues:              issues,
		GroundedSentences:   grounded,
		UngroundedSentences: ungrounded,
		TotalSentences:      total,
		GroundedCount:       len(grounded),
		UngroundedCount:     len(ungrounded),
	}
}
