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
)

// verifyHybrid runs a two-pass check.
//
// Pass 1 is the semantic check, which classifies every sentence. If
// all sentences pass, the result stands and the judge is never called.
//
// Pass 2 escalates to the judge when semantic flagged sentences, since
// those may involve counting, aggregation, or inference that embedding
// similarity misses. The judge sees the FULL answer and document, not
// just the flagged sentences, because the issue may span sentences.
//
// A confident SUPPORTED verdict overrides semantic's flags. Anything
// else keeps semantic's partition and takes the lower of the two
// confidences. If the judge is unavailable the semantic result stands
// with a note in its issues.
func (v *Verifier) verifyHybrid(ctx context.Context, req Request) *Result {
	semantic := v.verifySemantic(ctx, req)

	if len(semantic.UngroundedSentences) == 0 {
		semantic.Method = "hybrid (semantic only — all passed)"
		return semantic
	}

	verdict, err := v.callJudge(ctx, req.Answer, req.Document, req.Question)
	if err != nil {
		semantic.Method = "hybrid (LLM unavailable — semantic only)"
		semantic.Issues = append(semantic.Issues, fmt.Sprintf("LLM fallback failed: %v", err))
		return semantic
	}

	if verdict.Verdict == VerdictSupported && verdict.Confidence >= v.cfg.ConfidenceThreshold {
		all := append(append([]string{}, semantic.GroundedSentences...), semantic.UngroundedSentences...)
		vcopy := verdict
		return &Result{
			IsGrounded:          true,
			Confidence:          round3(verdict.Confidence),
			Method:              "hybrid (semantic + LLM override)",
			Issues:              []string{},
			GroundedSentences:   all,
			UngroundedSentences: []string{},
			TotalSentences:      len(all),
			GroundedCount:       len(all),
			UngroundedCount:     0,
			JudgeVerdict:        &vcopy,
			OverriddenSentences: semantic.UngroundedSentences,
		}
	}

	combined := min(semantic.Confidence, verdict.Confidence)
	vcopy := verdict

	result := *semantic
	result.Method = "hybrid (semantic + LLM confirmed)"
	result.Confidence = round3(combined)
	result.IsGrounded = combined >= v.cfg.ConfidenceThreshold && len(semantic.UngroundedSentences) == 0
	result.JudgeVerdict = &vcopy
	if verdict.Reason != "" {
		result.Issues = append(result.Issues, fmt.Sprintf("LLM confirms: %s", verdict.Reason))
	}
	return &result
}
