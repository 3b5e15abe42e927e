// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grounding

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/AleutianAI/qaguard/services/grader/llm"
	"github.com/AleutianAI/qaguard/services/grader/textseg"
)

// judgePromptTemplate instructs the judge model. Substitutions are
// document, question, answer in that order.
const judgePromptTemplate = `You are a grounding verifier. Your job is to determine whether an answer is fully supported by the given document.

DOCUMENT:
%s

QUESTION:
%s

ANSWER:
%s

Instructions:
1. Check if EVERY claim in the answer is supported by the document.
2. Pay special attention to:
   - Numbers, counts, and aggregations (e.g. "3 men" — verify by counting in the document)
   - Inferences and conclusions drawn from multiple parts of the document
   - Negations and qualifiers
3. Respond with EXACTLY this JSON format (no other text):

{"verdict": "SUPPORTED" or "NOT_SUPPORTED", "confidence": 0.0 to 1.0, "reason": "brief explanation"}

If the answer correctly aggregates, counts, or infers from the document, it IS supported.
If the answer adds information not in the document, it is NOT supported.`

// confidenceRe extracts a confidence number from a malformed judge
// reply.
var confidenceRe = regexp.MustCompile(`"confidence"\s*:\s*([\d.]+)`)

// callJudge sends the answer and document to the judge model and
// parses its verdict.
//
// The judge must be a SEPARATE model from the one that generated the
// answer; a model judging its own output is biased toward SUPPORTED.
//
// Transient failures are retried with linear backoff. When retries are
// exhausted the verdict degrades to UNKNOWN with confidence 0.5 rather
// than failing the whole grading run.
func (v *Verifier) callJudge(ctx context.Context, answer, document, question string) (Verdict, error) {
	if v.judge == nil {
		return Verdict{}, ErrJudgeUnavailable
	}

	docText := document
	if runes := []rune(document); len(runes) > v.cfg.MaxDocChars {
		docText = string(runes[:v.cfg.MaxDocChars]) + "\n... [document truncated] ..."
	}
	if question == "" {
		question = "(no question provided)"
	}

	prompt := fmt.Sprintf(judgePromptTemplate, docText, question, answer)
	params := llm.GenerationParams{
		Temperature: llm.Float32(0.0), // deterministic for judging
		MaxTokens:   llm.Int(200),
	}

	var reply string
	err := v.cfg.Retry.Do(ctx, func() error {
		out, genErr := v.judge.Generate(ctx, prompt, params)
		if genErr != nil {
			observeJudgeRetry()
			return genErr
		}
		reply = out
		return nil
	})
	if err != nil {
		observeJudgeFailure()
		v.log.Warn("judge call failed after retries", "error", err)
		return Verdict{
			Verdict:    VerdictUnknown,
			Confidence: 0.5,
			Reason:     fmt.Sprintf("LLM call failed: %v", err),
		}, nil
	}

	return parseVerdict(strings.TrimSpace(reply)), nil
}

// parseVerdict parses the judge's JSON response, tolerating minor
// formatting issues: a strict JSON parse first, then a keyword scan
// with a regex grab for the confidence number.
func parseVerdict(reply string) Verdict {
	var data struct {
		Verdict    *string  `json:"verdict"`
		Confidence *float64 `json:"confidence"`
		Reason     *string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(reply), &data); err == nil {
		v := Verdict{Verdict: VerdictUnknown, Confidence: 0.5}
		if data.Verdict != nil {
			v.Verdict = strings.ToUpper(*data.Verdict)
		}
		if data.Confidence != nil {
			v.Confidence = *data.Confidence
		}
		if data.Reason != nil {
			v.Reason = *data.Reason
		}
		return v
	}

	verdict := Verdict{
		Verdict:    VerdictUnknown,
		Confidence: 0.5,
		Reason:     truncate(reply, 200),
	}

	replyUpper := strings.ToUpper(reply)
	if strings.Contains(replyUpper, "NOT_SUPPORTED") || strings.Contains(replyUpper, "NOT SUPPORTED") {
		verdict.Verdict = VerdictNotSupported
		verdict.Confidence = 0.3
	} else if strings.Contains(replyUpper, "SUPPORTED") {
		verdict.Verdict = VerdictSupported
		verdict.Confidence = 0.8
	}

	if m := confidenceRe.FindStringSubmatch(reply); m != nil {
		if c, err := strconv.ParseFloat(m[1], 64); err == nil {
			verdict.Confidence = min(max(c, 0.0), 1.0)
		}
	}

	return verdict
}

// verifyJudge asks the judge model for a holistic verdict on the whole
// answer. Sentences are not classified individually; the verdict
// partitions all of them one way or the other.
func (v *Verifier) verifyJudge(ctx context.Context, req Request) (*Result, error) {
	if strings.TrimSpace(req.Answer) == "" {
		return &Result{
			IsGrounded: false,
			Confidence: 0.0,
			Issues:     []string{"Answer is empty"},
			Method:     string(MethodJudge),
		}, nil
	}

	verdict, err := v.callJudge(ctx, req.Answer, req.Document, req.Question)
	if err != nil {
		return nil, err
	}

	supported := verdict.Verdict == VerdictSupported
	sentences := textseg.Segment(req.Answer)

	var (
		grounded   []string
		ungrounded []string
		issues     []string
	)
	if supported {
		grounded = sentences
	} else {
		ungrounded = sentences
		issues = append(issues, fmt.Sprintf("LLM judge: %s", verdict.Reason))
	}

	vcopy := verdict
	return &Result{
		IsGrounded:          supported && verdict.Confidence >= v.cfg.ConfidenceThreshold,
		Confidence:          round3(verdict.Confidence),
		Method:              string(MethodJudge),
		Issues:              issues,
		GroundedSentences:   grounded,
		UngroundedSentences: ungrounded,
		TotalSentences:      len(grounded) + len(ungrounded),
		GroundedCount:       len(grounded),
		UngroundedCount:     len(ungrounded),
		JudgeVerdict:        &vcopy,
	}, nil
}
