// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grounding

// Method selects a verification strategy.
type Method string

const (
	// MethodKeyword matches key phrases from the answer against the
	// document text. Fast and dependency-free.
	MethodKeyword Method = "keyword"

	// MethodSemantic compares sentence embeddings against sliding
	// windows of document sentences.
	MethodSemantic Method = "semantic"

	// MethodJudge asks a separate judge model whether the answer is
	// supported by the document. Catches aggregation and inference
	// that similarity scoring misses.
	MethodJudge Method = "judge"

	// MethodHybrid runs semantic first and escalates to the judge only
	// when semantic flags ungrounded sentences.
	MethodHybrid Method = "hybrid"
)

// Verdict strings returned by the judge model.
const (
	VerdictSupported    = "SUPPORTED"
	VerdictNotSupported = "NOT_SUPPORTED"
	VerdictUnknown      = "UNKNOWN"
)

// Request is one answer to verify against its source document.
type Request struct {
	Answer   string `json:"answer"`
	Document string `json:"document"`
	Question string `json:"question,omitempty"`
	Method   Method `json:"method,omitempty"`
}

// Verdict is the judge model's decision about an answer.
type Verdict struct {
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason,omitempty"`
}

// Result is the outcome of one verification.
//
// Method records the strategy that actually produced the result, which
// can differ from the requested one when a backend is unavailable:
// "keyword (semantic unavailable)", "hybrid (LLM unavailable — semantic
// only)", and so on. Callers that branch on strategy should match on
// the prefix.
type Result struct {
	IsGrounded          bool     `json:"is_grounded"`
	Confidence          float64  `json:"confidence"`
	Method              string   `json:"method"`
	Issues              []string `json:"issues"`
	GroundedSentences   []string `json:"grounded_sentences"`
	UngroundedSentences []string `json:"ungrounded_sentences"`
	TotalSentences      int      `json:"total_sentences"`
	GroundedCount       int      `json:"grounded_count"`
	UngroundedCount     int      `json:"ungrounded_count"`

	// JudgeVerdict is set when the judge model participated.
	JudgeVerdict *Verdict `json:"llm_verdict,omitempty"`

	// OverriddenSentences lists sentences semantic flagged as
	// ungrounded that the judge later accepted.
	OverriddenSentences []string `json:"semantic_ungrounded_overridden,omitempty"`

	// Note explains a degraded result, e.g. why semantic fell back to
	// keyword matching.
	Note string `json:"note,omitempty"`
}
