// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package quality scores graded documents into quality bands so
// reviewers can focus on the documents that need human attention.
package quality

// Thresholds tune the quality evaluation.
type Thresholds struct {
	// MinQuestions is the expected minimum number of QA pairs per
	// document.
	MinQuestions int `json:"min_questions" yaml:"min_questions"`

	// AttentionConfidence: documents below this overall confidence go
	// straight to needs_attention.
	AttentionConfidence float64 `json:"attention_confidence" yaml:"attention_confidence"`

	// ReviewConfidence: documents below this overall confidence are
	// flagged for review.
	ReviewConfidence float64 `json:"review_confidence" yaml:"review_confidence"`

	// LowConfidence: individual pairs below this confidence get a
	// warn status.
	LowConfidence float64 `json:"low_confidence" yaml:"low_confidence"`

	// ShortAnswerChars: answers shorter than this are flagged as
	// suspiciously short.
	ShortAnswerChars int `json:"short_answer_chars" yaml:"short_answer_chars"`
}

// DefaultThresholds returns the production defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinQuestions:        3,
		AttentionConfidence: 0.5,
		ReviewConfidence:    0.75,
		LowConfidence:       0.65,
		ShortAnswerChars:    60,
	}
}

// Overrides selectively replaces threshold values; nil fields keep
// the base value. This mirrors how per-run config merges over the
// defaults.
type Overrides struct {
	MinQuestions        *int     `json:"min_questions,omitempty" yaml:"min_questions,omitempty"`
	AttentionConfidence *float64 `json:"attention_confidence,omitempty" yaml:"attention_confidence,omitempty"`
	ReviewConfidence    *float64 `json:"review_confidence,omitempty" yaml:"review_confidence,omitempty"`
	LowConfidence       *float64 `json:"low_confidence,omitempty" yaml:"low_confidence,omitempty"`
	ShortAnswerChars    *int     `json:"short_answer_chars,omitempty" yaml:"short_answer_chars,omitempty"`
}

// Resolve applies o on top of t and returns the result.
func (t Thresholds) Resolve(o *Overrides) Thresholds {
	if o == nil {
		return t
	}
	if o.MinQuestions != nil {
		t.MinQuestions = *o.MinQuestions
	}
	if o.AttentionConfidence != nil {
		t.AttentionConfidence = *o.AttentionConfidence
	}
	if o.ReviewConfidence != nil {
		t.ReviewConfidence = *o.ReviewConfidence
	}
	if o.LowConfidence != nil {
		t.LowConfidence = *o.LowConfidence
	}
	if o.ShortAnswerChars != nil {
		t.ShortAnswerChars = *o.ShortAnswerChars
	}
	return t
}
