// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package record defines the document and QA-pair shapes that flow
// through the grading pipeline. These mirror the JSON produced by
// upstream QA-generation jobs, so unknown fields round-trip and every
// grading annotation is optional until the pipeline fills it in.
package record

// Document is one source document with its generated QA pairs.
//
// Upstream generators disagree about where the source text lives, so
// Content, Text, and Body are all accepted; use SourceText to pick the
// populated one.
type Document struct {
	DocumentID     string          `json:"document_id,omitempty" yaml:"document_id,omitempty"`
	Title          string          `json:"title,omitempty" yaml:"title,omitempty"`
	Content        string          `json:"content,omitempty" yaml:"content,omitempty"`
	Text           string          `json:"text,omitempty" yaml:"text,omitempty"`
	Body           string          `json:"body,omitempty" yaml:"body,omitempty"`
	QAPairs        []QAPair        `json:"qa_pairs" yaml:"qa_pairs"`
	GradingSummary *GradingSummary `json:"grading_summary,omitempty" yaml:"grading_summary,omitempty"`
}

// SourceText returns the document's source text, preferring Content,
// then Text, then Body. Empty if none are set.
func (d *Document) SourceText() string {
	if d.Content != "" {
		return d.Content
	}
	if d.Text != "" {
		return d.Text
	}
	return d.Body
}

// QAPair is one generated question/answer pair, annotated with grading
// results once the pipeline has seen it.
type QAPair struct {
	Question string   `json:"question" yaml:"question"`
	Answer   string   `json:"answer" yaml:"answer"`
	Grading  *Grading `json:"grading,omitempty" yaml:"grading,omitempty"`
}

// Grading is the per-pair verification outcome. Confidence and
// IsGrounded are pointers so an ungraded pair is distinguishable from
// a zero-confidence one.
type Grading struct {
	Confidence *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"`
	IsGrounded *bool    `json:"is_grounded,omitempty" yaml:"is_grounded,omitempty"`
	Method     string   `json:"method,omitempty" yaml:"method,omitempty"`
	Issues     []string `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// GradingSummary is the document-level rollup written after all pairs
// are graded.
type GradingSummary struct {
	OverallConfidence *float64 `json:"overall_confidence,omitempty" yaml:"overall_confidence,omitempty"`
	OverallGrade      string   `json:"overall_grade,omitempty" yaml:"overall_grade,omitempty"`
	Method            string   `json:"method,omitempty" yaml:"method,omitempty"`
	JudgeModel        string   `json:"judge_model,omitempty" yaml:"judge_model,omitempty"`
	GradedPairs       int      `json:"graded_pairs,omitempty" yaml:"graded_pairs,omitempty"`
	FailedPairs       int      `json:"failed_pairs,omitempty" yaml:"failed_pairs,omitempty"`
}

// Confidence returns the pair's graded confidence and whether it has
// one.
func (p *QAPair) Confidence() (float64, bool) {
	if p.Grading == nil || p.Grading.Confidence == nil {
		return 0, false
	}
	return *p.Grading.Confidence, true
}

// Grounded reports whether the pair was graded and judged grounded.
func (p *QAPair) Grounded() (bool, bool) {
	if p.Grading == nil || p.Grading.IsGrounded == nil {
		return false, false
	}
	return *p.Grading.IsGrounded, true
}
