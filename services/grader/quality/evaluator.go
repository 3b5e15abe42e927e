// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package quality

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/AleutianAI/qaguard/pkg/logging"
	"github.com/AleutianAI/qaguard/services/grader/record"
)

// Quality bands, from best to worst.
const (
	BandExcellent      = "excellent"
	BandReview         = "review"
	BandNeedsAttention = "needs_attention"
)

// Pair statuses.
const (
	StatusOK   = "ok"
	StatusWarn = "warn"
	StatusFail = "fail"
)

// PairDetail is the evaluation of one QA pair.
type PairDetail struct {
	QuestionIndex int      `json:"question_index"`
	Question      string   `json:"question"`
	Status        string   `json:"status"`
	Confidence    *float64 `json:"confidence"`
	IsGrounded    *bool    `json:"is_grounded,omitempty"`
	AnswerLength  int      `json:"answer_length"`
	Notes         []string `json:"notes"`
}

// Report is the quality evaluation of one document.
type Report struct {
	ReportID          string       `json:"report_id"`
	DocumentID        string       `json:"document_id"`
	NumQuestions      int          `json:"num_questions"`
	OverallConfidence *float64     `json:"overall_confidence"`
	QualityBand       string       `json:"quality_band"`
	Warnings          []string     `json:"warnings"`
	PairDetails       []PairDetail `json:"pair_details"`
}

// Summary is the band breakdown across a batch of reports.
type Summary struct {
	TotalDocuments   int            `json:"total_documents"`
	QualityBreakdown map[string]int `json:"quality_breakdown"`
}

// Evaluator scores documents against a set of thresholds.
type Evaluator struct {
	thresholds Thresholds
	log        *logging.Logger
}

// NewEvaluator builds an Evaluator; log may be nil.
func NewEvaluator(thresholds Thresholds, log *logging.Logger) *Evaluator {
	if log == nil {
		log = logging.Discard()
	}
	return &Evaluator{thresholds: thresholds, log: log}
}

// evaluatePair scores one pair. Status escalates ok -> warn -> fail:
// confidence problems warn, an ungrounded flag fails, and a short
// answer warns only when nothing worse was already found.
func (e *Evaluator) evaluatePair(pair *record.QAPair, idx int) PairDetail {
	var (
		confidence *float64
		grounded   *bool
	)
	if c, ok := pair.Confidence(); ok {
		confidence = &c
	}
	if g, ok := pair.Grounded(); ok {
		grounded = &g
	}
	answerLen := len([]rune(strings.TrimSpace(pair.Answer)))

	notes := []string{}
	status := StatusOK

	if confidence == nil {
		notes = append(notes, "missing confidence")
		status = StatusWarn
	} else if *confidence < e.thresholds.LowConfidence {
		notes = append(notes, fmt.Sprintf("confidence %.2f below %.2f", *confidence, e.thresholds.LowConfidence))
		status = StatusWarn
	}

	if grounded != nil && !*grounded {
		notes = append(notes, "grading flagged as ungrounded")
		status = StatusFail
	}

	if answerLen < e.thresholds.ShortAnswerChars {
		notes = append(notes, "answer very short")
		if status == StatusOK {
			status = StatusWarn
		}
	}

	return PairDetail{
		QuestionIndex: idx,
		Question:      pair.Question,
		Status:        status,
		Confidence:    confidence,
		IsGrounded:    grounded,
		AnswerLength:  answerLen,
		Notes:         notes,
	}
}

// Evaluate scores one graded document.
//
// The overall confidence comes from the document's grading summary
// when present, except that any warn/fail pair forces a recompute as
// the mean of the per-pair confidences; a stale summary must not mask
// degraded pairs.
func (e *Evaluator) Evaluate(doc *record.Document) *Report {
	thresholds := e.thresholds

	details := make([]PairDetail, 0, len(doc.QAPairs))
	for i := range doc.QAPairs {
		details = append(details, e.evaluatePair(&doc.QAPairs[i], i+1))
	}

	var overallConf *float64
	if doc.GradingSummary != nil && doc.GradingSummary.OverallConfidence != nil {
		c := *doc.GradingSummary.OverallConfidence
		overallConf = &c
	}

	confidences := make([]float64, 0, len(details))
	for _, d := range details {
		if d.Confidence != nil {
			confidences = append(confidences, *d.Confidence)
		}
	}
	if overallConf == nil && len(confidences) > 0 {
		m := mean(confidences)
		overallConf = &m
	}

	warnings := []string{}
	if len(doc.QAPairs) < thresholds.MinQuestions {
		warnings = append(warnings, fmt.Sprintf(
			"Only %d question(s); expected ≥ %d", len(doc.QAPairs), thresholds.MinQuestions,
		))
	}

	flagged := 0
	for _, d := range details {
		if d.Status == StatusWarn || d.Status == StatusFail {
			flagged++
			if len(d.Notes) > 0 {
				warnings = append(warnings, fmt.Sprintf("Q%d: %s", d.QuestionIndex, strings.Join(d.Notes, ", ")))
			}
		}
	}

	if flagged > 0 && len(confidences) > 0 {
		m := mean(confidences)
		overallConf = &m
	}

	band := BandExcellent
	switch {
	case len(doc.QAPairs) == 0:
		band = BandNeedsAttention
		warnings = append(warnings, "No Q&A pairs available")
	case overallConf != nil && *overallConf < thresholds.AttentionConfidence:
		band = BandNeedsAttention
	case flagged > 0 && overallConf != nil && *overallConf < thresholds.ReviewConfidence:
		band = BandNeedsAttention
	case len(warnings) > 0 || (overallConf != nil && *overallConf < thresholds.ReviewConfidence):
		band = BandReview
	}

	docID := doc.DocumentID
	if docID == "" {
		docID = "unknown"
	}

	report := &Report{
		ReportID:          uuid.NewString(),
		DocumentID:        docID,
		NumQuestions:      len(doc.QAPairs),
		OverallConfidence: overallConf,
		QualityBand:       band,
		Warnings:          warnings,
		PairDetails:       details,
	}
	e.log.Debug("evaluated document quality",
		"document_id", docID,
		"band", band,
		"warnings", len(warnings),
	)
	return report
}

// Summarize counts reports per quality band. Reports without a band
// count as review.
func Summarize(reports []*Report) *Summary {
	totals := map[string]int{
		BandExcellent:      0,
		BandReview:         0,
		BandNeedsAttention: 0,
	}
	for _, r := range reports {
		band := r.QualityBand
		if band == "" {
			band = BandReview
		}
		totals[band]++
	}
	return &Summary{TotalDocuments: len(reports), QualityBreakdown: totals}
}

func mean(xs []float64) float64 {
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
