// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package quality

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/qaguard/services/grader/record"
)

func fptr(f float64) *float64 { return &f }
func bptr(b bool) *bool       { return &b }

// gradedPair builds a pair with a long-enough answer so only the
// given confidence and grounding drive its status.
func gradedPair(confidence float64, grounded bool) record.QAPair {
	return record.QAPair{
		Question: "What happened during the operation?",
		Answer:   strings.Repeat("The answer describes the events in detail. ", 3),
		Grading: &record.Grading{
			Confidence: fptr(confidence),
			IsGrounded: bptr(grounded),
		},
	}
}

func TestEvaluate_MixedConfidences(t *testing.T) {
	e := NewEvaluator(DefaultThresholds(), nil)

	doc := &record.Document{
		DocumentID: "doc-1",
		QAPairs: []record.QAPair{
			gradedPair(0.9, true),
			gradedPair(0.6, true),
			gradedPair(0.4, true),
		},
	}
	report := e.Evaluate(doc)

	assert.Equal(t, BandNeedsAttention, report.QualityBand)
	require.NotNil(t, report.OverallConfidence)
	assert.InDelta(t, 0.633, *report.OverallConfidence, 0.001)
	assert.Equal(t, 3, report.NumQuestions)
	assert.NotEmpty(t, report.ReportID)

	assert.Equal(t, StatusOK, report.PairDetails[0].Status)
	assert.Equal(t, StatusWarn, report.PairDetails[1].Status)
	assert.Equal(t, StatusWarn, report.PairDetails[2].Status)
}

func TestEvaluate_HighConfidenceBelowStrictReviewBar(t *testing.T) {
	thresholds := DefaultThresholds()
	thresholds.ReviewConfidence = 0.95
	e := NewEvaluator(thresholds, nil)

	doc := &record.Document{
		DocumentID: "doc-2",
		QAPairs: []record.QAPair{
			gradedPair(0.7, true),
			gradedPair(0.72, true),
			gradedPair(0.74, true),
		},
	}
	report := e.Evaluate(doc)

	assert.Equal(t, BandReview, report.QualityBand)
	require.NotNil(t, report.OverallConfidence)
	assert.InDelta(t, 0.72, *report.OverallConfidence, 0.001)
	assert.Empty(t, report.Warnings)
}

func TestEvaluate_NoPairs(t *testing.T) {
	e := NewEvaluator(DefaultThresholds(), nil)

	report := e.Evaluate(&record.Document{DocumentID: "doc-3"})

	assert.Equal(t, BandNeedsAttention, report.QualityBand)
	assert.Nil(t, report.OverallConfidence)
	assert.Contains(t, report.Warnings, "No Q&A pairs available")
	assert.Contains(t, report.Warnings[0], "Only 0 question(s)")
}

func TestEvaluate_ExcellentDocument(t *testing.T) {
	e := NewEvaluator(DefaultThresholds(), nil)

	doc := &record.Document{
		DocumentID: "doc-4",
		QAPairs: []record.QAPair{
			gradedPair(0.9, true),
			gradedPair(0.85, true),
			gradedPair(0.95, true),
		},
	}
	report := e.Evaluate(doc)

	assert.Equal(t, BandExcellent, report.QualityBand)
	assert.Empty(t, report.Warnings)
}

func TestEvaluate_PairStatuses(t *testing.T) {
	e := NewEvaluator(DefaultThresholds(), nil)

	t.Run("missing grading warns", func(t *testing.T) {
		doc := &record.Document{QAPairs: []record.QAPair{{
			Question: "Q",
			Answer:   strings.Repeat("long answer text ", 5),
		}}}
		report := e.Evaluate(doc)
		assert.Equal(t, StatusWarn, report.PairDetails[0].Status)
		assert.Contains(t, report.PairDetails[0].Notes, "missing confidence")
	})

	t.Run("ungrounded pair fails even with high confidence", func(t *testing.T) {
		doc := &record.Document{QAPairs: []record.QAPair{
			gradedPair(0.9, false),
		}}
		report := e.Evaluate(doc)
		assert.Equal(t, StatusFail, report.PairDetails[0].Status)
		assert.Contains(t, report.PairDetails[0].Notes, "grading flagged as ungrounded")
	})

	t.Run("short answer warns", func(t *testing.T) {
		doc := &record.Document{QAPairs: []record.QAPair{{
			Question: "Q",
			Answer:   "Too short.",
			Grading:  &record.Grading{Confidence: fptr(0.9), IsGrounded: bptr(true)},
		}}}
		report := e.Evaluate(doc)
		assert.Equal(t, StatusWarn, report.PairDetails[0].Status)
		assert.Contains(t, report.PairDetails[0].Notes, "answer very short")
	})

	t.Run("short answer does not downgrade a fail", func(t *testing.T) {
		doc := &record.Document{QAPairs: []record.QAPair{{
			Question: "Q",
			Answer:   "Short.",
			Grading:  &record.Grading{Confidence: fptr(0.9), IsGrounded: bptr(false)},
		}}}
		report := e.Evaluate(doc)
		assert.Equal(t, StatusFail, report.PairDetails[0].Status)
	})
}

func TestEvaluate_StaleSummaryRecomputed(t *testing.T) {
	e := NewEvaluator(DefaultThresholds(), nil)

	// The stored summary claims 0.95, but a degraded pair forces the
	// overall confidence back to the per-pair mean.
	doc := &record.Document{
		DocumentID:     "doc-5",
		GradingSummary: &record.GradingSummary{OverallConfidence: fptr(0.95)},
		QAPairs: []record.QAPair{
			gradedPair(0.9, true),
			gradedPair(0.3, true),
			gradedPair(0.9, true),
		},
	}
	report := e.Evaluate(doc)

	require.NotNil(t, report.OverallConfidence)
	assert.InDelta(t, 0.7, *report.OverallConfidence, 0.001)
}

func TestEvaluate_SummaryUsedWhenCleanPairs(t *testing.T) {
	e := NewEvaluator(DefaultThresholds(), nil)

	doc := &record.Document{
		DocumentID:     "doc-6",
		GradingSummary: &record.GradingSummary{OverallConfidence: fptr(0.88)},
		QAPairs: []record.QAPair{
			gradedPair(0.8, true),
			gradedPair(0.9, true),
			gradedPair(0.95, true),
		},
	}
	report := e.Evaluate(doc)

	require.NotNil(t, report.OverallConfidence)
	assert.Equal(t, 0.88, *report.OverallConfidence)
}

func TestEvaluate_UnknownDocumentID(t *testing.T) {
	e := NewEvaluator(DefaultThresholds(), nil)
	report := e.Evaluate(&record.Document{QAPairs: []record.QAPair{gradedPair(0.9, true)}})
	assert.Equal(t, "unknown", report.DocumentID)
}

func TestSummarize(t *testing.T) {
	reports := []*Report{
		{QualityBand: BandExcellent},
		{QualityBand: BandExcellent},
		{QualityBand: BandReview},
		{QualityBand: BandNeedsAttention},
		{},
	}
	summary := Summarize(reports)

	assert.Equal(t, 5, summary.TotalDocuments)
	assert.Equal(t, 2, summary.QualityBreakdown[BandExcellent])
	assert.Equal(t, 2, summary.QualityBreakdown[BandReview])
	assert.Equal(t, 1, summary.QualityBreakdown[BandNeedsAttention])
}

func TestThresholds_Resolve(t *testing.T) {
	base := DefaultThresholds()

	resolved := base.Resolve(nil)
	assert.Equal(t, base, resolved)

	minQ := 5
	review := 0.9
	resolved = base.Resolve(&Overrides{MinQuestions: &minQ, ReviewConfidence: &review})
	assert.Equal(t, 5, resolved.MinQuestions)
	assert.Equal(t, 0.9, resolved.ReviewConfidence)
	assert.Equal(t, base.LowConfidence, resolved.LowConfidence)
}
