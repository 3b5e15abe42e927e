// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package pipeline grades batches of QA documents: every pair of every
// document is verified against its source text, and each document gets
// an overall confidence and a letter grade.
package pipeline

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/qaguard/pkg/logging"
	"github.com/AleutianAI/qaguard/services/grader/grounding"
	"github.com/AleutianAI/qaguard/services/grader/record"
)

// Verifier is the slice of the grounding verifier the pipeline needs.
type Verifier interface {
	Verify(ctx context.Context, req grounding.Request) (*grounding.Result, error)
}

// DefaultConcurrency bounds how many documents grade in parallel.
const DefaultConcurrency = 4

// Config tunes a Grader.
type Config struct {
	// Method is the grounding strategy for every pair.
	Method grounding.Method

	// JudgeModel is recorded in grading summaries when the method
	// involves the judge.
	JudgeModel string

	// Concurrency bounds parallel document grading. Zero means
	// DefaultConcurrency.
	Concurrency int
}

// BatchResult reports a grading run. Documents are annotated in place;
// Warnings captures per-pair failures that did not abort the batch.
type BatchResult struct {
	Documents   []*record.Document `json:"documents"`
	GradedPairs int                `json:"graded_pairs"`
	FailedPairs int                `json:"failed_pairs"`
	Warnings    []string           `json:"warnings,omitempty"`
}

// Grader grades documents with a shared verifier.
type Grader struct {
	cfg      Config
	verifier Verifier
	log      *logging.Logger
}

// NewGrader builds a Grader; log may be nil.
func NewGrader(cfg Config, verifier Verifier, log *logging.Logger) *Grader {
	if cfg.Method == "" {
		cfg.Method = grounding.MethodSemantic
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Grader{cfg: cfg, verifier: verifier, log: log}
}

// LetterGrade maps an overall confidence to a letter grade.
func LetterGrade(confidence float64) string {
	switch {
	case confidence >= 0.9:
		return "A"
	case confidence >= 0.8:
		return "B"
	case confidence >= 0.7:
		return "C"
	case confidence >= 0.6:
		return "D"
	default:
		return "F"
	}
}

// GradeDocuments verifies every QA pair of every document and writes
// grading annotations back onto the records. Documents grade in
// parallel up to the configured concurrency; a pair that fails to
// verify is recorded as a warning and skipped, never aborting the
// batch. The only returned error is context cancellation.
func (g *Grader) GradeDocuments(ctx context.Context, docs []*record.Document) (*BatchResult, error) {
	result := &BatchResult{Documents: docs}

	var mu sync.Mutex
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Concurrency)

	for _, doc := range docs {
		doc := doc
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			graded, failed, warnings := g.gradeDocument(ctx, doc)
			mu.Lock()
			result.GradedPairs += graded
			result.FailedPairs += failed
			result.Warnings = append(result.Warnings, warnings...)
			mu.Unlock()
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.log.Info("batch grading complete",
		"documents", len(docs),
		"graded_pairs", result.GradedPairs,
		"failed_pairs", result.FailedPairs,
	)
	return result, nil
}

// gradeDocument grades one document's pairs sequentially and fills in
// its grading summary.
func (g *Grader) gradeDocument(ctx context.Context, doc *record.Document) (graded, failed int, warnings []string) {
	content := doc.SourceText()
	docID := doc.DocumentID
	if docID == "" {
		docID = doc.Title
	}

	totalConfidence := 0.0

	for i := range doc.QAPairs {
		pair := &doc.QAPairs[i]
		res, err := g.verifier.Verify(ctx, grounding.Request{
			Answer:   pair.Answer,
			Document: content,
			Question: pair.Question,
			Method:   g.cfg.Method,
		})
		if err != nil {
			failed++
			warnings = append(warnings, fmt.Sprintf("document %q pair %d: %v", docID, i+1, err))
			g.log.Warn("pair failed to grade", "document_id", docID, "pair", i+1, "error", err)
			continue
		}

		confidence := res.Confidence
		isGrounded := res.IsGrounded
		pair.Grading = &record.Grading{
			Confidence: &confidence,
			IsGrounded: &isGrounded,
			Method:     res.Method,
			Issues:     res.Issues,
		}
		totalConfidence += confidence
		graded++
	}

	overall := 0.0
	if graded > 0 {
		overall = totalConfidence / float64(graded)
	}
	overall = math.Round(overall*1000) / 1000

	judgeModel := "N/A (semantic only)"
	if g.cfg.Method == grounding.MethodJudge || g.cfg.Method == grounding.MethodHybrid {
		judgeModel = g.cfg.JudgeModel
		if judgeModel == "" {
			judgeModel = "unknown"
		}
	}

	doc.GradingSummary = &record.GradingSummary{
		OverallConfidence: &overall,
		OverallGrade:      LetterGrade(overall),
		Method:            string(g.cfg.Method),
		JudgeModel:        judgeModel,
		GradedPairs:       graded,
		FailedPairs:       failed,
	}
	return graded, failed, warnings
}
