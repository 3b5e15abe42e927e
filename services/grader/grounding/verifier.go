// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package grounding verifies that generated answers are supported by
// their source documents.
//
// # Description
//
// Four strategies are available, trading cost for accuracy:
//
//   - keyword:  key-phrase substring matching (fast, free)
//   - semantic: sentence-level embedding similarity (fast, needs the
//     embedding service)
//   - judge:    LLM-as-judge via an OpenAI-compatible endpoint
//     (accurate, uses GPU)
//   - hybrid:   semantic first, judge fallback for flagged sentences
//     (best balance of speed and accuracy)
//
// Strategies degrade rather than fail when a backend is down: semantic
// falls back to keyword, hybrid falls back to its semantic pass. The
// Result.Method tag always names what actually ran.
package grounding

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/AleutianAI/qaguard/pkg/logging"
	"github.com/AleutianAI/qaguard/services/grader/embed"
	"github.com/AleutianAI/qaguard/services/grader/llm"
)

const (
	// DefaultSemanticThreshold is the minimum cosine similarity for a
	// sentence to count as grounded.
	DefaultSemanticThreshold = 0.5

	// DefaultConfidenceThreshold is the minimum confidence for an
	// answer to be considered grounded overall.
	DefaultConfidenceThreshold = 0.7

	// DefaultWindowSize is the largest sliding window of consecutive
	// document sentences compared against each answer sentence.
	DefaultWindowSize = 3

	// DefaultMaxDocChars caps the document text sent to the judge so
	// the prompt fits the model's context window.
	DefaultMaxDocChars = 6000
)

// defaultGenericPatterns match meta-statements about the document that
// carry no factual claims. These are auto-granted because penalising
// them would unfairly lower confidence.
var defaultGenericPatterns = []string{
	`^the document\b`,
	`^according to the (document|text|article|report)`,
	`^as (stated|mentioned|described|noted|indicated) in the (document|text|article)`,
	`^the document (states|mentions|describes|discusses|says|indicates|notes)`,
	`^based on the (document|text|article|information provided)`,
	`^this (is a|refers to|means|suggests that|indicates)`,
	`^it (refers to|means|should be noted|is (important|worth noting|clear|evident))`,
}

// defaultAdmissionPhrases mark sentences that explicitly say something
// is absent from the document. Admitting absence is grounded behavior.
var defaultAdmissionPhrases = []string{
	"not in the document",
	"not found in the document",
	"not mentioned in the document",
	"not stated in the document",
	"not provided in the document",
	"not explicitly stated",
	"not explicitly mentioned",
}

// defaultUncertaintyPhrases mark answers that admit uncertainty; such
// answers get a confidence boost since refusing to invent facts is the
// desired behavior.
var defaultUncertaintyPhrases = []string{
	"i don't know",
	"i cannot",
	"i'm not sure",
	"i cannot determine",
	"cannot be determined",
	"not enough information",
}

// Config tunes the verifier. Zero values take the package defaults.
type Config struct {
	SemanticThreshold   float64
	ConfidenceThreshold float64
	WindowSize          int
	MaxDocChars         int

	// GenericPatterns, AdmissionPhrases, and UncertaintyPhrases
	// override the built-in lists when non-nil.
	GenericPatterns    []string
	AdmissionPhrases   []string
	UncertaintyPhrases []string

	// Retry governs judge-call retries.
	Retry llm.RetryPolicy
}

// DefaultConfig returns the tuning used in production grading runs.
func DefaultConfig() Config {
	return Config{
		SemanticThreshold:   DefaultSemanticThreshold,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		WindowSize:          DefaultWindowSize,
		MaxDocChars:         DefaultMaxDocChars,
		Retry:               llm.DefaultRetryPolicy(),
	}
}

// Verifier runs grounding checks. Both backends are optional: a nil
// embedder degrades semantic to keyword, and a nil judge degrades
// hybrid to semantic-only (the judge method itself errors).
type Verifier struct {
	cfg      Config
	embedder embed.Embedder
	judge    llm.TextGenerator
	log      *logging.Logger

	genericRe []*regexp.Regexp
}

// NewVerifier builds a Verifier. It returns an error only when a
// configured generic pattern does not compile.
func NewVerifier(cfg Config, embedder embed.Embedder, judge llm.TextGenerator, log *logging.Logger) (*Verifier, error) {
	if cfg.SemanticThreshold == 0 {
		cfg.SemanticThreshold = DefaultSemanticThreshold
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.WindowSize == 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.MaxDocChars == 0 {
		cfg.MaxDocChars = DefaultMaxDocChars
	}
	if cfg.GenericPatterns == nil {
		cfg.GenericPatterns = defaultGenericPatterns
	}
	if cfg.AdmissionPhrases == nil {
		cfg.AdmissionPhrases = defaultAdmissionPhrases
	}
	if cfg.UncertaintyPhrases == nil {
		cfg.UncertaintyPhrases = defaultUncertaintyPhrases
	}
	if cfg.Retry.MaxAttempts == 0 {
		cfg.Retry = llm.DefaultRetryPolicy()
	}
	if log == nil {
		log = logging.Discard()
	}

	generic := make([]*regexp.Regexp, 0, len(cfg.GenericPatterns))
	for _, p := range cfg.GenericPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("grounding: bad generic pattern %q: %w", p, err)
		}
		generic = append(generic, re)
	}

	return &Verifier{
		cfg:       cfg,
		embedder:  embedder,
		judge:     judge,
		log:       log,
		genericRe: generic,
	}, nil
}

// Verify checks req.Answer against req.Document using the requested
// method. An empty method defaults to semantic.
func (v *Verifier) Verify(ctx context.Context, req Request) (*Result, error) {
	method := req.Method
	if method == "" {
		method = MethodSemantic
	}

	var (
		res *Result
		err error
	)
	switch method {
	case MethodKeyword, "both":
		res = v.verifyKeyword(req)
	case MethodSemantic:
		res = v.verifySemantic(ctx, req)
	case MethodJudge:
		res, err = v.verifyJudge(ctx, req)
	case MethodHybrid:
		res = v.verifyHybrid(ctx, req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if err != nil {
		return nil, err
	}

	observeVerification(res)
	v.log.Debug("grounding check complete",
		"method", res.Method,
		"is_grounded", res.IsGrounded,
		"confidence", res.Confidence,
		"ungrounded", res.UngroundedCount,
	)
	return res, nil
}

// isGenericStatement reports whether the sentence is a meta-statement
// about the document rather than a factual claim.
func (v *Verifier) isGenericStatement(sentence string) bool {
	s := strings.ToLower(strings.TrimSpace(sentence))
	for _, re := range v.genericRe {
		if loc := re.FindStringIndex(s); loc != nil && loc[0] == 0 {
			return true
		}
	}
	return false
}

// admitsUncertainty reports whether the whole answer contains an
// uncertainty phrase.
func (v *Verifier) admitsUncertainty(answerLower string) bool {
	for _, p := range v.cfg.UncertaintyPhrases {
		if strings.Contains(answerLower, p) {
			return true
		}
	}
	return false
}

// admitsAbsence reports whether the sentence explicitly states the
// information is missing from the document.
func (v *Verifier) admitsAbsence(sentenceLower string) bool {
	for _, p := range v.cfg.AdmissionPhrases {
		if strings.Contains(sentenceLower, p) {
			return true
		}
	}
	return false
}

// round3 rounds to three decimals, matching how confidences are
// reported everywhere in the pipeline.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
