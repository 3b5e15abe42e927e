// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grounding

import (
	"fmt"
	"math"
	"strings"

	"github.com/AleutianAI/qaguard/services/grader/textseg"
)

// verifyKeyword classifies each answer sentence by whether any of its
// key phrases appears verbatim in the document.
//
// A sentence with no extractable key phrases counts as grounded; there
// is nothing to check. Sentences that admit the information is absent
// from the document are grounded by definition, and generic
// meta-statements are auto-granted.
func (v *Verifier) verifyKeyword(req Request) *Result {
	var (
		issues     []string
		grounded   []string
		ungrounded []string
	)

	answerLower := strings.ToLower(req.Answer)
	docLower := strings.ToLower(req.Document)

	for _, sentence := range textseg.Segment(req.Answer) {
		sentenceLower := strings.ToLower(sentence)

		if v.admitsAbsence(sentenceLower) {
			grounded = append(grounded, sentence)
			continue
		}

		keyPhrases := textseg.KeyPhrases(sentence, textseg.DefaultMinPhraseLength)
		foundPhrases := 0
		for _, phrase := range keyPhrases {
			if len(phrase) > 3 && strings.Contains(docLower, strings.ToLower(phrase)) {
				foundPhrases++
			}
		}

		switch {
		case foundPhrases > 0 || len(keyPhrases) == 0:
			grounded = append(grounded, sentence)
		case v.isGenericStatement(sentence):
			grounded = append(grounded, sentence)
		default:
			ungrounded = append(ungrounded, sentence)
			issues = append(issues, fmt.Sprintf(
				"Potential hallucination: '%s...' - key phrases not found in document",
				truncate(sentence, 100),
			))
		}
	}

	total := len(grounded) + len(ungrounded)
	confidence := 0.0
	if total > 0 {
		confidence = float64(len(grounded)) / float64(total)
	}

	if v.admitsUncertainty(answerLower) {
		confidence = math.Min(confidence+0.2, 1.0)
	}

	return &Result{
		IsGrounded:          confidence >= v.cfg.ConfidenceThreshold && len(ungrounded) == 0,
		Confidence:          round3(confidence),
		Method:              string(MethodKeyword),
		Issues:              issues,
		GroundedSentences:   grounded,
		UngroundedSentences: ungrounded,
		TotalSentences:      total,
		GroundedCount:       len(grounded),
		UngroundedCount:     len(ungrounded),
	}
}
