// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grounding

import (
	"context"
	"strings"
	"testing"
)

// The aggregation case that motivates the hybrid strategy: "two men
// were arrested" is supported by counting across sentences, but no
// single document chunk is lexically or semantically close to it.
const aggregatedAnswer = "Two men were taken into custody during the raid."

func TestVerifyHybrid(t *testing.T) {
	t.Run("all semantic pass skips the judge", func(t *testing.T) {
		embedder := &stubEmbedder{markers: []string{"arrested", "vehicles"}}
		gen := &stubGenerator{reply: `{"verdict": "NOT_SUPPORTED", "confidence": 0.1}`}
		v := newTestVerifier(t, embedder, gen)

		res, err := v.Verify(context.Background(), Request{
			Answer:   "John Smith was arrested on Tuesday.",
			Document: arrestDoc,
			Method:   MethodHybrid,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Method != "hybrid (semantic only — all passed)" {
			t.Errorf("unexpected method tag: %q", res.Method)
		}
		if !res.IsGrounded {
			t.Errorf("expected grounded, got %+v", res)
		}
		if gen.calls != 0 {
			t.Errorf("expected no judge call, got %d", gen.calls)
		}
	})

	t.Run("judge overrides semantic flags", func(t *testing.T) {
		embedder := &stubEmbedder{markers: []string{"arrested", "vehicles"}}
		gen := &stubGenerator{reply: `{"verdict": "SUPPORTED", "confidence": 0.9, "reason": "correct count"}`}
		v := newTestVerifier(t, embedder, gen)

		res, err := v.Verify(context.Background(), Request{
			Answer:   aggregatedAnswer,
			Document: arrestDoc,
			Method:   MethodHybrid,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Method != "hybrid (semantic + LLM override)" {
			t.Errorf("unexpected method tag: %q", res.Method)
		}
		if !res.IsGrounded || res.Confidence != 0.9 {
			t.Errorf("expected override to grounded 0.9, got %+v", res)
		}
		if res.UngroundedCount != 0 || len(res.Issues) != 0 {
			t.Errorf("expected clean result after override, got %+v", res)
		}
		if len(res.OverriddenSentences) != 1 {
			t.Errorf("expected the overridden sentence recorded, got %v", res.OverriddenSentences)
		}
	})

	t.Run("judge confirms semantic flags", func(t *testing.T) {
		embedder := &stubEmbedder{markers: []string{"arrested", "vehicles"}}
		gen := &stubGenerator{reply: `{"verdict": "NOT_SUPPORTED", "confidence": 0.2, "reason": "no spaceship in document"}`}
		v := newTestVerifier(t, embedder, gen)

		res, err := v.Verify(context.Background(), Request{
			Answer:   "John Smith was arrested on Tuesday. A spaceship hovered over the station.",
			Document: arrestDoc,
			Method:   MethodHybrid,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Method != "hybrid (semantic + LLM confirmed)" {
			t.Errorf("unexpected method tag: %q", res.Method)
		}
		if res.IsGrounded {
			t.Error("expected not grounded")
		}
		// Lower of semantic 0.5 and judge 0.2.
		if res.Confidence != 0.2 {
			t.Errorf("expected combined confidence 0.2, got %v", res.Confidence)
		}
		found := false
		for _, issue := range res.Issues {
			if strings.Contains(issue, "LLM confirms: no spaceship in document") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected judge reason appended to issues, got %v", res.Issues)
		}
	})

	t.Run("judge unavailable keeps semantic result", func(t *testing.T) {
		embedder := &stubEmbedder{markers: []string{"arrested", "vehicles"}}
		v := newTestVerifier(t, embedder, nil)

		res, err := v.Verify(context.Background(), Request{
			Answer:   aggregatedAnswer,
			Document: arrestDoc,
			Method:   MethodHybrid,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Method != "hybrid (LLM unavailable — semantic only)" {
			t.Errorf("unexpected method tag: %q", res.Method)
		}
		if res.IsGrounded {
			t.Error("expected semantic's not-grounded verdict to stand")
		}
		found := false
		for _, issue := range res.Issues {
			if strings.Contains(issue, "LLM fallback failed") {
				found = true
			}
		}
		if !found {
			t.Errorf("expected fallback issue, got %v", res.Issues)
		}
	})

	t.Run("neutral judge verdict keeps semantic partition", func(t *testing.T) {
		embedder := &stubEmbedder{markers: []string{"arrested", "vehicles"}}
		gen := &stubGenerator{reply: "completely malformed reply"}
		v := newTestVerifier(t, embedder, gen)

		res, err := v.Verify(context.Background(), Request{
			Answer:   aggregatedAnswer,
			Document: arrestDoc,
			Method:   MethodHybrid,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Method != "hybrid (semantic + LLM confirmed)" {
			t.Errorf("unexpected method tag: %q", res.Method)
		}
		// Lower of semantic 0.0 and neutral 0.5.
		if res.Confidence != 0.0 {
			t.Errorf("expected combined confidence 0.0, got %v", res.Confidence)
		}
	})
}
