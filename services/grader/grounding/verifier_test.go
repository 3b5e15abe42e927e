// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package grounding

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/qaguard/services/grader/llm"
)

// stubEmbedder assigns axis-aligned vectors: texts containing any of
// the marker substrings get [1,0], everything else [0,1]. Document
// chunks built from marker text therefore score similarity 1.0 against
// marker answer sentences and 0.0 against the rest.
type stubEmbedder struct {
	markers []string
	err     error
}

func (s *stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = []float32{0, 1}
		for _, m := range s.markers {
			if strings.Contains(strings.ToLower(text), strings.ToLower(m)) {
				vectors[i] = []float32{1, 0}
				break
			}
		}
	}
	return vectors, nil
}

// stubGenerator replays canned replies, optionally failing the first
// failUntil calls.
type stubGenerator struct {
	reply     string
	err       error
	failUntil int
	calls     int
}

func (s *stubGenerator) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	s.calls++
	if s.err != nil && s.calls <= s.failUntil {
		return "", s.err
	}
	if s.err != nil && s.failUntil == 0 {
		return "", s.err
	}
	return s.reply, nil
}

func newTestVerifier(t *testing.T, embedder *stubEmbedder, judge llm.TextGenerator) *Verifier {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Retry = llm.RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond}

	// A typed nil pointer would make the interface non-nil inside the
	// verifier, so branch on the concrete value here.
	var v *Verifier
	var err error
	if embedder == nil {
		v, err = NewVerifier(cfg, nil, judge, nil)
	} else {
		v, err = NewVerifier(cfg, embedder, judge, nil)
	}
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	return v
}

const arrestDoc = `John Smith was arrested on Tuesday. Peter Jones was arrested the same day.
The police confiscated three vehicles during the operation.`

func TestVerifyKeyword(t *testing.T) {
	v := newTestVerifier(t, nil, nil)

	t.Run("grounded answer", func(t *testing.T) {
		res, err := v.Verify(context.Background(), Request{
			Answer:   "John Smith was arrested on Tuesday.",
			Document: arrestDoc,
			Method:   MethodKeyword,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsGrounded {
			t.Errorf("expected grounded, got %+v", res)
		}
		if res.Confidence != 1.0 {
			t.Errorf("expected confidence 1.0, got %v", res.Confidence)
		}
	})

	t.Run("fabricated sentence lowers confidence to half", func(t *testing.T) {
		res, err := v.Verify(context.Background(), Request{
			Answer:   "John Smith was arrested on Tuesday. Aliens landed near the warehouse downtown.",
			Document: arrestDoc,
			Method:   MethodKeyword,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.IsGrounded {
			t.Error("expected not grounded")
		}
		if res.Confidence != 0.5 {
			t.Errorf("expected confidence 0.5, got %v", res.Confidence)
		}
		if res.UngroundedCount != 1 || len(res.Issues) != 1 {
			t.Errorf("expected 1 ungrounded sentence with 1 issue, got %+v", res)
		}
	})

	t.Run("uncertainty admission boosts confidence", func(t *testing.T) {
		res, err := v.Verify(context.Background(), Request{
			Answer:   "Honestly the aliens invaded downtown yesterday but I don't know anything more.",
			Document: arrestDoc,
			Method:   MethodKeyword,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Confidence != 0.2 {
			t.Errorf("expected boosted confidence 0.2, got %v", res.Confidence)
		}
	})

	t.Run("absence admission is grounded", func(t *testing.T) {
		res, err := v.Verify(context.Background(), Request{
			Answer:   "The suspect's age is not mentioned in the document.",
			Document: arrestDoc,
			Method:   MethodKeyword,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsGrounded || res.GroundedCount != 1 {
			t.Errorf("expected the admission sentence grounded, got %+v", res)
		}
	})

	t.Run("generic meta statement is grounded", func(t *testing.T) {
		res, err := v.Verify(context.Background(), Request{
			Answer:   "The document describes several unrelated arrest incidents overall.",
			Document: "Completely different subject matter about cooking recipes and baking pastries.",
			Method:   MethodKeyword,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsGrounded {
			t.Errorf("expected generic statement auto-granted, got %+v", res)
		}
	})

	t.Run("empty answer", func(t *testing.T) {
		res, err := v.Verify(context.Background(), Request{
			Answer:   "",
			Document: arrestDoc,
			Method:   MethodKeyword,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.IsGrounded || res.Confidence != 0.0 || res.TotalSentences != 0 {
			t.Errorf("expected empty result, got %+v", res)
		}
	})
}

func TestVerify_UnknownMethod(t *testing.T) {
	v := newTestVerifier(t, nil, nil)
	_, err := v.Verify(context.Background(), Request{
		Answer:   "anything",
		Document: arrestDoc,
		Method:   "quantum",
	})
	if !errors.Is(err, ErrUnknownMethod) {
		t.Errorf("expected ErrUnknownMethod, got %v", err)
	}
}

func TestVerifySemantic(t *testing.T) {
	t.Run("grounded and ungrounded partition", func(t *testing.T) {
		embedder := &stubEmbedder{markers: []string{"arrested", "vehicles"}}
		v := newTestVerifier(t, embedder, nil)

		res, err := v.Verify(context.Background(), Request{
			Answer:   "John Smith was arrested on Tuesday. Aliens landed near the warehouse downtown.",
			Document: arrestDoc,
			Method:   MethodSemantic,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Method != "semantic" {
			t.Errorf("expected method semantic, got %q", res.Method)
		}
		if res.GroundedCount != 1 || res.UngroundedCount != 1 {
			t.Errorf("expected 1/1 partition, got %+v", res)
		}
		if res.IsGrounded {
			t.Error("expected not grounded with an ungrounded sentence")
		}
		if res.Confidence != 0.5 {
			t.Errorf("expected confidence 0.5, got %v", res.Confidence)
		}
	})

	t.Run("all grounded", func(t *testing.T) {
		embedder := &stubEmbedder{markers: []string{"arrested", "vehicles", "john", "peter"}}
		v := newTestVerifier(t, embedder, nil)

		res, err := v.Verify(context.Background(), Request{
			Answer:   "John Smith was arrested on Tuesday. Peter Jones was arrested the same day.",
			Document: arrestDoc,
			Method:   MethodSemantic,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.IsGrounded || res.Confidence != 1.0 {
			t.Errorf("expected fully grounded, got %+v", res)
		}
	})

	t.Run("nil embedder falls back to keyword", func(t *testing.T) {
		v := newTestVerifier(t, nil, nil)

		res, err := v.Verify(context.Background(), Request{
			Answer:   "John Smith was arrested on Tuesday.",
			Document: arrestDoc,
			Method:   MethodSemantic,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Method != "keyword (semantic unavailable)" {
			t.Errorf("expected fallback method tag, got %q", res.Method)
		}
		if res.Note == "" {
			t.Error("expected a note explaining the fallback")
		}
	})

	t.Run("embed failure falls back to keyword", func(t *testing.T) {
		embedder := &stubEmbedder{err: errors.New("connection refused")}
		v := newTestVerifier(t, embedder, nil)

		res, err := v.Verify(context.Background(), Request{
			Answer:   "John Smith was arrested on Tuesday.",
			Document: arrestDoc,
			Method:   MethodSemantic,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Method != "keyword (semantic unavailable)" {
			t.Errorf("expected fallback method tag, got %q", res.Method)
		}
		if !strings.Contains(res.Note, "connection refused") {
			t.Errorf("expected note to carry the embed error, got %q", res.Note)
		}
	})

	t.Run("empty answer", func(t *testing.T) {
		embedder := &stubEmbedder{}
		v := newTestVerifier(t, embedder, nil)

		res, err := v.Verify(context.Background(), Request{
			Answer:   "   ",
			Document: arrestDoc,
			Method:   MethodSemantic,
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.IsGrounded || res.Confidence != 0.0 {
			t.Errorf("expected empty-answer result, got %+v", res)
		}
		if len(res.Issues) != 1 || res.Issues[0] != "Answer is empty" {
			t.Errorf("expected empty-answer issue, got %v", res.Issues)
		}
	})
}
