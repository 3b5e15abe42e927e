// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newFakeService(t *testing.T, dim int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "model": "test"})
	})
	mux.HandleFunc("/embed", func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		vectors := make([][]float32, len(req.Texts))
		for i := range req.Texts {
			v := make([]float32, dim)
			for j := range v {
				v[j] = float32(len(req.Texts[i])%7) + float32(j)
			}
			vectors[i] = v
		}
		json.NewEncoder(w).Encode(embedResponse{Model: req.Model, Vectors: vectors, Dim: dim})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Embed(t *testing.T) {
	srv := newFakeService(t, 4)
	client := NewClient(ClientConfig{BaseURL: srv.URL, Model: "all-MiniLM-L6-v2"})

	vectors, err := client.Embed(context.Background(), []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vectors))
	}
	if len(vectors[0]) != 4 {
		t.Errorf("expected dim 4, got %d", len(vectors[0]))
	}
}

func TestClient_Embed_EmptyInput(t *testing.T) {
	srv := newFakeService(t, 4)
	client := NewClient(ClientConfig{BaseURL: srv.URL})

	_, err := client.Embed(context.Background(), nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestClient_Embed_ServiceDown(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})

	_, err := client.Embed(context.Background(), []string{"text"})
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestClient_Health(t *testing.T) {
	srv := newFakeService(t, 4)
	client := NewClient(ClientConfig{BaseURL: srv.URL})

	if err := client.Health(context.Background()); err != nil {
		t.Errorf("unexpected health error: %v", err)
	}
}

func TestClient_Health_Down(t *testing.T) {
	client := NewClient(ClientConfig{BaseURL: "http://127.0.0.1:1"})
	if err := client.Health(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Run("identical vectors", func(t *testing.T) {
		v := []float32{1, 2, 3}
		if sim := CosineSimilarity(v, v); math.Abs(sim-1.0) > 1e-9 {
			t.Errorf("expected 1.0, got %f", sim)
		}
	})

	t.Run("orthogonal vectors", func(t *testing.T) {
		if sim := CosineSimilarity([]float32{1, 0}, []float32{0, 1}); math.Abs(sim) > 1e-9 {
			t.Errorf("expected 0.0, got %f", sim)
		}
	})

	t.Run("opposite vectors", func(t *testing.T) {
		if sim := CosineSimilarity([]float32{1, 1}, []float32{-1, -1}); math.Abs(sim+1.0) > 1e-9 {
			t.Errorf("expected -1.0, got %f", sim)
		}
	})

	t.Run("mismatched lengths", func(t *testing.T) {
		if sim := CosineSimilarity([]float32{1}, []float32{1, 2}); sim != 0.0 {
			t.Errorf("expected 0.0, got %f", sim)
		}
	})

	t.Run("zero vector", func(t *testing.T) {
		if sim := CosineSimilarity([]float32{0, 0}, []float32{1, 2}); sim != 0.0 {
			t.Errorf("expected 0.0, got %f", sim)
		}
	})
}

func TestRegistry_CachesClients(t *testing.T) {
	dials := 0
	reg := NewRegistry(func(model string) (Embedder, error) {
		dials++
		return NewClient(ClientConfig{BaseURL: "http://unused", Model: model}), nil
	})

	if _, err := reg.Get("minilm"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := reg.Get("minilm"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dials != 1 {
		t.Errorf("expected 1 dial, got %d", dials)
	}

	if _, err := reg.Get("bge"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dials != 2 {
		t.Errorf("expected 2 dials, got %d", dials)
	}
}

func TestRegistry_DialFailureNotCached(t *testing.T) {
	dials := 0
	reg := NewRegistry(func(model string) (Embedder, error) {
		dials++
		if dials == 1 {
			return nil, ErrUnavailable
		}
		return NewClient(ClientConfig{Model: model}), nil
	})

	if _, err := reg.Get("minilm"); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := reg.Get("minilm"); err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
}
