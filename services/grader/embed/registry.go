// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embed

import (
	"context"
	"sync"
)

// Registry caches one Embedder per model name for the lifetime of the
// process. Loading a sentence-transformer model is the expensive part
// of an embedding call, so the first request for a model performs a
// health check against the service and later requests reuse the cached
// client.
//
// The cache is mutex-guarded: verification calls may run concurrently
// in batch grading.
type Registry struct {
	mu      sync.Mutex
	clients map[string]Embedder
	dial    func(model string) (Embedder, error)
}

// NewRegistry creates a registry that builds clients with dial on first
// use of each model name.
func NewRegistry(dial func(model string) (Embedder, error)) *Registry {
	return &Registry{
		clients: make(map[string]Embedder),
		dial:    dial,
	}
}

// NewServiceRegistry creates a registry whose clients all talk to the
// embedding service described by cfg, varying only the model name.
// Each new model is health-checked once before being cached.
func NewServiceRegistry(cfg ClientConfig) *Registry {
	return NewRegistry(func(model string) (Embedder, error) {
		c := cfg
		c.Model = model
		client := NewClient(c)

		ctx, cancel := context.WithTimeout(context.Background(), client.cfg.Timeout)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			return nil, err
		}
		return client, nil
	})
}

// Get returns the cached Embedder for model, dialing it on first use.
// A dial failure is not cached; the next Get retries.
func (r *Registry) Get(model string) (Embedder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.clients[model]; ok {
		return e, nil
	}

	e, err := r.dial(model)
	if err != nil {
		return nil, err
	}
	r.clients[model] = e
	return e, nil
}

// Put stores an Embedder under model, replacing any cached client.
// Useful for injecting deterministic embedders in tests.
func (r *Registry) Put(model string, e Embedder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[model] = e
}
