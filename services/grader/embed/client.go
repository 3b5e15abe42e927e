// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultTimeout is the default timeout for embedding requests.
const DefaultTimeout = 30 * time.Second

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the address of the embedding service,
	// e.g. "http://localhost:8100".
	BaseURL string

	// Model is the model name sent with every request,
	// e.g. "all-MiniLM-L6-v2".
	Model string

	// LocalPath, when set, asks the service to load the model from a
	// local directory instead of downloading it. Used with Offline.
	LocalPath string

	// Offline asks the service to never reach the network for model
	// weights.
	Offline bool

	// Timeout bounds each HTTP request. Default: DefaultTimeout.
	Timeout time.Duration
}

// Client calls the embedding service over HTTP.
//
// # Description
//
// Client provides a Go interface to the embedding sidecar, which runs a
// sentence-transformer model and returns dense vectors. Texts are
// batched into a single request.
//
// # Thread Safety
//
// Client is safe for concurrent use.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
}

// NewClient creates a client for the embedding service at cfg.BaseURL.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// embedRequest is the request body for the /embed endpoint.
type embedRequest struct {
	Texts     []string `json:"texts"`
	Model     string   `json:"model,omitempty"`
	LocalPath string   `json:"local_path,omitempty"`
	Offline   bool     `json:"offline,omitempty"`
}

// embedResponse is the response from the /embed endpoint.
type embedResponse struct {
	Model   string      `json:"model"`
	Vectors [][]float32 `json:"vectors"`
	Dim     int         `json:"dim"`
}

// healthResponse is the response from the /health endpoint.
type healthResponse struct {
	Status string `json:"status"`
	Model  string `json:"model"`
}

// Embed computes one vector per input text in a single batched call.
//
// Returns ErrUnavailable (wrapped) on transport failures so callers can
// distinguish a missing service from a bad request.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if ctx == nil {
		return nil, ErrInvalidInput
	}
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: texts is empty", ErrInvalidInput)
	}

	body, err := json.Marshal(embedRequest{
		Texts:     texts,
		Model:     c.cfg.Model,
		LocalPath: c.cfg.LocalPath,
		Offline:   c.cfg.Offline,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(b))
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(er.Vectors) != len(texts) {
		return nil, fmt.Errorf("embedding service returned %d vectors for %d texts", len(er.Vectors), len(texts))
	}

	return er.Vectors, nil
}

// Health verifies the service is up and its model is loaded.
func (c *Client) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrInvalidInput
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(b))
	}

	var h healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if h.Status != "ok" {
		return fmt.Errorf("%w: service not ready: %s", ErrUnavailable, h.Status)
	}

	return nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

var _ Embedder = (*Client)(nil)
