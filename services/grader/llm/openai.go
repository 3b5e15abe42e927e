// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

// ErrEmptyResponse is returned when the backend answers with no choices
// or an empty completion.
var ErrEmptyResponse = errors.New("llm: backend returned an empty response")

const (
	// DefaultTimeout bounds a single generation round trip.
	DefaultTimeout = 120 * time.Second

	// DefaultRequestsPerSecond throttles judge traffic so batch grading
	// does not starve interactive users of a shared vLLM instance.
	DefaultRequestsPerSecond = 4
)

// OpenAIConfig describes an OpenAI-compatible chat completion endpoint.
// vLLM, llama.cpp server, and Ollama all expose this surface.
type OpenAIConfig struct {
	// BaseURL is the endpoint root, e.g. "http://localhost:8000/v1".
	BaseURL string

	// Model is the served model name passed on every request.
	Model string

	// APIKey is sent as a bearer token. Local servers usually accept
	// any non-empty value.
	APIKey string

	// Timeout bounds each request. Zero means DefaultTimeout.
	Timeout time.Duration

	// RequestsPerSecond caps outbound request rate. Zero means
	// DefaultRequestsPerSecond; negative disables throttling.
	RequestsPerSecond float64
}

// OpenAIClient implements TextGenerator against an OpenAI-compatible
// chat completion API.
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	limiter *rate.Limiter
}

// Compile-time interface check.
var _ TextGenerator = (*OpenAIClient)(nil)

// NewOpenAIClient creates a client for cfg. The API key defaults to
// "not-needed" because local inference servers require the header to be
// present but ignore its value.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = "not-needed"
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	rps := cfg.RequestsPerSecond
	if rps == 0 {
		rps = DefaultRequestsPerSecond
	}
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: timeout,
		limiter: limiter,
	}
}

// Model returns the served model name this client targets.
func (c *OpenAIClient) Model() string { return c.model }

// Generate sends prompt as a single user message and returns the
// completion text.
func (c *OpenAIClient) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("llm: rate limit wait: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Stop: params.Stop,
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llm: chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
