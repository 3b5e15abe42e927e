// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package config loads the grading pipeline configuration from YAML,
// applies environment-variable overrides, and validates the result.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/qaguard/services/grader/quality"
)

// Environment variables recognized at load time. The judge variables
// override the judge section so docker-compose can point grading at a
// different judge without editing config files.
const (
	EnvJudgeBaseURL = "QAGUARD_JUDGE_BASE_URL"
	EnvJudgeModel   = "QAGUARD_JUDGE_MODEL"
	EnvJudgeAPIKey  = "QAGUARD_JUDGE_API_KEY"
	EnvOffline      = "QAGUARD_OFFLINE"
	EnvMaxDocChars  = "QAGUARD_MAX_DOC_CHARS"
)

// LLMSection describes one OpenAI-compatible endpoint.
type LLMSection struct {
	BaseURL        string  `yaml:"base_url" validate:"omitempty,url"`
	Model          string  `yaml:"model"`
	APIKey         string  `yaml:"api_key"`
	TimeoutSeconds int     `yaml:"timeout" validate:"gte=0"`
	MaxRetries     int     `yaml:"max_retries" validate:"gte=0"`
	RetryDelaySecs float64 `yaml:"retry_delay" validate:"gte=0"`
}

// Timeout returns the section timeout as a duration.
func (s LLMSection) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RetryDelay returns the base retry delay as a duration.
func (s LLMSection) RetryDelay() time.Duration {
	return time.Duration(s.RetryDelaySecs * float64(time.Second))
}

// EmbeddingSection configures the sentence-embedding sidecar.
type EmbeddingSection struct {
	BaseURL        string `yaml:"base_url" validate:"omitempty,url"`
	Model          string `yaml:"model"`
	LocalPath      string `yaml:"local_path"`
	Offline        bool   `yaml:"offline"`
	TimeoutSeconds int    `yaml:"timeout" validate:"gte=0"`
}

// GroundingSection tunes the verifier.
type GroundingSection struct {
	Method              string  `yaml:"method" validate:"omitempty,oneof=keyword semantic judge hybrid"`
	SemanticThreshold   float64 `yaml:"semantic_threshold" validate:"gte=0,lte=1"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold" validate:"gte=0,lte=1"`
	WindowSize          int     `yaml:"window_size" validate:"gte=0,lte=10"`
	MaxDocChars         int     `yaml:"max_doc_chars" validate:"gte=0"`
}

// DedupeSection tunes the duplicate detector.
type DedupeSection struct {
	Method    string  `yaml:"method" validate:"omitempty,oneof=exact jaccard semantic both"`
	Threshold float64 `yaml:"threshold" validate:"gte=0,lte=1"`
}

// StoreSection configures report/question persistence.
type StoreSection struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"in_memory"`
}

// ServerSection configures serve mode.
type ServerSection struct {
	Addr string `yaml:"addr"`
}

// LoggingSection configures pkg/logging.
type LoggingSection struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
	Quiet bool   `yaml:"quiet"`
}

// PipelineSection tunes batch grading.
type PipelineSection struct {
	Concurrency int `yaml:"concurrency" validate:"gte=0,lte=64"`
}

// Config is the full pipeline configuration.
//
// The judge runs on a SEPARATE model from the answer generator to
// avoid self-evaluation bias; when the judge section is empty its
// fields fall back to the llm section and then to the defaults.
type Config struct {
	Logging   LoggingSection     `yaml:"logging"`
	LLM       LLMSection         `yaml:"llm"`
	Judge     LLMSection         `yaml:"judge"`
	Embedding EmbeddingSection   `yaml:"embedding"`
	Grounding GroundingSection   `yaml:"grounding"`
	Dedupe    DedupeSection      `yaml:"dedupe"`
	Quality   *quality.Overrides `yaml:"quality"`
	Pipeline  PipelineSection    `yaml:"pipeline"`
	Store     StoreSection       `yaml:"store"`
	Server    ServerSection      `yaml:"server"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingSection{Level: "info"},
		Embedding: EmbeddingSection{
			BaseURL:        "http://localhost:8102",
			Model:          "all-MiniLM-L6-v2",
			TimeoutSeconds: 30,
		},
		Grounding: GroundingSection{
			Method:              "semantic",
			SemanticThreshold:   0.5,
			ConfidenceThreshold: 0.7,
			WindowSize:          3,
			MaxDocChars:         6000,
		},
		Dedupe: DedupeSection{
			Method:    "semantic",
			Threshold: 0.85,
		},
		Pipeline: PipelineSection{Concurrency: 4},
		Store:    StoreSection{Path: "~/.qaguard/store"},
		Server:   ServerSection{Addr: ":8110"},
	}
}

// Load reads path, merges it over the defaults, applies environment
// overrides, and validates. A missing file is not an error; the
// defaults (plus env) are returned.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("config: failed to read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config: validation failed: %w", err)
	}
	return nil
}

// applyEnv layers environment overrides on top of the file values.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvJudgeBaseURL)); v != "" {
		c.Judge.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJudgeModel)); v != "" {
		c.Judge.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvJudgeAPIKey)); v != "" {
		c.Judge.APIKey = v
	}
	if v := os.Getenv(EnvOffline); v != "" {
		c.Embedding.Offline = isTruthy(v)
	}
	if v := os.Getenv(EnvMaxDocChars); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Grounding.MaxDocChars = n
		}
	}
}

// ResolveJudge returns the effective judge endpoint: judge section
// first, llm section second, defaults last, field by field.
func (c *Config) ResolveJudge() LLMSection {
	judge := c.Judge
	if judge.BaseURL == "" {
		judge.BaseURL = c.LLM.BaseURL
	}
	if judge.BaseURL == "" {
		judge.BaseURL = "http://localhost:8101/v1"
	}
	if judge.Model == "" {
		judge.Model = c.LLM.Model
	}
	if judge.Model == "" {
		judge.Model = "Qwen/Qwen2.5-7B-Instruct"
	}
	if judge.APIKey == "" {
		judge.APIKey = c.LLM.APIKey
	}
	if judge.APIKey == "" {
		judge.APIKey = "qwen-local"
	}
	if judge.TimeoutSeconds == 0 {
		judge.TimeoutSeconds = c.LLM.TimeoutSeconds
	}
	if judge.TimeoutSeconds == 0 {
		judge.TimeoutSeconds = 60
	}
	if judge.MaxRetries == 0 {
		judge.MaxRetries = c.LLM.MaxRetries
	}
	if judge.MaxRetries == 0 {
		judge.MaxRetries = 3
	}
	if judge.RetryDelaySecs == 0 {
		judge.RetryDelaySecs = c.LLM.RetryDelaySecs
	}
	if judge.RetryDelaySecs == 0 {
		judge.RetryDelaySecs = 1.0
	}
	return judge
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
