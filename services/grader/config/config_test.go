// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "qaguard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "semantic", cfg.Grounding.Method)
	assert.Equal(t, 0.5, cfg.Grounding.SemanticThreshold)
	assert.Equal(t, 0.7, cfg.Grounding.ConfidenceThreshold)
	assert.Equal(t, 6000, cfg.Grounding.MaxDocChars)
	assert.Equal(t, 0.85, cfg.Dedupe.Threshold)
	assert.Equal(t, "all-MiniLM-L6-v2", cfg.Embedding.Model)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
grounding:
  method: hybrid
  semantic_threshold: 0.6
dedupe:
  threshold: 0.9
llm:
  base_url: http://llm.internal:8100/v1
  model: llama-3.1-8b
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "hybrid", cfg.Grounding.Method)
	assert.Equal(t, 0.6, cfg.Grounding.SemanticThreshold)
	// Untouched values keep their defaults.
	assert.Equal(t, 0.7, cfg.Grounding.ConfidenceThreshold)
	assert.Equal(t, 0.9, cfg.Dedupe.Threshold)
}

func TestLoad_InvalidMethodRejected(t *testing.T) {
	path := writeConfig(t, `
grounding:
  method: quantum
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestResolveJudge(t *testing.T) {
	t.Run("judge section wins", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM = LLMSection{BaseURL: "http://gen:8100/v1", Model: "llama", APIKey: "k1"}
		cfg.Judge = LLMSection{BaseURL: "http://judge:8101/v1", Model: "qwen"}

		judge := cfg.ResolveJudge()
		assert.Equal(t, "http://judge:8101/v1", judge.BaseURL)
		assert.Equal(t, "qwen", judge.Model)
		// Missing judge fields fall back to the llm section.
		assert.Equal(t, "k1", judge.APIKey)
	})

	t.Run("falls back to llm section then defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.LLM = LLMSection{Model: "llama"}

		judge := cfg.ResolveJudge()
		assert.Equal(t, "http://localhost:8101/v1", judge.BaseURL)
		assert.Equal(t, "llama", judge.Model)
		assert.Equal(t, "qwen-local", judge.APIKey)
		assert.Equal(t, 60*time.Second, judge.Timeout())
		assert.Equal(t, 3, judge.MaxRetries)
		assert.Equal(t, time.Second, judge.RetryDelay())
	})
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvJudgeBaseURL, "http://override:9000/v1")
	t.Setenv(EnvJudgeModel, "override-model")
	t.Setenv(EnvOffline, "true")
	t.Setenv(EnvMaxDocChars, "1234")

	cfg, err := Load("")
	require.NoError(t, err)

	judge := cfg.ResolveJudge()
	assert.Equal(t, "http://override:9000/v1", judge.BaseURL)
	assert.Equal(t, "override-model", judge.Model)
	assert.True(t, cfg.Embedding.Offline)
	assert.Equal(t, 1234, cfg.Grounding.MaxDocChars)
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " on "} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "off", "nope"} {
		assert.False(t, isTruthy(v), v)
	}
}
