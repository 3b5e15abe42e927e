// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/qaguard/pkg/logging"
	"github.com/AleutianAI/qaguard/services/grader/config"
	"github.com/AleutianAI/qaguard/services/grader/dedupe"
	"github.com/AleutianAI/qaguard/services/grader/embed"
	"github.com/AleutianAI/qaguard/services/grader/grounding"
	"github.com/AleutianAI/qaguard/services/grader/llm"
	"github.com/AleutianAI/qaguard/services/grader/quality"
	"github.com/AleutianAI/qaguard/services/grader/store"
)

var (
	configPath string
	methodFlag string
	jsonOutput bool
	noColor    bool

	cfg *config.Config
	log *logging.Logger

	rootCmd = &cobra.Command{
		Use:   "qaguard",
		Short: "Grade, deduplicate, and quality-score generated QA datasets",
		Long: `qaguard verifies that generated answers are grounded in their
source documents, clusters duplicate questions, and scores graded
documents into quality bands for review.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			log = logging.New(logging.Config{
				Level:   logging.ParseLevel(cfg.Logging.Level),
				LogDir:  cfg.Logging.Dir,
				Service: "qaguard",
				JSON:    cfg.Logging.JSON,
				Quiet:   cfg.Logging.Quiet,
			})
			if methodFlag != "" {
				cfg.Grounding.Method = methodFlag
			}
			initStyles()
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if log != nil {
				_ = log.Close()
			}
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to qaguard.yaml (defaults apply if missing)")
	rootCmd.PersistentFlags().StringVarP(&methodFlag, "method", "m", "", "grounding method: keyword, semantic, judge, or hybrid")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON instead of styled output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(gradeCmd, dedupeCmd, reportCmd, serveCmd, watchCmd)
}

// newEmbedder builds the embedding client from config. The registry
// health-checks each model on first use; a dead service degrades
// semantic checks rather than failing them.
func newEmbedder() embed.Embedder {
	registry := embed.NewServiceRegistry(embed.ClientConfig{
		BaseURL:   cfg.Embedding.BaseURL,
		LocalPath: cfg.Embedding.LocalPath,
		Offline:   cfg.Embedding.Offline,
		Timeout:   time.Duration(cfg.Embedding.TimeoutSeconds) * time.Second,
	})
	embedder, err := registry.Get(cfg.Embedding.Model)
	if err != nil {
		log.Warn("embedding service unavailable, semantic checks will degrade", "error", err)
		return nil
	}
	return embedder
}

// newJudge builds the judge client from the resolved judge section.
func newJudge() (llm.TextGenerator, string) {
	judge := cfg.ResolveJudge()
	client := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL: judge.BaseURL,
		Model:   judge.Model,
		APIKey:  judge.APIKey,
		Timeout: judge.Timeout(),
	})
	return client, judge.Model
}

// newVerifier wires the grounding verifier. The judge client is only
// attached for methods that use it, so keyword/semantic runs never
// touch the LLM endpoint.
func newVerifier() (*grounding.Verifier, string, error) {
	method := grounding.Method(cfg.Grounding.Method)

	var embedder embed.Embedder
	if method == grounding.MethodSemantic || method == grounding.MethodHybrid {
		embedder = newEmbedder()
	}

	var judge llm.TextGenerator
	judgeModel := ""
	if method == grounding.MethodJudge || method == grounding.MethodHybrid {
		judge, judgeModel = newJudge()
	}

	judgeSection := cfg.ResolveJudge()
	verifier, err := grounding.NewVerifier(grounding.Config{
		SemanticThreshold:   cfg.Grounding.SemanticThreshold,
		ConfidenceThreshold: cfg.Grounding.ConfidenceThreshold,
		WindowSize:          cfg.Grounding.WindowSize,
		MaxDocChars:         cfg.Grounding.MaxDocChars,
		Retry: llm.RetryPolicy{
			MaxAttempts: judgeSection.MaxRetries,
			BaseDelay:   judgeSection.RetryDelay(),
		},
	}, embedder, judge, log)
	if err != nil {
		return nil, "", err
	}
	return verifier, judgeModel, nil
}

func newDetector() (*dedupe.Detector, error) {
	var embedder embed.Embedder
	method := dedupe.Method(cfg.Dedupe.Method)
	if method == dedupe.MethodSemantic || method == dedupe.MethodBoth {
		embedder = newEmbedder()
	}
	return dedupe.NewDetector(dedupe.Config{
		Threshold: cfg.Dedupe.Threshold,
		Method:    method,
	}, embedder, log)
}

func newEvaluator() *quality.Evaluator {
	thresholds := quality.DefaultThresholds().Resolve(cfg.Quality)
	return quality.NewEvaluator(thresholds, log)
}

func openStore() (*store.Store, error) {
	return store.Open(store.Config{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: true,
	}, log)
}
