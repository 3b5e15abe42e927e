// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	dedupeDocID     string
	dedupeAllKnown  bool
	dedupeMethod    string
	dedupeThreshold float64

	dedupeCmd = &cobra.Command{
		Use:   "dedupe <questions.json>",
		Short: "Cluster duplicate questions",
		Long: `dedupe loads a JSON array of question strings (or a documents file,
from which questions are collected) and clusters near-duplicates.
With --doc-id the questions are instead filtered against the stored
known-question set for that document, and accepted questions are
recorded. --all-known filters against every stored question regardless
of document.`,
		Args: cobra.ExactArgs(1),
		RunE: runDedupe,
	}
)

func init() {
	dedupeCmd.Flags().StringVar(&dedupeDocID, "doc-id", "", "filter against the known questions stored for this document")
	dedupeCmd.Flags().BoolVar(&dedupeAllKnown, "all-known", false, "filter against the stored questions of every document")
	dedupeCmd.Flags().StringVar(&dedupeMethod, "dedupe-method", "", "comparison method: exact, jaccard, semantic, or both")
	dedupeCmd.Flags().Float64Var(&dedupeThreshold, "threshold", 0, "similarity threshold (0 uses the configured value)")
}

func runDedupe(cmd *cobra.Command, args []string) error {
	if dedupeMethod != "" {
		cfg.Dedupe.Method = dedupeMethod
	}
	if dedupeThreshold > 0 {
		cfg.Dedupe.Threshold = dedupeThreshold
	}

	questions, err := loadQuestions(args[0])
	if err != nil {
		return err
	}

	detector, err := newDetector()
	if err != nil {
		return err
	}

	if dedupeDocID != "" || dedupeAllKnown {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		var known []string
		if dedupeAllKnown {
			known, err = st.AllKnownQuestions()
		} else {
			known, err = st.KnownQuestions(dedupeDocID)
		}
		if err != nil {
			return err
		}
		accepted, err := detector.FilterNew(cmd.Context(), known, questions)
		if err != nil {
			return err
		}
		if dedupeDocID != "" && len(accepted) > 0 {
			if err := st.AddKnownQuestions(dedupeDocID, accepted); err != nil {
				return err
			}
		}

		if jsonOutput {
			return json.NewEncoder(os.Stdout).Encode(map[string]any{"accepted": accepted})
		}
		fmt.Printf("%d of %d question(s) accepted\n", len(accepted), len(questions))
		for _, q := range accepted {
			fmt.Printf("  %s\n", q)
		}
		return nil
	}

	result, err := detector.Cluster(cmd.Context(), questions)
	if err != nil {
		return err
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(result)
	}
	fmt.Printf("%d unique, %d duplicate(s)\n", len(result.Unique), len(result.DuplicateIndices))
	for _, q := range result.Unique {
		fmt.Printf("  %s\n", q)
	}
	if len(result.DuplicateIndices) > 0 {
		fmt.Println(styles.Muted.Render("Dropped:"))
		for _, i := range result.DuplicateIndices {
			fmt.Printf("  %s\n", styles.Muted.Render(questions[i]))
		}
	}
	return nil
}

// loadQuestions accepts a JSON array of strings, or falls back to a
// documents file and collects the qa_pairs questions in order.
func loadQuestions(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var questions []string
	if err := json.Unmarshal(data, &questions); err == nil {
		return questions, nil
	}

	docs, _, err := loadDocuments(path)
	if err != nil {
		return nil, err
	}
	for _, doc := range docs {
		for _, pair := range doc.QAPairs {
			questions = append(questions, pair.Question)
		}
	}
	return questions, nil
}
