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

	"github.com/AleutianAI/qaguard/services/grader/grounding"
	"github.com/AleutianAI/qaguard/services/grader/pipeline"
	"github.com/AleutianAI/qaguard/services/grader/record"
)

var (
	gradeOutput  string
	gradeInPlace bool

	gradeCmd = &cobra.Command{
		Use:   "grade <documents.json> [more.json...]",
		Short: "Grade Q&A pairs against their source documents",
		Long: `grade loads one or more JSON files of documents with qa_pairs,
verifies each answer against the document text, and attaches grading
results. Use --in-place to write the annotated documents back, or -o
to write them to a separate file.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGrade,
	}
)

func init() {
	gradeCmd.Flags().StringVarP(&gradeOutput, "output", "o", "", "write annotated documents to this file (single input only)")
	gradeCmd.Flags().BoolVar(&gradeInPlace, "in-place", false, "write annotated documents back to the input files")
}

func runGrade(cmd *cobra.Command, args []string) error {
	if gradeOutput != "" && len(args) > 1 {
		return fmt.Errorf("-o accepts a single input file, got %d", len(args))
	}

	verifier, judgeModel, err := newVerifier()
	if err != nil {
		return err
	}
	grader := pipeline.NewGrader(pipeline.Config{
		Method:      grounding.Method(cfg.Grounding.Method),
		JudgeModel:  judgeModel,
		Concurrency: cfg.Pipeline.Concurrency,
	}, verifier, log)

	// Track which docs came from which file so --in-place can write
	// each file back with only its own documents.
	var all []*record.Document
	perFile := make([][]*record.Document, len(args))
	arrays := make([]bool, len(args))
	for i, path := range args {
		docs, wasArray, err := loadDocuments(path)
		if err != nil {
			return err
		}
		perFile[i] = docs
		arrays[i] = wasArray
		all = append(all, docs...)
	}

	result, err := grader.GradeDocuments(cmd.Context(), all)
	if err != nil {
		return err
	}

	if gradeInPlace {
		for i, path := range args {
			if err := writeDocuments(path, perFile[i], arrays[i]); err != nil {
				return err
			}
		}
	} else if gradeOutput != "" {
		if err := writeDocuments(gradeOutput, perFile[0], arrays[0]); err != nil {
			return err
		}
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(result)
	}

	printGradingReport(result.Documents)
	for _, w := range result.Warnings {
		fmt.Println(styles.Warning.Render("warning: " + w))
	}
	fmt.Printf("Graded %d pair(s), %d failed\n", result.GradedPairs, result.FailedPairs)
	return nil
}

// loadDocuments reads a JSON file holding either a single document
// object or an array of documents. The second return reports which
// shape was found so writes can preserve it.
func loadDocuments(path string) ([]*record.Document, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var docs []*record.Document
	if err := json.Unmarshal(data, &docs); err == nil {
		return docs, true, nil
	}

	var doc record.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, fmt.Errorf("%s is not a document or document array: %w", path, err)
	}
	return []*record.Document{&doc}, false, nil
}

func writeDocuments(path string, docs []*record.Document, asArray bool) error {
	var payload any = docs
	if !asArray && len(docs) == 1 {
		payload = docs[0]
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
