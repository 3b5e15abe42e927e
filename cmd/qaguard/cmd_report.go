// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/qaguard/services/grader/quality"
)

var (
	reportSave bool

	reportCmd = &cobra.Command{
		Use:   "report <graded.json> [more.json...]",
		Short: "Score graded documents into quality bands",
		Long: `report evaluates graded documents and sorts them into quality bands
(excellent, review, needs_attention) with per-pair warnings. Use
--save to persist the reports for later listing via the API.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runReport,
	}
)

func init() {
	reportCmd.Flags().BoolVar(&reportSave, "save", false, "persist reports to the local store")
}

func runReport(cmd *cobra.Command, args []string) error {
	evaluator := newEvaluator()

	var reports []*quality.Report
	for _, path := range args {
		docs, _, err := loadDocuments(path)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			reports = append(reports, evaluator.Evaluate(doc))
		}
	}

	if reportSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		for _, r := range reports {
			if err := st.SaveReport(r); err != nil {
				return err
			}
		}
	}

	if jsonOutput {
		return json.NewEncoder(os.Stdout).Encode(reports)
	}
	printQualityReports(reports)
	return nil
}
