// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/AleutianAI/qaguard/services/grader/quality"
	"github.com/AleutianAI/qaguard/services/grader/record"
)

var styles struct {
	Title   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Grade   lipgloss.Style
}

// initStyles configures rendering for the current terminal. Piped
// output and --no-color get plain text.
func initStyles() {
	plain := lipgloss.NewStyle()
	styles.Title = plain
	styles.Muted = plain
	styles.Success = plain
	styles.Warning = plain
	styles.Error = plain
	styles.Grade = plain

	if noColor || !isatty.IsTerminal(os.Stdout.Fd()) {
		return
	}

	styles.Title = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2CD7C7"))
	styles.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#2C4A54"))
	styles.Success = lipgloss.NewStyle().Foreground(lipgloss.Color("#2CD7C7"))
	styles.Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("#F4D03F"))
	styles.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	styles.Grade = lipgloss.NewStyle().Bold(true)
}

// printGradingReport renders per-document grades and per-pair status,
// mirroring the layout reviewers are used to from the pipeline logs.
func printGradingReport(docs []*record.Document) {
	rule := strings.Repeat("=", 80)
	fmt.Println(rule)
	fmt.Println(styles.Title.Render("GRADING REPORT"))
	fmt.Println(rule)
	fmt.Println()

	for i, doc := range docs {
		title := doc.Title
		if title == "" {
			title = doc.DocumentID
		}
		if title == "" {
			title = fmt.Sprintf("Document %d", i+1)
		}

		grade := "N/A"
		confidence := 0.0
		method := "unknown"
		if s := doc.GradingSummary; s != nil {
			grade = s.OverallGrade
			if s.OverallConfidence != nil {
				confidence = *s.OverallConfidence
			}
			method = s.Method
		}

		fmt.Printf("Document %d: %s\n", i+1, styles.Title.Render(title))
		fmt.Printf("  Overall Grade: %s (Confidence: %.1f%%)\n", styles.Grade.Render(grade), confidence*100)
		fmt.Printf("  Method: %s\n\n", method)

		for j, pair := range doc.QAPairs {
			status := styles.Warning.Render("[WARN] POTENTIAL HALLUCINATION")
			conf := 0.0
			var issues []string
			if g := pair.Grading; g != nil {
				if g.Confidence != nil {
					conf = *g.Confidence
				}
				if g.IsGrounded != nil && *g.IsGrounded {
					status = styles.Success.Render("[OK] GROUNDED")
				}
				issues = g.Issues
			}

			fmt.Printf("  Q%d. %s\n", j+1, clip(pair.Question, 80))
			fmt.Printf("     Status: %s (Confidence: %.1f%%)\n", status, conf*100)
			if len(issues) > 0 {
				fmt.Println("     Issues:")
				for _, issue := range issues[:min(3, len(issues))] {
					fmt.Printf("       - %s\n", styles.Muted.Render(clip(issue, 100)))
				}
			}
			fmt.Println()
		}

		fmt.Println(strings.Repeat("-", 80))
		fmt.Println()
	}
}

// printQualityReports renders quality bands and warnings per report,
// then the batch summary.
func printQualityReports(reports []*quality.Report) {
	for _, r := range reports {
		band := r.QualityBand
		switch band {
		case quality.BandExcellent:
			band = styles.Success.Render(band)
		case quality.BandReview:
			band = styles.Warning.Render(band)
		case quality.BandNeedsAttention:
			band = styles.Error.Render(band)
		}

		conf := "n/a"
		if r.OverallConfidence != nil {
			conf = fmt.Sprintf("%.1f%%", *r.OverallConfidence*100)
		}
		fmt.Printf("%s  band=%s  questions=%d  confidence=%s\n", r.DocumentID, band, r.NumQuestions, conf)
		for _, w := range r.Warnings {
			fmt.Printf("  %s\n", styles.Warning.Render(w))
		}
	}

	summary := quality.Summarize(reports)
	fmt.Println()
	fmt.Printf("%d document(s): %d excellent, %d review, %d needs attention\n",
		summary.TotalDocuments,
		summary.QualityBreakdown[quality.BandExcellent],
		summary.QualityBreakdown[quality.BandReview],
		summary.QualityBreakdown[quality.BandNeedsAttention],
	)
}

func clip(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
