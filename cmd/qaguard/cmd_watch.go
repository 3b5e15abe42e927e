// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/qaguard/services/grader/quality"
)

var watchCmd = &cobra.Command{
	Use:   "watch <directory>",
	Short: "Watch a directory and score graded documents as they land",
	Long: `watch evaluates every JSON file written to the directory and prints
its quality report. Useful next to a generation pipeline that drops
graded documents as it goes.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := args[0]
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	evaluator := newEvaluator()
	log.Info("watching for graded documents", "dir", dir)

	// Writers often emit several events per file; remember when each
	// path was last scored and skip events inside the window.
	lastSeen := make(map[string]time.Time)
	const debounce = 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", "error", err)
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if strings.ToLower(filepath.Ext(event.Name)) != ".json" {
				continue
			}
			if t, seen := lastSeen[event.Name]; seen && time.Since(t) < debounce {
				continue
			}
			lastSeen[event.Name] = time.Now()

			scoreFile(evaluator, event.Name)
		}
	}
}

func scoreFile(evaluator *quality.Evaluator, path string) {
	docs, _, err := loadDocuments(path)
	if err != nil {
		log.Warn("skipping unreadable file", "path", path, "error", err)
		return
	}

	reports := make([]*quality.Report, 0, len(docs))
	for _, doc := range docs {
		reports = append(reports, evaluator.Evaluate(doc))
	}

	fmt.Println(styles.Title.Render(path))
	printQualityReports(reports)
	fmt.Println()
}
