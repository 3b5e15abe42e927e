// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/qaguard/services/grader/quality"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_SaveAndGetReport(t *testing.T) {
	s := openTestStore(t)

	conf := 0.82
	report := &quality.Report{
		ReportID:          "r-1",
		DocumentID:        "doc-1",
		NumQuestions:      3,
		OverallConfidence: &conf,
		QualityBand:       quality.BandReview,
		Warnings:          []string{"Q2: confidence 0.60 below 0.65"},
	}
	require.NoError(t, s.SaveReport(report))

	loaded, err := s.GetReport("r-1")
	require.NoError(t, err)
	assert.Equal(t, report.DocumentID, loaded.DocumentID)
	assert.Equal(t, report.QualityBand, loaded.QualityBand)
	require.NotNil(t, loaded.OverallConfidence)
	assert.Equal(t, 0.82, *loaded.OverallConfidence)
	assert.Equal(t, report.Warnings, loaded.Warnings)
}

func TestStore_GetReport_NotFound(t *testing.T) {
	s := openTestStore(t)
	_, err := s.GetReport("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_SaveReport_RequiresID(t *testing.T) {
	s := openTestStore(t)
	err := s.SaveReport(&quality.Report{})
	assert.Error(t, err)
}

func TestStore_ListReports(t *testing.T) {
	s := openTestStore(t)

	for _, id := range []string{"r-1", "r-2", "r-3"} {
		require.NoError(t, s.SaveReport(&quality.Report{ReportID: id, QualityBand: quality.BandExcellent}))
	}
	reports, err := s.ListReports()
	require.NoError(t, err)
	assert.Len(t, reports, 3)
}

func TestStore_KnownQuestions(t *testing.T) {
	s := openTestStore(t)

	t.Run("missing document yields empty set", func(t *testing.T) {
		qs, err := s.KnownQuestions("doc-1")
		require.NoError(t, err)
		assert.Empty(t, qs)
	})

	t.Run("add and merge", func(t *testing.T) {
		require.NoError(t, s.AddKnownQuestions("doc-1", []string{"What is X?", "What is Y?"}))
		require.NoError(t, s.AddKnownQuestions("doc-1", []string{"What is Y?", "What is Z?"}))

		qs, err := s.KnownQuestions("doc-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"What is X?", "What is Y?", "What is Z?"}, qs)
	})

	t.Run("union across documents", func(t *testing.T) {
		require.NoError(t, s.AddKnownQuestions("doc-2", []string{"What is W?"}))

		all, err := s.AllKnownQuestions()
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"What is X?", "What is Y?", "What is Z?", "What is W?"}, all)
	})
}

func TestOpen_PersistentRequiresPath(t *testing.T) {
	_, err := Open(Config{}, nil)
	assert.Error(t, err)
}

func TestOpen_PersistentRoundTrip(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Config{Path: dir}, nil)
	require.NoError(t, err)
	require.NoError(t, s.SaveReport(&quality.Report{ReportID: "r-1"}))
	require.NoError(t, s.Close())

	s, err = Open(Config{Path: dir}, nil)
	require.NoError(t, err)
	defer s.Close()

	loaded, err := s.GetReport("r-1")
	require.NoError(t, err)
	assert.Equal(t, "r-1", loaded.ReportID)
}
