// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package store persists quality reports and the known-question set
// in an embedded BadgerDB. The known questions feed duplicate
// filtering across runs: questions accepted in one run are what new
// questions get filtered against in the next.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/AleutianAI/qaguard/pkg/logging"
	"github.com/AleutianAI/qaguard/services/grader/quality"
)

// Key prefixes. Reports are keyed by report ID, question sets by
// document ID.
const (
	reportPrefix   = "report/"
	questionPrefix = "questions/"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("store: not found")

// Config holds configuration for the store.
type Config struct {
	// Path is the directory for database files. Required unless
	// InMemory is true. A leading ~ expands to the home directory.
	Path string

	// InMemory enables in-memory mode. Useful for testing.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool
}

// DefaultConfig returns the production configuration for path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// Store is a BadgerDB-backed report and question store. Safe for
// concurrent use.
type Store struct {
	db  *badger.DB
	log *logging.Logger
}

// Open opens the store, creating the directory if needed. Callers
// must Close when done.
func Open(cfg Config, log *logging.Logger) (*Store, error) {
	if log == nil {
		log = logging.Discard()
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("store: path is required for a persistent database")
		}
		path := expandPath(cfg.Path)
		if err := os.MkdirAll(path, 0o755); err != nil {
			return nil, fmt.Errorf("store: failed to create %s: %w", path, err)
		}
		opts = badger.DefaultOptions(path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveReport stores a quality report under its report ID.
func (s *Store) SaveReport(report *quality.Report) error {
	if report.ReportID == "" {
		return errors.New("store: report has no ID")
	}
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("store: failed to encode report: %w", err)
	}
	key := []byte(reportPrefix + report.ReportID)
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

// GetReport loads a report by ID.
func (s *Store) GetReport(id string) (*quality.Report, error) {
	var report quality.Report
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(reportPrefix + id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &report)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: report %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: failed to load report %s: %w", id, err)
	}
	return &report, nil
}

// ListReports returns all stored reports.
func (s *Store) ListReports() ([]*quality.Report, error) {
	var reports []*quality.Report
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(reportPrefix)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var report quality.Report
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &report)
			})
			if err != nil {
				return err
			}
			reports = append(reports, &report)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to list reports: %w", err)
	}
	return reports, nil
}

// AddKnownQuestions merges questions into the set stored for docID.
// Duplicates within the stored set are collapsed by exact text.
func (s *Store) AddKnownQuestions(docID string, questions []string) error {
	if docID == "" {
		return errors.New("store: document ID is required")
	}
	key := []byte(questionPrefix + docID)
	return s.db.Update(func(txn *badger.Txn) error {
		existing := []string{}
		item, err := txn.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
		}

		seen := make(map[string]struct{}, len(existing))
		for _, q := range existing {
			seen[q] = struct{}{}
		}
		for _, q := range questions {
			if _, ok := seen[q]; !ok {
				seen[q] = struct{}{}
				existing = append(existing, q)
			}
		}

		data, err := json.Marshal(existing)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// KnownQuestions returns the stored question set for docID. A missing
// document yields an empty set, not an error.
func (s *Store) KnownQuestions(docID string) ([]string, error) {
	questions := []string{}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(questionPrefix + docID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &questions)
		})
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to load questions for %s: %w", docID, err)
	}
	return questions, nil
}

// AllKnownQuestions returns the union of every document's question
// set, in key order.
func (s *Store) AllKnownQuestions() ([]string, error) {
	var all []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(questionPrefix)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.ValidForPrefix(prefix); it.Next() {
			var questions []string
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &questions)
			})
			if err != nil {
				return err
			}
			all = append(all, questions...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("store: failed to list questions: %w", err)
	}
	return all, nil
}

// expandPath resolves a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
