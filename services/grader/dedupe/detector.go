// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package dedupe

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/AleutianAI/qaguard/pkg/logging"
	"github.com/AleutianAI/qaguard/services/grader/embed"
)

// Method selects how question pairs are compared.
type Method string

const (
	// MethodExact compares normalized text only.
	MethodExact Method = "exact"

	// MethodJaccard compares word-set overlap.
	MethodJaccard Method = "jaccard"

	// MethodSemantic compares embeddings, degrading to Jaccard when
	// the embedding service is unavailable.
	MethodSemantic Method = "semantic"

	// MethodBoth flags a pair when either semantic or Jaccard
	// similarity clears the threshold.
	MethodBoth Method = "both"
)

// ErrUnknownMethod is returned for a method outside the supported set.
var ErrUnknownMethod = errors.New("dedupe: unknown method, use 'exact', 'jaccard', 'semantic', or 'both'")

// DefaultThreshold is the similarity above which two questions are
// considered duplicates.
const DefaultThreshold = 0.85

// Config tunes the detector. Zero values take the defaults.
type Config struct {
	// Threshold for similarity-based matching.
	Threshold float64

	// Method is the comparison strategy. Empty means semantic.
	Method Method

	// DisableExactMatch skips the normalized-equality short circuit
	// that otherwise runs before any similarity scoring.
	DisableExactMatch bool
}

// ClusterResult partitions a question list into representatives and
// duplicates.
type ClusterResult struct {
	// Unique holds one representative per cluster: the question with
	// the lowest index, in first-appearance order.
	Unique []string `json:"unique"`

	// DuplicateIndices are the positions of all non-representative
	// questions, ascending.
	DuplicateIndices []int `json:"duplicate_indices"`
}

// Detector clusters duplicate questions. A nil embedder makes the
// semantic and both methods degrade to Jaccard.
type Detector struct {
	cfg      Config
	embedder embed.Embedder
	log      *logging.Logger
}

// NewDetector builds a Detector; embedder and log may be nil.
func NewDetector(cfg Config, embedder embed.Embedder, log *logging.Logger) (*Detector, error) {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Method == "" {
		cfg.Method = MethodSemantic
	}
	switch cfg.Method {
	case MethodExact, MethodJaccard, MethodSemantic, MethodBoth:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, cfg.Method)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &Detector{cfg: cfg, embedder: embedder, log: log}, nil
}

// WithConfig derives a detector with different tuning that shares this
// detector's embedder and logger. Zero-valued fields keep the current
// configuration, so an override can disable exact matching but not
// re-enable it once the base detector disabled it. Used for per-request
// overrides.
func (d *Detector) WithConfig(cfg Config) (*Detector, error) {
	if cfg.Threshold == 0 {
		cfg.Threshold = d.cfg.Threshold
	}
	if cfg.Method == "" {
		cfg.Method = d.cfg.Method
	}
	if !cfg.DisableExactMatch {
		cfg.DisableExactMatch = d.cfg.DisableExactMatch
	}
	return NewDetector(cfg, d.embedder, d.log)
}

// Cluster groups duplicate questions with union-find over all pairs.
// Duplicate relations are transitive: if A~B and B~C, all three share
// one cluster even when A and C alone would not match.
func (d *Detector) Cluster(ctx context.Context, questions []string) (*ClusterResult, error) {
	if len(questions) <= 1 {
		return &ClusterResult{Unique: questions, DuplicateIndices: []int{}}, nil
	}

	sims := d.semanticMatrix(ctx, questions)

	parent := make([]int, len(questions))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		if parent[x] != x {
			parent[x] = find(parent[x])
		}
		return parent[x]
	}
	union := func(x, y int) {
		rx, ry := find(x), find(y)
		if rx != ry {
			parent[ry] = rx
		}
	}

	for i := 0; i < len(questions); i++ {
		for j := i + 1; j < len(questions); j++ {
			if d.isDuplicate(questions[i], questions[j], sims, i, j) {
				union(i, j)
			}
		}
	}

	// The first index seen for each root is the cluster minimum, so
	// representatives come out in first-appearance order.
	seen := make(map[int]bool, len(questions))
	unique := make([]string, 0, len(questions))
	duplicates := make([]int, 0)
	for idx := range questions {
		root := find(idx)
		if seen[root] {
			duplicates = append(duplicates, idx)
			continue
		}
		seen[root] = true
		unique = append(unique, questions[idx])
	}
	sort.Ints(duplicates)

	d.log.Debug("clustered questions",
		"total", len(questions),
		"unique", len(unique),
		"duplicates", len(duplicates),
		"method", string(d.cfg.Method),
	)
	return &ClusterResult{Unique: unique, DuplicateIndices: duplicates}, nil
}

// FilterNew returns the new questions that neither duplicate an
// existing question nor each other. Representatives keep their
// original text even though matching is done on normalized forms.
func (d *Detector) FilterNew(ctx context.Context, existing, new []string) ([]string, error) {
	if len(existing) == 0 {
		res, err := d.Cluster(ctx, new)
		if err != nil {
			return nil, err
		}
		return res.Unique, nil
	}
	if len(new) == 0 {
		return []string{}, nil
	}

	combined := make([]string, 0, len(existing)+len(new))
	combined = append(combined, existing...)
	combined = append(combined, new...)

	res, err := d.Cluster(ctx, combined)
	if err != nil {
		return nil, err
	}

	existingSet := make(map[string]struct{}, len(existing))
	for _, q := range existing {
		existingSet[Normalize(q)] = struct{}{}
	}

	filtered := []string{}
	for _, q := range res.Unique {
		if _, ok := existingSet[Normalize(q)]; !ok {
			filtered = append(filtered, q)
		}
	}
	return filtered, nil
}

// semanticMatrix embeds every question once and returns pairwise
// cosine similarities clamped to [0,1]. It returns nil when semantic
// scoring is not in play or the embedding service fails; callers then
// fall back to Jaccard.
func (d *Detector) semanticMatrix(ctx context.Context, questions []string) [][]float64 {
	if d.cfg.Method != MethodSemantic && d.cfg.Method != MethodBoth {
		return nil
	}
	if d.embedder == nil {
		return nil
	}

	vectors, err := d.embedder.Embed(ctx, questions)
	if err != nil {
		d.log.Warn("embedding failed, falling back to jaccard", "error", err)
		return nil
	}

	sims := make([][]float64, len(questions))
	for i := range sims {
		sims[i] = make([]float64, len(questions))
	}
	for i := 0; i < len(questions); i++ {
		for j := i + 1; j < len(questions); j++ {
			sim := embed.CosineSimilarity(vectors[i], vectors[j])
			if sim < 0 {
				sim = 0
			}
			sims[i][j] = sim
			sims[j][i] = sim
		}
	}
	return sims
}

func (d *Detector) isDuplicate(q1, q2 string, sims [][]float64, i, j int) bool {
	if !d.cfg.DisableExactMatch || d.cfg.Method == MethodExact {
		if Normalize(q1) == Normalize(q2) {
			return true
		}
	}
	if d.cfg.Method == MethodExact {
		return false
	}

	if sims != nil {
		if d.cfg.Method == MethodBoth {
			return sims[i][j] >= d.cfg.Threshold || JaccardSimilarity(q1, q2) >= d.cfg.Threshold
		}
		return sims[i][j] >= d.cfg.Threshold
	}

	return JaccardSimilarity(q1, q2) >= d.cfg.Threshold
}
