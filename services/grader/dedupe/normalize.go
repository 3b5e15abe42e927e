// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package dedupe detects and filters duplicate questions using text
// similarity. Exact matching runs on normalized text, fuzzy matching
// uses Jaccard word overlap, and semantic matching uses embeddings
// with Jaccard as the degraded fallback.
package dedupe

import (
	"strings"
	"unicode"
)

// contraction expansions, applied in order. "n't" must run before
// "'t" so "don't" becomes "do not" rather than "don not".
var contractions = []struct{ from, to string }{
	{"'s", " is"},
	{"'re", " are"},
	{"'ve", " have"},
	{"'ll", " will"},
	{"'d", " would"},
	{"'m", " am"},
	{"n't", " not"},
	{"'t", " not"},
}

// Normalize lowercases text, expands contractions, collapses
// whitespace, and strips everything that is not a letter, digit, or
// space. "What's the CPU?" and "what is the cpu" normalize to the
// same string.
func Normalize(text string) string {
	normalized := strings.ToLower(text)
	for _, c := range contractions {
		normalized = strings.ReplaceAll(normalized, c.from, c.to)
	}
	normalized = strings.Join(strings.Fields(normalized), " ")

	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// wordSet returns the set of normalized words in text.
func wordSet(text string) map[string]struct{} {
	words := strings.Fields(Normalize(text))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
