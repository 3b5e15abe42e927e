// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package textseg splits free text into sentence units and extracts
// key phrases from them.
//
// Sentence segmentation is regex-based rather than model-based: known
// abbreviations, numbered-list markers, decimal numbers, and ellipses
// are protected with placeholders before the text is split on
// sentence-terminal punctuation, then the placeholders are restored.
// This is deliberately deterministic so grounding confidence scores are
// reproducible across runs.
package textseg

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	dotToken      = "<DOT>"
	ellipsisToken = "<ELLIPSIS>"

	// minSentenceLen drops fragments that are numeric or single-letter
	// noise left over from list markers ("1", "a").
	minSentenceLen = 2
)

// abbreviations whose trailing period must not end a sentence: titles,
// ordinals, and common document shorthand.
const abbreviations = `Dr|Mr|Mrs|Ms|Prof|Sr|Jr|St|vs|etc|inc|ltd|corp|dept|approx|est|govt|intl|natl|assn|assoc|vol|no|fig|ref|pp|ed|rev|gen|sgt|cpl|pvt|lt|col|capt|maj|brig|adm|cmdr`

var (
	abbrevPattern       = regexp.MustCompile(`(?i)\b(` + abbreviations + `)\.\s`)
	numberedListPattern = regexp.MustCompile(`(^|\n)\s*(\d{1,3})\.\s`)
	decimalPattern      = regexp.MustCompile(`(\d)\.(\d)`)
	ellipsisPattern     = regexp.MustCompile(`\.{3,}`)
	terminatorPattern   = regexp.MustCompile(`([.!?])\s+`)
)

// Segment splits text into an ordered slice of sentences.
//
// Abbreviations ("Dr.", "etc."), numbered-list markers ("12. "),
// decimal numbers ("3.5"), and ellipses are protected from false
// splits. Paragraph breaks (newlines) count as sentence boundaries.
// Fragments of two characters or fewer are dropped. Empty or blank
// input yields nil.
func Segment(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	protected := abbrevPattern.ReplaceAllString(text, "$1"+dotToken+" ")
	protected = numberedListPattern.ReplaceAllString(protected, " $2"+dotToken+" ")
	protected = decimalPattern.ReplaceAllString(protected, "$1"+dotToken+"$2")
	protected = ellipsisPattern.ReplaceAllString(protected, ellipsisToken)

	// Terminal punctuation followed by whitespace ends a sentence. The
	// punctuation stays with the left fragment.
	marked := terminatorPattern.ReplaceAllString(protected, "$1\x1f")

	var sentences []string
	for _, part := range strings.Split(marked, "\x1f") {
		for _, frag := range strings.Split(part, "\n") {
			s := strings.ReplaceAll(frag, dotToken, ".")
			s = strings.ReplaceAll(s, ellipsisToken, "...")
			s = strings.TrimSpace(s)
			if s != "" && utf8.RuneCountInString(s) > minSentenceLen {
				sentences = append(sentences, s)
			}
		}
	}
	return sentences
}
