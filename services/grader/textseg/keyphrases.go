// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package textseg

import (
	"regexp"
	"strings"
)

// DefaultMinPhraseLength is the minimum character length for an
// extracted key phrase.
const DefaultMinPhraseLength = 4

var wordPattern = regexp.MustCompile(`\w+`)

// stopWords are excluded from key phrases: articles, conjunctions,
// auxiliary verbs, and pronouns carry no grounding signal.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true,
	"but": true, "in": true, "on": true, "at": true, "to": true,
	"for": true, "of": true, "with": true, "by": true, "from": true,
	"as": true, "is": true, "was": true, "are": true, "were": true,
	"be": true, "been": true, "being": true, "have": true, "has": true,
	"had": true, "do": true, "does": true, "did": true, "will": true,
	"would": true, "could": true, "should": true, "may": true,
	"might": true, "must": true, "can": true, "this": true,
	"that": true, "these": true, "those": true, "it": true,
	"its": true, "they": true, "them": true, "their": true,
}

// KeyPhrases extracts stopword-filtered bigrams and trigrams from a
// sentence, lowercased, filtered to minLength characters. A window is
// kept only when every member token is outside the stopword set.
// Pass minLength <= 0 for the default.
func KeyPhrases(sentence string, minLength int) []string {
	if minLength <= 0 {
		minLength = DefaultMinPhraseLength
	}

	words := wordPattern.FindAllString(strings.ToLower(sentence), -1)

	var phrases []string
	for i := 0; i < len(words)-1; i++ {
		if !stopWords[words[i]] && !stopWords[words[i+1]] {
			phrase := words[i] + " " + words[i+1]
			if len(phrase) >= minLength {
				phrases = append(phrases, phrase)
			}
		}

		if i < len(words)-2 {
			if !stopWords[words[i]] && !stopWords[words[i+1]] && !stopWords[words[i+2]] {
				phrase := words[i] + " " + words[i+1] + " " + words[i+2]
				if len(phrase) >= minLength {
					phrases = append(phrases, phrase)
				}
			}
		}
	}
	return phrases
}
