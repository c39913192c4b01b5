// FlickLit - Literary Work Recommendation Service
// Copyright 2026 Mark Stralka (mstralka)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mstralka/mark-flicklit-sub001

package similarity

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/mstralka/mark-flicklit-sub001/internal/models"
)

// stopwords is the fixed English stopword list removed during tokenization.
var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "are": {}, "but": {}, "not": {},
	"you": {}, "all": {}, "can": {}, "had": {}, "her": {}, "was": {},
	"one": {}, "our": {}, "out": {}, "day": {}, "get": {}, "has": {},
	"him": {}, "his": {}, "how": {}, "man": {}, "new": {}, "now": {},
	"old": {}, "see": {}, "two": {}, "way": {}, "who": {}, "its": {},
	"did": {}, "they": {}, "this": {}, "that": {}, "with": {}, "from": {},
	"have": {}, "were": {}, "been": {}, "their": {}, "which": {},
	"will": {}, "would": {}, "there": {}, "what": {}, "about": {},
	"when": {}, "into": {}, "more": {}, "some": {}, "them": {},
}

var nonWordRe = regexp.MustCompile(`[^\w\s]`)

// Tokenize lowercases text, strips non-word characters, splits on
// whitespace, and drops short tokens and stopwords.
func Tokenize(text string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(text), " ")
	fields := strings.Fields(cleaned)

	tokens := make([]string, 0, len(fields))
	for _, tok := range fields {
		if len(tok) <= 2 {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

// TextScorer computes TF-IDF cosine similarity over work titles and
// descriptions. BuildDocumentFrequencies must run before batch scoring so
// IDF reflects the live corpus; until then every term falls back to df=1.
type TextScorer struct {
	mu        sync.RWMutex
	docFreq   map[string]int
	totalDocs int

	titleWeight       float64
	descriptionWeight float64
}

// NewTextScorer creates a text scorer with the standard title/description
// weighting (0.4 / 0.6).
func NewTextScorer() *TextScorer {
	return &TextScorer{
		docFreq:           make(map[string]int),
		totalDocs:         1,
		titleWeight:       0.4,
		descriptionWeight: 0.6,
	}
}

// BuildDocumentFrequencies rebuilds the corpus document-frequency table.
// Each work contributes one document combining title, subtitle and
// description; a term's frequency is the number of documents containing it.
func (s *TextScorer) BuildDocumentFrequencies(works []models.Work) {
	df := make(map[string]int)
	for i := range works {
		doc := works[i].Title + " " + works[i].Subtitle + " " + works[i].Description
		seen := make(map[string]struct{})
		for _, term := range Tokenize(doc) {
			if _, dup := seen[term]; dup {
				continue
			}
			seen[term] = struct{}{}
			df[term]++
		}
	}

	total := len(works)
	if total < 1 {
		total = 1
	}

	s.mu.Lock()
	s.docFreq = df
	s.totalDocs = total
	s.mu.Unlock()
}

// CorpusSize returns the number of documents in the frequency table.
func (s *TextScorer) CorpusSize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalDocs
}

// tfidfVector builds the TF-IDF vector for a token list.
// Terms unseen in the corpus default to df=1.
func (s *TextScorer) tfidfVector(tokens []string) map[string]float64 {
	if len(tokens) == 0 {
		return nil
	}

	counts := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		counts[tok]++
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	vec := make(map[string]float64, len(counts))
	for term, count := range counts {
		tf := float64(count) / float64(len(tokens))
		df := s.docFreq[term]
		if df < 1 {
			df = 1
		}
		vec[term] = tf * math.Log(float64(s.totalDocs)/float64(df))
	}
	return vec
}

// Similarity computes the cosine similarity of two texts' TF-IDF vectors.
// Returns 0 when either text is empty or tokenizes to nothing.
func (s *TextScorer) Similarity(text1, text2 string) float64 {
	if text1 == "" || text2 == "" {
		return 0
	}

	v1 := s.tfidfVector(Tokenize(text1))
	v2 := s.tfidfVector(Tokenize(text2))
	if len(v1) == 0 || len(v2) == 0 {
		return 0
	}

	var dot, norm1, norm2 float64
	for term, w1 := range v1 {
		norm1 += w1 * w1
		if w2, ok := v2[term]; ok {
			dot += w1 * w2
		}
	}
	for _, w2 := range v2 {
		norm2 += w2 * w2
	}

	if norm1 == 0 || norm2 == 0 {
		return 0
	}
	return dot / (math.Sqrt(norm1) * math.Sqrt(norm2))
}

// WorkSimilarity combines title and description similarity of two works.
// Title similarity includes subtitles and carries weight 0.4; description
// similarity carries weight 0.6.
func (s *TextScorer) WorkSimilarity(a, b *models.Work) float64 {
	titleA := strings.TrimSpace(a.Title + " " + a.Subtitle)
	titleB := strings.TrimSpace(b.Title + " " + b.Subtitle)

	titleSim := s.Similarity(titleA, titleB)
	descSim := s.Similarity(a.Description, b.Description)

	return s.titleWeight*titleSim + s.descriptionWeight*descSim
}

// KeyPhrase is an n-gram with its occurrence count.
type KeyPhrase struct {
	Phrase string `json:"phrase"`
	Count  int    `json:"count"`
}

// ExtractKeyPhrases mines the most frequent bigrams and trigrams from a
// text, returning up to limit phrases ordered by count descending.
func ExtractKeyPhrases(text string, limit int) []KeyPhrase {
	tokens := Tokenize(text)
	counts := make(map[string]int)

	for n := 2; n <= 3; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			counts[strings.Join(tokens[i:i+n], " ")]++
		}
	}

	phrases := make([]KeyPhrase, 0, len(counts))
	for phrase, count := range counts {
		phrases = append(phrases, KeyPhrase{Phrase: phrase, Count: count})
	}

	sort.SliceStable(phrases, func(i, j int) bool {
		if phrases[i].Count != phrases[j].Count {
			return phrases[i].Count > phrases[j].Count
		}
		return phrases[i].Phrase < phrases[j].Phrase
	})

	if limit > 0 && len(phrases) > limit {
		phrases = phrases[:limit]
	}
	return phrases
}

var sentenceEndRe = regexp.MustCompile(`[.!?]+`)

// ReadingComplexity scores a text's reading difficulty in [0, 1] using a
// Flesch-style formula: 0 is trivially readable, 1 is maximally dense.
// Empty text scores 0.
func ReadingComplexity(text string) float64 {
	words := strings.Fields(text)
	if len(words) == 0 {
		return 0
	}

	sentences := sentenceEndRe.Split(text, -1)
	sentenceCount := 0
	for _, sent := range sentences {
		if strings.TrimSpace(sent) != "" {
			sentenceCount++
		}
	}
	if sentenceCount == 0 {
		sentenceCount = 1
	}

	syllables := 0
	for _, word := range words {
		syllables += countSyllables(word)
	}

	wordsPerSentence := float64(len(words)) / float64(sentenceCount)
	syllablesPerWord := float64(syllables) / float64(len(words))

	// Flesch reading ease, inverted and clamped to [0, 1]
	ease := 206.835 - 1.015*wordsPerSentence - 84.6*syllablesPerWord
	complexity := 1 - ease/100
	if complexity < 0 {
		return 0
	}
	if complexity > 1 {
		return 1
	}
	return complexity
}

// countSyllables estimates syllables by counting vowel groups, with a
// silent trailing-e adjustment. Every word counts at least one syllable.
func countSyllables(word string) int {
	word = strings.ToLower(nonWordRe.ReplaceAllString(word, ""))
	if word == "" {
		return 0
	}

	count := 0
	prevVowel := false
	for _, r := range word {
		vowel := strings.ContainsRune("aeiouy", r)
		if vowel && !prevVowel {
			count++
		}
		prevVowel = vowel
	}

	if strings.HasSuffix(word, "e") && !strings.HasSuffix(word, "le") && count > 1 {
		count--
	}

	if count < 1 {
		count = 1
	}
	return count
}
