package services

import (
	"strings"
)

// TextAnalyzer tokenizes event content for similarity comparison
type TextAnalyzer struct{}

// NewTextAnalyzer creates a new text analyzer
func NewTextAnalyzer() *TextAnalyzer {
	return &TextAnalyzer{}
}

// Tokenize splits text into a set of lower-cased whitespace-separated tokens
func (a *TextAnalyzer) Tokenize(text string) map[string]bool {
	tokens := make(map[string]bool)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		tokens[word] = true
	}
	return tokens
}

// JaccardSimilarity calculates |A ∩ B| / |A ∪ B| over two token sets
func (a *TextAnalyzer) JaccardSimilarity(set1, set2 map[string]bool) float64 {
	if len(set1) == 0 && len(set2) == 0 {
		return 0.0
	}

	intersection := 0
	union := len(set2)
	for token := range set1 {
		if set2[token] {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}

// ContentSimilarity tokenizes both texts and returns their Jaccard similarity
func (a *TextAnalyzer) ContentSimilarity(text1, text2 string) float64 {
	return a.JaccardSimilarity(a.Tokenize(text1), a.Tokenize(text2))
}
