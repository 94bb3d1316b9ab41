package tagger

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// stopWords is the list of common English words excluded from the vocabulary.
var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again all also am an and any are as at be because
been before being below between both but by can did do does doing down
during each few for from further had has have having he her here hers him
his how i if in into is it its itself just me more most my no nor not now
of off on once only or other our ours out over own same she should so some
such than that the their theirs them then there these they this those
through to too under until up very was we were what when where which while
who whom why will with would you your yours`) {
		stopWords[w] = struct{}{}
	}
}

// SparseVector is an L2-normalized term-weight vector keyed by vocabulary
// column index.
type SparseVector map[int]float64

// Dot returns the inner product of two vectors. For normalized vectors this
// is the cosine similarity.
func (v SparseVector) Dot(other SparseVector) float64 {
	if len(other) < len(v) {
		v, other = other, v
	}
	var sum float64
	for i, w := range v {
		sum += w * other[i]
	}
	return sum
}

// Vectorizer builds TF-IDF vectors over a bounded vocabulary. The vocabulary
// is chosen deterministically: terms ranked by corpus frequency with a
// lexicographic tiebreak, columns assigned in lexicographic order.
type Vectorizer struct {
	maxFeatures int
	vocab       map[string]int
	idf         []float64
}

func newVectorizer(maxFeatures int) *Vectorizer {
	if maxFeatures <= 0 {
		maxFeatures = 100
	}
	return &Vectorizer{maxFeatures: maxFeatures}
}

// Fit learns the vocabulary and inverse document frequencies from texts.
func (v *Vectorizer) Fit(texts []string) {
	corpusCount := make(map[string]int)
	docCount := make(map[string]int)
	for _, text := range texts {
		tokens := tokenize(text)
		seen := make(map[string]struct{})
		for _, tok := range tokens {
			corpusCount[tok]++
			if _, ok := seen[tok]; !ok {
				seen[tok] = struct{}{}
				docCount[tok]++
			}
		}
	}

	terms := make([]string, 0, len(corpusCount))
	for term := range corpusCount {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if corpusCount[terms[i]] != corpusCount[terms[j]] {
			return corpusCount[terms[i]] > corpusCount[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > v.maxFeatures {
		terms = terms[:v.maxFeatures]
	}
	sort.Strings(terms)

	v.vocab = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	n := float64(len(texts))
	for i, term := range terms {
		v.vocab[term] = i
		// Smoothed IDF: every term behaves as if seen in one extra document.
		v.idf[i] = math.Log((1+n)/(1+float64(docCount[term]))) + 1
	}
}

// Transform vectorizes text with the fitted vocabulary. Out-of-vocabulary
// terms contribute nothing; an untrained vectorizer yields an empty vector.
func (v *Vectorizer) Transform(text string) SparseVector {
	vec := make(SparseVector)
	if len(v.vocab) == 0 {
		return vec
	}
	for _, tok := range tokenize(text) {
		if col, ok := v.vocab[tok]; ok {
			vec[col] += v.idf[col]
		}
	}
	var norm float64
	for _, w := range vec {
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for col := range vec {
			vec[col] /= norm
		}
	}
	return vec
}

// tokenize lowercases text and extracts word tokens of two or more
// characters, dropping stop words.
func tokenize(text string) []string {
	text = strings.ToLower(NormalizeText(text))
	var tokens []string
	var b strings.Builder
	flush := func() {
		if b.Len() >= 2 {
			tok := b.String()
			if _, stop := stopWords[tok]; !stop {
				tokens = append(tokens, tok)
			}
		}
		b.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			continue
		}
		flush()
	}
	flush()
	return tokens
}
