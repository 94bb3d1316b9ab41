package tagger

import (
	"sort"
	"sync"
)

// VectorItem is one trained example inside the similarity index: its sparse
// vector and the tag set the user confirmed for it.
type VectorItem struct {
	Tags   []string
	Vector SparseVector
}

// Hit is a scored neighbor returned by a search.
type Hit struct {
	Index int
	Score float64
	Tags  []string
}

// InMemoryIndex is a brute-force similarity index over sparse TF-IDF vectors.
type InMemoryIndex struct {
	mu    sync.RWMutex
	items []VectorItem
}

// NewInMemoryIndex constructs an empty index.
func NewInMemoryIndex() *InMemoryIndex {
	return &InMemoryIndex{}
}

// Replace swaps the stored items atomically.
func (idx *InMemoryIndex) Replace(items []VectorItem) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.items = make([]VectorItem, len(items))
	copy(idx.items, items)
}

// Size returns the current number of vectors stored.
func (idx *InMemoryIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.items)
}

// Search scores every stored item against vec and returns the top-k hits,
// highest similarity first. Ties break on insertion order so results are
// stable across runs.
func (idx *InMemoryIndex) Search(vec SparseVector, k int) []Hit {
	idx.mu.RLock()
	items := idx.items
	idx.mu.RUnlock()
	if len(items) == 0 || len(vec) == 0 || k <= 0 {
		return nil
	}
	hits := make([]Hit, 0, len(items))
	for i, it := range items {
		hits = append(hits, Hit{
			Index: i,
			Score: vec.Dot(it.Vector),
			Tags:  it.Tags,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score == hits[j].Score {
			return hits[i].Index < hits[j].Index
		}
		return hits[i].Score > hits[j].Score
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
