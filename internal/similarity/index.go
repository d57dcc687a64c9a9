package similarity

import (
	"sort"
	"sync"
)

// Match is one index hit.
type Match struct {
	ID    string  `json:"id"`
	Score float64 `json:"score"`
	Label string  `json:"label,omitempty"`
}

type indexEntry struct {
	id     string
	label  string
	vector []float64
}

// Index is an in-memory brute-force vector index. It is small by design:
// the reference corpus holds confirmed scam entities, not the whole
// dataset, so a linear scan per query is fine.
type Index struct {
	mu      sync.RWMutex
	entries []indexEntry
}

// NewIndex creates an empty index.
func NewIndex() *Index { return &Index{} }

// Add inserts a vector under an id with an optional label.
func (ix *Index) Add(id, label string, vector []float64) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.entries = append(ix.entries, indexEntry{id: id, label: label, vector: vector})
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Query returns the topK most similar entries by cosine similarity, best
// first.
func (ix *Index) Query(vector []float64, topK int) []Match {
	if topK <= 0 {
		return nil
	}

	ix.mu.RLock()
	matches := make([]Match, 0, len(ix.entries))
	for _, e := range ix.entries {
		matches = append(matches, Match{
			ID:    e.id,
			Label: e.label,
			Score: Cosine(vector, e.vector),
		})
	}
	ix.mu.RUnlock()

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}
