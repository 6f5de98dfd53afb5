package qaindex

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/yanqian/answered-once/internal/domain/qa"
)

// MemoryIndex is an in-memory qa.VectorIndex for tests and credential-less
// development. Search is a linear scan.
type MemoryIndex struct {
	mu      sync.RWMutex
	entries map[string]qa.IndexEntry
	byRoot  map[string]string
}

// NewMemoryIndex constructs an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		entries: make(map[string]qa.IndexEntry),
		byRoot:  make(map[string]string),
	}
}

// Insert implements qa.VectorIndex.
func (x *MemoryIndex) Insert(_ context.Context, entry qa.IndexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	entry.Embedding = append([]float32(nil), entry.Embedding...)
	x.entries[entry.ID] = entry
	if entry.Record.RootID != "" {
		x.byRoot[entry.Record.RootID] = entry.ID
	}
	return nil
}

// DeleteByID implements qa.VectorIndex.
func (x *MemoryIndex) DeleteByID(_ context.Context, id string) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	entry, ok := x.entries[id]
	if !ok {
		return nil
	}
	delete(x.entries, id)
	if current, ok := x.byRoot[entry.Record.RootID]; ok && current == id {
		delete(x.byRoot, entry.Record.RootID)
	}
	return nil
}

// FindByRoot implements qa.VectorIndex.
func (x *MemoryIndex) FindByRoot(_ context.Context, rootID string) (qa.IndexEntry, bool, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	id, ok := x.byRoot[rootID]
	if !ok {
		return qa.IndexEntry{}, false, nil
	}
	return x.entries[id], true, nil
}

// Nearest implements qa.VectorIndex with Euclidean distance, nearest first.
func (x *MemoryIndex) Nearest(_ context.Context, embedding []float32, chatID string, topK int) ([]qa.DistanceMatch, error) {
	if topK <= 0 {
		topK = 1
	}
	x.mu.RLock()
	defer x.mu.RUnlock()

	matches := make([]qa.DistanceMatch, 0, len(x.entries))
	for _, entry := range x.entries {
		if chatID != "" && entry.Record.ChatID != chatID {
			continue
		}
		matches = append(matches, qa.DistanceMatch{
			Entry:    entry,
			Distance: euclideanDistance(embedding, entry.Embedding),
		})
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func euclideanDistance(a, b []float32) float64 {
	length := len(a)
	if len(b) < length {
		length = len(b)
	}
	var sum float64
	for i := 0; i < length; i++ {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}

var _ qa.VectorIndex = (*MemoryIndex)(nil)
