package qa

import (
	"context"
	"time"
)

// QARecord is one answered question harvested from a chat thread.
type QARecord struct {
	QuestionText string    `json:"questionText"`
	AnswerText   string    `json:"answerText"`
	AnswererName string    `json:"answererName"`
	AnswererID   string    `json:"answererId,omitempty"`
	AnswerTime   time.Time `json:"answerTime"`
	ChatID       string    `json:"chatId"`
	RootID       string    `json:"rootId"`
	ThreadID     string    `json:"threadId"`
}

// Candidate pairs a stored record with its derived similarity score.
type Candidate struct {
	Record QARecord `json:"record"`
	Score  float64  `json:"score"`
}

// SelectionPolicy decides between several qualifying candidates.
type SelectionPolicy string

const (
	// PolicySimilarity keeps the numerically best score.
	PolicySimilarity SelectionPolicy = "similarity"
	// PolicyRecency keeps the most recently answered record.
	PolicyRecency SelectionPolicy = "recency"
	// PolicyLongest keeps the record with the longest accumulated answer.
	PolicyLongest SelectionPolicy = "longest"
)

// Embedder maps text to a fixed-dimension L2-normalized vector. The same
// instance must serve both index and query paths; scores are meaningless
// across embedding spaces.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// IndexEntry is the unit the backing vector index stores per record.
type IndexEntry struct {
	ID        string
	Record    QARecord
	Embedding []float32
}

// DistanceMatch is a nearest-neighbour hit with its raw Euclidean distance.
// Distance lies in [0, 2] for unit-normalized vectors.
type DistanceMatch struct {
	Entry    IndexEntry
	Distance float64
}

// VectorIndex abstracts the append/delete-only vector database. There is no
// in-place update; logical updates go through DeleteByID + Insert.
type VectorIndex interface {
	Insert(ctx context.Context, entry IndexEntry) error
	DeleteByID(ctx context.Context, id string) error
	// FindByRoot returns the entry for a thread root, embedding included.
	FindByRoot(ctx context.Context, rootID string) (IndexEntry, bool, error)
	// Nearest returns up to topK entries ordered nearest-first. An empty
	// chatID means unrestricted search across all scopes.
	Nearest(ctx context.Context, embedding []float32, chatID string, topK int) ([]DistanceMatch, error)
}

// Config holds runtime knobs for the store.
type Config struct {
	SimilarityThreshold float64
	TopK                int
	MaxAnswerRunes      int
}
