package qaindex

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"

	"github.com/yanqian/answered-once/internal/domain/qa"
)

// PostgresIndex implements qa.VectorIndex on Postgres with the pgvector
// extension. The table is append/delete-only; there are no UPDATEs.
type PostgresIndex struct {
	pool *pgxpool.Pool
}

// NewPostgresIndex constructs the index.
func NewPostgresIndex(pool *pgxpool.Pool) *PostgresIndex {
	return &PostgresIndex{pool: pool}
}

// EnsureSchema creates the extension, table, and lookup indexes if absent.
// dim must match the embedding model's output dimension.
func (x *PostgresIndex) EnsureSchema(ctx context.Context, dim int) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS qa_records (
			id UUID PRIMARY KEY,
			question_text TEXT NOT NULL,
			answer_text TEXT NOT NULL,
			answerer_name TEXT NOT NULL DEFAULT '',
			answerer_id TEXT NOT NULL DEFAULT '',
			answer_time TIMESTAMPTZ NOT NULL,
			chat_id TEXT NOT NULL,
			root_id TEXT NOT NULL,
			thread_id TEXT NOT NULL,
			embedding vector(` + strconv.Itoa(dim) + `) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS qa_records_root_idx ON qa_records (root_id)`,
		`CREATE INDEX IF NOT EXISTS qa_records_chat_idx ON qa_records (chat_id)`,
	}
	for _, stmt := range statements {
		if _, err := x.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Insert implements qa.VectorIndex.
func (x *PostgresIndex) Insert(ctx context.Context, entry qa.IndexEntry) error {
	_, err := x.pool.Exec(ctx, `
		INSERT INTO qa_records (id, question_text, answer_text, answerer_name, answerer_id, answer_time, chat_id, root_id, thread_id, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.Record.QuestionText, entry.Record.AnswerText, entry.Record.AnswererName, entry.Record.AnswererID,
		entry.Record.AnswerTime, entry.Record.ChatID, entry.Record.RootID, entry.Record.ThreadID, pgvector.NewVector(entry.Embedding))
	return err
}

// DeleteByID implements qa.VectorIndex.
func (x *PostgresIndex) DeleteByID(ctx context.Context, id string) error {
	_, err := x.pool.Exec(ctx, `DELETE FROM qa_records WHERE id = $1`, id)
	return err
}

// FindByRoot implements qa.VectorIndex; the stored embedding is included so
// merges can reinsert without re-embedding.
func (x *PostgresIndex) FindByRoot(ctx context.Context, rootID string) (qa.IndexEntry, bool, error) {
	row := x.pool.QueryRow(ctx, `
		SELECT id, question_text, answer_text, answerer_name, answerer_id, answer_time, chat_id, root_id, thread_id, embedding
		FROM qa_records
		WHERE root_id = $1
		LIMIT 1
	`, rootID)

	var (
		entry qa.IndexEntry
		vec   pgvector.Vector
	)
	err := row.Scan(&entry.ID, &entry.Record.QuestionText, &entry.Record.AnswerText, &entry.Record.AnswererName,
		&entry.Record.AnswererID, &entry.Record.AnswerTime, &entry.Record.ChatID, &entry.Record.RootID,
		&entry.Record.ThreadID, &vec)
	if err != nil {
		if err == pgx.ErrNoRows {
			return qa.IndexEntry{}, false, nil
		}
		return qa.IndexEntry{}, false, err
	}
	entry.Embedding = vec.Slice()
	return entry, true, nil
}

// Nearest implements qa.VectorIndex using pgvector's `<->` operator, which
// returns Euclidean distance (in [0, 2] for unit vectors).
func (x *PostgresIndex) Nearest(ctx context.Context, embedding []float32, chatID string, topK int) ([]qa.DistanceMatch, error) {
	if topK <= 0 {
		topK = 1
	}
	query := `
		SELECT id, question_text, answer_text, answerer_name, answerer_id, answer_time, chat_id, root_id, thread_id, embedding <-> $1 AS distance
		FROM qa_records`
	args := []any{pgvector.NewVector(embedding)}
	if chatID != "" {
		query += ` WHERE chat_id = $2`
		args = append(args, chatID)
	}
	query += ` ORDER BY embedding <-> $1 LIMIT ` + strconv.Itoa(topK)

	rows, err := x.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []qa.DistanceMatch
	for rows.Next() {
		var match qa.DistanceMatch
		rec := &match.Entry.Record
		if err := rows.Scan(&match.Entry.ID, &rec.QuestionText, &rec.AnswerText, &rec.AnswererName, &rec.AnswererID,
			&rec.AnswerTime, &rec.ChatID, &rec.RootID, &rec.ThreadID, &match.Distance); err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}

var _ qa.VectorIndex = (*PostgresIndex)(nil)
