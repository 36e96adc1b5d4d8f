package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// ExemplarRepo persists the human exemplars behind the semantic
// prototypes, with their cached embeddings.
type ExemplarRepo struct {
	q querier
}

func NewExemplarRepo(pool *pgxpool.Pool) *ExemplarRepo {
	return &ExemplarRepo{q: pool}
}

func (r *ExemplarRepo) ListExemplars(ctx context.Context) ([]model.SemanticExemplar, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, category, language, text, source, embedding, created_at
		FROM semantic_exemplar ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SemanticExemplar, error) {
		var e model.SemanticExemplar
		var cat, lang string
		err := row.Scan(&e.ID, &cat, &lang, &e.Text, &e.Source, &e.Embedding, &e.CreatedAt)
		e.Category, e.Language = model.Category(cat), model.Language(lang)
		return e, err
	})
}

func (r *ExemplarRepo) InsertExemplar(ctx context.Context, e model.SemanticExemplar) (int64, error) {
	var id int64
	err := r.q.QueryRow(ctx, `
		INSERT INTO semantic_exemplar (category, language, text, source, embedding)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		string(e.Category), string(e.Language), e.Text, e.Source, e.Embedding).Scan(&id)
	return id, err
}

func (r *ExemplarRepo) SetExemplarEmbedding(ctx context.Context, id int64, embedding []float32) error {
	_, err := r.q.Exec(ctx, `UPDATE semantic_exemplar SET embedding = $2 WHERE id = $1`, id, embedding)
	return err
}

// CountExemplars reports how many human exemplars are stored per category.
func (r *ExemplarRepo) CountExemplars(ctx context.Context) (map[model.Category]int, error) {
	rows, err := r.q.Query(ctx, `SELECT category, COUNT(*) FROM semantic_exemplar GROUP BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[model.Category]int)
	for rows.Next() {
		var cat string
		var n int
		if err := rows.Scan(&cat, &n); err != nil {
			return nil, err
		}
		out[model.Category(cat)] = n
	}
	return out, rows.Err()
}
