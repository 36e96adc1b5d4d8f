package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

type PatternRepo struct {
	q querier
}

func NewPatternRepo(pool *pgxpool.Pool) *PatternRepo {
	return &PatternRepo{q: pool}
}

const patternColumns = `id, pattern_text, category, language, source, weight,
	reinforcement_count, last_reinforced`

func scanPattern(row pgx.CollectableRow) (model.Pattern, error) {
	var p model.Pattern
	var cat, lang, src string
	err := row.Scan(&p.ID, &p.Text, &cat, &lang, &src, &p.Weight, &p.ReinforcementCount, &p.LastReinforced)
	p.Category, p.Language, p.Source = model.Category(cat), model.Language(lang), model.PatternSource(src)
	return p, err
}

// ListPatterns returns rows for lang plus the language-neutral ones. An
// empty lang returns everything.
func (r *PatternRepo) ListPatterns(ctx context.Context, lang model.Language) ([]model.Pattern, error) {
	var rows pgx.Rows
	var err error
	if lang == "" {
		rows, err = r.q.Query(ctx, `SELECT `+patternColumns+` FROM pattern ORDER BY id`)
	} else {
		rows, err = r.q.Query(ctx, `
			SELECT `+patternColumns+` FROM pattern
			WHERE language = $1 OR language = 'all'
			ORDER BY id`, string(lang))
	}
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scanPattern)
}

// InsertPattern adds a row unless the triple already exists.
func (r *PatternRepo) InsertPattern(ctx context.Context, p model.Pattern) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO pattern (pattern_text, category, language, source, weight)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (pattern_text, category, language) DO NOTHING`,
		p.Text, string(p.Category), string(p.Language), string(p.Source), p.Weight)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ReinforcePattern upserts a learned row: new rows start at weight delta,
// existing ones gain delta and one reinforcement.
func (r *PatternRepo) ReinforcePattern(ctx context.Context, p model.Pattern, delta float64) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO pattern (pattern_text, category, language, source, weight,
		                     reinforcement_count, last_reinforced)
		VALUES ($1, $2, $3, $4, $5, 1, NOW())
		ON CONFLICT (pattern_text, category, language) DO UPDATE
		SET weight = pattern.weight + EXCLUDED.weight,
		    reinforcement_count = pattern.reinforcement_count + 1,
		    last_reinforced = NOW()`,
		p.Text, string(p.Category), string(p.Language), string(p.Source), delta)
	return err
}

func (r *PatternRepo) DeletePattern(ctx context.Context, category model.Category, text string, lang model.Language) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		DELETE FROM pattern
		WHERE pattern_text = $1 AND category = $2 AND language = $3`,
		text, string(category), string(lang))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MergePatterns folds duplicate rows into keep: weights and reinforcement
// counts are summed, the others deleted, and the kept text normalised.
func (r *PatternRepo) MergePatterns(ctx context.Context, keep int64, drop []int64) error {
	if len(drop) == 0 {
		return nil
	}
	return inTx(ctx, r.q, func(tx pgx.Tx) error {
		var weight float64
		var count int
		var last *time.Time
		err := tx.QueryRow(ctx, `
			SELECT COALESCE(SUM(weight), 0), COALESCE(SUM(reinforcement_count), 0), MAX(last_reinforced)
			FROM pattern WHERE id = ANY($1) AND id <> $2`, drop, keep).Scan(&weight, &count, &last)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM pattern WHERE id = ANY($1) AND id <> $2`, drop, keep); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE pattern
			SET pattern_text = lower(regexp_replace(btrim(pattern_text), '\s+', ' ', 'g')),
			    weight = weight + $2,
			    reinforcement_count = reinforcement_count + $3,
			    last_reinforced = GREATEST(last_reinforced, $4)
			WHERE id = $1`, keep, weight, count, last)
		return err
	})
}
