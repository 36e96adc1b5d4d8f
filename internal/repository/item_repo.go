package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// ItemRepo reads and writes the classification columns of videos and
// playlists, their links and the feedback log.
type ItemRepo struct {
	q querier
}

func NewItemRepo(pool *pgxpool.Pool) *ItemRepo {
	return &ItemRepo{q: pool}
}

const (
	stateColumns = `category, classification_source, COALESCE(is_human_validated, FALSE),
		classification_confidence, classification_date`

	// autoGuard keeps automatic writes off human-validated rows.
	autoGuard = `(is_human_validated = FALSE OR is_human_validated IS NULL)`
	// propagationGuard keeps propagation off directly human-labelled rows.
	propagationGuard = `classification_source <> 'human'`
)

func scanState(row pgx.Row, dest ...any) (model.ClassificationState, error) {
	var st model.ClassificationState
	var cat, src string
	all := append(dest, &cat, &src, &st.HumanValidated, &st.Confidence, &st.Date)
	if err := row.Scan(all...); err != nil {
		return st, err
	}
	st.Category = model.Category(cat)
	st.Source = model.Source(src)
	return st.Normalize(), nil
}

// GetItem loads a video or playlist with its text and classification state.
func (r *ItemRepo) GetItem(ctx context.Context, t model.Target) (model.Item, error) {
	var query string
	switch t.Type {
	case model.TargetVideo:
		query = `SELECT video_id, competitor_id, title, description, ` + stateColumns + `
			FROM video WHERE id = $1`
	case model.TargetPlaylist:
		query = `SELECT playlist_id, competitor_id, name, description, ` + stateColumns + `
			FROM playlist WHERE id = $1`
	default:
		return model.Item{}, fmt.Errorf("%w: unknown target type %q", model.ErrValidation, t.Type)
	}

	it := model.Item{Target: t}
	st, err := scanState(r.q.QueryRow(ctx, query, t.ID), &it.ExternalID, &it.CompetitorID, &it.Title, &it.Description)
	if err != nil {
		return model.Item{}, notFound(err, t.String())
	}
	it.State = st
	return it, nil
}

// UpdateAuto writes an automatic result unless the row is human-validated.
// It reports whether the row was written.
func (r *ItemRepo) UpdateAuto(ctx context.Context, t model.Target, st model.ClassificationState) (bool, error) {
	table, err := tableFor(t.Type)
	if err != nil {
		return false, err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE `+table+`
		SET category = $2, classification_source = $3, is_human_validated = FALSE,
		    classification_confidence = $4, classification_date = $5
		WHERE id = $1 AND `+autoGuard,
		t.ID, string(st.Category), string(st.Source), st.Confidence, st.Date)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdatePropagated writes a label inherited from a playlist unless the
// video was labelled by hand.
func (r *ItemRepo) UpdatePropagated(ctx context.Context, videoID int64, st model.ClassificationState) (bool, error) {
	tag, err := r.q.Exec(ctx, `
		UPDATE video
		SET category = $2, classification_source = $3, is_human_validated = $4,
		    classification_confidence = $5, classification_date = $6
		WHERE id = $1 AND `+propagationGuard,
		videoID, string(st.Category), string(st.Source), st.HumanValidated, st.Confidence, st.Date)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkHuman writes a human label and appends its feedback row in one
// transaction. It returns the state the row had before.
func (r *ItemRepo) MarkHuman(ctx context.Context, m model.HumanMark) (model.ClassificationState, model.Feedback, error) {
	table, err := tableFor(m.Target.Type)
	if err != nil {
		return model.ClassificationState{}, model.Feedback{}, err
	}

	var prev model.ClassificationState
	var fb model.Feedback
	err = inTx(ctx, r.q, func(tx pgx.Tx) error {
		prev, err = scanState(tx.QueryRow(ctx,
			`SELECT `+stateColumns+` FROM `+table+` WHERE id = $1 FOR UPDATE`, m.Target.ID))
		if err != nil {
			return notFound(err, m.Target.String())
		}

		_, err = tx.Exec(ctx, `
			UPDATE `+table+`
			SET category = $2, classification_source = 'human', is_human_validated = TRUE,
			    classification_confidence = 100, classification_date = $3
			WHERE id = $1`,
			m.Target.ID, string(m.Category), m.At)
		if err != nil {
			return err
		}

		fb = model.Feedback{
			Target:             m.Target,
			OriginalCategory:   prev.Category,
			CorrectedCategory:  m.Category,
			OriginalConfidence: prev.Confidence,
			Type:               m.Type,
			UserNotes:          m.Notes,
		}
		if fb.Type == "" {
			fb.Type = model.DeriveFeedbackType(prev.Category, m.Category)
		}
		return tx.QueryRow(ctx, `
			INSERT INTO feedback (target_type, target_id, original_category, corrected_category,
			                      original_confidence, feedback_type, user_notes, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at`,
			string(m.Target.Type), m.Target.ID, string(fb.OriginalCategory), string(fb.CorrectedCategory),
			fb.OriginalConfidence, string(fb.Type), fb.UserNotes, m.At,
		).Scan(&fb.ID, &fb.CreatedAt)
	})
	return prev, fb, err
}

// PlaylistVideoIDs returns the local ids of a playlist's member videos.
func (r *ItemRepo) PlaylistVideoIDs(ctx context.Context, playlistID int64) ([]int64, error) {
	rows, err := r.q.Query(ctx, `
		SELECT video_id FROM playlist_video
		WHERE playlist_id = $1
		ORDER BY position, video_id`, playlistID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// ReplacePlaylistLinks swaps a playlist's member set for videoIDs.
func (r *ItemRepo) ReplacePlaylistLinks(ctx context.Context, playlistID int64, videoIDs []int64) (int, error) {
	seen := make(map[int64]bool, len(videoIDs))
	src := make([][]any, 0, len(videoIDs))
	for _, id := range videoIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		src = append(src, []any{playlistID, id, len(src)})
	}

	var n int64
	err := inTx(ctx, r.q, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM playlist_video WHERE playlist_id = $1`, playlistID); err != nil {
			return err
		}
		var err error
		n, err = tx.CopyFrom(ctx, pgx.Identifier{"playlist_video"},
			[]string{"playlist_id", "video_id", "position"}, pgx.CopyFromRows(src))
		return err
	})
	return int(n), err
}

// ResolveVideoIDs maps YouTube video ids to local ids, keeping the input
// order. Unknown ids are dropped.
func (r *ItemRepo) ResolveVideoIDs(ctx context.Context, youtubeIDs []string) ([]int64, error) {
	if len(youtubeIDs) == 0 {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `SELECT id, video_id FROM video WHERE video_id = ANY($1)`, youtubeIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	local := make(map[string]int64, len(youtubeIDs))
	for rows.Next() {
		var id int64
		var ext string
		if err := rows.Scan(&id, &ext); err != nil {
			return nil, err
		}
		local[ext] = id
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]int64, 0, len(local))
	for _, ext := range youtubeIDs {
		if id, ok := local[ext]; ok {
			out = append(out, id)
		}
	}
	return out, nil
}

// CompetitorIDs lists every tracked competitor.
func (r *ItemRepo) CompetitorIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.q.Query(ctx, `SELECT id FROM competitor ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

// CompetitorTargets lists a competitor's playlists, then its videos.
func (r *ItemRepo) CompetitorTargets(ctx context.Context, competitorID int64) ([]model.Target, error) {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM competitor WHERE id = $1)`, competitorID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: competitor %d", model.ErrNotFound, competitorID)
	}

	rows, err := r.q.Query(ctx, `
		SELECT 'playlist', id FROM playlist WHERE competitor_id = $1
		UNION ALL
		SELECT 'video', id FROM video WHERE competitor_id = $1
		ORDER BY 1, 2`, competitorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Target
	for rows.Next() {
		var t model.Target
		var typ string
		if err := rows.Scan(&typ, &t.ID); err != nil {
			return nil, err
		}
		t.Type = model.TargetType(typ)
		out = append(out, t)
	}
	return out, rows.Err()
}

// Snapshot reads videos, playlists and links in one repeatable-read
// transaction.
func (r *ItemRepo) Snapshot(ctx context.Context) (model.Snapshot, error) {
	var snap model.Snapshot
	err := inTx(ctx, r.q, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SET TRANSACTION ISOLATION LEVEL REPEATABLE READ READ ONLY`); err != nil {
			return err
		}

		rows, err := tx.Query(ctx, `SELECT id, duration_seconds, is_short, `+stateColumns+` FROM video ORDER BY id`)
		if err != nil {
			return err
		}
		for rows.Next() {
			var v model.StoredVideo
			if v.State, err = scanState(rows, &v.ID, &v.DurationSeconds, &v.IsShort); err != nil {
				rows.Close()
				return err
			}
			snap.Videos = append(snap.Videos, v)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `SELECT id, `+stateColumns+` FROM playlist ORDER BY id`)
		if err != nil {
			return err
		}
		for rows.Next() {
			var p model.StoredPlaylist
			if p.State, err = scanState(rows, &p.ID); err != nil {
				rows.Close()
				return err
			}
			snap.Playlists = append(snap.Playlists, p)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		rows, err = tx.Query(ctx, `SELECT playlist_id, video_id FROM playlist_video ORDER BY playlist_id, video_id`)
		if err != nil {
			return err
		}
		snap.Links, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.PlaylistVideo, error) {
			var l model.PlaylistVideo
			err := row.Scan(&l.PlaylistID, &l.VideoID)
			return l, err
		})
		return err
	})
	return snap, err
}

// FixHumanConfidence sets confidence 100 on directly human-labelled rows.
func (r *ItemRepo) FixHumanConfidence(ctx context.Context, t model.TargetType, ids []int64) (int, error) {
	table, err := tableFor(t)
	if err != nil {
		return 0, err
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE `+table+` SET classification_confidence = 100
		WHERE id = ANY($1) AND classification_source = 'human'`, ids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// DeleteLinks removes the given playlist/video pairs.
func (r *ItemRepo) DeleteLinks(ctx context.Context, links []model.PlaylistVideo) (int, error) {
	if len(links) == 0 {
		return 0, nil
	}
	pls := make([]int64, len(links))
	vids := make([]int64, len(links))
	for i, l := range links {
		pls[i], vids[i] = l.PlaylistID, l.VideoID
	}
	tag, err := r.q.Exec(ctx, `
		DELETE FROM playlist_video pv
		USING unnest($1::bigint[], $2::bigint[]) AS o(playlist_id, video_id)
		WHERE pv.playlist_id = o.playlist_id AND pv.video_id = o.video_id`, pls, vids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// SyncShortFlags recomputes is_short from the duration for the given videos.
func (r *ItemRepo) SyncShortFlags(ctx context.Context, ids []int64, threshold int) (int, error) {
	if threshold <= 0 {
		threshold = model.DefaultShortsThreshold
	}
	tag, err := r.q.Exec(ctx, `
		UPDATE video SET is_short = (duration_seconds <= $2)
		WHERE id = ANY($1)`, ids, threshold)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ClassificationCounts groups rows by target type and source.
func (r *ItemRepo) ClassificationCounts(ctx context.Context) ([]model.SourceRow, error) {
	rows, err := r.q.Query(ctx, `
		SELECT 'video', classification_source, COUNT(*),
		       COUNT(*) FILTER (WHERE is_human_validated)
		FROM video GROUP BY classification_source
		UNION ALL
		SELECT 'playlist', classification_source, COUNT(*),
		       COUNT(*) FILTER (WHERE is_human_validated)
		FROM playlist GROUP BY classification_source
		ORDER BY 1, 3 DESC`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.SourceRow, error) {
		var s model.SourceRow
		var typ, src string
		err := row.Scan(&typ, &src, &s.Count, &s.HumanValidated)
		s.Type, s.Source = model.TargetType(typ), model.Source(src)
		return s, err
	})
}

// ListFeedback returns the feedback log, oldest first.
func (r *ItemRepo) ListFeedback(ctx context.Context) ([]model.Feedback, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, target_type, target_id, original_category, corrected_category,
		       original_confidence, feedback_type, user_notes, created_at
		FROM feedback ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Feedback, error) {
		var f model.Feedback
		var typ, orig, corr, fbType string
		err := row.Scan(&f.ID, &typ, &f.Target.ID, &orig, &corr,
			&f.OriginalConfidence, &fbType, &f.UserNotes, &f.CreatedAt)
		f.Target.Type = model.TargetType(typ)
		f.OriginalCategory, f.CorrectedCategory = model.Category(orig), model.Category(corr)
		f.Type = model.FeedbackType(fbType)
		return f, err
	})
}

// InTx runs fn against a copy of the repo bound to one transaction.
func (r *ItemRepo) InTx(ctx context.Context, fn func(*ItemRepo) error) error {
	return inTx(ctx, r.q, func(tx pgx.Tx) error {
		return fn(&ItemRepo{q: tx})
	})
}
