package service

import (
	"context"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/repository"
)

// Items is the storage surface the engine writes through. Auto writes and
// propagation writes carry their guards in the store itself, so a
// concurrent human mark always wins.
type Items interface {
	GetItem(ctx context.Context, t model.Target) (model.Item, error)
	UpdateAuto(ctx context.Context, t model.Target, st model.ClassificationState) (bool, error)
	UpdatePropagated(ctx context.Context, videoID int64, st model.ClassificationState) (bool, error)
	MarkHuman(ctx context.Context, m model.HumanMark) (model.ClassificationState, model.Feedback, error)

	PlaylistVideoIDs(ctx context.Context, playlistID int64) ([]int64, error)
	ReplacePlaylistLinks(ctx context.Context, playlistID int64, videoIDs []int64) (int, error)
	ResolveVideoIDs(ctx context.Context, youtubeIDs []string) ([]int64, error)

	CompetitorIDs(ctx context.Context) ([]int64, error)
	CompetitorTargets(ctx context.Context, competitorID int64) ([]model.Target, error)

	Snapshot(ctx context.Context) (model.Snapshot, error)
	FixHumanConfidence(ctx context.Context, t model.TargetType, ids []int64) (int, error)
	DeleteLinks(ctx context.Context, links []model.PlaylistVideo) (int, error)
	SyncShortFlags(ctx context.Context, ids []int64, threshold int) (int, error)

	ClassificationCounts(ctx context.Context) ([]model.SourceRow, error)
	ListFeedback(ctx context.Context) ([]model.Feedback, error)
}

// Store is Items plus transactions.
type Store interface {
	Items
	InTx(ctx context.Context, fn func(Items) error) error
}

type pgStore struct {
	*repository.ItemRepo
}

// NewStore adapts the PostgreSQL item repository.
func NewStore(repo *repository.ItemRepo) Store {
	return pgStore{ItemRepo: repo}
}

func (s pgStore) InTx(ctx context.Context, fn func(Items) error) error {
	return s.ItemRepo.InTx(ctx, func(tx *repository.ItemRepo) error {
		return fn(tx)
	})
}
