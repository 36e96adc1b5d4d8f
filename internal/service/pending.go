package service

import (
	"sort"
	"sync"

	"github.com/trasimenes/yt-channel-analyzer-sub001/internal/model"
)

// pendingSet collapses repeated notifications for one target.
type pendingSet struct {
	mu    sync.Mutex
	items map[model.Target]struct{}
}

func newPendingSet() *pendingSet {
	return &pendingSet{items: make(map[model.Target]struct{})}
}

func (p *pendingSet) add(t model.Target) {
	p.mu.Lock()
	p.items[t] = struct{}{}
	p.mu.Unlock()
}

func (p *pendingSet) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}

// drain swaps out the set and returns its targets, playlists first.
func (p *pendingSet) drain() []model.Target {
	p.mu.Lock()
	batch := p.items
	p.items = make(map[model.Target]struct{})
	p.mu.Unlock()

	out := make([]model.Target, 0, len(batch))
	for t := range batch {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == model.TargetPlaylist
		}
		return out[i].ID < out[j].ID
	})
	return out
}
