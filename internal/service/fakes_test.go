package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pongarena/internal/model"
)

type fakeSessionCache struct {
	mu      sync.Mutex
	metas   map[string]model.SessionMeta
	players map[string]string
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{metas: map[string]model.SessionMeta{}, players: map[string]string{}}
}

func (c *fakeSessionCache) SetMeta(_ context.Context, meta *model.SessionMeta) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metas[meta.ID] = *meta
	return nil
}

func (c *fakeSessionCache) GetMeta(_ context.Context, id string) (*model.SessionMeta, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.metas[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (c *fakeSessionCache) SetStatus(_ context.Context, id string, status model.SessionStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.metas[id]
	if !ok {
		return fmt.Errorf("session %s not cached", id)
	}
	m.Status = status
	c.metas[id] = m
	return nil
}

func (c *fakeSessionCache) SetPlayerSession(_ context.Context, playerID, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.players[playerID] = sessionID
	return nil
}

func (c *fakeSessionCache) GetPlayerSession(_ context.Context, playerID string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.players[playerID], nil
}

func (c *fakeSessionCache) ClearPlayerSession(_ context.Context, playerID, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.players[playerID] == sessionID {
		delete(c.players, playerID)
	}
	return nil
}

type fakeLeaderboard struct {
	mu   sync.Mutex
	wins map[string]int64
}

func (l *fakeLeaderboard) AddWin(_ context.Context, playerID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.wins == nil {
		l.wins = map[string]int64{}
	}
	l.wins[playerID]++
	return nil
}

func (l *fakeLeaderboard) GetTop(_ context.Context, limit int) ([]model.LeaderboardEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.LeaderboardEntry
	for id, w := range l.wins {
		out = append(out, model.LeaderboardEntry{PlayerID: id, Wins: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Wins > out[j].Wins })
	if len(out) > limit {
		out = out[:limit]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

func (l *fakeLeaderboard) GetRank(ctx context.Context, playerID string) (int64, error) {
	l.mu.Lock()
	n := len(l.wins)
	l.mu.Unlock()
	top, _ := l.GetTop(ctx, n+1)
	for _, e := range top {
		if e.PlayerID == playerID {
			return int64(e.Rank), nil
		}
	}
	return -1, nil
}

type fakeMatchRepo struct {
	mu      sync.Mutex
	records []model.MatchRecord
}

func (r *fakeMatchRepo) Create(_ context.Context, record *model.MatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, *record)
	return nil
}

func (r *fakeMatchRepo) GetBySession(_ context.Context, sessionID string) (*model.MatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			return &rec, nil
		}
	}
	return nil, nil
}

func (r *fakeMatchRepo) ListByPlayer(_ context.Context, playerID string, limit int) ([]model.MatchRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.MatchRecord
	for _, rec := range r.records {
		for _, p := range rec.PlayerIDs {
			if p == playerID {
				out = append(out, rec)
			}
		}
	}
	return out, nil
}

func (r *fakeMatchRepo) all() []model.MatchRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.MatchRecord(nil), r.records...)
}

type fakeTournamentRepo struct {
	mu      sync.Mutex
	results map[string]model.BracketResult
}

func (r *fakeTournamentRepo) ReportResult(_ context.Context, result *model.BracketResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.results == nil {
		r.results = map[string]model.BracketResult{}
	}
	r.results[result.OriginMatchID] = *result
	return nil
}

func (r *fakeTournamentRepo) GetResult(_ context.Context, originMatchID string) (*model.BracketResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[originMatchID]
	if !ok {
		return nil, nil
	}
	return &res, nil
}
