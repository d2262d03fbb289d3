package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pongarena/internal/matchmaking"
	"pongarena/internal/model"
	"pongarena/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopConn struct {
	mu     sync.Mutex
	closed bool
}

func (c *nopConn) Send([]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("closed")
	}
	return nil
}

func (c *nopConn) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

type harness struct {
	svc         *MatchService
	mm          *matchmaking.Matchmaker
	cache       *fakeSessionCache
	leaderboard *fakeLeaderboard
	matches     *fakeMatchRepo
	tournaments *fakeTournamentRepo
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		cache:       newFakeSessionCache(),
		leaderboard: &fakeLeaderboard{},
		matches:     &fakeMatchRepo{},
		tournaments: &fakeTournamentRepo{},
	}
	h.svc = NewMatchService(h.cache, h.leaderboard, h.matches, h.tournaments, nil, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	h.mm = matchmaking.New(ctx, session.Config{}, nil, h.svc.HandleFinished)
	h.svc.SetMatchmaker(h.mm)
	t.Cleanup(func() {
		cancel()
		h.mm.Wait()
		h.svc.Wait()
	})
	return h
}

// play attaches both players, readies them and returns the live session.
func (h *harness) play(t *testing.T, sessionID string, players ...string) (*session.Session, []*nopConn) {
	t.Helper()
	ctx := context.Background()
	s, err := h.mm.Get(sessionID)
	require.NoError(t, err)
	conns := make([]*nopConn, len(players))
	for i, p := range players {
		conns[i] = &nopConn{}
		role, err := s.Attach(ctx, p, conns[i])
		require.NoError(t, err)
		require.NoError(t, s.Ready(ctx, role, conns[i]))
	}
	require.Eventually(t, func() bool { return s.Status() == model.SessionActive }, time.Second, 5*time.Millisecond)
	return s, conns
}

func TestCreateOrJoinSessionTracksPlayers(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, err := h.svc.CreateOrJoinSession(ctx, model.Identity{PlayerID: "a", Name: "Alice"})
	require.NoError(t, err)
	b, err := h.svc.CreateOrJoinSession(ctx, model.Identity{PlayerID: "b", Name: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, a.SessionID, b.SessionID)

	cur, err := h.svc.CurrentSession(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, a.SessionID, cur.ID)
	assert.Equal(t, "Alice", cur.Player1.Name)
	assert.Equal(t, model.SessionReadyCheck, cur.Status)

	cached, err := h.cache.GetMeta(ctx, a.SessionID)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, "b", cached.Player2.PlayerID)
}

func TestJoinSessionErrorsWrapSentinels(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.svc.JoinSession(ctx, "missing", model.Identity{PlayerID: "a"})
	assert.ErrorIs(t, err, model.ErrSessionNotFound)

	ref, err := h.svc.CreateOrJoinSession(ctx, model.Identity{PlayerID: "a", Name: "A"})
	require.NoError(t, err)
	_, err = h.svc.JoinSession(ctx, ref.SessionID, model.Identity{PlayerID: "b", Name: "B"})
	require.NoError(t, err)
	_, err = h.svc.JoinSession(ctx, ref.SessionID, model.Identity{PlayerID: "c", Name: "C"})
	assert.ErrorIs(t, err, model.ErrSessionFull)
}

func TestBracketForfeitIsReported(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ref, err := h.svc.CreateBracketSession(ctx, "bm-1", [2]string{"a", "b"})
	require.NoError(t, err)
	_, err = h.svc.JoinSession(ctx, ref.SessionID, model.Identity{PlayerID: "a", Name: "Alice"})
	require.NoError(t, err)
	_, err = h.svc.JoinSession(ctx, ref.SessionID, model.Identity{PlayerID: "b", Name: "Bob"})
	require.NoError(t, err)

	s, conns := h.play(t, ref.SessionID, "a", "b")
	require.NoError(t, s.Leave(ctx, model.RolePlayer2, conns[1], "closed tab"))

	require.Eventually(t, func() bool {
		_, err := h.svc.BracketResult(ctx, "bm-1")
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)
	h.svc.Wait()

	res, err := h.svc.BracketResult(ctx, "bm-1")
	require.NoError(t, err)
	assert.Equal(t, model.RolePlayer1, res.Winner)
	assert.Equal(t, "a", res.WinnerID)
	assert.Equal(t, 3, res.Player1Score)
	assert.Equal(t, 0, res.Player2Score)
	assert.True(t, res.Abandoned)

	records := h.matches.all()
	require.Len(t, records, 1)
	assert.Equal(t, "3-0", records[0].Score)
	assert.Equal(t, "Alice", records[0].WinnerName)
	assert.True(t, records[0].IsTournament)
	assert.True(t, records[0].Abandoned)

	top, err := h.svc.Leaderboard(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, "a", top[0].PlayerID)

	rank, err := h.svc.Rank(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 1, rank)
	rank, err = h.svc.Rank(ctx, "b")
	require.NoError(t, err)
	assert.Zero(t, rank, "players without wins are unranked")

	meta, err := h.svc.GetSession(ctx, ref.SessionID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionAbandoned, meta.Status)
	_, err = h.svc.CurrentSession(ctx, "a")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestCancelledSessionReportsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ref, err := h.svc.CreateOrJoinSession(ctx, model.Identity{PlayerID: "a", Name: "A"})
	require.NoError(t, err)
	require.NoError(t, h.svc.CancelSession(ctx, ref.SessionID, "a"))

	// the cache reflects the cancel before the session has finished stopping
	m, err := h.cache.GetMeta(ctx, ref.SessionID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.SessionAbandoned, m.Status)

	require.Eventually(t, func() bool {
		_, err := h.mm.Get(ref.SessionID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
	h.svc.Wait()
	assert.Empty(t, h.matches.all())

	err = h.svc.CancelSession(ctx, ref.SessionID, "a")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestCreateBracketSessionValidates(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.CreateBracketSession(context.Background(), "bm", [2]string{"a", "a"})
	assert.ErrorIs(t, err, ErrInvalidBracket)
	_, err = h.svc.CreateBracketSession(context.Background(), "", [2]string{"a", "b"})
	assert.ErrorIs(t, err, ErrInvalidBracket)
}

func TestGetSessionFallsBackToHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.NoError(t, h.matches.Create(ctx, &model.MatchRecord{
		SessionID:  "old",
		WinnerID:   "b",
		WinnerName: "Bob",
		LoserID:    "a",
		LoserName:  "Alice",
		PlayerIDs:  []string{"a", "b"},
		Score:      "2-5",
		StartedAt:  time.Unix(100, 0),
		EndedAt:    time.Unix(200, 0),
	}))

	meta, err := h.svc.GetSession(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, model.SessionEnded, meta.Status)
	assert.Equal(t, model.KindMatchmaking, meta.Kind)
	assert.Equal(t, "Alice", meta.Player1.Name)
	assert.Equal(t, "Bob", meta.Player2.Name)
	assert.Equal(t, 2, meta.Player1Score)
	assert.Equal(t, 5, meta.Player2Score)
	assert.Equal(t, model.RolePlayer2, meta.Winner)
	assert.Equal(t, time.Unix(200, 0), meta.UpdatedAt)

	_, err = h.svc.GetSession(ctx, "never")
	assert.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestBracketResultPending(t *testing.T) {
	h := newHarness(t)
	_, err := h.svc.BracketResult(context.Background(), "bm-9")
	assert.ErrorIs(t, err, ErrNoResult)
}
