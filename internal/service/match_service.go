package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pongarena/internal/cache"
	"pongarena/internal/matchmaking"
	"pongarena/internal/model"
	"pongarena/internal/repository"
	"pongarena/internal/session"

	"github.com/decred/slog"
)

var (
	// ErrInvalidBracket rejects a bracket match without an id or two distinct players.
	ErrInvalidBracket = errors.New("bracket match needs an id and two distinct players")
	ErrNoResult       = errors.New("bracket match has no result yet")
)

// MatchService is the session-creation boundary used by REST handlers and
// the tournament collaborator. It also fans finished matches out to
// history, leaderboard and bracket storage.
type MatchService struct {
	mm            *matchmaking.Matchmaker
	sessionCache  cache.SessionCache
	leaderboard   cache.LeaderboardCache
	matchRepo     repository.MatchRepo
	tournaments   repository.TournamentRepo
	log           slog.Logger
	reportTimeout time.Duration
	reports       sync.WaitGroup
}

// NewMatchService creates a new match service
func NewMatchService(
	sessionCache cache.SessionCache,
	leaderboard cache.LeaderboardCache,
	matchRepo repository.MatchRepo,
	tournaments repository.TournamentRepo,
	log slog.Logger,
	reportTimeout time.Duration,
) *MatchService {
	if log == nil {
		log = slog.Disabled
	}
	if reportTimeout <= 0 {
		reportTimeout = 5 * time.Second
	}
	return &MatchService{
		sessionCache:  sessionCache,
		leaderboard:   leaderboard,
		matchRepo:     matchRepo,
		tournaments:   tournaments,
		log:           log,
		reportTimeout: reportTimeout,
	}
}

// SetMatchmaker wires the matchmaker after construction; the matchmaker in
// turn reports finished sessions to HandleFinished.
func (s *MatchService) SetMatchmaker(mm *matchmaking.Matchmaker) {
	s.mm = mm
}

// CreateOrJoinSession pairs the player with a waiting opponent or opens a
// new session.
func (s *MatchService) CreateOrJoinSession(ctx context.Context, id model.Identity) (*model.SessionRef, error) {
	ref, err := s.mm.RequestMatch(ctx, id.PlayerID, id.Name)
	if err != nil {
		return nil, fmt.Errorf("request match: %w", err)
	}
	s.track(ctx, ref.SessionID, id.PlayerID)
	return &ref, nil
}

// JoinSession attaches the player to a session by id.
func (s *MatchService) JoinSession(ctx context.Context, sessionID string, id model.Identity) (*model.SessionRef, error) {
	ref, err := s.mm.JoinMatch(ctx, sessionID, id.PlayerID, id.Name)
	if err != nil {
		return nil, fmt.Errorf("join session %s: %w", sessionID, err)
	}
	s.track(ctx, ref.SessionID, id.PlayerID)
	return &ref, nil
}

// CreateBracketSession opens the remote session for a bracket match.
func (s *MatchService) CreateBracketSession(ctx context.Context, originMatchID string, players [2]string) (*model.SessionRef, error) {
	if originMatchID == "" || players[0] == "" || players[1] == "" || players[0] == players[1] {
		return nil, ErrInvalidBracket
	}
	ref := s.mm.CreateBracketSession(originMatchID, players)
	if live, err := s.mm.Get(ref.SessionID); err == nil {
		meta := live.Meta()
		if err := s.sessionCache.SetMeta(ctx, &meta); err != nil {
			s.log.Warnf("cache session %s: %v", ref.SessionID, err)
		}
	}
	return &ref, nil
}

// CancelSession withdraws the player from matchmaking.
func (s *MatchService) CancelSession(ctx context.Context, sessionID, playerID string) error {
	if err := s.mm.Cancel(ctx, sessionID, playerID); err != nil {
		return fmt.Errorf("cancel session %s: %w", sessionID, err)
	}
	if err := s.sessionCache.SetStatus(ctx, sessionID, model.SessionAbandoned); err != nil {
		s.log.Warnf("mark session %s abandoned: %v", sessionID, err)
	}
	return nil
}

// GetSession returns the live view of a session, the cached one after it
// finished, or one rebuilt from match history once the cache expired.
func (s *MatchService) GetSession(ctx context.Context, sessionID string) (*model.SessionMeta, error) {
	if live, err := s.mm.Get(sessionID); err == nil {
		meta := live.Meta()
		return &meta, nil
	}
	meta, err := s.sessionCache.GetMeta(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get cached session: %w", err)
	}
	if meta != nil {
		return meta, nil
	}
	rec, err := s.matchRepo.GetBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get match record: %w", err)
	}
	if rec == nil {
		return nil, model.ErrSessionNotFound
	}
	return metaFromRecord(rec), nil
}

// CurrentSession returns the session the player last joined.
func (s *MatchService) CurrentSession(ctx context.Context, playerID string) (*model.SessionMeta, error) {
	id, err := s.sessionCache.GetPlayerSession(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("get player session: %w", err)
	}
	if id == "" {
		return nil, model.ErrSessionNotFound
	}
	return s.GetSession(ctx, id)
}

// History lists a player's finished matches, newest first.
func (s *MatchService) History(ctx context.Context, playerID string, limit int) ([]model.MatchRecord, error) {
	return s.matchRepo.ListByPlayer(ctx, playerID, clampLimit(limit))
}

// Leaderboard returns the top players by wins.
func (s *MatchService) Leaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	return s.leaderboard.GetTop(ctx, clampLimit(limit))
}

// Rank returns the player's 1-indexed leaderboard position, 0 when they
// have no wins yet.
func (s *MatchService) Rank(ctx context.Context, playerID string) (int64, error) {
	rank, err := s.leaderboard.GetRank(ctx, playerID)
	if err != nil {
		return 0, fmt.Errorf("get rank: %w", err)
	}
	if rank < 0 {
		return 0, nil
	}
	return rank, nil
}

// BracketResult returns what was reported for a bracket match.
func (s *MatchService) BracketResult(ctx context.Context, originMatchID string) (*model.BracketResult, error) {
	res, err := s.tournaments.GetResult(ctx, originMatchID)
	if err != nil {
		return nil, fmt.Errorf("get bracket result: %w", err)
	}
	if res == nil {
		return nil, ErrNoResult
	}
	return res, nil
}

func (s *MatchService) track(ctx context.Context, sessionID, playerID string) {
	live, err := s.mm.Get(sessionID)
	if err != nil {
		return
	}
	meta := live.Meta()
	if err := s.sessionCache.SetMeta(ctx, &meta); err != nil {
		s.log.Warnf("cache session %s: %v", sessionID, err)
	}
	if err := s.sessionCache.SetPlayerSession(ctx, playerID, sessionID); err != nil {
		s.log.Warnf("index player %s: %v", playerID, err)
	}
}

// HandleFinished receives every stopped session from the matchmaker. It
// returns immediately; storage work runs in the background.
func (s *MatchService) HandleFinished(sess *session.Session, r *model.MatchResult) {
	meta := sess.Meta()
	s.reports.Add(1)
	go func() {
		defer s.reports.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.reportTimeout)
		defer cancel()
		s.record(ctx, &meta, r)
	}()
}

// Wait blocks until background reporting is done.
func (s *MatchService) Wait() {
	s.reports.Wait()
}

func (s *MatchService) record(ctx context.Context, meta *model.SessionMeta, r *model.MatchResult) {
	if err := s.sessionCache.SetMeta(ctx, meta); err != nil {
		s.log.Warnf("cache final session %s: %v", meta.ID, err)
	}
	for _, p := range []string{meta.Player1.PlayerID, meta.Player2.PlayerID} {
		if p == "" {
			continue
		}
		if err := s.sessionCache.ClearPlayerSession(ctx, p, meta.ID); err != nil {
			s.log.Warnf("clear player %s: %v", p, err)
		}
	}
	if r == nil {
		return
	}

	if err := s.matchRepo.Create(ctx, newMatchRecord(r)); err != nil {
		s.log.Errorf("save match %s: %v", r.SessionID, err)
	}
	if w := r.WinnerSlot(); w.PlayerID != "" {
		if err := s.leaderboard.AddWin(ctx, w.PlayerID); err != nil {
			s.log.Warnf("leaderboard win for %s: %v", w.PlayerID, err)
		}
	}
	if r.OriginMatchID != "" {
		if err := s.ReportResult(ctx, r); err != nil {
			s.log.Errorf("report bracket match %s: %v", r.OriginMatchID, err)
		}
	}
}

// ReportResult notifies the bracket collaborator of a tournament outcome.
func (s *MatchService) ReportResult(ctx context.Context, r *model.MatchResult) error {
	s.log.Infof("reporting session %s to bracket match %s: %s wins %d-%d",
		r.SessionID, r.OriginMatchID, r.Winner, r.Player1Score, r.Player2Score)
	return s.tournaments.ReportResult(ctx, &model.BracketResult{
		SessionID:     r.SessionID,
		OriginMatchID: r.OriginMatchID,
		Winner:        r.Winner,
		WinnerID:      r.WinnerSlot().PlayerID,
		Player1Score:  r.Player1Score,
		Player2Score:  r.Player2Score,
		Abandoned:     r.Abandoned(),
	})
}

func newMatchRecord(r *model.MatchResult) *model.MatchRecord {
	w, l := r.WinnerSlot(), r.LoserSlot()
	return &model.MatchRecord{
		SessionID:     r.SessionID,
		WinnerID:      w.PlayerID,
		WinnerName:    w.Name,
		LoserID:       l.PlayerID,
		LoserName:     l.Name,
		PlayerIDs:     []string{r.Player1.PlayerID, r.Player2.PlayerID},
		Score:         fmt.Sprintf("%d-%d", r.Player1Score, r.Player2Score),
		Abandoned:     r.Abandoned(),
		IsTournament:  r.Kind == model.KindTournament,
		OriginMatchID: r.OriginMatchID,
		StartedAt:     r.StartedAt,
		EndedAt:       r.EndedAt,
	}
}

// metaFromRecord rebuilds the final view of a session from its history
// record. Connection and ready flags are not kept there.
func metaFromRecord(rec *model.MatchRecord) *model.SessionMeta {
	meta := &model.SessionMeta{
		ID:            rec.SessionID,
		Kind:          model.KindMatchmaking,
		Status:        model.SessionEnded,
		OriginMatchID: rec.OriginMatchID,
		CreatedAt:     rec.StartedAt,
		UpdatedAt:     rec.EndedAt,
	}
	if rec.IsTournament {
		meta.Kind = model.KindTournament
	}
	if rec.Abandoned {
		meta.Status = model.SessionAbandoned
	}
	fmt.Sscanf(rec.Score, "%d-%d", &meta.Player1Score, &meta.Player2Score)

	names := map[string]string{rec.WinnerID: rec.WinnerName, rec.LoserID: rec.LoserName}
	if len(rec.PlayerIDs) == 2 {
		meta.Player1 = model.SlotInfo{PlayerID: rec.PlayerIDs[0], Name: names[rec.PlayerIDs[0]]}
		meta.Player2 = model.SlotInfo{PlayerID: rec.PlayerIDs[1], Name: names[rec.PlayerIDs[1]]}
	}
	meta.Winner = meta.RoleOf(rec.WinnerID)
	return meta
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 100 {
		return 100
	}
	return limit
}
