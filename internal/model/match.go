package model

import "time"

// MatchResult is produced once by a session that ended or was abandoned
// while active.
type MatchResult struct {
	SessionID     string      `json:"sessionId"`
	OriginMatchID string      `json:"originMatchId,omitempty"`
	Kind          SessionKind `json:"kind"`
	Player1       SlotInfo    `json:"player1"`
	Player2       SlotInfo    `json:"player2"`
	Player1Score  int         `json:"player1Score"`
	Player2Score  int         `json:"player2Score"`
	Winner        Role        `json:"winner"`
	AbandonedBy   Role        `json:"abandonedBy,omitempty"`
	StartedAt     time.Time   `json:"startedAt"`
	EndedAt       time.Time   `json:"endedAt"`
}

// Abandoned reports whether the result is a forfeit.
func (r *MatchResult) Abandoned() bool {
	return r.AbandonedBy != RoleNone
}

// WinnerSlot returns the winning slot.
func (r *MatchResult) WinnerSlot() SlotInfo {
	if r.Winner == RolePlayer2 {
		return r.Player2
	}
	return r.Player1
}

// LoserSlot returns the losing slot.
func (r *MatchResult) LoserSlot() SlotInfo {
	if r.Winner == RolePlayer2 {
		return r.Player1
	}
	return r.Player2
}

// MatchRecord is a stored match history entry
type MatchRecord struct {
	ID            string    `json:"id" bson:"_id,omitempty"`
	SessionID     string    `json:"sessionId" bson:"sessionId"`
	WinnerID      string    `json:"winnerId" bson:"winnerId"`
	WinnerName    string    `json:"winnerName" bson:"winnerName"`
	LoserID       string    `json:"loserId" bson:"loserId"`
	LoserName     string    `json:"loserName" bson:"loserName"`
	PlayerIDs     []string  `json:"playerIds" bson:"playerIds"`
	Score         string    `json:"score" bson:"score"` // "left-right"
	Abandoned     bool      `json:"abandoned" bson:"abandoned"`
	IsTournament  bool      `json:"isTournament" bson:"isTournament"`
	OriginMatchID string    `json:"originMatchId,omitempty" bson:"originMatchId,omitempty"`
	StartedAt     time.Time `json:"startedAt" bson:"startedAt"`
	EndedAt       time.Time `json:"endedAt" bson:"endedAt"`
}

// BracketResult is what the bracket collaborator receives for a tournament match
type BracketResult struct {
	SessionID     string `json:"sessionId" bson:"sessionId"`
	OriginMatchID string `json:"originMatchId" bson:"_id"`
	Winner        Role   `json:"winner" bson:"winner"`
	WinnerID      string `json:"winnerId" bson:"winnerId"`
	Player1Score  int    `json:"player1Score" bson:"player1Score"`
	Player2Score  int    `json:"player2Score" bson:"player2Score"`
	Abandoned     bool   `json:"abandoned" bson:"abandoned"`
}

// LeaderboardEntry is a player's rank by wins
type LeaderboardEntry struct {
	PlayerID string `json:"playerId"`
	Wins     int64  `json:"wins"`
	Rank     int    `json:"rank"`
}
