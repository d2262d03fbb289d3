package repository

import (
	"context"
	"time"

	"pongarena/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TournamentRepo is the bracket collaborator's side of result reporting.
// Brackets themselves are managed elsewhere; this only records outcomes on
// the bracket match documents.
type TournamentRepo interface {
	ReportResult(ctx context.Context, result *model.BracketResult) error
	GetResult(ctx context.Context, originMatchID string) (*model.BracketResult, error)
}

type tournamentRepo struct {
	matches *mongo.Collection
}

// NewTournamentRepo creates a new tournament match repository
func NewTournamentRepo(db *mongo.Database) TournamentRepo {
	return &tournamentRepo{
		matches: db.Collection("tournament_matches"),
	}
}

func (r *tournamentRepo) ReportResult(ctx context.Context, result *model.BracketResult) error {
	update := bson.M{"$set": bson.M{
		"sessionId":    result.SessionID,
		"winner":       result.Winner,
		"winnerId":     result.WinnerID,
		"player1Score": result.Player1Score,
		"player2Score": result.Player2Score,
		"abandoned":    result.Abandoned,
		"status":       "completed",
		"completedAt":  time.Now(),
	}}
	res, err := r.matches.UpdateOne(ctx, bson.M{"_id": result.OriginMatchID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *tournamentRepo) GetResult(ctx context.Context, originMatchID string) (*model.BracketResult, error) {
	var result model.BracketResult
	err := r.matches.FindOne(ctx, bson.M{"_id": originMatchID, "status": "completed"}).Decode(&result)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}
