package repository

import (
	"context"

	"pongarena/internal/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MatchRepo handles MongoDB operations for match history
type MatchRepo interface {
	Create(ctx context.Context, record *model.MatchRecord) error
	GetBySession(ctx context.Context, sessionID string) (*model.MatchRecord, error)
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.MatchRecord, error)
}

type matchRepo struct {
	collection *mongo.Collection
}

// NewMatchRepo creates a new match history repository
func NewMatchRepo(db *mongo.Database) MatchRepo {
	return &matchRepo{
		collection: db.Collection("match_history"),
	}
}

// Create stores a record once per session; a repeated report replaces it.
func (r *matchRepo) Create(ctx context.Context, record *model.MatchRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"sessionId": record.SessionID}, record, opts)
	return err
}

func (r *matchRepo) GetBySession(ctx context.Context, sessionID string) (*model.MatchRecord, error) {
	var record model.MatchRecord
	err := r.collection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *matchRepo) ListByPlayer(ctx context.Context, playerID string, limit int) ([]model.MatchRecord, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "endedAt", Value: -1}}).
		SetLimit(int64(limit))
	cursor, err := r.collection.Find(ctx, bson.M{"playerIds": playerID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []model.MatchRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
