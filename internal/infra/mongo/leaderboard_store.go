package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
)

var entryOrder = bson.D{
	{Key: "score", Value: 1},
	{Key: "achieved_at", Value: 1},
	{Key: "_id", Value: 1},
}

type entryDocument struct {
	domain.LeaderboardEntry `bson:",inline"`
	UsernameKey             string `bson:"username_key"`
}

// LeaderboardStore keeps leaderboard entries in the leaderboard_entries collection.
type LeaderboardStore struct {
	Col *mongo.Collection
}

func NewLeaderboardStore(db *mongo.Database) *LeaderboardStore {
	return &LeaderboardStore{Col: db.Collection("leaderboard_entries")}
}

// EnsureIndexes creates the bucket and per-user indexes; safe to call on every start.
func (s *LeaderboardStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.Col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "difficulty", Value: 1}, {Key: "score", Value: 1}, {Key: "achieved_at", Value: 1}}},
		{Keys: bson.D{{Key: "difficulty", Value: 1}, {Key: "username_key", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) Entries(ctx context.Context, d domain.Difficulty) ([]domain.LeaderboardEntry, error) {
	return s.find(ctx, bson.M{"difficulty": d}, options.Find().SetSort(entryOrder))
}

func (s *LeaderboardStore) UserEntries(ctx context.Context, d domain.Difficulty, username string) ([]domain.LeaderboardEntry, error) {
	filter := bson.M{"difficulty": d, "username_key": app.UsernameKey(username)}
	return s.find(ctx, filter, options.Find().SetSort(entryOrder))
}

func (s *LeaderboardStore) Global(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	opts := options.Find().SetSort(entryOrder)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return s.find(ctx, bson.M{}, opts)
}

func (s *LeaderboardStore) Get(ctx context.Context, d domain.Difficulty, id string) (*domain.LeaderboardEntry, error) {
	var doc entryDocument
	err := s.Col.FindOne(ctx, bson.M{"_id": id, "difficulty": d}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find entry: %w", err)
	}
	return &doc.LeaderboardEntry, nil
}

func (s *LeaderboardStore) Insert(ctx context.Context, entry domain.LeaderboardEntry) error {
	entry.AchievedAt = entry.AchievedAt.UTC()
	doc := entryDocument{LeaderboardEntry: entry, UsernameKey: app.UsernameKey(entry.Username)}
	if _, err := s.Col.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) Delete(ctx context.Context, d domain.Difficulty, id string) error {
	if _, err := s.Col.DeleteOne(ctx, bson.M{"_id": id, "difficulty": d}); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) UpdateRank(ctx context.Context, d domain.Difficulty, id string, rank int) error {
	_, err := s.Col.UpdateOne(ctx, bson.M{"_id": id, "difficulty": d}, bson.M{"$set": bson.M{"rank": rank}})
	if err != nil {
		return fmt.Errorf("update rank: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]domain.LeaderboardEntry, error) {
	cur, err := s.Col.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find entries: %w", err)
	}
	defer cur.Close(ctx)
	entries := []domain.LeaderboardEntry{}
	for cur.Next(ctx) {
		var doc entryDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode entry: %w", err)
		}
		doc.AchievedAt = doc.AchievedAt.UTC()
		entries = append(entries, doc.LeaderboardEntry)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}
