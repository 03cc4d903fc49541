package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/game"
)

// GameStore is a Redis implementation of app.GameRepository. Each live game
// is a JSON blob whose TTL is refreshed on every save, so abandoned games
// expire on their own.
type GameStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGameStore(client *redis.Client, ttl time.Duration) *GameStore {
	return &GameStore{
		client: client,
		ttl:    ttl,
	}
}

func (s *GameStore) Save(ctx context.Context, session *game.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal game: %w", err)
	}
	return s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err()
}

func (s *GameStore) Get(ctx context.Context, gameID string) (*game.Session, error) {
	data, err := s.client.Get(ctx, s.key(gameID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	var session game.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal game: %w", err)
	}
	return &session, nil
}

func (s *GameStore) Delete(ctx context.Context, gameID string) error {
	return s.client.Del(ctx, s.key(gameID)).Err()
}

func (s *GameStore) key(gameID string) string {
	return "quiz:game:" + gameID
}
