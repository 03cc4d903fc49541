package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/game"
)

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}

func TestGameStoreRoundTripWithTTL(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewGameStore(newClient(mr), time.Minute)

	started := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	session := game.NewSession("game-1", "u1", "Alice", domain.Expert, []domain.Question{
		{ID: 1, Operand1: 16, Operand2: 4, Operation: domain.Divide, CorrectAnswer: 4},
	}, started)
	session.Start(started)

	if err := store.Save(ctx, session); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !mr.Exists("quiz:game:game-1") {
		t.Fatalf("expected redis key to be set")
	}
	if ttl := mr.TTL("quiz:game:game-1"); ttl != time.Minute {
		t.Fatalf("expected 1m ttl, got %v", ttl)
	}

	got, err := store.Get(ctx, "game-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Fatalf("start time not preserved: %+v", got.StartedAt)
	}
	q, ok := got.Submit(game.Tiered{}, 4, started.Add(1600*time.Millisecond))
	if !ok || q.Score != 24 {
		t.Fatalf("expected score 24 after round trip, got %+v (ok=%v)", q, ok)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "game-1"); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected expired game to be gone, got %v", err)
	}
}

func TestGameStoreDelete(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	store := NewGameStore(newClient(mr), time.Minute)
	_ = store.Save(ctx, game.NewSession("game-2", "u", "Bob", domain.Novice, nil, time.Now()))

	if err := store.Delete(ctx, "game-2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if mr.Exists("quiz:game:game-2") {
		t.Fatalf("expected redis key to be removed")
	}
}
