package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
)

// LeaderboardStore keeps leaderboard entries in Redis:
//
//	SET  leaderboard:entry:{id}                    JSON entry
//	ZADD leaderboard:{difficulty}                  score -> id
//	ZADD leaderboard:global                        score -> id
//	SADD leaderboard:{difficulty}:user:{username}  id (lower-cased username)
//
// Writes touching several keys go through a MULTI/EXEC pipeline.
type LeaderboardStore struct {
	client *redis.Client
}

func NewLeaderboardStore(client *redis.Client) *LeaderboardStore {
	return &LeaderboardStore{client: client}
}

func (s *LeaderboardStore) Entries(ctx context.Context, d domain.Difficulty) ([]domain.LeaderboardEntry, error) {
	ids, err := s.client.ZRange(ctx, bucketKey(d), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ids)
}

func (s *LeaderboardStore) UserEntries(ctx context.Context, d domain.Difficulty, username string) ([]domain.LeaderboardEntry, error) {
	ids, err := s.client.SMembers(ctx, userKey(d, username)).Result()
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ids)
}

func (s *LeaderboardStore) Global(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	// Buckets are capped, so the global set stays small; load it whole to
	// apply the same tie-breaking as the per-bucket reads.
	ids, err := s.client.ZRange(ctx, globalKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	entries, err := s.load(ctx, ids)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (s *LeaderboardStore) Get(ctx context.Context, d domain.Difficulty, id string) (*domain.LeaderboardEntry, error) {
	raw, err := s.client.Get(ctx, entryKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var entry domain.LeaderboardEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, fmt.Errorf("unmarshal entry: %w", err)
	}
	if entry.Difficulty != d {
		return nil, nil
	}
	return &entry, nil
}

func (s *LeaderboardStore) Insert(ctx context.Context, entry domain.LeaderboardEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, entryKey(entry.ID), data, 0)
	pipe.ZAdd(ctx, bucketKey(entry.Difficulty), redis.Z{Score: entry.Score, Member: entry.ID})
	pipe.ZAdd(ctx, globalKey, redis.Z{Score: entry.Score, Member: entry.ID})
	pipe.SAdd(ctx, userKey(entry.Difficulty, entry.Username), entry.ID)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *LeaderboardStore) Delete(ctx context.Context, d domain.Difficulty, id string) error {
	entry, err := s.Get(ctx, d, id)
	if err != nil || entry == nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, entryKey(id))
	pipe.ZRem(ctx, bucketKey(d), id)
	pipe.ZRem(ctx, globalKey, id)
	pipe.SRem(ctx, userKey(d, entry.Username), id)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *LeaderboardStore) UpdateRank(ctx context.Context, d domain.Difficulty, id string, rank int) error {
	entry, err := s.Get(ctx, d, id)
	if err != nil || entry == nil {
		return err
	}
	entry.Rank = rank
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	return s.client.Set(ctx, entryKey(id), data, 0).Err()
}

// load fetches entries by id in one round-trip, skipping ids whose entry
// vanished between the index read and the fetch.
func (s *LeaderboardStore) load(ctx context.Context, ids []string) ([]domain.LeaderboardEntry, error) {
	entries := []domain.LeaderboardEntry{}
	if len(ids) == 0 {
		return entries, nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var entry domain.LeaderboardEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, entry)
	}
	app.SortEntries(entries)
	return entries, nil
}

const globalKey = "leaderboard:global"

func bucketKey(d domain.Difficulty) string {
	return "leaderboard:" + string(d)
}

func userKey(d domain.Difficulty, username string) string {
	return "leaderboard:" + string(d) + ":user:" + app.UsernameKey(username)
}

func entryKey(id string) string {
	return "leaderboard:entry:" + id
}
