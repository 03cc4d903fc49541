package memory

import (
	"context"
	"sync"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
)

// LeaderboardStore is an in-memory implementation of app.LeaderboardStore:
// one slice of entries per difficulty bucket.
type LeaderboardStore struct {
	mu      sync.RWMutex
	buckets map[domain.Difficulty][]domain.LeaderboardEntry
}

func NewLeaderboardStore() *LeaderboardStore {
	return &LeaderboardStore{
		buckets: make(map[domain.Difficulty][]domain.LeaderboardEntry),
	}
}

func (s *LeaderboardStore) Entries(_ context.Context, d domain.Difficulty) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := append([]domain.LeaderboardEntry{}, s.buckets[d]...)
	app.SortEntries(out)
	return out, nil
}

func (s *LeaderboardStore) UserEntries(_ context.Context, d domain.Difficulty, username string) ([]domain.LeaderboardEntry, error) {
	key := app.UsernameKey(username)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.LeaderboardEntry{}
	for _, e := range s.buckets[d] {
		if app.UsernameKey(e.Username) == key {
			out = append(out, e)
		}
	}
	app.SortEntries(out)
	return out, nil
}

func (s *LeaderboardStore) Global(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.LeaderboardEntry{}
	for _, bucket := range s.buckets {
		out = append(out, bucket...)
	}
	app.SortEntries(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *LeaderboardStore) Get(_ context.Context, d domain.Difficulty, id string) (*domain.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.buckets[d] {
		if e.ID == id {
			found := e
			return &found, nil
		}
	}
	return nil, nil
}

func (s *LeaderboardStore) Insert(_ context.Context, entry domain.LeaderboardEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[entry.Difficulty] = append(s.buckets[entry.Difficulty], entry)
	return nil
}

func (s *LeaderboardStore) Delete(_ context.Context, d domain.Difficulty, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.buckets[d]
	for i, e := range bucket {
		if e.ID == id {
			s.buckets[d] = append(bucket[:i:i], bucket[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *LeaderboardStore) UpdateRank(_ context.Context, d domain.Difficulty, id string, rank int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.buckets[d] {
		if s.buckets[d][i].ID == id {
			s.buckets[d][i].Rank = rank
			return nil
		}
	}
	return nil
}
