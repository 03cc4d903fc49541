package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"mathquiz-service/internal/domain"
)

const (
	// DefaultMaxEntries is how many entries a difficulty bucket keeps.
	DefaultMaxEntries = 10
	// DefaultMaxPerUser is how many entries one username may hold per bucket.
	DefaultMaxPerUser = 3
)

// LeaderboardStore abstracts where leaderboard entries live (in-memory, Redis,
// Postgres, Mongo). Implementations hold no ranking rules; LeaderboardService
// owns admission, eviction and ranking.
type LeaderboardStore interface {
	// Entries returns every entry in the bucket ordered by SortEntries.
	Entries(ctx context.Context, d domain.Difficulty) ([]domain.LeaderboardEntry, error)
	// UserEntries returns the bucket entries whose username matches case-insensitively, ordered by SortEntries.
	UserEntries(ctx context.Context, d domain.Difficulty, username string) ([]domain.LeaderboardEntry, error)
	// Global returns at most limit entries across all buckets ordered by SortEntries.
	Global(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error)
	// Get returns nil, nil when the entry does not exist.
	Get(ctx context.Context, d domain.Difficulty, id string) (*domain.LeaderboardEntry, error)
	Insert(ctx context.Context, entry domain.LeaderboardEntry) error
	// Delete is a no-op for unknown ids.
	Delete(ctx context.Context, d domain.Difficulty, id string) error
	UpdateRank(ctx context.Context, d domain.Difficulty, id string, rank int) error
}

// SortEntries orders entries best first: score ascending, then earliest
// achievement, then id.
func SortEntries(entries []domain.LeaderboardEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score < entries[j].Score
		}
		if !entries[i].AchievedAt.Equal(entries[j].AchievedAt) {
			return entries[i].AchievedAt.Before(entries[j].AchievedAt)
		}
		return entries[i].ID < entries[j].ID
	})
}

// UsernameKey normalises a username for case-insensitive matching.
func UsernameKey(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// LeaderboardService keeps each difficulty bucket capped, per-user limited and ranked.
type LeaderboardService struct {
	store      LeaderboardStore
	maxEntries int
	maxPerUser int
	now        func() time.Time
	newID      func() string

	sf singleflight.Group

	mu      sync.Mutex
	buckets map[domain.Difficulty]*sync.Mutex
}

// NewLeaderboardService applies the default caps when maxEntries or maxPerUser are not positive.
func NewLeaderboardService(store LeaderboardStore, maxEntries, maxPerUser int) *LeaderboardService {
	return NewLeaderboardServiceWithClock(store, maxEntries, maxPerUser, time.Now)
}

// NewLeaderboardServiceWithClock allows deterministic timestamps in tests.
func NewLeaderboardServiceWithClock(store LeaderboardStore, maxEntries, maxPerUser int, now func() time.Time) *LeaderboardService {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if maxPerUser <= 0 {
		maxPerUser = DefaultMaxPerUser
	}
	return &LeaderboardService{
		store:      store,
		maxEntries: maxEntries,
		maxPerUser: maxPerUser,
		now:        now,
		newID:      uuid.NewString,
		buckets:    make(map[domain.Difficulty]*sync.Mutex),
	}
}

func (s *LeaderboardService) bucketLock(d domain.Difficulty) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.buckets[d]
	if !ok {
		m = &sync.Mutex{}
		s.buckets[d] = m
	}
	return m
}

// AddEntry offers score to the difficulty bucket. It returns nil without
// error when the score is not admitted: either it does not improve the
// user's personal entries, or it is no better than the bucket's worst.
func (s *LeaderboardService) AddEntry(ctx context.Context, userID, username, gameID string, d domain.Difficulty, score float64) (*domain.LeaderboardEntry, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, string(d))
	}

	lock := s.bucketLock(d)
	lock.Lock()
	defer lock.Unlock()

	mine, err := s.store.UserEntries(ctx, d, username)
	if err != nil {
		return nil, fmt.Errorf("load user entries: %w", err)
	}
	if len(mine) >= s.maxPerUser {
		worst := mine[len(mine)-1]
		if score >= worst.Score {
			return nil, nil
		}
		// Free one personal slot; anything beyond the cap left by a race goes too.
		for _, e := range mine[s.maxPerUser-1:] {
			if err := s.store.Delete(ctx, d, e.ID); err != nil {
				return nil, fmt.Errorf("evict user entry: %w", err)
			}
		}
	}

	entries, err := s.store.Entries(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("load bucket: %w", err)
	}
	top := entries[:min(len(entries), s.maxEntries)]
	if len(top) >= s.maxEntries && score >= top[len(top)-1].Score {
		return nil, nil
	}

	entry := domain.LeaderboardEntry{
		ID:         s.newID(),
		Difficulty: d,
		Username:   username,
		UserID:     userID,
		GameID:     gameID,
		Score:      score,
		AchievedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, entry); err != nil {
		return nil, fmt.Errorf("insert entry: %w", err)
	}

	entries, err = s.store.Entries(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("reload bucket: %w", err)
	}
	if len(entries) > s.maxEntries {
		for _, e := range entries[s.maxEntries:] {
			if err := s.store.Delete(ctx, d, e.ID); err != nil {
				return nil, fmt.Errorf("evict entry: %w", err)
			}
		}
	}

	ranked, err := s.recompute(ctx, d)
	if err != nil {
		return nil, err
	}
	for _, e := range ranked {
		if e.ID == entry.ID {
			entry.Rank = e.Rank
			return &entry, nil
		}
	}
	// Evicted by a concurrent writer between insert and re-rank.
	return nil, nil
}

// RecomputeRanks assigns 1-based ranks to the bucket's top entries, writing
// only those whose rank changed.
func (s *LeaderboardService) RecomputeRanks(ctx context.Context, d domain.Difficulty) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, string(d))
	}
	_, err := s.recompute(ctx, d)
	return err
}

func (s *LeaderboardService) recompute(ctx context.Context, d domain.Difficulty) ([]domain.LeaderboardEntry, error) {
	entries, err := s.store.Entries(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("load bucket: %w", err)
	}
	top := entries[:min(len(entries), s.maxEntries)]
	for i := range top {
		rank := i + 1
		if top[i].Rank == rank {
			continue
		}
		if err := s.store.UpdateRank(ctx, d, top[i].ID, rank); err != nil {
			return nil, fmt.Errorf("update rank: %w", err)
		}
		top[i].Rank = rank
	}
	return top, nil
}

// GetLeaderboard returns up to topCount entries of a bucket ranked 1..k by position.
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, d domain.Difficulty, topCount int) ([]domain.LeaderboardEntry, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidDifficulty, string(d))
	}
	if topCount <= 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	return s.page(fmt.Sprintf("%s:%d", d, topCount), func() ([]domain.LeaderboardEntry, error) {
		entries, err := s.store.Entries(ctx, d)
		if err != nil {
			return nil, err
		}
		return entries[:min(len(entries), topCount)], nil
	})
}

// GetGlobalLeaderboard ranks entries from every bucket together by raw score.
func (s *LeaderboardService) GetGlobalLeaderboard(ctx context.Context, topCount int) ([]domain.LeaderboardEntry, error) {
	if topCount <= 0 {
		return []domain.LeaderboardEntry{}, nil
	}
	return s.page(fmt.Sprintf("global:%d", topCount), func() ([]domain.LeaderboardEntry, error) {
		entries, err := s.store.Global(ctx, topCount)
		if err != nil {
			return nil, err
		}
		return entries[:min(len(entries), topCount)], nil
	})
}

// Entry looks up a single entry; nil means it is not on the board.
func (s *LeaderboardService) Entry(ctx context.Context, d domain.Difficulty, id string) (*domain.LeaderboardEntry, error) {
	return s.store.Get(ctx, d, id)
}

// page coalesces identical concurrent reads and re-ranks the result by position.
func (s *LeaderboardService) page(key string, load func() ([]domain.LeaderboardEntry, error)) ([]domain.LeaderboardEntry, error) {
	result, err, _ := s.sf.Do(key, func() (interface{}, error) {
		return load()
	})
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	shared := result.([]domain.LeaderboardEntry)
	out := make([]domain.LeaderboardEntry, len(shared))
	copy(out, shared)
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}
