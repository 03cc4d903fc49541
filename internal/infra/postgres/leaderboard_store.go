package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"mathquiz-service/internal/app"
	"mathquiz-service/internal/domain"
)

const entryOrder = "score ASC, achieved_at ASC, id ASC"

type leaderboardRow struct {
	bun.BaseModel `bun:"table:leaderboard_entries,alias:le"`

	ID          string    `bun:"id,pk"`
	Difficulty  string    `bun:"difficulty,notnull"`
	Username    string    `bun:"username,notnull"`
	UsernameKey string    `bun:"username_key,notnull"`
	UserID      string    `bun:"user_id,notnull"`
	GameID      string    `bun:"game_id,notnull"`
	Score       float64   `bun:"score,notnull"`
	AchievedAt  time.Time `bun:"achieved_at,notnull"`
	Rank        int       `bun:"rank,notnull"`
}

func rowFromEntry(e domain.LeaderboardEntry) *leaderboardRow {
	return &leaderboardRow{
		ID:          e.ID,
		Difficulty:  string(e.Difficulty),
		Username:    e.Username,
		UsernameKey: app.UsernameKey(e.Username),
		UserID:      e.UserID,
		GameID:      e.GameID,
		Score:       e.Score,
		AchievedAt:  e.AchievedAt.UTC(),
		Rank:        e.Rank,
	}
}

func (r *leaderboardRow) entry() domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		ID:         r.ID,
		Difficulty: domain.Difficulty(r.Difficulty),
		Username:   r.Username,
		UserID:     r.UserID,
		GameID:     r.GameID,
		Score:      r.Score,
		AchievedAt: r.AchievedAt.UTC(),
		Rank:       r.Rank,
	}
}

func toEntries(rows []leaderboardRow) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].entry()
	}
	return entries
}

// LeaderboardStore keeps leaderboard entries in the leaderboard_entries table.
type LeaderboardStore struct {
	db *bun.DB
}

func NewLeaderboardStore(db *bun.DB) *LeaderboardStore {
	return &LeaderboardStore{db: db}
}

func (s *LeaderboardStore) Entries(ctx context.Context, d domain.Difficulty) ([]domain.LeaderboardEntry, error) {
	var rows []leaderboardRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("difficulty = ?", string(d)).
		OrderExpr(entryOrder).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select bucket: %w", err)
	}
	return toEntries(rows), nil
}

func (s *LeaderboardStore) UserEntries(ctx context.Context, d domain.Difficulty, username string) ([]domain.LeaderboardEntry, error) {
	var rows []leaderboardRow
	err := s.db.NewSelect().
		Model(&rows).
		Where("difficulty = ?", string(d)).
		Where("username_key = ?", app.UsernameKey(username)).
		OrderExpr(entryOrder).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select user entries: %w", err)
	}
	return toEntries(rows), nil
}

func (s *LeaderboardStore) Global(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	var rows []leaderboardRow
	q := s.db.NewSelect().
		Model(&rows).
		OrderExpr(entryOrder)
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select global: %w", err)
	}
	return toEntries(rows), nil
}

func (s *LeaderboardStore) Get(ctx context.Context, d domain.Difficulty, id string) (*domain.LeaderboardEntry, error) {
	row := new(leaderboardRow)
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", id).
		Where("difficulty = ?", string(d)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select entry: %w", err)
	}
	entry := row.entry()
	return &entry, nil
}

func (s *LeaderboardStore) Insert(ctx context.Context, entry domain.LeaderboardEntry) error {
	if _, err := s.db.NewInsert().Model(rowFromEntry(entry)).Exec(ctx); err != nil {
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) Delete(ctx context.Context, d domain.Difficulty, id string) error {
	_, err := s.db.NewDelete().
		Model((*leaderboardRow)(nil)).
		Where("id = ?", id).
		Where("difficulty = ?", string(d)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

func (s *LeaderboardStore) UpdateRank(ctx context.Context, d domain.Difficulty, id string, rank int) error {
	_, err := s.db.NewUpdate().
		Model((*leaderboardRow)(nil)).
		Set("rank = ?", rank).
		Where("id = ?", id).
		Where("difficulty = ?", string(d)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update rank: %w", err)
	}
	return nil
}
