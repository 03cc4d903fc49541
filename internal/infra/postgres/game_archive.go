package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"mathquiz-service/internal/domain"
)

// GameArchive stores completed games in game_records, questions as JSONB.
type GameArchive struct {
	pool *pgxpool.Pool
}

func NewGameArchive(pool *pgxpool.Pool) *GameArchive {
	return &GameArchive{pool: pool}
}

func (a *GameArchive) Record(ctx context.Context, record domain.GameRecord) error {
	questions, err := json.Marshal(record.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = a.pool.Exec(ctx, `
		INSERT INTO game_records (id, user_id, username, difficulty, total_score, questions, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			total_score = EXCLUDED.total_score,
			questions = EXCLUDED.questions,
			completed_at = EXCLUDED.completed_at`,
		record.ID, record.UserID, record.Username, string(record.Difficulty),
		record.TotalScore, questions, record.CompletedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert game record: %w", err)
	}
	return nil
}

func (a *GameArchive) Get(ctx context.Context, gameID string) (*domain.GameRecord, error) {
	var (
		record     domain.GameRecord
		difficulty string
		questions  []byte
	)
	err := a.pool.QueryRow(ctx, `
		SELECT id, user_id, username, difficulty, total_score, questions, completed_at
		FROM game_records WHERE id = $1`, gameID,
	).Scan(&record.ID, &record.UserID, &record.Username, &difficulty, &record.TotalScore, &questions, &record.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load game record: %w", err)
	}
	record.Difficulty = domain.Difficulty(difficulty)
	record.CompletedAt = record.CompletedAt.UTC()
	if err := json.Unmarshal(questions, &record.Questions); err != nil {
		return nil, fmt.Errorf("unmarshal questions: %w", err)
	}
	return &record, nil
}
