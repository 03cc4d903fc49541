package memory

import (
	"context"
	"sync"

	"mathquiz-service/internal/domain"
)

// GameArchive keeps completed games in a map (useful for tests/demos).
type GameArchive struct {
	mu      sync.RWMutex
	records map[string]domain.GameRecord
}

func NewGameArchive() *GameArchive {
	return &GameArchive{records: make(map[string]domain.GameRecord)}
}

func (a *GameArchive) Record(_ context.Context, record domain.GameRecord) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	record.Questions = append([]domain.Question(nil), record.Questions...)
	a.records[record.ID] = record
	return nil
}

func (a *GameArchive) Get(_ context.Context, gameID string) (*domain.GameRecord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	record, ok := a.records[gameID]
	if !ok {
		return nil, nil
	}
	record.Questions = append([]domain.Question(nil), record.Questions...)
	return &record, nil
}
