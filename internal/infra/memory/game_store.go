package memory

import (
	"context"
	"sync"

	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/game"
)

// GameStore is an in-memory implementation of app.GameRepository. Sessions
// are copied on the way in and out so callers never share mutable state.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]*game.Session
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]*game.Session),
	}
}

func (s *GameStore) Save(_ context.Context, session *game.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[session.ID] = session.Clone()
	return nil
}

func (s *GameStore) Get(_ context.Context, gameID string) (*game.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.games[gameID]
	if !ok {
		return nil, domain.ErrGameNotFound
	}
	return session.Clone(), nil
}

func (s *GameStore) Delete(_ context.Context, gameID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, gameID)
	return nil
}
