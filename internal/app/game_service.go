package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"mathquiz-service/internal/domain"
	"mathquiz-service/internal/game"
)

// GameRepository abstracts where live games are kept (in-memory, Redis).
type GameRepository interface {
	Save(ctx context.Context, session *game.Session) error
	// Get returns domain.ErrGameNotFound for unknown ids.
	Get(ctx context.Context, gameID string) (*game.Session, error)
	Delete(ctx context.Context, gameID string) error
}

// GameArchive keeps completed games.
type GameArchive interface {
	Record(ctx context.Context, record domain.GameRecord) error
	// Get returns nil, nil when the game was never archived.
	Get(ctx context.Context, gameID string) (*domain.GameRecord, error)
}

// GameResult is what a finished game produced.
type GameResult struct {
	Record domain.GameRecord        `json:"record"`
	Entry  *domain.LeaderboardEntry `json:"entry"`
}

// GameService drives games from creation to the leaderboard.
type GameService struct {
	games       GameRepository
	archive     GameArchive
	leaderboard *LeaderboardService
	generator   *game.Generator
	formula     game.Formula
	now         func() time.Time
}

func NewGameService(games GameRepository, archive GameArchive, leaderboard *LeaderboardService, generator *game.Generator, formula game.Formula) *GameService {
	if formula == nil {
		formula = game.Tiered{}
	}
	return &GameService{
		games:       games,
		archive:     archive,
		leaderboard: leaderboard,
		generator:   generator,
		formula:     formula,
		now:         time.Now,
	}
}

// WithClock replaces the clock used for question timing; intended for tests.
func (s *GameService) WithClock(now func() time.Time) *GameService {
	s.now = now
	return s
}

// Leaderboard exposes the ranking service the games feed into.
func (s *GameService) Leaderboard() *LeaderboardService {
	return s.leaderboard
}

// NewGame generates the question list for d and stores a fresh session.
func (s *GameService) NewGame(ctx context.Context, userID, username string, d domain.Difficulty) (*game.Session, error) {
	questions, err := s.generator.Generate(d)
	if err != nil {
		return nil, err
	}
	session := game.NewSession(uuid.NewString(), userID, username, d, questions, s.now())
	if err := s.games.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save game: %w", err)
	}
	return session, nil
}

// Game returns the live session for gameID.
func (s *GameService) Game(ctx context.Context, gameID string) (*game.Session, error) {
	return s.games.Get(ctx, gameID)
}

// StartQuestion starts the timer on the current question and returns it.
func (s *GameService) StartQuestion(ctx context.Context, gameID string) (domain.Question, error) {
	session, err := s.games.Get(ctx, gameID)
	if err != nil {
		return domain.Question{}, err
	}
	if !session.Start(s.now()) {
		return domain.Question{}, domain.ErrGameComplete
	}
	if err := s.games.Save(ctx, session); err != nil {
		return domain.Question{}, fmt.Errorf("save game: %w", err)
	}
	return *session.Current(), nil
}

// SubmitAnswer scores answer against the current question. submitted is
// false, with no error, when the question was never started or the game is
// already complete.
func (s *GameService) SubmitAnswer(ctx context.Context, gameID string, answer float64) (q domain.Question, submitted bool, err error) {
	session, err := s.games.Get(ctx, gameID)
	if err != nil {
		return domain.Question{}, false, err
	}
	q, submitted = session.Submit(s.formula, answer, s.now())
	if !submitted {
		return domain.Question{}, false, nil
	}
	if err := s.games.Save(ctx, session); err != nil {
		return domain.Question{}, false, fmt.Errorf("save game: %w", err)
	}
	return q, true, nil
}

// AdvanceQuestion moves the game's cursor forward.
func (s *GameService) AdvanceQuestion(ctx context.Context, gameID string) (*game.Session, error) {
	session, err := s.games.Get(ctx, gameID)
	if err != nil {
		return nil, err
	}
	session.Advance()
	if err := s.games.Save(ctx, session); err != nil {
		return nil, fmt.Errorf("save game: %w", err)
	}
	return session, nil
}

// FinishGame archives a completed game, offers its total to the leaderboard
// and drops the live session.
func (s *GameService) FinishGame(ctx context.Context, gameID string) (GameResult, error) {
	session, err := s.games.Get(ctx, gameID)
	if err != nil {
		return GameResult{}, err
	}
	if !session.Complete() {
		return GameResult{}, domain.ErrGameInProgress
	}

	record := session.Record(s.now().UTC())
	if err := s.archive.Record(ctx, record); err != nil {
		return GameResult{}, fmt.Errorf("archive game: %w", err)
	}

	entry, err := s.leaderboard.AddEntry(ctx, session.UserID, session.Username, session.ID, session.Difficulty, record.TotalScore)
	if err != nil {
		return GameResult{}, err
	}

	if err := s.games.Delete(ctx, gameID); err != nil {
		return GameResult{}, fmt.Errorf("delete game: %w", err)
	}
	return GameResult{Record: record, Entry: entry}, nil
}

// ArchivedGame returns a completed game, or nil if it was never archived.
func (s *GameService) ArchivedGame(ctx context.Context, gameID string) (*domain.GameRecord, error) {
	return s.archive.Get(ctx, gameID)
}
