package game

import (
	"time"

	"mathquiz-service/internal/domain"
)

// Session is one player's run through a generated question list. It is a
// linear state machine: Start, Submit, Advance, repeated until Complete.
// A Session is not safe for concurrent mutation.
type Session struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId"`
	Username     string            `json:"username"`
	Difficulty   domain.Difficulty `json:"difficulty"`
	Questions    []domain.Question `json:"questions"`
	CurrentIndex int               `json:"currentIndex"`
	StartedAt    *time.Time        `json:"startedAt,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
}

// NewSession wraps a generated question list.
func NewSession(id, userID, username string, d domain.Difficulty, questions []domain.Question, now time.Time) *Session {
	return &Session{
		ID:         id,
		UserID:     userID,
		Username:   username,
		Difficulty: d,
		Questions:  questions,
		CreatedAt:  now,
	}
}

// Complete reports whether the cursor has passed the last question.
func (s *Session) Complete() bool {
	return s.CurrentIndex >= len(s.Questions)
}

// Current returns the active question, or nil once complete.
func (s *Session) Current() *domain.Question {
	if s.Complete() || s.CurrentIndex < 0 {
		return nil
	}
	return &s.Questions[s.CurrentIndex]
}

// Start records when the current question was shown.
func (s *Session) Start(now time.Time) bool {
	if s.Current() == nil {
		return false
	}
	s.StartedAt = &now
	return true
}

// Submit scores answer against the current question using the time since
// Start. It does nothing and returns false when there is no current question
// or no start was recorded. Calling it again before Advance rescores the same
// question.
func (s *Session) Submit(f Formula, answer float64, now time.Time) (domain.Question, bool) {
	q := s.Current()
	if q == nil || s.StartedAt == nil {
		return domain.Question{}, false
	}
	profile, err := domain.ProfileFor(s.Difficulty)
	if err != nil {
		return domain.Question{}, false
	}
	elapsed := Round1(now.Sub(*s.StartedAt).Seconds())
	ScoreAnswer(f, profile, q, answer, elapsed)
	return *q, true
}

// Advance moves to the next question and clears the start time.
func (s *Session) Advance() {
	if !s.Complete() {
		s.CurrentIndex++
	}
	s.StartedAt = nil
}

// TotalScore sums the scores of answered questions.
func (s *Session) TotalScore() float64 {
	var total float64
	for _, q := range s.Questions {
		total += q.Score
	}
	return Round1(total)
}

// Clone returns a deep copy so stores can hand out sessions without sharing state.
func (s *Session) Clone() *Session {
	c := *s
	c.Questions = append([]domain.Question(nil), s.Questions...)
	if s.StartedAt != nil {
		t := *s.StartedAt
		c.StartedAt = &t
	}
	return &c
}

// Record summarises a finished session for archiving.
func (s *Session) Record(completedAt time.Time) domain.GameRecord {
	return domain.GameRecord{
		ID:          s.ID,
		UserID:      s.UserID,
		Username:    s.Username,
		Difficulty:  s.Difficulty,
		TotalScore:  s.TotalScore(),
		Questions:   append([]domain.Question(nil), s.Questions...),
		CompletedAt: completedAt,
	}
}
