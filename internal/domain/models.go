package domain

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty selects one of the fixed game configurations.
type Difficulty string

const (
	Beginner     Difficulty = "Beginner"
	Novice       Difficulty = "Novice"
	Intermediate Difficulty = "Intermediate"
	Expert       Difficulty = "Expert"
)

// Difficulties lists every valid difficulty, easiest first.
var Difficulties = []Difficulty{Beginner, Novice, Intermediate, Expert}

// Operation is an arithmetic operation a question asks for.
type Operation string

const (
	Add      Operation = "Add"
	Subtract Operation = "Subtract"
	Multiply Operation = "Multiply"
	Divide   Operation = "Divide"
)

// Symbol returns the printable operator.
func (o Operation) Symbol() string {
	switch o {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "×"
	case Divide:
		return "÷"
	default:
		return "?"
	}
}

// DifficultyProfile fixes the shape of a game at one difficulty.
type DifficultyProfile struct {
	QuestionCount     int
	MaxDigits         int
	AllowedOperations []Operation
	// TimeMultiplier is the per-second time penalty rate used by scoring.
	TimeMultiplier float64
}

var profiles = map[Difficulty]DifficultyProfile{
	Beginner:     {QuestionCount: 5, MaxDigits: 2, AllowedOperations: []Operation{Add, Subtract}, TimeMultiplier: 5},
	Novice:       {QuestionCount: 5, MaxDigits: 2, AllowedOperations: []Operation{Add, Subtract, Multiply, Divide}, TimeMultiplier: 10},
	Intermediate: {QuestionCount: 10, MaxDigits: 3, AllowedOperations: []Operation{Add, Subtract, Multiply, Divide}, TimeMultiplier: 15},
	Expert:       {QuestionCount: 10, MaxDigits: 4, AllowedOperations: []Operation{Add, Subtract, Multiply, Divide}, TimeMultiplier: 15},
}

// ProfileFor returns the profile of d or ErrInvalidDifficulty.
func ProfileFor(d Difficulty) (DifficultyProfile, error) {
	p, ok := profiles[d]
	if !ok {
		return DifficultyProfile{}, fmt.Errorf("%w: %q", ErrInvalidDifficulty, string(d))
	}
	return p, nil
}

// MustProfile is ProfileFor for callers that already validated d.
func MustProfile(d Difficulty) DifficultyProfile {
	p, err := ProfileFor(d)
	if err != nil {
		panic(err)
	}
	return p
}

// Valid reports whether d is one of the enumerated difficulties.
func (d Difficulty) Valid() bool {
	_, ok := profiles[d]
	return ok
}

// ParseDifficulty matches s case-insensitively against the known difficulties.
func ParseDifficulty(s string) (Difficulty, error) {
	for _, d := range Difficulties {
		if strings.EqualFold(string(d), strings.TrimSpace(s)) {
			return d, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
}

// Question is a single generated arithmetic question. The answer fields are
// filled in when the player submits.
type Question struct {
	ID            int       `json:"id"`
	Operand1      int       `json:"operand1"`
	Operand2      int       `json:"operand2"`
	Operation     Operation `json:"operation"`
	CorrectAnswer float64   `json:"correctAnswer"`

	Answered          bool    `json:"answered"`
	UserAnswer        float64 `json:"userAnswer"`
	ElapsedSeconds    float64 `json:"elapsedSeconds"`
	PercentDifference float64 `json:"percentDifference"`
	Score             float64 `json:"score"`
}

// Prompt renders the question for display, e.g. "20 - 4".
func (q Question) Prompt() string {
	return fmt.Sprintf("%d %s %d", q.Operand1, q.Operation.Symbol(), q.Operand2)
}

// LeaderboardEntry is one admitted score in a difficulty bucket. Lower scores
// are better. Rank is derived and recomputed on every membership change.
type LeaderboardEntry struct {
	ID         string     `json:"id" bson:"_id"`
	Difficulty Difficulty `json:"difficulty" bson:"difficulty"`
	Username   string     `json:"username" bson:"username"`
	UserID     string     `json:"userId" bson:"user_id"`
	GameID     string     `json:"gameId" bson:"game_id"`
	Score      float64    `json:"score" bson:"score"`
	AchievedAt time.Time  `json:"achievedAt" bson:"achieved_at"`
	Rank       int        `json:"rank" bson:"rank"`
}

// GameRecord is the archived summary of a completed game.
type GameRecord struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Username    string     `json:"username"`
	Difficulty  Difficulty `json:"difficulty"`
	TotalScore  float64    `json:"totalScore"`
	Questions   []Question `json:"questions"`
	CompletedAt time.Time  `json:"completedAt"`
}
