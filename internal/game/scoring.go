package game

import (
	"fmt"
	"math"

	"mathquiz-service/internal/domain"
)

const (
	// MaxPercentDifference caps the error term; it is also the sentinel for a
	// non-zero answer to a question whose correct answer is zero.
	MaxPercentDifference = 200.0

	accuracyWeight = 3.0
	// Seconds before the time penalty slope halves.
	timeKnee = 10.0
)

// Breakdown is the outcome of scoring one answer. Lower Score is better.
type Breakdown struct {
	PercentDifference float64
	AccuracyScore     float64
	TimeScore         float64
	Score             float64
}

// Formula turns an answer into a score.
type Formula interface {
	Name() string
	Score(profile domain.DifficultyProfile, correct, answer, elapsedSeconds float64) Breakdown
}

// FormulaByName resolves the configured scoring formula; empty means Tiered.
func FormulaByName(name string) (Formula, error) {
	switch name {
	case "", "tiered":
		return Tiered{}, nil
	case "legacy":
		return Legacy{}, nil
	default:
		return nil, fmt.Errorf("unknown scoring formula %q", name)
	}
}

// PercentDifference is the rounded relative error in percent, capped at
// MaxPercentDifference.
func PercentDifference(correct, answer float64) float64 {
	if correct == 0 {
		if answer == 0 {
			return 0
		}
		return MaxPercentDifference
	}
	pd := Round1(math.Abs(correct-answer) / math.Abs(correct) * 100)
	return math.Min(pd, MaxPercentDifference)
}

// Tiered weights accuracy three times and charges time per second, at half
// rate after the first ten seconds.
type Tiered struct{}

func (Tiered) Name() string { return "tiered" }

func (Tiered) Score(profile domain.DifficultyProfile, correct, answer, elapsedSeconds float64) Breakdown {
	pd := PercentDifference(correct, answer)
	accuracy := pd * accuracyWeight

	m := profile.TimeMultiplier
	var timeScore float64
	if elapsedSeconds <= timeKnee {
		timeScore = elapsedSeconds * m
	} else {
		timeScore = timeKnee*m + (elapsedSeconds-timeKnee)*(m/2)
	}

	return Breakdown{
		PercentDifference: pd,
		AccuracyScore:     accuracy,
		TimeScore:         timeScore,
		Score:             Round1(accuracy + timeScore),
	}
}

// Legacy is the earlier formula: error scaled by time plus a flat time charge.
type Legacy struct{}

func (Legacy) Name() string { return "legacy" }

func (Legacy) Score(profile domain.DifficultyProfile, correct, answer, elapsedSeconds float64) Breakdown {
	pd := PercentDifference(correct, answer)
	accuracy := pd * elapsedSeconds
	timeScore := elapsedSeconds * profile.TimeMultiplier
	return Breakdown{
		PercentDifference: pd,
		AccuracyScore:     accuracy,
		TimeScore:         timeScore,
		Score:             Round1(accuracy + timeScore),
	}
}

// ScoreAnswer applies f to q in place. Operands and CorrectAnswer are left untouched.
func ScoreAnswer(f Formula, profile domain.DifficultyProfile, q *domain.Question, answer, elapsedSeconds float64) Breakdown {
	b := f.Score(profile, q.CorrectAnswer, answer, elapsedSeconds)
	q.Answered = true
	q.UserAnswer = answer
	q.ElapsedSeconds = elapsedSeconds
	q.PercentDifference = b.PercentDifference
	q.Score = b.Score
	return b
}
