package game

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"mathquiz-service/internal/domain"
)

// Generator produces question sets for a difficulty. It owns its random
// source so tests can seed it and concurrent callers never share global state.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewGenerator builds a Generator drawing from src.
func NewGenerator(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

// NewSeededGenerator seeds from seed, or from the clock when seed is zero.
func NewSeededGenerator(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewGenerator(rand.NewSource(seed))
}

// Generate returns exactly the profile's question count, ids starting at 1.
func (g *Generator) Generate(d domain.Difficulty) ([]domain.Question, error) {
	profile, err := domain.ProfileFor(d)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	questions := make([]domain.Question, 0, profile.QuestionCount)
	for i := 1; i <= profile.QuestionCount; i++ {
		op := profile.AllowedOperations[g.rnd.Intn(len(profile.AllowedOperations))]
		q, err := g.question(d, profile, op)
		if err != nil {
			return nil, err
		}
		q.ID = i
		questions = append(questions, q)
	}
	return questions, nil
}

func (g *Generator) question(d domain.Difficulty, p domain.DifficultyProfile, op domain.Operation) (domain.Question, error) {
	maxValue := int(math.Pow10(p.MaxDigits)) - 1
	small := p.MaxDigits <= 2
	q := domain.Question{Operation: op}

	switch op {
	case domain.Add:
		if d == domain.Beginner {
			single, double := g.between(1, 9), g.between(10, 99)
			if g.rnd.Intn(2) == 0 {
				q.Operand1, q.Operand2 = single, double
			} else {
				q.Operand1, q.Operand2 = double, single
			}
		} else {
			q.Operand1, q.Operand2 = g.between(1, maxValue), g.between(1, maxValue)
		}
		q.CorrectAnswer = float64(q.Operand1 + q.Operand2)

	case domain.Subtract:
		if d == domain.Beginner {
			q.Operand1, q.Operand2 = g.between(10, 99), g.between(1, 9)
		} else {
			q.Operand1 = g.between(1, maxValue)
			q.Operand2 = g.between(1, min(q.Operand1, maxValue))
		}
		q.CorrectAnswer = float64(q.Operand1 - q.Operand2)

	case domain.Multiply:
		if d == domain.Novice {
			q.Operand2 = g.between(1, 9)
			q.Operand1 = g.between(q.Operand2+1, min(maxValue, 99))
		} else {
			upper := 100
			if small {
				upper = 99
			}
			q.Operand1, q.Operand2 = g.between(1, upper), g.between(1, upper)
		}
		q.CorrectAnswer = float64(q.Operand1 * q.Operand2)

	case domain.Divide:
		if d == domain.Novice {
			divisor := g.between(2, min(9, maxValue))
			multiplier := g.between(2, min(maxValue/divisor, 9))
			q.Operand1, q.Operand2 = divisor*multiplier, divisor
			q.CorrectAnswer = float64(multiplier)
		} else {
			dividendMax, divisorMax := 1000, 100
			if small {
				dividendMax, divisorMax = 99, 9
			}
			// Keep the dividend inside the profile's digit range.
			q.Operand1 = g.between(1, min(dividendMax, maxValue))
			q.Operand2 = g.between(1, divisorMax)
			q.CorrectAnswer = Round1(float64(q.Operand1) / float64(q.Operand2))
		}

	default:
		return domain.Question{}, fmt.Errorf("%w: %q", domain.ErrInvalidOperation, string(op))
	}
	return q, nil
}

// between returns a uniform integer in [lo, hi].
func (g *Generator) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + g.rnd.Intn(hi-lo+1)
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}
