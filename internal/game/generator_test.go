package game

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mathquiz-service/internal/domain"
)

func digits(n int) int {
	if n == 0 {
		return 1
	}
	return int(math.Floor(math.Log10(float64(n)))) + 1
}

func TestGenerateRespectsProfiles(t *testing.T) {
	gen := NewGenerator(rand.NewSource(42))

	for _, d := range domain.Difficulties {
		profile := domain.MustProfile(d)
		allowed := map[domain.Operation]bool{}
		for _, op := range profile.AllowedOperations {
			allowed[op] = true
		}

		for round := 0; round < 200; round++ {
			questions, err := gen.Generate(d)
			require.NoError(t, err)
			require.Len(t, questions, profile.QuestionCount)

			for i, q := range questions {
				assert.Equal(t, i+1, q.ID)
				assert.True(t, allowed[q.Operation], "%s: operation %s not allowed", d, q.Operation)
				assert.GreaterOrEqual(t, q.Operand1, 1)
				assert.GreaterOrEqual(t, q.Operand2, 1)
				assert.LessOrEqual(t, digits(q.Operand1), profile.MaxDigits, "%s: %s", d, q.Prompt())
				assert.LessOrEqual(t, digits(q.Operand2), profile.MaxDigits, "%s: %s", d, q.Prompt())
				assert.GreaterOrEqual(t, q.CorrectAnswer, 0.0, "%s: %s", d, q.Prompt())
			}
		}
	}
}

func TestGenerateCorrectAnswersMatchOperands(t *testing.T) {
	gen := NewGenerator(rand.NewSource(7))
	for _, d := range domain.Difficulties {
		questions, err := gen.Generate(d)
		require.NoError(t, err)
		for _, q := range questions {
			var want float64
			switch q.Operation {
			case domain.Add:
				want = float64(q.Operand1 + q.Operand2)
			case domain.Subtract:
				want = float64(q.Operand1 - q.Operand2)
			case domain.Multiply:
				want = float64(q.Operand1 * q.Operand2)
			case domain.Divide:
				want = Round1(float64(q.Operand1) / float64(q.Operand2))
			}
			assert.Equal(t, want, q.CorrectAnswer, "%s: %s", d, q.Prompt())
		}
	}
}

func TestNoviceDivisionIsExact(t *testing.T) {
	gen := NewGenerator(rand.NewSource(99))
	seen := 0
	for seen < 300 {
		questions, err := gen.Generate(domain.Novice)
		require.NoError(t, err)
		for _, q := range questions {
			if q.Operation != domain.Divide {
				continue
			}
			seen++
			require.Zero(t, q.Operand1%q.Operand2, "%s leaves a remainder", q.Prompt())
			require.Equal(t, math.Trunc(q.CorrectAnswer), q.CorrectAnswer)
			require.GreaterOrEqual(t, q.Operand2, 2)
			require.GreaterOrEqual(t, q.CorrectAnswer, 2.0)
		}
	}
}

func TestNoviceMultiplicationOrdering(t *testing.T) {
	gen := NewGenerator(rand.NewSource(3))
	for i := 0; i < 200; i++ {
		questions, err := gen.Generate(domain.Novice)
		require.NoError(t, err)
		for _, q := range questions {
			if q.Operation != domain.Multiply {
				continue
			}
			assert.LessOrEqual(t, q.Operand2, 9)
			assert.Greater(t, q.Operand1, q.Operand2)
			assert.LessOrEqual(t, q.Operand1, 99)
		}
	}
}

func TestBeginnerOperandShapes(t *testing.T) {
	gen := NewGenerator(rand.NewSource(11))
	for i := 0; i < 200; i++ {
		questions, err := gen.Generate(domain.Beginner)
		require.NoError(t, err)
		for _, q := range questions {
			switch q.Operation {
			case domain.Add:
				lo, hi := min(q.Operand1, q.Operand2), max(q.Operand1, q.Operand2)
				assert.True(t, lo >= 1 && lo <= 9, "single digit operand out of range: %s", q.Prompt())
				assert.True(t, hi >= 10 && hi <= 99, "two digit operand out of range: %s", q.Prompt())
			case domain.Subtract:
				assert.True(t, q.Operand1 >= 10 && q.Operand1 <= 99, q.Prompt())
				assert.True(t, q.Operand2 >= 1 && q.Operand2 <= 9, q.Prompt())
				assert.Greater(t, q.Operand1, q.Operand2)
			default:
				t.Fatalf("beginner generated %s", q.Operation)
			}
		}
	}
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	a, err := NewGenerator(rand.NewSource(1234)).Generate(domain.Expert)
	require.NoError(t, err)
	b, err := NewGenerator(rand.NewSource(1234)).Generate(domain.Expert)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateInvalidDifficulty(t *testing.T) {
	_, err := NewSeededGenerator(1).Generate("Grandmaster")
	require.ErrorIs(t, err, domain.ErrInvalidDifficulty)
}

func TestRound1(t *testing.T) {
	assert.Equal(t, 6.3, Round1(6.25))
	assert.Equal(t, 3.3, Round1(10.0/3.0))
	assert.Equal(t, 24.0, Round1(1.6*15))
}
