package domain

import "errors"

var (
	// ErrInvalidDifficulty is returned for a difficulty outside the enumerated set.
	ErrInvalidDifficulty = errors.New("invalid difficulty")
	// ErrInvalidOperation indicates an operation the generator does not know.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrGameNotFound is returned when a game id is not live.
	ErrGameNotFound = errors.New("game not found")
	// ErrGameComplete is returned when a game has no questions left to start.
	ErrGameComplete = errors.New("game already complete")
	// ErrGameInProgress is returned when finishing a game that still has questions.
	ErrGameInProgress = errors.New("game still in progress")
)
