package trajectory

import (
	"errors"

	"github.com/spigell/career-planner/internal/store"
)

var (
	// ErrPrecondition is returned when the session cannot be planned yet.
	ErrPrecondition = errors.New("trajectory precondition failed")
	// ErrPersistence wraps storage failures while saving a trajectory.
	ErrPersistence = errors.New("trajectory persistence failed")
	// ErrSessionNotFound is returned when the session does not exist.
	ErrSessionNotFound = store.ErrNotFound
)

// StageError reports which build stage failed. The message stays generic;
// the cause is available through errors.Is and errors.As.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return "trajectory build failed at stage " + e.Stage
}

func (e *StageError) Unwrap() error { return e.Err }
