// Package store defines the records shared by the session and trajectory
// storage backends.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/career"
	"github.com/spigell/career-planner/internal/profile"
)

// ErrNotFound is returned when a session or trajectory does not exist.
var ErrNotFound = errors.New("not found")

// Session is an interview session as seen by the trajectory builder.
type Session struct {
	ID     string
	UserID string
	// Done reports whether the interview was marked complete.
	Done bool
	// Profile is the stored structured profile, if one was saved.
	Profile *profile.Profile
	// Transcript holds the interview turns in chronological order.
	Transcript []ai.Turn
}

// Record is a persisted trajectory.
type Record struct {
	career.Trajectory `bson:",inline" yaml:",inline"`
	UserID            string    `json:"user_id" bson:"user_id" yaml:"user_id"`
	CreatedAt         time.Time `json:"created_at" bson:"created_at" yaml:"created_at"`
	UpdatedAt         time.Time `json:"updated_at" bson:"updated_at" yaml:"updated_at"`
}

type Sessions interface {
	Session(ctx context.Context, sessionID string) (*Session, error)
}

type Trajectories interface {
	// Upsert stores rec keyed by session id, replacing any previous plan.
	// CreatedAt is kept from the first write.
	Upsert(ctx context.Context, rec Record) error
	Get(ctx context.Context, sessionID string) (*Record, error)
	ListByUser(ctx context.Context, userID string, limit int) ([]Record, error)
}

// Backend is a complete storage driver.
type Backend interface {
	Sessions
	Trajectories
	Close(ctx context.Context) error
}
