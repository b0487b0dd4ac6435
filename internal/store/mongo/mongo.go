// Package mongo stores sessions and trajectories in MongoDB. Sessions,
// messages and profiles are written by the interview service; this package
// only reads them.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/career"
	"github.com/spigell/career-planner/internal/catalog"
	"github.com/spigell/career-planner/internal/profile"
	"github.com/spigell/career-planner/internal/store"
)

const (
	sessionsCollection     = "sessions"
	messagesCollection     = "messages"
	profilesCollection     = "profiles"
	trajectoriesCollection = "trajectories"

	roleAssistant = "assistant"
	roleUser      = "user"
)

type Store struct {
	client       *mongo.Client
	sessions     *mongo.Collection
	messages     *mongo.Collection
	profiles     *mongo.Collection
	trajectories *mongo.Collection
}

// Connect opens a client for uri and checks the connection.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// New uses db for every collection. Close disconnects the owning client.
func New(db *mongo.Database) *Store {
	return &Store{
		client:       db.Client(),
		sessions:     db.Collection(sessionsCollection),
		messages:     db.Collection(messagesCollection),
		profiles:     db.Collection(profilesCollection),
		trajectories: db.Collection(trajectoriesCollection),
	}
}

type sessionDoc struct {
	SessionID string `bson:"session_id"`
	UserID    string `bson:"user_id"`
}

type messageDoc struct {
	Role      string    `bson:"role"`
	Content   string    `bson:"content"`
	Done      bool      `bson:"done"`
	CreatedAt time.Time `bson:"created_at"`
}

type profileDoc struct {
	Profile *profile.Profile `bson:"profile"`
}

// Session loads the session, its completion flag, its stored profile and
// the interview transcript. The interview counts as finished when the
// latest assistant message carries done=true.
func (s *Store) Session(ctx context.Context, sessionID string) (*store.Session, error) {
	var sess sessionDoc
	err := s.sessions.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&sess)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("session %q: %w", sessionID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}

	out := &store.Session{ID: sessionID, UserID: sess.UserID}

	var last messageDoc
	err = s.messages.FindOne(ctx,
		bson.M{"session_id": sessionID, "role": roleAssistant},
		options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	).Decode(&last)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return nil, fmt.Errorf("find last assistant message: %w", err)
	default:
		out.Done = last.Done
	}

	var prof profileDoc
	err = s.profiles.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&prof)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
	case err != nil:
		return nil, fmt.Errorf("find profile: %w", err)
	default:
		out.Profile = prof.Profile
	}

	if out.Profile == nil {
		out.Transcript, err = s.transcript(ctx, sessionID)
		if err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (s *Store) transcript(ctx context.Context, sessionID string) ([]ai.Turn, error) {
	cur, err := s.messages.Find(ctx,
		bson.M{"session_id": sessionID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	var msgs []messageDoc
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	turns := make([]ai.Turn, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case roleAssistant:
			turns = append(turns, ai.Turn{Role: ai.RoleModel, Text: m.Content})
		case roleUser:
			turns = append(turns, ai.Turn{Role: ai.RoleUser, Text: m.Content})
		}
	}
	return turns, nil
}

type trajectorySet struct {
	SessionID        string                   `bson:"session_id"`
	UserID           string                   `bson:"user_id"`
	CurrentPositions []catalog.MatchedVacancy `bson:"current_positions"`
	Groups           []career.Group           `bson:"groups"`
	FuturePositions  []catalog.MatchedVacancy `bson:"future_positions"`
	UpdatedAt        time.Time                `bson:"updated_at"`
}

func (s *Store) Upsert(ctx context.Context, rec store.Record) error {
	update := bson.M{
		"$set": trajectorySet{
			SessionID:        rec.SessionID,
			UserID:           rec.UserID,
			CurrentPositions: rec.CurrentPositions,
			Groups:           rec.Groups,
			FuturePositions:  rec.FuturePositions,
			UpdatedAt:        rec.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": rec.CreatedAt},
	}

	_, err := s.trajectories.UpdateOne(ctx,
		bson.M{"session_id": rec.SessionID},
		update,
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert trajectory: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (*store.Record, error) {
	var rec store.Record
	err := s.trajectories.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("trajectory %q: %w", sessionID, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find trajectory: %w", err)
	}
	return &rec, nil
}

// ListByUser returns the user's trajectories, newest first. A non-positive
// limit returns all of them.
func (s *Store) ListByUser(ctx context.Context, userID string, limit int) ([]store.Record, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cur, err := s.trajectories.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find trajectories: %w", err)
	}

	var recs []store.Record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode trajectories: %w", err)
	}
	return recs, nil
}

func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}
