package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/profile"
	"github.com/spigell/career-planner/internal/store"
)

// sessionWriter is implemented by stores that accept sessions directly.
type sessionWriter interface {
	PutSession(ctx context.Context, sess store.Session) error
}

// sessionFile is the import format for a finished interview.
type sessionFile struct {
	SessionID  string          `json:"session_id"`
	UserID     string          `json:"user_id"`
	Done       bool            `json:"done"`
	Profile    json.RawMessage `json:"profile,omitempty"`
	Transcript []ai.Turn       `json:"transcript,omitempty"`
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage interview sessions in the local store",
}

var sessionImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Import an interview session from a JSON file",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		importSession(args[0])
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionImportCmd)
}

func importSession(path string) {
	ctx := context.Background()
	rt := newRuntime()
	defer rt.close(ctx)

	sess, err := readSessionFile(path)
	if err != nil {
		rt.logger.Fatal("reading session file", zap.String("path", path), zap.Error(err))
	}

	backend, err := rt.store(ctx)
	if err != nil {
		rt.logger.Fatal("opening store", zap.Error(err))
	}

	writer, ok := backend.(sessionWriter)
	if !ok {
		rt.logger.Fatal("store driver does not accept sessions", zap.String("driver", rt.config.Store.Driver))
	}

	if err := writer.PutSession(ctx, *sess); err != nil {
		rt.logger.Fatal("saving session", zap.Error(err))
	}

	rt.logger.Info("session imported",
		zap.String("session_id", sess.ID),
		zap.Bool("done", sess.Done),
		zap.Bool("has_profile", sess.Profile != nil),
		zap.Int("turns", len(sess.Transcript)))
}

func readSessionFile(path string) (*store.Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if file.SessionID == "" || file.UserID == "" {
		return nil, fmt.Errorf("session_id and user_id are required")
	}

	sess := &store.Session{
		ID:         file.SessionID,
		UserID:     file.UserID,
		Done:       file.Done,
		Transcript: file.Transcript,
	}
	if len(file.Profile) > 0 && string(file.Profile) != "null" {
		p, err := profile.DecodeJSON(file.Profile)
		if err != nil {
			return nil, err
		}
		sess.Profile = p
	}
	return sess, nil
}
