package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/store"
)

const PromptBack = "back"

var trajectoriesCmd = &cobra.Command{
	Use:   "trajectories",
	Short: "Inspect saved trajectories",
}

var trajectoriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trajectories of a user, newest first",
	Run: func(cmd *cobra.Command, _ []string) {
		listTrajectories(cmd)
	},
}

var trajectoriesShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print a saved trajectory by session id",
	Run: func(cmd *cobra.Command, _ []string) {
		showTrajectory(cmd)
	},
}

func init() {
	rootCmd.AddCommand(trajectoriesCmd)
	trajectoriesCmd.AddCommand(trajectoriesListCmd, trajectoriesShowCmd)

	trajectoriesCmd.PersistentFlags().StringP("output", "o", formatYAML, "output format: yaml or json")

	trajectoriesListCmd.Flags().StringP("user", "u", "", "user id")
	trajectoriesListCmd.Flags().IntP("limit", "l", 20, "maximum number of trajectories")
	trajectoriesListCmd.Flags().BoolP("interactive", "i", false, "choose a trajectory to print")
	trajectoriesListCmd.MarkFlagRequired("user")

	trajectoriesShowCmd.Flags().StringP("session", "s", "", "interview session id")
	trajectoriesShowCmd.MarkFlagRequired("session")
}

func listTrajectories(cmd *cobra.Command) {
	ctx := context.Background()
	rt := newRuntime()
	defer rt.close(ctx)

	flags := cmd.Flags()
	userID, _ := flags.GetString("user")
	limit, _ := flags.GetInt("limit")
	interactive, _ := flags.GetBool("interactive")
	output, _ := flags.GetString("output")

	backend, err := rt.store(ctx)
	if err != nil {
		rt.logger.Fatal("opening store", zap.Error(err))
	}

	recs, err := backend.ListByUser(ctx, userID, limit)
	if err != nil {
		rt.logger.Fatal("listing trajectories", zap.Error(err))
	}

	rt.logger.Info("found trajectories", zap.String("user_id", userID), zap.Int("count", len(recs)))
	if len(recs) == 0 {
		return
	}

	if !interactive {
		for _, rec := range recs {
			fmt.Println(label(rec))
		}
		return
	}

	if err := chooseTrajectory(recs, output); err != nil {
		rt.logger.Fatal("exiting", zap.Error(err))
	}
}

func chooseTrajectory(recs []store.Record, output string) error {
	items := make([]string, 0, len(recs)+1)
	for _, rec := range recs {
		items = append(items, label(rec))
	}

	for {
		choice := promptui.Select{
			Label: "Choose a trajectory and press ENTER",
			Items: append(items, PromptBack),
		}

		idx, selected, err := choice.Run()
		if err != nil {
			return err
		}
		if selected == PromptBack {
			return nil
		}

		if err := render(os.Stdout, output, recs[idx]); err != nil {
			return err
		}
	}
}

func label(rec store.Record) string {
	return fmt.Sprintf("%s / %s / %d groups / %d gaps",
		rec.SessionID, rec.CreatedAt.Format("2006-01-02 15:04"), len(rec.Groups), len(rec.GapNames()))
}

func showTrajectory(cmd *cobra.Command) {
	ctx := context.Background()
	rt := newRuntime()
	defer rt.close(ctx)

	flags := cmd.Flags()
	sessionID, _ := flags.GetString("session")
	output, _ := flags.GetString("output")

	backend, err := rt.store(ctx)
	if err != nil {
		rt.logger.Fatal("opening store", zap.Error(err))
	}

	rec, err := backend.Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		rt.logger.Info("exiting", zap.String("reason", "no trajectory for session"), zap.String("session_id", sessionID))
		return
	}
	if err != nil {
		rt.logger.Fatal("loading trajectory", zap.Error(err))
	}

	if err := render(os.Stdout, output, rec); err != nil {
		rt.logger.Fatal("printing trajectory", zap.Error(err))
	}
}
