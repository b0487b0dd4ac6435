package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/trajectory"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build and save a learning trajectory for a finished interview session",
	Run: func(cmd *cobra.Command, _ []string) {
		build(cmd)
	},
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringP("session", "s", "", "interview session id")
	buildCmd.Flags().Int("weekly-hours", trajectory.DefaultWeeklyHours, "hours per week available for learning (2-60)")
	buildCmd.Flags().Int("total-months", trajectory.DefaultTotalMonths, "planning horizon in months (1-36)")
	buildCmd.Flags().Int("target-limit", trajectory.DefaultPositionsLimit, "number of target-role vacancies (1-20)")
	buildCmd.Flags().Int("current-limit", trajectory.DefaultPositionsLimit, "number of current-role vacancies (1-20)")
	buildCmd.Flags().StringP("output", "o", formatYAML, "output format: yaml or json")

	buildCmd.MarkFlagRequired("session")
}

func build(cmd *cobra.Command) {
	ctx := context.Background()
	rt := newRuntime()
	defer rt.close(ctx)

	flags := cmd.Flags()
	sessionID, _ := flags.GetString("session")
	weekly, _ := flags.GetInt("weekly-hours")
	months, _ := flags.GetInt("total-months")
	target, _ := flags.GetInt("target-limit")
	current, _ := flags.GetInt("current-limit")
	output, _ := flags.GetString("output")

	builder, _, err := rt.builder(ctx)
	if err != nil {
		rt.logger.Fatal("preparing trajectory builder", zap.Error(err))
	}

	rt.logger.Info("starting the trajectory build", zap.String("version", version), zap.String("session_id", sessionID))

	result, err := builder.Build(ctx, trajectory.BuildRequest{
		SessionID:             sessionID,
		WeeklyHours:           weekly,
		TotalMonths:           months,
		TargetPositionsLimit:  target,
		CurrentPositionsLimit: current,
	})
	switch {
	case errors.Is(err, trajectory.ErrInvalidRequest), errors.Is(err, trajectory.ErrPrecondition):
		rt.logger.Fatal("cannot build trajectory", zap.Error(err))
	case err != nil:
		rt.logger.Fatal("building trajectory", zap.Error(err), zap.NamedError("cause", errors.Unwrap(err)))
	}

	if err := render(os.Stdout, output, result); err != nil {
		rt.logger.Fatal("printing trajectory", zap.Error(err))
	}
}
