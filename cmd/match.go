package cmd

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/matching"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Run two-stage matching against the vacancy or course catalog",
}

var matchVacanciesCmd = &cobra.Command{
	Use:   "vacancies",
	Short: "Match a résumé against vacancies",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd, func(ctx context.Context, m *matching.Matcher, depth matching.Depth) (any, error) {
			path, _ := cmd.Flags().GetString("resume-file")
			resume, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			return m.MatchVacancies(ctx, matching.VacancyRequest{Resume: string(resume), Depth: depth})
		})
	},
}

var matchCoursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Match desired skills against courses",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd, func(ctx context.Context, m *matching.Matcher, depth matching.Depth) (any, error) {
			flags := cmd.Flags()
			skills, _ := flags.GetString("skills")
			field, _ := flags.GetString("field")
			specialization, _ := flags.GetString("specialization")
			return m.MatchCourses(ctx, matching.CourseRequest{
				DesiredSkills:  skills,
				Field:          field,
				Specialization: specialization,
				Depth:          depth,
			})
		})
	},
}

var matchFutureCmd = &cobra.Command{
	Use:   "future",
	Short: "Match a target role described by goals against vacancies",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd, func(ctx context.Context, m *matching.Matcher, depth matching.Depth) (any, error) {
			flags := cmd.Flags()
			field, _ := flags.GetString("field")
			specialization, _ := flags.GetString("specialization")
			activities, _ := flags.GetStringSlice("activities")
			role, _ := flags.GetString("role")
			level, _ := flags.GetString("level")
			salary, _ := flags.GetString("salary")
			info, _ := flags.GetString("info")
			return m.MatchFutureRole(ctx, matching.FutureRequest{
				Field:             field,
				Specialization:    specialization,
				Activities:        strings.Join(activities, ", "),
				DesiredRole:       role,
				DesiredLevel:      level,
				SalaryExpectation: salary,
				AdditionalInfo:    info,
				Depth:             depth,
			})
		})
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	matchCmd.AddCommand(matchVacanciesCmd, matchCoursesCmd, matchFutureCmd)

	matchCmd.PersistentFlags().Int("k-faiss", matching.DefaultRetrieve, "nearest neighbours fetched from the index")
	matchCmd.PersistentFlags().Int("k-stage1", matching.DefaultStage1, "candidates kept after the coarse selection")
	matchCmd.PersistentFlags().Int("k-stage2", matching.DefaultStage2, "results kept after the final selection")
	matchCmd.PersistentFlags().StringP("output", "o", formatYAML, "output format: yaml or json")

	matchVacanciesCmd.Flags().StringP("resume-file", "r", "", "file with the résumé text")
	matchVacanciesCmd.MarkFlagRequired("resume-file")

	matchCoursesCmd.Flags().String("skills", "", "skills to learn")
	matchCoursesCmd.Flags().String("field", "", "professional field")
	matchCoursesCmd.Flags().String("specialization", "", "specialization")
	matchCoursesCmd.MarkFlagRequired("skills")

	matchFutureCmd.Flags().String("field", "", "target field")
	matchFutureCmd.Flags().String("specialization", "", "target specialization")
	matchFutureCmd.Flags().StringSlice("activities", nil, "desired activities")
	matchFutureCmd.Flags().String("role", "", "desired role")
	matchFutureCmd.Flags().String("level", "", "desired level")
	matchFutureCmd.Flags().String("salary", "", "salary expectation")
	matchFutureCmd.Flags().String("info", "", "additional information")
}

func runMatch(cmd *cobra.Command, fn func(context.Context, *matching.Matcher, matching.Depth) (any, error)) {
	ctx := context.Background()
	rt := newRuntime()
	defer rt.close(ctx)

	flags := cmd.Flags()
	var depth matching.Depth
	depth.Retrieve, _ = flags.GetInt("k-faiss")
	depth.Stage1, _ = flags.GetInt("k-stage1")
	depth.Stage2, _ = flags.GetInt("k-stage2")
	output, _ := flags.GetString("output")

	m, err := rt.matcher(ctx)
	if err != nil {
		rt.logger.Fatal("preparing matcher", zap.Error(err))
	}

	result, err := fn(ctx, m, depth)
	if err != nil {
		rt.logger.Fatal("matching failed", zap.String("command", cmd.Name()), zap.Error(err))
	}

	if err := render(os.Stdout, output, result); err != nil {
		rt.logger.Fatal("printing result", zap.Error(err))
	}
}
