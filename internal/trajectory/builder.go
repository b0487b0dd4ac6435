// Package trajectory composes matching, gap analysis, enrichment and
// planning into one build and persists the result.
package trajectory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/career"
	"github.com/spigell/career-planner/internal/catalog"
	"github.com/spigell/career-planner/internal/limits"
	"github.com/spigell/career-planner/internal/logger"
	"github.com/spigell/career-planner/internal/matching"
	"github.com/spigell/career-planner/internal/profile"
	"github.com/spigell/career-planner/internal/recommend"
	"github.com/spigell/career-planner/internal/store"
)

type VacancyMatcher interface {
	MatchVacancies(ctx context.Context, req matching.VacancyRequest) (*matching.VacancyResult, error)
	MatchFutureRole(ctx context.Context, req matching.FutureRequest) (*matching.VacancyResult, error)
}

type GapAnalyzer interface {
	Extract(ctx context.Context, p *profile.Profile, refs []catalog.MatchedVacancy, limit int) []career.Gap
}

type Enricher interface {
	Enrich(ctx context.Context, gaps []career.Gap, opts recommend.Options) []career.Gap
}

type Planner interface {
	Group(ctx context.Context, gaps []career.Gap, weeklyHours, totalMonths int) []career.Group
}

// Deps aggregates the collaborators shared across all build stages.
type Deps struct {
	Sessions store.Sessions
	Store    store.Trajectories
	// Reasoner extracts a profile when the session has none stored.
	Reasoner ai.Reasoner
	Matcher  VacancyMatcher
	Gaps     GapAnalyzer
	Enricher Enricher
	Planner  Planner
}

type Builder struct {
	deps   Deps
	limits limits.Limits
	logger *zap.Logger
	now    func() time.Time
}

func New(deps Deps, lim limits.Limits, log *zap.Logger) *Builder {
	return &Builder{
		deps:   deps,
		limits: lim.WithDefaults(),
		logger: logger.OrNop(log),
		now:    time.Now,
	}
}

// Build runs every stage in order for one session. Precondition failures are
// returned as is; any other failure is wrapped in a StageError.
func (b *Builder) Build(ctx context.Context, req BuildRequest) (*career.Trajectory, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	log := logger.WithBuild(b.logger, uuid.NewString(), req.SessionID)
	state := &build{req: req}
	started := time.Now()

	for _, s := range b.stages() {
		if err := ctx.Err(); err != nil {
			return nil, &StageError{Stage: s.name, Err: err}
		}

		stageStarted := time.Now()
		step, err := s.run(ctx, log, state)
		if err != nil {
			if errors.Is(err, ErrPrecondition) {
				log.Warn("trajectory precondition failed", zap.String(logger.FieldStage, s.name), zap.Error(err))
				return nil, err
			}
			log.Error("trajectory stage failed", zap.String(logger.FieldStage, s.name), zap.Error(err))
			return nil, &StageError{Stage: s.name, Err: err}
		}

		log.Info("trajectory stage",
			zap.String(logger.FieldStage, s.name),
			zap.Int("items", step.Items),
			zap.Duration("took", time.Since(stageStarted)),
		)
	}

	log.Info("trajectory built",
		zap.Int("current_positions", len(state.result.CurrentPositions)),
		zap.Int("future_positions", len(state.result.FuturePositions)),
		zap.Int("groups", len(state.result.Groups)),
		zap.Duration("took", time.Since(started)),
	)

	return state.result, nil
}
