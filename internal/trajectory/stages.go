package trajectory

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/career"
	"github.com/spigell/career-planner/internal/catalog"
	"github.com/spigell/career-planner/internal/matching"
	"github.com/spigell/career-planner/internal/profile"
	"github.com/spigell/career-planner/internal/recommend"
	"github.com/spigell/career-planner/internal/store"
)

const (
	StageProfile          = "profile"
	StageCurrentPositions = "current_positions"
	StageFuturePositions  = "future_positions"
	StageGaps             = "gaps"
	StageEnrich           = "enrich"
	StageGroup            = "group"
	StagePersist          = "persist"
)

// build holds the state passed from one stage to the next.
type build struct {
	req     BuildRequest
	session *store.Session
	profile *profile.Profile
	current []catalog.MatchedVacancy
	future  []catalog.MatchedVacancy
	gaps    []career.Gap
	groups  []career.Group
	result  *career.Trajectory
}

// Step describes the result of executing a stage.
type Step struct {
	Items int
}

type stage struct {
	name string
	run  func(ctx context.Context, log *zap.Logger, b *build) (Step, error)
}

func (b *Builder) stages() []stage {
	return []stage{
		{StageProfile, b.loadProfile},
		{StageCurrentPositions, b.matchCurrent},
		{StageFuturePositions, b.matchFuture},
		{StageGaps, b.extractGaps},
		{StageEnrich, b.enrich},
		{StageGroup, b.group},
		{StagePersist, b.persist},
	}
}

func (b *Builder) loadProfile(ctx context.Context, log *zap.Logger, st *build) (Step, error) {
	sess, err := b.deps.Sessions.Session(ctx, st.req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return Step{}, fmt.Errorf("%w: session %q: %w", ErrPrecondition, st.req.SessionID, err)
	}
	if err != nil {
		return Step{}, fmt.Errorf("load session: %w", err)
	}
	if !sess.Done {
		return Step{}, fmt.Errorf("%w: interview for session %q is not finished", ErrPrecondition, st.req.SessionID)
	}
	st.session = sess

	if sess.Profile != nil {
		st.profile = sess.Profile
		return Step{Items: len(sess.Profile.Resume)}, nil
	}

	log.Info("no stored profile, extracting from transcript", zap.Int("turns", len(sess.Transcript)))
	p, err := profile.Extract(ctx, b.deps.Reasoner, sess.Transcript)
	if err != nil {
		return Step{}, err
	}
	st.profile = p
	return Step{Items: len(p.Resume)}, nil
}

func (b *Builder) matchCurrent(ctx context.Context, log *zap.Logger, st *build) (Step, error) {
	resume := st.profile.ResumeText(b.limits)
	if resume == "" {
		log.Warn("profile has no work history or skills, skipping current positions")
		st.current = []catalog.MatchedVacancy{}
		return Step{}, nil
	}

	res, err := b.deps.Matcher.MatchVacancies(ctx, matching.VacancyRequest{
		Resume: resume,
		Depth:  b.depth(st.req.CurrentPositionsLimit),
	})
	if err != nil {
		return Step{}, err
	}
	st.current = res.Result
	return Step{Items: len(st.current)}, nil
}

func (b *Builder) matchFuture(ctx context.Context, _ *zap.Logger, st *build) (Step, error) {
	goals := st.profile.Goals
	res, err := b.deps.Matcher.MatchFutureRole(ctx, matching.FutureRequest{
		Field:             goals.TargetField,
		Specialization:    goals.TargetSpecialization,
		Activities:        goals.Activities(),
		DesiredRole:       goals.DesiredRole,
		DesiredLevel:      goals.DesiredLevel,
		SalaryExpectation: goals.MinSalary(),
		Depth:             b.depth(st.req.TargetPositionsLimit),
	})
	if err != nil {
		return Step{}, err
	}
	st.future = res.Result
	return Step{Items: len(st.future)}, nil
}

func (b *Builder) extractGaps(ctx context.Context, _ *zap.Logger, st *build) (Step, error) {
	st.gaps = b.deps.Gaps.Extract(ctx, st.profile, st.future, b.limits.Gaps)
	return Step{Items: len(st.gaps)}, nil
}

func (b *Builder) enrich(ctx context.Context, _ *zap.Logger, st *build) (Step, error) {
	field, specialization := st.profile.LearningContext()
	st.gaps = b.deps.Enricher.Enrich(ctx, st.gaps, recommend.Options{
		Field:          field,
		Specialization: specialization,
		Courses:        b.limits.CoursesPerGap,
		Practice:       b.limits.ProjectsPerGap,
	})

	total := 0
	for _, g := range st.gaps {
		total += len(g.Recommendations)
	}
	return Step{Items: total}, nil
}

func (b *Builder) group(ctx context.Context, _ *zap.Logger, st *build) (Step, error) {
	st.groups = b.deps.Planner.Group(ctx, st.gaps, st.req.WeeklyHours, st.req.TotalMonths)
	return Step{Items: len(st.groups)}, nil
}

func (b *Builder) persist(ctx context.Context, _ *zap.Logger, st *build) (Step, error) {
	st.result = &career.Trajectory{
		SessionID:        st.req.SessionID,
		CurrentPositions: nonNil(st.current),
		Groups:           st.groups,
		FuturePositions:  nonNil(st.future),
	}
	if st.result.Groups == nil {
		st.result.Groups = []career.Group{}
	}

	now := b.now().UTC()
	err := b.deps.Store.Upsert(ctx, store.Record{
		Trajectory: *st.result,
		UserID:     st.session.UserID,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return Step{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return Step{Items: 1}, nil
}

func (b *Builder) depth(limit int) matching.Depth {
	return matching.Depth{
		Retrieve: b.limits.TrajectoryRetrieve,
		Stage1:   b.limits.TrajectoryStage1,
		Stage2:   limit,
	}
}

func nonNil(v []catalog.MatchedVacancy) []catalog.MatchedVacancy {
	if v == nil {
		return []catalog.MatchedVacancy{}
	}
	return v
}
