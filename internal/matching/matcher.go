// Package matching pairs a free-text query with catalog rows: vector
// retrieval, hydration, deduplication, then two reasoning-service selection
// passes that can only narrow the candidate list and never reorder it.
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/catalog"
	"github.com/spigell/career-planner/internal/limits"
	"github.com/spigell/career-planner/internal/logger"
)

const (
	labelSeparator  = "\n---\n"
	detailSeparator = "\n------\n"
	defaultLogLen   = 200
)

// Searcher is the read-only view of a vector index.
type Searcher interface {
	Search(query []float32, k int) ([]int, error)
}

// Result is the outcome of one match.
type Result[P any] struct {
	// TopIdx holds the retrieved ids in retrieval order.
	TopIdx []int `json:"top_idx" bson:"top_idx" yaml:"top_idx"`
	// Stage1 holds the ids that survived coarse selection, in catalog order.
	Stage1 []int `json:"stage1" bson:"stage1" yaml:"stage1"`
	Result []P   `json:"result" bson:"result" yaml:"result"`
}

type (
	VacancyResult = Result[catalog.MatchedVacancy]
	CourseResult  = Result[catalog.MatchedCourse]
)

func emptyResult[P any]() *Result[P] {
	return &Result[P]{TopIdx: []int{}, Stage1: []int{}, Result: []P{}}
}

// Deps are the collaborators of a Matcher. A catalog whose index or
// repository is nil fails every match against it.
type Deps struct {
	Reasoner     ai.Reasoner
	Embedder     ai.Embedder
	VacancyIndex Searcher
	CourseIndex  Searcher
	Vacancies    catalog.Repository[catalog.Vacancy]
	Courses      catalog.Repository[catalog.Course]
}

type Matcher struct {
	deps   Deps
	limits limits.Limits
	logger *zap.Logger
}

func New(deps Deps, lim limits.Limits, log *zap.Logger) *Matcher {
	return &Matcher{deps: deps, limits: lim.WithDefaults(), logger: logger.OrNop(log)}
}

// MatchVacancies finds the vacancies that fit a résumé.
func (m *Matcher) MatchVacancies(ctx context.Context, req VacancyRequest) (*VacancyResult, error) {
	resume := normalize(req.Resume)
	depth := req.Depth.WithDefaults()
	if err := requireText("resume", resume); err != nil {
		return nil, err
	}
	if err := depth.Validate(); err != nil {
		return nil, err
	}

	query := m.preprocess(ctx, prompt(promptPreprocessResume), resume, resume)

	return run(ctx, m, m.vacancyFlow(), query, depth, func(body, list string) string {
		return fmt.Sprintf("Резюме кандидата:\n%s\n\n%s\n%s", resume, body, list)
	})
}

// MatchCourses finds the courses that teach the desired skills.
func (m *Matcher) MatchCourses(ctx context.Context, req CourseRequest) (*CourseResult, error) {
	req.DesiredSkills = normalize(req.DesiredSkills)
	req.Field = normalize(req.Field)
	req.Specialization = normalize(req.Specialization)
	depth := req.Depth.WithDefaults()
	if err := requireText("desired_skills", req.DesiredSkills); err != nil {
		return nil, err
	}
	if err := depth.Validate(); err != nil {
		return nil, err
	}

	query := m.preprocess(ctx, prompt(promptPreprocessCourses), courseQuery(req), req.DesiredSkills)

	return run(ctx, m, m.courseFlow(), query, depth, func(body, list string) string {
		return fmt.Sprintf("Запрос пользователя (навыки/цели):\n%s\n\n%s\n%s", query, body, list)
	})
}

// MatchFutureRole turns structured goals into a target-role narrative and
// matches it against the vacancy catalog. The narrative replaces the
// preprocessing step; the raw goals text is used when synthesis fails.
func (m *Matcher) MatchFutureRole(ctx context.Context, req FutureRequest) (*VacancyResult, error) {
	depth := req.Depth.WithDefaults()
	if err := depth.Validate(); err != nil {
		return nil, err
	}

	goals := normalize(req.GoalsText())
	future := m.preprocess(ctx, prompt(promptFutureRole), goals, goals)

	return run(ctx, m, m.vacancyFlow(), future, depth, func(body, list string) string {
		return fmt.Sprintf("Будущая роль кандидата:\n%s\n\n%s\n%s", future, body, list)
	})
}

// flow describes one catalog: where to retrieve, how to hydrate, which prompts to use.
type flow[T catalog.Record, P any] struct {
	name        string
	index       Searcher
	repo        catalog.Repository[T]
	project     func(T) P
	stage1      string
	stage2      string
	labelsTitle string
	detailTitle string
}

func (m *Matcher) vacancyFlow() flow[catalog.Vacancy, catalog.MatchedVacancy] {
	return flow[catalog.Vacancy, catalog.MatchedVacancy]{
		name:        string(catalog.Vacancies),
		index:       m.deps.VacancyIndex,
		repo:        m.deps.Vacancies,
		project:     catalog.Vacancy.Project,
		stage1:      promptVacanciesStage1,
		stage2:      promptVacanciesStage2,
		labelsTitle: "Список вакансий (id: title):",
		detailTitle: "Кандидаты (подробно):",
	}
}

func (m *Matcher) courseFlow() flow[catalog.Course, catalog.MatchedCourse] {
	return flow[catalog.Course, catalog.MatchedCourse]{
		name:        string(catalog.Courses),
		index:       m.deps.CourseIndex,
		repo:        m.deps.Courses,
		project:     catalog.Course.Project,
		stage1:      promptCoursesStage1,
		stage2:      promptCoursesStage2,
		labelsTitle: "Курсы (id: name):",
		detailTitle: "Курсы (подробно):",
	}
}

func run[T catalog.Record, P any](
	ctx context.Context,
	m *Matcher,
	f flow[T, P],
	query string,
	depth Depth,
	userContext func(title, list string) string,
) (*Result[P], error) {
	start := time.Now()
	log := m.logger.With(zap.String(logger.FieldCatalog, f.name))

	if f.index == nil || f.repo == nil {
		return nil, fmt.Errorf("%s catalog is not configured", f.name)
	}
	if m.deps.Embedder == nil {
		return nil, errors.New("embedding service is not configured")
	}

	vec, err := m.deps.Embedder.Embed(ctx, query, ai.EmbedQuery)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	topIdx, err := f.index.Search(vec, depth.Retrieve)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", f.name, err)
	}

	hydrated, err := catalog.Hydrate(ctx, f.repo, topIdx)
	if err != nil {
		return nil, fmt.Errorf("hydrate %s: %w", f.name, err)
	}

	candidates := catalog.Dedup(hydrated)
	if len(candidates) == 0 {
		log.Info("match completed", zap.String("reason", "no candidates after hydration"),
			zap.Int("retrieved", len(topIdx)))
		return emptyResult[P](), nil
	}

	labels := make([]string, len(candidates))
	for i, c := range candidates {
		labels[i] = c.Label()
	}
	chosen1 := m.choose(ctx, log, selectionPrompt(f.stage1, depth.Stage1),
		userContext(f.labelsTitle, strings.Join(labels, labelSeparator)))
	shortlist, fellBack1 := Select(candidates, chosen1, depth.Stage1)

	details := make([]string, len(shortlist))
	for i, c := range shortlist {
		details[i] = c.Detail()
	}
	chosen2 := m.choose(ctx, log, selectionPrompt(f.stage2, depth.Stage2),
		userContext(f.detailTitle, strings.Join(details, detailSeparator)))
	final, fellBack2 := Select(shortlist, chosen2, depth.Stage2)

	result := &Result[P]{
		TopIdx: append([]int{}, topIdx...),
		Stage1: catalog.Indices(shortlist),
		Result: make([]P, len(final)),
	}
	for i, row := range final {
		result.Result[i] = f.project(row)
	}

	log.Info("match completed",
		zap.Int("retrieved", len(topIdx)),
		zap.Int("hydrated", len(hydrated)),
		zap.Int("deduplicated", len(candidates)),
		zap.Int("stage1", len(shortlist)),
		zap.Int("result", len(final)),
		zap.Bool("stage1_fallback", fellBack1),
		zap.Bool("stage2_fallback", fellBack2),
		zap.Duration("took", time.Since(start)),
	)

	return result, nil
}

// choose runs one selection pass. Failures degrade to an empty choice.
func (m *Matcher) choose(ctx context.Context, log *zap.Logger, system, user string) []int {
	if m.deps.Reasoner == nil {
		return nil
	}

	req := ai.System(system, user, m.limits.SelectionMaxTokens).WithSchema(selectionSchema)
	raw, err := m.deps.Reasoner.Complete(ctx, req)
	if err != nil {
		log.Warn("selection call failed, keeping retrieval order", zap.Error(err))
		return nil
	}

	ids := ParseSelection(raw)
	if len(ids) == 0 {
		log.Warn("selection answer had no ids, keeping retrieval order",
			zap.String("response_preview", logger.Preview(raw, defaultLogLen)))
	}
	return ids
}

// preprocess rewrites text with one reasoning call, returning fallback when
// the call fails or answers with nothing.
func (m *Matcher) preprocess(ctx context.Context, system, text, fallback string) string {
	if m.deps.Reasoner == nil {
		return fallback
	}

	out, err := m.deps.Reasoner.Complete(ctx, ai.System(system, text, m.limits.PreprocessMaxTokens))
	if err != nil {
		m.logger.Warn("query rewrite failed, using original text", zap.Error(err))
		return fallback
	}

	out = normalize(out)
	if out == "" {
		return fallback
	}
	return out
}
