package trajectory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/catalog"
	"github.com/spigell/career-planner/internal/gaps"
	"github.com/spigell/career-planner/internal/limits"
	"github.com/spigell/career-planner/internal/matching"
	"github.com/spigell/career-planner/internal/planner"
	"github.com/spigell/career-planner/internal/profile"
	"github.com/spigell/career-planner/internal/recommend"
	"github.com/spigell/career-planner/internal/store"
)

// routedReasoner answers by the schema title of each request.
type routedReasoner struct {
	mu       sync.Mutex
	byTitle  map[string]int
	planUser string
}

func (r *routedReasoner) Complete(_ context.Context, req ai.Request) (string, error) {
	title, _ := req.Schema["title"].(string)
	user := req.Turns[len(req.Turns)-1].Text

	r.mu.Lock()
	if r.byTitle == nil {
		r.byTitle = map[string]int{}
	}
	r.byTitle[title]++
	if title == "GapGroups" {
		r.planUser = user
	}
	r.mu.Unlock()

	switch title {
	case "PickN":
		if strings.HasPrefix(user, "Будущая роль кандидата:") {
			return `{"selected": [3, 1]}`, nil
		}
		return `{}`, nil
	case "Gaps":
		return `[
			{"name": "Leadership", "kind": "experience", "priority": 3, "prerequisites": ["Deploy pipelines"], "rationale": "leads teams"},
			{"name": "Deploy pipelines", "kind": "skill", "priority": 1, "prerequisites": [], "rationale": "ships models"}
		]`, nil
	case "Recommendations":
		return `[
			{"type": "tip", "title": "Tip one"},
			{"type": "project", "title": "Project one", "duration_hours": 15},
			{"type": "tip", "title": "Tip two"}
		]`, nil
	case "GapGroups":
		return `[
			{"group_id": 1, "title": "Foundations", "estimated_months": 2, "hours_per_week": 8,
			 "items": ["Leadership", "Deploy pipelines", "Kubernetes"], "notes": ""},
			{"group_id": 2, "title": "Again", "estimated_months": 1, "hours_per_week": 8, "items": ["Deploy pipelines"]}
		]`, nil
	case "User Profile":
		return sampleProfileJSON, nil
	default:
		return "", nil
	}
}

func (r *routedReasoner) calls(title string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byTitle[title]
}

type unitEmbedder struct{}

func (unitEmbedder) Embed(context.Context, string, ai.EmbedMode) ([]float32, error) {
	return []float32{1, 0}, nil
}

type fixedSearcher []int

func (s fixedSearcher) Search([]float32, int) ([]int, error) { return s, nil }

type memSessions map[string]*store.Session

func (m memSessions) Session(_ context.Context, id string) (*store.Session, error) {
	s, ok := m[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s, nil
}

type memTrajectories struct {
	records map[string]store.Record
	err     error
}

func (m *memTrajectories) Upsert(_ context.Context, rec store.Record) error {
	if m.err != nil {
		return m.err
	}
	if m.records == nil {
		m.records = map[string]store.Record{}
	}
	m.records[rec.SessionID] = rec
	return nil
}

func (m *memTrajectories) Get(_ context.Context, id string) (*store.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &rec, nil
}

func (m *memTrajectories) ListByUser(context.Context, string, int) ([]store.Record, error) {
	return nil, nil
}

const sampleProfileJSON = `{
  "professional_context": {"professional_field": "Backend", "specialization": "Go"},
  "resume": [{"company": "Acme", "title": "Engineer", "start_date": "2020", "tasks": ["apis"], "tech_stack": ["Go"]}],
  "skills": {"hard_skills": ["Go"]},
  "goals": {"target_field": "Data", "target_specialization": "ML", "desired_role": "ML Engineer",
            "salary_expectation": {"min": 300000}}
}`

type fixture struct {
	reasoner *routedReasoner
	sessions memSessions
	store    *memTrajectories
	builder  *Builder
}

func newFixture(t *testing.T, log *zap.Logger) *fixture {
	t.Helper()

	p, err := profile.DecodeJSON([]byte(sampleProfileJSON))
	require.NoError(t, err)

	r := &routedReasoner{}
	lim := limits.Default()
	m := matching.New(matching.Deps{
		Reasoner:     r,
		Embedder:     unitEmbedder{},
		VacancyIndex: fixedSearcher{1, 2, 3},
		CourseIndex:  fixedSearcher{10, 11, 12},
		Vacancies: catalog.NewMemory(
			catalog.Vacancy{Idx: 1, Title: "Data Engineer", Company: "A"},
			catalog.Vacancy{Idx: 2, Title: "ML Engineer", Company: "B"},
			catalog.Vacancy{Idx: 3, Title: "MLOps Engineer", Company: "C"},
		),
		Courses: catalog.NewMemory(
			catalog.Course{Idx: 10, Name: "CI/CD", University: "MIT"},
			catalog.Course{Idx: 11, Name: "Team Lead", University: "CMU"},
			catalog.Course{Idx: 12, Name: "Docker", University: "ETH"},
		),
	}, lim, nil)

	f := &fixture{
		reasoner: r,
		sessions: memSessions{
			"s-1": {ID: "s-1", UserID: "user-1", Done: true, Profile: p},
		},
		store: &memTrajectories{},
	}
	f.builder = New(Deps{
		Sessions: f.sessions,
		Store:    f.store,
		Reasoner: r,
		Matcher:  m,
		Gaps:     gaps.New(r, lim, nil),
		Enricher: recommend.New(m, r, lim, nil),
		Planner:  planner.New(r, lim, nil),
	}, lim, log)
	f.builder.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return f
}

func TestBuildEndToEnd(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	f := newFixture(t, zap.New(core))

	res, err := f.builder.Build(context.Background(), BuildRequest{SessionID: "s-1", WeeklyHours: 8, TotalMonths: 6})
	require.NoError(t, err)

	assert.Equal(t, "s-1", res.SessionID)
	assert.Len(t, res.CurrentPositions, 3)
	require.Len(t, res.FuturePositions, 2)
	assert.Equal(t, 1, res.FuturePositions[0].Idx)
	assert.Equal(t, 3, res.FuturePositions[1].Idx)

	require.Len(t, res.Groups, 2)
	first := res.Groups[0]
	require.Len(t, first.Items, 2)
	assert.Equal(t, "Deploy pipelines", first.Items[0].Name)
	assert.Equal(t, "Leadership", first.Items[1].Name)
	assert.Empty(t, res.Groups[1].Items)
	assert.Equal(t, []string{"Deploy pipelines", "Leadership"}, res.GapNames())

	for _, gap := range first.Items {
		require.Len(t, gap.Recommendations, 4, gap.Name)
		assert.Equal(t, "course", string(gap.Recommendations[0].Type))
		assert.Equal(t, "course", string(gap.Recommendations[1].Type))
		assert.Equal(t, "Tip one", gap.Recommendations[2].Title)
		assert.Equal(t, "Project one", gap.Recommendations[3].Title)
	}

	assert.Contains(t, f.reasoner.planUser, "weekly_hours=8\ntotal_months=6\n")
	assert.Equal(t, 2, f.reasoner.calls("Recommendations"))
	assert.Zero(t, f.reasoner.calls("User Profile"))

	saved, err := f.store.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", saved.UserID)
	assert.Equal(t, res.GapNames(), saved.GapNames())
	assert.False(t, saved.CreatedAt.IsZero())

	stages := logs.FilterMessage("trajectory stage").All()
	require.Len(t, stages, 7)
	for i, name := range []string{StageProfile, StageCurrentPositions, StageFuturePositions, StageGaps, StageEnrich, StageGroup, StagePersist} {
		assert.Equal(t, name, stages[i].ContextMap()["stage"])
	}
}

func TestBuildExtractsProfileFromTranscript(t *testing.T) {
	f := newFixture(t, nil)
	f.sessions["s-2"] = &store.Session{
		ID: "s-2", UserID: "user-2", Done: true,
		Transcript: []ai.Turn{{Role: ai.RoleModel, Text: "Hi"}, {Role: ai.RoleUser, Text: "I write Go"}},
	}

	_, err := f.builder.Build(context.Background(), BuildRequest{SessionID: "s-2"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.reasoner.calls("User Profile"))
	assert.Equal(t, "user-2", f.store.records["s-2"].UserID)
}

func TestBuildWithoutReasonerCannotExtractProfile(t *testing.T) {
	f := newFixture(t, nil)
	f.builder.deps.Reasoner = nil
	f.sessions["s-3"] = &store.Session{
		ID: "s-3", UserID: "user-3", Done: true,
		Transcript: []ai.Turn{{Role: ai.RoleUser, Text: "I write Go"}},
	}

	_, err := f.builder.Build(context.Background(), BuildRequest{SessionID: "s-3"})
	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StageProfile, stageErr.Stage)
	assert.ErrorIs(t, err, profile.ErrNoReasoner)
	assert.Empty(t, f.store.records)
}

func TestBuildPreconditions(t *testing.T) {
	f := newFixture(t, nil)
	f.sessions["open"] = &store.Session{ID: "open", UserID: "u", Done: false}

	_, err := f.builder.Build(context.Background(), BuildRequest{SessionID: "open"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPrecondition)
	var stageErr *StageError
	assert.False(t, errors.As(err, &stageErr))

	_, err = f.builder.Build(context.Background(), BuildRequest{SessionID: "missing"})
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	assert.Empty(t, f.store.records)
	assert.Zero(t, f.reasoner.calls("Gaps"))
}

func TestBuildPersistenceFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.store.err = errors.New("connection reset")

	_, err := f.builder.Build(context.Background(), BuildRequest{SessionID: "s-1"})
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, StagePersist, stageErr.Stage)
	assert.Equal(t, "trajectory build failed at stage persist", err.Error())
	assert.ErrorIs(t, err, ErrPersistence)
}

func TestBuildRequestValidation(t *testing.T) {
	cases := map[string]BuildRequest{
		"no session":      {},
		"weekly too low":  {SessionID: "s", WeeklyHours: 1},
		"weekly too high": {SessionID: "s", WeeklyHours: 61},
		"months":          {SessionID: "s", TotalMonths: 37},
		"target limit":    {SessionID: "s", TargetPositionsLimit: 21},
		"current limit":   {SessionID: "s", CurrentPositionsLimit: -1},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, req.WithDefaults().Validate(), ErrInvalidRequest)
		})
	}

	got := BuildRequest{SessionID: " s "}.WithDefaults()
	require.NoError(t, got.Validate())
	assert.Equal(t, BuildRequest{SessionID: "s", WeeklyHours: 8, TotalMonths: 12, TargetPositionsLimit: 5, CurrentPositionsLimit: 5}, got)
}
