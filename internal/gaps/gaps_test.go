package gaps

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/career"
	"github.com/spigell/career-planner/internal/catalog"
	"github.com/spigell/career-planner/internal/limits"
	"github.com/spigell/career-planner/internal/profile"
)

type stubReasoner struct {
	answer string
	err    error
	got    ai.Request
}

func (s *stubReasoner) Complete(_ context.Context, req ai.Request) (string, error) {
	s.got = req
	return s.answer, s.err
}

func names(gaps []career.Gap) []string {
	out := make([]string, 0, len(gaps))
	for _, g := range gaps {
		out = append(out, g.Name)
	}
	return out
}

func TestExtractSortsByPriorityThenName(t *testing.T) {
	r := &stubReasoner{answer: `[
		{"name": "Leadership", "kind": "experience", "priority": 3, "prerequisites": [], "rationale": "lead"},
		{"name": "Deploy pipelines", "kind": "skill", "priority": 1, "prerequisites": []},
		{"name": "Airflow", "kind": "skill", "priority": 3},
		{"name": "Senior level", "kind": "level", "priority": 2}
	]`}
	a := New(r, limits.Default(), zap.NewNop())

	got := a.Extract(context.Background(), &profile.Profile{}, nil, 10)
	assert.Equal(t, []string{"Deploy pipelines", "Senior level", "Airflow", "Leadership"}, names(got))
	assert.Equal(t, career.KindExperience, got[3].Kind)
	assert.Equal(t, "lead", got[3].Rationale)
	assert.NotNil(t, got[0].Recommendations)
}

func TestExtractTruncatesAfterSorting(t *testing.T) {
	r := &stubReasoner{answer: `{"gaps": [
		{"name": "c", "priority": 5}, {"name": "b", "priority": 1}, {"name": "a", "priority": 2}
	]}`}
	got := New(r, limits.Default(), nil).Extract(context.Background(), nil, nil, 2)
	assert.Equal(t, []string{"b", "a"}, names(got))
}

func TestNormalizeCoercesAndSkips(t *testing.T) {
	items := []any{
		map[string]any{"kind": "skill", "priority": float64(1)},
		map[string]any{"name": "  ", "priority": float64(1)},
		"not an object",
		map[string]any{"name": "x", "kind": "hobby", "priority": float64(9)},
		map[string]any{"name": "y", "priority": "2", "prerequisites": "x"},
		map[string]any{"name": "x", "kind": "level", "priority": float64(1)},
	}

	got := Normalize(items, 10)
	require.Len(t, got, 2)

	assert.Equal(t, "y", got[0].Name)
	assert.Equal(t, 2, got[0].Priority)
	assert.Equal(t, []string{"x"}, got[0].Prerequisites)

	assert.Equal(t, "x", got[1].Name)
	assert.Equal(t, career.DefaultKind, got[1].Kind)
	assert.Equal(t, career.DefaultPriority, got[1].Priority)
	assert.Equal(t, []string{}, got[1].Prerequisites)
}

func TestExtractDegradesToEmpty(t *testing.T) {
	cases := map[string]*stubReasoner{
		"garbage":      {answer: "I cannot help with that"},
		"wrong shape":  {answer: `{"items": 3}`},
		"call failure": {err: errors.New("quota")},
	}

	for name, r := range cases {
		t.Run(name, func(t *testing.T) {
			core, logs := observer.New(zap.WarnLevel)
			got := New(r, limits.Default(), zap.New(core)).Extract(context.Background(), nil, nil, 5)
			assert.NotNil(t, got)
			assert.Empty(t, got)
			assert.Equal(t, 1, logs.Len())
		})
	}
}

func TestExtractWithoutReasonerYieldsNoGaps(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	got := New(nil, limits.Default(), zap.New(core)).Extract(context.Background(), nil, nil, 5)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1, logs.Len())
}

func TestPromptCarriesProfileAndReferences(t *testing.T) {
	r := &stubReasoner{answer: `[]`}
	refs := make([]catalog.MatchedVacancy, 12)
	for i := range refs {
		refs[i] = catalog.MatchedVacancy{Idx: i, Title: "Role", Company: "Co"}
	}
	p := &profile.Profile{ProfessionalContext: profile.ProfessionalContext{Field: "Backend"}}

	New(r, limits.Default(), nil).Extract(context.Background(), p, refs, 4)

	require.Len(t, r.got.Turns, 2)
	user := r.got.Turns[1].Text
	assert.True(t, strings.HasPrefix(user, "Профиль:\n{"))
	assert.Contains(t, user, `"professional_field":"Backend"`)
	assert.Equal(t, 10, strings.Count(user, "Role @ Co"))
	assert.True(t, strings.HasSuffix(user, "Верни не более 4 элементов в массиве."))
	assert.Equal(t, "Gaps", r.got.Schema["title"])
}
