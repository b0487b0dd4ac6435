package profile

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/limits"
)

const sampleProfile = `{
  "professional_context": {"professional_field": "Backend", "specialization": "Go", "professional_role": "Developer"},
  "resume": [
    {"company": "Acme", "title": "Engineer", "start_date": "2020-01", "end_date": null,
     "tasks": ["t1", "t2", "t3", "t4", "t5", "t6", "t7"],
     "tech_stack": ["Go", "Postgres"], "tools": ["Docker"]},
    {"company": "Initech", "title": "Intern", "start_date": "2018-06", "end_date": "2019-12", "tasks": []}
  ],
  "skills": {"hard_skills": ["Go", "SQL"], "tech_stack": ["Kubernetes"],
             "courses": [{"title": "Stats", "provider": "MIT", "year": 2021}]},
  "goals": {"target_field": "Data", "target_specialization": "", "desired_activities": ["ml", "analytics"],
            "desired_role": "ML Engineer", "salary_expectation": {"currency": "RUB", "min": 250000}},
  "preferences": {"work_format": "Remote", "location": ["Moscow"]}
}`

func TestDecodeJSON(t *testing.T) {
	p, err := DecodeJSON([]byte(sampleProfile))
	require.NoError(t, err)

	assert.Equal(t, "Backend", p.ProfessionalContext.Field)
	require.Len(t, p.Resume, 2)
	assert.Equal(t, "", p.Resume[0].EndDate)
	assert.Equal(t, 2021, p.Skills.Courses[0].Year)
	require.NotNil(t, p.Goals.SalaryExpectation)
	assert.Equal(t, "250000", p.Goals.MinSalary())
	assert.Equal(t, "ml, analytics", p.Goals.Activities())
	assert.Equal(t, "Remote", p.Preferences.WorkFormat)
}

func TestDecodeRejectsSchemaViolations(t *testing.T) {
	cases := map[string]string{
		"bad work format": `{"preferences": {"work_format": "Mars"}}`,
		"tasks not list":  `{"resume": [{"tasks": "write code"}]}`,
		"fractional year": `{"skills": {"courses": [{"year": 2020.5}]}}`,
		"not an object":   `[1, 2]`,
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeJSON([]byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
		})
	}
}

func TestResumeText(t *testing.T) {
	p, err := DecodeJSON([]byte(sampleProfile))
	require.NoError(t, err)

	got := p.ResumeText(limits.Default())
	want := strings.Join([]string{
		"Роль: Engineer в Acme (2020-01 - н.в.)",
		"Задачи: t1; t2; t3; t4; t5; t6",
		"Технологии: Go, Postgres",
		"Инструменты: Docker",
		"Роль: Intern в Initech (2018-06 - 2019-12)",
		"Hard skills: Go, SQL",
		"Stack: Kubernetes",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestLearningContextFallsBackToCurrentContext(t *testing.T) {
	p, err := DecodeJSON([]byte(sampleProfile))
	require.NoError(t, err)

	field, specialization := p.LearningContext()
	assert.Equal(t, "Data", field)
	assert.Equal(t, "Go", specialization)
}

func TestMinSalaryEmpty(t *testing.T) {
	assert.Equal(t, "", Goals{}.MinSalary())
	assert.Equal(t, "", Goals{SalaryExpectation: &SalaryExpectation{Currency: "USD"}}.MinSalary())
}

type stubReasoner struct {
	answer string
	err    error
	got    ai.Request
}

func (s *stubReasoner) Complete(_ context.Context, req ai.Request) (string, error) {
	s.got = req
	return s.answer, s.err
}

func TestExtract(t *testing.T) {
	transcript := []ai.Turn{
		{Role: ai.RoleModel, Text: "Tell me about your work."},
		{Role: ai.RoleUser, Text: "I write Go at Acme."},
	}

	t.Run("parses fenced answer", func(t *testing.T) {
		r := &stubReasoner{answer: "```json\n" + sampleProfile + "\n```"}
		p, err := Extract(context.Background(), r, transcript)
		require.NoError(t, err)
		assert.Equal(t, "Acme", p.Resume[0].Company)

		require.Len(t, r.got.Turns, 3)
		assert.Equal(t, ai.RoleSystem, r.got.Turns[0].Role)
		assert.Equal(t, ExtractMaxTokens, r.got.MaxTokens)
		assert.NotNil(t, r.got.Schema)
	})

	t.Run("garbage is an error", func(t *testing.T) {
		_, err := Extract(context.Background(), &stubReasoner{answer: "sorry"}, transcript)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("call failure", func(t *testing.T) {
		boom := errors.New("boom")
		_, err := Extract(context.Background(), &stubReasoner{err: boom}, transcript)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("no reasoning service", func(t *testing.T) {
		_, err := Extract(context.Background(), nil, transcript)
		assert.ErrorIs(t, err, ErrNoReasoner)
	})

	t.Run("empty transcript", func(t *testing.T) {
		_, err := Extract(context.Background(), &stubReasoner{}, nil)
		assert.ErrorIs(t, err, ErrEmptyTranscript)
	})
}
