package matching

import (
	"embed"
	"strconv"
	"strings"
)

//go:embed prompts/*.md
var promptFS embed.FS

const (
	promptPreprocessResume  = "preprocess_resume"
	promptPreprocessCourses = "preprocess_courses"
	promptFutureRole        = "future_role"
	promptVacanciesStage1   = "vacancies_stage1"
	promptVacanciesStage2   = "vacancies_stage2"
	promptCoursesStage1     = "courses_stage1"
	promptCoursesStage2     = "courses_stage2"
)

func prompt(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name + ".md")
	if err != nil {
		panic("missing prompt " + name)
	}
	return strings.TrimSpace(string(data))
}

func selectionPrompt(name string, limit int) string {
	return strings.ReplaceAll(prompt(name), "{{LIMIT}}", strconv.Itoa(limit))
}

// selectionSchema constrains selection answers to {"selected": [int]}.
var selectionSchema = map[string]any{
	"title": "PickN",
	"type":  "object",
	"properties": map[string]any{
		"selected": map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "integer"},
		},
	},
	"required": []string{"selected"},
}
