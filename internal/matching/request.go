package matching

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrInvalidRequest is returned for requests outside the accepted bounds.
var ErrInvalidRequest = errors.New("invalid match request")

const (
	DefaultRetrieve = 100
	DefaultStage1   = 20
	DefaultStage2   = 5

	maxRetrieve = 2000
	maxStage1   = 200
	maxStage2   = 100
)

// Depth controls how many candidates survive each step.
type Depth struct {
	// Retrieve is the number of nearest neighbours fetched from the index.
	Retrieve int `json:"k_faiss"`
	Stage1   int `json:"k_stage1"`
	Stage2   int `json:"k_stage2"`
}

// WithDefaults fills zero values.
func (d Depth) WithDefaults() Depth {
	if d.Retrieve == 0 {
		d.Retrieve = DefaultRetrieve
	}
	if d.Stage1 == 0 {
		d.Stage1 = DefaultStage1
	}
	if d.Stage2 == 0 {
		d.Stage2 = DefaultStage2
	}
	return d
}

func (d Depth) Validate() error {
	if d.Retrieve < 1 || d.Retrieve > maxRetrieve {
		return fmt.Errorf("%w: k_faiss must be within 1..%d, got %d", ErrInvalidRequest, maxRetrieve, d.Retrieve)
	}
	if d.Stage1 < 1 || d.Stage1 > maxStage1 {
		return fmt.Errorf("%w: k_stage1 must be within 1..%d, got %d", ErrInvalidRequest, maxStage1, d.Stage1)
	}
	if d.Stage2 < 1 || d.Stage2 > maxStage2 {
		return fmt.Errorf("%w: k_stage2 must be within 1..%d, got %d", ErrInvalidRequest, maxStage2, d.Stage2)
	}
	return nil
}

// VacancyRequest matches a résumé against the vacancy catalog.
type VacancyRequest struct {
	Resume string `json:"resume"`
	Depth
}

// CourseRequest matches desired skills against the course catalog.
type CourseRequest struct {
	DesiredSkills  string `json:"desired_skills"`
	Field          string `json:"field,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Depth
}

// FutureRequest matches the role a candidate aims for against the vacancy catalog.
type FutureRequest struct {
	Field             string `json:"field"`
	Specialization    string `json:"specialization"`
	Activities        string `json:"activities"`
	DesiredRole       string `json:"desired_role"`
	DesiredLevel      string `json:"desired_level,omitempty"`
	SalaryExpectation string `json:"salary_expectation"`
	AdditionalInfo    string `json:"additional_info,omitempty"`
	Depth
}

// GoalsText renders the structured goals as labelled lines.
func (r FutureRequest) GoalsText() string {
	return fmt.Sprintf("Сфера: %s\nСпециализация: %s\nАктивности/функции: %s\nЖелаемая роль: %s\n"+
		"Ожидания по зарплате: %s\nЦелевой уровень: %s\nДополнительная информация: %s",
		r.Field, r.Specialization, r.Activities, r.DesiredRole,
		r.SalaryExpectation, orNone(r.DesiredLevel), orNone(r.AdditionalInfo))
}

func courseQuery(r CourseRequest) string {
	return fmt.Sprintf("Сфера: %s\nСпециализация: %s\nЦелевые навыки: %s", r.Field, r.Specialization, r.DesiredSkills)
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "Нет"
	}
	return s
}

// normalize applies NFKC and trims surrounding whitespace.
func normalize(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

func requireText(name, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s must not be empty", ErrInvalidRequest, name)
	}
	return nil
}
