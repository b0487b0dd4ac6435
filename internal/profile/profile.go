// Package profile holds the structured profile produced by the career
// interview and the derived texts used for matching.
package profile

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/xeipuuv/gojsonschema"

	"github.com/spigell/career-planner/internal/limits"
)

//go:embed schema.json
var schemaJSON []byte

// ErrInvalid is returned when a document does not match the profile schema.
var ErrInvalid = errors.New("invalid profile document")

var schemaLoader = gojsonschema.NewBytesLoader(schemaJSON)

// Schema returns the profile JSON schema as a generic map.
func Schema() map[string]any {
	var schema map[string]any
	if err := json.Unmarshal(schemaJSON, &schema); err != nil {
		panic("profile schema is not valid json: " + err.Error())
	}
	return schema
}

type Profile struct {
	Achievements        []string            `mapstructure:"achievements" json:"achievements,omitempty" bson:"achievements,omitempty"`
	ProfessionalContext ProfessionalContext `mapstructure:"professional_context" json:"professional_context" bson:"professional_context"`
	Resume              []Job               `mapstructure:"resume" json:"resume,omitempty" bson:"resume,omitempty"`
	Skills              Skills              `mapstructure:"skills" json:"skills" bson:"skills"`
	Goals               Goals               `mapstructure:"goals" json:"goals" bson:"goals"`
	Preferences         Preferences         `mapstructure:"preferences" json:"preferences" bson:"preferences"`
}

type ProfessionalContext struct {
	Field          string `mapstructure:"professional_field" json:"professional_field,omitempty" bson:"professional_field,omitempty"`
	Specialization string `mapstructure:"specialization" json:"specialization,omitempty" bson:"specialization,omitempty"`
	Role           string `mapstructure:"professional_role" json:"professional_role,omitempty" bson:"professional_role,omitempty"`
}

// Job is one résumé entry.
type Job struct {
	Company      string   `mapstructure:"company" json:"company,omitempty" bson:"company,omitempty"`
	Title        string   `mapstructure:"title" json:"title,omitempty" bson:"title,omitempty"`
	StartDate    string   `mapstructure:"start_date" json:"start_date,omitempty" bson:"start_date,omitempty"`
	EndDate      string   `mapstructure:"end_date" json:"end_date,omitempty" bson:"end_date,omitempty"`
	Tasks        []string `mapstructure:"tasks" json:"tasks,omitempty" bson:"tasks,omitempty"`
	Achievements []string `mapstructure:"achievements" json:"achievements,omitempty" bson:"achievements,omitempty"`
	TechStack    []string `mapstructure:"tech_stack" json:"tech_stack,omitempty" bson:"tech_stack,omitempty"`
	Tools        []string `mapstructure:"tools" json:"tools,omitempty" bson:"tools,omitempty"`
}

type Skills struct {
	HardSkills []string `mapstructure:"hard_skills" json:"hard_skills,omitempty" bson:"hard_skills,omitempty"`
	SoftSkills []string `mapstructure:"soft_skills" json:"soft_skills,omitempty" bson:"soft_skills,omitempty"`
	Tools      []string `mapstructure:"tools" json:"tools,omitempty" bson:"tools,omitempty"`
	TechStack  []string `mapstructure:"tech_stack" json:"tech_stack,omitempty" bson:"tech_stack,omitempty"`
	Courses    []Course `mapstructure:"courses" json:"courses,omitempty" bson:"courses,omitempty"`
}

type Course struct {
	Title        string   `mapstructure:"title" json:"title,omitempty" bson:"title,omitempty"`
	Provider     string   `mapstructure:"provider" json:"provider,omitempty" bson:"provider,omitempty"`
	Year         int      `mapstructure:"year" json:"year,omitempty" bson:"year,omitempty"`
	SkillsGained []string `mapstructure:"skills_gained" json:"skills_gained,omitempty" bson:"skills_gained,omitempty"`
}

type Goals struct {
	TargetField          string             `mapstructure:"target_field" json:"target_field,omitempty" bson:"target_field,omitempty"`
	TargetSpecialization string             `mapstructure:"target_specialization" json:"target_specialization,omitempty" bson:"target_specialization,omitempty"`
	DesiredActivities    []string           `mapstructure:"desired_activities" json:"desired_activities,omitempty" bson:"desired_activities,omitempty"`
	DesiredRole          string             `mapstructure:"desired_role" json:"desired_role,omitempty" bson:"desired_role,omitempty"`
	DesiredLevel         string             `mapstructure:"desired_level" json:"desired_level,omitempty" bson:"desired_level,omitempty"`
	SalaryExpectation    *SalaryExpectation `mapstructure:"salary_expectation" json:"salary_expectation,omitempty" bson:"salary_expectation,omitempty"`
}

type SalaryExpectation struct {
	Currency string `mapstructure:"currency" json:"currency,omitempty" bson:"currency,omitempty"`
	Gross    *bool  `mapstructure:"gross" json:"gross,omitempty" bson:"gross,omitempty"`
	Min      *int   `mapstructure:"min" json:"min,omitempty" bson:"min,omitempty"`
	Max      *int   `mapstructure:"max" json:"max,omitempty" bson:"max,omitempty"`
}

type Preferences struct {
	WorkFormat string   `mapstructure:"work_format" json:"work_format,omitempty" bson:"work_format,omitempty"`
	Location   []string `mapstructure:"location" json:"location,omitempty" bson:"location,omitempty"`
}

// Validate checks doc against the profile schema.
func Validate(doc map[string]any) error {
	res, err := gojsonschema.Validate(schemaLoader, gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate profile: %w", err)
	}
	if res.Valid() {
		return nil
	}

	problems := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		problems = append(problems, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// Decode validates doc and maps it onto a Profile.
func Decode(doc map[string]any) (*Profile, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: empty document", ErrInvalid)
	}
	if err := Validate(doc); err != nil {
		return nil, err
	}

	var p Profile
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
		ZeroFields:       true,
	})
	if err != nil {
		return nil, fmt.Errorf("create profile decoder: %w", err)
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	return &p, nil
}

// DecodeJSON decodes a raw JSON document.
func DecodeJSON(data []byte) (*Profile, error) {
	var doc map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return Decode(doc)
}

// JSON renders the profile for prompts.
func (p *Profile) JSON() string {
	data, err := json.Marshal(p)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ResumeText renders the work history and skills as labelled lines bounded by lim.
func (p *Profile) ResumeText(lim limits.Limits) string {
	lim = lim.WithDefaults()
	var lines []string

	for _, job := range p.Resume {
		end := job.EndDate
		if strings.TrimSpace(end) == "" {
			end = "н.в."
		}
		lines = append(lines, fmt.Sprintf("Роль: %s в %s (%s - %s)", job.Title, job.Company, job.StartDate, end))

		if tasks := head(job.Tasks, lim.TasksPerRole); len(tasks) > 0 {
			lines = append(lines, "Задачи: "+strings.Join(tasks, "; "))
		}
		if tech := head(job.TechStack, lim.TechPerRole); len(tech) > 0 {
			lines = append(lines, "Технологии: "+strings.Join(tech, ", "))
		}
		if tools := head(job.Tools, lim.ToolsPerRole); len(tools) > 0 {
			lines = append(lines, "Инструменты: "+strings.Join(tools, ", "))
		}
	}

	if hard := head(p.Skills.HardSkills, lim.HardSkills); len(hard) > 0 {
		lines = append(lines, "Hard skills: "+strings.Join(hard, ", "))
	}
	if stack := head(p.Skills.TechStack, lim.StackItems); len(stack) > 0 {
		lines = append(lines, "Stack: "+strings.Join(stack, ", "))
	}

	return strings.Join(lines, "\n")
}

// LearningContext returns the field and specialization used to steer course
// search. Goals take precedence over the current professional context.
func (p *Profile) LearningContext() (field, specialization string) {
	field = strings.TrimSpace(p.Goals.TargetField)
	specialization = strings.TrimSpace(p.Goals.TargetSpecialization)
	if field == "" {
		field = strings.TrimSpace(p.ProfessionalContext.Field)
	}
	if specialization == "" {
		specialization = strings.TrimSpace(p.ProfessionalContext.Specialization)
	}
	return field, specialization
}

// Activities joins the desired activities.
func (g Goals) Activities() string {
	return strings.Join(head(g.DesiredActivities, len(g.DesiredActivities)), ", ")
}

// MinSalary renders the lower salary bound, or an empty string.
func (g Goals) MinSalary() string {
	if g.SalaryExpectation == nil || g.SalaryExpectation.Min == nil {
		return ""
	}
	return strconv.Itoa(*g.SalaryExpectation.Min)
}

// head returns up to n non-blank trimmed entries.
func head(values []string, n int) []string {
	out := make([]string, 0, n)
	for _, v := range values {
		if len(out) == n {
			break
		}
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
