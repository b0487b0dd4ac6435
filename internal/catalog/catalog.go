// Package catalog defines the vacancy and course records served by the
// matching engine and the repository contract used to hydrate them.
package catalog

import (
	"context"
	"fmt"
	"strings"
)

// Kind names a catalog.
type Kind string

const (
	Vacancies Kind = "vacancies"
	Courses   Kind = "courses"
)

// Record is a catalog row addressable by its dense integer idx.
type Record interface {
	Index() int
	// DedupKey identifies near-duplicate rows.
	DedupKey() string
	// Label is the one-line form shown during coarse selection.
	Label() string
	// Detail is the multi-line form shown during fine selection.
	Detail() string
}

// Repository fetches rows by idx. Row order in the result is unspecified.
type Repository[T Record] interface {
	FindByIndices(ctx context.Context, ids []int) ([]T, error)
}

// Vacancy is a job posting.
type Vacancy struct {
	Idx         int    `json:"idx" bson:"idx"`
	Title       string `json:"title" bson:"title"`
	Company     string `json:"company" bson:"company"`
	Location    string `json:"location" bson:"location"`
	Salary      string `json:"salary" bson:"salary"`
	Experience  string `json:"experience" bson:"experience"`
	JobType     string `json:"job_type" bson:"job_type"`
	Description string `json:"description" bson:"description"`
	KeySkills   string `json:"key_skills" bson:"key_skills"`
}

func (v Vacancy) Index() int { return v.Idx }

func (v Vacancy) DedupKey() string {
	return key(v.Title, v.Salary, v.Experience, v.JobType, v.Company, v.Location)
}

func (v Vacancy) Label() string {
	return fmt.Sprintf("%d: %s", v.Idx, v.Title)
}

func (v Vacancy) Detail() string {
	return fmt.Sprintf("%d: %s\nОписание: %s\nНавыки: %s\nЛокация: %s\n",
		v.Idx, v.Title, PlainText(v.Description), v.KeySkills, v.Location)
}

// Project returns the fields exposed in match results.
func (v Vacancy) Project() MatchedVacancy {
	return MatchedVacancy{
		Idx:         v.Idx,
		Title:       v.Title,
		Company:     v.Company,
		Location:    v.Location,
		Salary:      v.Salary,
		Experience:  v.Experience,
		Description: v.Description,
	}
}

// Reference is the short form used when comparing a profile against a target role.
func (v MatchedVacancy) Reference() string {
	return fmt.Sprintf("%s @ %s\nОпыт: %s\nЛокация: %s\nОписание: %s",
		v.Title, v.Company, v.Experience, v.Location, PlainText(v.Description))
}

// Course is a learning offer. Bson names follow the seeded course collection.
type Course struct {
	Idx         int    `json:"idx" bson:"idx"`
	Name        string `json:"name" bson:"Course Name"`
	University  string `json:"university" bson:"University"`
	Level       string `json:"level" bson:"Difficulty Level"`
	Rating      string `json:"rating" bson:"Course Rating"`
	URL         string `json:"url" bson:"Course URL"`
	Description string `json:"description" bson:"Course Description"`
	Skills      string `json:"skills" bson:"Skills"`
}

func (c Course) Index() int { return c.Idx }

func (c Course) DedupKey() string {
	return key(c.Name, c.University, c.Level, c.Rating, c.URL)
}

func (c Course) Label() string {
	return fmt.Sprintf("%d: %s", c.Idx, c.Name)
}

func (c Course) Detail() string {
	return fmt.Sprintf("%d: %s\nУровень: %s\nОписание: %s\nНавыки: %s\n",
		c.Idx, c.Name, c.Level, PlainText(c.Description), c.Skills)
}

func (c Course) Project() MatchedCourse {
	return MatchedCourse{
		Idx:        c.Idx,
		Name:       c.Name,
		University: c.University,
		Level:      c.Level,
		Rating:     c.Rating,
		URL:        c.URL,
	}
}

// MatchedVacancy is the projection of a vacancy returned to callers.
type MatchedVacancy struct {
	Idx         int    `json:"idx" bson:"idx" yaml:"idx"`
	Title       string `json:"title" bson:"title" yaml:"title"`
	Company     string `json:"company" bson:"company" yaml:"company"`
	Location    string `json:"location" bson:"location" yaml:"location"`
	Salary      string `json:"salary" bson:"salary" yaml:"salary"`
	Experience  string `json:"experience" bson:"experience" yaml:"experience"`
	Description string `json:"description" bson:"description" yaml:"description"`
}

// MatchedCourse is the projection of a course returned to callers.
type MatchedCourse struct {
	Idx        int    `json:"idx" bson:"idx" yaml:"idx"`
	Name       string `json:"name" bson:"name" yaml:"name"`
	University string `json:"university" bson:"university" yaml:"university"`
	Level      string `json:"level" bson:"level" yaml:"level"`
	Rating     string `json:"rating" bson:"rating" yaml:"rating"`
	URL        string `json:"url" bson:"url" yaml:"url"`
}

// Hydrate fetches the rows for ids and returns them in ids order. Ids that
// have no row are dropped.
func Hydrate[T Record](ctx context.Context, repo Repository[T], ids []int) ([]T, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := repo.FindByIndices(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find by indices: %w", err)
	}

	byIdx := make(map[int]T, len(rows))
	for _, row := range rows {
		byIdx[row.Index()] = row
	}

	ordered := make([]T, 0, len(rows))
	for _, id := range ids {
		if row, ok := byIdx[id]; ok {
			ordered = append(ordered, row)
		}
	}

	return ordered, nil
}

// Dedup keeps the first row of every DedupKey, preserving order.
func Dedup[T Record](items []T) []T {
	seen := make(map[string]struct{}, len(items))
	out := make([]T, 0, len(items))

	for _, item := range items {
		k := item.DedupKey()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}

	return out
}

// Indices returns the idx of every row.
func Indices[T Record](items []T) []int {
	ids := make([]int, len(items))
	for i, item := range items {
		ids[i] = item.Index()
	}
	return ids
}

func key(parts ...string) string {
	return strings.Join(parts, "\x1f")
}
