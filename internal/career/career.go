// Package career defines the gap, recommendation and trajectory types shared
// by the analysis, enrichment, planning and persistence stages.
package career

import "github.com/spigell/career-planner/internal/catalog"

// Kind classifies a gap.
type Kind string

const (
	KindSkill      Kind = "skill"
	KindExperience Kind = "experience"
	KindLevel      Kind = "level"
)

// DefaultKind is used when the model gives no usable kind.
const DefaultKind = KindSkill

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSkill, KindExperience, KindLevel:
		return true
	}
	return false
}

const (
	MinPriority     = 1
	MaxPriority     = 5
	DefaultPriority = 3
)

// RecommendationType classifies a recommendation.
type RecommendationType string

const (
	RecommendCourse  RecommendationType = "course"
	RecommendProject RecommendationType = "project"
	RecommendTip     RecommendationType = "tip"
)

// Recommendation is one way to close a gap.
type Recommendation struct {
	Type             RecommendationType `json:"type" bson:"type" yaml:"type"`
	Title            string             `json:"title" bson:"title" yaml:"title"`
	URL              string             `json:"url,omitempty" bson:"url,omitempty" yaml:"url,omitempty"`
	Provider         string             `json:"provider,omitempty" bson:"provider,omitempty" yaml:"provider,omitempty"`
	DurationHours    *int               `json:"duration_hours,omitempty" bson:"duration_hours,omitempty" yaml:"duration_hours,omitempty"`
	EstimatedMonths  *int               `json:"estimated_months,omitempty" bson:"estimated_months,omitempty" yaml:"estimated_months,omitempty"`
	ExpectedOutcomes string             `json:"expected_outcomes,omitempty" bson:"expected_outcomes,omitempty" yaml:"expected_outcomes,omitempty"`
	Cost             string             `json:"cost,omitempty" bson:"cost,omitempty" yaml:"cost,omitempty"`
	Required         bool               `json:"required" bson:"required" yaml:"required"`
}

// Gap is something the candidate lacks for the target role.
type Gap struct {
	Name            string           `json:"name" bson:"name" yaml:"name"`
	Kind            Kind             `json:"kind" bson:"kind" yaml:"kind"`
	Priority        int              `json:"priority" bson:"priority" yaml:"priority"`
	Prerequisites   []string         `json:"prerequisites" bson:"prerequisites" yaml:"prerequisites"`
	Recommendations []Recommendation `json:"recommendations" bson:"recommendations" yaml:"recommendations"`
	Rationale       string           `json:"rationale,omitempty" bson:"rationale,omitempty" yaml:"rationale,omitempty"`
}

// Hours sums the known recommendation durations.
func (g Gap) Hours() int {
	total := 0
	for _, r := range g.Recommendations {
		if r.DurationHours != nil && *r.DurationHours > 0 {
			total += *r.DurationHours
		}
	}
	return total
}

// Group is an ordered batch of gaps to work on together.
type Group struct {
	GroupID         int    `json:"group_id" bson:"group_id" yaml:"group_id"`
	Title           string `json:"title" bson:"title" yaml:"title"`
	EstimatedMonths int    `json:"estimated_months" bson:"estimated_months" yaml:"estimated_months"`
	HoursPerWeek    int    `json:"hours_per_week" bson:"hours_per_week" yaml:"hours_per_week"`
	Items           []Gap  `json:"items" bson:"items" yaml:"items"`
	Notes           string `json:"notes,omitempty" bson:"notes,omitempty" yaml:"notes,omitempty"`
}

// Trajectory is the persisted result of a build.
type Trajectory struct {
	SessionID        string                   `json:"session_id" bson:"session_id" yaml:"session_id"`
	CurrentPositions []catalog.MatchedVacancy `json:"current_positions" bson:"current_positions" yaml:"current_positions"`
	Groups           []Group                  `json:"groups" bson:"groups" yaml:"groups"`
	FuturePositions  []catalog.MatchedVacancy `json:"future_positions" bson:"future_positions" yaml:"future_positions"`
}

// GapNames lists the distinct gap names across all groups in order.
func (t Trajectory) GapNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, g := range t.Groups {
		for _, item := range g.Items {
			if _, ok := seen[item.Name]; ok {
				continue
			}
			seen[item.Name] = struct{}{}
			names = append(names, item.Name)
		}
	}
	return names
}
