// Package limits declares every truncation bound and retrieval depth used by
// the matching and trajectory pipelines.
package limits

// Limits collects the numeric bounds applied across the pipeline. Values are
// loaded from configuration and fall back to Default.
type Limits struct {
	// Résumé text.
	TasksPerRole int `mapstructure:"tasks-per-role" json:"tasks_per_role"`
	TechPerRole  int `mapstructure:"tech-per-role" json:"tech_per_role"`
	ToolsPerRole int `mapstructure:"tools-per-role" json:"tools_per_role"`
	HardSkills   int `mapstructure:"hard-skills" json:"hard_skills"`
	StackItems   int `mapstructure:"stack-items" json:"stack_items"`

	// Trajectory matching.
	TrajectoryRetrieve int `mapstructure:"trajectory-retrieve" json:"trajectory_retrieve"`
	TrajectoryStage1   int `mapstructure:"trajectory-stage1" json:"trajectory_stage1"`

	// Gap analysis.
	GapReferences int `mapstructure:"gap-references" json:"gap_references"`
	Gaps          int `mapstructure:"gaps" json:"gaps"`

	// Enrichment.
	CoursesPerGap     int `mapstructure:"courses-per-gap" json:"courses_per_gap"`
	ProjectsPerGap    int `mapstructure:"projects-per-gap" json:"projects_per_gap"`
	CourseRetrieve    int `mapstructure:"course-retrieve" json:"course_retrieve"`
	CourseStage1Cap   int `mapstructure:"course-stage1-cap" json:"course_stage1_cap"`
	CourseStage1Mult  int `mapstructure:"course-stage1-multiplier" json:"course_stage1_multiplier"`
	EnrichConcurrency int `mapstructure:"enrich-concurrency" json:"enrich_concurrency"`

	// Planning.
	MinGapHours    int `mapstructure:"min-gap-hours" json:"min_gap_hours"`
	MinWeeklyHours int `mapstructure:"min-weekly-hours" json:"min_weekly_hours"`
	MinMonths      int `mapstructure:"min-months" json:"min_months"`
	MaxGroupMonths int `mapstructure:"max-group-months" json:"max_group_months"`

	// Token budgets.
	SelectionMaxTokens  int `mapstructure:"selection-max-tokens" json:"selection_max_tokens"`
	PreprocessMaxTokens int `mapstructure:"preprocess-max-tokens" json:"preprocess_max_tokens"`
	GenerationMaxTokens int `mapstructure:"generation-max-tokens" json:"generation_max_tokens"`
}

// Default returns the stock limits.
func Default() Limits {
	return Limits{
		TasksPerRole: 6,
		TechPerRole:  10,
		ToolsPerRole: 10,
		HardSkills:   12,
		StackItems:   12,

		TrajectoryRetrieve: 200,
		TrajectoryStage1:   50,

		GapReferences: 10,
		Gaps:          5,

		CoursesPerGap:     2,
		ProjectsPerGap:    2,
		CourseRetrieve:    100,
		CourseStage1Cap:   20,
		CourseStage1Mult:  3,
		EnrichConcurrency: 4,

		MinGapHours:    10,
		MinWeeklyHours: 2,
		MinMonths:      1,
		MaxGroupMonths: 12,

		SelectionMaxTokens:  800,
		PreprocessMaxTokens: 400,
		GenerationMaxTokens: 2000,
	}
}

// WithDefaults replaces every non-positive field with its default value.
func (l Limits) WithDefaults() Limits {
	d := Default()
	fill := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}

	fill(&l.TasksPerRole, d.TasksPerRole)
	fill(&l.TechPerRole, d.TechPerRole)
	fill(&l.ToolsPerRole, d.ToolsPerRole)
	fill(&l.HardSkills, d.HardSkills)
	fill(&l.StackItems, d.StackItems)
	fill(&l.TrajectoryRetrieve, d.TrajectoryRetrieve)
	fill(&l.TrajectoryStage1, d.TrajectoryStage1)
	fill(&l.GapReferences, d.GapReferences)
	fill(&l.Gaps, d.Gaps)
	fill(&l.CoursesPerGap, d.CoursesPerGap)
	fill(&l.ProjectsPerGap, d.ProjectsPerGap)
	fill(&l.CourseRetrieve, d.CourseRetrieve)
	fill(&l.CourseStage1Cap, d.CourseStage1Cap)
	fill(&l.CourseStage1Mult, d.CourseStage1Mult)
	fill(&l.EnrichConcurrency, d.EnrichConcurrency)
	fill(&l.MinGapHours, d.MinGapHours)
	fill(&l.MinWeeklyHours, d.MinWeeklyHours)
	fill(&l.MinMonths, d.MinMonths)
	fill(&l.MaxGroupMonths, d.MaxGroupMonths)
	fill(&l.SelectionMaxTokens, d.SelectionMaxTokens)
	fill(&l.PreprocessMaxTokens, d.PreprocessMaxTokens)
	fill(&l.GenerationMaxTokens, d.GenerationMaxTokens)

	return l
}

// CourseStage1 returns the coarse selection size used when k courses are requested.
func (l Limits) CourseStage1(k int) int {
	n := l.CourseStage1Mult * k
	if n > l.CourseStage1Cap {
		n = l.CourseStage1Cap
	}
	if n < 1 {
		n = 1
	}
	return n
}
