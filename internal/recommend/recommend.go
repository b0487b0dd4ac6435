// Package recommend attaches courses, projects and tips to each gap.
package recommend

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/ai/llmjson"
	"github.com/spigell/career-planner/internal/career"
	"github.com/spigell/career-planner/internal/limits"
	"github.com/spigell/career-planner/internal/logger"
	"github.com/spigell/career-planner/internal/matching"
)

//go:embed system.md
var systemPrompt string

const instructions = "Предложи практические проекты и советы, которые помогут закрыть этот gap."

var recsSchema = map[string]any{
	"title": "Recommendations",
	"type":  "array",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"type":              map[string]any{"type": "string", "enum": []string{string(career.RecommendProject), string(career.RecommendTip)}},
			"title":             map[string]any{"type": "string"},
			"url":               map[string]any{"type": "string"},
			"provider":          map[string]any{"type": "string"},
			"duration_hours":    map[string]any{"type": "integer"},
			"estimated_months":  map[string]any{"type": "integer"},
			"expected_outcomes": map[string]any{"type": "string"},
			"cost":              map[string]any{"type": "string"},
			"required":          map[string]any{"type": "boolean"},
		},
		"required": []string{"type", "title"},
	},
}

// CourseMatcher finds courses for a free-text learning request.
type CourseMatcher interface {
	MatchCourses(ctx context.Context, req matching.CourseRequest) (*matching.CourseResult, error)
}

// Options bound one enrichment run.
type Options struct {
	Field          string
	Specialization string
	// Courses is the number of course recommendations per gap.
	Courses int
	// Practice is the number of project or tip recommendations per gap.
	Practice int
}

type Enricher struct {
	courses  CourseMatcher
	reasoner ai.Reasoner
	limits   limits.Limits
	logger   *zap.Logger
}

func New(courses CourseMatcher, reasoner ai.Reasoner, lim limits.Limits, log *zap.Logger) *Enricher {
	return &Enricher{
		courses:  courses,
		reasoner: reasoner,
		limits:   lim.WithDefaults(),
		logger:   logger.OrNop(log),
	}
}

// Enrich appends course recommendations and then practice recommendations
// to every gap. Gaps are processed concurrently. A failure for one gap
// only leaves that gap without the affected recommendations.
func (e *Enricher) Enrich(ctx context.Context, gaps []career.Gap, opts Options) []career.Gap {
	if opts.Courses <= 0 {
		opts.Courses = e.limits.CoursesPerGap
	}
	if opts.Practice <= 0 {
		opts.Practice = e.limits.ProjectsPerGap
	}

	out := make([]career.Gap, len(gaps))
	copy(out, gaps)

	var g errgroup.Group
	g.SetLimit(e.limits.EnrichConcurrency)
	for i := range out {
		g.Go(func() error {
			gap := &out[i]
			recs := make([]career.Recommendation, 0, len(gap.Recommendations)+opts.Courses+opts.Practice)
			recs = append(recs, gap.Recommendations...)
			recs = append(recs, e.Courses(ctx, *gap, opts)...)
			recs = append(recs, e.Practice(ctx, *gap, opts.Practice)...)
			gap.Recommendations = recs
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Courses returns up to opts.Courses course recommendations for gap.
func (e *Enricher) Courses(ctx context.Context, gap career.Gap, opts Options) []career.Recommendation {
	k := opts.Courses
	if k <= 0 || e.courses == nil {
		return nil
	}

	started := time.Now()
	res, err := e.courses.MatchCourses(ctx, matching.CourseRequest{
		DesiredSkills:  fmt.Sprintf("%s (%s)", gap.Name, gap.Kind),
		Field:          opts.Field,
		Specialization: opts.Specialization,
		Depth: matching.Depth{
			Retrieve: e.limits.CourseRetrieve,
			Stage1:   e.limits.CourseStage1(k),
			Stage2:   k,
		},
	})
	if err != nil {
		e.logger.Warn("course lookup failed", zap.String(logger.FieldGap, gap.Name), zap.Error(err))
		return nil
	}

	found := res.Result
	if len(found) > k {
		found = found[:k]
	}
	recs := make([]career.Recommendation, 0, len(found))
	for _, c := range found {
		recs = append(recs, career.Recommendation{
			Type:     career.RecommendCourse,
			Title:    c.Name,
			URL:      c.URL,
			Provider: c.University,
		})
	}

	e.logger.Debug("courses attached",
		zap.String(logger.FieldGap, gap.Name),
		zap.Int("courses", len(recs)),
		zap.Duration("took", time.Since(started)))
	return recs
}

// Practice returns up to limit project or tip recommendations for gap.
func (e *Enricher) Practice(ctx context.Context, gap career.Gap, limit int) []career.Recommendation {
	if limit <= 0 || e.reasoner == nil {
		return nil
	}

	user := fmt.Sprintf("Gap: %s (%s). %s\nВерни не более %d элементов.", gap.Name, gap.Kind, instructions, limit)
	raw, err := e.reasoner.Complete(ctx, ai.System(systemPrompt, user, e.limits.GenerationMaxTokens).WithSchema(recsSchema))
	if err != nil {
		e.logger.Warn("practice recommendations call failed", zap.String(logger.FieldGap, gap.Name), zap.Error(err))
		return nil
	}

	parsed := llmjson.Items(raw, "recommendations")
	if !parsed.OK {
		e.logger.Warn("practice recommendations answer was not usable",
			zap.String(logger.FieldGap, gap.Name),
			zap.Error(parsed.Err),
			zap.String("response_preview", logger.Preview(raw, 200)))
		return nil
	}

	return ParsePractice(parsed.Value, limit)
}

// ParsePractice keeps answer items typed project or tip. A missing type
// means tip; items with another type or without a title are dropped before
// the limit is applied.
func ParsePractice(items []any, limit int) []career.Recommendation {
	recs := make([]career.Recommendation, 0, limit)
	for _, item := range items {
		if len(recs) == limit {
			break
		}
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}

		kind := career.RecommendationType(strings.ToLower(llmjson.String(obj["type"])))
		switch kind {
		case "":
			kind = career.RecommendTip
		case career.RecommendProject, career.RecommendTip:
		default:
			continue
		}

		title := llmjson.String(obj["title"])
		if title == "" {
			continue
		}

		recs = append(recs, career.Recommendation{
			Type:             kind,
			Title:            title,
			URL:              llmjson.String(obj["url"]),
			Provider:         llmjson.String(obj["provider"]),
			DurationHours:    optionalInt(obj["duration_hours"]),
			EstimatedMonths:  optionalInt(obj["estimated_months"]),
			ExpectedOutcomes: llmjson.String(obj["expected_outcomes"]),
			Cost:             llmjson.String(obj["cost"]),
			Required:         llmjson.Bool(obj["required"]),
		})
	}
	return recs
}

func optionalInt(v any) *int {
	n, ok := llmjson.Int(v)
	if !ok {
		return nil
	}
	return &n
}
