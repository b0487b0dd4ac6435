// Package planner groups gaps into a sequential learning plan.
package planner

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/ai/llmjson"
	"github.com/spigell/career-planner/internal/career"
	"github.com/spigell/career-planner/internal/limits"
	"github.com/spigell/career-planner/internal/logger"
)

//go:embed system.md
var systemPrompt string

const instructions = "Сгруппируй gap в последовательные этапы обучения с учётом бюджета времени."

var plannerSchema = map[string]any{
	"title": "GapGroups",
	"type":  "array",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"group_id":         map[string]any{"type": "integer"},
			"title":            map[string]any{"type": "string"},
			"estimated_months": map[string]any{"type": "integer"},
			"hours_per_week":   map[string]any{"type": "integer"},
			"items":            map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"notes":            map[string]any{"type": "string"},
		},
		"required": []string{"group_id", "title", "estimated_months", "hours_per_week", "items", "notes"},
	},
}

type Planner struct {
	reasoner ai.Reasoner
	limits   limits.Limits
	logger   *zap.Logger
}

func New(reasoner ai.Reasoner, lim limits.Limits, log *zap.Logger) *Planner {
	return &Planner{
		reasoner: reasoner,
		limits:   lim.WithDefaults(),
		logger:   logger.OrNop(log),
	}
}

type gapSummary struct {
	Name          string      `json:"name"`
	Kind          career.Kind `json:"kind"`
	Priority      int         `json:"priority"`
	Prerequisites []string    `json:"prerequisites"`
	EstHours      int         `json:"est_hours"`
}

// Effort is the estimated hours to close gap, at least the configured floor.
func (p *Planner) Effort(gap career.Gap) int {
	return max(p.limits.MinGapHours, gap.Hours())
}

// Group asks the reasoning service to split gaps into groups. Group members
// are resolved against gaps by name in gap order, and a gap already placed
// in an earlier group is not repeated. No groups are returned when the call
// fails or the answer is unusable.
func (p *Planner) Group(ctx context.Context, gaps []career.Gap, weeklyHours, totalMonths int) []career.Group {
	if len(gaps) == 0 {
		return []career.Group{}
	}
	if p.reasoner == nil {
		p.logger.Warn("no reasoning service, skipping planning")
		return []career.Group{}
	}
	weeklyHours = max(p.limits.MinWeeklyHours, weeklyHours)
	totalMonths = max(p.limits.MinMonths, totalMonths)

	summaries := make([]gapSummary, 0, len(gaps))
	for _, g := range gaps {
		prereqs := g.Prerequisites
		if prereqs == nil {
			prereqs = []string{}
		}
		summaries = append(summaries, gapSummary{
			Name:          g.Name,
			Kind:          g.Kind,
			Priority:      g.Priority,
			Prerequisites: prereqs,
			EstHours:      p.Effort(g),
		})
	}
	payload, err := json.Marshal(summaries)
	if err != nil {
		p.logger.Warn("failed to encode gaps for planning", zap.Error(err))
		return []career.Group{}
	}

	user := fmt.Sprintf("%s\n\nweekly_hours=%d\ntotal_months=%d\ngaps=%s", instructions, weeklyHours, totalMonths, payload)

	started := time.Now()
	raw, err := p.reasoner.Complete(ctx, ai.System(systemPrompt, user, p.limits.GenerationMaxTokens).WithSchema(plannerSchema))
	if err != nil {
		p.logger.Warn("planning call failed", zap.Error(err))
		return []career.Group{}
	}

	parsed := llmjson.Items(raw, "groups")
	if !parsed.OK {
		p.logger.Warn("planning answer was not usable",
			zap.Error(parsed.Err),
			zap.String("response_preview", logger.Preview(raw, 200)))
		return []career.Group{}
	}

	groups := p.resolve(parsed.Value, gaps, weeklyHours)
	p.logger.Info("planning completed",
		zap.Int("gaps", len(gaps)),
		zap.Int("groups", len(groups)),
		zap.Duration("took", time.Since(started)))
	return groups
}

func (p *Planner) resolve(items []any, gaps []career.Gap, weeklyHours int) []career.Group {
	groups := make([]career.Group, 0, len(items))
	placed := make(map[string]struct{}, len(gaps))

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		n := len(groups) + 1

		wanted := make(map[string]struct{})
		for _, name := range llmjson.Strings(obj["items"]) {
			wanted[name] = struct{}{}
		}
		members := make([]career.Gap, 0, len(wanted))
		for _, g := range gaps {
			if _, ok := wanted[g.Name]; !ok {
				continue
			}
			if _, taken := placed[g.Name]; taken {
				continue
			}
			placed[g.Name] = struct{}{}
			members = append(members, g)
		}

		id, ok := llmjson.Int(obj["group_id"])
		if !ok {
			id = n
		}
		title := llmjson.String(obj["title"])
		if title == "" {
			title = fmt.Sprintf("Группа %d", n)
		}
		months, ok := llmjson.Int(obj["estimated_months"])
		if !ok {
			months = 1
		}
		months = min(max(months, 1), p.limits.MaxGroupMonths)
		hours, ok := llmjson.Int(obj["hours_per_week"])
		if !ok || hours <= 0 {
			hours = weeklyHours
		}

		groups = append(groups, career.Group{
			GroupID:         id,
			Title:           title,
			EstimatedMonths: months,
			HoursPerWeek:    hours,
			Items:           members,
			Notes:           llmjson.String(obj["notes"]),
		})
	}
	return groups
}
