// Package gaps finds what a profile lacks compared with target-role vacancies.
package gaps

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/career-planner/internal/ai"
	"github.com/spigell/career-planner/internal/ai/llmjson"
	"github.com/spigell/career-planner/internal/career"
	"github.com/spigell/career-planner/internal/catalog"
	"github.com/spigell/career-planner/internal/limits"
	"github.com/spigell/career-planner/internal/logger"
	"github.com/spigell/career-planner/internal/profile"
)

//go:embed system.md
var systemPrompt string

const instructions = "Сравни профиль с будущими вакансиями и перечисли недостающие навыки, опыт и уровень."

var gapSchema = map[string]any{
	"title": "Gaps",
	"type":  "array",
	"items": map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name": map[string]any{"type": "string"},
			"kind": map[string]any{"type": "string", "enum": []string{
				string(career.KindSkill), string(career.KindExperience), string(career.KindLevel),
			}},
			"priority":      map[string]any{"type": "integer", "minimum": career.MinPriority, "maximum": career.MaxPriority},
			"prerequisites": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"rationale":     map[string]any{"type": "string"},
		},
		"required": []string{"name", "kind", "priority", "prerequisites", "rationale"},
	},
}

type Analyzer struct {
	reasoner ai.Reasoner
	limits   limits.Limits
	logger   *zap.Logger
}

func New(reasoner ai.Reasoner, lim limits.Limits, log *zap.Logger) *Analyzer {
	return &Analyzer{
		reasoner: reasoner,
		limits:   lim.WithDefaults(),
		logger:   logger.OrNop(log),
	}
}

// Extract asks for at most limit gaps between p and the reference vacancies.
// The result is sorted by priority, then name. A failed call or an
// unparseable answer yields no gaps.
func (a *Analyzer) Extract(ctx context.Context, p *profile.Profile, refs []catalog.MatchedVacancy, limit int) []career.Gap {
	if limit <= 0 {
		limit = a.limits.Gaps
	}

	if a.reasoner == nil {
		a.logger.Warn("no reasoning service, skipping gap analysis")
		return []career.Gap{}
	}

	started := time.Now()
	req := ai.System(systemPrompt, a.userText(p, refs, limit), a.limits.GenerationMaxTokens).WithSchema(gapSchema)
	raw, err := a.reasoner.Complete(ctx, req)
	if err != nil {
		a.logger.Warn("gap analysis call failed", zap.Error(err))
		return []career.Gap{}
	}

	parsed := llmjson.Items(raw, "gaps")
	if !parsed.OK {
		a.logger.Warn("gap analysis answer was not usable",
			zap.Error(parsed.Err),
			zap.String("response_preview", logger.Preview(raw, 200)))
		return []career.Gap{}
	}

	gaps := Normalize(parsed.Value, limit)
	a.logger.Info("gap analysis completed",
		zap.Int("returned", len(parsed.Value)),
		zap.Int("kept", len(gaps)),
		zap.Duration("took", time.Since(started)))
	return gaps
}

func (a *Analyzer) userText(p *profile.Profile, refs []catalog.MatchedVacancy, limit int) string {
	if len(refs) > a.limits.GapReferences {
		refs = refs[:a.limits.GapReferences]
	}
	blocks := make([]string, 0, len(refs))
	for _, v := range refs {
		blocks = append(blocks, v.Reference())
	}

	profileText := "{}"
	if p != nil {
		profileText = p.JSON()
	}

	return fmt.Sprintf("Профиль:\n%s\n\nБудущие вакансии:\n%s\n\n%s\nВерни не более %d элементов в массиве.",
		profileText, strings.Join(blocks, "\n\n"), instructions, limit)
}

// Normalize turns raw answer items into gaps. Items without a name are
// skipped, a missing or invalid kind or priority takes its default, and a
// repeated name keeps its first occurrence. The result is sorted by
// (priority, name) and cut to limit.
func Normalize(items []any, limit int) []career.Gap {
	gaps := make([]career.Gap, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		name := strings.TrimSpace(llmjson.String(obj["name"]))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		kind := career.Kind(strings.ToLower(strings.TrimSpace(llmjson.String(obj["kind"]))))
		if !kind.Valid() {
			kind = career.DefaultKind
		}

		priority, ok := llmjson.Int(obj["priority"])
		if !ok || priority < career.MinPriority || priority > career.MaxPriority {
			priority = career.DefaultPriority
		}

		prereqs := llmjson.Strings(obj["prerequisites"])
		if prereqs == nil {
			prereqs = []string{}
		}

		gaps = append(gaps, career.Gap{
			Name:            name,
			Kind:            kind,
			Priority:        priority,
			Prerequisites:   prereqs,
			Recommendations: []career.Recommendation{},
			Rationale:       strings.TrimSpace(llmjson.String(obj["rationale"])),
		})
	}

	sort.SliceStable(gaps, func(i, j int) bool {
		if gaps[i].Priority != gaps[j].Priority {
			return gaps[i].Priority < gaps[j].Priority
		}
		return gaps[i].Name < gaps[j].Name
	})

	if limit >= 0 && len(gaps) > limit {
		gaps = gaps[:limit]
	}
	return gaps
}
