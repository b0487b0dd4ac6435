package matching

import (
	"github.com/spigell/career-planner/internal/ai/llmjson"
	"github.com/spigell/career-planner/internal/catalog"
)

// ParseSelection extracts the chosen ids from a selection answer. Entries
// that are not whole numbers are skipped; unparsable answers yield nil.
func ParseSelection(raw string) []int {
	items := llmjson.Items(raw, "selected")
	if !items.OK {
		return nil
	}

	ids := make([]int, 0, len(items.Value))
	for _, item := range items.Value {
		if _, isNumber := item.(float64); !isNumber {
			continue
		}
		if id, ok := llmjson.Int(item); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Select keeps the candidates named in chosen, in candidate order, truncated
// to limit. When none match it falls back to the first limit candidates and
// reports fellBack.
func Select[T catalog.Record](candidates []T, chosen []int, limit int) (picked []T, fellBack bool) {
	if limit <= 0 || len(candidates) == 0 {
		return []T{}, false
	}

	set := make(map[int]struct{}, len(chosen))
	for _, id := range chosen {
		set[id] = struct{}{}
	}

	picked = make([]T, 0, limit)
	for _, c := range candidates {
		if len(picked) == limit {
			break
		}
		if _, ok := set[c.Index()]; ok {
			picked = append(picked, c)
		}
	}

	if len(picked) > 0 {
		return picked, false
	}

	n := limit
	if n > len(candidates) {
		n = len(candidates)
	}
	return append(picked, candidates[:n]...), true
}
