package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// Memory is an in-process repository, loaded from a JSON array file or built
// directly from rows. It is read-only after construction.
type Memory[T Record] struct {
	rows map[int]T
}

func NewMemory[T Record](rows ...T) *Memory[T] {
	m := &Memory[T]{rows: make(map[int]T, len(rows))}
	for _, row := range rows {
		m.rows[row.Index()] = row
	}
	return m
}

// LoadFile reads a JSON array of rows.
func LoadFile[T Record](path string) (*Memory[T], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file %q: %w", path, err)
	}

	var rows []T
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode catalog file %q: %w", path, err)
	}

	return NewMemory(rows...), nil
}

func (m *Memory[T]) FindByIndices(_ context.Context, ids []int) ([]T, error) {
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		if row, ok := m.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *Memory[T]) Len() int {
	return len(m.rows)
}
