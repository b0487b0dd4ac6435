package catalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// reversedRepo returns rows in reverse order to exercise re-ordering.
type reversedRepo struct {
	rows map[int]Vacancy
	err  error
}

func (r reversedRepo) FindByIndices(_ context.Context, ids []int) ([]Vacancy, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []Vacancy
	for i := len(ids) - 1; i >= 0; i-- {
		if v, ok := r.rows[ids[i]]; ok {
			out = append(out, v)
		}
	}
	return out, nil
}

func TestHydrateRestoresRetrievalOrder(t *testing.T) {
	repo := reversedRepo{rows: map[int]Vacancy{
		1: {Idx: 1, Title: "a"},
		2: {Idx: 2, Title: "b"},
		5: {Idx: 5, Title: "c"},
	}}

	got, err := Hydrate[Vacancy](context.Background(), repo, []int{5, 9, 1, 2})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if ids := Indices(got); !reflect.DeepEqual(ids, []int{5, 1, 2}) {
		t.Fatalf("unexpected order: %v", ids)
	}

	empty, err := Hydrate[Vacancy](context.Background(), repo, nil)
	if err != nil || len(empty) != 0 {
		t.Fatalf("expected empty hydration, got %v, %v", empty, err)
	}

	if _, err := Hydrate[Vacancy](context.Background(), reversedRepo{err: errors.New("down")}, []int{1}); err == nil {
		t.Fatal("expected repository error")
	}
}

func TestDedupKeepsFirstOccurrence(t *testing.T) {
	items := []Vacancy{
		{Idx: 3, Title: "Go dev", Company: "A", Location: "Moscow"},
		{Idx: 1, Title: "Go dev", Company: "A", Location: "Moscow", Description: "different text"},
		{Idx: 7, Title: "Go dev", Company: "B", Location: "Moscow"},
		{Idx: 2, Title: "Go dev", Company: "A", Location: "Moscow", JobType: "remote"},
	}

	once := Dedup(items)
	if ids := Indices(once); !reflect.DeepEqual(ids, []int{3, 7, 2}) {
		t.Fatalf("unexpected dedup result: %v", ids)
	}

	if twice := Dedup(once); !reflect.DeepEqual(twice, once) {
		t.Fatalf("dedup is not idempotent: %v vs %v", twice, once)
	}
}

func TestCourseDedupKey(t *testing.T) {
	items := []Course{
		{Idx: 1, Name: "ML", University: "U", URL: "u1"},
		{Idx: 2, Name: "ML", University: "U", URL: "u1", Skills: "python"},
		{Idx: 3, Name: "ML", University: "U", URL: "u2"},
	}

	if ids := Indices(Dedup(items)); !reflect.DeepEqual(ids, []int{1, 3}) {
		t.Fatalf("unexpected dedup result: %v", ids)
	}
}

func TestLabelsAndDetails(t *testing.T) {
	v := Vacancy{Idx: 4, Title: "Data engineer", KeySkills: "SQL", Location: "Remote", Description: "<p>Build <b>pipelines</b></p>"}
	if v.Label() != "4: Data engineer" {
		t.Fatalf("unexpected label %q", v.Label())
	}

	detail := v.Detail()
	if !strings.HasPrefix(detail, "4: Data engineer\n") || !strings.Contains(detail, "**pipelines**") {
		t.Fatalf("unexpected detail block %q", detail)
	}
	if strings.Contains(detail, "<p>") {
		t.Fatalf("expected html to be converted: %q", detail)
	}

	c := Course{Idx: 9, Name: "Kubernetes", Level: "Beginner"}
	if c.Label() != "9: Kubernetes" || !strings.Contains(c.Detail(), "Уровень: Beginner") {
		t.Fatalf("unexpected course texts: %q / %q", c.Label(), c.Detail())
	}

	if got := c.Project(); got.Idx != 9 || got.Name != "Kubernetes" || got.Level != "Beginner" {
		t.Fatalf("unexpected projection: %+v", got)
	}
}

func TestPlainText(t *testing.T) {
	if got := PlainText("  no markup  "); got != "no markup" {
		t.Fatalf("unexpected text %q", got)
	}
	if got := PlainText("a < b and c > d"); got == "" {
		t.Fatalf("expected text to survive")
	}
}

func TestMemoryLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "courses.json")
	data := `[{"idx":1,"name":"Go"},{"idx":2,"name":"Rust"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	repo, err := LoadFile[Course](path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if repo.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", repo.Len())
	}

	rows, _ := repo.FindByIndices(context.Background(), []int{3, 2})
	if len(rows) != 1 || rows[0].Name != "Rust" {
		t.Fatalf("unexpected rows: %+v", rows)
	}

	if _, err := LoadFile[Course](filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestMatchedVacancyReference(t *testing.T) {
	v := Vacancy{Idx: 4, Title: "ML Engineer", Company: "Acme", Experience: "3-6", Location: "Remote", Description: "<p>Build <b>models</b></p>"}
	got := v.Project().Reference()
	if !strings.HasPrefix(got, "ML Engineer @ Acme\nОпыт: 3-6\nЛокация: Remote\nОписание: ") {
		t.Fatalf("unexpected reference %q", got)
	}
	if strings.Contains(got, "<p>") {
		t.Fatalf("expected html to be stripped, got %q", got)
	}
}
