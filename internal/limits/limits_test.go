package limits

import "testing"

func TestWithDefaultsFillsZeroes(t *testing.T) {
	l := Limits{Gaps: 3}.WithDefaults()

	if l.Gaps != 3 {
		t.Fatalf("expected explicit value to survive, got %d", l.Gaps)
	}
	if l.TasksPerRole != 6 || l.HardSkills != 12 || l.MinGapHours != 10 {
		t.Fatalf("unexpected defaults: %+v", l)
	}
}

func TestCourseStage1(t *testing.T) {
	l := Default()

	tests := map[int]int{1: 3, 2: 6, 7: 20, 50: 20, 0: 1}
	for k, want := range tests {
		if got := l.CourseStage1(k); got != want {
			t.Fatalf("CourseStage1(%d) = %d, want %d", k, got, want)
		}
	}
}
