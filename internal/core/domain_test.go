package core

import (
	"errors"
	"testing"
)

func TestTaskValidate(t *testing.T) {
	good := Task{
		Text:      "Due Diligence",
		StartDate: NewDate(2025, 2, 1),
		EndDate:   NewDate(2025, 5, 1),
		Color:     "green-600",
		ETP:       1.0,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	cases := []struct {
		name string
		task Task
		want error
	}{
		{
			name: "empty text",
			task: Task{StartDate: NewDate(2025, 1, 1), EndDate: NewDate(2025, 2, 1), ETP: 1},
			want: ErrEmptyText,
		},
		{
			name: "inverted range",
			task: Task{Text: "x", StartDate: NewDate(2025, 5, 1), EndDate: NewDate(2025, 2, 1), ETP: 1},
			want: ErrInvalidDateRange,
		},
		{
			name: "negative etp",
			task: Task{Text: "x", StartDate: NewDate(2025, 1, 1), EndDate: NewDate(2025, 2, 1), ETP: -0.5},
			want: ErrNegativeETP,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.task.Validate(); !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}

	// start == end is a valid one-day task
	oneDay := good
	oneDay.EndDate = oneDay.StartDate
	if err := oneDay.Validate(); err != nil {
		t.Fatalf("one-day task should validate, got %v", err)
	}
}

func TestProjectValidate(t *testing.T) {
	if err := (Project{Name: "Procurement"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (Project{Name: "   "}).Validate(); !errors.Is(err, ErrEmptyName) {
		t.Fatalf("expected ErrEmptyName")
	}
}

func TestOverrideValidate(t *testing.T) {
	good := Override{ProjectName: "EUS", PeriodName: "2025 Q1-Q2", Value: 2.0}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	neg := good
	neg.Value = -1
	if err := neg.Validate(); !errors.Is(err, ErrNegativeETP) {
		t.Fatalf("expected ErrNegativeETP")
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-03-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.ISO() != "2025-03-01" {
		t.Fatalf("got %s", d.ISO())
	}
	if d.Display() != "01/03/2025" {
		t.Fatalf("got %s", d.Display())
	}
	if _, err := ParseDate("01/03/2025"); err == nil {
		t.Fatalf("expected error for non-ISO format")
	}
}

func TestColorHelpers(t *testing.T) {
	if got := DeriveTaskColor("teal"); got != "teal-500" {
		t.Fatalf("got %s", got)
	}
	if got := DeriveTaskColor(""); got != "blue-500" {
		t.Fatalf("got %s", got)
	}
	if got := SwapColorScheme("purple-400", "teal"); got != "teal-400" {
		t.Fatalf("got %s", got)
	}
	if got := SwapColorScheme("nodash", "red"); got != "red-500" {
		t.Fatalf("got %s", got)
	}
}

func TestGridPosition(t *testing.T) {
	// A multi-month range inside 2025 keeps its computed width.
	left, width := GridPosition(NewDate(2025, 1, 1), NewDate(2025, 12, 30))
	if left != 0 {
		t.Fatalf("left = %v, want 0", left)
	}
	if width < 70 {
		t.Fatalf("width = %v, expected most of the grid", width)
	}

	// Dates after 2025 collapse onto the trailing band.
	left, _ = GridPosition(NewDate(2026, 2, 1), NewDate(2027, 6, 1))
	if left != 80.0 {
		t.Fatalf("left = %v, want 80", left)
	}

	// Short multi-month tasks are widened to stay legible.
	_, width = GridPosition(NewDate(2025, 3, 1), NewDate(2025, 4, 10))
	if width != 15 {
		t.Fatalf("width = %v, want clamped 15", width)
	}

	// Very short single-month tasks get the minimum width.
	_, width = GridPosition(NewDate(2025, 3, 1), NewDate(2025, 3, 5))
	if width != 8 {
		t.Fatalf("width = %v, want clamped 8", width)
	}
}
