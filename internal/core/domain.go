package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultColorScheme is applied when a project is created without one.
	DefaultColorScheme = "blue"

	// DefaultIntensity is the suffix used when deriving a task color
	// from its project's scheme.
	DefaultIntensity = "500"
)

type (
	Date struct {
		time.Time
	}

	// Task is one dated unit of planned work. ETP is the nominal
	// full-time-equivalent headcount the task needs.
	Task struct {
		ID        int64
		ProjectID int64
		Text      string
		Comment   string
		StartDate Date
		EndDate   Date
		Color     string // presentation tag, e.g. "blue-600"
		ETP       float64
	}

	// Project is a uniquely named container of tasks.
	Project struct {
		ID          int64
		Name        string
		ColorScheme string
		Tasks       []Task
	}

	// Override is a manually entered allocation value for one
	// (project, period) pair. It supersedes the computed value.
	Override struct {
		ProjectName string
		PeriodName  string
		Value       float64
		UpdatedAt   time.Time
	}
)

var (
	ErrEmptyName        = errors.New("empty project name")
	ErrEmptyText        = errors.New("empty task text")
	ErrInvalidDateRange = errors.New("end date before start date")
	ErrNegativeETP      = errors.New("negative etp value")
	ErrInvalidETP       = errors.New("invalid etp value")
	ErrNotFound         = errors.New("not found")
	ErrProjectExists    = errors.New("project name already exists")
)

// NewDate creates a Date from year, month, day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{Time: t}, nil
}

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// Display returns the date formatted as DD/MM/YYYY for rendered views.
func (d Date) Display() string {
	return d.Format("02/01/2006")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (t Task) Validate() error {
	if len(strings.TrimSpace(t.Text)) == 0 {
		return ErrEmptyText
	}
	if len(t.Text) > 200 {
		return errors.New("task text too long (max 200 characters)")
	}
	if err := t.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if err := t.EndDate.Validate(); err != nil {
		return fmt.Errorf("invalid end date: %w", err)
	}
	if t.EndDate.Before(t.StartDate.Time) {
		return ErrInvalidDateRange
	}
	if t.ETP < 0 {
		return ErrNegativeETP
	}
	return nil
}

func (p Project) Validate() error {
	if len(strings.TrimSpace(p.Name)) == 0 {
		return ErrEmptyName
	}
	if len(p.Name) > 100 {
		return errors.New("project name too long (max 100 characters)")
	}
	return nil
}

func (o Override) Validate() error {
	if strings.TrimSpace(o.ProjectName) == "" {
		return ErrEmptyName
	}
	if strings.TrimSpace(o.PeriodName) == "" {
		return errors.New("empty period name")
	}
	if o.Value < 0 {
		return ErrNegativeETP
	}
	return nil
}

// DeriveTaskColor returns the default task color for a project scheme,
// e.g. "blue" -> "blue-500".
func DeriveTaskColor(scheme string) string {
	if scheme == "" {
		scheme = DefaultColorScheme
	}
	return scheme + "-" + DefaultIntensity
}

// SwapColorScheme rebuilds a task color around a new scheme, keeping the
// task's own intensity suffix: ("purple-400", "teal") -> "teal-400".
// A color without an intensity suffix falls back to the default one.
func SwapColorScheme(color, newScheme string) string {
	if i := strings.LastIndex(color, "-"); i >= 0 {
		return newScheme + color[i:]
	}
	return DeriveTaskColor(newScheme)
}
