package planning

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"effectif/internal/amqp"
	"effectif/internal/core"
	"effectif/internal/log"
)

// TaskInput is the payload for creating a task. ETP is optional: when nil,
// the value is extracted from a legacy "(<n> ETP)" tag in the label,
// failing safe to 0.
type TaskInput struct {
	ProjectID int64
	Text      string
	Comment   string
	StartDate core.Date
	EndDate   core.Date
	Color     string
	ETP       *float64
}

// Service orchestrates portfolio operations: repository access, the
// allocation engine, and optional change-event publishing.
type Service struct {
	repo    Repository
	catalog core.Catalog
	events  *amqp.Client // nil when AMQP is not configured
}

func NewService(repo Repository, catalog core.Catalog, events *amqp.Client) *Service {
	return &Service{
		repo:    repo,
		catalog: catalog,
		events:  events,
	}
}

// Catalog returns the reporting-period catalog the service was built with.
func (s *Service) Catalog() core.Catalog {
	return s.catalog
}

// Projects lists all projects with their tasks in insertion order.
func (s *Service) Projects(ctx context.Context) ([]core.Project, error) {
	return s.repo.ListProjects(ctx)
}

// Report runs the allocation engine over the whole portfolio, resolving
// overrides through the store.
func (s *Service) Report(ctx context.Context) (core.Allocation, error) {
	projects, err := s.repo.ListProjects(ctx)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("list projects: %w", err)
	}

	lookup := core.OverrideLookupFunc(func(projectName string) (map[string]float64, error) {
		return s.repo.OverridesForProject(ctx, projectName)
	})

	allocation, err := core.Allocate(projects, s.catalog, lookup)
	if err != nil {
		return core.Allocation{}, fmt.Errorf("allocate: %w", err)
	}
	return allocation, nil
}

func (s *Service) CreateProject(ctx context.Context, name, colorScheme string) (core.Project, error) {
	if colorScheme == "" {
		colorScheme = core.DefaultColorScheme
	}
	project := core.Project{Name: strings.TrimSpace(name), ColorScheme: colorScheme}
	if err := project.Validate(); err != nil {
		return core.Project{}, err
	}

	created, err := s.repo.CreateProject(ctx, project)
	if err != nil {
		return core.Project{}, err
	}
	s.publish(ctx, "project", "created", created.Name, created.ID)
	return created, nil
}

func (s *Service) UpdateProject(ctx context.Context, id int64, upd ProjectUpdate) (core.Project, error) {
	if upd.Name != nil {
		trimmed := strings.TrimSpace(*upd.Name)
		if trimmed == "" {
			return core.Project{}, core.ErrEmptyName
		}
		upd.Name = &trimmed
	}
	updated, err := s.repo.UpdateProject(ctx, id, upd)
	if err != nil {
		return core.Project{}, err
	}
	s.publish(ctx, "project", "updated", updated.Name, updated.ID)
	return updated, nil
}

func (s *Service) DeleteProject(ctx context.Context, id int64) error {
	project, err := s.repo.GetProject(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "project", "deleted", project.Name, id)
	return nil
}

func (s *Service) CreateTask(ctx context.Context, in TaskInput) (core.Task, error) {
	project, err := s.repo.GetProject(ctx, in.ProjectID)
	if err != nil {
		return core.Task{}, err
	}

	etp := 0.0
	if in.ETP != nil {
		etp = *in.ETP
	} else {
		// Legacy payloads embed the value in the label text.
		etp = core.ExtractETPFromLabel(in.Text)
	}

	color := in.Color
	if color == "" {
		color = core.DeriveTaskColor(project.ColorScheme)
	}

	task := core.Task{
		ProjectID: in.ProjectID,
		Text:      strings.TrimSpace(in.Text),
		Comment:   in.Comment,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
		Color:     color,
		ETP:       etp,
	}
	if err := task.Validate(); err != nil {
		return core.Task{}, err
	}

	created, err := s.repo.CreateTask(ctx, task)
	if err != nil {
		return core.Task{}, err
	}
	s.publish(ctx, "task", "created", project.Name, created.ID)
	return created, nil
}

func (s *Service) UpdateTask(ctx context.Context, id int64, upd TaskUpdate) (core.Task, error) {
	if upd.ETP != nil && *upd.ETP < 0 {
		return core.Task{}, core.ErrNegativeETP
	}
	updated, err := s.repo.UpdateTask(ctx, id, upd)
	if err != nil {
		return core.Task{}, err
	}
	s.publish(ctx, "task", "updated", updated.Text, updated.ID)
	return updated, nil
}

func (s *Service) DeleteTask(ctx context.Context, id int64) error {
	task, err := s.repo.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, "task", "deleted", task.Text, id)
	return nil
}

// SetOverride validates and upserts a manual allocation value for one
// (project, period) pair.
func (s *Service) SetOverride(ctx context.Context, projectName, periodName string, value float64) error {
	override := core.Override{
		ProjectName: strings.TrimSpace(projectName),
		PeriodName:  strings.TrimSpace(periodName),
		Value:       value,
	}
	if err := override.Validate(); err != nil {
		return err
	}
	if !s.knownPeriod(override.PeriodName) {
		return fmt.Errorf("%w: unknown period %q", core.ErrInvalidETP, override.PeriodName)
	}
	if err := s.repo.UpsertOverride(ctx, override); err != nil {
		return err
	}
	s.publish(ctx, "override", "updated", override.ProjectName+"/"+override.PeriodName, 0)
	return nil
}

func (s *Service) knownPeriod(name string) bool {
	for _, n := range s.catalog.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// publish emits a change event when AMQP is configured. Publish failures
// are logged, never surfaced: the write already committed.
func (s *Service) publish(ctx context.Context, entity, action, name string, id int64) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishChange(ctx, amqp.NewChangeMessage(entity, action, name, id)); err != nil {
		fields := log.NewFields().
			WithOperation(action).
			WithError(err).
			ToSlice()
		fields = append(fields, "entity", entity, "name", name)
		slog.ErrorContext(ctx, "Failed to publish change event", fields...)
	}
}
