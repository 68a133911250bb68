// Package planning holds the persistence ports and the service that ties
// the repositories to the allocation engine.
package planning

import (
	"context"

	"effectif/internal/core"
)

// ProjectUpdate carries a partial project update; nil fields are left as-is.
type ProjectUpdate struct {
	Name        *string
	ColorScheme *string
}

// TaskUpdate carries a partial task update; nil fields are left as-is.
type TaskUpdate struct {
	Text      *string
	Comment   *string
	StartDate *core.Date
	EndDate   *core.Date
	Color     *string
	ETP       *float64
}

// ProjectRepository is the CRUD persistence port for projects and their
// tasks. Implementations return core.ErrNotFound for unknown ids and
// core.ErrProjectExists for duplicate project names. Every write runs in
// its own transaction and leaves no partial state behind on failure.
type ProjectRepository interface {
	// ListProjects returns all projects with their tasks in insertion order.
	ListProjects(ctx context.Context) ([]core.Project, error)
	GetProject(ctx context.Context, id int64) (core.Project, error)
	GetProjectByName(ctx context.Context, name string) (core.Project, error)
	CreateProject(ctx context.Context, p core.Project) (core.Project, error)
	// UpdateProject applies a partial update. A color-scheme change also
	// recolors the project's tasks, each keeping its intensity suffix,
	// within the same transaction.
	UpdateProject(ctx context.Context, id int64, upd ProjectUpdate) (core.Project, error)
	// DeleteProject removes the project, its tasks and its overrides.
	DeleteProject(ctx context.Context, id int64) error

	CreateTask(ctx context.Context, t core.Task) (core.Task, error)
	GetTask(ctx context.Context, id int64) (core.Task, error)
	UpdateTask(ctx context.Context, id int64, upd TaskUpdate) (core.Task, error)
	DeleteTask(ctx context.Context, id int64) error
}

// OverrideStore is the persistence port for manual allocation overrides,
// keyed by (project name, period name). No delete operation is exposed;
// the engine never removes an override.
type OverrideStore interface {
	// GetOverride returns core.ErrNotFound when no value is stored.
	GetOverride(ctx context.Context, projectName, periodName string) (core.Override, error)
	// OverridesForProject batch-fetches one project's overrides keyed by
	// period name. Semantically equivalent to per-key GetOverride calls.
	OverridesForProject(ctx context.Context, projectName string) (map[string]float64, error)
	// UpsertOverride creates or replaces the value for the pair and stamps
	// the update time. Negative values are rejected before this is called.
	UpsertOverride(ctx context.Context, o core.Override) error
}

// Repository is the combined persistence surface a data backend provides.
type Repository interface {
	ProjectRepository
	OverrideStore
}
