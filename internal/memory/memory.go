// Package memory provides an in-memory planning.Repository. It backs the
// "memory" data backend for local development and the handler tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"effectif/internal/core"
	"effectif/internal/planning"
)

type Store struct {
	mu        sync.RWMutex
	projects  map[int64]*core.Project
	tasks     map[int64]*core.Task
	overrides map[string]core.Override // key: project\x00period
	nextID    int64
}

var _ planning.Repository = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		projects:  make(map[int64]*core.Project),
		tasks:     make(map[int64]*core.Task),
		overrides: make(map[string]core.Override),
		nextID:    1,
	}
}

func overrideKey(project, period string) string {
	return project + "\x00" + period
}

func (s *Store) allocateID() int64 {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Store) ListProjects(ctx context.Context) ([]core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, 0, len(s.projects))
	for id := range s.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	projects := make([]core.Project, 0, len(ids))
	for _, id := range ids {
		projects = append(projects, s.projectWithTasksLocked(id))
	}
	return projects, nil
}

// projectWithTasksLocked copies a project and attaches its tasks in
// insertion order. Callers hold at least a read lock.
func (s *Store) projectWithTasksLocked(id int64) core.Project {
	p := *s.projects[id]
	p.Tasks = nil

	taskIDs := make([]int64, 0)
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			taskIDs = append(taskIDs, tid)
		}
	}
	sort.Slice(taskIDs, func(i, j int) bool { return taskIDs[i] < taskIDs[j] })
	for _, tid := range taskIDs {
		p.Tasks = append(p.Tasks, *s.tasks[tid])
	}
	return p
}

func (s *Store) GetProject(ctx context.Context, id int64) (core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.projects[id]; !ok {
		return core.Project{}, fmt.Errorf("project %d: %w", id, core.ErrNotFound)
	}
	return s.projectWithTasksLocked(id), nil
}

func (s *Store) GetProjectByName(ctx context.Context, name string) (core.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for id, p := range s.projects {
		if p.Name == name {
			return s.projectWithTasksLocked(id), nil
		}
	}
	return core.Project{}, fmt.Errorf("project %q: %w", name, core.ErrNotFound)
}

func (s *Store) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.projects {
		if existing.Name == p.Name {
			return core.Project{}, fmt.Errorf("project %q: %w", p.Name, core.ErrProjectExists)
		}
	}
	p.ID = s.allocateID()
	p.Tasks = nil
	stored := p
	s.projects[p.ID] = &stored
	return p, nil
}

func (s *Store) UpdateProject(ctx context.Context, id int64, upd planning.ProjectUpdate) (core.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.projects[id]
	if !ok {
		return core.Project{}, fmt.Errorf("project %d: %w", id, core.ErrNotFound)
	}

	name := current.Name
	scheme := current.ColorScheme
	if upd.Name != nil {
		name = *upd.Name
	}
	if upd.ColorScheme != nil {
		scheme = *upd.ColorScheme
	}

	if name != current.Name {
		for oid, p := range s.projects {
			if oid != id && p.Name == name {
				return core.Project{}, fmt.Errorf("project %q: %w", name, core.ErrProjectExists)
			}
		}
		// Re-key overrides to the new name.
		for key, o := range s.overrides {
			if o.ProjectName == current.Name {
				delete(s.overrides, key)
				o.ProjectName = name
				s.overrides[overrideKey(name, o.PeriodName)] = o
			}
		}
	}

	if scheme != current.ColorScheme {
		for _, t := range s.tasks {
			if t.ProjectID == id {
				t.Color = core.SwapColorScheme(t.Color, scheme)
			}
		}
	}

	current.Name = name
	current.ColorScheme = scheme
	return s.projectWithTasksLocked(id), nil
}

func (s *Store) DeleteProject(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, ok := s.projects[id]
	if !ok {
		return fmt.Errorf("project %d: %w", id, core.ErrNotFound)
	}
	for tid, t := range s.tasks {
		if t.ProjectID == id {
			delete(s.tasks, tid)
		}
	}
	for key, o := range s.overrides {
		if o.ProjectName == project.Name {
			delete(s.overrides, key)
		}
	}
	delete(s.projects, id)
	return nil
}

func (s *Store) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.projects[t.ProjectID]; !ok {
		return core.Task{}, fmt.Errorf("project %d: %w", t.ProjectID, core.ErrNotFound)
	}
	t.ID = s.allocateID()
	stored := t
	s.tasks[t.ID] = &stored
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, id int64) (core.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return core.Task{}, fmt.Errorf("task %d: %w", id, core.ErrNotFound)
	}
	return *t, nil
}

func (s *Store) UpdateTask(ctx context.Context, id int64, upd planning.TaskUpdate) (core.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[id]
	if !ok {
		return core.Task{}, fmt.Errorf("task %d: %w", id, core.ErrNotFound)
	}

	next := *current
	if upd.Text != nil {
		next.Text = *upd.Text
	}
	if upd.Comment != nil {
		next.Comment = *upd.Comment
	}
	if upd.StartDate != nil {
		next.StartDate = *upd.StartDate
	}
	if upd.EndDate != nil {
		next.EndDate = *upd.EndDate
	}
	if upd.Color != nil {
		next.Color = *upd.Color
	}
	if upd.ETP != nil {
		next.ETP = *upd.ETP
	}
	if err := next.Validate(); err != nil {
		return core.Task{}, err
	}

	*current = next
	return next, nil
}

func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("task %d: %w", id, core.ErrNotFound)
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) GetOverride(ctx context.Context, projectName, periodName string) (core.Override, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.overrides[overrideKey(projectName, periodName)]
	if !ok {
		return core.Override{}, fmt.Errorf("override (%s, %s): %w", projectName, periodName, core.ErrNotFound)
	}
	return o, nil
}

func (s *Store) OverridesForProject(ctx context.Context, projectName string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	overrides := make(map[string]float64)
	for _, o := range s.overrides {
		if o.ProjectName == projectName {
			overrides[o.PeriodName] = o.Value
		}
	}
	return overrides, nil
}

func (s *Store) UpsertOverride(ctx context.Context, o core.Override) error {
	if o.Value < 0 {
		return core.ErrNegativeETP
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	o.UpdatedAt = time.Now()
	s.overrides[overrideKey(o.ProjectName, o.PeriodName)] = o
	return nil
}
