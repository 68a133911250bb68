package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"effectif/internal/core"
	"effectif/internal/planning"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements planning.Repository on a local SQLite file.
type SQLiteRepository struct {
	db *sql.DB
}

var _ planning.Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside one transaction, rolling back on any error so no
// partial write is ever visible.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// ListProjects returns all projects with their tasks in insertion order.
// Both reads run in one transaction so the task list matches the project
// snapshot even with concurrent writers.
func (r *SQLiteRepository) ListProjects(ctx context.Context) ([]core.Project, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin read transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, name, color_scheme FROM projects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []core.Project
	index := make(map[int64]int)
	for rows.Next() {
		var p core.Project
		if err := rows.Scan(&p.ID, &p.Name, &p.ColorScheme); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		index[p.ID] = len(projects)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}

	taskRows, err := tx.QueryContext(ctx,
		`SELECT id, project_id, text, comment, start_date, end_date, color, etp
		 FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer taskRows.Close()

	for taskRows.Next() {
		task, err := scanTask(taskRows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[task.ProjectID]; ok {
			projects[i].Tasks = append(projects[i].Tasks, task)
		}
	}
	if err := taskRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	// Both result sets must be closed before the transaction ends.
	rows.Close()
	taskRows.Close()
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit read transaction: %w", err)
	}
	return projects, nil
}

func (r *SQLiteRepository) GetProject(ctx context.Context, id int64) (core.Project, error) {
	var p core.Project
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, color_scheme FROM projects WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.ColorScheme)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, fmt.Errorf("project %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project: %w", err)
	}

	tasks, err := r.tasksForProject(ctx, p.ID)
	if err != nil {
		return core.Project{}, err
	}
	p.Tasks = tasks
	return p, nil
}

func (r *SQLiteRepository) GetProjectByName(ctx context.Context, name string) (core.Project, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		`SELECT id FROM projects WHERE name = ?`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Project{}, fmt.Errorf("project %q: %w", name, core.ErrNotFound)
	}
	if err != nil {
		return core.Project{}, fmt.Errorf("get project by name: %w", err)
	}
	return r.GetProject(ctx, id)
}

func (r *SQLiteRepository) tasksForProject(ctx context.Context, projectID int64) ([]core.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, text, comment, start_date, end_date, color, etp
		 FROM tasks WHERE project_id = ? ORDER BY id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	defer rows.Close()

	var tasks []core.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate project tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(rows *sql.Rows) (core.Task, error) {
	var t core.Task
	var start, end string
	if err := rows.Scan(&t.ID, &t.ProjectID, &t.Text, &t.Comment, &start, &end, &t.Color, &t.ETP); err != nil {
		return core.Task{}, fmt.Errorf("scan task: %w", err)
	}
	var err error
	if t.StartDate, err = core.ParseDate(start); err != nil {
		return core.Task{}, fmt.Errorf("task %d start date: %w", t.ID, err)
	}
	if t.EndDate, err = core.ParseDate(end); err != nil {
		return core.Task{}, fmt.Errorf("task %d end date: %w", t.ID, err)
	}
	return t, nil
}

func (r *SQLiteRepository) CreateProject(ctx context.Context, p core.Project) (core.Project, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO projects (name, color_scheme) VALUES (?, ?)`,
			p.Name, p.ColorScheme)
		if isUniqueViolation(err) {
			return fmt.Errorf("project %q: %w", p.Name, core.ErrProjectExists)
		}
		if err != nil {
			return fmt.Errorf("insert project: %w", err)
		}
		p.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("project insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Project{}, err
	}

	slog.InfoContext(ctx, "Project created", "id", p.ID, "name", p.Name)
	return p, nil
}

func (r *SQLiteRepository) UpdateProject(ctx context.Context, id int64, upd planning.ProjectUpdate) (core.Project, error) {
	var updated core.Project
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var current core.Project
		err := tx.QueryRowContext(ctx,
			`SELECT id, name, color_scheme FROM projects WHERE id = ?`, id).
			Scan(&current.ID, &current.Name, &current.ColorScheme)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("project %d: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}

		name := current.Name
		scheme := current.ColorScheme
		if upd.Name != nil {
			name = *upd.Name
		}
		if upd.ColorScheme != nil {
			scheme = *upd.ColorScheme
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE projects SET name = ?, color_scheme = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
			name, scheme, id)
		if isUniqueViolation(err) {
			return fmt.Errorf("project %q: %w", name, core.ErrProjectExists)
		}
		if err != nil {
			return fmt.Errorf("update project: %w", err)
		}

		// Overrides are keyed by name; a rename has to follow.
		if name != current.Name {
			if _, err := tx.ExecContext(ctx,
				`UPDATE etp_entries SET project_name = ? WHERE project_name = ?`,
				name, current.Name); err != nil {
				return fmt.Errorf("rekey overrides: %w", err)
			}
		}

		// A scheme change recolors every task, keeping its own intensity.
		if scheme != current.ColorScheme {
			rows, err := tx.QueryContext(ctx,
				`SELECT id, color FROM tasks WHERE project_id = ?`, id)
			if err != nil {
				return fmt.Errorf("list task colors: %w", err)
			}
			type recolor struct {
				id    int64
				color string
			}
			var updates []recolor
			for rows.Next() {
				var rc recolor
				if err := rows.Scan(&rc.id, &rc.color); err != nil {
					rows.Close()
					return fmt.Errorf("scan task color: %w", err)
				}
				rc.color = core.SwapColorScheme(rc.color, scheme)
				updates = append(updates, rc)
			}
			if err := rows.Close(); err != nil {
				return fmt.Errorf("close task colors: %w", err)
			}
			for _, rc := range updates {
				if _, err := tx.ExecContext(ctx,
					`UPDATE tasks SET color = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
					rc.color, rc.id); err != nil {
					return fmt.Errorf("recolor task %d: %w", rc.id, err)
				}
			}
		}

		updated = core.Project{ID: id, Name: name, ColorScheme: scheme}
		return nil
	})
	if err != nil {
		return core.Project{}, err
	}

	tasks, err := r.tasksForProject(ctx, id)
	if err != nil {
		return core.Project{}, err
	}
	updated.Tasks = tasks
	return updated, nil
}

func (r *SQLiteRepository) DeleteProject(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var name string
		err := tx.QueryRowContext(ctx,
			`SELECT name FROM projects WHERE id = ?`, id).Scan(&name)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("project %d: %w", id, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("get project: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE project_id = ?`, id); err != nil {
			return fmt.Errorf("delete project tasks: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM etp_entries WHERE project_name = ?`, name); err != nil {
			return fmt.Errorf("delete project overrides: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete project: %w", err)
		}

		slog.InfoContext(ctx, "Project deleted", "id", id, "name", name)
		return nil
	})
}

func (r *SQLiteRepository) CreateTask(ctx context.Context, t core.Task) (core.Task, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM projects WHERE id = ?`, t.ProjectID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("project %d: %w", t.ProjectID, core.ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("check project: %w", err)
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO tasks (project_id, text, comment, start_date, end_date, color, etp)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			t.ProjectID, t.Text, t.Comment, t.StartDate.ISO(), t.EndDate.ISO(), t.Color, t.ETP)
		if err != nil {
			return fmt.Errorf("insert task: %w", err)
		}
		t.ID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("task insert id: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Task{}, err
	}

	slog.InfoContext(ctx, "Task created", "id", t.ID, "project_id", t.ProjectID, "etp", t.ETP)
	return t, nil
}

func (r *SQLiteRepository) GetTask(ctx context.Context, id int64) (core.Task, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, project_id, text, comment, start_date, end_date, color, etp
		 FROM tasks WHERE id = ?`, id)
	if err != nil {
		return core.Task{}, fmt.Errorf("get task: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return core.Task{}, fmt.Errorf("get task: %w", err)
		}
		return core.Task{}, fmt.Errorf("task %d: %w", id, core.ErrNotFound)
	}
	return scanTask(rows)
}

func (r *SQLiteRepository) UpdateTask(ctx context.Context, id int64, upd planning.TaskUpdate) (core.Task, error) {
	var updated core.Task
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, project_id, text, comment, start_date, end_date, color, etp
			 FROM tasks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("get task: %w", err)
		}
		if !rows.Next() {
			rows.Close()
			if err := rows.Err(); err != nil {
				return fmt.Errorf("get task: %w", err)
			}
			return fmt.Errorf("task %d: %w", id, core.ErrNotFound)
		}
		current, err := scanTask(rows)
		rows.Close()
		if err != nil {
			return err
		}

		if upd.Text != nil {
			current.Text = *upd.Text
		}
		if upd.Comment != nil {
			current.Comment = *upd.Comment
		}
		if upd.StartDate != nil {
			current.StartDate = *upd.StartDate
		}
		if upd.EndDate != nil {
			current.EndDate = *upd.EndDate
		}
		if upd.Color != nil {
			current.Color = *upd.Color
		}
		if upd.ETP != nil {
			current.ETP = *upd.ETP
		}
		if err := current.Validate(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE tasks SET text = ?, comment = ?, start_date = ?, end_date = ?,
			        color = ?, etp = ?, updated_at = CURRENT_TIMESTAMP
			 WHERE id = ?`,
			current.Text, current.Comment, current.StartDate.ISO(), current.EndDate.ISO(),
			current.Color, current.ETP, id)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}

		updated = current
		return nil
	})
	if err != nil {
		return core.Task{}, err
	}
	return updated, nil
}

func (r *SQLiteRepository) DeleteTask(ctx context.Context, id int64) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("delete task rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("task %d: %w", id, core.ErrNotFound)
		}
		return nil
	})
}

func (r *SQLiteRepository) GetOverride(ctx context.Context, projectName, periodName string) (core.Override, error) {
	o := core.Override{ProjectName: projectName, PeriodName: periodName}
	var updatedAt string
	err := r.db.QueryRowContext(ctx,
		`SELECT etp_value, updated_at FROM etp_entries WHERE project_name = ? AND period = ?`,
		projectName, periodName).Scan(&o.Value, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Override{}, fmt.Errorf("override (%s, %s): %w", projectName, periodName, core.ErrNotFound)
	}
	if err != nil {
		return core.Override{}, fmt.Errorf("get override: %w", err)
	}
	// SQLite stores CURRENT_TIMESTAMP as text.
	if ts, err := time.Parse("2006-01-02 15:04:05", updatedAt); err == nil {
		o.UpdatedAt = ts
	}
	return o, nil
}

func (r *SQLiteRepository) OverridesForProject(ctx context.Context, projectName string) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT period, etp_value FROM etp_entries WHERE project_name = ?`, projectName)
	if err != nil {
		return nil, fmt.Errorf("list overrides: %w", err)
	}
	defer rows.Close()

	overrides := make(map[string]float64)
	for rows.Next() {
		var period string
		var value float64
		if err := rows.Scan(&period, &value); err != nil {
			return nil, fmt.Errorf("scan override: %w", err)
		}
		overrides[period] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overrides: %w", err)
	}
	return overrides, nil
}

func (r *SQLiteRepository) UpsertOverride(ctx context.Context, o core.Override) error {
	if o.Value < 0 {
		return core.ErrNegativeETP
	}
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO etp_entries (project_name, period, etp_value)
			 VALUES (?, ?, ?)
			 ON CONFLICT (project_name, period)
			 DO UPDATE SET etp_value = excluded.etp_value, updated_at = CURRENT_TIMESTAMP`,
			o.ProjectName, o.PeriodName, o.Value)
		if err != nil {
			return fmt.Errorf("upsert override: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "Override saved",
		"project", o.ProjectName, "period", o.PeriodName, "etp", o.Value)
	return nil
}
