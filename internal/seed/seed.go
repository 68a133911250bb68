// Package seed loads the initial portfolio fixture into an empty
// repository. The data set mirrors the 2025 transformation roadmap the
// service was first stood up with.
package seed

import (
	"context"
	"fmt"
	"log/slog"

	"effectif/internal/core"
	"effectif/internal/planning"
)

type taskFixture struct {
	text  string
	start string
	end   string
	color string
	etp   float64
}

type projectFixture struct {
	name   string
	scheme string
	tasks  []taskFixture
}

var fixtures = []projectFixture{
	{
		name:   "Procurement",
		scheme: "blue",
		tasks: []taskFixture{
			{"Contrats & RFI", "2025-03-01", "2025-05-01", "blue-600", 1.0},
			{"RFP & Négociations", "2025-05-01", "2025-09-01", "blue-500", 1.0},
		},
	},
	{
		name:   "Workforce & HR",
		scheme: "purple",
		tasks: []taskFixture{
			{"Initiation", "2025-03-01", "2025-05-01", "purple-600", 1.0},
			{"Analyse & Design", "2025-05-01", "2025-09-01", "purple-500", 1.0},
			{"Accompagnement & Déploiement", "2025-09-01", "2027-12-30", "purple-400", 1.0},
		},
	},
	{
		name:   "EUS",
		scheme: "green",
		tasks: []taskFixture{
			{"Due Diligence", "2025-02-01", "2025-05-01", "green-600", 1.0},
			{"RFP", "2025-05-01", "2025-09-01", "green-500", 3.0},
			{"Pilot & Deploy", "2025-09-01", "2025-12-30", "green-400", 1.0},
		},
	},
	{
		name:   "VIP/Events",
		scheme: "yellow",
		tasks: []taskFixture{
			{"Analyse & Design", "2025-03-01", "2025-05-01", "yellow-600", 1.0},
		},
	},
	{
		name:   "Employee Experience",
		scheme: "red",
		tasks: []taskFixture{
			{"Benchmark & Design", "2025-03-01", "2025-05-01", "red-600", 1.0},
			{"Implementation & Optimization", "2025-05-01", "2025-09-01", "red-500", 1.0},
		},
	},
	{
		name:   "Process Data Analytics",
		scheme: "indigo",
		tasks: []taskFixture{
			{"Audit & Roadmap", "2025-02-01", "2025-04-30", "indigo-600", 1.0},
			{"Implementation & Migration", "2025-05-01", "2025-06-30", "indigo-500", 1.0},
		},
	},
	{
		name:   "Observability",
		scheme: "teal",
		tasks: []taskFixture{
			{"Strategy & Design", "2025-02-01", "2025-04-30", "teal-600", 1.0},
			{"POC & Implementation", "2025-05-01", "2025-06-30", "teal-500", 1.0},
		},
	},
	{
		name:   "TOM",
		scheme: "gray",
		tasks: []taskFixture{
			{"Analysis & Design", "2025-02-01", "2025-04-30", "gray-600", 1.0},
			{"Implementation & Transition", "2025-05-01", "2025-06-30", "gray-500", 1.0},
		},
	},
}

// Apply inserts the fixture portfolio. It refuses to run against a
// repository that already holds projects so a restart never duplicates
// rows.
func Apply(ctx context.Context, repo planning.Repository) error {
	existing, err := repo.ListProjects(ctx)
	if err != nil {
		return fmt.Errorf("check existing projects: %w", err)
	}
	if len(existing) > 0 {
		slog.InfoContext(ctx, "Seed skipped, repository already populated",
			"projects", len(existing))
		return nil
	}

	for _, pf := range fixtures {
		project, err := repo.CreateProject(ctx, core.Project{
			Name:        pf.name,
			ColorScheme: pf.scheme,
		})
		if err != nil {
			return fmt.Errorf("create project %q: %w", pf.name, err)
		}

		for _, tf := range pf.tasks {
			start, err := core.ParseDate(tf.start)
			if err != nil {
				return fmt.Errorf("task %q start date: %w", tf.text, err)
			}
			end, err := core.ParseDate(tf.end)
			if err != nil {
				return fmt.Errorf("task %q end date: %w", tf.text, err)
			}

			if _, err := repo.CreateTask(ctx, core.Task{
				ProjectID: project.ID,
				Text:      tf.text,
				StartDate: start,
				EndDate:   end,
				Color:     tf.color,
				ETP:       tf.etp,
			}); err != nil {
				return fmt.Errorf("create task %q: %w", tf.text, err)
			}
		}
	}

	slog.InfoContext(ctx, "Seed data loaded", "projects", len(fixtures))
	return nil
}
