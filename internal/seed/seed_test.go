package seed_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"effectif/internal/core"
	"effectif/internal/memory"
	"effectif/internal/seed"
)

func TestApply(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, seed.Apply(ctx, store))

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 8)

	assert.Equal(t, "Procurement", projects[0].Name)
	assert.Equal(t, "TOM", projects[7].Name)

	var eus core.Project
	for _, p := range projects {
		if p.Name == "EUS" {
			eus = p
		}
	}
	require.Len(t, eus.Tasks, 3)
	assert.Equal(t, 3.0, eus.Tasks[1].ETP)
	assert.Equal(t, "green-500", eus.Tasks[1].Color)
}

func TestApplyIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	require.NoError(t, seed.Apply(ctx, store))
	require.NoError(t, seed.Apply(ctx, store))

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 8)
}

func TestSeededAllocation(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, seed.Apply(ctx, store))

	projects, err := store.ListProjects(ctx)
	require.NoError(t, err)

	report, err := core.Allocate(projects, core.DefaultCatalog(), core.NoOverrides)
	require.NoError(t, err)
	require.Len(t, report.Rows, 8)

	byName := make(map[string]core.AllocationRow)
	for _, row := range report.Rows {
		byName[row.Name] = row
	}

	// EUS peaks at the 3.0 RFP task in H1 and H2 2025
	assert.Equal(t, 3.0, byName["EUS"].Periods["2025 Q1-Q2"])
	assert.Equal(t, 3.0, byName["EUS"].Periods["2025 Q3-Q4"])
	assert.Equal(t, 3.0, byName["EUS"].Total)

	// Workforce & HR runs into the catch-all period
	assert.Equal(t, 1.0, byName["Workforce & HR"].Periods["2026-2027"])

	// nothing was planned before 2025
	assert.Equal(t, 0.0, byName["Procurement"].Periods["2024 Q3-Q4"])
}
