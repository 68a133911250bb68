package core

// OverrideLookup resolves the manual overrides for one project, keyed by
// period name. Implementations batch-fetch the project's overrides in a
// single call; the result must match what per-key lookups would return.
type OverrideLookup interface {
	OverridesForProject(projectName string) (map[string]float64, error)
}

// OverrideLookupFunc adapts a function to the OverrideLookup interface.
type OverrideLookupFunc func(projectName string) (map[string]float64, error)

func (f OverrideLookupFunc) OverridesForProject(projectName string) (map[string]float64, error) {
	return f(projectName)
}

// NoOverrides is an OverrideLookup with no stored overrides.
var NoOverrides OverrideLookup = OverrideLookupFunc(func(string) (map[string]float64, error) {
	return nil, nil
})

// AllocationRow is the resolved allocation for one project: a value for
// every catalog period plus the project-level maximum.
type AllocationRow struct {
	Name    string
	Periods map[string]float64
	// Total is the maximum nominal ETP over the project's tasks. It is a
	// peak-headcount figure, not a sum, and overrides never change it.
	Total float64
}

// Allocation is the full engine output for one portfolio pass.
type Allocation struct {
	Rows []AllocationRow
	// PeriodTotals sums the resolved per-period values across projects.
	PeriodTotals map[string]float64
	// GrandTotal sums every row's Total.
	GrandTotal float64
}

// Allocate maps each project's tasks onto the reporting periods and
// resolves per-period allocation values.
//
// For every period a task's date range intersects, the computed value is
// the maximum nominal ETP among the tasks touching it: two overlapping
// tasks represent peak concurrent headcount, not cumulative effort. A
// stored override for a (project, period) pair wins over any computed
// value. Periods nothing touches resolve to 0.0 and still appear in the
// row. Tasks dated before the catalog are skipped, never an error.
//
// The engine reads and computes only; it performs no mutation, so two
// passes over identical inputs yield identical output.
func Allocate(projects []Project, catalog Catalog, overrides OverrideLookup) (Allocation, error) {
	if overrides == nil {
		overrides = NoOverrides
	}

	out := Allocation{
		Rows:         make([]AllocationRow, 0, len(projects)),
		PeriodTotals: make(map[string]float64, catalog.Len()),
	}
	for _, name := range catalog.Names() {
		out.PeriodTotals[name] = 0
	}

	for _, project := range projects {
		projectOverrides, err := overrides.OverridesForProject(project.Name)
		if err != nil {
			return Allocation{}, err
		}

		computed := make(map[string]float64, catalog.Len())
		projectMax := 0.0
		for _, task := range project.Tasks {
			if task.ETP > projectMax {
				projectMax = task.ETP
			}
			for _, period := range catalog.PeriodsTouched(task.StartDate, task.EndDate) {
				if task.ETP > computed[period] {
					computed[period] = task.ETP
				}
			}
		}

		row := AllocationRow{
			Name:    project.Name,
			Periods: make(map[string]float64, catalog.Len()),
			Total:   projectMax,
		}
		for _, period := range catalog.Names() {
			value := computed[period]
			if override, ok := projectOverrides[period]; ok {
				value = override
			}
			row.Periods[period] = value
			out.PeriodTotals[period] += value
		}

		out.Rows = append(out.Rows, row)
		out.GrandTotal += projectMax
	}

	return out, nil
}
